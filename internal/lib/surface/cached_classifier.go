package surface

import (
	"context"
	"log"
	"time"
)

// ClassificationCache stores classifications by road name hash
type ClassificationCache interface {
	SetRoadClassification(nameHash string, classification interface{}, ttl time.Duration) error
	GetRoadClassification(nameHash string, result interface{}) (bool, error)
}

// CachedClassifier wraps a NameClassifier with content-based caching so each
// distinct road name is classified once per TTL
type CachedClassifier struct {
	classifier NameClassifier
	cache      ClassificationCache
	ttl        time.Duration
}

// NewCachedClassifier creates a classifier with content-based caching
func NewCachedClassifier(classifier NameClassifier, cache ClassificationCache, ttl time.Duration) *CachedClassifier {
	return &CachedClassifier{
		classifier: classifier,
		cache:      cache,
		ttl:        ttl,
	}
}

// ClassifyRoad checks the cache, then the wrapped classifier, then caches the result
func (c *CachedClassifier) ClassifyRoad(ctx context.Context, name string) (Classification, error) {
	nameHash := HashRoadName(name)

	var cached Classification
	if found, err := c.cache.GetRoadClassification(nameHash, &cached); err == nil && found {
		return cached, nil
	}

	classification, err := c.classifier.ClassifyRoad(ctx, name)
	if err != nil {
		log.Printf("Surface classification failed for %q: %v", name, err)
		return classification, err
	}

	// Don't fail the request if caching fails
	if err := c.cache.SetRoadClassification(nameHash, classification, c.ttl); err != nil {
		log.Printf("Failed to cache classification for %s: %v", nameHash[:8], err)
	}
	return classification, nil
}
