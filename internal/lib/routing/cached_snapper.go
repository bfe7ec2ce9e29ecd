package routing

import (
	"context"
	"log"
	"time"

	"github.com/tastrails/trails/server/internal/clients/google"
)

// PlaceNameCache stores road names by place ID
type PlaceNameCache interface {
	SetPlaceName(placeID string, name interface{}, ttl time.Duration) error
	GetPlaceName(placeID string, result interface{}) (bool, error)
}

// CachedSnapper wraps a RoadSnapper so each place ID is resolved once per
// TTL across matches. Snapping itself is never cached.
type CachedSnapper struct {
	snapper RoadSnapper
	cache   PlaceNameCache
	ttl     time.Duration
}

// NewCachedSnapper creates a snapper with place name caching
func NewCachedSnapper(snapper RoadSnapper, cache PlaceNameCache, ttl time.Duration) *CachedSnapper {
	return &CachedSnapper{
		snapper: snapper,
		cache:   cache,
		ttl:     ttl,
	}
}

func (c *CachedSnapper) SnapToRoads(ctx context.Context, path []google.LatLng) ([]google.SnappedPoint, error) {
	return c.snapper.SnapToRoads(ctx, path)
}

// PlaceName checks the cache, then the wrapped snapper, then caches the name
func (c *CachedSnapper) PlaceName(ctx context.Context, placeID string) (string, error) {
	var cached string
	if found, err := c.cache.GetPlaceName(placeID, &cached); err == nil && found {
		return cached, nil
	}

	name, err := c.snapper.PlaceName(ctx, placeID)
	if err != nil {
		return "", err
	}

	// Don't fail the match if caching fails
	if err := c.cache.SetPlaceName(placeID, name, c.ttl); err != nil {
		log.Printf("Failed to cache place name for %s: %v", placeID, err)
	}
	return name, nil
}
