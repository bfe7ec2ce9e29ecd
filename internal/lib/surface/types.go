package surface

import (
	"context"

	"github.com/tastrails/trails/server/internal/lib/gpx"
)

// Provider names a surface classification strategy
type Provider string

const (
	PassThrough Provider = "passthrough" // one unknown segment
	Keywords    Provider = "keywords"    // road name keyword rules
	OpenAI      Provider = "openai"      // LLM classification of road names
)

// Classification is the surface assigned to one road name
type Classification struct {
	SurfaceType gpx.SurfaceType `json:"surface_type"`
	Confidence  float64         `json:"confidence"`
}

// NameClassifier infers a surface type from a road or track name
type NameClassifier interface {
	ClassifyRoad(ctx context.Context, name string) (Classification, error)
}

// NewDetector is implemented in detector.go
// NewKeywordClassifier is implemented in keywords.go
// NewOpenAIClassifier is implemented in openai.go
