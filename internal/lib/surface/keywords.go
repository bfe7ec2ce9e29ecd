package surface

import (
	"context"
	"strings"
	"unicode"

	"github.com/tastrails/trails/server/internal/lib/gpx"
)

type keywordRule struct {
	phrase      string
	surfaceType gpx.SurfaceType
	confidence  float64
}

// Rules are checked in order; the first phrase found in the name wins.
// Multi-word phrases must come before their single-word suffixes.
var keywordRules = []keywordRule{
	{"fire trail", gpx.SurfaceUnpaved, 0.8},
	{"4wd", gpx.SurfaceUnpaved, 0.85},
	{"4x4", gpx.SurfaceUnpaved, 0.85},
	{"gravel", gpx.SurfaceUnpaved, 0.8},
	{"forestry", gpx.SurfaceUnpaved, 0.75},
	{"logging", gpx.SurfaceUnpaved, 0.7},
	{"dirt", gpx.SurfaceUnpaved, 0.75},
	{"unsealed", gpx.SurfaceUnpaved, 0.9},

	{"walking track", gpx.SurfaceTrail, 0.85},
	{"boardwalk", gpx.SurfaceTrail, 0.7},
	{"track", gpx.SurfaceTrail, 0.7},
	{"trail", gpx.SurfaceTrail, 0.75},
	{"walk", gpx.SurfaceTrail, 0.7},
	{"path", gpx.SurfaceTrail, 0.65},
	{"circuit", gpx.SurfaceTrail, 0.6},
	{"steps", gpx.SurfaceTrail, 0.6},

	{"highway", gpx.SurfacePaved, 0.9},
	{"hwy", gpx.SurfacePaved, 0.9},
	{"bypass", gpx.SurfacePaved, 0.85},
	{"street", gpx.SurfacePaved, 0.85},
	{"st", gpx.SurfacePaved, 0.8},
	{"avenue", gpx.SurfacePaved, 0.85},
	{"parade", gpx.SurfacePaved, 0.8},
	{"esplanade", gpx.SurfacePaved, 0.8},
	{"boulevard", gpx.SurfacePaved, 0.85},
	{"terrace", gpx.SurfacePaved, 0.8},
	{"crescent", gpx.SurfacePaved, 0.8},
	{"drive", gpx.SurfacePaved, 0.75},
	{"road", gpx.SurfacePaved, 0.7},
	{"rd", gpx.SurfacePaved, 0.7},
	{"lane", gpx.SurfacePaved, 0.6},
}

var unknownClassification = Classification{SurfaceType: gpx.SurfaceUnknown, Confidence: 0.5}

// keywordClassifier classifies road names with fixed phrase rules
type keywordClassifier struct{}

// NewKeywordClassifier creates a NameClassifier that needs no external service
func NewKeywordClassifier() NameClassifier {
	return keywordClassifier{}
}

func (keywordClassifier) ClassifyRoad(ctx context.Context, name string) (Classification, error) {
	if err := ctx.Err(); err != nil {
		return Classification{}, err
	}
	if name == gpx.UnknownRoad {
		return unknownClassification, nil
	}

	padded := " " + strings.Join(tokenize(name), " ") + " "
	for _, rule := range keywordRules {
		if strings.Contains(padded, " "+rule.phrase+" ") {
			return Classification{SurfaceType: rule.surfaceType, Confidence: rule.confidence}, nil
		}
	}
	return unknownClassification, nil
}

// tokenize lowercases name and splits it on anything but letters and digits
func tokenize(name string) []string {
	return strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
