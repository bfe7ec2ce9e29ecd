package routing

import (
	"context"

	"github.com/tastrails/trails/server/internal/clients/google"
)

// Provider names a road matching strategy
type Provider string

const (
	PassThrough Provider = "passthrough" // no matching, zero distances
	Geodesic    Provider = "geodesic"    // no snapping, great-circle distances
	GoogleRoads Provider = "google"      // Google Roads snapToRoads
)

// RoadSnapper snaps GPS paths to the road network and names the snapped roads
type RoadSnapper interface {
	// Snap at most google.MaxPathPoints points
	SnapToRoads(ctx context.Context, path []google.LatLng) ([]google.SnappedPoint, error)

	// Resolve a snapped place ID to a road name
	PlaceName(ctx context.Context, placeID string) (string, error)
}

// NewGeodesicMatcher is implemented in geodesic.go
// NewSnapMatcher is implemented in matcher.go
