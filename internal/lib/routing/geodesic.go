package routing

import (
	"context"

	"github.com/tastrails/trails/server/internal/lib/geo"
	"github.com/tastrails/trails/server/internal/lib/gpx"
)

// geodesicMatcher keeps every point where it was recorded and fills in
// great-circle distances. Roads are not attributed.
type geodesicMatcher struct {
	geoUtils geo.GeoUtils
}

// NewGeodesicMatcher creates a RoadMatcher that measures but does not snap
func NewGeodesicMatcher() gpx.RoadMatcher {
	return &geodesicMatcher{geoUtils: geo.NewGeoUtils()}
}

func (m *geodesicMatcher) MatchToRoads(ctx context.Context, points []gpx.Point) (gpx.MatchedRoute, error) {
	if err := ctx.Err(); err != nil {
		return gpx.MatchedRoute{}, err
	}

	route := gpx.MatchedRoute{
		Points:         make([]gpx.MatchedPoint, len(points)),
		OriginalPoints: make([]gpx.Point, len(points)),
	}
	for i, p := range points {
		step := 0.0
		if i > 0 {
			d, err := m.geoUtils.PointToPoint(points[i-1].Geo(), p.Geo())
			if err != nil {
				return gpx.MatchedRoute{}, err
			}
			step = d
		}
		route.Points[i] = gpx.MatchedPoint{
			Point:                p.Clone(),
			OriginalIndex:        i,
			RoadName:             gpx.UnknownRoad,
			DistanceFromPrevious: step,
		}
		route.OriginalPoints[i] = p.Clone()
		route.TotalDistance += step
	}
	return route, nil
}
