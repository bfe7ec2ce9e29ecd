package export

import (
	"github.com/tastrails/trails/server/internal/lib/geo"
)

// EncodedPolyline encodes the matched route as a Google polyline string
func EncodedPolyline(r Route) (string, error) {
	points := make([]geo.Point, len(r.Matched.Points))
	for i, p := range r.Matched.Points {
		points[i] = p.Geo()
	}
	return geo.NewGeoUtils().EncodePolyline(points)
}
