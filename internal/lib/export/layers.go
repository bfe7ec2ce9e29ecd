package export

import (
	"fmt"

	"github.com/tastrails/trails/server/internal/lib/gpx"
)

// RouteLayers projects a processed route into the layer group the map
// client renders: the full track, one line per surface segment, and start
// and finish markers.
func RouteLayers(r Route) LayerGroup {
	points := r.Matched.Points
	group := LayerGroup{
		ID:       "route-" + r.ID,
		Name:     routeName(r),
		Layers:   []Layer{},
		Visible:  true,
		Expanded: true,
	}
	if len(points) == 0 {
		return group
	}

	track := make([][2]float64, len(points))
	for i, p := range points {
		track[i] = p.LonLat()
	}
	group.Layers = append(group.Layers, Layer{
		ID:          group.ID + "-track",
		Name:        "Track",
		Type:        LayerLine,
		Visible:     true,
		Coordinates: track,
		Properties: map[string]interface{}{
			"totalDistance": r.Matched.TotalDistance,
			"totalAscent":   r.Elevation.Statistics.TotalAscent,
			"totalDescent":  r.Elevation.Statistics.TotalDescent,
		},
	})

	for i, seg := range r.Surfaces.Segments {
		start, end := segmentSpan(seg, len(points))
		group.Layers = append(group.Layers, Layer{
			ID:          fmt.Sprintf("%s-surface-%d", group.ID, i),
			Name:        fmt.Sprintf("Surface: %s", seg.SurfaceType),
			Type:        LayerLine,
			Visible:     seg.SurfaceType != gpx.SurfaceUnknown,
			Coordinates: track[start : end+1],
			Properties: map[string]interface{}{
				"surfaceType": string(seg.SurfaceType),
				"confidence":  seg.Confidence,
			},
		})
	}

	group.Layers = append(group.Layers,
		Layer{
			ID:          group.ID + "-start",
			Name:        "Start",
			Type:        LayerMarker,
			Visible:     true,
			Coordinates: [][2]float64{track[0]},
		},
		Layer{
			ID:          group.ID + "-finish",
			Name:        "Finish",
			Type:        LayerMarker,
			Visible:     true,
			Coordinates: [][2]float64{track[len(track)-1]},
		},
	)
	return group
}
