package export

import (
	"github.com/tastrails/trails/server/internal/lib/gpx"
)

// Route is a fully processed track ready for rendering
type Route struct {
	ID        string
	Name      string
	Matched   gpx.MatchedRoute
	Surfaces  gpx.SurfaceData
	Elevation gpx.ElevationData
}

// LayerType is the geometry a map layer draws
type LayerType string

const (
	LayerMarker  LayerType = "marker"
	LayerLine    LayerType = "line"
	LayerPolygon LayerType = "polygon"
	LayerCircle  LayerType = "circle"
)

// Layer is one drawable map layer. Coordinates are [longitude, latitude].
type Layer struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Type        LayerType              `json:"type"`
	Visible     bool                   `json:"visible"`
	Coordinates [][2]float64           `json:"coordinates"`
	Properties  map[string]interface{} `json:"properties,omitempty"`
}

// LayerGroup is a collapsible set of layers in the map's layer panel
type LayerGroup struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Layers   []Layer `json:"layers"`
	Visible  bool    `json:"visible"`
	Expanded bool    `json:"expanded"`
}

// MapState is the camera and basemap the client starts with
type MapState struct {
	Center  [2]float64 `json:"center"`
	Zoom    float64    `json:"zoom"`
	Bearing float64    `json:"bearing"`
	Pitch   float64    `json:"pitch"`
	Style   string     `json:"style"`
}

// DefaultMapState frames the whole of Tasmania
func DefaultMapState() MapState {
	return MapState{
		Center:  [2]float64{146.8087, -41.4419},
		Zoom:    7,
		Bearing: 0,
		Pitch:   0,
		Style:   "outdoors",
	}
}

// segmentSpan returns the point range drawn for a surface segment. The span
// runs one point past EndIndex so consecutive segments join up on the map.
func segmentSpan(seg gpx.SurfaceSegment, n int) (int, int) {
	end := seg.EndIndex
	if end+1 < n {
		end++
	}
	return seg.StartIndex, end
}

func routeName(r Route) string {
	if r.Name != "" {
		return r.Name
	}
	return "Untitled route"
}
