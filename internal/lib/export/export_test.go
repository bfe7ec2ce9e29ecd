package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tastrails/trails/server/internal/lib/geo"
	"github.com/tastrails/trails/server/internal/lib/gpx"
)

func floatPtr(v float64) *float64 {
	return &v
}

// A short loop at Cataract Gorge, Launceston
func cataractGorge() Route {
	coords := [][3]float64{
		{-41.4448, 147.1213, 20},
		{-41.4460, 147.1180, 35},
		{-41.4475, 147.1150, 60},
		{-41.4490, 147.1122, 82},
		{-41.4502, 147.1095, 70},
	}
	route := gpx.MatchedRoute{}
	names := []string{"Basin Road", "Basin Road", "Zig Zag Track", "Zig Zag Track", "Zig Zag Track"}
	for i, c := range coords {
		p := gpx.Point{Latitude: c[0], Longitude: c[1], Elevation: floatPtr(c[2])}
		route.Points = append(route.Points, gpx.MatchedPoint{Point: p, OriginalIndex: i, RoadName: names[i], DistanceFromPrevious: float64(i) * 100})
		route.OriginalPoints = append(route.OriginalPoints, p)
		route.TotalDistance += float64(i) * 100
	}

	elevation, _ := gpx.ProcessElevation(route)
	return Route{
		ID:      "gorge",
		Name:    "Cataract Gorge Loop",
		Matched: route,
		Surfaces: gpx.SurfaceData{Segments: []gpx.SurfaceSegment{
			{StartIndex: 0, EndIndex: 1, SurfaceType: gpx.SurfacePaved, Confidence: 0.7},
			{StartIndex: 2, EndIndex: 4, SurfaceType: gpx.SurfaceTrail, Confidence: 0.7},
		}},
		Elevation: elevation,
	}
}

func TestDefaultMapState(t *testing.T) {
	state := DefaultMapState()
	assert.Equal(t, [2]float64{146.8087, -41.4419}, state.Center)
	assert.Equal(t, 7.0, state.Zoom)
	assert.Equal(t, 0.0, state.Bearing)
	assert.Equal(t, 0.0, state.Pitch)
	assert.Equal(t, "outdoors", state.Style)
}

func TestRouteLayers(t *testing.T) {
	r := cataractGorge()
	group := RouteLayers(r)

	assert.Equal(t, "route-gorge", group.ID)
	assert.Equal(t, "Cataract Gorge Loop", group.Name)
	assert.True(t, group.Visible)
	assert.True(t, group.Expanded)
	require.Len(t, group.Layers, 5, "track, two surfaces, start, finish")

	track := group.Layers[0]
	assert.Equal(t, LayerLine, track.Type)
	require.Len(t, track.Coordinates, 5)
	assert.Equal(t, [2]float64{147.1213, -41.4448}, track.Coordinates[0], "coordinates are lon, lat")

	paved := group.Layers[1]
	assert.Equal(t, "paved", paved.Properties["surfaceType"])
	assert.Len(t, paved.Coordinates, 3, "segment joins onto the next one")

	trail := group.Layers[2]
	assert.Len(t, trail.Coordinates, 3, "last segment ends at the last point")

	assert.Equal(t, LayerMarker, group.Layers[3].Type)
	assert.Equal(t, [][2]float64{{147.1095, -41.4502}}, group.Layers[4].Coordinates)
}

func TestRouteLayers_Empty(t *testing.T) {
	group := RouteLayers(Route{ID: "empty"})
	assert.Equal(t, "Untitled route", group.Name)
	assert.NotNil(t, group.Layers)
	assert.Empty(t, group.Layers)
}

func TestFeatureCollection(t *testing.T) {
	fc := FeatureCollection(cataractGorge())
	require.Len(t, fc.Features, 5)

	track := fc.Features[0]
	assert.Equal(t, "gorge", track.ID)
	assert.Equal(t, "track", track.Properties.MustString("kind"))
	ls, ok := track.Geometry.(orb.LineString)
	require.True(t, ok)
	assert.Equal(t, orb.Point{147.1213, -41.4448}, ls[0])
	assert.Equal(t, 62.0, track.Properties.MustFloat64("totalAscent"))

	assert.Equal(t, "trail", fc.Features[2].Properties.MustString("surfaceType"))
	assert.Equal(t, "start", fc.Features[3].Properties.MustString("kind"))
	_, ok = fc.Features[4].Geometry.(orb.Point)
	assert.True(t, ok)

	// Round trip through the wire format
	data, err := json.Marshal(fc)
	require.NoError(t, err)
	decoded, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	assert.Len(t, decoded.Features, 5)
	assert.Len(t, decoded.BBox, 4)
}

func TestFeatureCollection_SinglePointSegment(t *testing.T) {
	r := cataractGorge()
	r.Matched.Points = r.Matched.Points[:1]
	r.Surfaces.Segments = []gpx.SurfaceSegment{{StartIndex: 0, EndIndex: 0, SurfaceType: gpx.SurfacePaved, Confidence: 0.7}}

	fc := FeatureCollection(r)
	_, ok := fc.Features[0].Geometry.(orb.Point)
	assert.True(t, ok, "one-point lines degrade to points")

	empty := FeatureCollection(Route{})
	assert.Empty(t, empty.Features)
}

func TestWriteKML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteKML(&buf, cataractGorge()))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "<?xml"))
	assert.Contains(t, out, `<kml xmlns="http://www.opengis.net/kml/2.2">`)
	assert.Contains(t, out, "<name>Cataract Gorge Loop</name>")
	assert.Contains(t, out, `<Style id="surface-trail">`)
	assert.Contains(t, out, "<styleUrl>#surface-paved</styleUrl>")
	assert.Contains(t, out, `<Data name="routeId">`)
	assert.Contains(t, out, "<altitudeMode>clampToGround</altitudeMode>")
	assert.Contains(t, out, "147.1213,-41.4448,20")
	assert.Equal(t, 5, strings.Count(out, "<Placemark>"), "track, two surfaces, start, finish")
}

func TestEncodedPolyline(t *testing.T) {
	r := cataractGorge()
	encoded, err := EncodedPolyline(r)
	require.NoError(t, err)
	require.NotEmpty(t, encoded)

	decoded, err := geo.NewGeoUtils().DecodePolyline(encoded)
	require.NoError(t, err)
	require.Len(t, decoded, len(r.Matched.Points))
	for i, p := range decoded {
		assert.InDelta(t, r.Matched.Points[i].Latitude, p.Latitude, 1e-5)
		assert.InDelta(t, r.Matched.Points[i].Longitude, p.Longitude, 1e-5)
	}
}
