package export

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// FeatureCollection renders a route as GeoJSON: the full track as a
// LineString, one LineString per surface segment, and start and finish
// Points. Positions are [longitude, latitude].
func FeatureCollection(r Route) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	points := r.Matched.Points
	if len(points) == 0 {
		return fc
	}

	line := make(orb.LineString, len(points))
	for i, p := range points {
		line[i] = orb.Point(p.LonLat())
	}
	fc.BBox = geojson.NewBBox(line.Bound())

	track := geojson.NewFeature(lineOrPoint(line))
	track.ID = r.ID
	track.Properties["kind"] = "track"
	track.Properties["name"] = routeName(r)
	track.Properties["totalDistance"] = r.Matched.TotalDistance
	track.Properties["minElevation"] = r.Elevation.Statistics.MinElevation
	track.Properties["maxElevation"] = r.Elevation.Statistics.MaxElevation
	track.Properties["totalAscent"] = r.Elevation.Statistics.TotalAscent
	track.Properties["totalDescent"] = r.Elevation.Statistics.TotalDescent
	fc.Append(track)

	for _, seg := range r.Surfaces.Segments {
		start, end := segmentSpan(seg, len(points))
		f := geojson.NewFeature(lineOrPoint(line[start : end+1]))
		f.Properties["kind"] = "surface"
		f.Properties["surfaceType"] = string(seg.SurfaceType)
		f.Properties["confidence"] = seg.Confidence
		f.Properties["startIndex"] = seg.StartIndex
		f.Properties["endIndex"] = seg.EndIndex
		fc.Append(f)
	}

	start := geojson.NewFeature(line[0])
	start.Properties["kind"] = "start"
	fc.Append(start)

	finish := geojson.NewFeature(line[len(line)-1])
	finish.Properties["kind"] = "finish"
	fc.Append(finish)

	return fc
}

// lineOrPoint degrades single-position lines, which GeoJSON does not allow
func lineOrPoint(ls orb.LineString) orb.Geometry {
	if len(ls) == 1 {
		return ls[0]
	}
	return ls
}
