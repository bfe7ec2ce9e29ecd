package export

import (
	"encoding/xml"
	"fmt"
	"image/color"
	"io"
	"strconv"

	kml "github.com/twpayne/go-kml"

	"github.com/tastrails/trails/server/internal/lib/gpx"
)

// KML line colours per surface type
var surfaceColors = map[gpx.SurfaceType]color.RGBA{
	gpx.SurfacePaved:   {R: 0x45, G: 0x5a, B: 0x64, A: 0xff},
	gpx.SurfaceUnpaved: {R: 0xbf, G: 0x83, B: 0x3e, A: 0xff},
	gpx.SurfaceTrail:   {R: 0x2e, G: 0x7d, B: 0x32, A: 0xff},
	gpx.SurfaceUnknown: {R: 0x9e, G: 0x9e, B: 0x9e, A: 0xff},
}

// WriteKML renders a route as a KML document with one styled placemark per
// surface segment, for Google Earth and GPS units
func WriteKML(w io.Writer, r Route) error {
	doc := kml.Document(kml.Name(routeName(r)))
	for _, st := range []gpx.SurfaceType{gpx.SurfacePaved, gpx.SurfaceUnpaved, gpx.SurfaceTrail, gpx.SurfaceUnknown} {
		doc.Add(kml.SharedStyle(styleID(st),
			kml.LineStyle(
				kml.Color(surfaceColors[st]),
				kml.Width(4),
			),
		))
	}

	points := r.Matched.Points
	if len(points) > 0 {
		coords := make([]kml.Coordinate, len(points))
		for i, p := range points {
			coords[i] = kml.Coordinate{Lon: p.Longitude, Lat: p.Latitude}
			if p.Elevation != nil {
				coords[i].Alt = *p.Elevation
			}
		}

		doc.Add(kml.Placemark(
			kml.Name("Track"),
			kml.Description(fmt.Sprintf("%.0f m, %.0f m ascent, %.0f m descent",
				r.Matched.TotalDistance, r.Elevation.Statistics.TotalAscent, r.Elevation.Statistics.TotalDescent)),
			kml.StyleURL("#"+styleID(gpx.SurfaceUnknown)),
			kml.ExtendedData(
				data("routeId", r.ID),
				data("totalDistance", strconv.FormatFloat(r.Matched.TotalDistance, 'f', 1, 64)),
			),
			kml.LineString(
				kml.Tessellate(true),
				kml.AltitudeMode(kml.AltitudeModeClampToGround),
				kml.Coordinates(coords...),
			),
		))

		surfaces := kml.Folder(kml.Name("Surfaces"))
		for i, seg := range r.Surfaces.Segments {
			start, end := segmentSpan(seg, len(points))
			surfaces.Add(kml.Placemark(
				kml.Name(fmt.Sprintf("%d: %s", i+1, seg.SurfaceType)),
				kml.StyleURL("#"+styleID(seg.SurfaceType)),
				kml.ExtendedData(
					data("surfaceType", string(seg.SurfaceType)),
					data("confidence", strconv.FormatFloat(seg.Confidence, 'f', 2, 64)),
				),
				kml.LineString(
					kml.Tessellate(true),
					kml.AltitudeMode(kml.AltitudeModeClampToGround),
					kml.Coordinates(coords[start:end+1]...),
				),
			))
		}
		doc.Add(surfaces)

		doc.Add(
			kml.Placemark(kml.Name("Start"), kml.Point(kml.Coordinates(coords[0]))),
			kml.Placemark(kml.Name("Finish"), kml.Point(kml.Coordinates(coords[len(coords)-1]))),
		)
	}

	return kml.KML(doc).WriteIndent(w, "", "  ")
}

func styleID(st gpx.SurfaceType) string {
	return "surface-" + string(st)
}

// data builds <Data name="..."><value>...</value></Data>
func data(name, value string) *kml.CompoundElement {
	d := kml.Data(kml.Value(value))
	d.Attr = append(d.Attr, xml.Attr{Name: xml.Name{Local: "name"}, Value: name})
	return d
}
