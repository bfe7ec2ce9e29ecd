package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/tastrails/trails/server/internal/lib/export"
	"github.com/tastrails/trails/server/internal/lib/geo"
	"github.com/tastrails/trails/server/internal/lib/gpx"
	"github.com/tastrails/trails/server/internal/lib/routing"
	"github.com/tastrails/trails/server/internal/lib/surface"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "parse":
		handleParse()
	case "simplify":
		handleSimplify()
	case "analyze":
		handleAnalyze()
	case "export":
		handleExport()
	case "distance":
		handleDistance()
	case "help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handleParse() {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	file := fs.String("file", "", "Path to a GPX file")
	fs.Parse(os.Args[2:])

	track := mustParse(*file)

	fmt.Printf("Parsed %s:\n", *file)
	if track.Name != nil {
		fmt.Printf("  Name: %s\n", *track.Name)
	}
	if track.Metadata.Creator != nil {
		fmt.Printf("  Creator: %s\n", *track.Metadata.Creator)
	}
	if track.Metadata.RecordedAt != nil {
		fmt.Printf("  Recorded: %s\n", track.Metadata.RecordedAt.Format(time.RFC3339))
	}
	fmt.Printf("  Points: %d\n", len(track.Points))

	length, err := geo.NewGeoUtils().PathLength(geoPoints(track.Points))
	if err != nil {
		log.Fatalf("Error measuring track: %v", err)
	}
	fmt.Printf("  Recorded length: %.2f km\n", length/1000)

	var withEle, withTime int
	for _, p := range track.Points {
		if p.Elevation != nil {
			withEle++
		}
		if p.Timestamp != nil {
			withTime++
		}
	}
	fmt.Printf("  With elevation: %d\n", withEle)
	fmt.Printf("  With timestamp: %d\n", withTime)
}

func handleSimplify() {
	fs := flag.NewFlagSet("simplify", flag.ExitOnError)
	file := fs.String("file", "", "Path to a GPX file")
	tolerance := fs.Float64("tolerance", gpx.DefaultTolerance, "Tolerance in degrees")
	fs.Parse(os.Args[2:])

	track := mustParse(*file)
	indices := gpx.SimplifyIndices(track.Points, *tolerance)

	fmt.Printf("Simplified %s (tolerance %.5f°):\n", *file, *tolerance)
	fmt.Printf("  Points: %d -> %d\n", len(track.Points), len(indices))
	if len(track.Points) > 0 {
		fmt.Printf("  Reduction: %.1f%%\n", 100*(1-float64(len(indices))/float64(len(track.Points))))
	}
}

func handleAnalyze() {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	file := fs.String("file", "", "Path to a GPX file")
	surfaces := fs.String("surfaces", string(surface.Keywords), "Surface classifier: passthrough or keywords")
	fs.Parse(os.Args[2:])

	route := mustProcess(*file, surface.Provider(*surfaces))
	stats := route.Elevation.Statistics

	fmt.Printf("Analyzed %s:\n", *file)
	fmt.Printf("  Distance: %.2f km\n", route.Matched.TotalDistance/1000)
	fmt.Printf("  Matched points: %d of %d\n", len(route.Matched.Points), len(route.Matched.OriginalPoints))
	fmt.Printf("  Elevation: %.0f m to %.0f m\n", stats.MinElevation, stats.MaxElevation)
	fmt.Printf("  Ascent: %.0f m, descent: %.0f m\n", stats.TotalAscent, stats.TotalDescent)
	fmt.Printf("  Average grade: %.2f%%\n", stats.AverageGrade)
	fmt.Printf("  Surface segments:\n")
	for _, seg := range route.Surfaces.Segments {
		fmt.Printf("    [%d-%d] %s (confidence %.2f)\n", seg.StartIndex, seg.EndIndex, seg.SurfaceType, seg.Confidence)
	}
}

func handleExport() {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	file := fs.String("file", "", "Path to a GPX file")
	format := fs.String("format", "geojson", "Output format: geojson, kml or polyline")
	fs.Parse(os.Args[2:])

	route := mustProcess(*file, surface.Keywords)

	switch *format {
	case "geojson":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(export.FeatureCollection(route)); err != nil {
			log.Fatalf("Error writing GeoJSON: %v", err)
		}
	case "kml":
		if err := export.WriteKML(os.Stdout, route); err != nil {
			log.Fatalf("Error writing KML: %v", err)
		}
	case "polyline":
		encoded, err := export.EncodedPolyline(route)
		if err != nil {
			log.Fatalf("Error encoding polyline: %v", err)
		}
		fmt.Println(encoded)
	default:
		log.Fatalf("Unknown format: %s", *format)
	}
}

func handleDistance() {
	fs := flag.NewFlagSet("distance", flag.ExitOnError)
	file := fs.String("file", "", "Path to a GPX file")
	encoded := fs.String("polyline", "", "Encoded route polyline, as returned by the routes API")
	lat := fs.Float64("lat", 0, "Latitude of point")
	lon := fs.Float64("lon", 0, "Longitude of point")
	fs.Parse(os.Args[2:])

	if (*file == "" && *encoded == "") || (*lat == 0 && *lon == 0) {
		fmt.Println("Example usage:")
		fmt.Println("  gpx-inspect distance --file overland-track.gpx --lat -41.6597 --lon 145.9501")
		fmt.Println("  (Distance from Kitchen Hut to the track)")
		os.Exit(1)
	}

	point, err := geo.NewPoint(*lat, *lon)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	geoUtils := geo.NewGeoUtils()
	var route geo.Polyline
	if *encoded != "" {
		points, err := geoUtils.DecodePolyline(*encoded)
		if err != nil {
			log.Fatalf("Error decoding polyline: %v", err)
		}
		route = geo.Polyline{EncodedPolyline: *encoded, Points: points}
	} else {
		route = geo.Polyline{Points: geoPoints(mustParse(*file).Points)}
	}

	distance, err := geoUtils.PointToPolyline(point, route)
	if err != nil {
		log.Fatalf("Error calculating distance to route: %v", err)
	}

	fmt.Printf("Distance from point to route:\n")
	fmt.Printf("  Point: (%.6f, %.6f)\n", point.Latitude, point.Longitude)
	fmt.Printf("  Route: %d points\n", len(route.Points))
	fmt.Printf("  Distance: %.2f meters (%.2f km)\n", distance, distance/1000)
}

func geoPoints(points []gpx.Point) []geo.Point {
	out := make([]geo.Point, len(points))
	for i, p := range points {
		out[i] = p.Geo()
	}
	return out
}

func mustParse(path string) gpx.TrackData {
	if path == "" {
		fmt.Println("Example usage:")
		fmt.Println("  gpx-inspect parse --file overland-track.gpx")
		os.Exit(1)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Error reading %s: %v", path, err)
	}
	track, err := gpx.Parse(data)
	if err != nil {
		log.Fatalf("Error parsing %s: %v", path, err)
	}
	return track
}

// mustProcess runs the offline pipeline: geodesic distances, no snapping
func mustProcess(path string, surfaces surface.Provider) export.Route {
	track := mustParse(path)

	opts := []gpx.Option{gpx.WithRoadMatcher(routing.NewGeodesicMatcher())}
	if surfaces == surface.Keywords {
		opts = append(opts, gpx.WithSurfaceDetector(surface.NewDetector(surface.NewKeywordClassifier())))
	}
	processor := gpx.NewProcessor(opts...)

	ctx := context.Background()
	matched, err := processor.MatchSimplified(ctx, track.Points)
	if err != nil {
		log.Fatalf("Error matching route: %v", err)
	}
	surfaceData, err := processor.DetectSurfaces(ctx, matched)
	if err != nil {
		log.Fatalf("Error detecting surfaces: %v", err)
	}
	elevation, err := processor.ProcessElevation(matched)
	if err != nil {
		log.Fatalf("Error processing elevation: %v", err)
	}

	route := export.Route{
		Matched:   matched,
		Surfaces:  surfaceData,
		Elevation: elevation,
	}
	if track.Name != nil {
		route.Name = *track.Name
	}
	return route
}

func printUsage() {
	fmt.Println("GPX Inspection Tool")
	fmt.Println("")
	fmt.Println("Usage:")
	fmt.Println("  gpx-inspect <command> [options]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  parse      Parse a GPX file and summarize its points")
	fmt.Println("  simplify   Show how many points Douglas-Peucker keeps")
	fmt.Println("  analyze    Run the offline pipeline and print distance, elevation and surfaces")
	fmt.Println("  export     Write the processed route as geojson, kml or polyline")
	fmt.Println("  distance   Distance from a point to a track or encoded route")
	fmt.Println("  help       Show this help message")
}
