package gpx

import (
	"context"
	"time"

	"github.com/tastrails/trails/server/internal/lib/geo"
)

// Point is a single GPS fix. Elevation and Timestamp are nil when the
// source file did not record them.
type Point struct {
	Latitude  float64    `json:"lat"`
	Longitude float64    `json:"lon"`
	Elevation *float64   `json:"elevation,omitempty"`
	Timestamp *time.Time `json:"time,omitempty"`
}

// Clone returns a copy of p that shares no memory with it
func (p Point) Clone() Point {
	out := Point{Latitude: p.Latitude, Longitude: p.Longitude}
	if p.Elevation != nil {
		ele := *p.Elevation
		out.Elevation = &ele
	}
	if p.Timestamp != nil {
		ts := *p.Timestamp
		out.Timestamp = &ts
	}
	return out
}

// Geo converts the point to the geo library representation
func (p Point) Geo() geo.Point {
	return geo.Point{Latitude: p.Latitude, Longitude: p.Longitude}
}

// LonLat returns the point as a [longitude, latitude] pair for map rendering
func (p Point) LonLat() [2]float64 {
	return [2]float64{p.Longitude, p.Latitude}
}

// Metadata holds document-level GPX metadata
type Metadata struct {
	RecordedAt *time.Time `json:"recordedAt,omitempty"`
	Creator    *string    `json:"creator,omitempty"`
}

// TrackData is the parsed content of one GPX document. All tracks and
// segments are flattened into Points in document order.
type TrackData struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Points      []Point  `json:"points"`
	Metadata    Metadata `json:"metadata"`
}

// UnknownRoad is the road name used when no road is attributable to a point
const UnknownRoad = "Unknown Road"

// MatchedPoint is a Point annotated by a RoadMatcher
type MatchedPoint struct {
	Point
	OriginalIndex        int     `json:"originalIndex"`
	RoadName             string  `json:"roadName"`
	DistanceFromPrevious float64 `json:"distanceFromPrevious"`
}

// MatchedRoute is the output of road matching. OriginalPoints keeps the full
// source sequence; OriginalIndex of every matched point indexes into it.
type MatchedRoute struct {
	Points         []MatchedPoint `json:"points"`
	TotalDistance  float64        `json:"totalDistance"`
	OriginalPoints []Point        `json:"originalPoints"`
}

// SurfaceType classifies the riding/walking surface of a segment
type SurfaceType string

const (
	SurfacePaved   SurfaceType = "paved"
	SurfaceUnpaved SurfaceType = "unpaved"
	SurfaceTrail   SurfaceType = "trail"
	SurfaceUnknown SurfaceType = "unknown"
)

// Valid reports whether s is one of the known surface types
func (s SurfaceType) Valid() bool {
	switch s {
	case SurfacePaved, SurfaceUnpaved, SurfaceTrail, SurfaceUnknown:
		return true
	}
	return false
}

// SurfaceSegment covers route points [StartIndex, EndIndex] inclusive
type SurfaceSegment struct {
	StartIndex  int         `json:"startIndex"`
	EndIndex    int         `json:"endIndex"`
	SurfaceType SurfaceType `json:"surfaceType"`
	Confidence  float64     `json:"confidence"`
}

// SurfaceData lists non-overlapping segments ordered by StartIndex. Indices
// not covered by any segment are unclassified.
type SurfaceData struct {
	Segments []SurfaceSegment `json:"segments"`
}

// ElevationPoint is the elevation profile entry for one route point
type ElevationPoint struct {
	CumulativeDistance float64  `json:"cumulativeDistance"`
	Elevation          float64  `json:"elevation"`
	Grade              *float64 `json:"grade,omitempty"`
}

// ElevationStatistics aggregates an elevation profile
type ElevationStatistics struct {
	MinElevation float64 `json:"minElevation"`
	MaxElevation float64 `json:"maxElevation"`
	TotalAscent  float64 `json:"totalAscent"`
	TotalDescent float64 `json:"totalDescent"`
	AverageGrade float64 `json:"averageGrade"`
}

// ElevationData is the output of the elevation analyzer
type ElevationData struct {
	Points     []ElevationPoint    `json:"points"`
	Statistics ElevationStatistics `json:"statistics"`
}

// RoadMatcher attributes a point sequence to a road network.
// Implementations must emit one MatchedPoint per retained input point with
// strictly increasing OriginalIndex values within [0, len(points)).
type RoadMatcher interface {
	MatchToRoads(ctx context.Context, points []Point) (MatchedRoute, error)
}

// SurfaceDetector partitions a matched route into surface segments
type SurfaceDetector interface {
	DetectSurfaces(ctx context.Context, route MatchedRoute) (SurfaceData, error)
}

// Processor is the full staged pipeline. Stages are independent; callers
// compose them.
type Processor interface {
	// Parse a GPX file buffer into structured data
	ParseFile(data []byte) (TrackData, error)

	// Reduce a point sequence while preserving its shape
	SimplifyTrack(points []Point) []Point

	// Match points to roads
	MatchToRoads(ctx context.Context, points []Point) (MatchedRoute, error)

	// Simplify then match, keeping provenance to the unsimplified points
	MatchSimplified(ctx context.Context, points []Point) (MatchedRoute, error)

	// Detect surface types along the route
	DetectSurfaces(ctx context.Context, route MatchedRoute) (SurfaceData, error)

	// Compute per-point grade and aggregate elevation statistics
	ProcessElevation(route MatchedRoute) (ElevationData, error)
}

// NewProcessor is implemented in processor.go

func clonePoints(points []Point) []Point {
	out := make([]Point, len(points))
	for i, p := range points {
		out[i] = p.Clone()
	}
	return out
}

func cloneRoute(route MatchedRoute) MatchedRoute {
	out := MatchedRoute{
		Points:         make([]MatchedPoint, len(route.Points)),
		TotalDistance:  route.TotalDistance,
		OriginalPoints: clonePoints(route.OriginalPoints),
	}
	for i, mp := range route.Points {
		out.Points[i] = mp
		out.Points[i].Point = mp.Point.Clone()
	}
	return out
}
