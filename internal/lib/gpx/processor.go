package gpx

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// processor implements the Processor interface
type processor struct {
	matcher      RoadMatcher
	detector     SurfaceDetector
	stageTimeout time.Duration
}

// Option configures a Processor
type Option func(*processor)

// WithRoadMatcher sets the road matching capability (default: pass-through)
func WithRoadMatcher(m RoadMatcher) Option {
	return func(p *processor) {
		if m != nil {
			p.matcher = m
		}
	}
}

// WithSurfaceDetector sets the surface classification capability (default: pass-through)
func WithSurfaceDetector(d SurfaceDetector) Option {
	return func(p *processor) {
		if d != nil {
			p.detector = d
		}
	}
}

// WithStageTimeout bounds MatchToRoads and DetectSurfaces. Zero disables the bound.
func WithStageTimeout(d time.Duration) Option {
	return func(p *processor) {
		p.stageTimeout = d
	}
}

// NewProcessor creates a new Processor implementation
func NewProcessor(opts ...Option) Processor {
	p := &processor{
		matcher:  NewPassThroughMatcher(),
		detector: NewPassThroughDetector(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *processor) ParseFile(data []byte) (TrackData, error) {
	return Parse(data)
}

func (p *processor) SimplifyTrack(points []Point) []Point {
	return Simplify(points)
}

func (p *processor) MatchToRoads(ctx context.Context, points []Point) (MatchedRoute, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	route, err := p.matcher.MatchToRoads(ctx, clonePoints(points))
	if err != nil {
		return MatchedRoute{}, newProcessingError(MatchError, err)
	}
	if err := validateMatchedRoute(route, len(points)); err != nil {
		return MatchedRoute{}, newProcessingError(MatchError, err)
	}
	return route, nil
}

func (p *processor) MatchSimplified(ctx context.Context, points []Point) (MatchedRoute, error) {
	indices := SimplifyIndices(points, DefaultTolerance)
	simplified := make([]Point, len(indices))
	for i, idx := range indices {
		simplified[i] = points[idx]
	}

	route, err := p.MatchToRoads(ctx, simplified)
	if err != nil {
		return MatchedRoute{}, err
	}

	// Re-point provenance at the unsimplified sequence
	for i := range route.Points {
		route.Points[i].OriginalIndex = indices[route.Points[i].OriginalIndex]
	}
	route.OriginalPoints = clonePoints(points)
	return route, nil
}

func (p *processor) DetectSurfaces(ctx context.Context, route MatchedRoute) (SurfaceData, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	surfaces, err := p.detector.DetectSurfaces(ctx, cloneRoute(route))
	if err != nil {
		return SurfaceData{}, newProcessingError(SurfaceError, err)
	}
	if err := validateSurfaceData(surfaces, len(route.Points)); err != nil {
		return SurfaceData{}, newProcessingError(SurfaceError, err)
	}
	return surfaces, nil
}

func (p *processor) ProcessElevation(route MatchedRoute) (ElevationData, error) {
	return ProcessElevation(route)
}

func (p *processor) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.stageTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.stageTimeout)
}

// validateMatchedRoute checks the RoadMatcher contract against an input of n points
func validateMatchedRoute(route MatchedRoute, n int) error {
	if len(route.Points) > n {
		return fmt.Errorf("matcher returned %d points for %d inputs", len(route.Points), n)
	}
	if len(route.OriginalPoints) != n {
		return fmt.Errorf("matcher returned %d original points for %d inputs", len(route.OriginalPoints), n)
	}
	if route.TotalDistance < 0 || math.IsNaN(route.TotalDistance) {
		return fmt.Errorf("invalid total distance %v", route.TotalDistance)
	}

	prev := -1
	for i, mp := range route.Points {
		if mp.OriginalIndex <= prev || mp.OriginalIndex >= n {
			return fmt.Errorf("point %d: original index %d out of order or range", i, mp.OriginalIndex)
		}
		prev = mp.OriginalIndex

		if mp.RoadName == "" {
			return fmt.Errorf("point %d: missing road name", i)
		}
		if mp.DistanceFromPrevious < 0 || math.IsNaN(mp.DistanceFromPrevious) {
			return fmt.Errorf("point %d: invalid distance from previous %v", i, mp.DistanceFromPrevious)
		}
	}
	return nil
}

// validateSurfaceData checks the SurfaceDetector contract for a route of n points
func validateSurfaceData(data SurfaceData, n int) error {
	if n > 0 && len(data.Segments) == 0 {
		return errors.New("no surface segments for a non-empty route")
	}

	nextFree := 0
	for i, seg := range data.Segments {
		if seg.StartIndex < nextFree || seg.StartIndex > seg.EndIndex || seg.EndIndex >= n {
			return fmt.Errorf("segment %d [%d, %d] overlaps, is unordered or out of range", i, seg.StartIndex, seg.EndIndex)
		}
		if !seg.SurfaceType.Valid() {
			return fmt.Errorf("segment %d: unknown surface type %q", i, seg.SurfaceType)
		}
		if seg.Confidence < 0 || seg.Confidence > 1 || math.IsNaN(seg.Confidence) {
			return fmt.Errorf("segment %d: confidence %v outside [0, 1]", i, seg.Confidence)
		}
		nextFree = seg.EndIndex + 1
	}
	return nil
}
