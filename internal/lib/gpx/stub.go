package gpx

import "context"

// passThroughMatcher does no map matching. Every point is kept with
// RoadName UnknownRoad and zero distances; TotalDistance is reported as 0.
type passThroughMatcher struct{}

// NewPassThroughMatcher returns the placeholder RoadMatcher
func NewPassThroughMatcher() RoadMatcher {
	return passThroughMatcher{}
}

func (passThroughMatcher) MatchToRoads(ctx context.Context, points []Point) (MatchedRoute, error) {
	if err := ctx.Err(); err != nil {
		return MatchedRoute{}, err
	}

	matched := make([]MatchedPoint, len(points))
	for i, p := range points {
		matched[i] = MatchedPoint{
			Point:         p.Clone(),
			OriginalIndex: i,
			RoadName:      UnknownRoad,
		}
	}

	return MatchedRoute{
		Points:         matched,
		TotalDistance:  0,
		OriginalPoints: clonePoints(points),
	}, nil
}

// passThroughDetector does no classification: one unknown segment at 0.5
// confidence spans the whole route.
type passThroughDetector struct{}

// NewPassThroughDetector returns the placeholder SurfaceDetector
func NewPassThroughDetector() SurfaceDetector {
	return passThroughDetector{}
}

func (passThroughDetector) DetectSurfaces(ctx context.Context, route MatchedRoute) (SurfaceData, error) {
	if err := ctx.Err(); err != nil {
		return SurfaceData{}, err
	}
	if len(route.Points) == 0 {
		return SurfaceData{Segments: []SurfaceSegment{}}, nil
	}
	return SurfaceData{
		Segments: []SurfaceSegment{{
			StartIndex:  0,
			EndIndex:    len(route.Points) - 1,
			SurfaceType: SurfaceUnknown,
			Confidence:  0.5,
		}},
	}, nil
}
