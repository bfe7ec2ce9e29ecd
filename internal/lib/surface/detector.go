package surface

import (
	"context"
	"fmt"

	"github.com/tastrails/trails/server/internal/lib/gpx"
)

// detector implements gpx.SurfaceDetector by classifying the road name of
// each run of consecutive points
type detector struct {
	classifier NameClassifier
}

// NewDetector creates a SurfaceDetector backed by a NameClassifier. The
// returned segments cover every point of the route.
func NewDetector(classifier NameClassifier) gpx.SurfaceDetector {
	return &detector{classifier: classifier}
}

func (d *detector) DetectSurfaces(ctx context.Context, route gpx.MatchedRoute) (gpx.SurfaceData, error) {
	segments := []gpx.SurfaceSegment{}
	classified := make(map[string]Classification)

	start := 0
	for start < len(route.Points) {
		if err := ctx.Err(); err != nil {
			return gpx.SurfaceData{}, err
		}

		name := route.Points[start].RoadName
		end := start
		for end+1 < len(route.Points) && route.Points[end+1].RoadName == name {
			end++
		}

		c, ok := classified[name]
		if !ok {
			var err error
			c, err = d.classifier.ClassifyRoad(ctx, name)
			if err != nil {
				return gpx.SurfaceData{}, fmt.Errorf("classify %q: %w", name, err)
			}
			classified[name] = c
		}

		segments = appendRun(segments, gpx.SurfaceSegment{
			StartIndex:  start,
			EndIndex:    end,
			SurfaceType: c.SurfaceType,
			Confidence:  c.Confidence,
		})
		start = end + 1
	}

	return gpx.SurfaceData{Segments: segments}, nil
}

// appendRun merges seg into the last segment when both have the same
// surface type, weighting confidence by point count
func appendRun(segments []gpx.SurfaceSegment, seg gpx.SurfaceSegment) []gpx.SurfaceSegment {
	if n := len(segments); n > 0 && segments[n-1].SurfaceType == seg.SurfaceType {
		last := &segments[n-1]
		lastLen := float64(last.EndIndex - last.StartIndex + 1)
		segLen := float64(seg.EndIndex - seg.StartIndex + 1)
		last.Confidence = (last.Confidence*lastLen + seg.Confidence*segLen) / (lastLen + segLen)
		last.EndIndex = seg.EndIndex
		return segments
	}
	return append(segments, seg)
}
