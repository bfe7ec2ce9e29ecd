package routing

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/tastrails/trails/server/internal/clients/google"
	"github.com/tastrails/trails/server/internal/lib/geo"
	"github.com/tastrails/trails/server/internal/lib/gpx"
)

// snapMatcher implements gpx.RoadMatcher on top of a RoadSnapper
type snapMatcher struct {
	snapper     RoadSnapper
	geoUtils    geo.GeoUtils
	chunkSize   int
	concurrency int
}

// NewSnapMatcher creates a RoadMatcher that snaps points to roads. Inputs are
// snapped in chunks of google.MaxPathPoints; points the snapper drops are
// dropped from the route. Each place ID is looked up once per call; wrap the
// snapper with NewCachedSnapper to share names across calls.
func NewSnapMatcher(snapper RoadSnapper) gpx.RoadMatcher {
	return &snapMatcher{
		snapper:     snapper,
		geoUtils:    geo.NewGeoUtils(),
		chunkSize:   google.MaxPathPoints,
		concurrency: 4,
	}
}

// snapResult is one input point's snapped position
type snapResult struct {
	index    int
	location google.LatLng
	placeID  string
}

func (m *snapMatcher) MatchToRoads(ctx context.Context, points []gpx.Point) (gpx.MatchedRoute, error) {
	if err := ctx.Err(); err != nil {
		return gpx.MatchedRoute{}, err
	}

	chunks := (len(points) + m.chunkSize - 1) / m.chunkSize
	results := make([][]snapResult, chunks)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for c := 0; c < chunks; c++ {
		start := c * m.chunkSize
		end := min(start+m.chunkSize, len(points))
		g.Go(func() error {
			snapped, err := m.snapChunk(gctx, points[start:end], start)
			if err != nil {
				return fmt.Errorf("chunk %d-%d: %w", start, end-1, err)
			}
			results[c] = snapped
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return gpx.MatchedRoute{}, err
	}

	route := gpx.MatchedRoute{
		Points:         make([]gpx.MatchedPoint, 0, len(points)),
		OriginalPoints: make([]gpx.Point, len(points)),
	}
	for i, p := range points {
		route.OriginalPoints[i] = p.Clone()
	}

	names := make(map[string]string)
	prev := -1
	for _, chunk := range results {
		for _, r := range chunk {
			// Snapped points must advance along the input
			if r.index <= prev {
				continue
			}
			prev = r.index

			name, err := m.roadName(ctx, names, r.placeID)
			if err != nil {
				return gpx.MatchedRoute{}, err
			}

			p := points[r.index].Clone()
			p.Latitude = r.location.Latitude
			p.Longitude = r.location.Longitude

			step := 0.0
			if n := len(route.Points); n > 0 {
				d, err := m.geoUtils.PointToPoint(route.Points[n-1].Geo(), p.Geo())
				if err != nil {
					return gpx.MatchedRoute{}, err
				}
				step = d
			}

			route.Points = append(route.Points, gpx.MatchedPoint{
				Point:                p,
				OriginalIndex:        r.index,
				RoadName:             name,
				DistanceFromPrevious: step,
			})
			route.TotalDistance += step
		}
	}

	return route, nil
}

func (m *snapMatcher) snapChunk(ctx context.Context, points []gpx.Point, offset int) ([]snapResult, error) {
	path := make([]google.LatLng, len(points))
	for i, p := range points {
		path[i] = google.LatLng{Latitude: p.Latitude, Longitude: p.Longitude}
	}

	snapped, err := m.snapper.SnapToRoads(ctx, path)
	if err != nil {
		return nil, err
	}

	out := make([]snapResult, 0, len(snapped))
	for _, sp := range snapped {
		if sp.OriginalIndex == nil {
			continue // interpolated
		}
		idx := *sp.OriginalIndex
		if idx < 0 || idx >= len(points) {
			return nil, fmt.Errorf("snapped index %d outside chunk of %d", idx, len(points))
		}
		if !geo.IsValidCoordinate(geo.Point{Latitude: sp.Location.Latitude, Longitude: sp.Location.Longitude}) {
			return nil, fmt.Errorf("snapped location out of range for point %d", offset+idx)
		}
		out = append(out, snapResult{index: offset + idx, location: sp.Location, placeID: sp.PlaceID})
	}
	return out, nil
}

// roadName resolves a place ID, consulting names first
func (m *snapMatcher) roadName(ctx context.Context, names map[string]string, placeID string) (string, error) {
	if placeID == "" {
		return gpx.UnknownRoad, nil
	}
	if name, ok := names[placeID]; ok {
		return name, nil
	}

	name, err := m.snapper.PlaceName(ctx, placeID)
	if err != nil {
		return "", fmt.Errorf("road name for place %s: %w", placeID, err)
	}
	if name == "" {
		name = gpx.UnknownRoad
	}
	names[placeID] = name
	return name, nil
}
