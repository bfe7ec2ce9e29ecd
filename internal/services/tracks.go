package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dpup/prefab/logging"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tastrails/trails/server/internal/cache"
	"github.com/tastrails/trails/server/internal/config"
	"github.com/tastrails/trails/server/internal/lib/export"
	"github.com/tastrails/trails/server/internal/lib/gpx"
	"github.com/tastrails/trails/server/internal/store"
)

// ProcessedTrack is the stored result of running an upload through the pipeline
type ProcessedTrack struct {
	ID          string            `json:"id"`
	Checksum    string            `json:"checksum"`
	Filename    string            `json:"filename"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Metadata    gpx.Metadata      `json:"metadata"`
	Route       gpx.MatchedRoute  `json:"route"`
	Surfaces    gpx.SurfaceData   `json:"surfaces"`
	Elevation   gpx.ElevationData `json:"elevation"`
	Polyline    string            `json:"polyline"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// Export converts the track for the renderers in lib/export
func (t *ProcessedTrack) Export() export.Route {
	return export.Route{
		ID:        t.ID,
		Name:      t.Name,
		Matched:   t.Route,
		Surfaces:  t.Surfaces,
		Elevation: t.Elevation,
	}
}

// RouteSummary is one entry of the route listing
type RouteSummary struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Filename      string    `json:"filename"`
	PointCount    int       `json:"pointCount"`
	TotalDistance float64   `json:"totalDistance"`
	CreatedAt     time.Time `json:"createdAt"`
}

// TrackService runs uploads through the GPX pipeline and serves the results
type TrackService struct {
	processor gpx.Processor
	store     *store.Store
	cache     *cache.Cache
	config    *config.TracksConfig
	newID     func() string
	now       func() time.Time
}

// NewTrackService creates a new TrackService
func NewTrackService(processor gpx.Processor, store *store.Store, cache *cache.Cache, config *config.TracksConfig) *TrackService {
	return &TrackService{
		processor: processor,
		store:     store,
		cache:     cache,
		config:    config,
		newID:     uuid.NewString,
		now:       time.Now,
	}
}

// ProcessUpload validates, processes and stores a GPX upload. Uploading the
// same bytes twice returns the first result. Failures are *UploadError.
func (s *TrackService) ProcessUpload(ctx context.Context, filename string, data []byte) (*ProcessedTrack, error) {
	ctx = logging.EnsureLogger(ctx)

	if err := validateUpload(filename, int64(len(data)), s.config.MaxUploadBytes, s.config.AllowedExtensions); err != nil {
		return nil, err
	}

	sum := sha256.Sum256(data)
	checksum := hex.EncodeToString(sum[:])

	if existing, err := s.findExisting(ctx, checksum); err != nil {
		return nil, uploadErrorFrom(err)
	} else if existing != nil {
		logging.Infow(ctx, "Duplicate upload, returning stored route", "route_id", existing.ID, "filename", filename)
		return existing, nil
	}

	track, err := s.runPipeline(ctx, filename, data)
	if err != nil {
		logging.Errorw(ctx, "GPX processing failed", "filename", filename, "stage", gpx.CodeOf(err), "error", err)
		return nil, uploadErrorFrom(err)
	}
	track.Checksum = checksum

	payload, err := json.Marshal(track)
	if err != nil {
		return nil, uploadErrorFrom(fmt.Errorf("failed to encode track: %w", err))
	}

	err = s.store.SaveRoute(ctx, store.Record{
		ID:            track.ID,
		Checksum:      checksum,
		Filename:      filename,
		Name:          track.Name,
		PointCount:    len(track.Route.Points),
		TotalDistance: track.Route.TotalDistance,
		Payload:       payload,
		CreatedAt:     track.CreatedAt,
	})
	if err != nil {
		// A concurrent upload of the same file may have won
		if existing, findErr := s.findExisting(ctx, checksum); findErr == nil && existing != nil {
			return existing, nil
		}
		return nil, uploadErrorFrom(err)
	}

	if err := s.cache.SetProcessedTrack(checksum, track, s.config.CacheTTL); err != nil {
		logging.Errorw(ctx, "Failed to cache processed track", "route_id", track.ID, "error", err)
	}

	logging.Infow(ctx, "Processed GPX upload",
		"route_id", track.ID,
		"filename", filename,
		"points", len(track.Route.OriginalPoints),
		"matched_points", len(track.Route.Points),
		"segments", len(track.Surfaces.Segments))
	return track, nil
}

// runPipeline parses, matches the simplified track, then detects surfaces
// and analyzes elevation concurrently
func (s *TrackService) runPipeline(ctx context.Context, filename string, data []byte) (*ProcessedTrack, error) {
	parsed, err := s.processor.ParseFile(data)
	if err != nil {
		return nil, err
	}

	route, err := s.processor.MatchSimplified(ctx, parsed.Points)
	if err != nil {
		return nil, err
	}

	var surfaces gpx.SurfaceData
	var elevation gpx.ElevationData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		surfaces, err = s.processor.DetectSurfaces(gctx, route)
		return err
	})
	g.Go(func() error {
		var err error
		elevation, err = s.processor.ProcessElevation(route)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	track := &ProcessedTrack{
		ID:        s.newID(),
		Filename:  filename,
		Name:      trackName(parsed, filename),
		Metadata:  parsed.Metadata,
		Route:     route,
		Surfaces:  surfaces,
		Elevation: elevation,
		CreatedAt: s.now().UTC(),
	}
	if parsed.Description != nil {
		track.Description = *parsed.Description
	}

	if track.Polyline, err = export.EncodedPolyline(track.Export()); err != nil {
		return nil, fmt.Errorf("failed to encode polyline: %w", err)
	}
	return track, nil
}

func (s *TrackService) findExisting(ctx context.Context, checksum string) (*ProcessedTrack, error) {
	var cached ProcessedTrack
	if found, err := s.cache.GetProcessedTrack(checksum, &cached); err == nil && found {
		return &cached, nil
	}

	record, err := s.store.FindByChecksum(ctx, checksum)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeTrack(record)
}

// GetRoute returns a stored route by ID
func (s *TrackService) GetRoute(ctx context.Context, id string) (*ProcessedTrack, error) {
	record, err := s.store.GetRoute(ctx, id)
	if err != nil {
		return nil, err
	}
	return decodeTrack(record)
}

// ListRoutes returns the most recent routes, newest first
func (s *TrackService) ListRoutes(ctx context.Context) ([]RouteSummary, error) {
	records, err := s.store.ListRoutes(ctx, s.config.ListLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list routes: %w", err)
	}

	summaries := make([]RouteSummary, len(records))
	for i, r := range records {
		summaries[i] = RouteSummary{
			ID:            r.ID,
			Name:          r.Name,
			Filename:      r.Filename,
			PointCount:    r.PointCount,
			TotalDistance: r.TotalDistance,
			CreatedAt:     r.CreatedAt,
		}
	}
	return summaries, nil
}

func decodeTrack(record store.Record) (*ProcessedTrack, error) {
	var track ProcessedTrack
	if err := json.Unmarshal(record.Payload, &track); err != nil {
		return nil, fmt.Errorf("failed to decode stored route %s: %w", record.ID, err)
	}
	return &track, nil
}

// trackName prefers the GPX track name and falls back to the file name
func trackName(parsed gpx.TrackData, filename string) string {
	if parsed.Name != nil {
		return *parsed.Name
	}
	return strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
}
