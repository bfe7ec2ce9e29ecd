package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dpup/prefab/logging"

	"github.com/tastrails/trails/server/internal/lib/export"
	"github.com/tastrails/trails/server/internal/lib/gpx"
	"github.com/tastrails/trails/server/internal/store"
)

// Multipart framing allowance on top of the file size limit
const multipartOverhead = 1 << 20

// HandleUpload serves POST /api/gpx/upload. The GPX file is read from the
// "file" multipart field; the response is {"routeId": "..."}.
func (s *TrackService) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := logging.EnsureLogger(r.Context())

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, string(Unknown), "Method not allowed", "")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes+multipartOverhead)
	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeUploadError(ctx, w, fileSizeError(s.config.MaxUploadBytes))
			return
		}
		writeError(w, http.StatusBadRequest, string(Unknown), `Expected a multipart "file" field`, "")
		return
	}
	defer file.Close()

	// Read one byte past the limit so oversize files are detected
	data, err := io.ReadAll(io.LimitReader(file, s.config.MaxUploadBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, string(Unknown), "Failed to read upload", "")
		return
	}

	track, err := s.ProcessUpload(ctx, header.Filename, data)
	if err != nil {
		s.writeUploadError(ctx, w, uploadErrorFrom(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"routeId": track.ID})
}

// HandleRoutes serves the route collection and its sub-resources:
//
//	GET /api/routes
//	GET /api/routes/{id}
//	GET /api/routes/{id}/geojson
//	GET /api/routes/{id}/kml
//	GET /api/routes/{id}/layers
func (s *TrackService) HandleRoutes(w http.ResponseWriter, r *http.Request) {
	ctx := logging.EnsureLogger(r.Context())

	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, http.StatusMethodNotAllowed, string(Unknown), "Method not allowed", "")
		return
	}

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/routes"), "/")
	if rest == "" {
		summaries, err := s.ListRoutes(ctx)
		if err != nil {
			logging.Errorw(ctx, "Failed to list routes", "error", err)
			writeError(w, http.StatusInternalServerError, string(Unknown), "Failed to list routes", "")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"routes": summaries})
		return
	}

	parts := strings.Split(rest, "/")
	if len(parts) > 2 {
		http.NotFound(w, r)
		return
	}

	track, err := s.GetRoute(ctx, parts[0])
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("Route %s not found", parts[0]), "")
		return
	}
	if err != nil {
		logging.Errorw(ctx, "Failed to load route", "route_id", parts[0], "error", err)
		writeError(w, http.StatusInternalServerError, string(Unknown), "Failed to load route", "")
		return
	}

	view := ""
	if len(parts) == 2 {
		view = parts[1]
	}

	switch view {
	case "":
		writeJSON(w, http.StatusOK, track)
	case "geojson":
		w.Header().Set("Content-Type", "application/geo+json")
		if err := json.NewEncoder(w).Encode(export.FeatureCollection(track.Export())); err != nil {
			logging.Errorw(ctx, "Failed to write GeoJSON", "route_id", track.ID, "error", err)
		}
	case "kml":
		var buf bytes.Buffer
		if err := export.WriteKML(&buf, track.Export()); err != nil {
			logging.Errorw(ctx, "Failed to render KML", "route_id", track.ID, "error", err)
			writeError(w, http.StatusInternalServerError, string(Unknown), "Failed to render KML", "")
			return
		}
		w.Header().Set("Content-Type", "application/vnd.google-earth.kml+xml")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", track.ID+".kml"))
		if _, err := w.Write(buf.Bytes()); err != nil {
			logging.Errorw(ctx, "Failed to write KML", "route_id", track.ID, "error", err)
		}
	case "layers":
		writeJSON(w, http.StatusOK, export.RouteLayers(track.Export()))
	default:
		http.NotFound(w, r)
	}
}

// MapDefaultsHandler serves GET /api/map/defaults
func MapDefaultsHandler(state export.MapState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, state)
	}
}

func (s *TrackService) writeUploadError(ctx context.Context, w http.ResponseWriter, ue *UploadError) {
	if ue.Code == Unknown {
		logging.Errorw(ctx, "Upload failed", "error", ue)
	}
	writeError(w, ue.HTTPStatus(), string(ue.Code), ue.Message, string(gpx.CodeOf(ue)))
}

// errorBody is the JSON error envelope; Stage names the failing pipeline stage
type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Stage   string `json:"stage,omitempty"`
	} `json:"error"`
}

func writeError(w http.ResponseWriter, status int, code, message, stage string) {
	var body errorBody
	body.Error.Code = code
	body.Error.Message = message
	body.Error.Stage = stage
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
