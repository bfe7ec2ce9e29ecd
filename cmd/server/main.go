package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"

	"github.com/dpup/prefab"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/tastrails/trails/server/internal/cache"
	"github.com/tastrails/trails/server/internal/clients/google"
	"github.com/tastrails/trails/server/internal/config"
	"github.com/tastrails/trails/server/internal/lib/gpx"
	"github.com/tastrails/trails/server/internal/lib/routing"
	"github.com/tastrails/trails/server/internal/lib/surface"
	"github.com/tastrails/trails/server/internal/services"
	"github.com/tastrails/trails/server/internal/store"
)

func main() {
	// Load configuration using Prefab's config system
	appConfig := loadConfig()

	cacheInstance := cache.NewCache()
	cacheInstance.StartPeriodicCleanup(context.Background(), appConfig.Tracks.CleanupInterval)

	routeStore, err := store.Open(appConfig.Storage.Path)
	if err != nil {
		log.Fatalf("Failed to open route store %s: %v", appConfig.Storage.Path, err)
	}

	processor := gpx.NewProcessor(
		gpx.WithRoadMatcher(newRoadMatcher(appConfig.Matching, cacheInstance)),
		gpx.WithSurfaceDetector(newSurfaceDetector(appConfig.Surfaces, cacheInstance)),
		gpx.WithStageTimeout(appConfig.Tracks.StageTimeout),
	)
	trackService := services.NewTrackService(processor, routeStore, cacheInstance, &appConfig.Tracks)

	log.Printf("Trails API server starting")
	log.Printf("Road matching: %s, surface detection: %s", appConfig.Matching.Provider, appConfig.Surfaces.Provider)
	log.Printf("Route store: %s", appConfig.Storage.Path)

	// Server configuration (port, etc.) is loaded from prefab.yaml/env vars
	server := prefab.New(
		prefab.WithGRPCReflection(),
		prefab.WithHTTPHandlerFunc("/api/gpx/upload", trackService.HandleUpload),
		prefab.WithHTTPHandlerFunc("/api/routes", trackService.HandleRoutes),
		prefab.WithHTTPHandlerFunc("/api/routes/", trackService.HandleRoutes),
		prefab.WithHTTPHandlerFunc("/api/map/defaults", services.MapDefaultsHandler(appConfig.Map.ToMapState())),
		prefab.WithHTTPHandlerFunc("/", homepageHandler),
	)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server.ServiceRegistrar(), healthServer)

	// Start the server (blocks until shutdown)
	err = server.Start()
	if closeErr := routeStore.Close(); closeErr != nil {
		log.Printf("Failed to close route store: %v", closeErr)
	}
	if err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// loadConfig loads configuration using Prefab's config system
// Configuration is loaded from prefab.yaml and environment variables with PF__ prefix
func loadConfig() *config.Config {
	appConfig := config.DefaultConfig()

	sections := map[string]interface{}{
		"tracks":   &appConfig.Tracks,
		"matching": &appConfig.Matching,
		"surfaces": &appConfig.Surfaces,
		"storage":  &appConfig.Storage,
		"map":      &appConfig.Map,
	}
	for key, section := range sections {
		if err := prefab.Config.Unmarshal(key, section); err != nil {
			log.Fatalf("Failed to unmarshal %s section: %v", key, err)
		}
	}

	if err := appConfig.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	return appConfig
}

func newRoadMatcher(cfg config.MatchingConfig, c *cache.Cache) gpx.RoadMatcher {
	switch routing.Provider(cfg.Provider) {
	case routing.Geodesic:
		return routing.NewGeodesicMatcher()
	case routing.GoogleRoads:
		snapper := routing.NewCachedSnapper(google.NewClient(cfg.GoogleRoads.APIKey), c, cfg.CacheTTL)
		return routing.NewSnapMatcher(snapper)
	}
	return gpx.NewPassThroughMatcher()
}

func newSurfaceDetector(cfg config.SurfacesConfig, c *cache.Cache) gpx.SurfaceDetector {
	switch surface.Provider(cfg.Provider) {
	case surface.Keywords:
		return surface.NewDetector(surface.NewKeywordClassifier())
	case surface.OpenAI:
		classifier := surface.NewOpenAIClassifier(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
		log.Printf("OpenAI surface classification enabled with content-based caching (model: %s)", cfg.OpenAI.Model)
		return surface.NewDetector(surface.NewCachedClassifier(classifier, c, cfg.CacheTTL))
	}
	return gpx.NewPassThroughDetector()
}

// homepageHandler serves a simple HTML homepage at the server root
func homepageHandler(w http.ResponseWriter, r *http.Request) {
	// Only handle the root path
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	html := `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>Tasmanian Trails API</title>
    <style>
        body {
            font-family: 'Courier New', Consolas, monospace;
            background: #0b1d13;
            color: #9fdc9f;
            padding: 20px;
            line-height: 1.4;
        }
        a { color: #7fd6ff; text-decoration: none; }
        a:hover { text-decoration: underline; }
        pre { margin: 0; }
        .header { color: #f2d06b; }
    </style>
</head>
<body>
<pre>
<span class="header">Tasmanian Trails API</span>

Upload GPX tracks and get back a road-matched route with surface
and elevation analysis.

<span class="header">API Endpoints:</span>

Uploads:
  POST /api/gpx/upload                       - Upload a GPX file (multipart field "file")

Routes:
  <a href="/api/routes">GET /api/routes</a>                            - Recently processed routes
  GET /api/routes/{id}                       - Processed route
  GET /api/routes/{id}/geojson               - Route as GeoJSON
  GET /api/routes/{id}/kml                   - Route as KML
  GET /api/routes/{id}/layers                - Map layers for the route

Map:
  <a href="/api/map/defaults">GET /api/map/defaults</a>                      - Initial map view

<span class="header">Example Usage:</span>
  curl -F file=@overland-track.gpx http://localhost:8000/api/gpx/upload
</pre>
</body>
</html>`

	if _, err := fmt.Fprint(w, html); err != nil {
		slog.Error("Failed to write homepage HTML", "error", err)
	}
}
