package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// MaxPathPoints is the Roads API limit on points per snapToRoads request
const MaxPathPoints = 100

// HTTPDoer is the subset of *http.Client the client needs
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client provides access to the Google Roads API and the Places API (New),
// which resolves snapped place IDs to road names.
type Client struct {
	apiKey     string
	httpClient HTTPDoer
	roadsURL   string
	placesURL  string
}

// LatLng is a WGS84 coordinate as the Google APIs encode it
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// SnappedPoint is one point of a snapToRoads response. OriginalIndex is nil
// for points the API interpolated.
type SnappedPoint struct {
	Location      LatLng `json:"location"`
	OriginalIndex *int   `json:"originalIndex,omitempty"`
	PlaceID       string `json:"placeId"`
}

// NewClient creates a new Google Roads API client
func NewClient(apiKey string) *Client {
	return NewClientWithHTTPDoer(apiKey, "https://roads.googleapis.com", "https://places.googleapis.com", &http.Client{
		Timeout: 30 * time.Second,
	})
}

// NewClientWithHTTPDoer creates a client against the given base URLs, for tests
func NewClientWithHTTPDoer(apiKey, roadsURL, placesURL string, doer HTTPDoer) *Client {
	return &Client{
		apiKey:     apiKey,
		httpClient: doer,
		roadsURL:   strings.TrimRight(roadsURL, "/"),
		placesURL:  strings.TrimRight(placesURL, "/"),
	}
}

// SnapToRoads snaps up to MaxPathPoints points to the most likely roads
// travelled. Interpolation is disabled so every snapped point maps back to an
// input point.
func (c *Client) SnapToRoads(ctx context.Context, path []LatLng) ([]SnappedPoint, error) {
	if len(path) == 0 {
		return nil, errors.New("path must contain at least one point")
	}
	if len(path) > MaxPathPoints {
		return nil, fmt.Errorf("path has %d points, limit is %d", len(path), MaxPathPoints)
	}

	pairs := make([]string, len(path))
	for i, p := range path {
		pairs[i] = strconv.FormatFloat(p.Latitude, 'f', 6, 64) + "," + strconv.FormatFloat(p.Longitude, 'f', 6, 64)
	}

	query := url.Values{}
	query.Set("path", strings.Join(pairs, "|"))
	query.Set("interpolate", "false")
	query.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.roadsURL+"/v1/snapToRoads?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var response SnapToRoadsResponse
	if err := c.do(req, &response); err != nil {
		return nil, err
	}

	for i, sp := range response.SnappedPoints {
		if sp.OriginalIndex != nil && (*sp.OriginalIndex < 0 || *sp.OriginalIndex >= len(path)) {
			return nil, fmt.Errorf("snapped point %d has original index %d outside path", i, *sp.OriginalIndex)
		}
	}
	return response.SnappedPoints, nil
}

// PlaceName returns the display name of a place, which for snapped road
// segments is the road name
func (c *Client) PlaceName(ctx context.Context, placeID string) (string, error) {
	if placeID == "" {
		return "", errors.New("place ID is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.placesURL+"/v1/places/"+url.PathEscape(placeID), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	// Field mask is required by the Places API (New)
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", "displayName")

	var place PlaceResponse
	if err := c.do(req, &place); err != nil {
		return "", err
	}
	return strings.TrimSpace(place.DisplayName.Text), nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		var apiErr ErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("API error %d %s: %s", resp.StatusCode, apiErr.Error.Status, apiErr.Error.Message)
		}
		return fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// ErrRateLimited is returned when Google responds with 429
var ErrRateLimited = errors.New("rate limit exceeded")

// SnapToRoadsResponse represents the snapToRoads response structure
type SnapToRoadsResponse struct {
	SnappedPoints  []SnappedPoint `json:"snappedPoints"`
	WarningMessage string         `json:"warningMessage,omitempty"`
}

// PlaceResponse is a Place Details response restricted to displayName
type PlaceResponse struct {
	DisplayName struct {
		Text         string `json:"text"`
		LanguageCode string `json:"languageCode"`
	} `json:"displayName"`
}

// ErrorResponse is the error envelope shared by Google APIs
type ErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}
