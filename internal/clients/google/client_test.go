package google

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockHTTPDoer is a mock implementation of HTTPDoer
type MockHTTPDoer struct {
	mock.Mock
}

func (m *MockHTTPDoer) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	resp, _ := args.Get(0).(*http.Response)
	return resp, args.Error(1)
}

// Helper function to load test fixture data
func loadTestFixture(t *testing.T, filename string) string {
	data, err := os.ReadFile("testdata/" + filename)
	require.NoError(t, err, "Failed to load test fixture %s", filename)
	return string(data)
}

// Helper function to create mock HTTP response
func createMockResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func newTestClient(doer HTTPDoer) *Client {
	return NewClientWithHTTPDoer("test-api-key", "https://roads.example.test", "https://places.example.test/", doer)
}

var lyellHighwayPath = []LatLng{
	{Latitude: -42.830110, Longitude: 147.055080},
	{Latitude: -42.824300, Longitude: 147.040200},
	{Latitude: -42.819000, Longitude: 147.030000},
	{Latitude: -42.814000, Longitude: 147.019900},
}

func TestSnapToRoads_Success(t *testing.T) {
	mockHTTP := &MockHTTPDoer{}
	mockHTTP.On("Do", mock.MatchedBy(func(req *http.Request) bool {
		q := req.URL.Query()
		return req.Method == http.MethodGet &&
			req.URL.Host == "roads.example.test" &&
			req.URL.Path == "/v1/snapToRoads" &&
			q.Get("interpolate") == "false" &&
			q.Get("key") == "test-api-key" &&
			strings.HasPrefix(q.Get("path"), "-42.830110,147.055080|") &&
			strings.Count(q.Get("path"), "|") == 3
	})).Return(createMockResponse(200, loadTestFixture(t, "snap_lyell_highway.json")), nil)

	client := newTestClient(mockHTTP)
	snapped, err := client.SnapToRoads(context.Background(), lyellHighwayPath)

	require.NoError(t, err)
	require.Len(t, snapped, 3)
	require.NotNil(t, snapped[2].OriginalIndex)
	assert.Equal(t, 3, *snapped[2].OriginalIndex, "point 2 was dropped by the API")
	assert.Equal(t, "ChIJGlenoraRdBushy02", snapped[2].PlaceID)
	assert.InDelta(t, -42.8301251, snapped[0].Location.Latitude, 1e-9)
	mockHTTP.AssertExpectations(t)
}

func TestSnapToRoads_PathLimits(t *testing.T) {
	client := newTestClient(&MockHTTPDoer{})

	_, err := client.SnapToRoads(context.Background(), nil)
	assert.Error(t, err)

	_, err = client.SnapToRoads(context.Background(), make([]LatLng, MaxPathPoints+1))
	assert.Error(t, err)
}

func TestSnapToRoads_RejectsOutOfRangeIndex(t *testing.T) {
	body := `{"snappedPoints":[{"location":{"latitude":-42.8,"longitude":147.0},"originalIndex":7,"placeId":"x"}]}`
	mockHTTP := &MockHTTPDoer{}
	mockHTTP.On("Do", mock.Anything).Return(createMockResponse(200, body), nil)

	_, err := newTestClient(mockHTTP).SnapToRoads(context.Background(), lyellHighwayPath)
	assert.Error(t, err)
}

func TestSnapToRoads_APIErrors(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		contains   string
	}{
		{"rate limited", 429, "", "rate limit"},
		{"invalid argument", 400, `{"error":{"code":400,"message":"Invalid path","status":"INVALID_ARGUMENT"}}`, "INVALID_ARGUMENT: Invalid path"},
		{"plain server error", 503, "upstream unavailable", "API error 503: upstream unavailable"},
		{"bad json", 200, "{not json", "failed to decode response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockHTTP := &MockHTTPDoer{}
			mockHTTP.On("Do", mock.Anything).Return(createMockResponse(tt.statusCode, tt.body), nil)

			_, err := newTestClient(mockHTTP).SnapToRoads(context.Background(), lyellHighwayPath)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestSnapToRoads_TransportError(t *testing.T) {
	mockHTTP := &MockHTTPDoer{}
	mockHTTP.On("Do", mock.Anything).Return(nil, errors.New("connection reset"))

	_, err := newTestClient(mockHTTP).SnapToRoads(context.Background(), lyellHighwayPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestPlaceName_Success(t *testing.T) {
	mockHTTP := &MockHTTPDoer{}
	mockHTTP.On("Do", mock.MatchedBy(func(req *http.Request) bool {
		return req.URL.String() == "https://places.example.test/v1/places/ChIJLyellHwyNewNorfolk01" &&
			req.Header.Get("X-Goog-Api-Key") == "test-api-key" &&
			req.Header.Get("X-Goog-FieldMask") == "displayName"
	})).Return(createMockResponse(200, `{"displayName":{"text":"Lyell Highway","languageCode":"en"}}`), nil)

	name, err := newTestClient(mockHTTP).PlaceName(context.Background(), "ChIJLyellHwyNewNorfolk01")
	require.NoError(t, err)
	assert.Equal(t, "Lyell Highway", name)
	mockHTTP.AssertExpectations(t)
}

func TestPlaceName_Errors(t *testing.T) {
	_, err := newTestClient(&MockHTTPDoer{}).PlaceName(context.Background(), "")
	assert.Error(t, err)

	mockHTTP := &MockHTTPDoer{}
	mockHTTP.On("Do", mock.Anything).Return(createMockResponse(404, `{"error":{"code":404,"message":"Place not found","status":"NOT_FOUND"}}`), nil)
	_, err = newTestClient(mockHTTP).PlaceName(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOT_FOUND")
}
