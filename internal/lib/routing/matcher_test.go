package routing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tastrails/trails/server/internal/cache"
	"github.com/tastrails/trails/server/internal/clients/google"
	"github.com/tastrails/trails/server/internal/lib/gpx"
)

// MockRoadSnapper is a mock implementation of RoadSnapper
type MockRoadSnapper struct {
	mock.Mock
}

func (m *MockRoadSnapper) SnapToRoads(ctx context.Context, path []google.LatLng) ([]google.SnappedPoint, error) {
	args := m.Called(ctx, path)
	if fn, ok := args.Get(0).(func(context.Context, []google.LatLng) []google.SnappedPoint); ok {
		return fn(ctx, path), args.Error(1)
	}
	snapped, _ := args.Get(0).([]google.SnappedPoint)
	return snapped, args.Error(1)
}

func (m *MockRoadSnapper) PlaceName(ctx context.Context, placeID string) (string, error) {
	args := m.Called(ctx, placeID)
	return args.String(0), args.Error(1)
}

func intPtr(v int) *int {
	return &v
}

func floatPtr(v float64) *float64 {
	return &v
}

// Along the Tasman Highway out of St Helens
func tasmanHighway() []gpx.Point {
	return []gpx.Point{
		{Latitude: -41.3210, Longitude: 148.2480, Elevation: floatPtr(8)},
		{Latitude: -41.3240, Longitude: 148.2420, Elevation: floatPtr(15)},
		{Latitude: -41.3275, Longitude: 148.2360, Elevation: floatPtr(22)},
		{Latitude: -41.3301, Longitude: 148.2290, Elevation: floatPtr(40)},
	}
}

func TestGeodesicMatcher(t *testing.T) {
	points := []gpx.Point{
		{Latitude: 0, Longitude: 0},
		{Latitude: 0, Longitude: 1},
		{Latitude: 0, Longitude: 2},
	}

	route, err := NewGeodesicMatcher().MatchToRoads(context.Background(), points)
	require.NoError(t, err)
	require.Len(t, route.Points, 3)

	assert.Equal(t, 0.0, route.Points[0].DistanceFromPrevious)
	assert.InDelta(t, 111195, route.Points[1].DistanceFromPrevious, 10)
	assert.InDelta(t, 111195, route.Points[2].DistanceFromPrevious, 10)
	assert.InDelta(t, 222390, route.TotalDistance, 20)
	for i, mp := range route.Points {
		assert.Equal(t, i, mp.OriginalIndex)
		assert.Equal(t, gpx.UnknownRoad, mp.RoadName)
	}
	assert.Equal(t, points, route.OriginalPoints)
}

func TestGeodesicMatcher_Empty(t *testing.T) {
	route, err := NewGeodesicMatcher().MatchToRoads(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, route.Points)
	assert.Equal(t, 0.0, route.TotalDistance)
}

func TestSnapMatcher_SnapsAndNamesRoads(t *testing.T) {
	points := tasmanHighway()
	snapper := &MockRoadSnapper{}
	snapper.On("SnapToRoads", mock.Anything, mock.MatchedBy(func(path []google.LatLng) bool {
		return len(path) == 4 && path[0].Latitude == -41.3210
	})).Return([]google.SnappedPoint{
		{Location: google.LatLng{Latitude: -41.32105, Longitude: 148.24805}, OriginalIndex: intPtr(0), PlaceID: "tasman"},
		{Location: google.LatLng{Latitude: -41.32410, Longitude: 148.24210}, OriginalIndex: intPtr(1), PlaceID: "tasman"},
		{Location: google.LatLng{Latitude: -41.32600, Longitude: 148.23900}}, // interpolated
		{Location: google.LatLng{Latitude: -41.33015, Longitude: 148.22905}, OriginalIndex: intPtr(3), PlaceID: "argonaut"},
	}, nil).Once()
	snapper.On("PlaceName", mock.Anything, "tasman").Return("Tasman Highway", nil).Once()
	snapper.On("PlaceName", mock.Anything, "argonaut").Return("Argonaut Road", nil).Once()

	route, err := NewSnapMatcher(snapper).MatchToRoads(context.Background(), points)
	require.NoError(t, err)
	require.Len(t, route.Points, 3, "point 2 was not snapped")

	assert.Equal(t, []int{0, 1, 3}, []int{route.Points[0].OriginalIndex, route.Points[1].OriginalIndex, route.Points[2].OriginalIndex})
	assert.Equal(t, "Tasman Highway", route.Points[0].RoadName)
	assert.Equal(t, "Tasman Highway", route.Points[1].RoadName)
	assert.Equal(t, "Argonaut Road", route.Points[2].RoadName)

	assert.Equal(t, -41.32105, route.Points[0].Latitude, "location is the snapped one")
	require.NotNil(t, route.Points[2].Elevation)
	assert.Equal(t, 40.0, *route.Points[2].Elevation, "elevation carried from the source point")

	assert.Equal(t, 0.0, route.Points[0].DistanceFromPrevious)
	sum := 0.0
	for _, mp := range route.Points {
		assert.GreaterOrEqual(t, mp.DistanceFromPrevious, 0.0)
		sum += mp.DistanceFromPrevious
	}
	assert.Greater(t, sum, 0.0)
	assert.InDelta(t, sum, route.TotalDistance, 1e-9)
	assert.Equal(t, points, route.OriginalPoints)

	snapper.AssertExpectations(t)
}

func TestSnapMatcher_ChunksLongTracks(t *testing.T) {
	var points []gpx.Point
	for i := 0; i < 250; i++ {
		points = append(points, gpx.Point{Latitude: -42.0 + float64(i)*0.0005, Longitude: 146.5})
	}

	echo := func(n int) []google.SnappedPoint {
		out := make([]google.SnappedPoint, n)
		for i := range out {
			out[i] = google.SnappedPoint{OriginalIndex: intPtr(i), Location: google.LatLng{Latitude: -41.9, Longitude: 146.5}}
		}
		return out
	}

	snapper := &MockRoadSnapper{}
	snapper.On("SnapToRoads", mock.Anything, mock.MatchedBy(func(path []google.LatLng) bool {
		return len(path) == google.MaxPathPoints
	})).Return(echo(google.MaxPathPoints), nil).Twice()
	snapper.On("SnapToRoads", mock.Anything, mock.MatchedBy(func(path []google.LatLng) bool {
		return len(path) == 50
	})).Return(echo(50), nil).Once()

	route, err := NewSnapMatcher(snapper).MatchToRoads(context.Background(), points)
	require.NoError(t, err)
	require.Len(t, route.Points, 250)
	for i, mp := range route.Points {
		assert.Equal(t, i, mp.OriginalIndex)
		assert.Equal(t, gpx.UnknownRoad, mp.RoadName, "no place ID means no road name")
	}
	snapper.AssertExpectations(t)
	snapper.AssertNotCalled(t, "PlaceName", mock.Anything, mock.Anything)
}

func TestSnapMatcher_Errors(t *testing.T) {
	t.Run("snap failure", func(t *testing.T) {
		snapper := &MockRoadSnapper{}
		snapper.On("SnapToRoads", mock.Anything, mock.Anything).Return(nil, google.ErrRateLimited)

		_, err := NewSnapMatcher(snapper).MatchToRoads(context.Background(), tasmanHighway())
		require.Error(t, err)
		assert.True(t, errors.Is(err, google.ErrRateLimited))
	})

	t.Run("place lookup failure", func(t *testing.T) {
		snapper := &MockRoadSnapper{}
		snapper.On("SnapToRoads", mock.Anything, mock.Anything).Return([]google.SnappedPoint{
			{Location: google.LatLng{Latitude: -41.3, Longitude: 148.2}, OriginalIndex: intPtr(0), PlaceID: "gone"},
		}, nil)
		snapper.On("PlaceName", mock.Anything, "gone").Return("", errors.New("NOT_FOUND"))

		_, err := NewSnapMatcher(snapper).MatchToRoads(context.Background(), tasmanHighway())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "NOT_FOUND")
	})

	t.Run("index outside chunk", func(t *testing.T) {
		snapper := &MockRoadSnapper{}
		snapper.On("SnapToRoads", mock.Anything, mock.Anything).Return([]google.SnappedPoint{
			{Location: google.LatLng{Latitude: -41.3, Longitude: 148.2}, OriginalIndex: intPtr(9)},
		}, nil)

		_, err := NewSnapMatcher(snapper).MatchToRoads(context.Background(), tasmanHighway())
		assert.Error(t, err)
	})
}

func TestSnapMatcher_SatisfiesProcessorContract(t *testing.T) {
	snapper := &MockRoadSnapper{}
	snapper.On("SnapToRoads", mock.Anything, mock.Anything).Return([]google.SnappedPoint{
		{Location: google.LatLng{Latitude: -41.3210, Longitude: 148.2480}, OriginalIndex: intPtr(0), PlaceID: "tasman"},
		{Location: google.LatLng{Latitude: -41.3301, Longitude: 148.2290}, OriginalIndex: intPtr(1), PlaceID: "tasman"},
	}, nil)
	snapper.On("PlaceName", mock.Anything, "tasman").Return("Tasman Highway", nil)

	p := gpx.NewProcessor(gpx.WithRoadMatcher(NewSnapMatcher(snapper)))
	route, err := p.MatchSimplified(context.Background(), tasmanHighway())
	require.NoError(t, err)
	require.NotEmpty(t, route.Points)
	assert.Len(t, route.OriginalPoints, 4)
	assert.Equal(t, 0, route.Points[0].OriginalIndex)
}

// snapAllToPlace snaps every input point in place onto a single place ID
func snapAllToPlace(snapper *MockRoadSnapper, placeID string) {
	snapper.On("SnapToRoads", mock.Anything, mock.Anything).Return(func(ctx context.Context, path []google.LatLng) []google.SnappedPoint {
		out := make([]google.SnappedPoint, len(path))
		for i, p := range path {
			out[i] = google.SnappedPoint{Location: p, OriginalIndex: intPtr(i), PlaceID: placeID}
		}
		return out
	}, nil)
}

func TestSnapMatcher_NamesResolvedPerCall(t *testing.T) {
	snapper := &MockRoadSnapper{}
	snapAllToPlace(snapper, "lyell")
	snapper.On("PlaceName", mock.Anything, "lyell").Return("Old Name", nil).Once()
	snapper.On("PlaceName", mock.Anything, "lyell").Return("New Name", nil).Once()

	matcher := NewSnapMatcher(snapper)

	first, err := matcher.MatchToRoads(context.Background(), tasmanHighway())
	require.NoError(t, err)
	for _, mp := range first.Points {
		assert.Equal(t, "Old Name", mp.RoadName)
	}

	second, err := matcher.MatchToRoads(context.Background(), tasmanHighway())
	require.NoError(t, err)
	for _, mp := range second.Points {
		assert.Equal(t, "New Name", mp.RoadName, "a renamed place is picked up by the next match")
	}

	snapper.AssertNumberOfCalls(t, "PlaceName", 2)
}

func TestCachedSnapper(t *testing.T) {
	snapper := &MockRoadSnapper{}
	snapAllToPlace(snapper, "lyell")
	snapper.On("PlaceName", mock.Anything, "lyell").Return("Lyell Highway", nil).Once()

	placeCache := cache.NewCache()
	matcher := NewSnapMatcher(NewCachedSnapper(snapper, placeCache, time.Hour))

	for i := 0; i < 2; i++ {
		route, err := matcher.MatchToRoads(context.Background(), tasmanHighway())
		require.NoError(t, err)
		assert.Equal(t, "Lyell Highway", route.Points[0].RoadName)
	}

	snapper.AssertNumberOfCalls(t, "PlaceName", 1)
	snapper.AssertNumberOfCalls(t, "SnapToRoads", 2)

	var cached string
	found, err := placeCache.GetPlaceName("lyell", &cached)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Lyell Highway", cached)
}

func TestCachedSnapper_ExpiredNamesAreRefetched(t *testing.T) {
	snapper := &MockRoadSnapper{}
	snapper.On("PlaceName", mock.Anything, "lyell").Return("Lyell Hwy", nil).Once()
	snapper.On("PlaceName", mock.Anything, "lyell").Return("Lyell Highway", nil).Once()

	cached := NewCachedSnapper(snapper, cache.NewCache(), time.Millisecond)

	name, err := cached.PlaceName(context.Background(), "lyell")
	require.NoError(t, err)
	assert.Equal(t, "Lyell Hwy", name)

	time.Sleep(5 * time.Millisecond)

	name, err = cached.PlaceName(context.Background(), "lyell")
	require.NoError(t, err)
	assert.Equal(t, "Lyell Highway", name)
}

func TestCachedSnapper_ErrorsAreNotCached(t *testing.T) {
	snapper := &MockRoadSnapper{}
	snapper.On("PlaceName", mock.Anything, "gone").Return("", errors.New("NOT_FOUND")).Once()
	snapper.On("PlaceName", mock.Anything, "gone").Return("Gordon River Road", nil).Once()

	cached := NewCachedSnapper(snapper, cache.NewCache(), time.Hour)

	_, err := cached.PlaceName(context.Background(), "gone")
	require.Error(t, err)

	name, err := cached.PlaceName(context.Background(), "gone")
	require.NoError(t, err)
	assert.Equal(t, "Gordon River Road", name)
}
