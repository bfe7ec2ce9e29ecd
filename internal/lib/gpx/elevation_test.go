package gpx

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func matchedRoute(elevations []*float64, steps []float64) MatchedRoute {
	route := MatchedRoute{}
	for i := range elevations {
		p := Point{Latitude: -41.5 + float64(i)*0.001, Longitude: 146.5, Elevation: elevations[i]}
		route.Points = append(route.Points, MatchedPoint{
			Point:                p,
			OriginalIndex:        i,
			RoadName:             UnknownRoad,
			DistanceFromPrevious: steps[i],
		})
		route.OriginalPoints = append(route.OriginalPoints, p)
		route.TotalDistance += steps[i]
	}
	return route
}

func TestProcessElevation_AscentDescentAndGrades(t *testing.T) {
	route := matchedRoute(
		[]*float64{floatPtr(100), floatPtr(150), floatPtr(120)},
		[]float64{0, 500, 300},
	)

	data, err := ProcessElevation(route)
	require.NoError(t, err)
	require.Len(t, data.Points, 3)

	stats := data.Statistics
	assert.Equal(t, 100.0, stats.MinElevation)
	assert.Equal(t, 150.0, stats.MaxElevation)
	assert.Equal(t, 50.0, stats.TotalAscent)
	assert.Equal(t, 30.0, stats.TotalDescent)
	assert.InDelta(t, 50.0/800.0*100, stats.AverageGrade, 1e-9)

	assert.Nil(t, data.Points[0].Grade, "first point has no grade")
	require.NotNil(t, data.Points[1].Grade)
	assert.InDelta(t, 10.0, *data.Points[1].Grade, 1e-9)
	require.NotNil(t, data.Points[2].Grade)
	assert.InDelta(t, -10.0, *data.Points[2].Grade, 1e-9)

	// Cumulative distance is taken before the point's own step is added
	assert.Equal(t, 0.0, data.Points[0].CumulativeDistance)
	assert.Equal(t, 0.0, data.Points[1].CumulativeDistance)
	assert.Equal(t, 500.0, data.Points[2].CumulativeDistance)
}

func TestProcessElevation_ZeroDistances(t *testing.T) {
	// The pass-through matcher reports zero distances throughout
	route := matchedRoute(
		[]*float64{floatPtr(10), floatPtr(40), floatPtr(25)},
		[]float64{0, 0, 0},
	)

	data, err := ProcessElevation(route)
	require.NoError(t, err)
	for _, p := range data.Points {
		assert.Nil(t, p.Grade)
		assert.Equal(t, 0.0, p.CumulativeDistance)
	}
	assert.Equal(t, 0.0, data.Statistics.AverageGrade)
	assert.Equal(t, 30.0, data.Statistics.TotalAscent)
	assert.Equal(t, 15.0, data.Statistics.TotalDescent)
}

func TestProcessElevation_MissingElevationIsZero(t *testing.T) {
	route := matchedRoute(
		[]*float64{floatPtr(20), nil, floatPtr(20)},
		[]float64{0, 100, 100},
	)

	data, err := ProcessElevation(route)
	require.NoError(t, err)
	assert.Equal(t, 0.0, data.Points[1].Elevation)
	assert.Equal(t, 0.0, data.Statistics.MinElevation)
	assert.Equal(t, 20.0, data.Statistics.TotalAscent)
	assert.Equal(t, 20.0, data.Statistics.TotalDescent)
}

func TestProcessElevation_Empty(t *testing.T) {
	data, err := ProcessElevation(MatchedRoute{})
	require.NoError(t, err)
	assert.Empty(t, data.Points)
	assert.Equal(t, ElevationStatistics{}, data.Statistics)
}

func TestProcessElevation_Invariants(t *testing.T) {
	route := matchedRoute(
		[]*float64{floatPtr(5), floatPtr(80), floatPtr(60), floatPtr(200), floatPtr(150)},
		[]float64{0, 120, 40, 900, 10},
	)

	data, err := ProcessElevation(route)
	require.NoError(t, err)

	stats := data.Statistics
	assert.LessOrEqual(t, stats.MinElevation, stats.MaxElevation)
	assert.GreaterOrEqual(t, stats.TotalAscent, 0.0)
	assert.GreaterOrEqual(t, stats.TotalDescent, 0.0)

	// Net change equals ascent minus descent
	first := *route.Points[0].Elevation
	last := *route.Points[len(route.Points)-1].Elevation
	assert.InDelta(t, last-first, stats.TotalAscent-stats.TotalDescent, 1e-9)

	for i := 1; i < len(data.Points); i++ {
		assert.GreaterOrEqual(t, data.Points[i].CumulativeDistance, data.Points[i-1].CumulativeDistance)
	}
}

func TestProcessElevation_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		route MatchedRoute
	}{
		{"negative step", matchedRoute([]*float64{floatPtr(1), floatPtr(2)}, []float64{0, -5})},
		{"NaN step", matchedRoute([]*float64{floatPtr(1), floatPtr(2)}, []float64{0, math.NaN()})},
		{"infinite elevation", matchedRoute([]*float64{floatPtr(1), floatPtr(math.Inf(1))}, []float64{0, 10})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ProcessElevation(tt.route)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrElevation))
			assert.Contains(t, err.Error(), "Failed to process elevation data: ")
		})
	}
}
