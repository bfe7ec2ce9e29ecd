package gpx

import (
	"fmt"
	"math"
)

// ProcessElevation builds the elevation profile of route in a single pass.
//
// Missing elevations count as 0. Each point's CumulativeDistance excludes its
// own DistanceFromPrevious. AverageGrade is the elevation range over the
// accumulated distance, not a mean of the per-point grades.
func ProcessElevation(route MatchedRoute) (ElevationData, error) {
	data, err := processElevation(route)
	if err != nil {
		return ElevationData{}, newProcessingError(ElevationError, err)
	}
	return data, nil
}

func processElevation(route MatchedRoute) (ElevationData, error) {
	points := make([]ElevationPoint, 0, len(route.Points))
	distance := 0.0
	totalAscent := 0.0
	totalDescent := 0.0
	minElevation := math.Inf(1)
	maxElevation := math.Inf(-1)

	for i, point := range route.Points {
		elevation := elevationOf(point.Point)
		if math.IsNaN(elevation) || math.IsInf(elevation, 0) {
			return ElevationData{}, fmt.Errorf("point %d has non-finite elevation", i)
		}
		step := point.DistanceFromPrevious
		if math.IsNaN(step) || math.IsInf(step, 0) || step < 0 {
			return ElevationData{}, fmt.Errorf("point %d has invalid distance from previous point: %v", i, step)
		}

		minElevation = math.Min(minElevation, elevation)
		maxElevation = math.Max(maxElevation, elevation)

		var grade *float64
		if i > 0 {
			delta := elevation - elevationOf(route.Points[i-1].Point)
			if delta > 0 {
				totalAscent += delta
			} else {
				totalDescent += -delta
			}

			if step > 0 {
				g := delta / step * 100
				grade = &g
			}
		}

		points = append(points, ElevationPoint{
			CumulativeDistance: distance,
			Elevation:          elevation,
			Grade:              grade,
		})

		distance += step
	}

	// Infinite bounds cannot be serialised; an empty profile reports zeros
	if len(points) == 0 {
		minElevation, maxElevation = 0, 0
	}

	averageGrade := 0.0
	if distance > 0 {
		averageGrade = (maxElevation - minElevation) / distance * 100
	}

	return ElevationData{
		Points: points,
		Statistics: ElevationStatistics{
			MinElevation: minElevation,
			MaxElevation: maxElevation,
			TotalAscent:  totalAscent,
			TotalDescent: totalDescent,
			AverageGrade: averageGrade,
		},
	}, nil
}

func elevationOf(p Point) float64 {
	if p.Elevation == nil {
		return 0
	}
	return *p.Elevation
}
