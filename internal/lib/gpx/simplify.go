package gpx

// DefaultTolerance is the simplification tolerance in degrees (~15m at the equator)
const DefaultTolerance = 0.00015

// Simplify reduces points with Douglas-Peucker at DefaultTolerance
func Simplify(points []Point) []Point {
	return SimplifyWithTolerance(points, DefaultTolerance)
}

// SimplifyWithTolerance reduces points with Douglas-Peucker over the
// longitude/latitude plane. The first and last points are always kept and
// retained points are copies of the originals; nothing is interpolated.
func SimplifyWithTolerance(points []Point, tolerance float64) []Point {
	indices := SimplifyIndices(points, tolerance)
	out := make([]Point, len(indices))
	for i, idx := range indices {
		out[i] = points[idx].Clone()
	}
	return out
}

// SimplifyIndices returns the ascending indices of the points Simplify keeps
func SimplifyIndices(points []Point, tolerance float64) []int {
	n := len(points)
	if n == 0 {
		return []int{}
	}
	if n <= 2 {
		indices := make([]int, n)
		for i := range indices {
			indices[i] = i
		}
		return indices
	}

	keep := make([]bool, n)
	keep[0] = true
	keep[n-1] = true
	douglasPeucker(points, 0, n-1, tolerance*tolerance, keep)

	indices := make([]int, 0, n)
	for i, k := range keep {
		if k {
			indices = append(indices, i)
		}
	}
	return indices
}

// douglasPeucker marks the points between first and last that lie further
// than sqTolerance (squared degrees) from the chord, recursively
func douglasPeucker(points []Point, first, last int, sqTolerance float64, keep []bool) {
	type span struct{ first, last int }
	stack := []span{{first, last}}

	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		maxSqDist := sqTolerance
		index := -1
		for i := s.first + 1; i < s.last; i++ {
			sqDist := sqSegmentDistance(points[i], points[s.first], points[s.last])
			if sqDist > maxSqDist {
				index = i
				maxSqDist = sqDist
			}
		}

		if index < 0 {
			continue
		}
		keep[index] = true
		if index-s.first > 1 {
			stack = append(stack, span{s.first, index})
		}
		if s.last-index > 1 {
			stack = append(stack, span{index, s.last})
		}
	}
}

// sqSegmentDistance is the squared planar distance from p to segment ab,
// with x = longitude and y = latitude
func sqSegmentDistance(p, a, b Point) float64 {
	x, y := a.Longitude, a.Latitude
	dx := b.Longitude - x
	dy := b.Latitude - y

	if dx != 0 || dy != 0 {
		t := ((p.Longitude-x)*dx + (p.Latitude-y)*dy) / (dx*dx + dy*dy)
		if t > 1 {
			x, y = b.Longitude, b.Latitude
		} else if t > 0 {
			x += dx * t
			y += dy * t
		}
	}

	dx = p.Longitude - x
	dy = p.Latitude - y
	return dx*dx + dy*dy
}
