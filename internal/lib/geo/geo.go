package geo

import (
	"errors"
	"math"

	"github.com/twpayne/go-polyline"
)

// Earth's mean radius in meters
const earthRadius = 6371000

// geoUtils implements the GeoUtils interface
type geoUtils struct{}

// NewGeoUtils creates a new GeoUtils implementation
func NewGeoUtils() GeoUtils {
	return &geoUtils{}
}

// PointToPoint calculates great-circle distance between two points using Haversine formula
func (g *geoUtils) PointToPoint(p1, p2 Point) (float64, error) {
	if !isValidCoordinate(p1) || !isValidCoordinate(p2) {
		return 0, errors.New("invalid coordinates: latitude must be [-90, 90], longitude must be [-180, 180]")
	}
	return haversine(p1, p2), nil
}

// haversine assumes both points are valid
func haversine(p1, p2 Point) float64 {
	if p1.Latitude == p2.Latitude && p1.Longitude == p2.Longitude {
		return 0
	}

	lat1 := p1.Latitude * math.Pi / 180
	lon1 := p1.Longitude * math.Pi / 180
	lat2 := p2.Latitude * math.Pi / 180
	lon2 := p2.Longitude * math.Pi / 180

	dlat := lat2 - lat1
	dlon := lon2 - lon1

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}

// PointToPolyline calculates minimum distance from point to polyline
func (g *geoUtils) PointToPolyline(point Point, polyline Polyline) (float64, error) {
	if !isValidCoordinate(point) {
		return 0, errors.New("invalid point coordinates")
	}

	if len(polyline.Points) == 0 {
		return 0, errors.New("polyline has no points")
	}

	if len(polyline.Points) == 1 {
		return g.PointToPoint(point, polyline.Points[0])
	}

	minDistance := math.Inf(1)
	for i := 0; i < len(polyline.Points)-1; i++ {
		segmentStart := polyline.Points[i]
		segmentEnd := polyline.Points[i+1]
		if !isValidCoordinate(segmentStart) || !isValidCoordinate(segmentEnd) {
			return 0, errors.New("polyline contains invalid coordinates")
		}

		distance := g.pointToSegmentDistance(point, segmentStart, segmentEnd)
		if distance < minDistance {
			minDistance = distance
		}
	}

	return minDistance, nil
}

// pointToSegmentDistance calculates perpendicular distance from point to line segment
// using cross-track / along-track distances on the sphere
func (g *geoUtils) pointToSegmentDistance(point, segmentStart, segmentEnd Point) float64 {
	distanceToStart := haversine(point, segmentStart)
	distanceToEnd := haversine(point, segmentEnd)
	segmentLength := haversine(segmentStart, segmentEnd)

	// Degenerate segment
	if segmentLength < 1 {
		return math.Min(distanceToStart, distanceToEnd)
	}

	lat1 := segmentStart.Latitude * math.Pi / 180
	lon1 := segmentStart.Longitude * math.Pi / 180
	lat2 := segmentEnd.Latitude * math.Pi / 180
	lon2 := segmentEnd.Longitude * math.Pi / 180
	lat3 := point.Latitude * math.Pi / 180
	lon3 := point.Longitude * math.Pi / 180

	d13 := distanceToStart / earthRadius

	// Bearing from start to end
	y := math.Sin(lon2-lon1) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(lon2-lon1)
	bearing12 := math.Atan2(y, x)

	// Bearing from start to point
	y = math.Sin(lon3-lon1) * math.Cos(lat3)
	x = math.Cos(lat1)*math.Sin(lat3) - math.Sin(lat1)*math.Cos(lat3)*math.Cos(lon3-lon1)
	bearing13 := math.Atan2(y, x)

	// Projection falls behind the segment start
	if math.Cos(bearing13-bearing12) < 0 {
		return distanceToStart
	}

	dxt := math.Asin(math.Sin(d13) * math.Sin(bearing13-bearing12))
	crossTrackDistance := math.Abs(dxt) * earthRadius

	cosRatio := math.Cos(d13) / math.Cos(dxt)
	if cosRatio > 1 {
		cosRatio = 1
	} else if cosRatio < -1 {
		cosRatio = -1
	}
	alongTrackDistance := math.Acos(cosRatio) * earthRadius

	// Projection lies beyond the segment end
	if alongTrackDistance > segmentLength {
		return distanceToEnd
	}

	return crossTrackDistance
}

// PathLength sums the great-circle distances between consecutive points
func (g *geoUtils) PathLength(points []Point) (float64, error) {
	total := 0.0
	for i := 1; i < len(points); i++ {
		d, err := g.PointToPoint(points[i-1], points[i])
		if err != nil {
			return 0, err
		}
		total += d
	}
	return total, nil
}

// EncodePolyline encodes a point sequence using Google's polyline algorithm (precision 5)
func (g *geoUtils) EncodePolyline(points []Point) (string, error) {
	coords := make([][]float64, len(points))
	for i, p := range points {
		if !isValidCoordinate(p) {
			return "", errors.New("cannot encode polyline with invalid coordinates")
		}
		coords[i] = []float64{p.Latitude, p.Longitude}
	}
	return string(polyline.EncodeCoords(coords)), nil
}

// DecodePolyline decodes Google polyline string to point sequence
func (g *geoUtils) DecodePolyline(encoded string) ([]Point, error) {
	if encoded == "" {
		return nil, errors.New("encoded polyline string is empty")
	}

	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, errors.New("failed to decode polyline: " + err.Error())
	}

	points := make([]Point, len(coords))
	for i, coord := range coords {
		points[i] = Point{
			Latitude:  coord[0],
			Longitude: coord[1],
		}

		if !isValidCoordinate(points[i]) {
			return nil, errors.New("decoded polyline contains invalid coordinates")
		}
	}

	return points, nil
}

// NewPoint creates a Point from latitude and longitude values with validation
func NewPoint(latitude, longitude float64) (Point, error) {
	point := Point{Latitude: latitude, Longitude: longitude}
	if !isValidCoordinate(point) {
		return Point{}, errors.New("invalid coordinates: latitude must be [-90, 90], longitude must be [-180, 180]")
	}
	return point, nil
}

// IsValidCoordinate reports whether latitude is within [-90, 90] and longitude within [-180, 180]
func IsValidCoordinate(point Point) bool {
	return isValidCoordinate(point)
}

func isValidCoordinate(point Point) bool {
	return point.Latitude >= -90 && point.Latitude <= 90 &&
		point.Longitude >= -180 && point.Longitude <= 180
}
