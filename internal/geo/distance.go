package geo

import "math"

const (
	// EarthRadiusMeters is the mean Earth radius shared by Distance and Destination
	EarthRadiusMeters = 6371000.0
)

// Distance calculates the great-circle distance in meters between two points
// on the Earth's surface using the Haversine formula
//
// Formula:
// a = sin²(Δφ/2) + cos φ1 ⋅ cos φ2 ⋅ sin²(Δλ/2)
// c = 2 ⋅ atan2( √a, √(1−a) )
// d = R ⋅ c
//
// where:
// φ is latitude, λ is longitude, R is earth's radius (6371 km)
// Δφ is the difference in latitude, Δλ is the difference in longitude
func Distance(a, b Point) float64 {
	lat1Rad := DegreesToRadians(a.Latitude)
	lat2Rad := DegreesToRadians(b.Latitude)

	deltaLat := lat2Rad - lat1Rad
	deltaLon := DegreesToRadians(b.Longitude - a.Longitude)

	h := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)

	// Rounding can push h a hair past 1 for near-antipodal points
	h = math.Min(h, 1)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c
}

// PathLength sums Distance over consecutive pairs of points
func PathLength(points []Point) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += Distance(points[i-1], points[i])
	}
	return total
}
