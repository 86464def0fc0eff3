package geo

import "math"

// Destination solves the spherical forward problem: the point reached by
// travelling distanceMeters from origin along the great circle whose initial
// bearing is bearingDegrees (clockwise from true north).
//
// φ2 = asin( sin φ1 ⋅ cos δ + cos φ1 ⋅ sin δ ⋅ cos θ )
// λ2 = λ1 + atan2( sin θ ⋅ sin δ ⋅ cos φ1, cos δ − sin φ1 ⋅ sin φ2 )
//
// where δ = d/R is the angular distance. The result longitude is wrapped into
// [-180,180) and the latitude clamped into [-90,90].
func Destination(origin Point, bearingDegrees, distanceMeters float64) Point {
	if distanceMeters == 0 {
		return origin
	}

	delta := distanceMeters / EarthRadiusMeters
	theta := DegreesToRadians(bearingDegrees)
	phi1 := DegreesToRadians(origin.Latitude)
	lambda1 := DegreesToRadians(origin.Longitude)

	sinPhi2 := math.Sin(phi1)*math.Cos(delta) +
		math.Cos(phi1)*math.Sin(delta)*math.Cos(theta)
	phi2 := math.Asin(math.Max(-1, math.Min(1, sinPhi2)))

	lambda2 := lambda1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(phi1),
		math.Cos(delta)-math.Sin(phi1)*math.Sin(phi2),
	)

	return Point{
		Latitude:  clampLatitude(RadiansToDegrees(phi2)),
		Longitude: WrapLongitude(RadiansToDegrees(lambda2)),
	}
}

// WrapLongitude maps a longitude in degrees into [-180,180).
func WrapLongitude(lon float64) float64 {
	w := math.Mod(lon+180, 360)
	if w < 0 {
		w += 360
	}
	return w - 180
}

func clampLatitude(lat float64) float64 {
	return math.Max(-90, math.Min(90, lat))
}
