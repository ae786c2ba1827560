// Package geo geocodes place names and measures great circle distances.
package geo

import "math"

// EarthRadiusMiles is the mean earth radius used by Haversine.
const EarthRadiusMiles = 3958.8

type Point struct {
	Lat float64 `json:"lat" mapstructure:"lat"`
	Lon float64 `json:"lon" mapstructure:"lon"`
}

// Raleigh, NC is the default origin of distance queries.
var Raleigh = Point{Lat: 35.7796, Lon: -78.6382}

// Haversine returns the great circle distance between a and b in miles.
func Haversine(a, b Point) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(a.Lat))*math.Cos(radians(b.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return EarthRadiusMiles * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Round2 rounds to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
