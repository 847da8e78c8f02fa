package PlaceHandlers

import (
	"math"
	"sort"
)

const earthRadius = 6371008.8

// DistanceMeters is the great-circle distance between two coordinates.
func DistanceMeters(from, to Coordinate) float64 {
	lat1 := from.Latitude * math.Pi / 180
	lat2 := to.Latitude * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (to.Longitude - from.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadius * math.Asin(math.Min(1, math.Sqrt(h)))
}

// SortByDistance fills in Distance and orders places nearest first.
func SortByDistance(places []Place, origin Coordinate) {
	for i := range places {
		places[i].Distance = DistanceMeters(origin, places[i].Coordinate)
	}
	sort.SliceStable(places, func(i, j int) bool {
		return places[i].Distance < places[j].Distance
	})
}
