package PlaceHandlers

import "github.com/mmcloughlin/geohash"

// cells of precision 5 are roughly 4.9km x 4.9km
const cellPrecision = 5

// Cell is the geohash cell a coordinate is filed under.
func Cell(c Coordinate) string {
	return geohash.EncodeWithPrecision(c.Latitude, c.Longitude, cellPrecision)
}

// NearbyCells is the cell of c plus its eight neighbours.
func NearbyCells(c Coordinate) []string {
	center := Cell(c)
	return append([]string{center}, geohash.Neighbors(center)...)
}

// KeyCell is the cell of the coordinate encoded in a place key, "" when undecodable.
func KeyCell(placeKey string) string {
	_, coordinate, ok := Decode(placeKey)
	if !ok {
		return ""
	}
	return Cell(coordinate)
}
