package PlaceHandlers

import (
	"errors"
	"math"
)

type Coordinate struct {
	Latitude  float64 `json:"latitude" bson:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude"`
}

func (c Coordinate) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180 &&
		!math.IsNaN(c.Latitude) && !math.IsNaN(c.Longitude)
}

// Region is a centre plus a span in degrees, like a map viewport.
type Region struct {
	Center         Coordinate `json:"center"`
	LatitudeDelta  float64    `json:"latitudeDelta"`
	LongitudeDelta float64    `json:"longitudeDelta"`
}

const metersPerDegree = 111320.0

// RegionAround builds a region of the given size in meters centred on c.
func RegionAround(c Coordinate, meters float64) Region {
	latDelta := meters / metersPerDegree
	cos := math.Cos(c.Latitude * math.Pi / 180)
	lonDelta := 360.0
	if cos > 1e-9 {
		lonDelta = math.Min(meters/(metersPerDegree*cos), 360)
	}
	return Region{Center: c, LatitudeDelta: latDelta, LongitudeDelta: lonDelta}
}

// Place is a point of interest as returned by the map gateway.
type Place struct {
	Key        string     `json:"placeKey" bson:"placekey"`
	Name       string     `json:"name" bson:"name"`
	Address    string     `json:"address" bson:"address"`
	Coordinate Coordinate `json:"coordinate" bson:"coordinate"`
	PlaceID    string     `json:"placeId,omitempty" bson:"placeid,omitempty"`
	Category   string     `json:"category,omitempty" bson:"category,omitempty"`
	Distance   float64    `json:"distance,omitempty" bson:"-"`
}

type LocationError struct {
	Code    string
	Message string
}

func (e *LocationError) Error() string {
	return e.Message
}

var (
	ErrAuthorizationDenied     = &LocationError{"authorization_denied", "location access denied"}
	ErrAuthorizationRestricted = &LocationError{"authorization_restricted", "location access restricted"}
	ErrUnknownLocation         = &LocationError{"unknown_location", "location unknown"}
	ErrAccessDenied            = &LocationError{"access_denied", "access denied"}
	ErrNetwork                 = &LocationError{"network", "network failure"}
	ErrOperationFailed         = &LocationError{"operation_failed", "operation failed"}
)

// locationCode returns the taxonomy code for err, or "" when err is not a location error.
func locationCode(err error) string {
	var le *LocationError
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}
