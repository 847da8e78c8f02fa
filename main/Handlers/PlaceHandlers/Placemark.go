package PlaceHandlers

import (
	"regexp"
	"strconv"
	"strings"
)

// A place key has the form "<name>, <address> @ <lat,lon>". Anything after the
// closing '>' (accuracy, region) is ignored when decoding.

var coordinatePattern = regexp.MustCompile(`<\s*\+?([\-0-9.]+)\s*,\s*\+?([\-0-9.]+)\s*>`)

var reservedRunes = strings.NewReplacer("@", "", "<", "", ">", "")

func formatDegrees(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.HasPrefix(s, "-") {
		s = "+" + s
	}
	return s
}

// JoinQuery is the search query a key decodes to.
func JoinQuery(name, address string) string {
	name = strings.TrimSpace(reservedRunes.Replace(name))
	address = strings.TrimSpace(reservedRunes.Replace(address))
	if address == "" {
		return name
	}
	return name + ", " + address
}

func Encode(name, address string, coordinate Coordinate) string {
	return JoinQuery(name, address) + " @ <" + formatDegrees(coordinate.Latitude) + "," + formatDegrees(coordinate.Longitude) + ">"
}

// Decode extracts the search query and coordinate from a place key.
// ok is false when the key has no '@' or no well-formed <lat,lon> segment.
func Decode(key string) (string, Coordinate, bool) {
	at := strings.Index(key, "@")
	if at < 0 {
		return "", Coordinate{}, false
	}
	coordinate, ok := decodeCoordinate(key[at:])
	if !ok {
		return "", Coordinate{}, false
	}
	query := strings.TrimSpace(key[:at])
	query = strings.TrimSpace(strings.TrimSuffix(query, ","))
	if query == "" {
		return "", Coordinate{}, false
	}
	return query, coordinate, true
}

func decodeCoordinate(s string) (Coordinate, bool) {
	match := coordinatePattern.FindStringSubmatch(s)
	if len(match) != 3 {
		return Coordinate{}, false
	}
	lat, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return Coordinate{}, false
	}
	lon, err := strconv.ParseFloat(match[2], 64)
	if err != nil {
		return Coordinate{}, false
	}
	c := Coordinate{Latitude: lat, Longitude: lon}
	if !c.Valid() {
		return Coordinate{}, false
	}
	return c, true
}

// SplitNameAddress splits a key on the last comma before '@'.
func SplitNameAddress(key string) (string, string, bool) {
	at := strings.Index(key, "@")
	if at < 0 {
		return "", "", false
	}
	head := key[:at]
	comma := strings.LastIndex(head, ",")
	if comma < 0 {
		name := strings.TrimSpace(head)
		return name, "", name != ""
	}
	return strings.TrimSpace(head[:comma]), strings.TrimSpace(head[comma+1:]), true
}

// DisplayName is the text before the first comma, the key itself when undecodable.
// Addresses usually carry commas of their own, names rarely do.
func DisplayName(key string) string {
	query, _, ok := Decode(key)
	if !ok {
		return key
	}
	if comma := strings.Index(query, ","); comma > 0 {
		return strings.TrimSpace(query[:comma])
	}
	return query
}
