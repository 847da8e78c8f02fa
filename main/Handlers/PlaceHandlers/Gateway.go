package PlaceHandlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Searcher resolves a natural-language query, optionally bounded to a region.
type Searcher interface {
	Search(ctx context.Context, query string, region *Region, limit int) ([]Place, error)
}

// GatewayClient talks to a Nominatim-compatible geocoder.
type GatewayClient struct {
	BaseURL   string
	ApiKey    string
	UserAgent string
	Client    *http.Client
}

func NewGatewayClient(baseURL, apiKey, userAgent string) *GatewayClient {
	return &GatewayClient{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		ApiKey:    apiKey,
		UserAgent: userAgent,
		Client:    &http.Client{Timeout: 15 * time.Second},
	}
}

type externalPlace struct {
	OsmType     string `json:"osm_type"`
	OsmID       int64  `json:"osm_id"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Category    string `json:"category"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

func (e externalPlace) toPlace() (Place, bool) {
	lat, err := strconv.ParseFloat(e.Lat, 64)
	if err != nil {
		return Place{}, false
	}
	lon, err := strconv.ParseFloat(e.Lon, 64)
	if err != nil {
		return Place{}, false
	}
	name := strings.TrimSpace(e.Name)
	address := strings.TrimSpace(e.DisplayName)
	if name == "" {
		name, address, _ = strings.Cut(address, ",")
		name = strings.TrimSpace(name)
		address = strings.TrimSpace(address)
	} else {
		address = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(address, name), ","))
	}
	coordinate := Coordinate{Latitude: lat, Longitude: lon}
	place := Place{
		Name:       name,
		Address:    address,
		Coordinate: coordinate,
		Category:   e.Category,
	}
	if e.OsmType != "" {
		place.PlaceID = fmt.Sprintf("%s:%d", e.OsmType, e.OsmID)
	}
	place.Key = Encode(place.Name, place.Address, coordinate)
	if _, _, ok := Decode(place.Key); !ok {
		return Place{}, false
	}
	return place, true
}

func clamp(v, limit float64) float64 {
	return math.Max(-limit, math.Min(limit, v))
}

// viewbox is the Nominatim "left,top,right,bottom" box for region. The box
// cannot wrap the antimeridian, so a region crossing it is clamped and only
// biases results instead of bounding them.
func viewbox(region Region) (string, bool) {
	left := region.Center.Longitude - region.LongitudeDelta/2
	right := region.Center.Longitude + region.LongitudeDelta/2
	top := clamp(region.Center.Latitude+region.LatitudeDelta/2, 90)
	bottom := clamp(region.Center.Latitude-region.LatitudeDelta/2, 90)
	bounded := left >= -180 && right <= 180
	left, right = clamp(left, 180), clamp(right, 180)
	return fmt.Sprintf("%f,%f,%f,%f", left, top, right, bottom), bounded
}

func (g *GatewayClient) searchUrl(query string, region *Region, limit int) string {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "jsonv2")
	params.Set("limit", strconv.Itoa(limit))
	if region != nil {
		box, bounded := viewbox(*region)
		params.Set("viewbox", box)
		if bounded {
			params.Set("bounded", "1")
		}
	}
	if g.ApiKey != "" {
		params.Set("key", g.ApiKey)
	}
	return g.BaseURL + "/search?" + params.Encode()
}

func (g *GatewayClient) Search(ctx context.Context, query string, region *Region, limit int) ([]Place, error) {
	if limit <= 0 {
		limit = 10
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.searchUrl(query, region, limit), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOperationFailed, err)
	}
	req.Header.Set("Accept", "application/json")
	if g.UserAgent != "" {
		req.Header.Set("User-Agent", g.UserAgent)
	}

	res, err := g.Client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			log.Printf("Failed to close gateway response: %v", err)
		}
	}(res.Body)

	switch {
	case res.StatusCode == http.StatusUnauthorized:
		return nil, ErrAuthorizationDenied
	case res.StatusCode == http.StatusForbidden:
		return nil, ErrAccessDenied
	case res.StatusCode == http.StatusTooManyRequests:
		return nil, ErrAuthorizationRestricted
	case res.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: gateway returned status %d", ErrOperationFailed, res.StatusCode)
	}

	var results []externalPlace
	if err := json.NewDecoder(res.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("%w: decoding gateway response: %v", ErrOperationFailed, err)
	}

	places := make([]Place, 0, len(results))
	for _, result := range results {
		place, ok := result.toPlace()
		if !ok {
			log.Printf("Skipping gateway result without a usable key: %q", result.DisplayName)
			continue
		}
		places = append(places, place)
	}
	if len(places) == 0 {
		return nil, ErrUnknownLocation
	}
	return places, nil
}
