package PlaceHandlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

const louvreResponse = `[
  {"osm_type":"way","osm_id":123,"lat":"48.8611","lon":"2.3364","category":"tourism","type":"museum",
   "name":"Musée du Louvre","display_name":"Musée du Louvre, Rue de Rivoli, Paris, France"},
  {"osm_type":"node","osm_id":7,"lat":"north","lon":"2.1","name":"Broken","display_name":"Broken"}
]`

func TestGatewaySearch(t *testing.T) {
	var got *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(louvreResponse))
	}))
	defer server.Close()

	gateway := NewGatewayClient(server.URL+"/", "secret", "tr-backend-test")
	region := RegionAround(Coordinate{Latitude: 48.86, Longitude: 2.33}, 1000)
	places, err := gateway.Search(context.Background(), "Louvre", &region, 5)
	if err != nil {
		t.Fatal(err)
	}

	if got.URL.Path != "/search" {
		t.Errorf("path = %q", got.URL.Path)
	}
	query := got.URL.Query()
	if query.Get("q") != "Louvre" || query.Get("format") != "jsonv2" || query.Get("limit") != "5" {
		t.Errorf("query = %v", query)
	}
	if query.Get("viewbox") == "" || query.Get("bounded") != "1" {
		t.Errorf("region not sent: %v", query)
	}
	if query.Get("key") != "secret" {
		t.Errorf("key = %q", query.Get("key"))
	}
	if ua := got.Header.Get("User-Agent"); ua != "tr-backend-test" {
		t.Errorf("User-Agent = %q", ua)
	}

	if len(places) != 1 {
		t.Fatalf("got %d places, want 1 (bad coordinates skipped)", len(places))
	}
	place := places[0]
	if place.Name != "Musée du Louvre" || place.Address != "Rue de Rivoli, Paris, France" {
		t.Errorf("place = %+v", place)
	}
	if place.PlaceID != "way:123" || place.Category != "tourism" {
		t.Errorf("place = %+v", place)
	}
	if place.Key != Encode(place.Name, place.Address, place.Coordinate) {
		t.Errorf("Key = %q", place.Key)
	}
}

func TestGatewayPlaceWithoutName(t *testing.T) {
	place, ok := externalPlace{Lat: "1.5", Lon: "-2.5", DisplayName: "42, Main Street, Springfield"}.toPlace()
	if !ok {
		t.Fatal("toPlace failed")
	}
	if place.Name != "42" || place.Address != "Main Street, Springfield" {
		t.Errorf("place = %+v", place)
	}
	if place.PlaceID != "" {
		t.Errorf("PlaceID = %q, want empty", place.PlaceID)
	}
}

func TestGatewayPlaceWithoutUsableKey(t *testing.T) {
	results := []externalPlace{
		{Lat: "48.1", Lon: "2.1"},
		{Lat: "48.1", Lon: "2.1", Name: "@", DisplayName: "<>"},
		{Lat: "95", Lon: "2.1", Name: "Nowhere"},
	}
	for _, result := range results {
		if place, ok := result.toPlace(); ok {
			t.Errorf("%+v: got %q, want skipped", result, place.Key)
		}
	}
}

func TestViewbox(t *testing.T) {
	box, bounded := viewbox(Region{Center: Coordinate{Latitude: 10, Longitude: 20}, LatitudeDelta: 2, LongitudeDelta: 4})
	if box != "18.000000,11.000000,22.000000,9.000000" || !bounded {
		t.Errorf("viewbox = %q, %v", box, bounded)
	}

	box, bounded = viewbox(RegionAround(Coordinate{Latitude: -16.5, Longitude: 179.9}, 50000))
	if bounded {
		t.Errorf("antimeridian box should not be bounded: %q", box)
	}
	if !strings.Contains(box, ",180.000000,") {
		t.Errorf("viewbox = %q, want right edge clamped", box)
	}

	box, bounded = viewbox(RegionAround(Coordinate{Latitude: 90, Longitude: 0}, 1000))
	if !bounded || box != "-180.000000,90.000000,180.000000,89.995508" {
		t.Errorf("pole viewbox = %q, %v", box, bounded)
	}
}

func TestGatewaySearchAcrossAntimeridian(t *testing.T) {
	gateway := NewGatewayClient("https://example.test", "", "")
	region := RegionAround(Coordinate{Latitude: 0, Longitude: -179.99}, 10000)
	u, err := url.Parse(gateway.searchUrl("harbour", &region, 3))
	if err != nil {
		t.Fatal(err)
	}
	if u.Query().Get("viewbox") == "" || u.Query().Has("bounded") {
		t.Errorf("query = %v", u.Query())
	}
}

func TestGatewaySearchWithoutRegion(t *testing.T) {
	gateway := NewGatewayClient("https://example.test", "", "")
	u := gateway.searchUrl("pizza", nil, 3)
	if u != "https://example.test/search?format=jsonv2&limit=3&q=pizza" {
		t.Errorf("searchUrl = %q", u)
	}
}

func TestGatewayErrors(t *testing.T) {
	cases := []struct {
		status int
		body   string
		want   error
	}{
		{http.StatusUnauthorized, "", ErrAuthorizationDenied},
		{http.StatusForbidden, "", ErrAccessDenied},
		{http.StatusTooManyRequests, "", ErrAuthorizationRestricted},
		{http.StatusInternalServerError, "", ErrOperationFailed},
		{http.StatusOK, "[]", ErrUnknownLocation},
		{http.StatusOK, "{not json", ErrOperationFailed},
	}
	for _, c := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(c.status)
			_, _ = w.Write([]byte(c.body))
		}))
		_, err := NewGatewayClient(server.URL, "", "").Search(context.Background(), "x", nil, 1)
		server.Close()
		if !errors.Is(err, c.want) {
			t.Errorf("status %d body %q: err = %v, want %v", c.status, c.body, err, c.want)
		}
	}
}

func TestGatewayNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	_, err := NewGatewayClient(addr, "", "").Search(context.Background(), "x", nil, 1)
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("err = %v, want ErrNetwork", err)
	}
	if locationCode(err) != "network" {
		t.Errorf("locationCode = %q", locationCode(err))
	}
}

func TestGatewayCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewGatewayClient(server.URL, "", "").Search(ctx, "x", nil, 1)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
