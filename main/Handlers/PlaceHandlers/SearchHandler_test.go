package PlaceHandlers

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestSearchHandlerRequiresTerm(t *testing.T) {
	handler := &SearchHandler{Search: newFakeSearcher()}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/search", nil))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("code = %d, want 400", rr.Code)
	}
}

func TestSearchHandlerNoResults(t *testing.T) {
	handler := &SearchHandler{Search: newFakeSearcher()}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/search?q=nothing", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", rr.Code)
	}
	if body := strings.TrimSpace(rr.Body.String()); body != "[]" {
		t.Errorf("body = %q, want []", body)
	}
}

func TestSearchHandlerSortsByDistance(t *testing.T) {
	near := gatewayPlace("Near", "A", Coordinate{Latitude: 48.8601, Longitude: 2.3371})
	far := gatewayPlace("Far", "B", Coordinate{Latitude: 48.90, Longitude: 2.40})
	searcher := newFakeSearcher()
	searcher.places["cafe"] = []Place{far, near}
	cache := &fakeCache{}
	handler := &SearchHandler{Search: searcher, Cache: cache}

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/search?q=cafe&lat=48.86&lon=2.337", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("code = %d", rr.Code)
	}
	var places []Place
	if err := json.NewDecoder(rr.Body).Decode(&places); err != nil {
		t.Fatal(err)
	}
	if len(places) != 2 || places[0].Name != "Near" || places[1].Name != "Far" {
		t.Fatalf("places = %+v", places)
	}
	if places[0].Distance <= 0 || places[0].Distance > places[1].Distance {
		t.Errorf("distances = %v, %v", places[0].Distance, places[1].Distance)
	}
}

func TestSearchHandlerInvalidRegion(t *testing.T) {
	handler := &SearchHandler{Search: newFakeSearcher()}
	for _, target := range []string{
		"/search?q=cafe&lat=abc&lon=2",
		"/search?q=cafe&lat=48",
		"/search?q=cafe&lat=95&lon=2",
		"/search?q=cafe&lat=48&lon=2&span=-1",
	} {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest("GET", target, nil))
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: code = %d, want 400", target, rr.Code)
		}
	}
}

func TestSearchHandlerGatewayFailure(t *testing.T) {
	searcher := newFakeSearcher()
	searcher.errs["cafe"] = ErrNetwork
	handler := &SearchHandler{Search: searcher}

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/search?q=cafe", nil))
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("code = %d, want 502", rr.Code)
	}
	var failure gatewayFailure
	if err := json.NewDecoder(rr.Body).Decode(&failure); err != nil {
		t.Fatal(err)
	}
	if failure.Code != "network" {
		t.Errorf("code = %q", failure.Code)
	}
}

func TestParseRegion(t *testing.T) {
	region, err := ParseRegion(httptest.NewRequest("GET", "/search?q=x", nil))
	if err != nil || region != nil {
		t.Errorf("no center: region = %v, err = %v", region, err)
	}

	region, err = ParseRegion(httptest.NewRequest("GET", "/search?lat=10&lon=20&span=2000", nil))
	if err != nil {
		t.Fatal(err)
	}
	if region.Center.Latitude != 10 || region.Center.Longitude != 20 {
		t.Errorf("center = %+v", region.Center)
	}
	if math.Abs(region.LatitudeDelta-2000/metersPerDegree) > 1e-12 {
		t.Errorf("LatitudeDelta = %v", region.LatitudeDelta)
	}
}

func TestInspectHandler(t *testing.T) {
	handler := &InspectHandler{Resolver: NewResolver(newFakeSearcher(), nil)}

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/inspect", nil))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing key: code = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/inspect?placeKey=garbage", nil))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("malformed key: code = %d", rr.Code)
	}

	unknown := Encode("Nowhere", "", Coordinate{Latitude: 1, Longitude: 1})
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/inspect?placeKey="+url.QueryEscape(unknown), nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown place: code = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/inspect?placeKey="+url.QueryEscape(louvreKey), nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("code = %d", rr.Code)
	}
	var place Place
	if err := json.NewDecoder(rr.Body).Decode(&place); err != nil {
		t.Fatal(err)
	}
	if place.Key != louvreKey {
		t.Errorf("Key = %q", place.Key)
	}
}

func TestDistanceMeters(t *testing.T) {
	paris := Coordinate{Latitude: 48.8566, Longitude: 2.3522}
	london := Coordinate{Latitude: 51.5074, Longitude: -0.1278}
	if d := DistanceMeters(paris, london); math.Abs(d-343500) > 2000 {
		t.Errorf("Paris-London = %.0f m", d)
	}
	if d := DistanceMeters(paris, paris); d != 0 {
		t.Errorf("same point = %v", d)
	}
}
