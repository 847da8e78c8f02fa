package PlaceHandlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/ItzBubschki/tr-backend/main/Handlers"
)

const defaultSearchSpan = 5000

type SearchHandler struct {
	Search Searcher
	Cache  PlaceCache
}

func gatewayStatus(err error) int {
	switch {
	case errors.Is(err, ErrUnknownLocation):
		return http.StatusNotFound
	case errors.Is(err, ErrNetwork), errors.Is(err, ErrAuthorizationDenied),
		errors.Is(err, ErrAccessDenied), errors.Is(err, ErrAuthorizationRestricted):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

type gatewayFailure struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeGatewayError answers with the status for err and its taxonomy code.
func writeGatewayError(w http.ResponseWriter, err error) {
	status := gatewayStatus(err)
	code := locationCode(err)
	if code == "" {
		code = "operation_failed"
	}
	Handlers.WriteJSON(w, status, gatewayFailure{Code: code, Message: http.StatusText(status)})
}

// ParseRegion reads ?lat=&lon=&span= into a search region; nil when no center is given.
func ParseRegion(r *http.Request) (*Region, error) {
	latParam, lonParam := r.URL.Query().Get("lat"), r.URL.Query().Get("lon")
	if latParam == "" && lonParam == "" {
		return nil, nil
	}
	lat, err := strconv.ParseFloat(latParam, 64)
	if err != nil {
		return nil, err
	}
	lon, err := strconv.ParseFloat(lonParam, 64)
	if err != nil {
		return nil, err
	}
	center := Coordinate{Latitude: lat, Longitude: lon}
	if !center.Valid() {
		return nil, errors.New("coordinate out of range")
	}
	span := float64(defaultSearchSpan)
	if spanParam := r.URL.Query().Get("span"); spanParam != "" {
		span, err = strconv.ParseFloat(spanParam, 64)
		if err != nil || span <= 0 {
			return nil, errors.New("invalid span")
		}
	}
	region := RegionAround(center, span)
	return &region, nil
}

func (s *SearchHandler) searchForTerm(ctx context.Context, search string, region *Region) ([]Place, error) {
	places, err := s.Search.Search(ctx, search, region, 25)
	if err != nil {
		return nil, err
	}
	log.Printf("Got %d places from gateway", len(places))

	if region != nil {
		SortByDistance(places, region.Center)
	}
	if s.Cache != nil {
		go s.Cache.SaveInCache(context.Background(), places)
	}
	return places, nil
}

func (s *SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("q")
	if search == "" {
		http.Error(w, "Search term is required", http.StatusBadRequest)
		return
	}
	region, err := ParseRegion(r)
	if err != nil {
		http.Error(w, "Invalid region", http.StatusBadRequest)
		return
	}

	places, err := s.searchForTerm(r.Context(), search, region)
	if errors.Is(err, ErrUnknownLocation) {
		places = []Place{}
	} else if err != nil {
		log.Printf("Search for %q failed: %v", search, err)
		writeGatewayError(w, err)
		return
	}

	Handlers.WriteJSON(w, http.StatusOK, places)
}
