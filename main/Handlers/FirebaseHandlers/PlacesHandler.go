package FirebaseHandlers

import (
	"context"
	"log"
	"net/http"
	"sort"

	"cloud.google.com/go/firestore"
	"github.com/ItzBubschki/tr-backend/main/Handlers"
	"github.com/ItzBubschki/tr-backend/main/Handlers/PlaceHandlers"
)

// PlacesHandler serves the place lists built from users' rated keys.
type PlacesHandler struct {
	AuthHandler Handlers.TokenVerifier
	FireStore   *firestore.Client
	Resolver    *PlaceHandlers.Resolver
}

// friendsRated is the union of the friends' rated keys, first occurrence wins.
func friendsRated(friendIds []string, friends map[string]User) []string {
	keys := make([]string, 0)
	seen := make(map[string]bool)
	for _, id := range friendIds {
		for _, key := range friends[id].Rated {
			if seen[key] {
				continue
			}
			seen[key] = true
			keys = append(keys, key)
		}
	}
	return keys
}

// orderPlaces sorts by distance from the region center, or by name without one.
func orderPlaces(places []PlaceHandlers.Place, region *PlaceHandlers.Region) {
	if region != nil {
		PlaceHandlers.SortByDistance(places, region.Center)
		return
	}
	sort.SliceStable(places, func(i, j int) bool {
		return places[i].Name < places[j].Name
	})
}

func (p *PlacesHandler) writePlaces(w http.ResponseWriter, r *http.Request, keys []string) {
	region, err := PlaceHandlers.ParseRegion(r)
	if err != nil {
		http.Error(w, "Invalid region", http.StatusBadRequest)
		return
	}
	places := p.Resolver.Resolve(r.Context(), keys)
	log.Printf("Resolved %d of %d places", len(places), len(keys))
	orderPlaces(places, region)
	Handlers.WriteJSON(w, http.StatusOK, places)
}

// RatedWrapper lists the places ?userId= (default: the caller) has rated.
func (p *PlacesHandler) RatedWrapper(w http.ResponseWriter, r *http.Request) {
	authorized, token := Handlers.AuthorizationWrapper(w, r, p.AuthHandler)
	if !authorized {
		return
	}
	targetId := r.URL.Query().Get("userId")
	if targetId == "" {
		targetId = token.UID
	}
	target, _, err := getUser(r.Context(), p.FireStore, targetId)
	if err != nil {
		log.Printf("Failed to get user: %v", err)
		code, message := userStatus(err)
		http.Error(w, message, code)
		return
	}
	if !canSeeDetails(token.UID, targetId, target) {
		http.Error(w, "Profile is private", http.StatusForbidden)
		return
	}
	p.writePlaces(w, r, target.Rated)
}

// FriendsWrapper lists every place any of the caller's friends has rated.
func (p *PlacesHandler) FriendsWrapper(w http.ResponseWriter, r *http.Request) {
	authorized, token := Handlers.AuthorizationWrapper(w, r, p.AuthHandler)
	if !authorized {
		return
	}
	user, _, err := getUser(r.Context(), p.FireStore, token.UID)
	if err != nil {
		log.Printf("Failed to get user: %v", err)
		code, message := userStatus(err)
		http.Error(w, message, code)
		return
	}
	friends, err := getUsers(r.Context(), p.FireStore, user.Friends)
	if err != nil {
		log.Printf("Failed to get friends: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	p.writePlaces(w, r, friendsRated(user.Friends, friends))
}

// nearbyKeys lists the distinct place keys of Locations filed in cells.
func (p *PlacesHandler) nearbyKeys(ctx context.Context, cells []string) ([]string, error) {
	docs, err := p.FireStore.Collection(locationsCollection).Where("geohash", "in", cells).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(docs))
	seen := make(map[string]bool, len(docs))
	for _, doc := range docs {
		var location Location
		if err := doc.DataTo(&location); err != nil {
			log.Printf("Failed to convert location %s: %v", doc.Ref.ID, err)
			continue
		}
		if location.PlaceMark == "" || seen[location.PlaceMark] {
			continue
		}
		seen[location.PlaceMark] = true
		keys = append(keys, location.PlaceMark)
	}
	return keys, nil
}

// NearbyWrapper lists rated places around ?lat=&lon=, nearest first.
func (p *PlacesHandler) NearbyWrapper(w http.ResponseWriter, r *http.Request) {
	authorized, _ := Handlers.AuthorizationWrapper(w, r, p.AuthHandler)
	if !authorized {
		return
	}
	region, err := PlaceHandlers.ParseRegion(r)
	if err != nil || region == nil {
		http.Error(w, "lat and lon are required", http.StatusBadRequest)
		return
	}
	keys, err := p.nearbyKeys(r.Context(), PlaceHandlers.NearbyCells(region.Center))
	if err != nil {
		log.Printf("Failed to find nearby locations: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	p.writePlaces(w, r, keys)
}
