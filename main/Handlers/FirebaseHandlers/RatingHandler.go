package FirebaseHandlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/ItzBubschki/tr-backend/main/Handlers"
	"github.com/ItzBubschki/tr-backend/main/Handlers/PlaceHandlers"
)

var (
	errInvalidStars    = errors.New("stars must be between 1 and 5")
	errMissingPlaceKey = errors.New("place key is required")
	errInvalidPlaceKey = errors.New("place key must have the form <name>, <address> @ <lat,lon>")
)

type RatingHandler struct {
	AuthHandler Handlers.TokenVerifier
	FireStore   *firestore.Client
	Notifier    *FcmHandler
}

type submitRatingRequest struct {
	PlaceKey    string `json:"placeKey"`
	Stars       int    `json:"stars"`
	Text        string `json:"text"`
	PlaceId     string `json:"placeId"`
	Description string `json:"description"`
}

type RatingSummary struct {
	PlaceKey string   `json:"placeKey"`
	Count    int      `json:"count"`
	Average  float64  `json:"average"`
	Ratings  []Rating `json:"ratings"`
}

func newRating(placeKey string, stars int, text, userId, userName string, now time.Time) (Rating, error) {
	if strings.TrimSpace(placeKey) == "" {
		return Rating{}, errMissingPlaceKey
	}
	if _, _, ok := PlaceHandlers.Decode(placeKey); !ok {
		return Rating{}, errInvalidPlaceKey
	}
	if stars < 1 || stars > 5 {
		return Rating{}, errInvalidStars
	}
	if userName == "" {
		userName = "Anonymous"
	}
	return Rating{
		Stars:       stars,
		Description: text,
		UserId:      userId,
		UserName:    userName,
		Timestamp:   now.Format(ratingDateLayout),
		PlaceMark:   placeKey,
	}, nil
}

// AverageStars is the mean star count, 0 when there are no ratings.
func AverageStars(ratings []Rating) float64 {
	if len(ratings) == 0 {
		return 0
	}
	total := 0
	for _, rating := range ratings {
		total += rating.Stars
	}
	return float64(total) / float64(len(ratings))
}

func Summarize(placeKey string, ratings []Rating) RatingSummary {
	if ratings == nil {
		ratings = []Rating{}
	}
	return RatingSummary{
		PlaceKey: placeKey,
		Count:    len(ratings),
		Average:  AverageStars(ratings),
		Ratings:  ratings,
	}
}

// sortNewestFirst orders by the day string; unparseable dates sink to the end.
func sortNewestFirst(ratings []Rating) {
	parsed := make(map[string]time.Time, len(ratings))
	for _, rating := range ratings {
		if t, err := time.Parse(ratingDateLayout, rating.Timestamp); err == nil {
			parsed[rating.Timestamp] = t
		}
	}
	sort.SliceStable(ratings, func(i, j int) bool {
		return parsed[ratings[i].Timestamp].After(parsed[ratings[j].Timestamp])
	})
}

// submitRating files the rating under the place's Location, creating the
// Location on first use, and records the place in the author's rated list.
// All three writes commit together.
func (rh *RatingHandler) submitRating(ctx context.Context, userId string, req submitRatingRequest) (Rating, error) {
	if _, err := newRating(req.PlaceKey, req.Stars, req.Text, userId, "", time.Now()); err != nil {
		return Rating{}, err
	}

	userRef := rh.FireStore.Collection(usersCollection).Doc(userId)
	locations := rh.FireStore.Collection(locationsCollection)
	query := locations.Where("placeMark", "==", req.PlaceKey).Limit(1)

	var submitted Rating
	err := rh.FireStore.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		userSnap, err := tx.Get(userRef)
		if err != nil {
			if isNotFound(err) {
				return errUserNotFound
			}
			return err
		}
		userName := ""
		if name, err := userSnap.DataAt("name"); err == nil {
			userName, _ = name.(string)
		}

		rating, err := newRating(req.PlaceKey, req.Stars, req.Text, userId, userName, time.Now())
		if err != nil {
			return err
		}

		docs, err := tx.Documents(query).GetAll()
		if err != nil {
			return err
		}
		var locationRef *firestore.DocumentRef
		if len(docs) == 0 {
			description := req.Description
			if description == "" {
				_, description, _ = PlaceHandlers.SplitNameAddress(req.PlaceKey)
			}
			locationRef = locations.NewDoc()
			log.Printf("Creating location %s for %q", locationRef.ID, req.PlaceKey)
			err = tx.Create(locationRef, Location{
				PlaceMark:   req.PlaceKey,
				Description: description,
				PlaceId:     req.PlaceId,
				Geohash:     PlaceHandlers.KeyCell(req.PlaceKey),
			})
			if err != nil {
				return err
			}
		} else {
			locationRef = docs[0].Ref
		}

		ratingRef := locationRef.Collection(ratingsCollection).NewDoc()
		if err := tx.Create(ratingRef, rating); err != nil {
			return err
		}
		err = tx.Update(userRef, []firestore.Update{{Path: "rated", Value: firestore.ArrayUnion(req.PlaceKey)}})
		if err != nil {
			return err
		}
		rating.Id = ratingRef.ID
		submitted = rating
		return nil
	})
	if err != nil {
		return Rating{}, err
	}
	return submitted, nil
}

// fetchRatings returns every rating filed under placeKey. A key nobody rated
// yields an empty slice.
func (rh *RatingHandler) fetchRatings(ctx context.Context, placeKey string) ([]Rating, error) {
	locations, err := rh.FireStore.Collection(locationsCollection).Where("placeMark", "==", placeKey).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("finding locations for %q: %w", placeKey, err)
	}

	ratings := make([]Rating, 0)
	for _, location := range locations {
		docs, err := location.Ref.Collection(ratingsCollection).Documents(ctx).GetAll()
		if err != nil {
			return nil, fmt.Errorf("getting ratings of location %s: %w", location.Ref.ID, err)
		}
		for _, doc := range docs {
			var rating Rating
			if err := doc.DataTo(&rating); err != nil {
				log.Printf("Failed to convert rating %s: %v", doc.Ref.ID, err)
				continue
			}
			rating.Id = doc.Ref.ID
			ratings = append(ratings, rating)
		}
	}
	sortNewestFirst(ratings)
	return ratings, nil
}

func submitStatus(err error) (int, string) {
	switch {
	case errors.Is(err, errInvalidStars), errors.Is(err, errMissingPlaceKey), errors.Is(err, errInvalidPlaceKey):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, errUserNotFound):
		return http.StatusNotFound, err.Error()
	default:
		return http.StatusInternalServerError, "Internal Server Error"
	}
}

func (rh *RatingHandler) SubmitRatingWrapper(w http.ResponseWriter, r *http.Request) {
	authorized, token := Handlers.AuthorizationWrapper(w, r, rh.AuthHandler)
	if !authorized {
		return
	}
	var req submitRatingRequest
	if !Handlers.ReadJSON(w, r, &req) {
		return
	}
	if _, err := newRating(req.PlaceKey, req.Stars, req.Text, token.UID, "", time.Now()); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rating, err := rh.submitRating(r.Context(), token.UID, req)
	if err != nil {
		log.Printf("Failed to submit rating: %v", err)
		code, message := submitStatus(err)
		http.Error(w, message, code)
		return
	}
	log.Printf("Rating %s for %q added", rating.Id, rating.PlaceMark)

	if rh.Notifier != nil {
		go rh.Notifier.handleRatingEvent(RatingEvent{
			UserID:   token.UID,
			PlaceKey: rating.PlaceMark,
			DateTime: time.Now(),
		})
	}
	Handlers.WriteJSON(w, http.StatusCreated, rating)
}

func (rh *RatingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	placeKey := r.URL.Query().Get("placeKey")
	if placeKey == "" {
		http.Error(w, "Place key is required", http.StatusBadRequest)
		return
	}
	ratings, err := rh.fetchRatings(r.Context(), placeKey)
	if err != nil {
		log.Printf("Failed to fetch ratings: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	Handlers.WriteJSON(w, http.StatusOK, Summarize(placeKey, ratings))
}
