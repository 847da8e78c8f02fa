package FirebaseHandlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/ItzBubschki/tr-backend/main/Handlers"
)

type RestoreHandler struct {
	AuthHandler Handlers.TokenVerifier
	FireStore   *firestore.Client
}

// retrieveOldUserData finds an unexpired archive for email.
func (rh *RestoreHandler) retrieveOldUserData(ctx context.Context, email string) (string, User) {
	if email == "" {
		return "", User{}
	}
	docs, err := rh.FireStore.Collection(archivedUsersCollection).Where("email", "==", email).Documents(ctx).GetAll()
	if err != nil {
		log.Printf("Failed to get user: %v", err)
		return "", User{}
	}
	for _, doc := range docs {
		var user User
		if err := doc.DataTo(&user); err != nil {
			log.Printf("Failed to convert data: %v", err)
			continue
		}
		if !user.ExpiresAt.IsZero() && user.ExpiresAt.Before(time.Now()) {
			continue
		}
		user.normalize()
		return doc.Ref.ID, user
	}
	return "", User{}
}

// restoreUserData recreates the user under the new account id. Pending
// requests were dropped from the other side on deletion, so they are cleared.
func (rh *RestoreHandler) restoreUserData(ctx context.Context, newUserId, oldUserId string, user User) error {
	archived := rh.FireStore.Collection(archivedUsersCollection).Doc(oldUserId)
	user.UserId = newUserId
	user.ExpiresAt = time.Time{}
	user.FriendReqRec = []string{}
	user.FriendReqSent = []string{}
	return rh.FireStore.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Set(rh.FireStore.Collection(usersCollection).Doc(newUserId), user); err != nil {
			return err
		}
		return tx.Delete(archived)
	})
}

func (rh *RestoreHandler) restoreRatings(ctx context.Context, newUserId, oldUserId string) error {
	query := rh.FireStore.Collection(archivedRatingsCollection).Where("userid", "==", oldUserId)
	refs, err := queryRefs(ctx, query)
	if err != nil {
		return fmt.Errorf("getting archived ratings: %w", err)
	}
	locations := rh.FireStore.Collection(locationsCollection)
	for _, chunk := range refChunks(refs, archiveChunk) {
		err := rh.FireStore.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
			snaps, err := tx.GetAll(chunk)
			if err != nil {
				return err
			}
			for _, snap := range snaps {
				if !snap.Exists() {
					continue
				}
				var archived ArchivedRating
				if err := snap.DataTo(&archived); err != nil {
					return fmt.Errorf("converting rating %s: %w", snap.Ref.ID, err)
				}
				if archived.LocationId == "" {
					log.Printf("Archived rating %s has no location, dropping it", snap.Ref.ID)
				} else {
					log.Printf("Restoring rating: %v", snap.Ref.ID)
					rating := archived.Rating
					rating.UserId = newUserId
					ref := locations.Doc(archived.LocationId).Collection(ratingsCollection).Doc(snap.Ref.ID)
					if err := tx.Set(ref, rating); err != nil {
						return err
					}
				}
				if err := tx.Delete(snap.Ref); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// restoreUserFriends re-adds the user to friends that still exist.
func (rh *RestoreHandler) restoreUserFriends(ctx context.Context, newUserId string, friends []string) []string {
	kept := make([]string, 0, len(friends))
	for _, friend := range friends {
		doc := rh.FireStore.Collection(usersCollection).Doc(friend)
		_, err := doc.Update(ctx, []firestore.Update{
			{
				Path:  "friends",
				Value: firestore.ArrayUnion(newUserId),
			},
		})
		if err != nil {
			log.Printf("Failed to restore friend %s: %v", friend, err)
			continue
		}
		kept = append(kept, friend)
	}
	return kept
}

func (rh *RestoreHandler) checkIfRestoreAvailable(ctx context.Context, email string) bool {
	id, _ := rh.retrieveOldUserData(ctx, email)
	return id != ""
}

func (rh *RestoreHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		if rh.checkIfRestoreAvailable(r.Context(), r.URL.Query().Get("email")) {
			_, _ = w.Write([]byte("OK"))
			return
		}
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	authorized, token := Handlers.AuthorizationWrapper(w, r, rh.AuthHandler)
	if !authorized {
		return
	}
	if token.Claims["email_verified"] != true {
		log.Println("Email not verified")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	email, _ := token.Claims["email"].(string)
	oldId, user := rh.retrieveOldUserData(r.Context(), email)
	if oldId == "" {
		log.Println("No archived user found")
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	ctx := r.Context()
	if err := rh.restoreRatings(ctx, token.UID, oldId); err != nil {
		log.Printf("Failed to restore ratings: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	user.Friends = rh.restoreUserFriends(ctx, token.UID, user.Friends)
	if err := rh.restoreUserData(ctx, token.UID, oldId, user); err != nil {
		log.Printf("Failed to restore user: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, err := w.Write([]byte("OK"))
	if err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}
