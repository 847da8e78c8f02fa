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

type DeletionHandler struct {
	AuthHandler Handlers.TokenVerifier
	FireStore   *firestore.Client
}

// moveUserRatings archives every rating the user wrote, remembering which
// Location it was filed under so a restore can put it back. Ratings move in
// chunks; every chunk commits on its own and a rerun picks up what is left.
func (d *DeletionHandler) moveUserRatings(ctx context.Context, userId string, expiresAt time.Time) error {
	query := d.FireStore.CollectionGroup(ratingsCollection).Where("userid", "==", userId)
	refs, err := queryRefs(ctx, query)
	if err != nil {
		return fmt.Errorf("getting ratings: %w", err)
	}
	archivedRatings := d.FireStore.Collection(archivedRatingsCollection)
	for _, chunk := range refChunks(refs, archiveChunk) {
		err := d.FireStore.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
			// all reads must happen before the first write
			snaps, err := tx.GetAll(chunk)
			if err != nil {
				return err
			}
			for _, snap := range snaps {
				if !snap.Exists() {
					continue
				}
				var rating Rating
				if err := snap.DataTo(&rating); err != nil {
					return fmt.Errorf("converting rating %s: %w", snap.Ref.ID, err)
				}
				archived := ArchivedRating{
					Rating:     rating,
					LocationId: snap.Ref.Parent.Parent.ID,
					ExpiresAt:  expiresAt,
				}
				if err := tx.Set(archivedRatings.Doc(snap.Ref.ID), archived); err != nil {
					return err
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

func (d *DeletionHandler) moveUserData(ctx context.Context, userId string, expiresAt time.Time) error {
	userDoc := d.FireStore.Collection(usersCollection).Doc(userId)
	archived := d.FireStore.Collection(archivedUsersCollection).Doc(userId)
	return d.FireStore.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(userDoc)
		if err != nil {
			if isNotFound(err) {
				return errUserNotFound
			}
			return err
		}
		var user User
		if err := snap.DataTo(&user); err != nil {
			return err
		}
		user.normalize()
		user.ExpiresAt = expiresAt
		if err := tx.Set(archived, user); err != nil {
			return err
		}
		return tx.Delete(userDoc)
	})
}

func (d *DeletionHandler) removeUserFromFriends(ctx context.Context, userId string) {
	for _, field := range []string{"friends", "friendReqRec", "friendReqSent"} {
		query := d.FireStore.Collection(usersCollection).Where(field, "array-contains", userId)
		d.removeUserFromFieldInQuery(ctx, query, field, userId)
	}
}

func (d *DeletionHandler) removeUserFromFieldInQuery(ctx context.Context, query firestore.Query, field string, userId string) {
	err := d.FireStore.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		docs, err := tx.Documents(query).GetAll()
		if err != nil {
			return err
		}
		for _, doc := range docs {
			log.Printf("Removing user %v from %s of %v", userId, field, doc.Ref.ID)
			err := tx.Update(doc.Ref, []firestore.Update{
				{
					Path:  field,
					Value: firestore.ArrayRemove(userId),
				},
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("Failed to remove user from %s: %v", field, err)
	}
}

func (d *DeletionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	authorized, token := Handlers.AuthorizationWrapper(w, r, d.AuthHandler)
	if !authorized {
		return
	}
	ctx := r.Context()
	expiresAt := time.Now().Add(archiveRetention)

	if err := d.moveUserRatings(ctx, token.UID, expiresAt); err != nil {
		log.Printf("Failed to archive ratings of %s: %v", token.UID, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if err := d.moveUserData(ctx, token.UID, expiresAt); err != nil {
		log.Printf("Failed to archive user %s: %v", token.UID, err)
		if err == errUserNotFound {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	d.removeUserFromFriends(ctx, token.UID)

	w.WriteHeader(http.StatusOK)
	_, err := w.Write([]byte("OK"))
	if err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}
