package FirebaseHandlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var errUserNotFound = errors.New("user doesn't exist")

// archiveChunk bounds the documents moved per transaction. Each move is a
// set plus a delete and Firestore caps a transaction at 500 writes.
var archiveChunk = 200

func refChunks(refs []*firestore.DocumentRef, size int) [][]*firestore.DocumentRef {
	chunks := make([][]*firestore.DocumentRef, 0, (len(refs)+size-1)/size)
	for len(refs) > size {
		chunks = append(chunks, refs[:size])
		refs = refs[size:]
	}
	if len(refs) > 0 {
		chunks = append(chunks, refs)
	}
	return chunks
}

// queryRefs lists the documents matching query without reading their data.
func queryRefs(ctx context.Context, query firestore.Query) ([]*firestore.DocumentRef, error) {
	docs, err := query.Select().Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	refs := make([]*firestore.DocumentRef, len(docs))
	for i, doc := range docs {
		refs[i] = doc.Ref
	}
	return refs, nil
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// userStatus maps a getUser error to a response; only a missing document is a 404.
func userStatus(err error) (int, string) {
	if errors.Is(err, errUserNotFound) {
		return http.StatusNotFound, err.Error()
	}
	return http.StatusInternalServerError, "Internal Server Error"
}

func getUser(ctx context.Context, fs *firestore.Client, userId string) (User, *firestore.DocumentRef, error) {
	ref := fs.Collection(usersCollection).Doc(userId)
	snap, err := ref.Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return User{}, ref, errUserNotFound
		}
		return User{}, ref, fmt.Errorf("getting user %s: %w", userId, err)
	}
	var user User
	if err := snap.DataTo(&user); err != nil {
		return User{}, ref, fmt.Errorf("converting user %s: %w", userId, err)
	}
	user.normalize()
	return user, ref, nil
}

// getUsers reads several users in one round trip; missing ones are skipped.
func getUsers(ctx context.Context, fs *firestore.Client, userIds []string) (map[string]User, error) {
	users := make(map[string]User, len(userIds))
	if len(userIds) == 0 {
		return users, nil
	}
	refs := make([]*firestore.DocumentRef, 0, len(userIds))
	for _, id := range userIds {
		if id == "" {
			continue
		}
		refs = append(refs, fs.Collection(usersCollection).Doc(id))
	}
	snaps, err := fs.GetAll(ctx, refs)
	if err != nil {
		return nil, fmt.Errorf("getting users: %w", err)
	}
	for _, snap := range snaps {
		if !snap.Exists() {
			continue
		}
		var user User
		if err := snap.DataTo(&user); err != nil {
			log.Printf("Failed to convert user %s: %v", snap.Ref.ID, err)
			continue
		}
		user.normalize()
		users[snap.Ref.ID] = user
	}
	return users, nil
}
