package FirebaseHandlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"cloud.google.com/go/firestore"
	"github.com/ItzBubschki/tr-backend/main/Handlers"
)

type FriendHandler struct {
	AuthHandler Handlers.TokenVerifier
	FireStore   *firestore.Client
	Pictures    *PictureStore
}

type friendError struct {
	code    int
	message string
}

func (e *friendError) Error() string {
	return e.message
}

// statusAcceptedInstead answers a send that turned into an accept because the
// other user had already asked.
const statusAcceptedInstead = 210

var (
	errSelfRequest    = &friendError{http.StatusBadRequest, "cannot add yourself"}
	errAlreadyFriends = &friendError{http.StatusBadRequest, "friend already added"}
	errAlreadySent    = &friendError{http.StatusBadRequest, "friend request already sent"}
	errNoRequest      = &friendError{http.StatusBadRequest, "no friend request"}
	errNoSentRequest  = &friendError{http.StatusBadRequest, "no friend request sent to this user"}
	errNotFriends     = &friendError{http.StatusBadRequest, "Not friends with user"}
	errNoUser         = &friendError{http.StatusNotFound, "user doesn't exist"}
	errNoFriend       = &friendError{http.StatusNotFound, "friend doesn't exist"}
)

// A transition mutates both sides of a (user, friend) pair in memory. It is
// applied inside a transaction, so either both documents change or neither does.
type transition func(user, friend *User, userId, friendId string) error

func sendTransition(user, friend *User, userId, friendId string) (bool, error) {
	if Handlers.ArrayContains(user.Friends, friendId) {
		return false, errAlreadyFriends
	}
	if Handlers.ArrayContains(user.FriendReqSent, friendId) {
		return false, errAlreadySent
	}
	if Handlers.ArrayContains(user.FriendReqRec, friendId) {
		return true, acceptTransition(user, friend, userId, friendId)
	}
	user.FriendReqSent = Handlers.ArrayUnion(user.FriendReqSent, friendId)
	friend.FriendReqRec = Handlers.ArrayUnion(friend.FriendReqRec, userId)
	return false, nil
}

// acceptTransition: user accepts the request friend sent.
func acceptTransition(user, friend *User, userId, friendId string) error {
	if !Handlers.ArrayContains(user.FriendReqRec, friendId) {
		return errNoRequest
	}
	user.Friends = Handlers.ArrayUnion(user.Friends, friendId)
	friend.Friends = Handlers.ArrayUnion(friend.Friends, userId)
	clearPending(user, friend, userId, friendId)
	return nil
}

func declineTransition(user, friend *User, userId, friendId string) error {
	if !Handlers.ArrayContains(user.FriendReqRec, friendId) && !Handlers.ArrayContains(friend.FriendReqSent, userId) {
		return errNoRequest
	}
	clearPending(user, friend, userId, friendId)
	return nil
}

func revokeTransition(user, friend *User, userId, friendId string) error {
	if !Handlers.ArrayContains(user.FriendReqSent, friendId) {
		return errNoSentRequest
	}
	user.FriendReqSent = Handlers.ArrayRemove(user.FriendReqSent, friendId)
	friend.FriendReqRec = Handlers.ArrayRemove(friend.FriendReqRec, userId)
	return nil
}

func removeTransition(user, friend *User, userId, friendId string) error {
	if !Handlers.ArrayContains(user.Friends, friendId) && !Handlers.ArrayContains(friend.Friends, userId) {
		return errNotFriends
	}
	user.Friends = Handlers.ArrayRemove(user.Friends, friendId)
	friend.Friends = Handlers.ArrayRemove(friend.Friends, userId)
	return nil
}

func clearPending(user, friend *User, userId, friendId string) {
	user.FriendReqRec = Handlers.ArrayRemove(user.FriendReqRec, friendId)
	user.FriendReqSent = Handlers.ArrayRemove(user.FriendReqSent, friendId)
	friend.FriendReqSent = Handlers.ArrayRemove(friend.FriendReqSent, userId)
	friend.FriendReqRec = Handlers.ArrayRemove(friend.FriendReqRec, userId)
}

func socialUpdates(user *User) []firestore.Update {
	user.normalize()
	return []firestore.Update{
		{Path: "friends", Value: user.Friends},
		{Path: "friendReqSent", Value: user.FriendReqSent},
		{Path: "friendReqRec", Value: user.FriendReqRec},
	}
}

// runPair reads both users, applies apply and writes both back in one transaction.
func (f *FriendHandler) runPair(ctx context.Context, userId, friendId string, apply transition) error {
	if userId == friendId {
		return errSelfRequest
	}
	userRef := f.FireStore.Collection(usersCollection).Doc(userId)
	friendRef := f.FireStore.Collection(usersCollection).Doc(friendId)

	return f.FireStore.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snaps, err := tx.GetAll([]*firestore.DocumentRef{userRef, friendRef})
		if err != nil {
			return err
		}
		if !snaps[0].Exists() {
			return errNoUser
		}
		if !snaps[1].Exists() {
			return errNoFriend
		}
		var user, friend User
		if err := snaps[0].DataTo(&user); err != nil {
			return err
		}
		if err := snaps[1].DataTo(&friend); err != nil {
			return err
		}
		user.normalize()
		friend.normalize()

		if err := apply(&user, &friend, userId, friendId); err != nil {
			return err
		}
		if err := tx.Update(userRef, socialUpdates(&user)); err != nil {
			return err
		}
		return tx.Update(friendRef, socialUpdates(&friend))
	})
}

func friendStatus(err error) (int, string) {
	if err == nil {
		return http.StatusOK, "Ok"
	}
	var fe *friendError
	if errors.As(err, &fe) {
		return fe.code, fe.message
	}
	log.Printf("Friend transaction failed: %v", err)
	return http.StatusInternalServerError, "Internal Server Error"
}

func (f *FriendHandler) sendFriendRequest(ctx context.Context, userId, friendId string) (int, string) {
	accepted := false
	err := f.runPair(ctx, userId, friendId, func(user, friend *User, userId, friendId string) error {
		var err error
		accepted, err = sendTransition(user, friend, userId, friendId)
		return err
	})
	if err == nil && accepted {
		return statusAcceptedInstead, "Ok"
	}
	return friendStatus(err)
}

func (f *FriendHandler) acceptFriendRequest(ctx context.Context, userId, friendId string) (int, string) {
	return friendStatus(f.runPair(ctx, userId, friendId, acceptTransition))
}

func (f *FriendHandler) declineFriendRequest(ctx context.Context, userId, friendId string) (int, string) {
	return friendStatus(f.runPair(ctx, userId, friendId, declineTransition))
}

func (f *FriendHandler) revokeFriendRequest(ctx context.Context, userId, friendId string) (int, string) {
	return friendStatus(f.runPair(ctx, userId, friendId, revokeTransition))
}

func (f *FriendHandler) removeFriend(ctx context.Context, userId, friendId string) (int, string) {
	return friendStatus(f.runPair(ctx, userId, friendId, removeTransition))
}

func (f *FriendHandler) authorizationWrapper(w http.ResponseWriter, r *http.Request) (bool, string, string) {
	authorized, token := Handlers.AuthorizationWrapper(w, r, f.AuthHandler)
	if !authorized {
		return false, "", ""
	}
	friendId := r.URL.Query().Get("friendId")
	if friendId == "" {
		http.Error(w, "Missing friendId", http.StatusBadRequest)
		return false, "", ""
	}
	return true, token.UID, friendId
}

func (f *FriendHandler) wrap(action func(ctx context.Context, userId, friendId string) (int, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorized, uid, friendId := f.authorizationWrapper(w, r)
		if !authorized {
			return
		}
		code, message := action(r.Context(), uid, friendId)
		w.WriteHeader(code)
		_, _ = w.Write([]byte(message))
	}
}

func (f *FriendHandler) SendRequestWrapper(w http.ResponseWriter, r *http.Request) {
	f.wrap(f.sendFriendRequest)(w, r)
}

func (f *FriendHandler) AcceptRequestWrapper(w http.ResponseWriter, r *http.Request) {
	f.wrap(f.acceptFriendRequest)(w, r)
}

func (f *FriendHandler) DeclineRequestWrapper(w http.ResponseWriter, r *http.Request) {
	f.wrap(f.declineFriendRequest)(w, r)
}

func (f *FriendHandler) RevokeRequestWrapper(w http.ResponseWriter, r *http.Request) {
	f.wrap(f.revokeFriendRequest)(w, r)
}

func (f *FriendHandler) RemoveFriendWrapper(w http.ResponseWriter, r *http.Request) {
	f.wrap(f.removeFriend)(w, r)
}

type friendRequests struct {
	Received []UserSummary `json:"received"`
	Sent     []UserSummary `json:"sent"`
}

func (f *FriendHandler) FriendsWrapper(w http.ResponseWriter, r *http.Request) {
	authorized, token := Handlers.AuthorizationWrapper(w, r, f.AuthHandler)
	if !authorized {
		return
	}
	user, _, err := getUser(r.Context(), f.FireStore, token.UID)
	if err != nil {
		log.Printf("Failed to get user: %v", err)
		code, message := userStatus(err)
		http.Error(w, message, code)
		return
	}
	friends, err := getUsers(r.Context(), f.FireStore, user.Friends)
	if err != nil {
		log.Printf("Failed to get friends: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	Handlers.WriteJSON(w, http.StatusOK, summarize(user.Friends, friends, f.Pictures))
}

func (f *FriendHandler) RequestsWrapper(w http.ResponseWriter, r *http.Request) {
	authorized, token := Handlers.AuthorizationWrapper(w, r, f.AuthHandler)
	if !authorized {
		return
	}
	user, _, err := getUser(r.Context(), f.FireStore, token.UID)
	if err != nil {
		log.Printf("Failed to get user: %v", err)
		code, message := userStatus(err)
		http.Error(w, message, code)
		return
	}
	ids := append(append([]string{}, user.FriendReqRec...), user.FriendReqSent...)
	users, err := getUsers(r.Context(), f.FireStore, ids)
	if err != nil {
		log.Printf("Failed to get requests: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	Handlers.WriteJSON(w, http.StatusOK, friendRequests{
		Received: summarize(user.FriendReqRec, users, f.Pictures),
		Sent:     summarize(user.FriendReqSent, users, f.Pictures),
	})
}
