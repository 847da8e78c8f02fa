package FirebaseHandlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sort"
	"strings"

	"cloud.google.com/go/firestore"
	"github.com/ItzBubschki/tr-backend/main/Handlers"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	maxPictureBytes = 10 << 20
	maxUserListing  = 500
)

var errInvalidPermissions = errors.New("profilePermissions must be Public or Friends-Only")

type ProfileHandler struct {
	AuthHandler Handlers.TokenVerifier
	FireStore   *firestore.Client
	Pictures    *PictureStore
}

type registerRequest struct {
	Name               string `json:"name"`
	Bio                string `json:"bio"`
	ProfilePermissions string `json:"profilePermissions"`
}

type updateProfileRequest struct {
	Name               *string `json:"name"`
	Bio                *string `json:"bio"`
	ProfilePermissions *string `json:"profilePermissions"`
}

func validPermissions(permissions string) bool {
	return permissions == PermissionPublic || permissions == PermissionFriendsOnly
}

// canSeeDetails reports whether viewerId may see bio, friends and rated places.
func canSeeDetails(viewerId, targetId string, target User) bool {
	return viewerId == targetId ||
		target.ProfilePermissions != PermissionFriendsOnly ||
		Handlers.ArrayContains(target.Friends, viewerId)
}

func buildProfile(viewerId, targetId string, target User, pictureUrl string) Profile {
	target.normalize()
	profile := Profile{
		UserSummary: UserSummary{
			Id:            targetId,
			Name:          target.Name,
			ProfilePicUrl: pictureUrl,
		},
		Permissions:     target.ProfilePermissions,
		IsSelf:          viewerId == targetId,
		IsFriend:        Handlers.ArrayContains(target.Friends, viewerId),
		RequestPending:  Handlers.ArrayContains(target.FriendReqRec, viewerId),
		RequestReceived: Handlers.ArrayContains(target.FriendReqSent, viewerId),
	}
	if !canSeeDetails(viewerId, targetId, target) {
		profile.Restricted = true
		return profile
	}
	profile.Bio = target.Bio
	profile.Rated = target.Rated
	profile.Friends = target.Friends
	return profile
}

// filterUsers matches names case-insensitively, leaving out the caller.
func filterUsers(users map[string]User, search, self string) []string {
	search = strings.ToLower(strings.TrimSpace(search))
	ids := make([]string, 0, len(users))
	for id, user := range users {
		if id == self {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(user.Name), search) {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := strings.ToLower(users[ids[i]].Name), strings.ToLower(users[ids[j]].Name)
		if a == b {
			return ids[i] < ids[j]
		}
		return a < b
	})
	return ids
}

func (ph *ProfileHandler) register(ctx context.Context, userId, email string, req registerRequest) (int, string) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return http.StatusBadRequest, "name is required"
	}
	permissions := req.ProfilePermissions
	if permissions == "" {
		permissions = PermissionPublic
	}
	if !validPermissions(permissions) {
		return http.StatusBadRequest, errInvalidPermissions.Error()
	}
	user := User{
		Name:               name,
		Email:              email,
		UserId:             userId,
		Bio:                req.Bio,
		ProfilePermissions: permissions,
	}
	user.normalize()
	_, err := ph.FireStore.Collection(usersCollection).Doc(userId).Create(ctx, user)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return http.StatusConflict, "user already registered"
		}
		log.Printf("Failed to register user %s: %v", userId, err)
		return http.StatusInternalServerError, "Internal Server Error"
	}
	log.Printf("Registered user %s", userId)
	return http.StatusCreated, "Ok"
}

func (ph *ProfileHandler) RegisterWrapper(w http.ResponseWriter, r *http.Request) {
	authorized, token := Handlers.AuthorizationWrapper(w, r, ph.AuthHandler)
	if !authorized {
		return
	}
	var req registerRequest
	if !Handlers.ReadJSON(w, r, &req) {
		return
	}
	email, _ := token.Claims["email"].(string)
	code, message := ph.register(r.Context(), token.UID, email, req)
	w.WriteHeader(code)
	_, _ = w.Write([]byte(message))
}

// ProfileWrapper shows the profile named by ?userId=, or the caller's own.
func (ph *ProfileHandler) ProfileWrapper(w http.ResponseWriter, r *http.Request) {
	authorized, token := Handlers.AuthorizationWrapper(w, r, ph.AuthHandler)
	if !authorized {
		return
	}
	targetId := r.URL.Query().Get("userId")
	if targetId == "" {
		targetId = token.UID
	}
	target, _, err := getUser(r.Context(), ph.FireStore, targetId)
	if err != nil {
		log.Printf("Failed to get profile: %v", err)
		code, message := userStatus(err)
		http.Error(w, message, code)
		return
	}
	Handlers.WriteJSON(w, http.StatusOK, buildProfile(token.UID, targetId, target, ph.Pictures.URL(target.ProfilePic)))
}

func (ph *ProfileHandler) UpdateWrapper(w http.ResponseWriter, r *http.Request) {
	authorized, token := Handlers.AuthorizationWrapper(w, r, ph.AuthHandler)
	if !authorized {
		return
	}
	var req updateProfileRequest
	if !Handlers.ReadJSON(w, r, &req) {
		return
	}
	var updates []firestore.Update
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			http.Error(w, "name is required", http.StatusBadRequest)
			return
		}
		updates = append(updates, firestore.Update{Path: "name", Value: name})
	}
	if req.Bio != nil {
		updates = append(updates, firestore.Update{Path: "bio", Value: *req.Bio})
	}
	if req.ProfilePermissions != nil {
		if !validPermissions(*req.ProfilePermissions) {
			http.Error(w, errInvalidPermissions.Error(), http.StatusBadRequest)
			return
		}
		updates = append(updates, firestore.Update{Path: "profilePermissions", Value: *req.ProfilePermissions})
	}
	if len(updates) == 0 {
		http.Error(w, "Nothing to update", http.StatusBadRequest)
		return
	}
	_, err := ph.FireStore.Collection(usersCollection).Doc(token.UID).Update(r.Context(), updates)
	if err != nil {
		if isNotFound(err) {
			http.Error(w, errUserNotFound.Error(), http.StatusNotFound)
			return
		}
		log.Printf("Failed to update profile %s: %v", token.UID, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Ok"))
}

// PictureWrapper takes the raw image as the request body.
func (ph *ProfileHandler) PictureWrapper(w http.ResponseWriter, r *http.Request) {
	authorized, token := Handlers.AuthorizationWrapper(w, r, ph.AuthHandler)
	if !authorized {
		return
	}
	user, ref, err := getUser(r.Context(), ph.FireStore, token.UID)
	if err != nil {
		log.Printf("Failed to get user: %v", err)
		code, message := userStatus(err)
		http.Error(w, message, code)
		return
	}
	name, err := ph.Pictures.Upload(r.Context(), http.MaxBytesReader(w, r.Body, maxPictureBytes))
	if err != nil {
		log.Printf("Failed to upload picture: %v", err)
		if errors.Is(err, errNoBucket) {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		http.Error(w, "Invalid picture", http.StatusBadRequest)
		return
	}
	if _, err := ref.Update(r.Context(), []firestore.Update{{Path: "profilePic", Value: name}}); err != nil {
		log.Printf("Failed to store picture name: %v", err)
		ph.Pictures.Delete(context.Background(), name)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if user.ProfilePic != "" && user.ProfilePic != name {
		go ph.Pictures.Delete(context.Background(), user.ProfilePic)
	}
	Handlers.WriteJSON(w, http.StatusOK, UserSummary{
		Id:            token.UID,
		Name:          user.Name,
		ProfilePicUrl: ph.Pictures.URL(name),
	})
}

// UsersWrapper lists other users, optionally filtered by ?search=.
func (ph *ProfileHandler) UsersWrapper(w http.ResponseWriter, r *http.Request) {
	authorized, token := Handlers.AuthorizationWrapper(w, r, ph.AuthHandler)
	if !authorized {
		return
	}
	docs, err := ph.FireStore.Collection(usersCollection).Limit(maxUserListing).Documents(r.Context()).GetAll()
	if err != nil {
		log.Printf("Failed to list users: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	users := make(map[string]User, len(docs))
	for _, doc := range docs {
		var user User
		if err := doc.DataTo(&user); err != nil {
			log.Printf("Failed to convert user %s: %v", doc.Ref.ID, err)
			continue
		}
		users[doc.Ref.ID] = user
	}
	ids := filterUsers(users, r.URL.Query().Get("search"), token.UID)
	Handlers.WriteJSON(w, http.StatusOK, summarize(ids, users, ph.Pictures))
}
