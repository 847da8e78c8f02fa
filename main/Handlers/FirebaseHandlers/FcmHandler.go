package FirebaseHandlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"firebase.google.com/go/v4/messaging"
	"github.com/ItzBubschki/tr-backend/main/Handlers"
	"github.com/ItzBubschki/tr-backend/main/Handlers/PlaceHandlers"
)

const notificationDelay = 5 * time.Minute

type FcmHandler struct {
	AuthHandler Handlers.TokenVerifier
	FireStore   *firestore.Client
	Messaging   *messaging.Client
	// Delay batches ratings a user submits in quick succession into one push.
	Delay       time.Duration
	mutex       sync.Mutex
	userRatings map[string]RatingEvent
	dispatch    func(RatingEvent)
}

type RatingEvent struct {
	UserID   string
	PlaceKey string
	DateTime time.Time
	Multiple bool
}

type MessageData struct {
	Link string
}

func (fcm *FcmHandler) getUserInfo(ctx context.Context, userId string) User {
	user, _, err := getUser(ctx, fcm.FireStore, userId)
	if err != nil {
		log.Printf("Failed to get user: %v", err)
		return User{}
	}
	return user
}

func (fcm *FcmHandler) SubscribeToUser(ctx context.Context, token, friendId string) {
	if token == "" || fcm.Messaging == nil {
		return
	}
	response, err := fcm.Messaging.SubscribeToTopic(ctx, []string{token}, friendId)
	if err != nil {
		log.Printf("Failed to subscribe to topic: %v", err)
		return
	}
	log.Printf("%d tokens subscribed to %s, %d failed", response.SuccessCount, friendId, response.FailureCount)
}

func (fcm *FcmHandler) UnsubscribeFromUser(ctx context.Context, token, topic string) {
	if token == "" || fcm.Messaging == nil {
		return
	}
	response, err := fcm.Messaging.UnsubscribeFromTopic(ctx, []string{token}, topic)
	if err != nil {
		log.Printf("Failed to unsubscribe from topic: %v", err)
		return
	}
	log.Printf("%d tokens unsubscribed from %s, %d failed", response.SuccessCount, topic, response.FailureCount)
}

// notificationData builds the payload friends of userName receive for event.
func notificationData(userName string, event RatingEvent) map[string]string {
	if userName == "" {
		userName = "Someone"
	}
	place := PlaceHandlers.DisplayName(event.PlaceKey)
	data, _ := json.Marshal(MessageData{Link: fmt.Sprintf("/profile/inspect/%s?from=/", event.UserID)})
	var content string
	if event.Multiple {
		content = fmt.Sprintf("%s rated %s and more. See what they thought!", userName, place)
	} else {
		content = fmt.Sprintf("%s rated %s. See what they thought!", userName, place)
	}
	return map[string]string{
		"title":   fmt.Sprintf("%s rated a place.", userName),
		"message": content,
		"body":    string(data),
	}
}

func (fcm *FcmHandler) sendNotificationToFriends(event RatingEvent) {
	if fcm.Messaging == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	user := fcm.getUserInfo(ctx, event.UserID)
	if len(user.Friends) == 0 {
		return
	}
	result, err := fcm.Messaging.Send(ctx, &messaging.Message{
		Topic: event.UserID,
		Data:  notificationData(user.Name, event),
	})
	if err != nil {
		log.Printf("Failed to send notification: %v", err)
		return
	}
	log.Printf("Successfully sent notification: %v", result)
}

func (fcm *FcmHandler) handleRatingEvent(event RatingEvent) {
	fcm.mutex.Lock()
	defer fcm.mutex.Unlock()
	if fcm.userRatings == nil {
		fcm.userRatings = make(map[string]RatingEvent)
	}
	delay := fcm.Delay
	if delay <= 0 {
		delay = notificationDelay
	}

	pending, ok := fcm.userRatings[event.UserID]
	if ok && event.DateTime.Sub(pending.DateTime) < delay {
		log.Printf("Notification for %s already scheduled", event.UserID)
		pending.Multiple = true
		fcm.userRatings[event.UserID] = pending
		return
	}

	log.Printf("Sending notification for %s in %s", event.UserID, delay)
	fcm.userRatings[event.UserID] = event
	time.AfterFunc(delay, func() {
		fcm.mutex.Lock()
		stored, ok := fcm.userRatings[event.UserID]
		if !ok || !stored.DateTime.Equal(event.DateTime) {
			fcm.mutex.Unlock()
			return
		}
		delete(fcm.userRatings, event.UserID)
		dispatch := fcm.dispatch
		fcm.mutex.Unlock()

		if dispatch == nil {
			dispatch = fcm.sendNotificationToFriends
		}
		dispatch(stored)
	})
}

// tokenWrapper applies action to the device token for every friend's topic.
func (fcm *FcmHandler) tokenWrapper(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, token, topic string)) {
	authorized, token := Handlers.AuthorizationWrapper(w, r, fcm.AuthHandler)
	if !authorized {
		return
	}
	notificationToken := r.URL.Query().Get("token")
	if notificationToken == "" {
		http.Error(w, "No token provided", http.StatusBadRequest)
		return
	}
	for _, friendId := range fcm.getUserInfo(r.Context(), token.UID).Friends {
		action(r.Context(), notificationToken, friendId)
	}
	w.WriteHeader(http.StatusOK)
	_, err := w.Write([]byte("OK"))
	if err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

func (fcm *FcmHandler) AddedTokenWrapper(w http.ResponseWriter, r *http.Request) {
	fcm.tokenWrapper(w, r, fcm.SubscribeToUser)
}

// RemovedTokenWrapper is called on sign-out so the device stops receiving pushes.
func (fcm *FcmHandler) RemovedTokenWrapper(w http.ResponseWriter, r *http.Request) {
	fcm.tokenWrapper(w, r, fcm.UnsubscribeFromUser)
}
