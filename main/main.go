package main

import (
	"context"
	"log"
	"net/http"

	firebase "firebase.google.com/go/v4"
	"github.com/ItzBubschki/tr-backend/main/Handlers"
	"github.com/ItzBubschki/tr-backend/main/Handlers/FirebaseHandlers"
	"github.com/ItzBubschki/tr-backend/main/Handlers/PlaceHandlers"
	"github.com/rs/cors"
	"google.golang.org/api/option"
)

func main() {
	config := Handlers.LoadConfig()
	ctx := context.Background()

	var opts []option.ClientOption
	if config.FirebaseCredentials != "" {
		opts = append(opts, option.WithCredentialsFile(config.FirebaseCredentials))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{StorageBucket: config.StorageBucket}, opts...)
	if err != nil {
		log.Fatalf("error initializing app: %v\n", err)
	}
	authClient, err := app.Auth(ctx)
	if err != nil {
		log.Fatalf("error getting Auth client: %v\n", err)
	}
	fireStore, err := app.Firestore(ctx)
	if err != nil {
		log.Fatalf("error getting Firestore client: %v\n", err)
	}
	defer fireStore.Close()
	messagingClient, err := app.Messaging(ctx)
	if err != nil {
		log.Fatalf("error getting Messaging client: %v\n", err)
	}

	pictures := &FirebaseHandlers.PictureStore{}
	storageClient, err := app.Storage(ctx)
	if err != nil {
		log.Printf("Storage unavailable, profile pictures disabled: %v", err)
	} else if bucket, err := storageClient.DefaultBucket(); err != nil {
		log.Printf("No storage bucket, profile pictures disabled: %v", err)
	} else {
		pictures.Bucket = bucket
	}

	// the cache is optional; without it every resolve goes to the gateway
	var cache PlaceHandlers.PlaceCache
	mongoHandler, err := PlaceHandlers.NewMongoHandler(config.MongoHost)
	if err != nil {
		log.Println("Failed to create MongoHandler:", err)
	} else {
		defer mongoHandler.Close(context.Background())
		cache = mongoHandler
	}

	gateway := PlaceHandlers.NewGatewayClient(config.MapBaseUrl, config.MapApiKey, config.MapUserAgent)
	resolver := PlaceHandlers.NewResolver(gateway, cache)
	resolver.Workers = config.ResolveWorkers
	resolver.ItemTimeout = config.ResolveItemTimeout
	resolver.BatchTimeout = config.ResolveBatchTimeout

	searchHandler := &PlaceHandlers.SearchHandler{
		Search: gateway,
		Cache:  cache,
	}
	inspectHandler := &PlaceHandlers.InspectHandler{
		Resolver: resolver,
	}
	fcmHandler := &FirebaseHandlers.FcmHandler{
		AuthHandler: authClient,
		FireStore:   fireStore,
		Messaging:   messagingClient,
	}
	ratingHandler := &FirebaseHandlers.RatingHandler{
		AuthHandler: authClient,
		FireStore:   fireStore,
		Notifier:    fcmHandler,
	}
	friendHandler := &FirebaseHandlers.FriendHandler{
		AuthHandler: authClient,
		FireStore:   fireStore,
		Pictures:    pictures,
	}
	profileHandler := &FirebaseHandlers.ProfileHandler{
		AuthHandler: authClient,
		FireStore:   fireStore,
		Pictures:    pictures,
	}
	placesHandler := &FirebaseHandlers.PlacesHandler{
		AuthHandler: authClient,
		FireStore:   fireStore,
		Resolver:    resolver,
	}
	deletionHandler := &FirebaseHandlers.DeletionHandler{
		AuthHandler: authClient,
		FireStore:   fireStore,
	}
	restoreHandler := &FirebaseHandlers.RestoreHandler{
		AuthHandler: authClient,
		FireStore:   fireStore,
	}

	mux := http.NewServeMux()

	mux.Handle("/search", searchHandler)
	mux.Handle("/inspect", inspectHandler)

	mux.HandleFunc("/register", profileHandler.RegisterWrapper)
	mux.HandleFunc("/profile", profileHandler.ProfileWrapper)
	mux.HandleFunc("/profile/update", profileHandler.UpdateWrapper)
	mux.HandleFunc("/profile/picture", profileHandler.PictureWrapper)
	mux.HandleFunc("/users", profileHandler.UsersWrapper)

	mux.Handle("/ratings", ratingHandler)
	mux.HandleFunc("/ratings/submit", ratingHandler.SubmitRatingWrapper)
	mux.HandleFunc("/places/rated", placesHandler.RatedWrapper)
	mux.HandleFunc("/places/friends", placesHandler.FriendsWrapper)
	mux.HandleFunc("/places/nearby", placesHandler.NearbyWrapper)

	mux.HandleFunc("/friends", friendHandler.FriendsWrapper)
	mux.HandleFunc("/friends/requests", friendHandler.RequestsWrapper)
	mux.HandleFunc("/friends/send", friendHandler.SendRequestWrapper)
	mux.HandleFunc("/friends/accept", friendHandler.AcceptRequestWrapper)
	mux.HandleFunc("/friends/decline", friendHandler.DeclineRequestWrapper)
	mux.HandleFunc("/friends/revoke", friendHandler.RevokeRequestWrapper)
	mux.HandleFunc("/friends/remove", friendHandler.RemoveFriendWrapper)

	mux.HandleFunc("/notifications/token", fcmHandler.AddedTokenWrapper)
	mux.HandleFunc("/notifications/token/remove", fcmHandler.RemovedTokenWrapper)
	mux.Handle("/account/delete", deletionHandler)
	mux.Handle("/account/restore", restoreHandler)

	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler(mux)

	log.Printf("Server listening on http://localhost:%s/", config.Port)
	log.Fatal(http.ListenAndServe(":"+config.Port, handler))
}
