package PlaceHandlers

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PlaceCache stores resolved places by place key.
// FetchFromCache returns a zero Place and no error on a miss.
type PlaceCache interface {
	FetchFromCache(ctx context.Context, placeKey string) (Place, error)
	SaveInCache(ctx context.Context, places []Place)
}

const cacheTTL = 7 * 24 * time.Hour

type MongoHandler struct {
	client     *mongo.Client
	collection *mongo.Collection
}

type cachedPlace struct {
	Place    `bson:",inline"`
	CachedAt time.Time `bson:"cachedat"`
}

func NewMongoHandler(mongoHost string) (*MongoHandler, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(fmt.Sprintf("mongodb://%s:27017", mongoHost))
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	collection := client.Database("tr-cache").Collection("places")
	_, err = collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "placekey", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "cachedat", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(cacheTTL.Seconds())),
		},
	})
	if err != nil {
		log.Printf("Failed to create cache indexes: %v", err)
	}

	return &MongoHandler{
		client:     client,
		collection: collection,
	}, nil
}

func (m *MongoHandler) FetchFromCache(ctx context.Context, placeKey string) (Place, error) {
	filter := bson.M{"placekey": placeKey}
	result := m.collection.FindOne(ctx, filter)
	if err := result.Err(); err != nil {
		if err == mongo.ErrNoDocuments {
			return Place{}, nil
		}
		return Place{}, err
	}

	var cached cachedPlace
	if err := result.Decode(&cached); err != nil {
		return Place{}, err
	}
	return cached.Place, nil
}

// SaveInCache stores places that are not cached yet; existing entries are left alone.
func (m *MongoHandler) SaveInCache(ctx context.Context, places []Place) {
	for _, place := range places {
		if place.Key == "" {
			continue
		}
		filter := bson.M{"placekey": place.Key}
		update := bson.M{"$setOnInsert": cachedPlace{Place: place, CachedAt: time.Now()}}
		_, err := m.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
		if err != nil {
			log.Println("Failed to save cache:", err)
		}
	}
}

func (m *MongoHandler) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
