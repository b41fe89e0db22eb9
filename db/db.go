package db

import (
	"context"
	"log"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	EventsCollection        *mongo.Collection
	PlacesCollection        *mongo.Collection
	KeywordsCollection      *mongo.Collection
	KeywordSetsCollection   *mongo.Collection
	OrganizationsCollection *mongo.Collection
	DataSourcesCollection   *mongo.Collection
	LanguagesCollection     *mongo.Collection
	RegistrationsCollection *mongo.Collection
	SignUpsCollection       *mongo.Collection
	MessagesCollection      *mongo.Collection
	ImagesCollection        *mongo.Collection
	FeedbackCollection      *mongo.Collection
	UsersCollection         *mongo.Collection
	Client                  *mongo.Client
)

// Connect establishes the MongoDB connection and binds the collection
// handles. Called once from main before the server starts serving.
func Connect() {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	dbName := os.Getenv("MONGODB_DB")
	if dbName == "" {
		dbName = "linkedevents"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	Client, err = mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}

	database := Client.Database(dbName)
	EventsCollection = database.Collection("events")
	PlacesCollection = database.Collection("places")
	KeywordsCollection = database.Collection("keywords")
	KeywordSetsCollection = database.Collection("keyword_sets")
	OrganizationsCollection = database.Collection("organizations")
	DataSourcesCollection = database.Collection("data_sources")
	LanguagesCollection = database.Collection("languages")
	RegistrationsCollection = database.Collection("registrations")
	SignUpsCollection = database.Collection("signups")
	MessagesCollection = database.Collection("registration_messages")
	ImagesCollection = database.Collection("images")
	FeedbackCollection = database.Collection("feedback")
	UsersCollection = database.Collection("users")

	ensureIndexes(ctx)
}

func ensureIndexes(ctx context.Context) {
	eventIdx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "start_time", Value: 1}}},
		{Keys: bson.D{{Key: "end_time", Value: 1}}},
		{Keys: bson.D{{Key: "keywords", Value: 1}}},
		{Keys: bson.D{{Key: "audience", Value: 1}}},
		{Keys: bson.D{{Key: "publisher", Value: 1}}},
		{Keys: bson.D{{Key: "location", Value: 1}}},
		{Keys: bson.D{{Key: "last_modified_time", Value: -1}}},
	}
	if _, err := EventsCollection.Indexes().CreateMany(ctx, eventIdx); err != nil {
		log.Printf("event index creation: %v", err)
	}
	placeIdx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "position", Value: "2dsphere"}}},
		{Keys: bson.D{{Key: "n_events", Value: -1}}},
	}
	if _, err := PlacesCollection.Indexes().CreateMany(ctx, placeIdx); err != nil {
		log.Printf("place index creation: %v", err)
	}
}

// Disconnect closes the client; used on graceful shutdown.
func Disconnect(ctx context.Context) {
	if Client != nil {
		if err := Client.Disconnect(ctx); err != nil {
			log.Printf("mongo disconnect: %v", err)
		}
	}
}
