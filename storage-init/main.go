// Command storage-init provisions the database indexes the sync engine's
// access filters and lookups rely on. Safe to run repeatedly.
package main

import (
	"context"
	"os"
	"strconv"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"plansync/storage"
)

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	log.Info("storage init starting")

	uri := os.Getenv("MONGO_URI")
	dbName := os.Getenv("MONGO_DATABASE")
	if uri == "" || dbName == "" {
		log.Fatal("missing mongo config")
	}

	ctx := context.Background()
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer func() { _ = client.Disconnect(ctx) }()

	db := client.Database(dbName)

	// Access filter fields on the three synced collections.
	for _, name := range []string{storage.CollectionEvents, storage.CollectionTaskEvents, storage.CollectionExpenseEvents} {
		if err := createIndexes(ctx, db, name, []mongo.IndexModel{
			{Keys: bson.D{{Key: "createdByUID", Value: 1}}},
			{Keys: bson.D{{Key: "sharedWith", Value: 1}}},
			{Keys: bson.D{{Key: "sharedGroups", Value: 1}}},
		}); err != nil {
			log.Fatalf("indexes for %s: %v", name, err)
		}
	}

	if err := createIndexes(ctx, db, storage.CollectionGroups, []mongo.IndexModel{
		{Keys: bson.D{{Key: "memberIds", Value: 1}}},
	}); err != nil {
		log.Fatalf("indexes for groups: %v", err)
	}

	if err := createIndexes(ctx, db, storage.CollectionUsers, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	}); err != nil {
		log.Fatalf("indexes for users: %v", err)
	}

	log.Info("storage init complete")
}

func createIndexes(ctx context.Context, db *mongo.Database, collection string, models []mongo.IndexModel) error {
	_, err := db.Collection(collection).Indexes().CreateMany(ctx, models)
	if err == nil {
		log.WithField("collection", collection).Debug("indexes ensured")
	}
	return err
}
