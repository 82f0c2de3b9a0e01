package storage

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Collection names used by the engine.
const (
	CollectionEvents        = "events"
	CollectionTaskEvents    = "taskevents"
	CollectionExpenseEvents = "expenseevents"
	CollectionGroups        = "groups"
	CollectionUsers         = "users"
)

// BatchOp is one document write inside a per-collection batch. Batches are
// atomic within a single collection only; nothing coordinates writes across
// collections.
type BatchOp struct {
	ID       string
	Document any
	Delete   bool
}

// Client provides access to the remote document database.
type Client struct {
	db       *mongo.Database
	notifier *Notifier
}

// Connect dials the database, verifies connectivity and returns a Client.
// The notifier may be nil, in which case writes do not announce changes.
func Connect(ctx context.Context, uri, dbName string, notifier *Notifier) (*Client, error) {
	cli, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := cli.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return &Client{db: cli.Database(dbName), notifier: notifier}, nil
}

// Query returns one full snapshot of the documents matching the predicate,
// up to limit documents. Ordering beyond the backend default is not
// guaranteed.
func (c *Client) Query(ctx context.Context, collection string, predicate bson.D, limit int) ([]bson.Raw, error) {
	opts := options.Find()
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}
	cur, err := c.db.Collection(collection).Find(ctx, predicate, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	docs := make([]bson.Raw, 0, limit)
	for cur.Next(ctx) {
		// cur.Current is reused between iterations.
		raw := make(bson.Raw, len(cur.Current))
		copy(raw, cur.Current)
		docs = append(docs, raw)
	}
	return docs, cur.Err()
}

// Get fetches a single document by id, returning nil when it does not exist.
func (c *Client) Get(ctx context.Context, collection, id string) (bson.Raw, error) {
	raw, err := c.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Raw()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	out := make(bson.Raw, len(raw))
	copy(out, raw)
	return out, nil
}

// Batch applies the ops against one collection as an ordered bulk write and
// announces the change on success.
func (c *Client) Batch(ctx context.Context, collection string, ops []BatchOp) error {
	if len(ops) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(ops))
	for _, op := range ops {
		if op.Delete {
			models = append(models, mongo.NewDeleteOneModel().SetFilter(bson.M{"_id": op.ID}))
			continue
		}
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": op.ID}).
			SetReplacement(op.Document).
			SetUpsert(true))
	}
	if _, err := c.db.Collection(collection).BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true)); err != nil {
		return err
	}
	c.notifier.Changed(ctx, collection)
	return nil
}

// Delete removes one document by id and announces the change.
func (c *Client) Delete(ctx context.Context, collection, id string) error {
	if _, err := c.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return err
	}
	c.notifier.Changed(ctx, collection)
	return nil
}
