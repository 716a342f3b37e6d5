// Package store persists split results in MongoDB so that downstream
// processing can pick up the subevents of a run.
//
// Every [pkgio.Output] becomes one document keyed by (run_id, readout_id).
// Saving the same run twice replaces its documents.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/hivesplit/pkg/cache"
	hserrors "github.com/matzehuels/hivesplit/pkg/errors"
	pkgio "github.com/matzehuels/hivesplit/pkg/io"
)

// Defaults for MongoOptions.
const (
	DefaultDatabase   = "hivesplit"
	DefaultCollection = "results"
)

// MongoOptions configures a [MongoStore].
type MongoOptions struct {
	URI        string
	Database   string
	Collection string
}

// MongoStore is a result sink backed by one MongoDB collection.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type document struct {
	pkgio.Output `bson:",inline"`
	Position     int       `bson:"position"`
	SavedAt      time.Time `bson:"saved_at"`
}

// NewMongoStore connects, pings and ensures the (run_id, readout_id)
// unique index.
func NewMongoStore(ctx context.Context, opts MongoOptions) (*MongoStore, error) {
	if opts.URI == "" {
		return nil, hserrors.New(hserrors.ErrCodeInvalidConfiguration, "mongo uri is empty")
	}
	if opts.Database == "" {
		opts.Database = DefaultDatabase
	}
	if opts.Collection == "" {
		opts.Collection = DefaultCollection
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.URI))
	if err != nil {
		return nil, hserrors.Wrap(hserrors.ErrCodeInvalidConfiguration, err, "connect mongo")
	}
	err = cache.RetryWithBackoff(ctx, 3, 200*time.Millisecond, func() error {
		if err := client.Ping(ctx, nil); err != nil {
			return cache.Retryable(err)
		}
		return nil
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	coll := client.Database(opts.Database).Collection(opts.Collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "run_id", Value: 1}, {Key: "readout_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("create index: %w", err)
	}
	return &MongoStore{client: client, coll: coll}, nil
}

// Save upserts outputs in one unordered bulk write.
func (s *MongoStore) Save(ctx context.Context, outputs []pkgio.Output) error {
	if len(outputs) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, len(outputs))
	for i, doc := range documents(outputs, time.Now().UTC()) {
		models[i] = mongo.NewReplaceOneModel().
			SetFilter(filter(doc.RunID, doc.ReadoutID)).
			SetReplacement(doc).
			SetUpsert(true)
	}
	_, err := s.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return fmt.Errorf("bulk write: %w", err)
	}
	return nil
}

// Load returns the outputs of a run in their original order. An unknown
// run is a NOT_FOUND error.
func (s *MongoStore) Load(ctx context.Context, runID string) ([]pkgio.Output, error) {
	cur, err := s.coll.Find(ctx, bson.D{{Key: "run_id", Value: runID}},
		options.Find().SetSort(bson.D{{Key: "position", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find run %s: %w", runID, err)
	}
	var docs []document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", runID, err)
	}
	if len(docs) == 0 {
		return nil, hserrors.New(hserrors.ErrCodeNotFound, "run %s not found", runID)
	}
	out := make([]pkgio.Output, len(docs))
	for i, d := range docs {
		out[i] = d.Output
	}
	return out, nil
}

// LoadReadout returns a single output.
func (s *MongoStore) LoadReadout(ctx context.Context, runID, readoutID string) (pkgio.Output, error) {
	var doc document
	err := s.coll.FindOne(ctx, filter(runID, readoutID)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return pkgio.Output{}, hserrors.New(hserrors.ErrCodeNotFound, "readout %s of run %s not found", readoutID, runID)
	}
	if err != nil {
		return pkgio.Output{}, fmt.Errorf("find readout %s: %w", readoutID, err)
	}
	return doc.Output, nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func documents(outputs []pkgio.Output, now time.Time) []document {
	docs := make([]document, len(outputs))
	for i, o := range outputs {
		o.Cached = false
		docs[i] = document{Output: o, Position: i, SavedAt: now}
	}
	return docs
}

func filter(runID, readoutID string) bson.D {
	return bson.D{{Key: "run_id", Value: runID}, {Key: "readout_id", Value: readoutID}}
}
