package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/steve-cardenas/snagent/internal/config"
)

// MongoStore keeps each collection as a MongoDB collection of bson documents.
type MongoStore struct {
	client      *mongo.Client
	db          *mongo.Database
	collections config.Collections
}

var _ DocumentStore = (*MongoStore)(nil)

// NewMongoStore connects to uri and uses the database named dbName.
func NewMongoStore(ctx context.Context, uri, dbName string, collections config.Collections) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	return &MongoStore{
		client:      client,
		db:          client.Database(dbName),
		collections: collections,
	}, nil
}

// Upsert replaces the document with _id equal to id, inserting it if absent.
func (s *MongoStore) Upsert(ctx context.Context, collection, id string, doc any) error {
	_, err := s.db.Collection(collection).ReplaceOne(ctx,
		bson.M{"_id": id},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert %s/%s: %w", collection, id, err)
	}
	return nil
}

// Find decodes every matching document into out.
func (s *MongoStore) Find(ctx context.Context, collection string, filter Filter, srt *Sort, out any) error {
	if _, err := filter.sortedKeys(); err != nil {
		return err
	}

	opts := options.Find()
	if srt != nil {
		if err := checkField(srt.Field); err != nil {
			return err
		}
		dir := 1
		if srt.Desc {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: srt.Field, Value: dir}, {Key: "_id", Value: 1}})
	}

	query := bson.M{}
	for k, v := range filter {
		query[k] = v
	}

	cursor, err := s.db.Collection(collection).Find(ctx, query, opts)
	if err != nil {
		return fmt.Errorf("find %s: %w", collection, err)
	}
	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("decode %s: %w", collection, err)
	}
	return nil
}

// Get decodes the document with _id equal to id into out.
func (s *MongoStore) Get(ctx context.Context, collection, id string, out any) error {
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("get %s/%s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return nil
}

// Migrate creates the indexes used by the analysis pass.
func (s *MongoStore) Migrate(ctx context.Context) error {
	slog.Info("running database migrations", "backend", BackendMongo)

	indexes := map[string]mongo.IndexModel{
		s.collections.Posts: {
			Keys: bson.D{{Key: "account_username", Value: 1}, {Key: "date", Value: -1}},
		},
		s.collections.Stories: {
			Keys: bson.D{{Key: "account_username", Value: 1}},
		},
	}
	for collection, model := range indexes {
		name, err := s.db.Collection(collection).Indexes().CreateOne(ctx, model)
		if err != nil {
			return fmt.Errorf("create index on %s: %w", collection, err)
		}
		slog.Debug("index ensured", "collection", collection, "index", name)
	}
	return nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}
