package metadata

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *zap.Logger
}

func NewMongoStore(collection *mongo.Collection, logger *zap.Logger) *MongoStore {
	return &MongoStore{
		collection: collection,
		logger:     logger,
	}
}

// ConnectMongo opens a new client for this invocation and checks the server
// is reachable.
func ConnectMongo(ctx context.Context, uri, database, collection string, logger *zap.Logger) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("metadata: connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("metadata: mongo unreachable: %w", err)
	}

	store := NewMongoStore(client.Database(database).Collection(collection), logger)
	store.client = client
	return store, nil
}

// Find returns every document equal to criteria on all of its fields.
func (store *MongoStore) Find(ctx context.Context, criteria Criteria) ([]Record, error) {
	filter := bson.M{}
	for k, v := range criteria {
		filter[k] = v
	}

	cur, err := store.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("metadata: find %s: %w", criteria, err)
	}
	defer cur.Close(ctx)

	records := make([]Record, 0)
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("metadata: decoding document: %w", err)
		}
		records = append(records, Record(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("metadata: find %s: %w", criteria, err)
	}

	store.logger.Debug("metadata query",
		zap.String("collection", store.collection.Name()),
		zap.String("criteria", criteria.String()),
		zap.Int("records", len(records)))
	return records, nil
}

func (store *MongoStore) Close(ctx context.Context) error {
	if store.client == nil {
		return nil
	}
	return store.client.Disconnect(ctx)
}
