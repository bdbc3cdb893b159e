package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/cybertodo/internal/models"
)

// APIKeyCollection is the collection holding one document per API key,
// keyed by the key hash.
const APIKeyCollection = "api_keys"

// MongoStore keeps API key metadata in MongoDB.
type MongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{col: db.Collection(APIKeyCollection)}
}

// EnsureIndexes creates the secondary indexes used by listings and by
// operators looking up a user's keys. It is idempotent.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "is_active", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("mongo create indexes: %w", err)
	}
	return nil
}

// AllKeys returns every stored key, oldest first.
func (s *MongoStore) AllKeys(ctx context.Context) ([]models.APIKey, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := s.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo find: %w", err)
	}
	defer cur.Close(ctx)

	var keys []models.APIKey
	if err := cur.All(ctx, &keys); err != nil {
		return nil, fmt.Errorf("mongo decode: %w", err)
	}
	return keys, nil
}

// PutKey inserts or replaces the document for k.Hash.
func (s *MongoStore) PutKey(ctx context.Context, k models.APIKey) error {
	_, err := s.col.ReplaceOne(ctx, bson.M{"_id": k.Hash}, k, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo upsert: %w", err)
	}
	return nil
}
