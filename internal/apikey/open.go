package apikey

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/cybertodo/internal/config"
	"github.com/ayush/cybertodo/internal/store"
)

// Backend names accepted in APIKEY_BACKEND.
const (
	BackendFile  = "file"
	BackendMinio = "minio"
	BackendMongo = "mongo"
)

// Open builds the Manager for cfg.APIKeyBackend. The returned close
// function releases any client the backend opened.
func Open(ctx context.Context, cfg *config.Config) (*Manager, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	switch cfg.APIKeyBackend {
	case BackendFile, "":
		return NewManager(&FileBackend{Path: cfg.APIKeysFile}), noop, nil

	case BackendMinio:
		objects, err := store.NewMinioStore(ctx, store.MinioOptions{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			return nil, nil, err
		}
		return NewManager(&ObjectBackend{Objects: objects, Key: cfg.MinioObject}), noop, nil

	case BackendMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, nil, fmt.Errorf("mongo connect: %w", err)
		}
		if err := client.Ping(ctx, nil); err != nil {
			client.Disconnect(ctx)
			return nil, nil, fmt.Errorf("mongo ping: %w", err)
		}
		keys := store.NewMongoStore(client.Database(cfg.MongoDB))
		if err := keys.EnsureIndexes(ctx); err != nil {
			client.Disconnect(ctx)
			return nil, nil, err
		}
		return NewManager(&CollectionBackend{Keys: keys}), client.Disconnect, nil
	}
	return nil, nil, fmt.Errorf("unknown api key backend %q", cfg.APIKeyBackend)
}
