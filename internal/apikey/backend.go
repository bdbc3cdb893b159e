package apikey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ayush/cybertodo/internal/models"
	"github.com/ayush/cybertodo/internal/store"
)

// document is the on-disk shape: key hash -> metadata.
type document map[string]models.APIKey

func decodeDocument(data []byte) (map[string]models.APIKey, error) {
	doc := document{}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode api keys: %w", err)
	}
	for hash, k := range doc {
		k.Hash = hash
		doc[hash] = k
	}
	return doc, nil
}

func encodeDocument(keys map[string]models.APIKey) ([]byte, error) {
	return json.MarshalIndent(document(keys), "", "  ")
}

// FileBackend keeps all keys in one JSON file, rewritten in full on every
// change. It assumes a single writer process.
type FileBackend struct {
	Path string
}

func (b *FileBackend) Load(ctx context.Context) (map[string]models.APIKey, error) {
	data, err := os.ReadFile(b.Path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]models.APIKey{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", b.Path, err)
	}
	return decodeDocument(data)
}

func (b *FileBackend) Save(ctx context.Context, keys map[string]models.APIKey, _ string) error {
	data, err := encodeDocument(keys)
	if err != nil {
		return err
	}
	dir := filepath.Dir(b.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(b.Path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write api keys: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close api keys: %w", err)
	}
	if err := os.Rename(tmp.Name(), b.Path); err != nil {
		return fmt.Errorf("replace %s: %w", b.Path, err)
	}
	return nil
}

// ObjectStore is the subset of store.MinioStore the object backend needs.
type ObjectStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// ObjectBackend keeps the same JSON document as FileBackend in an object
// store, replaced in full on every change.
type ObjectBackend struct {
	Objects ObjectStore
	Key     string
}

func (b *ObjectBackend) Load(ctx context.Context) (map[string]models.APIKey, error) {
	data, err := b.Objects.Get(ctx, b.Key)
	if errors.Is(err, store.ErrNotFound) {
		return map[string]models.APIKey{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", b.Key, err)
	}
	return decodeDocument(data)
}

func (b *ObjectBackend) Save(ctx context.Context, keys map[string]models.APIKey, _ string) error {
	data, err := encodeDocument(keys)
	if err != nil {
		return err
	}
	return b.Objects.Put(ctx, b.Key, data, "application/json")
}

// KeyCollection is the subset of store.MongoStore the document backend needs.
type KeyCollection interface {
	AllKeys(ctx context.Context) ([]models.APIKey, error)
	PutKey(ctx context.Context, k models.APIKey) error
}

// CollectionBackend stores one document per key and writes only the key
// that changed.
type CollectionBackend struct {
	Keys KeyCollection
}

func (b *CollectionBackend) Load(ctx context.Context) (map[string]models.APIKey, error) {
	all, err := b.Keys.AllKeys(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.APIKey, len(all))
	for _, k := range all {
		out[k.Hash] = k
	}
	return out, nil
}

func (b *CollectionBackend) Save(ctx context.Context, keys map[string]models.APIKey, changed string) error {
	k, ok := keys[changed]
	if !ok {
		return nil
	}
	return b.Keys.PutKey(ctx, k)
}
