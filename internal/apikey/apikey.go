// Package apikey issues and checks the bearer keys used by the tool server.
//
// Only the SHA-256 digest of a key is persisted. Every operation reloads
// the full key set from its Backend, so keys issued or revoked by the
// managekeys command are seen by a running server on its next call.
package apikey

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ayush/cybertodo/internal/models"
)

// KeyPrefix starts every generated key.
const KeyPrefix = "cyber_"

// DefaultKeyName names the auto-provisioned development key.
const DefaultKeyName = "Default Development Key"

// Backend loads and persists the key set. changed is the hash of the key
// that was added or modified by the current operation.
type Backend interface {
	Load(ctx context.Context) (map[string]models.APIKey, error)
	Save(ctx context.Context, keys map[string]models.APIKey, changed string) error
}

// Manager generates, validates and revokes API keys.
type Manager struct {
	mu      sync.Mutex
	backend Backend
	now     func() time.Time
}

func NewManager(backend Backend) *Manager {
	return &Manager{backend: backend, now: func() time.Time { return time.Now().UTC() }}
}

// Hash returns the hex SHA-256 digest stored for raw.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// EnsureDefault provisions defaultKey when the store holds no keys.
// It reports whether a key was created.
func (m *Manager) EnsureDefault(ctx context.Context, defaultKey string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys, err := m.backend.Load(ctx)
	if err != nil {
		return false, err
	}
	if len(keys) > 0 || defaultKey == "" {
		return false, nil
	}

	k := models.APIKey{
		Hash:      Hash(defaultKey),
		Name:      DefaultKeyName,
		CreatedAt: m.now(),
		IsActive:  true,
	}
	keys[k.Hash] = k
	if err := m.backend.Save(ctx, keys, k.Hash); err != nil {
		return false, err
	}
	zap.L().Warn("provisioned default development API key; replace it outside development",
		zap.String("name", k.Name))
	return true, nil
}

// Generate creates a key, stores its hash and returns the raw key. The raw
// key cannot be recovered afterwards.
func (m *Manager) Generate(ctx context.Context, name string, userID *int64) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	raw := KeyPrefix + base64.RawURLEncoding.EncodeToString(buf)

	m.mu.Lock()
	defer m.mu.Unlock()

	keys, err := m.backend.Load(ctx)
	if err != nil {
		return "", err
	}
	k := models.APIKey{
		Hash:      Hash(raw),
		Name:      name,
		UserID:    userID,
		CreatedAt: m.now(),
		IsActive:  true,
	}
	keys[k.Hash] = k
	if err := m.backend.Save(ctx, keys, k.Hash); err != nil {
		return "", err
	}
	return raw, nil
}

// Validate returns the metadata of an active key and records its use.
func (m *Manager) Validate(ctx context.Context, raw string) (*models.APIKey, bool) {
	if raw == "" {
		return nil, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	keys, err := m.backend.Load(ctx)
	if err != nil {
		zap.L().Error("load api keys", zap.Error(err))
		return nil, false
	}
	k, ok := keys[Hash(raw)]
	if !ok || !k.IsActive {
		return nil, false
	}

	now := m.now()
	k.LastUsed = &now
	keys[k.Hash] = k
	if err := m.backend.Save(ctx, keys, k.Hash); err != nil {
		// The key is still valid; only the usage timestamp is lost.
		zap.L().Warn("record api key use", zap.Error(err))
	}
	return &k, true
}

// Revoke deactivates raw. It reports whether the key existed.
func (m *Manager) Revoke(ctx context.Context, raw string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys, err := m.backend.Load(ctx)
	if err != nil {
		return false, err
	}
	k, ok := keys[Hash(raw)]
	if !ok {
		return false, nil
	}
	k.IsActive = false
	keys[k.Hash] = k
	if err := m.backend.Save(ctx, keys, k.Hash); err != nil {
		return false, err
	}
	return true, nil
}

// List returns the metadata of every key, oldest first.
func (m *Manager) List(ctx context.Context) ([]models.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys, err := m.backend.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.APIKey, 0, len(keys))
	for _, k := range keys {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}
