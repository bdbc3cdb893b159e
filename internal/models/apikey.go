package models

import "time"

// APIKey is the stored metadata of a tool-server bearer key. The raw key
// is never kept; Hash is its SHA-256 hex digest.
type APIKey struct {
	Hash      string     `json:"-"         bson:"_id"`
	Name      string     `json:"name"      bson:"name"`
	UserID    *int64     `json:"user_id"   bson:"user_id"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
	LastUsed  *time.Time `json:"last_used" bson:"last_used"`
	IsActive  bool       `json:"is_active" bson:"is_active"`
}
