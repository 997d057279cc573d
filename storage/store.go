package storage

import (
	"context"
	"fmt"
	"time"
)

// Object describes a stored blob.
type Object struct {
	Key      string
	Location string
	ETag     string
}

// ObjectStore persists opaque payloads under a key.
type ObjectStore interface {
	Put(ctx context.Context, key string, contentType string, body []byte) (*Object, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

// SnapshotKey builds the archive key of a feed payload fetched at t,
// e.g. feed/ao-vivo/2026/10/14/153000.json.
func SnapshotKey(prefix string, t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%s/%04d/%02d/%02d/%s.json", prefix, t.Year(), t.Month(), t.Day(), t.Format("150405"))
}
