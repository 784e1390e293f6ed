// Package storage provides the key-value snapshot store behind the in-memory
// state: one JSON blob per logical collection, read once at startup and
// rewritten on every mutation. Writes are best-effort — a failed write never
// rolls back the in-memory state, callers log and move on.
package storage

import "errors"

// Keys for the logical collections.
const (
	KeyReports       = "reports"
	KeySession       = "session"
	KeySubscriptions = "subscriptions"
	KeyPreferences   = "preferences"
	KeyDeviceID      = "device_id"
	KeyChat          = "chat"
	KeyForum         = "forum"
)

// ErrNotFound is returned by Get when no value exists under the key.
var ErrNotFound = errors.New("storage: key not found")

// Store is the persistence port. Values are JSON-serializable snapshots.
type Store interface {
	// Get unmarshals the blob stored under key into out. Returns
	// ErrNotFound when the key has never been written.
	Get(key string, out any) error
	// Put marshals v and stores it under key, replacing any prior value.
	Put(key string, v any) error
	// Delete removes the key. Deleting a missing key is not an error.
	Delete(key string) error
}
