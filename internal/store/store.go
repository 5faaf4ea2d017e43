// Package store persists the client-side state the tracker owns: the backend
// session id and the capped scan history.
package store

import (
	"context"
	"time"

	"github.com/raysh454/shadowzap/internal/model"
)

const (
	// DefaultHistoryCap is how many records the history keeps.
	DefaultHistoryCap = 50

	// DefaultSessionTTL is how long a stored session id stays valid.
	DefaultSessionTTL = 30 * 24 * time.Hour

	// HistoryKey is the single key the history list is stored under.
	HistoryKey = "scanHistory"

	// SessionKey is the key the session id is stored under.
	SessionKey = "session_id"
)

// SessionStore holds the opaque session id issued by the backend.
type SessionStore interface {
	// Get returns the stored id. ok is false when nothing is stored or the
	// entry has expired.
	Get(ctx context.Context) (id string, ok bool, err error)

	// Set stores id for ttl.
	Set(ctx context.Context, id string, ttl time.Duration) error

	Clear(ctx context.Context) error
}

// HistoryStore is the capped, most-recent-first list of scan records.
type HistoryStore interface {
	List(ctx context.Context) ([]model.ScanRecord, error)

	// Upsert replaces the record with the same key in place, or prepends it
	// when new, then trims the list to Cap entries.
	Upsert(ctx context.Context, rec model.ScanRecord) error

	Cap() int
}

// upsertRecord applies the HistoryStore.Upsert rules to list. A record that
// just received its task id replaces the entry still keyed by its local id.
func upsertRecord(list []model.ScanRecord, rec model.ScanRecord, capacity int) []model.ScanRecord {
	if capacity <= 0 {
		capacity = DefaultHistoryCap
	}
	for i := range list {
		if sameRecord(&list[i], &rec) {
			list[i] = rec
			return trim(list, capacity)
		}
	}
	out := make([]model.ScanRecord, 0, len(list)+1)
	out = append(out, rec)
	out = append(out, list...)
	return trim(out, capacity)
}

func sameRecord(a, b *model.ScanRecord) bool {
	if a.TaskID != "" && b.TaskID != "" {
		return a.TaskID == b.TaskID
	}
	return a.LocalID != "" && a.LocalID == b.LocalID
}

func trim(list []model.ScanRecord, capacity int) []model.ScanRecord {
	if len(list) > capacity {
		return list[:capacity]
	}
	return list
}

// FilterBySession keeps records belonging to sessionID. An empty sessionID
// keeps everything.
func FilterBySession(records []model.ScanRecord, sessionID string) []model.ScanRecord {
	if sessionID == "" {
		return records
	}
	out := make([]model.ScanRecord, 0, len(records))
	for _, r := range records {
		if r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	return out
}
