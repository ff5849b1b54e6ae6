// Package store defines the keyed verse store consumed by the import
// pipeline and reference lookup, plus its SQLite implementation. The import
// side treats the store as an opaque fallible service: any implementation
// offering idempotent keyed upsert, query, and count will do.
package store

import (
	"context"
	"time"
)

// VerseRecord is the unit of storage. The tuple (BookID, Chapter, Verse,
// VersionCode) is unique; text is never mutated in place, corrections are
// re-imports that overwrite by key.
type VerseRecord struct {
	BookID      int    `json:"book_id"`
	Chapter     int    `json:"chapter"`
	Verse       int    `json:"verse"`
	VersionCode string `json:"version_code"`
	Text        string `json:"text"`
}

// Filter narrows Query and Count. Zero values match everything, so the
// zero Filter selects the whole store.
type Filter struct {
	VersionCode string
	BookID      int
	Chapter     int
	Verse       int
}

// Store is the upsert-capable keyed store the import pipeline writes to.
// Implementations must make Upsert idempotent on the uniqueness key so a
// partial-batch retry is always safe.
type Store interface {
	// Upsert writes a batch of records, inserting or overwriting by key.
	Upsert(ctx context.Context, records []VerseRecord) error

	// Query returns matching records ordered by (book, chapter, verse).
	Query(ctx context.Context, f Filter) ([]VerseRecord, error)

	// Count returns the number of matching records.
	Count(ctx context.Context, f Filter) (int64, error)
}

// ImportState tracks a version through the import pipeline. Transitions are
// monotonic within one run; Failed is reachable from any pre-commit state.
type ImportState string

// Import states.
const (
	StateNotStarted ImportState = "NotStarted"
	StateParsing    ImportState = "Parsing"
	StateResolving  ImportState = "Resolving"
	StateVerifying  ImportState = "Verifying"
	StateCommitted  ImportState = "Committed"
	StateFailed     ImportState = "Failed"
)

// VersionStatus is the persisted per-version import record.
type VersionStatus struct {
	Code        string      `json:"code"`
	DisplayName string      `json:"display_name"`
	State       ImportState `json:"state"`
	RunID       string      `json:"run_id"`
	SourceHash  string      `json:"source_hash"`
	SourceSize  int64       `json:"source_size"`
	LastError   string      `json:"last_error,omitempty"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// StateStore persists version import state, reports, and verse-count
// baselines. Kept separate from Store so tests can fake the verse store
// without faking state bookkeeping.
type StateStore interface {
	// GetVersion returns the current status for a version code.
	// A version never imported returns StateNotStarted, not an error.
	GetVersion(ctx context.Context, code string) (VersionStatus, error)

	// PutVersion records the full status row for a version.
	PutVersion(ctx context.Context, status VersionStatus) error

	// SaveReport persists a serialized ImportReport for a run.
	SaveReport(ctx context.Context, versionCode, runID string, reportJSON []byte) error

	// LatestReport returns the most recently saved report for a version,
	// or nil when none exists.
	LatestReport(ctx context.Context, versionCode string) ([]byte, error)

	// Baseline returns the established expected verse counts.
	Baseline(ctx context.Context) (map[ChapterKey]int, error)

	// EstablishBaseline records expected counts for chapters that have no
	// baseline yet. Existing entries are left untouched.
	EstablishBaseline(ctx context.Context, versionCode string, counts map[ChapterKey]int) error
}

// ChapterKey identifies one chapter of one canonical book.
type ChapterKey struct {
	BookID  int
	Chapter int
}
