package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/FocuswithJustin/CedarBible/core/errors"
)

// DriverName returns the SQL driver name in use ("sqlite" for the pure Go
// build, "sqlite3" with the cgo_sqlite build tag).
func DriverName() string { return driverName }

// DriverType returns "purego" or "cgo" for the underlying implementation.
func DriverType() string { return driverType }

const schema = `
CREATE TABLE IF NOT EXISTS verses (
	book_id      INTEGER NOT NULL,
	chapter      INTEGER NOT NULL,
	verse        INTEGER NOT NULL,
	version_code TEXT    NOT NULL,
	text         TEXT    NOT NULL,
	PRIMARY KEY (book_id, chapter, verse, version_code)
);

CREATE TABLE IF NOT EXISTS versions (
	code          TEXT PRIMARY KEY,
	display_name  TEXT    NOT NULL DEFAULT '',
	state         TEXT    NOT NULL DEFAULT 'NotStarted',
	run_id        TEXT    NOT NULL DEFAULT '',
	source_blake3 TEXT    NOT NULL DEFAULT '',
	source_size   INTEGER NOT NULL DEFAULT 0,
	last_error    TEXT    NOT NULL DEFAULT '',
	updated_at    TEXT    NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS import_reports (
	version_code TEXT NOT NULL,
	run_id       TEXT NOT NULL,
	created_at   TEXT NOT NULL,
	report_json  TEXT NOT NULL,
	PRIMARY KEY (version_code, run_id)
);

CREATE TABLE IF NOT EXISTS verse_baselines (
	book_id        INTEGER NOT NULL,
	chapter        INTEGER NOT NULL,
	expected       INTEGER NOT NULL,
	source_version TEXT    NOT NULL,
	PRIMARY KEY (book_id, chapter)
);
`

// SQLite implements Store and StateStore over a single SQLite database.
type SQLite struct {
	db *sql.DB
}

// Open opens (and if needed initializes) a SQLite-backed store at path.
// Use ":memory:" for an ephemeral store in tests.
func Open(path string) (*SQLite, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening store %s", path)
	}
	// SQLite allows one writer; funneling through one connection avoids
	// SQLITE_BUSY surprises under concurrent version imports.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "initializing store schema")
	}
	return &SQLite{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error { return s.db.Close() }

// wrapStoreErr classifies a database error. Lock contention and timeouts are
// transient; everything else surfaces as-is.
func wrapStoreErr(operation string, err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "busy") ||
		strings.Contains(msg, "timeout") {
		return errors.NewTransient(operation, err)
	}
	return errors.Wrapf(err, "store %s", operation)
}

// Upsert implements Store. The whole batch is one transaction; every row is
// an upsert on the uniqueness key, so replaying a partially applied batch
// converges to the same final state.
func (s *SQLite) Upsert(ctx context.Context, records []VerseRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapStoreErr("upsert", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO verses (book_id, chapter, verse, version_code, text)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (book_id, chapter, verse, version_code)
		DO UPDATE SET text = excluded.text`)
	if err != nil {
		return wrapStoreErr("upsert", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.BookID, r.Chapter, r.Verse, r.VersionCode, r.Text); err != nil {
			return wrapStoreErr("upsert", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return wrapStoreErr("upsert", err)
	}
	return nil
}

func filterClause(f Filter) (string, []any) {
	var conds []string
	var args []any
	if f.VersionCode != "" {
		conds = append(conds, "version_code = ?")
		args = append(args, f.VersionCode)
	}
	if f.BookID != 0 {
		conds = append(conds, "book_id = ?")
		args = append(args, f.BookID)
	}
	if f.Chapter != 0 {
		conds = append(conds, "chapter = ?")
		args = append(args, f.Chapter)
	}
	if f.Verse != 0 {
		conds = append(conds, "verse = ?")
		args = append(args, f.Verse)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Query implements Store.
func (s *SQLite) Query(ctx context.Context, f Filter) ([]VerseRecord, error) {
	where, args := filterClause(f)
	rows, err := s.db.QueryContext(ctx,
		"SELECT book_id, chapter, verse, version_code, text FROM verses"+where+
			" ORDER BY book_id, chapter, verse", args...)
	if err != nil {
		return nil, wrapStoreErr("query", err)
	}
	defer rows.Close()

	var out []VerseRecord
	for rows.Next() {
		var r VerseRecord
		if err := rows.Scan(&r.BookID, &r.Chapter, &r.Verse, &r.VersionCode, &r.Text); err != nil {
			return nil, wrapStoreErr("query", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreErr("query", err)
	}
	return out, nil
}

// Count implements Store.
func (s *SQLite) Count(ctx context.Context, f Filter) (int64, error) {
	where, args := filterClause(f)
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM verses"+where, args...).Scan(&n)
	if err != nil {
		return 0, wrapStoreErr("count", err)
	}
	return n, nil
}

// GetVersion implements StateStore.
func (s *SQLite) GetVersion(ctx context.Context, code string) (VersionStatus, error) {
	var st VersionStatus
	var updatedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT code, display_name, state, run_id, source_blake3, source_size, last_error, updated_at
		FROM versions WHERE code = ?`, code).
		Scan(&st.Code, &st.DisplayName, &st.State, &st.RunID, &st.SourceHash, &st.SourceSize, &st.LastError, &updatedAt)
	if err == sql.ErrNoRows {
		return VersionStatus{Code: code, State: StateNotStarted}, nil
	}
	if err != nil {
		return VersionStatus{}, wrapStoreErr("get version", err)
	}
	if updatedAt != "" {
		if ts, perr := time.Parse(time.RFC3339, updatedAt); perr == nil {
			st.UpdatedAt = ts
		}
	}
	return st, nil
}

// ListVersions returns all recorded version statuses ordered by code.
func (s *SQLite) ListVersions(ctx context.Context) ([]VersionStatus, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT code, display_name, state, run_id, source_blake3, source_size, last_error, updated_at
		FROM versions ORDER BY code`)
	if err != nil {
		return nil, wrapStoreErr("list versions", err)
	}
	defer rows.Close()

	var out []VersionStatus
	for rows.Next() {
		var st VersionStatus
		var updatedAt string
		if err := rows.Scan(&st.Code, &st.DisplayName, &st.State, &st.RunID, &st.SourceHash, &st.SourceSize, &st.LastError, &updatedAt); err != nil {
			return nil, wrapStoreErr("list versions", err)
		}
		if updatedAt != "" {
			if ts, perr := time.Parse(time.RFC3339, updatedAt); perr == nil {
				st.UpdatedAt = ts
			}
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreErr("list versions", err)
	}
	return out, nil
}

// PutVersion implements StateStore.
func (s *SQLite) PutVersion(ctx context.Context, status VersionStatus) error {
	updatedAt := status.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO versions (code, display_name, state, run_id, source_blake3, source_size, last_error, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (code) DO UPDATE SET
			display_name = excluded.display_name,
			state = excluded.state,
			run_id = excluded.run_id,
			source_blake3 = excluded.source_blake3,
			source_size = excluded.source_size,
			last_error = excluded.last_error,
			updated_at = excluded.updated_at`,
		status.Code, status.DisplayName, string(status.State), status.RunID,
		status.SourceHash, status.SourceSize, status.LastError, updatedAt.Format(time.RFC3339))
	return wrapStoreErr("put version", err)
}

// SaveReport implements StateStore.
func (s *SQLite) SaveReport(ctx context.Context, versionCode, runID string, reportJSON []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO import_reports (version_code, run_id, created_at, report_json)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (version_code, run_id) DO UPDATE SET
			created_at = excluded.created_at,
			report_json = excluded.report_json`,
		versionCode, runID, time.Now().UTC().Format(time.RFC3339), string(reportJSON))
	return wrapStoreErr("save report", err)
}

// LatestReport implements StateStore.
func (s *SQLite) LatestReport(ctx context.Context, versionCode string) ([]byte, error) {
	var reportJSON string
	err := s.db.QueryRowContext(ctx, `
		SELECT report_json FROM import_reports
		WHERE version_code = ? ORDER BY created_at DESC, run_id DESC LIMIT 1`,
		versionCode).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStoreErr("latest report", err)
	}
	return []byte(reportJSON), nil
}

// Baseline implements StateStore.
func (s *SQLite) Baseline(ctx context.Context) (map[ChapterKey]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT book_id, chapter, expected FROM verse_baselines")
	if err != nil {
		return nil, wrapStoreErr("baseline", err)
	}
	defer rows.Close()

	out := make(map[ChapterKey]int)
	for rows.Next() {
		var key ChapterKey
		var expected int
		if err := rows.Scan(&key.BookID, &key.Chapter, &expected); err != nil {
			return nil, wrapStoreErr("baseline", err)
		}
		out[key] = expected
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreErr("baseline", err)
	}
	return out, nil
}

// EstablishBaseline implements StateStore. INSERT OR IGNORE keeps the first
// committed version's counts authoritative; later imports never overwrite.
func (s *SQLite) EstablishBaseline(ctx context.Context, versionCode string, counts map[ChapterKey]int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapStoreErr("establish baseline", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO verse_baselines (book_id, chapter, expected, source_version)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return wrapStoreErr("establish baseline", err)
	}
	defer stmt.Close()

	for key, expected := range counts {
		if _, err := stmt.ExecContext(ctx, key.BookID, key.Chapter, expected, versionCode); err != nil {
			return wrapStoreErr("establish baseline", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return wrapStoreErr("establish baseline", err)
	}
	return nil
}
