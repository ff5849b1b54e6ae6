package store

import (
	"context"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	records := []VerseRecord{
		{BookID: 1, Chapter: 1, Verse: 1, VersionCode: "KJV", Text: "In the beginning"},
		{BookID: 1, Chapter: 1, Verse: 2, VersionCode: "KJV", Text: "And the earth"},
	}

	for i := 0; i < 3; i++ {
		if err := s.Upsert(ctx, records); err != nil {
			t.Fatalf("Upsert #%d: %v", i+1, err)
		}
	}

	n, err := s.Count(ctx, Filter{VersionCode: "KJV"})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Errorf("Count = %d after repeated upsert, want 2", n)
	}
}

func TestUpsertOverwritesByKey(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := VerseRecord{BookID: 1, Chapter: 1, Verse: 1, VersionCode: "KJV", Text: "old text"}
	if err := s.Upsert(ctx, []VerseRecord{first}); err != nil {
		t.Fatal(err)
	}
	corrected := first
	corrected.Text = "corrected text"
	if err := s.Upsert(ctx, []VerseRecord{corrected}); err != nil {
		t.Fatal(err)
	}

	got, err := s.Query(ctx, Filter{VersionCode: "KJV", BookID: 1, Chapter: 1, Verse: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Text != "corrected text" {
		t.Errorf("Query = %+v, want single corrected record", got)
	}
}

func TestQueryOrderingAndFilters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	records := []VerseRecord{
		{BookID: 2, Chapter: 1, Verse: 1, VersionCode: "KJV", Text: "exod"},
		{BookID: 1, Chapter: 2, Verse: 3, VersionCode: "KJV", Text: "gen23"},
		{BookID: 1, Chapter: 2, Verse: 1, VersionCode: "KJV", Text: "gen21"},
		{BookID: 1, Chapter: 2, Verse: 2, VersionCode: "WEB", Text: "other version"},
	}
	if err := s.Upsert(ctx, records); err != nil {
		t.Fatal(err)
	}

	got, err := s.Query(ctx, Filter{VersionCode: "KJV", BookID: 1, Chapter: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("Query returned %d records, want 2", len(got))
	}
	if got[0].Verse != 1 || got[1].Verse != 3 {
		t.Errorf("Query not ordered by verse: %+v", got)
	}

	all, err := s.Count(ctx, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if all != 4 {
		t.Errorf("unfiltered Count = %d, want 4", all)
	}
}

func TestVersionStateRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// A version never imported reads as NotStarted.
	st, err := s.GetVersion(ctx, "KJV")
	if err != nil {
		t.Fatal(err)
	}
	if st.State != StateNotStarted {
		t.Errorf("fresh version state = %s, want NotStarted", st.State)
	}

	want := VersionStatus{
		Code:        "KJV",
		DisplayName: "King James Version",
		State:       StateCommitted,
		RunID:       "run-1",
		SourceHash:  "abc123",
		SourceSize:  1024,
		UpdatedAt:   time.Now().UTC().Truncate(time.Second),
	}
	if err := s.PutVersion(ctx, want); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetVersion(ctx, "KJV")
	if err != nil {
		t.Fatal(err)
	}
	if got.State != StateCommitted || got.RunID != "run-1" || got.SourceHash != "abc123" {
		t.Errorf("GetVersion = %+v", got)
	}

	// Overwriting moves the state.
	want.State = StateFailed
	want.LastError = "store failure"
	if err := s.PutVersion(ctx, want); err != nil {
		t.Fatal(err)
	}
	got, err = s.GetVersion(ctx, "KJV")
	if err != nil {
		t.Fatal(err)
	}
	if got.State != StateFailed || got.LastError != "store failure" {
		t.Errorf("after overwrite GetVersion = %+v", got)
	}
}

func TestListVersions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	got, err := s.ListVersions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("empty store listed %d versions", len(got))
	}

	for _, code := range []string{"WEB", "KJV"} {
		if err := s.PutVersion(ctx, VersionStatus{Code: code, State: StateCommitted}); err != nil {
			t.Fatal(err)
		}
	}

	got, err = s.ListVersions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Code != "KJV" || got[1].Code != "WEB" {
		t.Errorf("ListVersions = %+v, want KJV then WEB", got)
	}
}

func TestReportRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if got, err := s.LatestReport(ctx, "KJV"); err != nil || got != nil {
		t.Fatalf("LatestReport on empty store = %v, %v", got, err)
	}

	if err := s.SaveReport(ctx, "KJV", "run-1", []byte(`{"first":true}`)); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveReport(ctx, "KJV", "run-2", []byte(`{"second":true}`)); err != nil {
		t.Fatal(err)
	}

	got, err := s.LatestReport(ctx, "KJV")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"second":true}` {
		t.Errorf("LatestReport = %s, want the run-2 report", got)
	}
}

func TestBaselineFirstImportWins(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := map[ChapterKey]int{
		{BookID: 1, Chapter: 1}: 31,
		{BookID: 1, Chapter: 2}: 25,
	}
	if err := s.EstablishBaseline(ctx, "KJV", first); err != nil {
		t.Fatal(err)
	}

	// A later version must not overwrite established counts.
	second := map[ChapterKey]int{
		{BookID: 1, Chapter: 1}: 99,
		{BookID: 2, Chapter: 1}: 22,
	}
	if err := s.EstablishBaseline(ctx, "WEB", second); err != nil {
		t.Fatal(err)
	}

	got, err := s.Baseline(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got[ChapterKey{BookID: 1, Chapter: 1}] != 31 {
		t.Errorf("baseline overwritten: %v", got)
	}
	if got[ChapterKey{BookID: 2, Chapter: 1}] != 22 {
		t.Errorf("new chapter baseline missing: %v", got)
	}
}
