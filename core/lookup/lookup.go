// Package lookup resolves canonical references to stored text and back.
// NotFound is a normal outcome (a version may lack a book entirely), never
// an error.
package lookup

import (
	"context"
	"fmt"

	"github.com/FocuswithJustin/CedarBible/core/alias"
	"github.com/FocuswithJustin/CedarBible/core/canon"
	"github.com/FocuswithJustin/CedarBible/core/errors"
	"github.com/FocuswithJustin/CedarBible/core/store"
)

// VerseText is one verse of a chapter range.
type VerseText struct {
	Verse int    `json:"verse"`
	Text  string `json:"text"`
}

// Service answers reference lookups against the store. Read-only.
type Service struct {
	reg     *canon.Registry
	aliases *alias.Table
	store   store.Store
}

// New builds a lookup service.
func New(reg *canon.Registry, aliases *alias.Table, st store.Store) *Service {
	return &Service{reg: reg, aliases: aliases, store: st}
}

// Get returns the text for one canonical reference. The second return is
// false when the version has no such verse.
func (s *Service) Get(ctx context.Context, bookID, chapter, verse int, versionCode string) (string, bool, error) {
	records, err := s.store.Query(ctx, store.Filter{
		VersionCode: versionCode,
		BookID:      bookID,
		Chapter:     chapter,
		Verse:       verse,
	})
	if err != nil {
		return "", false, err
	}
	if len(records) == 0 {
		return "", false, nil
	}
	return records[0].Text, true, nil
}

// RangeOf returns a chapter's verses ordered by verse number ascending.
// An absent chapter yields an empty slice.
func (s *Service) RangeOf(ctx context.Context, bookID, chapter int, versionCode string) ([]VerseText, error) {
	records, err := s.store.Query(ctx, store.Filter{
		VersionCode: versionCode,
		BookID:      bookID,
		Chapter:     chapter,
	})
	if err != nil {
		return nil, err
	}
	out := make([]VerseText, 0, len(records))
	for _, r := range records {
		out = append(out, VerseText{Verse: r.Verse, Text: r.Text})
	}
	return out, nil
}

// Resolve turns a parsed human-readable reference into a canonical book plus
// the chapter and verse numbers. The book token goes through the alias table
// so "Ps", "Psalms", and curated spellings all work.
func (s *Service) Resolve(ref Ref, versionCode string) (canon.Book, int, int, error) {
	res := s.aliases.Resolve(ref.Book, versionCode)
	if !res.Resolved {
		return canon.Book{}, 0, 0, errors.Wrapf(errors.ErrNotFound, "unknown book %q", ref.Book)
	}
	return res.Book, ref.Chapter, ref.Verse, nil
}

// FormatRecord renders a store row as a human-readable reference, e.g.
// "Genesis 1:1 (KJV)".
func (s *Service) FormatRecord(rec store.VerseRecord) string {
	book, ok := s.reg.ByID(rec.BookID)
	if !ok {
		return fmt.Sprintf("book#%d %d:%d (%s)", rec.BookID, rec.Chapter, rec.Verse, rec.VersionCode)
	}
	return fmt.Sprintf("%s %d:%d (%s)", book.FullName, rec.Chapter, rec.Verse, rec.VersionCode)
}
