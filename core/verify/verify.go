// Package verify derives an ImportReport from one version's fully resolved
// verse set: duplicate book assignments, missing books, chapter gaps, and
// verse-count anomalies against a baseline. The report is pure data; what
// blocks a commit is the importer's policy, not this package's.
package verify

import (
	"sort"

	"github.com/FocuswithJustin/CedarBible/core/alias"
	"github.com/FocuswithJustin/CedarBible/core/canon"
)

// ResolvedVerse is one verse tuple after alias resolution.
type ResolvedVerse struct {
	BookID      int
	Chapter     int
	Verse       int
	Text        string
	SourceToken string
	Confidence  alias.Confidence
	Distance    int // fuzzy edit distance, 0 for exact
}

// DuplicateAssignment records distinct source tokens resolving to one book.
// This is the dominant real-world failure mode (two spellings for one book)
// and is never silently merged.
type DuplicateAssignment struct {
	BookID int      `json:"book_id" yaml:"book_id"`
	Tokens []string `json:"tokens" yaml:"tokens"`
}

// ChapterGap records missing chapter numbers for one book.
type ChapterGap struct {
	BookID  int   `json:"book_id" yaml:"book_id"`
	Missing []int `json:"missing" yaml:"missing"`
}

// VerseCountAnomaly records an observed verse count that differs from the
// baseline by more than the tolerance.
type VerseCountAnomaly struct {
	BookID   int `json:"book_id" yaml:"book_id"`
	Chapter  int `json:"chapter" yaml:"chapter"`
	Observed int `json:"observed" yaml:"observed"`
	Expected int `json:"expected" yaml:"expected"`
}

// VerseRef identifies one verse of one canonical book.
type VerseRef struct {
	BookID  int `json:"book_id" yaml:"book_id"`
	Chapter int `json:"chapter" yaml:"chapter"`
	Verse   int `json:"verse" yaml:"verse"`
}

// FuzzyResolution records a token accepted only by fuzzy matching. Surfaced
// for curation; an operator promotes these to exact aliases or rejects them.
type FuzzyResolution struct {
	SourceToken string `json:"source_token" yaml:"source_token"`
	BookID      int    `json:"book_id" yaml:"book_id"`
	Distance    int    `json:"distance" yaml:"distance"`
}

// ImportReport is the detector's output for one version.
type ImportReport struct {
	VersionCode              string                `json:"version_code" yaml:"version_code"`
	DuplicateBookAssignments []DuplicateAssignment `json:"duplicate_book_assignments,omitempty" yaml:"duplicate_book_assignments,omitempty"`
	MissingBooks             []int                 `json:"missing_books,omitempty" yaml:"missing_books,omitempty"`
	UnresolvedTokens         []string              `json:"unresolved_tokens,omitempty" yaml:"unresolved_tokens,omitempty"`
	ChapterGaps              []ChapterGap          `json:"chapter_gaps,omitempty" yaml:"chapter_gaps,omitempty"`
	VerseCountAnomalies      []VerseCountAnomaly   `json:"verse_count_anomalies,omitempty" yaml:"verse_count_anomalies,omitempty"`
	FuzzyResolutions         []FuzzyResolution     `json:"fuzzy_resolutions,omitempty" yaml:"fuzzy_resolutions,omitempty"`

	// EmptyVerses lists verses whose text was empty in the source. The
	// parser preserves them; they are excluded from the committed write set
	// and recorded here so the exclusion is never silent.
	EmptyVerses []VerseRef `json:"empty_verses,omitempty" yaml:"empty_verses,omitempty"`
}

// HasBlockingConditions reports whether the default commit policy would
// refuse this report: any duplicate assignment, missing book, or unresolved
// token. Chapter gaps and count anomalies are warnings only.
func (r *ImportReport) HasBlockingConditions() bool {
	return len(r.DuplicateBookAssignments) > 0 || len(r.MissingBooks) > 0 || len(r.UnresolvedTokens) > 0
}

// Baseline supplies expected verse counts per (book, chapter). A nil map or
// a missing key means no baseline for that chapter and no anomaly is raised:
// the first import of a chapter establishes the baseline, it does not fail
// against itself.
type Baseline map[ChapterKey]int

// ChapterKey identifies one chapter of one canonical book.
type ChapterKey struct {
	BookID  int
	Chapter int
}

// Options tunes detection.
type Options struct {
	// Tolerance is the allowed absolute difference between observed and
	// expected verse counts. The default of 0 flags any difference.
	Tolerance int
}

// Detect builds the ImportReport for one version's resolved verse set.
// unresolved lists source tokens the alias resolver returned Unresolved for;
// each is a missing-book condition, never a skip.
func Detect(reg *canon.Registry, versionCode string, verses []ResolvedVerse, unresolved []string, baseline Baseline, opts Options) *ImportReport {
	report := &ImportReport{VersionCode: versionCode}

	tokensByBook := make(map[int]map[string]bool)
	versesByChapter := make(map[ChapterKey]int)
	chaptersByBook := make(map[int][]int)
	seenChapter := make(map[ChapterKey]bool)
	fuzzySeen := make(map[string]bool)

	for _, v := range verses {
		if tokensByBook[v.BookID] == nil {
			tokensByBook[v.BookID] = make(map[string]bool)
		}
		tokensByBook[v.BookID][v.SourceToken] = true

		key := ChapterKey{BookID: v.BookID, Chapter: v.Chapter}
		versesByChapter[key]++
		if !seenChapter[key] {
			seenChapter[key] = true
			chaptersByBook[v.BookID] = append(chaptersByBook[v.BookID], v.Chapter)
		}

		if v.Text == "" {
			report.EmptyVerses = append(report.EmptyVerses, VerseRef{BookID: v.BookID, Chapter: v.Chapter, Verse: v.Verse})
		}

		if v.Confidence == alias.ConfidenceFuzzy && !fuzzySeen[v.SourceToken] {
			fuzzySeen[v.SourceToken] = true
			report.FuzzyResolutions = append(report.FuzzyResolutions, FuzzyResolution{
				SourceToken: v.SourceToken,
				BookID:      v.BookID,
				Distance:    v.Distance,
			})
		}
	}

	// Duplicate detection: distinct source tokens for one canonical book.
	for bookID, tokens := range tokensByBook {
		if len(tokens) < 2 {
			continue
		}
		dup := DuplicateAssignment{BookID: bookID}
		for tok := range tokens {
			dup.Tokens = append(dup.Tokens, tok)
		}
		sort.Strings(dup.Tokens)
		report.DuplicateBookAssignments = append(report.DuplicateBookAssignments, dup)
	}
	sort.Slice(report.DuplicateBookAssignments, func(i, j int) bool {
		return report.DuplicateBookAssignments[i].BookID < report.DuplicateBookAssignments[j].BookID
	})

	// Missing books: registry entries with zero resolved verses.
	for _, b := range reg.All() {
		if len(tokensByBook[b.ID]) == 0 {
			report.MissingBooks = append(report.MissingBooks, b.ID)
		}
	}
	sort.Ints(report.MissingBooks)

	// Unresolved tokens, deduplicated, order preserved by first occurrence.
	unresolvedSeen := make(map[string]bool)
	for _, tok := range unresolved {
		if !unresolvedSeen[tok] {
			unresolvedSeen[tok] = true
			report.UnresolvedTokens = append(report.UnresolvedTokens, tok)
		}
	}

	// Chapter gaps: observed chapters must run contiguously from 1.
	bookIDs := make([]int, 0, len(chaptersByBook))
	for id := range chaptersByBook {
		bookIDs = append(bookIDs, id)
	}
	sort.Ints(bookIDs)
	for _, bookID := range bookIDs {
		chapters := chaptersByBook[bookID]
		sort.Ints(chapters)
		max := chapters[len(chapters)-1]
		present := make(map[int]bool, len(chapters))
		for _, c := range chapters {
			present[c] = true
		}
		var missing []int
		for c := 1; c <= max; c++ {
			if !present[c] {
				missing = append(missing, c)
			}
		}
		if len(missing) > 0 {
			report.ChapterGaps = append(report.ChapterGaps, ChapterGap{BookID: bookID, Missing: missing})
		}
	}

	// Verse-count anomalies against the baseline, where one exists.
	if baseline != nil {
		keys := make([]ChapterKey, 0, len(versesByChapter))
		for key := range versesByChapter {
			keys = append(keys, key)
		}
		sort.Slice(keys, func(i, j int) bool {
			if keys[i].BookID != keys[j].BookID {
				return keys[i].BookID < keys[j].BookID
			}
			return keys[i].Chapter < keys[j].Chapter
		})
		for _, key := range keys {
			expected, ok := baseline[key]
			if !ok {
				continue
			}
			observed := versesByChapter[key]
			delta := observed - expected
			if delta < 0 {
				delta = -delta
			}
			if delta > opts.Tolerance {
				report.VerseCountAnomalies = append(report.VerseCountAnomalies, VerseCountAnomaly{
					BookID:   key.BookID,
					Chapter:  key.Chapter,
					Observed: observed,
					Expected: expected,
				})
			}
		}
	}

	return report
}
