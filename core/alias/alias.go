// Package alias maps source-specific book tokens onto the canonical book
// registry. Tokens are matched exactly after normalization; a bounded fuzzy
// fallback exists but is always recorded as such, never silently accepted.
package alias

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/gosimple/unidecode"

	"github.com/FocuswithJustin/CedarBible/core/canon"
)

// Confidence classifies how an alias resolution was obtained.
type Confidence string

// Confidence constants.
const (
	ConfidenceExact Confidence = "exact"
	ConfidenceFuzzy Confidence = "fuzzy"
)

// Fuzzy matching bounds. A normalized token matches a book name at edit
// distance <= MaxFuzzyDistance; substring containment is only considered for
// tokens of at least MinSubstringLen runes to keep short tokens from matching
// everything.
const (
	MaxFuzzyDistance = 2
	MinSubstringLen  = 4
)

// Entry is one curated alias. VersionCode "" places the entry in the
// version-agnostic default table.
type Entry struct {
	SourceToken string `yaml:"token"`
	VersionCode string `yaml:"version,omitempty"`
	BookID      int    `yaml:"book_id"`
}

// Resolution is the outcome of resolving one source token.
// Resolved == false means Unresolved: no candidate cleared the fuzzy
// threshold. Unresolved is a value, never an error.
type Resolution struct {
	Book       canon.Book
	Confidence Confidence
	Distance   int // edit distance for fuzzy matches, 0 for exact
	Resolved   bool
}

// Table is the immutable-after-load alias table. Safe for concurrent reads.
type Table struct {
	reg        *canon.Registry
	byVersion  map[string]map[string]int // version -> normalized token -> book id
	defaults   map[string]int            // normalized token -> book id
	fuzzyNames []fuzzyName               // normalized registry names, in book id order
}

type fuzzyName struct {
	norm   string
	bookID int
}

// Normalize folds a source token for exact matching: transliterates
// diacritics to ASCII, lowercases, and collapses interior whitespace.
func Normalize(token string) string {
	s := unidecode.Unidecode(token)
	s = strings.ToLower(s)
	return strings.Join(strings.Fields(s), " ")
}

// NewTable builds an alias table over the registry. The default table is
// pre-seeded with every registry book's full name, short name, and numeric
// id, so a well-behaved source resolves without any curation. Curated
// entries layer on top; an entry naming an unknown book id or colliding with
// a different book under the same normalized token is rejected.
func NewTable(reg *canon.Registry, entries []Entry) (*Table, error) {
	t := &Table{
		reg:       reg,
		byVersion: make(map[string]map[string]int),
		defaults:  make(map[string]int),
	}

	for _, b := range reg.All() {
		t.defaults[Normalize(b.FullName)] = b.ID
		t.defaults[Normalize(b.ShortName)] = b.ID
		t.defaults[strconv.Itoa(b.ID)] = b.ID
		t.fuzzyNames = append(t.fuzzyNames,
			fuzzyName{norm: Normalize(b.FullName), bookID: b.ID},
			fuzzyName{norm: Normalize(b.ShortName), bookID: b.ID},
		)
	}

	for _, e := range entries {
		if _, ok := reg.ByID(e.BookID); !ok {
			return nil, fmt.Errorf("alias %q: unknown book id %d", e.SourceToken, e.BookID)
		}
		norm := Normalize(e.SourceToken)
		if norm == "" {
			return nil, fmt.Errorf("alias for book %d normalizes to empty token", e.BookID)
		}
		target := t.defaults
		if e.VersionCode != "" {
			target = t.byVersion[e.VersionCode]
			if target == nil {
				target = make(map[string]int)
				t.byVersion[e.VersionCode] = target
			}
		}
		if prev, ok := target[norm]; ok && prev != e.BookID {
			return nil, fmt.Errorf("alias %q maps to both book %d and book %d", e.SourceToken, prev, e.BookID)
		}
		target[norm] = e.BookID
	}

	return t, nil
}

// Resolve maps a source token to a canonical book. Version-scoped exact
// matches take priority, then the default table, then fuzzy matching.
// The result is a pure function of (token, versionCode, table contents).
func (t *Table) Resolve(sourceToken, versionCode string) Resolution {
	norm := Normalize(sourceToken)
	if norm == "" {
		return Resolution{}
	}

	if scoped := t.byVersion[versionCode]; scoped != nil {
		if id, ok := scoped[norm]; ok {
			return t.exact(id)
		}
	}
	if id, ok := t.defaults[norm]; ok {
		return t.exact(id)
	}

	return t.fuzzy(norm)
}

func (t *Table) exact(bookID int) Resolution {
	b, _ := t.reg.ByID(bookID)
	return Resolution{Book: b, Confidence: ConfidenceExact, Resolved: true}
}

// fuzzy scans registry names in book id order and keeps the lowest edit
// distance, ties broken by the earlier book id. Substring containment counts
// as distance equal to the length difference; it clears the threshold only
// when that difference is itself within MaxFuzzyDistance, so a long token
// containing a short book name does not resolve.
func (t *Table) fuzzy(norm string) Resolution {
	bestID := 0
	bestDist := MaxFuzzyDistance + 1

	for _, fn := range t.fuzzyNames {
		d := levenshtein.ComputeDistance(norm, fn.norm)
		if d > MaxFuzzyDistance && len([]rune(norm)) >= MinSubstringLen {
			if strings.Contains(fn.norm, norm) || strings.Contains(norm, fn.norm) {
				diff := len([]rune(fn.norm)) - len([]rune(norm))
				if diff < 0 {
					diff = -diff
				}
				if diff < d {
					d = diff
				}
			}
		}
		if d < bestDist {
			bestDist = d
			bestID = fn.bookID
		}
	}

	if bestID == 0 || bestDist > MaxFuzzyDistance {
		return Resolution{}
	}
	b, _ := t.reg.ByID(bestID)
	return Resolution{Book: b, Confidence: ConfidenceFuzzy, Distance: bestDist, Resolved: true}
}
