// Package canon defines the canonical book registry: the version-independent
// identity and ordering of scripture books shared across all translations.
//
// The registry is closed and immutable after construction. Adding a book is a
// registry schema change, never a runtime operation; every component that needs
// book identity receives a *Registry explicitly rather than consulting a
// package-level table.
package canon

import (
	"fmt"

	"github.com/FocuswithJustin/CedarBible/core/errors"
)

// Testament groups books into broad canon divisions.
type Testament string

// Testament constants.
const (
	TestamentOld Testament = "OT"
	TestamentNew Testament = "NT"
	// TestamentDeutero covers deuterocanonical / apocryphal books present in
	// wider canons (Catholic, Orthodox).
	TestamentDeutero Testament = "DC"
)

// Book is one canonical book. Immutable after registry construction.
type Book struct {
	// ID is the stable integer identifier, contiguous from 1.
	ID int `json:"id" yaml:"id"`

	// Order is the reading order, a permutation of 1..N.
	Order int `json:"order" yaml:"order"`

	// FullName is the canonical display name (e.g., "Genesis"). Unique.
	FullName string `json:"full_name" yaml:"full_name"`

	// ShortName is the abbreviated form (e.g., "Gen").
	ShortName string `json:"short_name" yaml:"short_name"`

	// Testament is the canon division tag.
	Testament Testament `json:"testament" yaml:"testament"`

	// Chapters is the expected chapter count, 0 if unknown. Used by
	// completeness checks, never enforced by the registry itself.
	Chapters int `json:"chapters,omitempty" yaml:"chapters,omitempty"`
}

// Registry is the immutable-after-load set of canonical books.
type Registry struct {
	books   []Book // indexed by ID-1
	byOrder []int  // order -> ID
}

// NewRegistry validates the book set and builds a registry.
// It fails with a RegistryIntegrityError if ids are not contiguous from 1,
// if order is not a permutation of 1..N, or if any full name is duplicated.
// All violations are collected, not just the first.
func NewRegistry(books []Book) (*Registry, error) {
	var violations []string

	if len(books) == 0 {
		violations = append(violations, "registry is empty")
		return nil, &errors.RegistryIntegrityError{Violations: violations}
	}

	n := len(books)
	byID := make([]Book, n)
	seenID := make([]bool, n+1)
	for _, b := range books {
		if b.ID < 1 || b.ID > n {
			violations = append(violations, fmt.Sprintf("id %d out of range 1..%d (%s)", b.ID, n, b.FullName))
			continue
		}
		if seenID[b.ID] {
			violations = append(violations, fmt.Sprintf("id %d assigned twice", b.ID))
			continue
		}
		seenID[b.ID] = true
		byID[b.ID-1] = b
	}
	for id := 1; id <= n; id++ {
		if !seenID[id] {
			violations = append(violations, fmt.Sprintf("ids not contiguous: %d missing", id))
		}
	}

	byOrder := make([]int, n+1)
	seenOrder := make([]bool, n+1)
	for _, b := range books {
		if b.Order < 1 || b.Order > n {
			violations = append(violations, fmt.Sprintf("order %d out of range 1..%d (%s)", b.Order, n, b.FullName))
			continue
		}
		if seenOrder[b.Order] {
			violations = append(violations, fmt.Sprintf("order %d assigned twice", b.Order))
			continue
		}
		seenOrder[b.Order] = true
		byOrder[b.Order] = b.ID
	}

	// Two books must never share a display name. Ad-hoc source data violates
	// this constantly; it is enforced here, not downstream.
	names := make(map[string]int, n)
	for _, b := range books {
		if b.FullName == "" {
			violations = append(violations, fmt.Sprintf("id %d has empty full name", b.ID))
			continue
		}
		if prev, dup := names[b.FullName]; dup {
			violations = append(violations, fmt.Sprintf("duplicate full name %q (ids %d and %d)", b.FullName, prev, b.ID))
			continue
		}
		names[b.FullName] = b.ID
	}

	if len(violations) > 0 {
		return nil, &errors.RegistryIntegrityError{Violations: violations}
	}

	return &Registry{books: byID, byOrder: byOrder}, nil
}

// MustRegistry builds a registry and panics on integrity errors.
// Intended for the built-in canon tables and tests.
func MustRegistry(books []Book) *Registry {
	r, err := NewRegistry(books)
	if err != nil {
		panic(fmt.Sprintf("canon: %v", err))
	}
	return r
}

// Len returns the number of books in the registry.
func (r *Registry) Len() int {
	return len(r.books)
}

// ByID looks up a book by its stable identifier.
func (r *Registry) ByID(id int) (Book, bool) {
	if id < 1 || id > len(r.books) {
		return Book{}, false
	}
	return r.books[id-1], true
}

// ByOrder looks up a book by reading order.
func (r *Registry) ByOrder(order int) (Book, bool) {
	if order < 1 || order >= len(r.byOrder) {
		return Book{}, false
	}
	return r.books[r.byOrder[order]-1], true
}

// All returns the books in reading order. The returned slice is a copy.
func (r *Registry) All() []Book {
	out := make([]Book, 0, len(r.books))
	for order := 1; order < len(r.byOrder); order++ {
		out = append(out, r.books[r.byOrder[order]-1])
	}
	return out
}
