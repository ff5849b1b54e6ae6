// Package errors provides standardized error types and helpers for the CedarBible codebase.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates invalid input or validation failure
	ErrInvalidInput = errors.New("invalid input")
	// ErrInternal indicates an internal system error
	ErrInternal = errors.New("internal error")
	// ErrMalformed indicates a structurally invalid source document
	ErrMalformed = errors.New("malformed document")
	// ErrIntegrity indicates a registry or configuration integrity violation
	ErrIntegrity = errors.New("integrity violation")
	// ErrIncomplete indicates an import blocked by completeness policy
	ErrIncomplete = errors.New("incomplete import")
	// ErrTransient indicates a retryable store failure
	ErrTransient = errors.New("transient store error")
	// ErrFatal indicates a store failure that exhausted its retry attempts
	ErrFatal = errors.New("fatal store error")
	// ErrCancelled indicates a run cancelled between or during stages
	ErrCancelled = errors.New("cancelled")
)

// MalformedDocumentError represents a structurally invalid XML source.
// Parsing stops at the first such error; there is no partial recovery.
type MalformedDocumentError struct {
	Dialect string // Dialect being parsed (e.g., "zefania", "osis")
	Path    string // Source path, if known
	Message string // Error details
	Err     error  // Underlying error, if any
}

func (e *MalformedDocumentError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("malformed %s document at %s: %s", e.Dialect, e.Path, e.Message)
	}
	return fmt.Sprintf("malformed %s document: %s", e.Dialect, e.Message)
}

func (e *MalformedDocumentError) Unwrap() error { return e.Err }

// Is keeps the sentinel matchable even when an underlying cause is attached.
func (e *MalformedDocumentError) Is(target error) bool { return target == ErrMalformed }

// MalformedReferenceError represents a chapter or verse number that is not a
// positive integer, with the offending raw value and approximate position.
type MalformedReferenceError struct {
	Field    string // "chapter" or "verse"
	RawValue string // The value that failed to parse
	Position string // Approximate document position (e.g., "book Gen, chapter 3")
	Err      error  // Underlying error, if any
}

func (e *MalformedReferenceError) Error() string {
	if e.Position != "" {
		return fmt.Sprintf("malformed %s number %q at %s", e.Field, e.RawValue, e.Position)
	}
	return fmt.Sprintf("malformed %s number %q", e.Field, e.RawValue)
}

func (e *MalformedReferenceError) Unwrap() error { return e.Err }

func (e *MalformedReferenceError) Is(target error) bool { return target == ErrMalformed }

// RegistryIntegrityError represents a canonical book registry that fails its
// structural invariants (contiguous ids, order permutation, unique names).
type RegistryIntegrityError struct {
	Violations []string // All detected violations, in registry order
}

func (e *RegistryIntegrityError) Error() string {
	if len(e.Violations) == 1 {
		return fmt.Sprintf("registry integrity: %s", e.Violations[0])
	}
	return fmt.Sprintf("registry integrity: %d violations, first: %s", len(e.Violations), e.Violations[0])
}

func (e *RegistryIntegrityError) Unwrap() error {
	return ErrIntegrity
}

// IncompleteImportError represents a commit blocked by policy. It carries the
// report so the operator can see exactly what blocked it.
type IncompleteImportError struct {
	VersionCode string
	Duplicates  int // count of duplicate book assignments
	Missing     int // count of missing required books
	Report      any // the full ImportReport (typed as any to avoid an import cycle)
}

func (e *IncompleteImportError) Error() string {
	return fmt.Sprintf("import of %s blocked: %d duplicate book assignments, %d missing books",
		e.VersionCode, e.Duplicates, e.Missing)
}

func (e *IncompleteImportError) Unwrap() error {
	return ErrIncomplete
}

// TransientStoreError represents a store failure that the import pipeline
// retries with backoff (timeouts, connection resets).
type TransientStoreError struct {
	Operation string // Operation being performed (e.g., "upsert", "count")
	Err       error  // Underlying error
}

func (e *TransientStoreError) Error() string {
	return fmt.Sprintf("transient store error during %s: %v", e.Operation, e.Err)
}

func (e *TransientStoreError) Unwrap() error { return e.Err }

func (e *TransientStoreError) Is(target error) bool { return target == ErrTransient }

// IsTransient reports whether err is a TransientStoreError anywhere in its chain.
func IsTransient(err error) bool {
	var te *TransientStoreError
	return errors.As(err, &te) || errors.Is(err, ErrTransient)
}

// FatalStoreError represents a store failure that exceeded the retry ceiling.
// The last underlying error and attempt count are preserved, never summarized away.
type FatalStoreError struct {
	VersionCode string
	Attempts    int
	Err         error // Last underlying error
}

func (e *FatalStoreError) Error() string {
	return fmt.Sprintf("store failure for %s after %d attempts: %v", e.VersionCode, e.Attempts, e.Err)
}

func (e *FatalStoreError) Unwrap() error { return e.Err }

func (e *FatalStoreError) Is(target error) bool { return target == ErrFatal }

// CancelledError marks a run cancelled between stages or mid-batch.
type CancelledError struct {
	VersionCode string
	Stage       string // Stage during which cancellation was observed
	Err         error  // Usually context.Canceled or context.DeadlineExceeded
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("import of %s cancelled during %s", e.VersionCode, e.Stage)
}

func (e *CancelledError) Unwrap() error { return e.Err }

func (e *CancelledError) Is(target error) bool { return target == ErrCancelled }

// Helper functions for creating common errors

// NewMalformedDocument creates a MalformedDocumentError
func NewMalformedDocument(dialect, path, message string, err error) *MalformedDocumentError {
	return &MalformedDocumentError{Dialect: dialect, Path: path, Message: message, Err: err}
}

// NewMalformedReference creates a MalformedReferenceError
func NewMalformedReference(field, rawValue, position string) *MalformedReferenceError {
	return &MalformedReferenceError{Field: field, RawValue: rawValue, Position: position}
}

// NewTransient creates a TransientStoreError
func NewTransient(operation string, err error) *TransientStoreError {
	return &TransientStoreError{Operation: operation, Err: err}
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Is wraps errors.Is for convenience
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
