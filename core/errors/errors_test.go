package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestMalformedDocumentError(t *testing.T) {
	tests := []struct {
		name     string
		err      *MalformedDocumentError
		wantMsg  string
		wantBase error
	}{
		{
			name:     "with path",
			err:      &MalformedDocumentError{Dialect: "zefania", Path: "kjv.xml", Message: "unexpected EOF"},
			wantMsg:  "malformed zefania document at kjv.xml: unexpected EOF",
			wantBase: ErrMalformed,
		},
		{
			name:     "without path",
			err:      &MalformedDocumentError{Dialect: "osis", Message: "unclosed element"},
			wantMsg:  "malformed osis document: unclosed element",
			wantBase: ErrMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if !errors.Is(tt.err, tt.wantBase) {
				t.Errorf("errors.Is(%v, %v) = false", tt.err, tt.wantBase)
			}
		})
	}
}

func TestSentinelMatchesWithUnderlyingCause(t *testing.T) {
	// Attaching a cause must not knock the sentinel out of the chain: both
	// the sentinel and the cause stay reachable via errors.Is.
	cause := fmt.Errorf("XML syntax error on line 4: unexpected EOF")

	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"malformed document", NewMalformedDocument("zefania", "", "parse failed", cause), ErrMalformed},
		{"malformed reference", &MalformedReferenceError{Field: "verse", RawValue: "x", Err: cause}, ErrMalformed},
		{"transient store", NewTransient("upsert", cause), ErrTransient},
		{"fatal store", &FatalStoreError{VersionCode: "KJV", Attempts: 5, Err: cause}, ErrFatal},
		{"cancelled", &CancelledError{VersionCode: "KJV", Stage: "committing", Err: cause}, ErrCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("errors.Is(err, %v) = false with cause attached", tt.sentinel)
			}
			if !errors.Is(tt.err, cause) {
				t.Error("underlying cause no longer reachable via errors.Is")
			}
		})
	}
}

func TestMalformedReferenceError(t *testing.T) {
	err := NewMalformedReference("chapter", "III", "book Gen")
	want := `malformed chapter number "III" at book Gen`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrMalformed) {
		t.Error("MalformedReferenceError should unwrap to ErrMalformed")
	}
}

func TestRegistryIntegrityError(t *testing.T) {
	tests := []struct {
		name       string
		violations []string
		wantMsg    string
	}{
		{
			name:       "single violation",
			violations: []string{"duplicate full name: Psalms"},
			wantMsg:    "registry integrity: duplicate full name: Psalms",
		},
		{
			name:       "multiple violations",
			violations: []string{"ids not contiguous at 3", "order 5 repeated"},
			wantMsg:    "registry integrity: 2 violations, first: ids not contiguous at 3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &RegistryIntegrityError{Violations: tt.violations}
			if got := err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if !errors.Is(err, ErrIntegrity) {
				t.Error("should unwrap to ErrIntegrity")
			}
		})
	}
}

func TestIncompleteImportError(t *testing.T) {
	err := &IncompleteImportError{VersionCode: "KJV", Duplicates: 1, Missing: 2}
	want := "import of KJV blocked: 1 duplicate book assignments, 2 missing books"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrIncomplete) {
		t.Error("should unwrap to ErrIncomplete")
	}
}

func TestTransientAndFatal(t *testing.T) {
	underlying := fmt.Errorf("connection reset")
	te := NewTransient("upsert", underlying)
	if !IsTransient(te) {
		t.Error("IsTransient should report true for TransientStoreError")
	}
	if !errors.Is(te, underlying) {
		t.Error("TransientStoreError should unwrap to the underlying error")
	}
	if IsTransient(fmt.Errorf("disk full")) {
		t.Error("IsTransient should report false for ordinary errors")
	}

	fe := &FatalStoreError{VersionCode: "KJV", Attempts: 5, Err: underlying}
	want := "store failure for KJV after 5 attempts: connection reset"
	if got := fe.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(fe, underlying) {
		t.Error("FatalStoreError should preserve the last underlying error")
	}
}

func TestCancelledError(t *testing.T) {
	err := &CancelledError{VersionCode: "WEB", Stage: "committing"}
	if got := err.Error(); got != "import of WEB cancelled during committing" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, ErrCancelled) {
		t.Error("should unwrap to ErrCancelled")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Error("Wrap(nil) should return nil")
	}
	base := errors.New("base")
	wrapped := Wrapf(base, "during %s", "commit")
	if wrapped.Error() != "during commit: base" {
		t.Errorf("Wrapf() = %q", wrapped.Error())
	}
	if !errors.Is(wrapped, base) {
		t.Error("wrapped error should match base via errors.Is")
	}
}
