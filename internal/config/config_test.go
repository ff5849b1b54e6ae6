package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/FocuswithJustin/CedarBible/core/errors"
)

func writeManifest(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "cedar.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeManifest(t, `
database: data/bibles.db
pipeline:
  batch_size: 50
  initial_backoff: 100ms
  max_backoff: 5s
  tolerance: 1
  allow_partial: true
aliases:
  - token: Beresheet
    book_id: 1
versions:
  - code: KJV
    display_name: King James Version
    source: sources/kjv.xml
    dialect: zefania
  - code: WEB
    display_name: World English Bible
    source: /srv/bibles/web.xml.xz
    dialect: osis
`)
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	base := filepath.Dir(path)
	if want := filepath.Join(base, "data", "bibles.db"); m.Database != want {
		t.Errorf("Database = %q, want %q", m.Database, want)
	}
	if want := filepath.Join(base, "sources", "kjv.xml"); m.Versions[0].SourcePath != want {
		t.Errorf("relative source = %q, want %q", m.Versions[0].SourcePath, want)
	}
	if m.Versions[1].SourcePath != "/srv/bibles/web.xml.xz" {
		t.Errorf("absolute source rewritten: %q", m.Versions[1].SourcePath)
	}

	opts := m.Pipeline.Options()
	if opts.BatchSize != 50 || opts.Tolerance != 1 || !opts.AllowPartial {
		t.Errorf("Options = %+v", opts)
	}
	if opts.InitialBackoff != 100*time.Millisecond || opts.MaxBackoff != 5*time.Second {
		t.Errorf("backoff durations = %v, %v", opts.InitialBackoff, opts.MaxBackoff)
	}
	if len(m.Aliases) != 1 || m.Aliases[0].BookID != 1 {
		t.Errorf("Aliases = %+v", m.Aliases)
	}
}

func TestLoadDefaultDatabase(t *testing.T) {
	path := writeManifest(t, `
versions:
  - code: KJV
    source: kjv.xml
    dialect: zefania
`)
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if want := filepath.Join(filepath.Dir(path), "cedar.db"); m.Database != want {
		t.Errorf("Database = %q, want %q", m.Database, want)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "no versions",
			body: "database: x.db\n",
			want: "no versions",
		},
		{
			name: "missing code",
			body: "versions:\n  - source: a.xml\n    dialect: zefania\n",
			want: "missing code",
		},
		{
			name: "duplicate code",
			body: "versions:\n  - {code: KJV, source: a.xml, dialect: zefania}\n  - {code: KJV, source: b.xml, dialect: osis}\n",
			want: "duplicate code",
		},
		{
			name: "missing source",
			body: "versions:\n  - {code: KJV, dialect: zefania}\n",
			want: "missing source",
		},
		{
			name: "missing dialect",
			body: "versions:\n  - {code: KJV, source: a.xml}\n",
			want: "missing dialect",
		},
		{
			name: "unknown dialect",
			body: "versions:\n  - {code: KJV, source: a.xml, dialect: usfm}\n",
			want: "unknown dialect",
		},
		{
			name: "xpath dialect without section",
			body: "versions:\n  - {code: KJV, source: a.xml, dialect: xpath}\n",
			want: "requires an xpath section",
		},
		{
			name: "xpath section on zefania",
			body: "versions:\n  - code: KJV\n    source: a.xml\n    dialect: zefania\n    xpath:\n      book: //b\n",
			want: "requires dialect",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeManifest(t, tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, errors.ErrInvalidInput) {
				t.Errorf("error not ErrInvalidInput: %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadBadYAML(t *testing.T) {
	_, err := Load(writeManifest(t, "versions: [\n"))
	if err == nil {
		t.Fatal("expected error")
	}
	var malformed *errors.MalformedDocumentError
	if !errors.As(err, &malformed) {
		t.Fatalf("error not MalformedDocumentError: %v", err)
	}
	if malformed.Dialect != "manifest" {
		t.Errorf("Dialect = %q", malformed.Dialect)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error")
	}
}

func TestVersion(t *testing.T) {
	path := writeManifest(t, `
versions:
  - {code: KJV, source: a.xml, dialect: zefania}
  - {code: WEB, source: b.xml, dialect: osis}
`)
	m, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	v, err := m.Version("WEB")
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if v.Code != "WEB" {
		t.Errorf("Code = %q", v.Code)
	}

	_, err = m.Version("ASV")
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("unknown code: %v", err)
	}
}
