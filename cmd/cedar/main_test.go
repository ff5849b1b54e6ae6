package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/FocuswithJustin/CedarBible/core/store"
)

// Test helper functions

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	return path
}

// resetCLI restores the global flag state after a test mutates it.
func resetCLI(t *testing.T) {
	t.Helper()
	saved := CLI
	t.Cleanup(func() { CLI = saved })
}

const testSource = `<?xml version="1.0" encoding="UTF-8"?>
<XMLBIBLE>
  <BIBLEBOOK bname="Genesis">
    <CHAPTER cnumber="1">
      <VERS vnumber="1">In the beginning God created the heaven and the earth.</VERS>
      <VERS vnumber="2">And the earth was without form, and void.</VERS>
    </CHAPTER>
  </BIBLEBOOK>
</XMLBIBLE>`

func writeTestManifest(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	writeTestFile(t, dir, "kjv.xml", testSource)
	manifest := writeTestFile(t, dir, "cedar.yaml", `
database: cedar.db
pipeline:
  allow_partial: true
versions:
  - code: KJV
    display_name: King James Version
    source: kjv.xml
    dialect: zefania
`)
	return manifest, filepath.Join(dir, "cedar.db")
}

// Tests for ImportRunCmd

func TestImportRunCmd_Run(t *testing.T) {
	resetCLI(t)
	manifest, dbPath := writeTestManifest(t)
	CLI.Config = manifest

	cmd := &ImportRunCmd{}
	if err := cmd.Run(); err != nil {
		t.Fatalf("ImportRunCmd.Run() error = %v", err)
	}

	s, err := store.Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	st, err := s.GetVersion(context.Background(), "KJV")
	if err != nil {
		t.Fatal(err)
	}
	if st.State != store.StateCommitted {
		t.Errorf("state after import = %s, want Committed", st.State)
	}

	n, err := s.Count(context.Background(), store.Filter{VersionCode: "KJV"})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("verse count = %d, want 2", n)
	}
}

func TestImportRunCmd_UnknownCode(t *testing.T) {
	resetCLI(t)
	manifest, _ := writeTestManifest(t)
	CLI.Config = manifest

	cmd := &ImportRunCmd{Codes: []string{"NOPE"}}
	if err := cmd.Run(); err == nil {
		t.Error("expected error for unknown version code")
	}
}

func TestImportRunCmd_MissingManifest(t *testing.T) {
	resetCLI(t)
	CLI.Config = filepath.Join(t.TempDir(), "absent.yaml")

	cmd := &ImportRunCmd{}
	if err := cmd.Run(); err == nil {
		t.Error("expected error for missing manifest")
	}
}

// Tests for ImportStatusCmd and ImportReportCmd

func TestImportStatusCmd_Run(t *testing.T) {
	resetCLI(t)
	manifest, _ := writeTestManifest(t)
	CLI.Config = manifest

	if err := (&ImportRunCmd{}).Run(); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		cmd  ImportStatusCmd
	}{
		{"all versions", ImportStatusCmd{}},
		{"single version", ImportStatusCmd{Code: "KJV"}},
		{"unknown version reads as NotStarted", ImportStatusCmd{Code: "WEB"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cmd.Run(); err != nil {
				t.Errorf("ImportStatusCmd.Run() error = %v", err)
			}
		})
	}
}

func TestImportReportCmd_Run(t *testing.T) {
	resetCLI(t)
	manifest, _ := writeTestManifest(t)
	CLI.Config = manifest

	if err := (&ImportRunCmd{}).Run(); err != nil {
		t.Fatal(err)
	}

	for _, format := range []string{"json", "yaml"} {
		cmd := &ImportReportCmd{Code: "KJV", Format: format}
		if err := cmd.Run(); err != nil {
			t.Errorf("ImportReportCmd.Run() format=%s error = %v", format, err)
		}
	}

	cmd := &ImportReportCmd{Code: "WEB", Format: "json"}
	if err := cmd.Run(); err == nil {
		t.Error("expected error for version with no report")
	}
}

// Tests for RegistryGroup

func TestRegistryListCmd_Run(t *testing.T) {
	tests := []struct {
		name      string
		testament string
		wantErr   bool
	}{
		{"all books", "", false},
		{"old testament", "OT", false},
		{"new testament", "NT", false},
		{"unknown testament", "XX", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &RegistryListCmd{Testament: tt.testament}
			if err := cmd.Run(); (err != nil) != tt.wantErr {
				t.Errorf("RegistryListCmd.Run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegistryCheckCmd_Run(t *testing.T) {
	if err := (&RegistryCheckCmd{}).Run(); err != nil {
		t.Errorf("built-in registry check failed: %v", err)
	}

	dir := t.TempDir()
	good := writeTestFile(t, dir, "good.yaml", `
- {id: 1, order: 1, full_name: Genesis, short_name: Gen, testament: OT, chapters: 50}
- {id: 2, order: 2, full_name: Exodus, short_name: Exod, testament: OT, chapters: 40}
`)
	if err := (&RegistryCheckCmd{File: good}).Run(); err != nil {
		t.Errorf("valid custom registry rejected: %v", err)
	}

	bad := writeTestFile(t, dir, "bad.yaml", `
- {id: 1, order: 1, full_name: Genesis, short_name: Gen, testament: OT, chapters: 50}
- {id: 1, order: 2, full_name: Exodus, short_name: Exod, testament: OT, chapters: 40}
`)
	if err := (&RegistryCheckCmd{File: bad}).Run(); err == nil {
		t.Error("duplicate book id accepted")
	}
}

// Tests for LookupGroup

func TestVerseCmd_Run(t *testing.T) {
	resetCLI(t)
	manifest, _ := writeTestManifest(t)
	CLI.Config = manifest

	if err := (&ImportRunCmd{}).Run(); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		ref     string
		wantErr bool
	}{
		{"dotted reference", "Gen.1.1", false},
		{"colon reference", "Genesis 1:2", false},
		{"book only", "Genesis", true},
		{"absent verse", "Gen.1.99", true},
		{"unknown book", "Atlantis 1:1", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &VerseCmd{Ref: tt.ref, Version: "KJV"}
			if err := cmd.Run(); (err != nil) != tt.wantErr {
				t.Errorf("VerseCmd.Run(%q) error = %v, wantErr %v", tt.ref, err, tt.wantErr)
			}
		})
	}
}

func TestRangeCmd_Run(t *testing.T) {
	resetCLI(t)
	manifest, _ := writeTestManifest(t)
	CLI.Config = manifest

	if err := (&ImportRunCmd{}).Run(); err != nil {
		t.Fatal(err)
	}

	if err := (&RangeCmd{Book: "Genesis", Chapter: 1, Version: "KJV"}).Run(); err != nil {
		t.Errorf("RangeCmd.Run() error = %v", err)
	}
	if err := (&RangeCmd{Book: "Genesis", Chapter: 7, Version: "KJV"}).Run(); err == nil {
		t.Error("absent chapter should error")
	}
}

// Tests for AliasResolveCmd

func TestAliasResolveCmd_Run(t *testing.T) {
	resetCLI(t)
	manifest, _ := writeTestManifest(t)
	CLI.Config = manifest

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{"full name", "Genesis", false},
		{"short name", "Gen", false},
		{"fuzzy", "Genesiss", false},
		{"unresolvable", "Zzzz", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &AliasResolveCmd{Token: tt.token}
			if err := cmd.Run(); (err != nil) != tt.wantErr {
				t.Errorf("AliasResolveCmd.Run(%q) error = %v, wantErr %v", tt.token, err, tt.wantErr)
			}
		})
	}
}

func TestVersionCmd_Run(t *testing.T) {
	if err := (&VersionCmd{}).Run(); err != nil {
		t.Errorf("VersionCmd.Run() error = %v", err)
	}
}
