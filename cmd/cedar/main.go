// Command cedar is the CLI tool for CedarBible.
// It provides commands for importing scripture versions, inspecting the
// canonical registry, and looking up verses across versions.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"gopkg.in/yaml.v3"

	"github.com/FocuswithJustin/CedarBible/core/alias"
	"github.com/FocuswithJustin/CedarBible/core/canon"
	"github.com/FocuswithJustin/CedarBible/core/importer"
	"github.com/FocuswithJustin/CedarBible/core/lookup"
	"github.com/FocuswithJustin/CedarBible/core/store"
	"github.com/FocuswithJustin/CedarBible/core/verify"
	"github.com/FocuswithJustin/CedarBible/internal/config"
	"github.com/FocuswithJustin/CedarBible/internal/logging"
)

const version = "0.1.0"

// CLI defines the command-line interface for cedar.
var CLI struct {
	// Global flags
	Config    string `name:"config" short:"c" default:"cedar.yaml" help:"Import manifest path" type:"path"`
	DB        string `name:"db" help:"SQLite database path (overrides manifest)" type:"path"`
	LogLevel  string `name:"log-level" default:"info" enum:"debug,info,warn,error" help:"Log level"`
	LogFormat string `name:"log-format" default:"text" enum:"text,json" help:"Log format"`

	// Command groups (noun-first organization)
	Import   ImportGroup   `cmd:"" help:"Import operations (run, status, report)"`
	Registry RegistryGroup `cmd:"" help:"Canonical book registry operations"`
	Lookup   LookupGroup   `cmd:"" help:"Verse and chapter lookup"`
	Alias    AliasGroup    `cmd:"" help:"Book-name alias operations"`
	Version  VersionCmd    `cmd:"" help:"Print version information"`
}

// ImportGroup contains import pipeline operations.
type ImportGroup struct {
	Run    ImportRunCmd    `cmd:"" help:"Import versions from the manifest"`
	Status ImportStatusCmd `cmd:"" help:"Show per-version import state"`
	Report ImportReportCmd `cmd:"" help:"Show the latest import report for a version"`
}

// RegistryGroup contains canonical registry operations.
type RegistryGroup struct {
	List  RegistryListCmd  `cmd:"" help:"List the canonical books"`
	Check RegistryCheckCmd `cmd:"" help:"Validate registry integrity"`
}

// LookupGroup contains verse lookup operations.
type LookupGroup struct {
	Verse VerseCmd `cmd:"" help:"Look up a single verse by reference"`
	Range RangeCmd `cmd:"" help:"Print a whole chapter"`
}

// AliasGroup contains alias table operations.
type AliasGroup struct {
	Resolve AliasResolveCmd `cmd:"" help:"Resolve a source book token"`
}

// loadManifest reads the manifest named by the global --config flag.
func loadManifest() (*config.Manifest, error) {
	m, err := config.Load(CLI.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}
	if CLI.DB != "" {
		m.Database = CLI.DB
	}
	return m, nil
}

// openDB opens the SQLite store. When no manifest exists the --db flag alone
// is enough for read-only commands.
func openDB() (*store.SQLite, error) {
	path := CLI.DB
	if path == "" {
		m, err := loadManifest()
		if err != nil {
			return nil, err
		}
		path = m.Database
	}
	s, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return s, nil
}

// aliasTable builds the alias table: built-in registry names plus any curated
// entries from the manifest. A missing manifest yields the defaults only.
func aliasTable(reg *canon.Registry) (*alias.Table, error) {
	var entries []alias.Entry
	if m, err := loadManifest(); err == nil {
		entries = m.Aliases
	} else if CLI.DB == "" {
		return nil, err
	}
	table, err := alias.NewTable(reg, entries)
	if err != nil {
		return nil, fmt.Errorf("failed to build alias table: %w", err)
	}
	return table, nil
}

// ImportRunCmd imports one or more versions from the manifest.
type ImportRunCmd struct {
	Codes        []string `arg:"" optional:"" help:"Version codes to import (default: all manifest versions)"`
	AllowPartial bool     `help:"Commit versions with missing books"`
	Parallelism  int      `help:"Concurrent version imports (default: manifest setting or 1)"`
}

func (c *ImportRunCmd) Run() error {
	m, err := loadManifest()
	if err != nil {
		return err
	}

	specs := m.Versions
	if len(c.Codes) > 0 {
		specs = specs[:0:0]
		for _, code := range c.Codes {
			spec, err := m.Version(code)
			if err != nil {
				return err
			}
			specs = append(specs, spec)
		}
	}

	s, err := store.Open(m.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer s.Close()

	reg := canon.Protestant()
	table, err := alias.NewTable(reg, m.Aliases)
	if err != nil {
		return fmt.Errorf("failed to build alias table: %w", err)
	}

	opts := m.Pipeline.Options()
	if c.AllowPartial {
		opts.AllowPartial = true
	}
	imp := importer.New(reg, table, s, s, opts)

	parallelism := c.Parallelism
	if parallelism <= 0 {
		parallelism = m.Pipeline.Parallelism
	}

	ctx := context.Background()
	if parallelism > 1 && len(specs) > 1 {
		if err := imp.RunAll(ctx, specs, parallelism); err != nil {
			return err
		}
		for _, spec := range specs {
			if err := printStatus(ctx, s, spec.Code); err != nil {
				return err
			}
		}
		return nil
	}

	for _, spec := range specs {
		report, err := imp.Run(ctx, spec)
		if err != nil {
			if report != nil {
				printReportSummary(report)
			}
			return fmt.Errorf("import %s: %w", spec.Code, err)
		}
		fmt.Printf("Imported: %s\n", spec.Code)
		printReportSummary(report)
	}
	return nil
}

func printReportSummary(r *verify.ImportReport) {
	if r == nil {
		return
	}
	if len(r.DuplicateBookAssignments) > 0 {
		fmt.Printf("  Duplicate assignments: %d\n", len(r.DuplicateBookAssignments))
		for _, d := range r.DuplicateBookAssignments {
			fmt.Printf("    book %d <- %s\n", d.BookID, strings.Join(d.Tokens, ", "))
		}
	}
	if len(r.MissingBooks) > 0 {
		fmt.Printf("  Missing books: %d\n", len(r.MissingBooks))
	}
	if len(r.UnresolvedTokens) > 0 {
		fmt.Printf("  Unresolved tokens: %s\n", strings.Join(r.UnresolvedTokens, ", "))
	}
	if len(r.ChapterGaps) > 0 {
		fmt.Printf("  Chapter gaps: %d\n", len(r.ChapterGaps))
	}
	if len(r.VerseCountAnomalies) > 0 {
		fmt.Printf("  Verse count anomalies: %d\n", len(r.VerseCountAnomalies))
	}
	if len(r.FuzzyResolutions) > 0 {
		fmt.Printf("  Fuzzy resolutions: %d (review with 'cedar alias resolve')\n", len(r.FuzzyResolutions))
	}
	if len(r.EmptyVerses) > 0 {
		fmt.Printf("  Empty verses excluded: %d\n", len(r.EmptyVerses))
	}
}

// ImportStatusCmd shows per-version import state.
type ImportStatusCmd struct {
	Code string `arg:"" optional:"" help:"Version code (default: all recorded versions)"`
}

func (c *ImportStatusCmd) Run() error {
	s, err := openDB()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	if c.Code != "" {
		return printStatus(ctx, s, c.Code)
	}

	statuses, err := s.ListVersions(ctx)
	if err != nil {
		return err
	}
	if len(statuses) == 0 {
		fmt.Println("No versions recorded.")
		return nil
	}
	for _, st := range statuses {
		printStatusRow(st)
	}
	return nil
}

func printStatus(ctx context.Context, s *store.SQLite, code string) error {
	st, err := s.GetVersion(ctx, code)
	if err != nil {
		return err
	}
	printStatusRow(st)
	return nil
}

func printStatusRow(st store.VersionStatus) {
	fmt.Printf("%-8s %-10s", st.Code, st.State)
	if st.RunID != "" {
		fmt.Printf("  run %s", st.RunID)
	}
	if st.SourceHash != "" {
		fmt.Printf("  source %s (%d bytes)", shortHash(st.SourceHash), st.SourceSize)
	}
	if !st.UpdatedAt.IsZero() {
		fmt.Printf("  %s", st.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	if st.LastError != "" {
		fmt.Printf("  error: %s", st.LastError)
	}
	fmt.Println()
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12] + "..."
	}
	return h
}

// ImportReportCmd shows the latest persisted import report for a version.
type ImportReportCmd struct {
	Code   string `arg:"" help:"Version code"`
	Format string `default:"json" enum:"json,yaml" help:"Output format"`
}

func (c *ImportReportCmd) Run() error {
	s, err := openDB()
	if err != nil {
		return err
	}
	defer s.Close()

	raw, err := s.LatestReport(context.Background(), c.Code)
	if err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("no report recorded for %s", c.Code)
	}

	if c.Format == "yaml" {
		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("failed to decode stored report: %w", err)
		}
		out, err := yaml.Marshal(doc)
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return fmt.Errorf("failed to decode stored report: %w", err)
	}
	fmt.Println(buf.String())
	return nil
}

// RegistryListCmd lists the canonical books.
type RegistryListCmd struct {
	Testament string `optional:"" help:"Filter by testament (OT or NT)"`
}

func (c *RegistryListCmd) Run() error {
	switch c.Testament {
	case "", string(canon.TestamentOld), string(canon.TestamentNew):
	default:
		return fmt.Errorf("unknown testament %q", c.Testament)
	}
	reg := canon.Protestant()
	fmt.Printf("%-4s %-6s %-20s %-6s %s\n", "ID", "Order", "Name", "Short", "Chapters")
	for _, b := range reg.All() {
		if c.Testament != "" && string(b.Testament) != c.Testament {
			continue
		}
		fmt.Printf("%-4d %-6d %-20s %-6s %d\n", b.ID, b.Order, b.FullName, b.ShortName, b.Chapters)
	}
	return nil
}

// RegistryCheckCmd validates registry integrity. With --file it validates a
// custom canon definition instead of the built-in one.
type RegistryCheckCmd struct {
	File string `optional:"" help:"YAML file with a custom book list" type:"existingfile"`
}

func (c *RegistryCheckCmd) Run() error {
	books := canon.Protestant().All()
	label := "built-in Protestant canon"
	if c.File != "" {
		data, err := os.ReadFile(c.File)
		if err != nil {
			return fmt.Errorf("failed to read book list: %w", err)
		}
		books = nil
		if err := yaml.Unmarshal(data, &books); err != nil {
			return fmt.Errorf("failed to parse book list: %w", err)
		}
		label = c.File
	}

	reg, err := canon.NewRegistry(books)
	if err != nil {
		return err
	}
	fmt.Printf("Registry OK: %s (%d books)\n", label, reg.Len())
	return nil
}

// VerseCmd looks up a single verse by human-readable reference.
type VerseCmd struct {
	Ref     string `arg:"" help:"Reference, e.g. \"Gen.1.1\" or \"Genesis 1:1\""`
	Version string `required:"" short:"v" help:"Version code"`
}

func (c *VerseCmd) Run() error {
	svc, s, err := lookupService()
	if err != nil {
		return err
	}
	defer s.Close()

	ref, err := lookup.ParseRef(c.Ref)
	if err != nil {
		return err
	}
	book, chapter, verse, err := svc.Resolve(ref, c.Version)
	if err != nil {
		return err
	}
	if chapter == 0 || verse == 0 {
		return fmt.Errorf("reference %q does not name a verse", c.Ref)
	}

	text, found, err := svc.Get(context.Background(), book.ID, chapter, verse, c.Version)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%s %d:%d not present in %s", book.FullName, chapter, verse, c.Version)
	}
	fmt.Printf("%s %d:%d (%s)\n%s\n", book.FullName, chapter, verse, c.Version, text)
	return nil
}

// RangeCmd prints a whole chapter.
type RangeCmd struct {
	Book    string `arg:"" help:"Book name or token"`
	Chapter int    `arg:"" help:"Chapter number"`
	Version string `required:"" short:"v" help:"Version code"`
}

func (c *RangeCmd) Run() error {
	svc, s, err := lookupService()
	if err != nil {
		return err
	}
	defer s.Close()

	book, _, _, err := svc.Resolve(lookup.Ref{Book: c.Book}, c.Version)
	if err != nil {
		return err
	}

	verses, err := svc.RangeOf(context.Background(), book.ID, c.Chapter, c.Version)
	if err != nil {
		return err
	}
	if len(verses) == 0 {
		return fmt.Errorf("%s %d not present in %s", book.FullName, c.Chapter, c.Version)
	}

	fmt.Printf("%s %d (%s)\n", book.FullName, c.Chapter, c.Version)
	for _, v := range verses {
		fmt.Printf("%d. %s\n", v.Verse, v.Text)
	}
	return nil
}

// AliasResolveCmd resolves a source book token against the alias table.
type AliasResolveCmd struct {
	Token   string `arg:"" help:"Source book token, e.g. \"1 Mosebok\""`
	Version string `optional:"" short:"v" help:"Version code for version-scoped aliases"`
}

func (c *AliasResolveCmd) Run() error {
	reg := canon.Protestant()
	table, err := aliasTable(reg)
	if err != nil {
		return err
	}

	res := table.Resolve(c.Token, c.Version)
	if !res.Resolved {
		return fmt.Errorf("token %q did not resolve", c.Token)
	}
	fmt.Printf("Token:      %s\n", c.Token)
	fmt.Printf("Normalized: %s\n", alias.Normalize(c.Token))
	fmt.Printf("Book:       %s (id %d)\n", res.Book.FullName, res.Book.ID)
	fmt.Printf("Confidence: %s\n", res.Confidence)
	if res.Distance > 0 {
		fmt.Printf("Distance:   %d\n", res.Distance)
	}
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("cedar version %s\n", version)
	return nil
}

func lookupService() (*lookup.Service, *store.SQLite, error) {
	reg := canon.Protestant()
	table, err := aliasTable(reg)
	if err != nil {
		return nil, nil, err
	}
	s, err := openDB()
	if err != nil {
		return nil, nil, err
	}
	return lookup.New(reg, table, s), s, nil
}

func initLogging() {
	level := logging.LevelInfo
	switch CLI.LogLevel {
	case "debug":
		level = logging.LevelDebug
	case "warn":
		level = logging.LevelWarn
	case "error":
		level = logging.LevelError
	}
	format := logging.FormatText
	if CLI.LogFormat == "json" {
		format = logging.FormatJSON
	}
	logging.InitLogger(level, format)
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("cedar"),
		kong.Description("CedarBible - Scripture import and cross-version reference engine"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	initLogging()
	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}
