// Package importer drives the per-version import pipeline: parse, resolve,
// verify, commit. Runs are idempotent and resumable; re-running a version
// with the same source and alias table converges to the same committed
// state because every write is an upsert on the verse uniqueness key.
package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/FocuswithJustin/CedarBible/core/alias"
	"github.com/FocuswithJustin/CedarBible/core/canon"
	"github.com/FocuswithJustin/CedarBible/core/dialect"
	"github.com/FocuswithJustin/CedarBible/core/errors"
	"github.com/FocuswithJustin/CedarBible/core/store"
	"github.com/FocuswithJustin/CedarBible/core/verify"
	"github.com/FocuswithJustin/CedarBible/internal/logging"
)

// VersionSpec describes one import source. Dialect "xpath" requires XPath.
type VersionSpec struct {
	Code        string               `yaml:"code"`
	DisplayName string               `yaml:"display_name"`
	SourcePath  string               `yaml:"source"`
	Dialect     string               `yaml:"dialect"`
	XPath       *dialect.XPathConfig `yaml:"xpath,omitempty"`
}

// Options tunes the pipeline. The zero value gets sensible defaults.
type Options struct {
	// BatchSize is the number of records per upsert batch (default 200).
	BatchSize int

	// MaxAttempts is the per-batch store attempt ceiling (default 5).
	MaxAttempts int

	// InitialBackoff seeds the exponential backoff (default 100ms).
	InitialBackoff time.Duration

	// MaxBackoff caps the backoff interval (default 5s).
	MaxBackoff time.Duration

	// Tolerance is the verse-count anomaly tolerance (default 0: any
	// difference is an anomaly).
	Tolerance int

	// AllowPartial commits a version despite missing books. Duplicate book
	// assignments and unresolved tokens always block.
	AllowPartial bool
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = 200
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = 100 * time.Millisecond
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 5 * time.Second
	}
	return o
}

// Importer runs version imports against one store. Safe for concurrent use;
// concurrent runs for the same version code are serialized, different
// versions proceed independently.
type Importer struct {
	reg     *canon.Registry
	aliases *alias.Table
	verses  store.Store
	state   store.StateStore
	opts    Options

	mu      sync.Mutex
	writers map[string]*sync.Mutex
}

// New builds an Importer. The registry and alias table are read-only for the
// importer's lifetime; a run that needs new aliases restarts after the table
// is rebuilt.
func New(reg *canon.Registry, aliases *alias.Table, verses store.Store, state store.StateStore, opts Options) *Importer {
	return &Importer{
		reg:     reg,
		aliases: aliases,
		verses:  verses,
		state:   state,
		opts:    opts.withDefaults(),
		writers: make(map[string]*sync.Mutex),
	}
}

// writerLock returns the single-writer mutex for a version code.
func (imp *Importer) writerLock(code string) *sync.Mutex {
	imp.mu.Lock()
	defer imp.mu.Unlock()
	m, ok := imp.writers[code]
	if !ok {
		m = &sync.Mutex{}
		imp.writers[code] = m
	}
	return m
}

// run carries the mutable state of one import run.
type run struct {
	imp    *Importer
	spec   VersionSpec
	runID  string
	fp     dialect.Fingerprint
	status store.VersionStatus
}

// Run imports one version end to end and returns its ImportReport. The
// report is returned even when the commit is blocked or a late stage fails,
// so callers can always inspect what happened.
func (imp *Importer) Run(ctx context.Context, spec VersionSpec) (*verify.ImportReport, error) {
	lock := imp.writerLock(spec.Code)
	lock.Lock()
	defer lock.Unlock()

	r := &run{
		imp:   imp,
		spec:  spec,
		runID: uuid.NewString(),
	}
	ctx = logging.WithRunID(ctx, r.runID)

	prev, err := imp.state.GetVersion(ctx, spec.Code)
	if err != nil {
		return nil, err
	}
	r.status = store.VersionStatus{
		Code:        spec.Code,
		DisplayName: spec.DisplayName,
		State:       store.StateNotStarted,
	}

	// Parsing.
	if err := r.setState(ctx, store.StateParsing); err != nil {
		return nil, err
	}
	raw, fp, err := dialect.ReadSource(spec.SourcePath)
	if err != nil {
		return nil, r.fail(ctx, "parsing", err)
	}
	r.fp = fp
	r.status.SourceHash = fp.BLAKE3
	r.status.SourceSize = fp.SizeBytes
	if prev.State == store.StateCommitted && prev.SourceHash != "" && prev.SourceHash != fp.BLAKE3 {
		logging.InfoContext(ctx, "source_changed_since_last_commit",
			"version", spec.Code, "previous_hash", prev.SourceHash, "current_hash", fp.BLAKE3)
	}

	parser, err := r.parser()
	if err != nil {
		return nil, r.fail(ctx, "parsing", err)
	}
	var tuples []dialect.Verse
	if err := parser.Parse(bytes.NewReader(raw), func(v dialect.Verse) error {
		tuples = append(tuples, v)
		return nil
	}); err != nil {
		return nil, r.fail(ctx, "parsing", err)
	}
	logging.InfoContext(ctx, "parsed", "version", spec.Code, "dialect", parser.Name(), "tuples", len(tuples))

	// Resolving.
	if err := r.checkCancelled(ctx, "resolving"); err != nil {
		return nil, err
	}
	if err := r.setState(ctx, store.StateResolving); err != nil {
		return nil, err
	}
	var resolved []verify.ResolvedVerse
	var unresolved []string
	for _, tup := range tuples {
		res := imp.aliases.Resolve(tup.BookToken, spec.Code)
		if !res.Resolved {
			unresolved = append(unresolved, tup.BookToken)
			continue
		}
		if res.Confidence == alias.ConfidenceFuzzy {
			logging.FuzzyResolution(spec.Code, tup.BookToken, res.Book.FullName, res.Distance)
		}
		resolved = append(resolved, verify.ResolvedVerse{
			BookID:      res.Book.ID,
			Chapter:     tup.Chapter,
			Verse:       tup.Number,
			Text:        tup.Text,
			SourceToken: tup.BookToken,
			Confidence:  res.Confidence,
			Distance:    res.Distance,
		})
	}

	// Verifying. The detector sees the complete resolved set; no write has
	// happened yet.
	if err := r.checkCancelled(ctx, "verifying"); err != nil {
		return nil, err
	}
	if err := r.setState(ctx, store.StateVerifying); err != nil {
		return nil, err
	}
	baseline, err := r.baseline(ctx)
	if err != nil {
		return nil, r.fail(ctx, "verifying", err)
	}
	report := verify.Detect(imp.reg, spec.Code, resolved, unresolved, baseline, verify.Options{Tolerance: imp.opts.Tolerance})
	if err := r.saveReport(ctx, report); err != nil {
		return nil, r.fail(ctx, "verifying", err)
	}

	// Commit gate. Duplicates and unresolved tokens always block; missing
	// books block unless the caller explicitly allowed a partial canon.
	blocked := len(report.DuplicateBookAssignments) > 0 || len(report.UnresolvedTokens) > 0
	if !imp.opts.AllowPartial && len(report.MissingBooks) > 0 {
		blocked = true
	}
	if blocked {
		logging.ImportBlocked(spec.Code, len(report.DuplicateBookAssignments), len(report.MissingBooks))
		err := &errors.IncompleteImportError{
			VersionCode: spec.Code,
			Duplicates:  len(report.DuplicateBookAssignments),
			Missing:     len(report.MissingBooks) + len(report.UnresolvedTokens),
			Report:      report,
		}
		return report, r.fail(ctx, "verifying", err)
	}

	// Committing.
	if err := r.commit(ctx, report, resolved); err != nil {
		return report, err
	}
	return report, nil
}

// RunAll imports several versions concurrently. Each version's pipeline is
// independent; they share only the immutable registry and alias table. The
// first error cancels the remaining runs.
func (imp *Importer) RunAll(ctx context.Context, specs []VersionSpec, parallelism int) error {
	g, ctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for _, spec := range specs {
		g.Go(func() error {
			_, err := imp.Run(ctx, spec)
			return err
		})
	}
	return g.Wait()
}

func (r *run) parser() (dialect.Parser, error) {
	if r.spec.Dialect == "xpath" {
		if r.spec.XPath == nil {
			return nil, errors.Wrapf(errors.ErrInvalidInput, "version %s: xpath dialect without configuration", r.spec.Code)
		}
		return dialect.NewXPathDialect("xpath:"+r.spec.Code, *r.spec.XPath)
	}
	return dialect.ByName(r.spec.Dialect)
}

// setState advances the persisted import state. Transitions are monotonic
// within a run.
func (r *run) setState(ctx context.Context, next store.ImportState) error {
	logging.ImportStage(ctx, r.spec.Code, string(r.status.State), string(next))
	r.status.State = next
	r.status.RunID = r.runID
	r.status.UpdatedAt = time.Now().UTC()
	return r.imp.state.PutVersion(ctx, r.status)
}

// fail marks the version Failed with cause preserved and returns err.
func (r *run) fail(ctx context.Context, stage string, err error) error {
	r.status.State = store.StateFailed
	r.status.LastError = err.Error()
	r.status.UpdatedAt = time.Now().UTC()
	// Persist best-effort with a fresh context: the run's context may
	// already be cancelled.
	putCtx := ctx
	if putCtx.Err() != nil {
		var cancel context.CancelFunc
		putCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
	}
	if perr := r.imp.state.PutVersion(putCtx, r.status); perr != nil {
		logging.ErrorContext(ctx, "failed_state_not_persisted", "version", r.spec.Code, "error", perr.Error())
	}
	logging.ErrorContext(ctx, "import_failed", "version", r.spec.Code, "stage", stage, "error", err.Error())
	return err
}

// checkCancelled turns a cancelled context into a recorded Failed state
// before the next stage begins, never a silent no-op.
func (r *run) checkCancelled(ctx context.Context, stage string) error {
	if ctx.Err() == nil {
		return nil
	}
	cerr := &errors.CancelledError{VersionCode: r.spec.Code, Stage: stage, Err: ctx.Err()}
	return r.fail(ctx, stage, cerr)
}

func (r *run) baseline(ctx context.Context) (verify.Baseline, error) {
	counts, err := r.imp.state.Baseline(ctx)
	if err != nil {
		return nil, err
	}
	if len(counts) == 0 {
		return nil, nil
	}
	out := make(verify.Baseline, len(counts))
	for key, expected := range counts {
		out[verify.ChapterKey{BookID: key.BookID, Chapter: key.Chapter}] = expected
	}
	return out, nil
}

func (r *run) saveReport(ctx context.Context, report *verify.ImportReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return errors.Wrap(err, "serializing import report")
	}
	return r.imp.state.SaveReport(ctx, r.spec.Code, r.runID, data)
}

// commit writes the resolved set in batches and verifies every written key
// is readable back.
// Empty-text verses are excluded (they are listed in the report); duplicate
// keys collapse to the last occurrence, mirroring upsert semantics.
func (r *run) commit(ctx context.Context, report *verify.ImportReport, resolved []verify.ResolvedVerse) error {
	unique := make(map[store.VerseRecord]int)
	var records []store.VerseRecord
	for _, v := range resolved {
		if v.Text == "" {
			continue
		}
		rec := store.VerseRecord{
			BookID:      v.BookID,
			Chapter:     v.Chapter,
			Verse:       v.Verse,
			VersionCode: r.spec.Code,
		}
		key := rec
		rec.Text = v.Text
		if idx, ok := unique[key]; ok {
			records[idx] = rec
			continue
		}
		unique[key] = len(records)
		records = append(records, rec)
	}

	for start := 0; start < len(records); start += r.imp.opts.BatchSize {
		if err := r.checkCancelled(ctx, "committing"); err != nil {
			return err
		}
		end := start + r.imp.opts.BatchSize
		if end > len(records) {
			end = len(records)
		}
		if err := r.upsertWithRetry(ctx, records[start:end]); err != nil {
			return r.fail(ctx, "committing", err)
		}
	}

	// Verification: every key written this run must be readable back. Rows
	// left over from an earlier, larger import of the same version are not an
	// error; upserts never delete and a corrected re-import may shrink the set.
	stored, err := r.imp.verses.Query(ctx, store.Filter{VersionCode: r.spec.Code})
	if err != nil {
		return r.fail(ctx, "committing", err)
	}
	present := make(map[store.VerseRecord]bool, len(stored))
	for _, rec := range stored {
		rec.Text = ""
		present[rec] = true
	}
	for key := range unique {
		if !present[key] {
			return r.fail(ctx, "committing",
				errors.Wrapf(errors.ErrInternal, "version %s: record %d:%d:%d missing after commit",
					r.spec.Code, key.BookID, key.Chapter, key.Verse))
		}
	}

	counts := make(map[store.ChapterKey]int)
	for _, rec := range records {
		counts[store.ChapterKey{BookID: rec.BookID, Chapter: rec.Chapter}]++
	}
	if err := r.imp.state.EstablishBaseline(ctx, r.spec.Code, counts); err != nil {
		return r.fail(ctx, "committing", err)
	}

	if err := r.setState(ctx, store.StateCommitted); err != nil {
		return err
	}
	logging.InfoContext(ctx, "committed", "version", r.spec.Code, "records", len(records),
		"chapter_gaps", len(report.ChapterGaps), "anomalies", len(report.VerseCountAnomalies))
	return nil
}

// upsertWithRetry retries transient store failures with bounded exponential
// backoff up to the attempt ceiling. In-flight upserts are idempotent, so a
// retried batch can never duplicate rows.
func (r *run) upsertWithRetry(ctx context.Context, batch []store.VerseRecord) error {
	opts := r.imp.opts
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = opts.InitialBackoff
	bo.MaxInterval = opts.MaxBackoff
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(opts.MaxAttempts-1)), ctx)

	attempts := 0
	var lastErr error
	err := backoff.Retry(func() error {
		attempts++
		err := r.imp.verses.Upsert(ctx, batch)
		if err == nil {
			return nil
		}
		lastErr = err
		if errors.IsTransient(err) {
			logging.StoreRetry(ctx, "upsert", attempts, err)
			return err
		}
		return backoff.Permanent(err)
	}, policy)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return &errors.CancelledError{VersionCode: r.spec.Code, Stage: "committing", Err: ctx.Err()}
	}
	if errors.IsTransient(lastErr) {
		return &errors.FatalStoreError{VersionCode: r.spec.Code, Attempts: attempts, Err: lastErr}
	}
	return lastErr
}
