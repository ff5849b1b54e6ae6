// Package config loads the import manifest: the YAML file naming the
// versions to import, curated alias entries, and pipeline tuning.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/FocuswithJustin/CedarBible/core/alias"
	"github.com/FocuswithJustin/CedarBible/core/errors"
	"github.com/FocuswithJustin/CedarBible/core/importer"
)

// Manifest is the top-level import configuration.
type Manifest struct {
	// Database is the SQLite path. Defaults to "cedar.db" next to the
	// manifest.
	Database string `yaml:"database"`

	// Versions lists the sources to import.
	Versions []importer.VersionSpec `yaml:"versions"`

	// Aliases holds curated book-name mappings layered over the built-in
	// defaults.
	Aliases []alias.Entry `yaml:"aliases,omitempty"`

	Pipeline Pipeline `yaml:"pipeline,omitempty"`
}

// Pipeline mirrors importer.Options in manifest form.
type Pipeline struct {
	BatchSize      int      `yaml:"batch_size,omitempty"`
	MaxAttempts    int      `yaml:"max_attempts,omitempty"`
	InitialBackoff Duration `yaml:"initial_backoff,omitempty"`
	MaxBackoff     Duration `yaml:"max_backoff,omitempty"`
	Tolerance      int      `yaml:"tolerance,omitempty"`
	AllowPartial   bool     `yaml:"allow_partial,omitempty"`
	Parallelism    int      `yaml:"parallelism,omitempty"`
}

// Duration is a time.Duration that accepts human-readable YAML values
// ("100ms", "5s") as well as bare integer nanoseconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, perr := time.ParseDuration(s)
		if perr != nil {
			return fmt.Errorf("invalid duration %q: %w", s, perr)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	*d = Duration(n)
	return nil
}

// Options converts the pipeline section to importer options.
func (p Pipeline) Options() importer.Options {
	return importer.Options{
		BatchSize:      p.BatchSize,
		MaxAttempts:    p.MaxAttempts,
		InitialBackoff: time.Duration(p.InitialBackoff),
		MaxBackoff:     time.Duration(p.MaxBackoff),
		Tolerance:      p.Tolerance,
		AllowPartial:   p.AllowPartial,
	}
}

// Load reads and validates a manifest. Relative paths inside the manifest
// (database, sources) are resolved against the manifest's directory.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read manifest")
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.NewMalformedDocument("manifest", path, "invalid YAML", err)
	}

	base := filepath.Dir(path)
	if m.Database == "" {
		m.Database = "cedar.db"
	}
	m.Database = resolve(base, m.Database)
	for i := range m.Versions {
		m.Versions[i].SourcePath = resolve(base, m.Versions[i].SourcePath)
	}

	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	if len(m.Versions) == 0 {
		return errors.Wrap(errors.ErrInvalidInput, "manifest lists no versions")
	}
	seen := make(map[string]bool, len(m.Versions))
	for i, v := range m.Versions {
		if v.Code == "" {
			return errors.Wrapf(errors.ErrInvalidInput, "versions[%d]: missing code", i)
		}
		if seen[v.Code] {
			return errors.Wrapf(errors.ErrInvalidInput, "versions[%d]: duplicate code %q", i, v.Code)
		}
		seen[v.Code] = true
		if v.SourcePath == "" {
			return errors.Wrapf(errors.ErrInvalidInput, "version %s: missing source", v.Code)
		}
		switch v.Dialect {
		case "zefania", "osis":
			if v.XPath != nil {
				return errors.Wrapf(errors.ErrInvalidInput, "version %s: xpath section requires dialect \"xpath\"", v.Code)
			}
		case "xpath":
			if v.XPath == nil {
				return errors.Wrapf(errors.ErrInvalidInput, "version %s: dialect \"xpath\" requires an xpath section", v.Code)
			}
		case "":
			return errors.Wrapf(errors.ErrInvalidInput, "version %s: missing dialect", v.Code)
		default:
			return errors.Wrapf(errors.ErrInvalidInput, "version %s: unknown dialect %q", v.Code, v.Dialect)
		}
	}
	return nil
}

// Version returns the VersionSpec for code, or an error naming the known codes.
func (m *Manifest) Version(code string) (importer.VersionSpec, error) {
	for _, v := range m.Versions {
		if v.Code == code {
			return v, nil
		}
	}
	codes := make([]string, 0, len(m.Versions))
	for _, v := range m.Versions {
		codes = append(codes, v.Code)
	}
	return importer.VersionSpec{}, errors.Wrapf(errors.ErrNotFound, "version %q not in manifest (have %s)", code, fmt.Sprint(codes))
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
