// Package jsonfile persists one override table per scope as a JSON document
// in a directory.
package jsonfile

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/RoadSpeedAdjuster/extension/internal/overrides"
)

const (
	extJSON = ".json"
	extGzip = ".json.gz"
)

// Config controls where tables are written.
type Config struct {
	Dir string
	// Compress writes <scope>.json.gz instead of <scope>.json. Either form is
	// read back.
	Compress bool
}

// Backend stores tables as files under Config.Dir.
type Backend struct {
	cfg Config
}

// New creates a backend. The directory is created on first save.
func New(cfg Config) *Backend {
	return &Backend{cfg: cfg}
}

// Path returns the file a scope is written to.
func (b *Backend) Path(scope string) string {
	ext := extJSON
	if b.cfg.Compress {
		ext = extGzip
	}
	return filepath.Join(b.cfg.Dir, overrides.SanitizeScopeName(scope)+ext)
}

// Load reads the scope's table. A scope without a file yields an empty table.
func (b *Backend) Load(_ context.Context, scope string) (overrides.Table, error) {
	empty := overrides.Table{Scope: scope, Version: overrides.TableVersion, Records: []overrides.Record{}}

	path, compressed, err := b.existing(scope)
	if err != nil {
		return empty, err
	}
	if path == "" {
		return empty, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return empty, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if compressed {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return empty, fmt.Errorf("failed to read gzip header of %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	var table overrides.Table
	if err := json.NewDecoder(r).Decode(&table); err != nil {
		return empty, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if table.Records == nil {
		table.Records = []overrides.Record{}
	}
	return table, nil
}

// existing finds the file for scope, preferring the configured format.
func (b *Backend) existing(scope string) (string, bool, error) {
	base := filepath.Join(b.cfg.Dir, overrides.SanitizeScopeName(scope))
	candidates := []string{base + extJSON, base + extGzip}
	if b.cfg.Compress {
		slices.Reverse(candidates)
	}
	for _, p := range candidates {
		_, err := os.Stat(p)
		if err == nil {
			return p, strings.HasSuffix(p, extGzip), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %s: %w", p, err)
		}
	}
	return "", false, nil
}

// Save writes the table to a temp file and renames it over the old one, so a
// crash mid-write never leaves a truncated table behind.
func (b *Backend) Save(_ context.Context, table overrides.Table) error {
	if err := os.MkdirAll(b.cfg.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	path := b.Path(table.Scope)
	tmp, err := os.CreateTemp(b.cfg.Dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if b.cfg.Compress {
		err = writeGzipJSON(tmp, table)
	} else {
		err = writeJSON(tmp, table)
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func writeJSON(w io.Writer, table overrides.Table) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(table)
}

func writeGzipJSON(w io.Writer, table overrides.Table) error {
	gz := gzip.NewWriter(w)
	if err := json.NewEncoder(gz).Encode(table); err != nil {
		gz.Close()
		return err
	}
	return gz.Close()
}

// Scopes lists the scope names that have a table on disk. Names are read
// from the files, so the unsanitized scope name is returned.
func (b *Backend) Scopes(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(b.cfg.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", b.cfg.Dir, err)
	}

	seen := make(map[string]bool)
	scopes := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		var stem string
		switch {
		case strings.HasSuffix(name, extGzip):
			stem = strings.TrimSuffix(name, extGzip)
		case strings.HasSuffix(name, extJSON):
			stem = strings.TrimSuffix(name, extJSON)
		default:
			continue
		}
		if seen[stem] {
			continue
		}
		seen[stem] = true

		table, err := b.Load(ctx, stem)
		if err != nil || table.Scope == "" {
			scopes = append(scopes, stem)
			continue
		}
		scopes = append(scopes, table.Scope)
	}
	slices.Sort(scopes)
	return scopes, nil
}

// Delete removes every file stored for scope.
func (b *Backend) Delete(_ context.Context, scope string) error {
	base := filepath.Join(b.cfg.Dir, overrides.SanitizeScopeName(scope))
	var errs []error
	for _, p := range []string{base + extJSON, base + extGzip} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close is a no-op; every save is complete when it returns.
func (b *Backend) Close() error {
	return nil
}
