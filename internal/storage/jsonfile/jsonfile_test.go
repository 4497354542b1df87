package jsonfile

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/RoadSpeedAdjuster/extension/internal/overrides"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var saved = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleTable(scope string) overrides.Table {
	return overrides.Table{
		Scope:     scope,
		Version:   overrides.TableVersion,
		LastSaved: saved,
		Records: []overrides.Record{
			{SegmentID: 42, OriginalValue: 50, CurrentValue: 80, LastModified: saved},
		},
	}
}

func TestLoad_MissingScopeIsEmpty(t *testing.T) {
	b := New(Config{Dir: t.TempDir()})

	table, err := b.Load(context.Background(), "Springfield")
	require.NoError(t, err)
	assert.Equal(t, "Springfield", table.Scope)
	assert.Equal(t, overrides.TableVersion, table.Version)
	assert.Empty(t, table.Records)
	assert.NotNil(t, table.Records)
}

func TestSaveLoad(t *testing.T) {
	tests := []struct {
		name     string
		compress bool
		file     string
	}{
		{"plain", false, "New_Springfield.json"},
		{"gzip", true, "New_Springfield.json.gz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "overrides")
			b := New(Config{Dir: dir, Compress: tt.compress})
			ctx := context.Background()

			require.NoError(t, b.Save(ctx, sampleTable("New Springfield")))
			assert.FileExists(t, filepath.Join(dir, tt.file))

			table, err := b.Load(ctx, "New Springfield")
			require.NoError(t, err)
			assert.Equal(t, "New Springfield", table.Scope)
			require.Len(t, table.Records, 1)
			assert.Equal(t, 50.0, table.Records[0].OriginalValue)
			assert.Equal(t, 80.0, table.Records[0].CurrentValue)
			assert.True(t, saved.Equal(table.LastSaved))

			// no temp files left behind
			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Len(t, entries, 1)
		})
	}
}

func TestSave_WritesDocumentedShape(t *testing.T) {
	dir := t.TempDir()
	b := New(Config{Dir: dir})
	require.NoError(t, b.Save(context.Background(), sampleTable("Springfield")))

	data, err := os.ReadFile(filepath.Join(dir, "Springfield.json"))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "Springfield", doc["scope"])
	assert.Equal(t, 1.0, doc["version"])
	assert.Contains(t, doc, "lastSaved")

	records := doc["records"].([]any)
	require.Len(t, records, 1)
	rec := records[0].(map[string]any)
	assert.Equal(t, 42.0, rec["segmentId"])
	assert.Equal(t, 50.0, rec["originalValue"])
	assert.Equal(t, 80.0, rec["currentValue"])
	assert.Contains(t, rec, "lastModified")
}

func TestLoad_ReadsOtherFormat(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	require.NoError(t, New(Config{Dir: dir, Compress: true}).Save(ctx, sampleTable("Springfield")))

	// a plain backend still finds the compressed table
	table, err := New(Config{Dir: dir}).Load(ctx, "Springfield")
	require.NoError(t, err)
	require.Len(t, table.Records, 1)
}

func TestLoad_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Springfield.json"), []byte("{not json"), 0644))

	table, err := New(Config{Dir: dir}).Load(context.Background(), "Springfield")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode")
	assert.Empty(t, table.Records)
}

func TestLoad_CorruptGzip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Springfield.json.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte("[]]"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	_, err = New(Config{Dir: dir, Compress: true}).Load(context.Background(), "Springfield")
	require.Error(t, err)
}

func TestScopesAndDelete(t *testing.T) {
	dir := t.TempDir()
	b := New(Config{Dir: dir})
	ctx := context.Background()

	scopes, err := b.Scopes(ctx)
	require.NoError(t, err)
	assert.Empty(t, scopes)

	require.NoError(t, b.Save(ctx, sampleTable("Shelbyville")))
	require.NoError(t, b.Save(ctx, sampleTable("New Springfield")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	scopes, err = b.Scopes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"New Springfield", "Shelbyville"}, scopes)

	require.NoError(t, b.Delete(ctx, "Shelbyville"))
	require.NoError(t, b.Delete(ctx, "Shelbyville"))

	scopes, err = b.Scopes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"New Springfield"}, scopes)
}

func TestScopes_MissingDir(t *testing.T) {
	b := New(Config{Dir: filepath.Join(t.TempDir(), "absent")})
	scopes, err := b.Scopes(context.Background())
	require.NoError(t, err)
	assert.Empty(t, scopes)
}

func TestStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	b := New(Config{Dir: dir})
	ctx := context.Background()

	s := overrides.Open(ctx, "Springfield", b)
	_, err := s.CaptureOriginal(7, 50)
	require.NoError(t, err)
	require.NoError(t, s.SetCurrent(7, 80))

	reopened := overrides.Open(ctx, "Springfield", b)
	assert.False(t, reopened.Degraded())
	cur, ok := reopened.GetCurrent(7)
	require.True(t, ok)
	assert.Equal(t, 80.0, cur)
}
