package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/artcollector/internal/config"
	"github.com/hyperjump/artcollector/internal/models"
	"github.com/hyperjump/artcollector/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type cliCatalog struct {
	refErr   error
	queryErr error
	got      models.QueryInput
}

func (c *cliCatalog) FetchAllCenturies(context.Context) ([]models.ReferenceItem, error) {
	return []models.ReferenceItem{{ID: 1, Name: "19th century"}}, c.refErr
}

func (c *cliCatalog) FetchAllClassifications(context.Context) ([]models.ReferenceItem, error) {
	return []models.ReferenceItem{{ID: 2, Name: "Sculpture"}}, c.refErr
}

func (c *cliCatalog) FetchQueryResults(_ context.Context, in models.QueryInput) ([]models.ResultRecord, error) {
	c.got = in
	if c.queryErr != nil {
		return nil, c.queryErr
	}
	return []models.ResultRecord{{ID: 9, Title: "Vase"}}, nil
}

func TestBuildQueryString(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"single word", []string{"vase"}, "vase"},
		{"multiple words", []string{"blue", "vase"}, "blue vase"},
		{"single quoted phrase", []string{"blue vase"}, "blue vase"},
		{"empty args", []string{}, ""},
		{"blank args", []string{"  ", "  "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildQueryString(tt.args); got != tt.expected {
				t.Errorf("buildQueryString(%v) = %q, want %q", tt.args, got, tt.expected)
			}
		})
	}
}

func TestRunSearchCycle(t *testing.T) {
	cat := &cliCatalog{}
	var loading bytes.Buffer
	in := models.QueryInput{Century: "any", Classification: "Sculpture", QueryString: "vase"}

	results := runSearchCycle(context.Background(), cat, in, &loading, zap.NewNop())

	assert.Equal(t, "Searching...\n", loading.String())
	require.Len(t, results, 1)
	assert.Equal(t, 9, results[0].ID)
	assert.Equal(t, in, cat.got)
}

func TestRunSearchCycle_FailureYieldsNoResults(t *testing.T) {
	cat := &cliCatalog{queryErr: errors.New("503"), refErr: errors.New("offline")}
	var loading bytes.Buffer

	results := runSearchCycle(context.Background(), cat, models.DefaultQueryInput(), &loading, zap.NewNop())
	assert.Empty(t, results)
	assert.Equal(t, "Searching...\n", loading.String(), "loading is shown even when the query fails")
}

func TestWarnUnknownFilter(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	logger := zap.New(core)
	items := []models.ReferenceItem{{ID: 1, Name: "Sculpture"}, {ID: 2, Name: "Prints"}}

	warnUnknownFilter(logger, "classification", models.AnyFilter, items)
	warnUnknownFilter(logger, "classification", "Sculpture", items)
	assert.Zero(t, logs.Len())

	warnUnknownFilter(logger, "classification", "scuplture", items)
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "filter value is not in the reference list", entry.Message)
	assert.Equal(t, "Sculpture", entry.ContextMap()["did_you_mean"])
}

func TestFetchReferences(t *testing.T) {
	centuries, classifications, err := fetchReferences(context.Background(), &cliCatalog{})
	require.NoError(t, err)
	assert.Equal(t, []string{"19th century"}, models.Names(centuries))
	assert.Equal(t, []string{"Sculpture"}, models.Names(classifications))

	_, _, err = fetchReferences(context.Background(), &cliCatalog{refErr: errors.New("down")})
	assert.Error(t, err)
}

func writeTestConfig(t *testing.T, dir string, cfg *config.Config) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, config.Save(path, cfg))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "artcollector version dev\n", out)
}

func TestInitCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	out, err := execute(t, "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultBaseURL, cfg.API.BaseURL)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "data", "artcollector.db"), cfg.Storage.DatabasePath)
	assert.True(t, cfg.Catalog.WatchOrDefault())
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "watch: true")

	_, err = execute(t, "init", path)
	assert.Error(t, err, "existing file needs --force")
	_, err = execute(t, "init", "--force", path)
	assert.NoError(t, err)
}

func TestLoadConfig_ExplicitPath(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Server.Port = 9999
	path := writeTestConfig(t, dir, cfg)

	loaded, used, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, path, used)
	assert.Equal(t, 9999, loaded.Server.Port)

	_, _, err = loadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestImportAndSearchLocal(t *testing.T) {
	dir := t.TempDir()
	collection := filepath.Join(dir, "collection.json")
	require.NoError(t, os.WriteFile(collection, []byte(`{"records":[
		{"id":1,"title":"Blue Vase","classification":"Vessels","century":"19th century"},
		{"id":2,"title":"Bust","classification":"Sculpture","century":"1st century"}
	]}`), 0644))

	cfg := config.Default()
	cfg.Storage.DatabasePath = filepath.Join(dir, "artcollector.db")
	cfg.Catalog.Source = config.SourceLocal
	cfg.Catalog.CollectionPath = collection
	cfgPath := writeTestConfig(t, dir, cfg)

	out, err := execute(t, "--config", cfgPath, "import", collection)
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 2 records (2 centuries, 2 classifications)")
	assert.Contains(t, out, filepath.Join(dir, "collection.bleve"))

	out, err = execute(t, "--config", cfgPath, "search", "--classification", "Vessels", "vase")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Searching...\n"), out)
	assert.Contains(t, out, "Found 1 results")
	assert.Contains(t, out, "Blue Vase")

	out, err = execute(t, "--config", cfgPath, "references", "--output", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "Sculpture"`)

	_, err = execute(t, "--config", cfgPath, "references", "--refresh")
	assert.Error(t, err, "refresh only applies to the cached remote lists")
}

func TestCollectStatus(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Storage.DatabasePath = filepath.Join(dir, "artcollector.db")

	report, err := collectStatus(context.Background(), cfg)
	require.NoError(t, err)
	assert.Empty(t, report.CachedLists)
	assert.Equal(t, config.DefaultBaseURL, report.BaseURL)

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	require.NoError(t, err)
	require.NoError(t, store.SaveReferences(context.Background(), models.Centuries, []models.ReferenceItem{{ID: 1, Name: "1st century"}}))
	require.NoError(t, store.Close())

	report, err = collectStatus(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, report.CachedLists, 1)
	assert.Equal(t, "century", report.CachedLists[0].Kind)
	assert.Positive(t, report.DiskUsageBytes)
}
