package harness

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/domtrip/domtrip/browser"
	"github.com/domtrip/domtrip/fixture"
	"github.com/domtrip/domtrip/golden"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func integrationConfig(t *testing.T, goldenDir, update string) Config {
	t.Helper()
	return Config{
		Root:            filepath.Join("testdata", "root"),
		GoldenDir:       goldenDir,
		Port:            3089,
		ScenarioTimeout: Duration(30 * time.Second),
		Update:          update,
		Library:         LibraryConfig{Entry: filepath.Join("testdata", "lib", "index.js")},
		RunLog:          filepath.Join(t.TempDir(), "runs.db"),
	}
}

// runSuite drives the whole pipeline against the in-repo reference
// library. Skipped on machines without a Chrome binary.
func runSuite(t *testing.T, cfg Config) *Report {
	t.Helper()
	if !browser.Available() {
		t.Skip("no chrome binary available")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	s, err := NewSuite(ctx, cfg, testLogger())
	require.NoError(t, err)
	defer s.Close()

	report, err := s.Run(ctx)
	require.NoError(t, err)
	return report
}

func TestFixtureDerivation(t *testing.T) {
	fixtures, err := fixture.List(filepath.Join("testdata", "root", "fixtures"))
	require.NoError(t, err)

	var titles []string
	var navs []Nav
	for _, f := range fixtures {
		sc := Derive(f, "fixtures")
		titles = append(titles, sc.Title)
		navs = append(navs, sc.Nav)
	}
	// draft.html~ is a backup entry and must never become a scenario.
	assert.Equal(t, []string{"attributes.html", "basic.html", "no-doctype.html"}, titles)
	assert.Equal(t, []Nav{NavServe, NavServe, NavDirect}, navs)
}

func TestSuiteRoundTripIdempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("browser suite")
	}
	goldenDir := filepath.Join(t.TempDir(), "golden")

	first := runSuite(t, integrationConfig(t, goldenDir, "new"))
	require.Len(t, first.Results, 7) // 3 fixtures + 4 special scenarios
	for _, r := range first.Results {
		assert.True(t, r.Pass, "%s: %s", r.Title, r.Detail)
	}

	// Goldens accepted on the first run must hold, unchanged, on a second
	// run with update mode off.
	second := runSuite(t, integrationConfig(t, goldenDir, "new"))
	require.Len(t, second.Results, 7)
	for _, r := range second.Results {
		assert.True(t, r.Pass, "%s: %s", r.Title, r.Detail)
		assert.False(t, r.Updated, r.Title)
	}
}

func TestSuiteUpdateModeOverwrites(t *testing.T) {
	if testing.Short() {
		t.Skip("browser suite")
	}
	goldenDir := filepath.Join(t.TempDir(), "golden")

	// Seed a stale golden; update mode must replace it and pass.
	store, err := golden.Open(goldenDir, "roundtrip", golden.ModeNew)
	require.NoError(t, err)
	_, err = store.Compare("stale golden payload", "basic.html")
	require.NoError(t, err)

	report := runSuite(t, integrationConfig(t, goldenDir, "all"))
	for _, r := range report.Results {
		assert.True(t, r.Pass, "%s: %s", r.Title, r.Detail)
	}

	verify := runSuite(t, integrationConfig(t, goldenDir, "new"))
	for _, r := range verify.Results {
		assert.True(t, r.Pass, "%s: %s", r.Title, r.Detail)
	}
}
