package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/trapfade/internal/config"
	"github.com/Alias1177/trapfade/internal/datasource"
	"github.com/Alias1177/trapfade/models"
)

func testConfig() *config.Config {
	return &config.Config{
		LogLevel:       "error",
		StrategyPreset: "default",
		Symbol:         "BTCUSDT",
		Interval:       "1h",
		RequestTimeout: 5,
		RequestsPerSec: 5,
		Seed:           42,
	}
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(testConfig())
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	require.NoError(t, root.Execute())
	return out.String()
}

func TestPresetsCommand(t *testing.T) {
	out := execute(t, "presets")
	assert.Equal(t, strings.Join(config.Presets(), "\n")+"\n", out)

	yamlOut := execute(t, "presets", "--show", "tiered")
	assert.Contains(t, yamlOut, "name: tiered")
	assert.Contains(t, yamlOut, "take_profits:")
}

func TestGenerateThenRun(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "candles.csv")
	execute(t, "generate", "--candles", "300", "--seed", "5", "--output", data)

	candles, err := datasource.LoadFile(data)
	require.NoError(t, err)
	assert.Len(t, candles, 300)

	out := filepath.Join(dir, "results.json")
	execute(t, "run", "--data", data, "--preset", "conservative", "--output", out)
	assert.FileExists(t, out)
}

func TestLoadStrategyOverridesCapital(t *testing.T) {
	cfg := testConfig()
	cfg.InitialCapital = 2500
	strategy, err := loadStrategy(cfg, "", "aggressive")
	require.NoError(t, err)
	assert.Equal(t, 2500.0, strategy.InitialCapital)

	_, err = loadStrategy(cfg, "", "missing")
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestPrintRanking(t *testing.T) {
	var out bytes.Buffer
	rows := []ranked{{preset: "default", results: &models.Results{}, loss: 100}}
	require.NoError(t, printRanking(&out, rows))
	assert.Contains(t, out.String(), "PRESET")
	assert.Contains(t, out.String(), "default")
}

func TestGenerateSizesByDays(t *testing.T) {
	data := filepath.Join(t.TempDir(), "two_days.json")
	execute(t, "generate", "--interval", "1h", "--days", "2", "--output", data)

	candles, err := datasource.LoadFile(data)
	require.NoError(t, err)
	assert.Len(t, candles, models.CandlesForDays("1h", 2))
}

func TestDataFlagsDays(t *testing.T) {
	d := dataFlags{interval: "15m", days: 1, count: 2000, limit: 1000}
	require.NoError(t, d.sized())
	assert.Equal(t, 105, d.count)
	assert.Equal(t, 105, d.limit)

	bad := dataFlags{interval: "7m", days: 1}
	assert.Error(t, bad.sized())
}

func TestPresetsSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiered.yaml")
	execute(t, "presets", "--show", "tiered", "--save", path)

	loaded, err := config.LoadStrategy(path)
	require.NoError(t, err)
	want, err := config.Preset("tiered")
	require.NoError(t, err)
	assert.Equal(t, want.Position, loaded.Position)
	assert.Equal(t, "tiered", loaded.Name)
}

func TestOutputErrorsAreReturned(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "no_such_dir", "out.json")
	assert.Error(t, writeResults(missing, &models.Results{}, false))
	assert.Error(t, writeCandles(&bytes.Buffer{}, missing, nil))

	path := filepath.Join(t.TempDir(), "results.json")
	require.NoError(t, writeResults(path, &models.Results{Strategy: "default"}, true))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"default"`)
}

func TestUnknownObjectiveListsChoices(t *testing.T) {
	root := newRootCmd(testConfig())
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"compare", "--candles", "100", "--objective", "sortino"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "balanced_v2")
}
