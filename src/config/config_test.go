package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadYAML_OverlaysListShapedSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	doc := `
exchanges:
  - id: binance
    driver: goex
    symbols: ["BTC/USDT", "ETH/USDT"]
timeframes: ["1m", "1h"]
gap_fill_enabled: false
gap_fill_days: 14
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	s := &Settings{GapFillEnable: true, GapFillDays: 7, Timeframes: defaultTimeframes}
	require.NoError(t, s.loadYAML(path))

	require.Len(t, s.Exchanges, 1)
	assert.Equal(t, "binance", s.Exchanges[0].ID)
	assert.Equal(t, []string{"BTC/USDT", "ETH/USDT"}, s.Exchanges[0].Symbols)
	assert.Equal(t, []string{"1m", "1h"}, s.Timeframes)
	assert.False(t, s.GapFillEnable)
	assert.Equal(t, 14, s.GapFillDays)
}

func TestLoadYAML_MissingFileErrors(t *testing.T) {
	s := &Settings{}
	err := s.loadYAML("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestLoadYAML_PartialDocumentLeavesUnsetFieldsAlone(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timeframes: [\"1h\"]\n"), 0o600))

	s := &Settings{GapFillEnable: true, GapFillDays: 7}
	require.NoError(t, s.loadYAML(path))

	assert.Equal(t, []string{"1h"}, s.Timeframes)
	assert.True(t, s.GapFillEnable)
	assert.Equal(t, 7, s.GapFillDays)
	assert.Nil(t, s.Exchanges)
}
