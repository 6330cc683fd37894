package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 50*time.Millisecond, cfg.TickInterval)
	s := cfg.Settings()
	assert.Equal(t, 10*time.Second, s.Swap.Start)
	assert.Equal(t, 500*time.Millisecond, s.Swap.Delta)
	assert.Equal(t, 2*time.Second, s.Swap.Min)
	assert.Equal(t, 30, s.ScoresToWin)
	assert.Equal(t, 24, cfg.Rules().Width)
}

func TestLoadConfig_EnvAndDotenv(t *testing.T) {
	dotenv := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("MINERDUEL_SCORES_TO_WIN=12\nMINERDUEL_BOARD_WIDTH=10\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("MINERDUEL_SCORES_TO_WIN") })
	t.Setenv("MINERDUEL_SWITCH_DELTA", "250ms")
	t.Setenv("MINERDUEL_BOARD_WIDTH", "32")

	cfg, err := LoadConfig(dotenv)
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.ScoresToWin)
	assert.Equal(t, 250*time.Millisecond, cfg.SwitchDelta)
	// 已存在的环境变量优先于 .env
	assert.Equal(t, 32, cfg.BoardWidth)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("MINERDUEL_SWITCH_DELAY_MIN", "20s")
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorContains(t, err, "switch delays")

	t.Setenv("MINERDUEL_SWITCH_DELAY_MIN", "1s")
	t.Setenv("MINERDUEL_TICK_INTERVAL", "soon")
	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorContains(t, err, "parse env")
}
