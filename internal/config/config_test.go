package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/draft-bot/internal/engine"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(env.Options{Environment: map[string]string{}})
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "!", cfg.CommandPrefix)
	assert.Equal(t, 5*time.Second, cfg.TimerMin)
	assert.Equal(t, 10*time.Minute, cfg.TimerMax)
	assert.Equal(t, 50, cfg.MaxRounds)
	assert.Equal(t, "draft.events", cfg.NATSSubject)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, engine.Settings{Policy: engine.PolicySnake, Fallback: engine.FallbackSkip}, cfg.Settings())
}

func TestParse_Overrides(t *testing.T) {
	cfg, err := Parse(env.Options{Environment: map[string]string{
		"DRAFT_ADDR":           ":9090",
		"DRAFT_ROUND_POLICY":   "repeat",
		"DRAFT_TIMER_FALLBACK": "autopick",
		"DRAFT_TIMER_MAX":      "2m",
		"DRAFT_EXPORT_FORMAT":  "yaml",
		"DRAFT_DEV":            "true",
	}})
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.True(t, cfg.Dev)
	assert.Equal(t, 2*time.Minute, cfg.TimerMax)
	assert.Equal(t, engine.PolicyRepeat, cfg.Settings().Policy)
	assert.Equal(t, engine.FallbackAutoPick, cfg.Settings().Fallback)
}

func TestParse_Invalid(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{name: "policy", env: map[string]string{"DRAFT_ROUND_POLICY": "zigzag"}},
		{name: "fallback", env: map[string]string{"DRAFT_TIMER_FALLBACK": "panic"}},
		{name: "timer bounds", env: map[string]string{"DRAFT_TIMER_MIN": "5m", "DRAFT_TIMER_MAX": "1m"}},
		{name: "export format", env: map[string]string{"DRAFT_EXPORT_FORMAT": "csv"}},
		{name: "rounds", env: map[string]string{"DRAFT_MAX_ROUNDS": "0"}},
		{name: "bad duration", env: map[string]string{"DRAFT_TIMER_MIN": "soon"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(env.Options{Environment: tc.env})
			assert.Error(t, err)
		})
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("DRAFT_COMMAND_PREFIX=?\n"), 0o600))
	t.Setenv("DRAFT_COMMAND_PREFIX", "")
	os.Unsetenv("DRAFT_COMMAND_PREFIX")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "?", cfg.CommandPrefix)
}

func TestLoad_MissingFileIsFine(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.env"))
	assert.NoError(t, err)
}
