package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-practice/match"
	"go-practice/pitch"
)

func TestLoadMissingReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, match.Auto, cfg.Mode)
	assert.Equal(t, 440.0, cfg.A4)
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json")
	cfg := DefaultConfig()
	cfg.A4 = 415
	cfg.Mode = match.Manual
	cfg.Track = 2
	cfg.LastFile = "/tmp/song.mid"
	require.NoError(t, cfg.SaveTo(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"mode": "manual"`)

	got, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"track": 1}`), 0644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Track)
	assert.Equal(t, pitch.DefaultA4, cfg.A4)
	assert.Equal(t, DefaultTickRate, cfg.TickRate)
}

func TestLoadRejectsBadMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"mode": "sideways"}`), 0644))

	_, err := LoadFrom(path)
	assert.Error(t, err)
}

func TestTuning(t *testing.T) {
	cfg := DefaultConfig()
	cfg.A4 = 1000
	tu, err := cfg.Tuning()
	var ce *pitch.ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, pitch.DefaultA4, tu.A4)

	cfg.A4 = 442
	tu, err = cfg.Tuning()
	require.NoError(t, err)
	assert.Equal(t, 442.0, tu.A4)
}

func TestRate(t *testing.T) {
	for in, want := range map[int]int{0: 30, -4: 30, 60: 60, 1000: MaxTickRate} {
		cfg := &Config{TickRate: in}
		assert.Equal(t, want, cfg.Rate(), "tick rate %d", in)
	}
}
