package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errSub string
	}{
		{"missing output", func(c *Config) { c.OutPath = "" }, "output path"},
		{"zero min items", func(c *Config) { c.MinItems = 0 }, "min items"},
		{"zero op timeout", func(c *Config) { c.OpTimeout = 0 }, "op timeout"},
		{"negative rps", func(c *Config) { c.MaxRPS = -1 }, "max rps"},
		{"shrinking backoff", func(c *Config) { c.BackoffFactor = 0.5 }, "backoff factor"},
		{"zero checkpoint interval", func(c *Config) { c.CheckpointEvery = 0 }, "checkpoint interval"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSub)
		})
	}
}

func TestLoadLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uas.txt")
	content := "ua-one\n\n  ua-two  \n# a comment\nua-three\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	got, err := LoadLines(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"ua-one", "ua-two", "ua-three"}, got)
}

func TestLoadLinesEmptyPath(t *testing.T) {
	got, err := LoadLines("")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLoadLinesMissingFile(t *testing.T) {
	_, err := LoadLines(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err, "a named pool file must exist")
}
