package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags() *pflag.FlagSet {
	f := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f.StringSlice("db", []string{"pokemon_dw.db"}, "")
	f.Int("port", 8080, "")
	f.Bool("watch", false, "")
	f.Duration("debounce", 500*time.Millisecond, "")
	f.Int("top", 10, "")
	f.String("verbosity", "", "")
	f.Bool("log.json", false, "")
	return f
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pokegraph.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml"), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"pokemon_dw.db"}, cfg.DB)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 500*time.Millisecond, cfg.Debounce)
	assert.Equal(t, 10, cfg.Top)
	assert.False(t, cfg.Watch)
	assert.False(t, cfg.Log.JSON)
}

func TestLoad_Precedence(t *testing.T) {
	path := writeFile(t, `
db = ["file.db"]
port = 7000
top = 5
watch = true

[log]
json = true
`)
	t.Setenv("POKEGRAPH_PORT", "9000")

	f := newFlags()
	require.NoError(t, f.Parse([]string{"--top", "3"}))

	cfg, err := LoadFile(path, f)
	require.NoError(t, err)

	assert.Equal(t, []string{"file.db"}, cfg.DB, "file beats defaults")
	assert.Equal(t, 9000, cfg.Port, "env beats file")
	assert.Equal(t, 3, cfg.Top, "flags beat everything")
	assert.True(t, cfg.Watch, "unchanged flag does not reset the file value")
	assert.True(t, cfg.Log.JSON)
}

func TestLoad_EnvNestedKey(t *testing.T) {
	t.Setenv("POKEGRAPH_LOG_JSON", "true")
	t.Setenv("POKEGRAPH_DEBOUNCE", "2s")

	cfg, err := LoadFile("", nil)
	require.NoError(t, err)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, 2*time.Second, cfg.Debounce)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"port out of range": "port = 70000",
		"zero top":          "top = 0",
		"bad verbosity":     `verbosity = "loud"`,
		"empty db list":     "db = []",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFile(writeFile(t, content), nil)
			assert.ErrorContains(t, err, "invalid configuration")
		})
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	_, err := LoadFile(writeFile(t, "port = = 1"), nil)
	assert.ErrorContains(t, err, "failed to load")
}
