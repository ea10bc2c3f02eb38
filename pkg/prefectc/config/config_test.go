package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowforge/prefectc/pkg/prefectc"
)

// TestString verifies string extraction with defaults.
func TestString(t *testing.T) {
	cfg := New(map[string]any{"datastore": "s3", "workers": 4})
	assert.Equal(t, "s3", cfg.String("datastore", "local"))
	assert.Equal(t, "local", cfg.String("missing", "local"))
	assert.Equal(t, "local", cfg.String("workers", "local"))
}

// TestBool verifies boolean extraction with defaults.
func TestBool(t *testing.T) {
	cfg := New(map[string]any{"paused": true, "name": "x"})
	assert.True(t, cfg.Bool("paused", false))
	assert.False(t, cfg.Bool("missing", false))
	assert.True(t, cfg.Bool("name", true))
}

// TestInt verifies integer extraction, including the float64 shapes
// JSON decoding produces.
func TestInt(t *testing.T) {
	cfg := New(map[string]any{
		"a": 4,
		"b": int64(5),
		"c": float64(6),
		"d": 6.5,
	})
	assert.Equal(t, 4, cfg.Int("a", 0))
	assert.Equal(t, 5, cfg.Int("b", 0))
	assert.Equal(t, 6, cfg.Int("c", 0))
	assert.Equal(t, 9, cfg.Int("d", 9), "fractional values fall back to the default")
	assert.Equal(t, 9, cfg.Int("missing", 9))
}

// TestStringSlice verifies slice extraction from both decoder shapes.
func TestStringSlice(t *testing.T) {
	cfg := New(map[string]any{
		"typed": []string{"a", "b"},
		"any":   []any{"c", "d"},
		"mixed": []any{"e", 1},
	})
	assert.Equal(t, []string{"a", "b"}, cfg.StringSlice("typed", nil))
	assert.Equal(t, []string{"c", "d"}, cfg.StringSlice("any", nil))
	assert.Nil(t, cfg.StringSlice("mixed", nil))
	assert.Nil(t, cfg.StringSlice("missing", nil))
}

// TestNilMap verifies a nil map yields a usable empty config.
func TestNilMap(t *testing.T) {
	cfg := New(nil)
	assert.False(t, cfg.Has("anything"))
	assert.Equal(t, "d", cfg.String("anything", "d"))
	assert.NotNil(t, cfg.Raw())
}

// TestFromYAML verifies YAML parsing into a usable config.
func TestFromYAML(t *testing.T) {
	cfg, err := FromYAML([]byte("datastore: s3\nmax_workers: 4\nwith: [sandbox]\n"))
	require.NoError(t, err)
	assert.Equal(t, "s3", cfg.String("datastore", ""))
	assert.Equal(t, 4, cfg.Int("max_workers", 0))
	assert.Equal(t, []string{"sandbox"}, cfg.StringSlice("with", nil))
}

// TestFromJSON verifies JSON parsing into a usable config.
func TestFromJSON(t *testing.T) {
	cfg, err := FromJSON([]byte(`{"username": "alice", "max_workers": 8}`))
	require.NoError(t, err)
	assert.Equal(t, "alice", cfg.String("username", ""))
	assert.Equal(t, 8, cfg.Int("max_workers", 0))
}

// TestFromFile verifies extension-based format detection.
func TestFromFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "prefectc.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("metadata: service\n"), 0o644))
	cfg, err := FromFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "service", cfg.String("metadata", ""))

	jsonPath := filepath.Join(dir, "prefectc.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"metadata": "service"}`), 0o644))
	cfg, err = FromFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "service", cfg.String("metadata", ""))

	_, err = FromFile(filepath.Join(dir, "prefectc.toml"))
	assert.Error(t, err)

	_, err = FromFile(filepath.Join(dir, "absent.yaml"))
	assert.Error(t, err)
}

// TestEmission verifies file values overlay the base emission config.
func TestEmission(t *testing.T) {
	cfg, err := FromYAML([]byte(`
datastore: s3
username: alice
max_workers: 4
with: [sandbox]
`))
	require.NoError(t, err)

	base := prefectc.Config{
		FlowFile:      "/flows/myflow.py",
		DatastoreType: "local",
		MetadataType:  "local",
		Username:      "bob",
	}
	out := cfg.Emission(base)

	assert.Equal(t, "/flows/myflow.py", out.FlowFile, "absent keys keep base values")
	assert.Equal(t, "local", out.MetadataType)
	assert.Equal(t, "s3", out.DatastoreType)
	assert.Equal(t, "alice", out.Username)
	assert.Equal(t, 4, out.MaxWorkers)
	assert.Equal(t, []string{"sandbox"}, out.WithDecorators)
}
