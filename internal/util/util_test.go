package util

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePath(t *testing.T) {
	assert.Equal(t, filepath.Join("base", "rel"), ResolvePath("base", "rel"))
	abs := t.TempDir()
	assert.Equal(t, abs, ResolvePath("base", abs+string(filepath.Separator)))
}

func TestWriteJSONFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "a", "b", "out.json")
	require.NoError(t, WriteJSONFile(p, map[string]int{"n": 1}))

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	var got map[string]int
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, 1, got["n"])
}

func TestWriteJSONFileReplaces(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "cfg.json")
	require.NoError(t, WriteJSONFile(p, map[string]string{"v": "old"}))
	require.NoError(t, WriteJSONFile(p, map[string]string{"v": "new"}))

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":"new"}`, string(b))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestWriteJSONFileEncodeError(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bad.json")
	assert.Error(t, WriteJSONFile(p, map[string]any{"f": func() {}}))
	_, err := os.Stat(p)
	assert.True(t, os.IsNotExist(err))
}
