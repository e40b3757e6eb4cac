package scanner

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteArtifact(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteArtifact(dir, "summary.json", Summary{"findings_count": 2})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "summary.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got map[string]int
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 2, got["findings_count"])
}

func TestWriteArtifact_MissingDir(t *testing.T) {
	_, err := WriteArtifact(filepath.Join(t.TempDir(), "nope"), "x.json", Summary{})
	assert.Error(t, err)
}

func TestWriteArtifact_Unencodable(t *testing.T) {
	_, err := WriteArtifact(t.TempDir(), "x.json", Summary{"ch": make(chan int)})
	assert.Error(t, err)
}
