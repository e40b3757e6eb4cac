package scanner

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteArtifact writes v as indented JSON to dir/name and returns the path.
// Adapters use it for everything they persist beneath their output dir.
func WriteArtifact(dir, name string, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding %s: %w", name, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	return path, nil
}
