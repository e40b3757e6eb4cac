package run

import (
	"os"
	"path/filepath"
)

// Namespace is the directory tree of one run: a root named after the run id
// and one subdirectory per scanner.
type Namespace struct {
	Root       string
	perScanner map[string]string
}

// CreateNamespace creates root/runID and root/runID/<name> for each name, in
// order. Directories that already exist are reused, so calling it twice with
// the same arguments is harmless.
func CreateNamespace(root, runID string, names []string) (*Namespace, error) {
	runRoot := filepath.Join(root, runID)
	if err := os.MkdirAll(runRoot, 0o755); err != nil {
		return nil, &FSError{Path: runRoot, Err: err}
	}

	ns := &Namespace{Root: runRoot, perScanner: make(map[string]string, len(names))}
	for _, name := range names {
		dir := filepath.Join(runRoot, name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &FSError{Path: dir, Err: err}
		}
		ns.perScanner[name] = dir
	}
	return ns, nil
}

// Dir returns the output directory of the named scanner.
func (n *Namespace) Dir(name string) (string, bool) {
	dir, ok := n.perScanner[name]
	return dir, ok
}
