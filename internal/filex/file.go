package filex

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureParentDir makes sure the directory that will hold path exists and
// returns path made absolute. Relative paths are resolved against the
// working directory.
func EnsureParentDir(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("abs %s: %w", path, err)
	}

	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return abs, nil
}
