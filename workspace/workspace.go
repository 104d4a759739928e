// Package workspace resolves the directory that shell commands run in.
// The workspace is fixed for the life of the process and is created on
// startup if it does not exist, along with a logs subdirectory.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
)

// Default returns the default workspace directory, an "mcp" directory
// under the user's home directory, as an absolute path.
func Default() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home dir: %w", err)
	}
	dir, err := filepath.Abs(filepath.Join(home, "mcp"))
	if err != nil {
		return "", fmt.Errorf("resolving workspace path: %w", err)
	}
	return dir, nil
}

// Ensure creates the workspace directory and its logs subdirectory if
// they do not already exist.
func Ensure(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating workspace dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "logs"), 0755); err != nil {
		return fmt.Errorf("creating workspace logs dir: %w", err)
	}
	return nil
}

// LogFile returns the path of the server log file inside the workspace.
func LogFile(dir string) string {
	return filepath.Join(dir, "logs", "terminal.log")
}
