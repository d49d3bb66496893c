// Package output names and persists generated content on disk.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const timestampLayout = "20060102_150405"

// BaseName returns "{kind}_{topic}_{timestamp}" with spaces in the topic
// replaced by underscores and path separators removed.
func BaseName(kind, topic string, at time.Time) string {
	topic = strings.ReplaceAll(strings.TrimSpace(topic), " ", "_")
	topic = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', 0:
			return -1
		}
		return r
	}, topic)
	return fmt.Sprintf("%s_%s_%s", kind, topic, at.Format(timestampLayout))
}

// WriteText writes text to dir/base.txt, creating dir if needed, and returns the path.
func WriteText(dir, base, text string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(dir, base+".txt")
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// Resolve returns the path of name inside dir, rejecting names that would
// escape it.
func Resolve(dir, name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	return filepath.Join(dir, name), nil
}
