package wal

import (
	"os"
	"path/filepath"
	"time"
)

// Cleanup removes journal files older than the retention period.
func Cleanup(dir string, retention time.Duration) error {
	cutoff := time.Now().Add(-retention)

	files, err := filepath.Glob(filepath.Join(dir, "muisti-*.wal"))
	if err != nil {
		return err
	}

	for _, file := range files {
		if isOlderThan(file, cutoff) {
			if err := os.Remove(file); err != nil {
				return err
			}
		}
	}
	return nil
}

// isOlderThan checks if file modification time is before cutoff
func isOlderThan(path string, cutoff time.Time) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.ModTime().Before(cutoff)
}
