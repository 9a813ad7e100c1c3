package download

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// TempPrefix marks files owned by this service in the temp directory
const TempPrefix = "readtube_"

// CreateTempFile creates a file named readtube_<kind>_*<ext> in dir
func CreateTempFile(dir, kind, ext string) (*os.File, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	return os.CreateTemp(dir, fmt.Sprintf("%s%s_*%s", TempPrefix, kind, ext))
}

// CleanupTempFile removes a temporary file
func CleanupTempFile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// CleanupOldTempFiles removes temp files older than maxAge and reports how
// many were deleted
func CleanupOldTempFiles(tempDir string, maxAge time.Duration) (int, error) {
	files, err := filepath.Glob(filepath.Join(tempDir, TempPrefix+"*"))
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	var removed int

	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil || info.IsDir() {
			continue
		}

		if info.ModTime().Before(cutoff) {
			if err := os.Remove(file); err == nil {
				removed++
			}
		}
	}

	if removed > 0 {
		logrus.WithFields(logrus.Fields{"dir": tempDir, "removed": removed}).Debug("Cleaned up old temp files")
	}

	return removed, nil
}
