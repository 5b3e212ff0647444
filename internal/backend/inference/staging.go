package inference

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/Mounith2005/Agro-gaurd/internal/common"
)

const maxStageAttempts = 5

// StorageName returns the staging name {unix_seconds}_{sanitized_filename}.
func StorageName(now time.Time, filename string) string {
	return fmt.Sprintf("%d_%s", now.Unix(), common.SanitizeFilename(filename))
}

// uniqueStorageName inserts a random tag after the timestamp for uploads that
// collide with an existing staged file.
func uniqueStorageName(now time.Time, filename string) string {
	return fmt.Sprintf("%d_%s_%s", now.Unix(), uuid.NewString()[:8], common.SanitizeFilename(filename))
}

// stage writes data into dir and returns the staged name. A staged file is
// never overwritten: when StorageName is taken, a tagged name is used instead.
func stage(dir string, now time.Time, filename string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create staging directory %s: %w", dir, err)
	}

	name := StorageName(now, filename)
	for attempt := 0; attempt < maxStageAttempts; attempt++ {
		err := writeExclusive(filepath.Join(dir, name), data)
		if err == nil {
			return name, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", err
		}
		name = uniqueStorageName(now, filename)
	}
	return "", fmt.Errorf("failed to find a free staging name for %s", filename)
}

func writeExclusive(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("failed to write staged upload %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("failed to close staged upload %s: %w", path, err)
	}
	return nil
}
