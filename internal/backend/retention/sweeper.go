package retention

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Mounith2005/Agro-gaurd/internal/backend/metrics"
)

// DefaultMaxAge is how long a staged upload is kept.
const DefaultMaxAge = 24 * time.Hour

// Sweeper deletes staged uploads older than a maximum age.
type Sweeper struct {
	dir     string
	now     func() time.Time
	metrics *metrics.Metrics
}

func NewSweeper(dir string, m *metrics.Metrics) *Sweeper {
	return &Sweeper{
		dir:     dir,
		now:     time.Now,
		metrics: m,
	}
}

// Sweep removes every regular file in the staging directory whose modification
// time is before now-maxAge and returns the number of deleted files. Files that
// disappear between listing and removal are skipped; concurrent sweeps race
// only on stale files.
func (s *Sweeper) Sweep(maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to list staging directory %s: %w", s.dir, err)
	}

	cutoff := s.now().Add(-maxAge)
	deleted := 0
	var firstErr error
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// removed by a concurrent sweep
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		path := filepath.Join(s.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			slog.Warn("Sweeper: failed to delete staged upload", "path", path, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to delete %s: %w", path, err)
			}
			continue
		}
		deleted++
	}

	if deleted > 0 {
		slog.Info("Sweeper: deleted expired uploads", "count", deleted, "max_age", maxAge.String())
	}
	s.metrics.AddSwept(deleted)
	return deleted, firstErr
}
