package feedback

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Mounith2005/Agro-gaurd/internal/backend/database"
	"github.com/Mounith2005/Agro-gaurd/internal/backend/metrics"
	"github.com/Mounith2005/Agro-gaurd/internal/common"
)

var (
	ErrMissingData        = errors.New("missing data")
	ErrStorageUnavailable = errors.New("feedback storage unavailable")
)

var DefaultAllowedExtensions = []string{".png", ".jpg", ".jpeg"}

const legacyHeader = "filename\tlabel\tfeedback\n"

type Config struct {
	Directory         string
	AllowedExtensions []string
	LegacyLogFile     string
}

// Evidence is an optional image attached to a submission.
type Evidence struct {
	Filename string
	Data     []byte
}

type Submission struct {
	Username string
	Label    string
	Text     string
	Evidence *Evidence
}

// Recorder persists feedback to a per-user directory tree and mirrors every
// record into the durable store. The flat files are written first and are the
// source Reconcile replays from.
type Recorder struct {
	dir       string
	allowed   map[string]struct{}
	legacyLog string
	store     database.DatabaseService
	metrics   *metrics.Metrics
	now       func() time.Time
	newID     func() string

	legacyMu sync.Mutex
}

func NewRecorder(cfg Config, store database.DatabaseService, m *metrics.Metrics) *Recorder {
	extensions := cfg.AllowedExtensions
	if len(extensions) == 0 {
		extensions = DefaultAllowedExtensions
	}
	allowed := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		allowed[normalizeExtension(ext)] = struct{}{}
	}

	return &Recorder{
		dir:       cfg.Directory,
		allowed:   allowed,
		legacyLog: cfg.LegacyLogFile,
		store:     store,
		metrics:   m,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Record stores one submission and returns the new record id. A missing
// evidence file, or one with an extension outside the allow-list, is not an
// error: the record is kept without a file reference.
func (r *Recorder) Record(ctx context.Context, sub Submission) (string, error) {
	if strings.TrimSpace(sub.Username) == "" || strings.TrimSpace(sub.Label) == "" || strings.TrimSpace(sub.Text) == "" {
		r.metrics.ObserveFeedback("missing_data")
		return "", ErrMissingData
	}

	record := &database.FeedbackRecord{
		ID:           r.newID(),
		Username:     sub.Username,
		Label:        sub.Label,
		FeedbackText: sub.Text,
		CreatedAt:    r.now().UTC(),
	}

	userDir := r.userDir(sub.Username)
	if err := os.MkdirAll(userDir, 0755); err != nil {
		slog.Error("failed to create feedback directory", "path", userDir, "error", err)
		r.metrics.ObserveFeedback("storage_unavailable")
		return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	if sub.Evidence != nil && len(sub.Evidence.Data) > 0 {
		ext := normalizeExtension(filepath.Ext(sub.Evidence.Filename))
		if _, ok := r.allowed[ext]; ok {
			name := record.ID + ext
			if err := writeFileAtomic(filepath.Join(userDir, name), sub.Evidence.Data); err != nil {
				slog.Error("failed to store feedback evidence", "id", record.ID, "error", err)
				r.metrics.ObserveFeedback("storage_unavailable")
				return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
			}
			record.FileReference = filepath.ToSlash(filepath.Join(filepath.Base(userDir), name))
		} else {
			slog.Debug("dropping feedback evidence with disallowed extension",
				"id", record.ID, "filename", sub.Evidence.Filename)
		}
	}

	summaryPath := filepath.Join(userDir, summaryName(record))
	if err := writeFileAtomic(summaryPath, formatSummary(record)); err != nil {
		slog.Error("failed to write feedback summary", "path", summaryPath, "error", err)
		r.metrics.ObserveFeedback("storage_unavailable")
		return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	if _, err := r.store.InsertFeedback(ctx, record); err != nil {
		// The summary stays on disk and is picked up by the next Reconcile.
		slog.Error("failed to mirror feedback into store", "id", record.ID, "error", err)
		r.metrics.ObserveFeedback("storage_unavailable")
		return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	r.metrics.ObserveFeedback("success")
	slog.Info("feedback recorded", "id", record.ID, "username", record.Username, "label", record.Label)
	return record.ID, nil
}

// Reconcile inserts every record found in the summary files that the store
// does not yet hold and returns how many were added. Unreadable summaries are
// logged and skipped.
func (r *Recorder) Reconcile(ctx context.Context) (int, error) {
	added := 0
	err := filepath.WalkDir(r.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == r.dir {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || filepath.Ext(path) != summaryExtension || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("failed to read feedback summary", "path", path, "error", err)
			return nil
		}
		record, err := parseSummary(data)
		if err != nil {
			slog.Warn("skipping malformed feedback summary", "path", path, "error", err)
			return nil
		}

		inserted, err := r.store.InsertFeedback(ctx, record)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		if inserted {
			added++
		}
		return nil
	})
	if err != nil {
		return added, err
	}
	if added > 0 {
		slog.Info("reconciled feedback records", "added", added)
	}
	return added, nil
}

// RecordLegacy appends one anonymous tab-separated line to the legacy log,
// writing the header first when the log is new.
func (r *Recorder) RecordLegacy(filename, label, feedback string) error {
	if filename == "" || label == "" || feedback == "" {
		return ErrMissingData
	}
	if r.legacyLog == "" {
		return fmt.Errorf("%w: legacy log not configured", ErrStorageUnavailable)
	}

	r.legacyMu.Lock()
	defer r.legacyMu.Unlock()

	if dir := filepath.Dir(r.legacyLog); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
	}
	f, err := os.OpenFile(r.legacyLog, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	line := strings.Join([]string{tsvField(filename), tsvField(label), tsvField(feedback)}, "\t") + "\n"
	if info.Size() == 0 {
		line = legacyHeader + line
	}
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	r.metrics.ObserveFeedback("legacy")
	return nil
}

func (r *Recorder) userDir(username string) string {
	return filepath.Join(r.dir, common.SanitizeFilename(username))
}

func normalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// tsvField keeps one value on one line and in one column.
func tsvField(s string) string {
	return strings.NewReplacer("\t", " ", "\r", " ", "\n", " ").Replace(s)
}
