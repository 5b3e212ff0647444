package feedback

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Mounith2005/Agro-gaurd/internal/backend/database"
)

type failingStore struct {
	database.DatabaseService
	fail bool
}

func (s *failingStore) InsertFeedback(ctx context.Context, record *database.FeedbackRecord) (bool, error) {
	if s.fail {
		return false, errors.New("store offline")
	}
	return s.DatabaseService.InsertFeedback(ctx, record)
}

func newTestStore(t *testing.T) database.DatabaseService {
	t.Helper()

	store, err := database.NewDatabase(context.Background(), "sqlite", ":memory:")
	if err != nil {
		t.Fatalf("NewDatabase error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestRecorder(t *testing.T, store database.DatabaseService) *Recorder {
	t.Helper()

	dir := t.TempDir()
	r := NewRecorder(Config{
		Directory:     filepath.Join(dir, "feedback"),
		LegacyLogFile: filepath.Join(dir, "feedback.txt"),
	}, store, nil)
	r.now = func() time.Time { return time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC) }
	return r
}

func TestRecord_WithEvidence(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	r := newTestRecorder(t, store)

	id, err := r.Record(ctx, Submission{
		Username: "alice",
		Label:    "Tomato_Early_blight",
		Text:     "Looks right",
		Evidence: &Evidence{Filename: "leaf.JPG", Data: []byte("jpeg-bytes")},
	})
	if err != nil {
		t.Fatalf("Record error: %v", err)
	}
	if id == "" {
		t.Fatal("expected a record id")
	}

	evidence := filepath.Join(r.dir, "alice", id+".jpg")
	got, err := os.ReadFile(evidence)
	if err != nil {
		t.Fatalf("expected evidence at %s: %v", evidence, err)
	}
	if string(got) != "jpeg-bytes" {
		t.Errorf("evidence content = %q", got)
	}

	summary := filepath.Join(r.dir, "alice", "20240501T123000Z_"+id+".txt")
	data, err := os.ReadFile(summary)
	if err != nil {
		t.Fatalf("expected summary at %s: %v", summary, err)
	}
	for _, want := range []string{`username: "alice"`, `label: "Tomato_Early_blight"`, "feedback:\nLooks right"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("summary missing %q:\n%s", want, data)
		}
	}

	records, err := store.ListFeedbackByUser(ctx, "alice")
	if err != nil {
		t.Fatalf("ListFeedbackByUser error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 stored record, got %d", len(records))
	}
	if records[0].ID != id || records[0].FileReference != "alice/"+id+".jpg" {
		t.Errorf("unexpected stored record: %+v", records[0])
	}
}

func TestRecord_DisallowedExtensionIsDropped(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	r := newTestRecorder(t, store)

	id, err := r.Record(ctx, Submission{
		Username: "bob",
		Label:    "Tomato_healthy",
		Text:     "wrong",
		Evidence: &Evidence{Filename: "payload.exe", Data: []byte("MZ")},
	})
	if err != nil {
		t.Fatalf("Record error: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(r.dir, "bob"))
	if err != nil {
		t.Fatalf("ReadDir error: %v", err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".exe") {
			t.Errorf("disallowed file was stored: %s", e.Name())
		}
	}
	if len(entries) != 1 {
		t.Errorf("expected only the summary file, got %d entries", len(entries))
	}

	records, _ := store.ListFeedback(ctx)
	if len(records) != 1 || records[0].ID != id || records[0].FileReference != "" {
		t.Errorf("expected record without file reference, got %+v", records)
	}
}

func TestRecord_MissingData(t *testing.T) {
	r := newTestRecorder(t, newTestStore(t))

	tests := []struct {
		name string
		sub  Submission
	}{
		{"no user", Submission{Label: "x", Text: "y"}},
		{"no label", Submission{Username: "u", Text: "y"}},
		{"no text", Submission{Username: "u", Label: "x"}},
		{"blank text", Submission{Username: "u", Label: "x", Text: "   "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := r.Record(context.Background(), tt.sub); !errors.Is(err, ErrMissingData) {
				t.Errorf("expected ErrMissingData, got %v", err)
			}
		})
	}
}

func TestRecord_StoreFailureThenReconcile(t *testing.T) {
	ctx := context.Background()
	base := newTestStore(t)
	store := &failingStore{DatabaseService: base, fail: true}
	r := newTestRecorder(t, store)

	_, err := r.Record(ctx, Submission{Username: "carol", Label: "Tomato_Leaf_Mold", Text: "mold"})
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}

	records, _ := base.ListFeedback(ctx)
	if len(records) != 0 {
		t.Fatalf("expected empty store, got %d records", len(records))
	}

	store.fail = false
	added, err := r.Reconcile(ctx)
	if err != nil {
		t.Fatalf("Reconcile error: %v", err)
	}
	if added != 1 {
		t.Fatalf("expected 1 reconciled record, got %d", added)
	}

	records, _ = base.ListFeedback(ctx)
	if len(records) != 1 || records[0].Username != "carol" || records[0].FeedbackText != "mold" {
		t.Errorf("unexpected reconciled records: %+v", records)
	}

	again, err := r.Reconcile(ctx)
	if err != nil {
		t.Fatalf("second Reconcile error: %v", err)
	}
	if again != 0 {
		t.Errorf("expected replay to add nothing, got %d", again)
	}
}

func TestReconcile_MissingDirectory(t *testing.T) {
	r := newTestRecorder(t, newTestStore(t))

	added, err := r.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile error: %v", err)
	}
	if added != 0 {
		t.Errorf("expected 0, got %d", added)
	}
}

func TestReconcile_SkipsMalformedSummary(t *testing.T) {
	r := newTestRecorder(t, newTestStore(t))
	userDir := filepath.Join(r.dir, "dave")
	if err := os.MkdirAll(userDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(userDir, "garbage.txt"), []byte("not a summary"), 0644); err != nil {
		t.Fatal(err)
	}

	added, err := r.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile error: %v", err)
	}
	if added != 0 {
		t.Errorf("expected 0, got %d", added)
	}
}

func TestSummaryRoundTrip_MultilineText(t *testing.T) {
	record := &database.FeedbackRecord{
		ID:            "id-1",
		Username:      "erin",
		Label:         "Tomato_Bacterial_spot",
		FeedbackText:  "line one\nfeedback:\nline three",
		FileReference: "erin/id-1.png",
		CreatedAt:     time.Date(2024, 1, 2, 3, 4, 5, 6, time.UTC),
	}

	parsed, err := parseSummary(formatSummary(record))
	if err != nil {
		t.Fatalf("parseSummary error: %v", err)
	}
	if parsed.FeedbackText != record.FeedbackText {
		t.Errorf("text = %q, want %q", parsed.FeedbackText, record.FeedbackText)
	}
	if !parsed.CreatedAt.Equal(record.CreatedAt) || parsed.FileReference != record.FileReference {
		t.Errorf("parsed = %+v", parsed)
	}
}

func TestRecord_HeaderInjectionSurvivesReconcile(t *testing.T) {
	tests := []struct {
		name  string
		label string
	}{
		{"forged id line", "Tomato_healthy\nid: forged"},
		{"unknown key line", "line1\nline2"},
		{"fake feedback section", "x\nfeedback:\nhijacked"},
		{"quotes and tabs", "\"quoted\"\tlabel"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			base := newTestStore(t)
			store := &failingStore{DatabaseService: base, fail: true}
			r := newTestRecorder(t, store)

			if _, err := r.Record(ctx, Submission{Username: "mallory", Label: tt.label, Text: "body"}); !errors.Is(err, ErrStorageUnavailable) {
				t.Fatalf("expected ErrStorageUnavailable, got %v", err)
			}

			store.fail = false
			added, err := r.Reconcile(ctx)
			if err != nil {
				t.Fatalf("Reconcile error: %v", err)
			}
			if added != 1 {
				t.Fatalf("expected 1 reconciled record, got %d", added)
			}

			records, _ := base.ListFeedback(ctx)
			if len(records) != 1 {
				t.Fatalf("expected 1 record, got %d", len(records))
			}
			got := records[0]
			if got.Label != tt.label || got.FeedbackText != "body" || got.Username != "mallory" {
				t.Errorf("reconciled record altered: %+v", got)
			}

			entries, err := os.ReadDir(filepath.Join(r.dir, "mallory"))
			if err != nil || len(entries) != 1 {
				t.Fatalf("expected one summary file, got %v (%v)", entries, err)
			}
			if !strings.Contains(entries[0].Name(), got.ID) || got.ID == "forged" {
				t.Errorf("reconciled id %q does not match summary %s", got.ID, entries[0].Name())
			}
		})
	}
}

func TestParseSummary_RejectsDuplicateKeys(t *testing.T) {
	data := []byte("id: \"a\"\nid: \"b\"\nusername: \"u\"\nlabel: \"l\"\ntimestamp: 2024-01-02T03:04:05Z\nfile_reference: \"\"\nfeedback:\nx\n")
	if _, err := parseSummary(data); err == nil {
		t.Fatal("expected duplicate id to be rejected")
	}
}

func TestRecordLegacy(t *testing.T) {
	r := newTestRecorder(t, newTestStore(t))

	if err := r.RecordLegacy("leaf.jpg", "Tomato_healthy", "good"); err != nil {
		t.Fatalf("RecordLegacy error: %v", err)
	}
	if err := r.RecordLegacy("b.png", "Tomato_Leaf_Mold", "has\ttab"); err != nil {
		t.Fatalf("RecordLegacy error: %v", err)
	}
	if err := r.RecordLegacy("", "x", "y"); !errors.Is(err, ErrMissingData) {
		t.Errorf("expected ErrMissingData, got %v", err)
	}

	data, err := os.ReadFile(r.legacyLog)
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	want := "filename\tlabel\tfeedback\nleaf.jpg\tTomato_healthy\tgood\nb.png\tTomato_Leaf_Mold\thas tab\n"
	if string(data) != want {
		t.Errorf("legacy log = %q, want %q", data, want)
	}
}

func TestRecordLegacy_Concurrent(t *testing.T) {
	r := newTestRecorder(t, newTestStore(t))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = r.RecordLegacy(fmt.Sprintf("f%d.jpg", i), "Tomato_healthy", "ok")
		}(i)
	}
	wg.Wait()

	data, err := os.ReadFile(r.legacyLog)
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	if len(lines) != 21 {
		t.Errorf("expected header plus 20 lines, got %d", len(lines))
	}
	if lines[0] != "filename\tlabel\tfeedback" {
		t.Errorf("first line = %q", lines[0])
	}
}
