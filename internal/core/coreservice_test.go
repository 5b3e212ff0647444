package core

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/Mounith2005/Agro-gaurd/internal/backend/classifier"
	"github.com/Mounith2005/Agro-gaurd/internal/backend/database"
	"github.com/Mounith2005/Agro-gaurd/internal/backend/feedback"
	"github.com/Mounith2005/Agro-gaurd/internal/backend/imageprocessing"
	"github.com/Mounith2005/Agro-gaurd/internal/backend/inference"
)

// fixedClassifier always predicts the same class.
type fixedClassifier struct {
	index  int
	closed bool
}

func (f *fixedClassifier) Classify(ctx context.Context, input *imageprocessing.Tensor) (classifier.Classification, error) {
	return classifier.Classification{Index: f.index, Confidence: 0.9}, nil
}

func (f *fixedClassifier) Close() error {
	f.closed = true
	return nil
}

func newTestConfig(t *testing.T) *ServiceConfig {
	t.Helper()
	dir := t.TempDir()
	cfg := &ServiceConfig{
		Database: Database{Type: "sqlite", ConnectionString: ":memory:"},
		Model:    Model{Path: filepath.Join(dir, "missing.onnx")},
		Staging:  Staging{Directory: filepath.Join(dir, "uploads")},
		Feedback: Feedback{
			Directory:     filepath.Join(dir, "feedback"),
			LegacyLogFile: filepath.Join(dir, "feedback.txt"),
		},
	}
	cfg.applyDefaults()
	return cfg
}

func newTestCoreService(t *testing.T, cfg *ServiceConfig, opts ...Option) *CoreService {
	t.Helper()
	opts = append(opts, withBcryptCost(bcrypt.MinCost))
	svc, err := NewCoreService(cfg, opts...)
	if err != nil {
		t.Fatalf("NewCoreService error: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func createTestPNG(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode error: %v", err)
	}
	return buf.Bytes()
}

func TestPredict_UsesConfiguredClassifier(t *testing.T) {
	svc := newTestCoreService(t, newTestConfig(t), WithClassifier(&fixedClassifier{index: 8}))

	result := svc.Predict(context.Background(), &inference.Upload{
		Filename: "leaf.png",
		Data:     createTestPNG(t, color.RGBA{G: 200, A: 255}),
	})
	if !result.OK() {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.Label != "Tomato_healthy" {
		t.Errorf("expected Tomato_healthy, got %s", result.Label)
	}
	if result.Advisory.Disease != "Healthy Plant" {
		t.Errorf("unexpected advisory %+v", result.Advisory)
	}
}

func TestPredict_MissingModelDegrades(t *testing.T) {
	svc := newTestCoreService(t, newTestConfig(t))

	result := svc.Predict(context.Background(), &inference.Upload{
		Filename: "leaf.png",
		Data:     createTestPNG(t, color.RGBA{G: 200, A: 255}),
	})
	if result.Outcome != inference.OutcomeModelUnavailable {
		t.Fatalf("expected model_unavailable, got %s", result.Outcome)
	}
	if result.Label != classifier.UnavailableLabel || result.Confidence != 0 {
		t.Errorf("unexpected degraded result %+v", result)
	}
}

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := newTestCoreService(t, newTestConfig(t))

	if err := svc.RegisterUser(ctx, "alice", "correcthorse"); err != nil {
		t.Fatalf("RegisterUser error: %v", err)
	}
	if err := svc.RegisterUser(ctx, "alice", "other-password"); !errors.Is(err, database.ErrUserExists) {
		t.Errorf("expected ErrUserExists, got %v", err)
	}

	user, err := svc.Authenticate(ctx, "alice", "correcthorse")
	if err != nil {
		t.Fatalf("Authenticate error: %v", err)
	}
	if user.IsAdmin() {
		t.Error("registered users must not be admins")
	}

	if _, err := svc.Authenticate(ctx, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "nobody", "correcthorse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestBootstrapAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("without password", func(t *testing.T) {
		svc := newTestCoreService(t, newTestConfig(t))
		if _, err := svc.Authenticate(ctx, "admin", ""); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected no admin account, got %v", err)
		}
	})

	t.Run("with password", func(t *testing.T) {
		cfg := newTestConfig(t)
		cfg.Auth.AdminPassword = "bootstrap-secret"
		svc := newTestCoreService(t, cfg)

		user, err := svc.Authenticate(ctx, "admin", "bootstrap-secret")
		if err != nil {
			t.Fatalf("Authenticate error: %v", err)
		}
		if !user.IsAdmin() {
			t.Error("expected admin role")
		}
	})
}

func TestRecordFeedbackAndList(t *testing.T) {
	ctx := context.Background()
	svc := newTestCoreService(t, newTestConfig(t))

	id, err := svc.RecordFeedback(ctx, feedback.Submission{Username: "bob", Label: "Tomato_Leaf_Mold", Text: "agree"})
	if err != nil {
		t.Fatalf("RecordFeedback error: %v", err)
	}

	all, err := svc.ListFeedback(ctx)
	if err != nil {
		t.Fatalf("ListFeedback error: %v", err)
	}
	if len(all) != 1 || all[0].ID != id {
		t.Errorf("unexpected feedback list %+v", all)
	}

	mine, err := svc.ListFeedbackByUser(ctx, "bob")
	if err != nil {
		t.Fatalf("ListFeedbackByUser error: %v", err)
	}
	if len(mine) != 1 {
		t.Errorf("expected 1 record for bob, got %d", len(mine))
	}
}

func TestStart_ReconcilesSummariesIntoFreshStore(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig(t)

	first := newTestCoreService(t, cfg)
	id, err := first.RecordFeedback(ctx, feedback.Submission{Username: "carol", Label: "Tomato_healthy", Text: "fine"})
	if err != nil {
		t.Fatalf("RecordFeedback error: %v", err)
	}
	_ = first.Close()

	// A new in-memory store starts empty; the summary files survive.
	second := newTestCoreService(t, cfg)
	if err := second.Start(ctx); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	records, err := second.ListFeedback(ctx)
	if err != nil {
		t.Fatalf("ListFeedback error: %v", err)
	}
	if len(records) != 1 || records[0].ID != id {
		t.Errorf("expected reconciled record %s, got %+v", id, records)
	}
}

func TestClose_ClosesClassifier(t *testing.T) {
	c := &fixedClassifier{}
	svc, err := NewCoreService(newTestConfig(t), WithClassifier(c))
	if err != nil {
		t.Fatalf("NewCoreService error: %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if !c.closed {
		t.Error("expected classifier to be closed")
	}
}

func TestNewCoreService_WithSchedule(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Retention.Schedule = "*/5 * * * *"
	svc := newTestCoreService(t, cfg, WithClassifier(&fixedClassifier{}))

	if err := os.MkdirAll(cfg.Staging.Directory, 0755); err != nil {
		t.Fatal(err)
	}
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if svc.scheduler == nil {
		t.Fatal("expected a scheduler")
	}
}
