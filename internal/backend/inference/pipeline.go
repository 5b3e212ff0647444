package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Mounith2005/Agro-gaurd/internal/backend/classifier"
	"github.com/Mounith2005/Agro-gaurd/internal/backend/imageprocessing"
	"github.com/Mounith2005/Agro-gaurd/internal/backend/metrics"
	"github.com/Mounith2005/Agro-gaurd/internal/backend/remedy"
	"github.com/Mounith2005/Agro-gaurd/internal/backend/retention"
)

// DefaultInferenceTimeout bounds a single classify call.
const DefaultInferenceTimeout = 10 * time.Second

// Upload is one image received from a client.
type Upload struct {
	Filename   string
	Data       []byte
	ReceivedAt time.Time
}

// Preprocessor converts upload bytes into a classifier input.
type Preprocessor interface {
	Preprocess(imageData []byte) (*imageprocessing.Tensor, error)
}

// Config controls staging and timeouts of the pipeline.
type Config struct {
	StagingDir       string
	InferenceTimeout time.Duration
	SweepOnRequest   bool
	MaxAge           time.Duration
}

// Pipeline runs upload -> stage -> preprocess -> classify -> resolve advisory.
// It holds no per-request state and is safe for concurrent use as long as the
// classifier is.
type Pipeline struct {
	config       Config
	preprocessor Preprocessor
	classifier   classifier.Classifier
	sweeper      *retention.Sweeper
	metrics      *metrics.Metrics
	now          func() time.Time
}

func NewPipeline(config Config, preprocessor Preprocessor, c classifier.Classifier, sweeper *retention.Sweeper, m *metrics.Metrics) *Pipeline {
	if config.InferenceTimeout <= 0 {
		config.InferenceTimeout = DefaultInferenceTimeout
	}
	if config.MaxAge <= 0 {
		config.MaxAge = retention.DefaultMaxAge
	}
	return &Pipeline{
		config:       config,
		preprocessor: preprocessor,
		classifier:   c,
		sweeper:      sweeper,
		metrics:      m,
		now:          time.Now,
	}
}

// Run classifies one upload. It never fails: every error is folded into the
// returned Result's Outcome.
func (p *Pipeline) Run(ctx context.Context, upload *Upload) Result {
	start := time.Now()
	result := p.run(ctx, upload)
	elapsed := time.Since(start)

	p.metrics.ObservePrediction(string(result.Outcome), elapsed)
	slog.Info("prediction completed",
		"outcome", result.Outcome,
		"filename", result.StagedFilename,
		"label", result.Label,
		"confidence", result.Confidence,
		"duration_ms", elapsed.Milliseconds())
	return result
}

func (p *Pipeline) run(ctx context.Context, upload *Upload) Result {
	if p.config.SweepOnRequest && p.sweeper != nil {
		if _, err := p.sweeper.Sweep(p.config.MaxAge); err != nil {
			slog.Warn("Pipeline: retention sweep failed", "error", err)
		}
	}

	if upload == nil || upload.Data == nil {
		return degraded(OutcomeNoFile, "", "", ErrNoFileProvided)
	}
	if upload.Filename == "" {
		return degraded(OutcomeEmptySelection, "", "", ErrEmptySelection)
	}

	receivedAt := upload.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = p.now()
	}
	name, err := stage(p.config.StagingDir, receivedAt, upload.Filename, upload.Data)
	if err != nil {
		slog.Error("Pipeline: failed to stage upload", "filename", upload.Filename, "error", err)
		return degraded(OutcomeStorageUnavailable, "", classifier.UnavailableLabel, fmt.Errorf("%w: %v", ErrStorageUnavailable, err))
	}

	tensor, err := p.preprocessor.Preprocess(upload.Data)
	if err != nil {
		slog.Warn("Pipeline: failed to preprocess upload", "filename", name, "error", err)
		return degraded(OutcomeInvalidImage, name, err.Error(), err)
	}

	classification, err := p.classify(ctx, tensor)
	if err != nil {
		if errors.Is(err, ErrInferenceTimeout) {
			slog.Error("Pipeline: inference timed out", "filename", name, "timeout", p.config.InferenceTimeout.String())
			return degraded(OutcomeInferenceTimeout, name, classifier.TimeoutLabel, err)
		}
		slog.Error("Pipeline: classification failed", "filename", name, "error", err)
		return degraded(OutcomeModelUnavailable, name, classifier.UnavailableLabel, err)
	}

	label, err := classifier.LabelAt(classification.Index)
	if err != nil {
		slog.Error("Pipeline: classifier returned an unknown class", "filename", name, "error", err)
		return degraded(OutcomeModelUnavailable, name, classifier.UnavailableLabel, fmt.Errorf("%w: %v", classifier.ErrModelUnavailable, err))
	}

	return Result{
		Outcome:        OutcomeSuccess,
		StagedFilename: name,
		Label:          label,
		Confidence:     classification.Confidence,
		Advisory:       remedy.Resolve(label),
	}
}

type classifyReply struct {
	classification classifier.Classification
	err            error
}

// classify bounds the classifier call by the configured timeout. A classifier
// that ignores its context is abandoned; its goroutine finishes on its own.
func (p *Pipeline) classify(ctx context.Context, tensor *imageprocessing.Tensor) (classifier.Classification, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.InferenceTimeout)
	defer cancel()

	replies := make(chan classifyReply, 1)
	go func() {
		c, err := p.classifier.Classify(ctx, tensor)
		replies <- classifyReply{classification: c, err: err}
	}()

	select {
	case reply := <-replies:
		if reply.err != nil && ctx.Err() != nil {
			return classifier.Classification{}, fmt.Errorf("%w: %v", ErrInferenceTimeout, ctx.Err())
		}
		return reply.classification, reply.err
	case <-ctx.Done():
		return classifier.Classification{}, fmt.Errorf("%w: %v", ErrInferenceTimeout, ctx.Err())
	}
}
