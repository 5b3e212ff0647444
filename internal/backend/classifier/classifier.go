package classifier

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/Mounith2005/Agro-gaurd/internal/backend/imageprocessing"
)

// ErrModelUnavailable is returned by every call into a classifier whose model
// could not be loaded or failed during inference.
var ErrModelUnavailable = errors.New("model unavailable")

// Classification is the argmax class of one prediction.
type Classification struct {
	Index      int
	Confidence float64
}

// Classifier predicts one label index for a single-item input batch.
type Classifier interface {
	Classify(ctx context.Context, input *imageprocessing.Tensor) (Classification, error)
	Close() error
}

// Unavailable is the degraded classifier used when no model could be loaded.
type Unavailable struct {
	Reason error
}

// Classify always fails with ErrModelUnavailable.
func (u *Unavailable) Classify(ctx context.Context, input *imageprocessing.Tensor) (Classification, error) {
	if u.Reason != nil {
		return Classification{}, fmt.Errorf("%w: %v", ErrModelUnavailable, u.Reason)
	}
	return Classification{}, ErrModelUnavailable
}

func (u *Unavailable) Close() error {
	return nil
}

// argmax returns the index and probability of the most likely class. Outputs
// that are not already a probability distribution are passed through softmax.
func argmax(output []float32) (Classification, error) {
	if len(output) == 0 {
		return Classification{}, fmt.Errorf("%w: empty model output", ErrModelUnavailable)
	}
	probs := toProbabilities(output)

	best := 0
	for i := 1; i < len(probs); i++ {
		if probs[i] > probs[best] {
			best = i
		}
	}
	if math.IsNaN(probs[best]) {
		return Classification{}, fmt.Errorf("%w: model output is NaN", ErrModelUnavailable)
	}
	return Classification{Index: best, Confidence: probs[best]}, nil
}

func toProbabilities(output []float32) []float64 {
	probs := make([]float64, len(output))
	sum := 0.0
	isDistribution := true
	for i, v := range output {
		probs[i] = float64(v)
		if v < 0 || v > 1 {
			isDistribution = false
		}
		sum += float64(v)
	}
	if isDistribution && math.Abs(sum-1) < 1e-3 {
		return probs
	}
	return softmax(probs)
}

func softmax(logits []float64) []float64 {
	maxLogit := math.Inf(-1)
	for _, v := range logits {
		if v > maxLogit {
			maxLogit = v
		}
	}
	out := make([]float64, len(logits))
	sum := 0.0
	for i, v := range logits {
		out[i] = math.Exp(v - maxLogit)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
