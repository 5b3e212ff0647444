package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/Mounith2005/Agro-gaurd/internal/backend/imageprocessing"
	ort "github.com/yalue/onnxruntime_go"
)

// closeTimeout bounds how long Close waits for an in-flight inference.
const closeTimeout = 5 * time.Second

// ONNXConfig locates the model artifact and the names of its input and output.
type ONNXConfig struct {
	ModelPath         string
	SharedLibraryPath string
	InputName         string
	OutputName        string
}

// ONNXClassifier runs a pre-trained model through onnxruntime.
//
// The session is bound to a single pair of input/output tensors, so runs are
// serialised through slot.
type ONNXClassifier struct {
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	slot         chan struct{}
	ownsEnv      bool
}

// NewONNXClassifier loads the model artifact once.
func NewONNXClassifier(cfg ONNXConfig) (*ONNXClassifier, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("failed to stat model %s: %w", cfg.ModelPath, err)
	}

	ownsEnv := false
	if !ort.IsInitialized() {
		if cfg.SharedLibraryPath != "" {
			ort.SetSharedLibraryPath(cfg.SharedLibraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
		ownsEnv = true
	}

	inputShape := ort.NewShape(1, imageprocessing.TargetHeight, imageprocessing.TargetWidth, imageprocessing.Channels)
	outputShape := ort.NewShape(1, int64(ClassCount))

	c := &ONNXClassifier{
		slot:    make(chan struct{}, 1),
		ownsEnv: ownsEnv,
	}

	var err error
	c.inputTensor, err = ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	c.outputTensor, err = ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	c.session, err = ort.NewAdvancedSession(cfg.ModelPath,
		[]string{cfg.InputName}, []string{cfg.OutputName},
		[]ort.ArbitraryTensor{c.inputTensor}, []ort.ArbitraryTensor{c.outputTensor},
		nil)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return c, nil
}

// Load returns a classifier backed by the model at cfg.ModelPath. When the
// model cannot be loaded the returned classifier is permanently unavailable;
// the caller keeps serving and every prediction degrades.
func Load(cfg ONNXConfig) Classifier {
	c, err := NewONNXClassifier(cfg)
	if err != nil {
		slog.Error("failed to load classifier model, predictions are unavailable",
			"model_path", cfg.ModelPath, "error", err)
		return &Unavailable{Reason: err}
	}
	slog.Info("classifier model loaded", "model_path", cfg.ModelPath, "classes", ClassCount)
	return c
}

// Classify runs a single inference. Waiting for the session honours ctx; an
// inference already running cannot be interrupted.
func (c *ONNXClassifier) Classify(ctx context.Context, input *imageprocessing.Tensor) (Classification, error) {
	select {
	case c.slot <- struct{}{}:
	case <-ctx.Done():
		return Classification{}, ctx.Err()
	}
	defer func() { <-c.slot }()

	if c.session == nil {
		return Classification{}, fmt.Errorf("%w: classifier is closed", ErrModelUnavailable)
	}
	if input == nil || len(input.Data) != input.Len() || !slices.Equal(input.ShapeInt64(), c.inputTensor.GetShape()) {
		return Classification{}, fmt.Errorf("unexpected input tensor %v, model expects %v", input, c.inputTensor.GetShape())
	}

	output, err := c.run(input)
	if err != nil {
		return Classification{}, err
	}
	return argmax(output)
}

func (c *ONNXClassifier) run(input *imageprocessing.Tensor) ([]float32, error) {
	copy(c.inputTensor.GetData(), input.Data)
	if err := c.session.Run(); err != nil {
		return nil, fmt.Errorf("%w: inference failed: %v", ErrModelUnavailable, err)
	}
	out := c.outputTensor.GetData()
	result := make([]float32, len(out))
	copy(result, out)
	return result, nil
}

// Close releases the session, its tensors and the runtime environment if
// this classifier initialised it. It waits up to closeTimeout for a running
// inference, which may belong to a request the pipeline already gave up on.
// When that inference does not finish, nothing is released.
func (c *ONNXClassifier) Close() error {
	return c.closeWithin(closeTimeout)
}

func (c *ONNXClassifier) closeWithin(timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case c.slot <- struct{}{}:
	case <-timer.C:
		return fmt.Errorf("inference still running after %s, classifier not released", timeout)
	}
	defer func() { <-c.slot }()

	var firstErr error
	if c.session != nil {
		if err := c.session.Destroy(); err != nil && firstErr == nil {
			firstErr = err
		}
		c.session = nil
	}
	if c.inputTensor != nil {
		if err := c.inputTensor.Destroy(); err != nil && firstErr == nil {
			firstErr = err
		}
		c.inputTensor = nil
	}
	if c.outputTensor != nil {
		if err := c.outputTensor.Destroy(); err != nil && firstErr == nil {
			firstErr = err
		}
		c.outputTensor = nil
	}
	if c.ownsEnv {
		if err := ort.DestroyEnvironment(); err != nil && firstErr == nil {
			firstErr = err
		}
		c.ownsEnv = false
	}
	return firstErr
}
