package inference

import (
	"errors"

	"github.com/Mounith2005/Agro-gaurd/internal/backend/classifier"
	"github.com/Mounith2005/Agro-gaurd/internal/backend/imageprocessing"
	"github.com/Mounith2005/Agro-gaurd/internal/backend/remedy"
)

var (
	ErrNoFileProvided     = errors.New("no file uploaded")
	ErrEmptySelection     = errors.New("no file selected")
	ErrInferenceTimeout   = errors.New("inference timed out")
	ErrStorageUnavailable = errors.New("staging storage unavailable")
)

// Outcome tags how a pipeline run ended.
type Outcome string

const (
	OutcomeSuccess            Outcome = "success"
	OutcomeNoFile             Outcome = "no_file"
	OutcomeEmptySelection     Outcome = "empty_selection"
	OutcomeInvalidImage       Outcome = "invalid_image"
	OutcomeModelUnavailable   Outcome = "model_unavailable"
	OutcomeInferenceTimeout   Outcome = "inference_timeout"
	OutcomeStorageUnavailable Outcome = "storage_unavailable"
)

// Result is the always-present answer of a pipeline run. Label is one of
// classifier.Labels only when Outcome is OutcomeSuccess.
type Result struct {
	Outcome        Outcome         `json:"outcome"`
	StagedFilename string          `json:"filename,omitempty"`
	Label          string          `json:"label"`
	Confidence     float64         `json:"confidence"`
	Advisory       remedy.Advisory `json:"advisory"`
	Message        string          `json:"message,omitempty"`
}

// OK reports whether the run produced a real classification.
func (r Result) OK() bool {
	return r.Outcome == OutcomeSuccess
}

// Err returns the sentinel error matching the outcome, nil on success.
func (r Result) Err() error {
	switch r.Outcome {
	case OutcomeSuccess:
		return nil
	case OutcomeNoFile:
		return ErrNoFileProvided
	case OutcomeEmptySelection:
		return ErrEmptySelection
	case OutcomeInvalidImage:
		return imageprocessing.ErrInvalidImage
	case OutcomeModelUnavailable:
		return classifier.ErrModelUnavailable
	case OutcomeInferenceTimeout:
		return ErrInferenceTimeout
	case OutcomeStorageUnavailable:
		return ErrStorageUnavailable
	}
	return errors.New(string(r.Outcome))
}

// degraded builds a zero-confidence result whose advisory is the degraded one.
func degraded(outcome Outcome, stagedFilename, label string, cause error) Result {
	r := Result{
		Outcome:        outcome,
		StagedFilename: stagedFilename,
		Label:          label,
		Confidence:     0,
		Advisory:       remedy.Resolve(label),
	}
	if cause != nil {
		r.Message = cause.Error()
	}
	return r
}
