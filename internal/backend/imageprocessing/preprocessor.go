package imageprocessing

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"

	"github.com/nfnt/resize"
)

// ErrInvalidImage is returned when the upload does not decode as a raster image.
var ErrInvalidImage = errors.New("invalid image")

// DefaultMaxPixels bounds the decoded size of an upload (50 megapixels).
const DefaultMaxPixels = 50_000_000

// Preprocessor turns raw upload bytes into the classifier's input tensor.
type Preprocessor struct {
	width         int
	height        int
	maxPixels     int64
	interpolation resize.InterpolationFunction
}

type Option func(*Preprocessor)

// WithMaxPixels rejects images whose header declares more than n pixels.
// Non-positive values keep DefaultMaxPixels.
func WithMaxPixels(n int64) Option {
	return func(p *Preprocessor) {
		if n > 0 {
			p.maxPixels = n
		}
	}
}

// NewPreprocessor creates a preprocessor for the classifier's fixed input size.
// Nearest-neighbour matches the interpolation the model was trained with; every
// request goes through the same resampler so confidences stay comparable.
func NewPreprocessor(opts ...Option) *Preprocessor {
	p := &Preprocessor{
		width:         TargetWidth,
		height:        TargetHeight,
		maxPixels:     DefaultMaxPixels,
		interpolation: resize.NearestNeighbor,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Preprocess decodes imageData, resizes it to the target resolution, scales each
// 8-bit channel into [0,1] and returns a single-item NHWC batch.
func (p *Preprocessor) Preprocess(imageData []byte) (*Tensor, error) {
	if len(imageData) == 0 {
		return nil, fmt.Errorf("%w: empty upload", ErrInvalidImage)
	}

	img, format, err := decodeImage(imageData, p.width, p.height, p.maxPixels)
	if err != nil {
		slog.Debug("Preprocessor: failed to decode image", "error", err, "input_size_bytes", len(imageData))
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, fmt.Errorf("%w: image has no pixels", ErrInvalidImage)
	}

	slog.Debug("Preprocessor: decoded image",
		"format", format,
		"orig_width", bounds.Dx(),
		"orig_height", bounds.Dy())

	if bounds.Dx() != p.width || bounds.Dy() != p.height {
		img = resize.Resize(uint(p.width), uint(p.height), img, p.interpolation)
	}

	return p.toTensor(img), nil
}

// toTensor copies RGB values into a [1,H,W,3] tensor. Alpha is discarded and the
// stored colour kept, the same way an RGB conversion drops transparency.
func (p *Preprocessor) toTensor(img image.Image) *Tensor {
	tensor := NewTensor(1, p.height, p.width, Channels)
	bounds := img.Bounds()

	parallelFor(p.height, func(y int) {
		row := y * p.width * Channels
		for x := 0; x < p.width; x++ {
			c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			i := row + x*Channels
			tensor.Data[i] = float32(c.R) / 255.0
			tensor.Data[i+1] = float32(c.G) / 255.0
			tensor.Data[i+2] = float32(c.B) / 255.0
		}
	})
	return tensor
}
