package imageprocessing

import "fmt"

const (
	// TargetWidth and TargetHeight are fixed by the classifier's training input.
	TargetWidth  = 225
	TargetHeight = 225
	Channels     = 3
)

// Tensor is a dense float32 batch in NHWC layout.
type Tensor struct {
	Shape [4]int
	Data  []float32
}

// NewTensor allocates a zeroed tensor of the given shape.
func NewTensor(batch, height, width, channels int) *Tensor {
	return &Tensor{
		Shape: [4]int{batch, height, width, channels},
		Data:  make([]float32, batch*height*width*channels),
	}
}

// Len returns the number of elements described by the shape.
func (t *Tensor) Len() int {
	return t.Shape[0] * t.Shape[1] * t.Shape[2] * t.Shape[3]
}

// ShapeInt64 returns the shape in the form expected by inference runtimes.
func (t *Tensor) ShapeInt64() []int64 {
	return []int64{int64(t.Shape[0]), int64(t.Shape[1]), int64(t.Shape[2]), int64(t.Shape[3])}
}

// At returns the value at batch n, row y, column x, channel c.
func (t *Tensor) At(n, y, x, c int) float32 {
	return t.Data[t.offset(n, y, x, c)]
}

func (t *Tensor) offset(n, y, x, c int) int {
	return ((n*t.Shape[1]+y)*t.Shape[2]+x)*t.Shape[3] + c
}

func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor%v", t.Shape)
}
