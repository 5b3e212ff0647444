package classifier

import "fmt"

// Labels lists the classes in the order the model was trained with. The
// order is part of the model artifact's contract and must not be changed.
var Labels = [...]string{
	"Tomato__Bacterial_spot",
	"Tomato__Early_blight",
	"Tomato__Late_blight",
	"Tomato__Leaf_Mold",
	"Tomato__Septoria_leaf_spot",
	"Tomato__Spider_mites_Two_spotted_spider_mite",
	"Tomato__Target_Spot",
	"Tomato__Tomato_YellowLeaf__Curl_Virus",
	"Tomato_healthy",
}

// ClassCount is the length of the model's probability vector.
const ClassCount = len(Labels)

const (
	// UnavailableLabel is reported when no usable model is loaded.
	UnavailableLabel = "unavailable"
	// TimeoutLabel is reported when inference does not finish in time.
	TimeoutLabel = "timeout"
)

// LabelAt maps a model output index to its label.
func LabelAt(index int) (string, error) {
	if index < 0 || index >= ClassCount {
		return "", fmt.Errorf("label index %d out of range [0, %d)", index, ClassCount)
	}
	return Labels[index], nil
}
