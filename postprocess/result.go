// Package postprocess provides Non-Maximum Suppression over decoded
// detection candidates.
package postprocess

import "github.com/nvr-ai/go-dnn/images"

// Candidate is a single decoded detection, prior to suppression.
type Candidate struct {
	// The predicted class index.
	Class int
	// The confidence score of the detection.
	Score float32
	// The bounding box in pixel coordinates.
	Box images.Rect
}
