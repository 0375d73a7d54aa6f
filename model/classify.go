package model

import (
	"image"

	"github.com/pkg/errors"
)

// ClassificationModel runs a classification network and reports the top
// class of its single score tensor.
type ClassificationModel struct {
	*Model
}

// NewClassificationModel wraps net for classification.
func NewClassificationModel(net Network) *ClassificationModel {
	return &ClassificationModel{Model: NewModel(net)}
}

// Classify returns the index and score of the highest-scoring class. Ties go
// to the first occurrence in flattened order.
func (m *ClassificationModel) Classify(frame image.Image) (int, float32, error) {
	outs, err := m.predict(frame)
	if err != nil {
		return 0, 0, err
	}
	if len(outs) != 1 {
		return 0, 0, errors.Wrapf(ErrOutputShape, "classify: want 1 output tensor, got %d", len(outs))
	}

	scores := outs[0].Data().([]float32)
	if len(scores) == 0 {
		return 0, 0, errors.Wrap(ErrOutputShape, "classify: empty score tensor")
	}

	best := 0
	for i, s := range scores {
		if s > scores[best] {
			best = i
		}
	}
	return best, scores[best], nil
}
