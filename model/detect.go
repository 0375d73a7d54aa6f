package model

import (
	"image"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-dnn/images"
	"github.com/nvr-ai/go-dnn/postprocess"
)

// Terminal layer types with a known detection decode convention.
const (
	layerDetectionOutput = "DetectionOutput"
	layerRegion          = "Region"
)

type decodeFunc func(outs []*tensor.Dense, frameW, frameH int, confThreshold float32) []postprocess.Candidate

// DetectionModel decodes object detections from one of the two known output
// conventions. The convention is resolved once at construction from the
// network's terminal layer type; each variant carries its own decode
// function, so no per-call string comparison happens.
type DetectionModel struct {
	*Model
	decode decodeFunc
	// Region-style grids emit raw candidates that still need suppression;
	// DetectionOutput networks suppress duplicates internally.
	needsNMS      bool
	acrossClasses bool
}

// NewDetectionModel wraps net for detection. It fails with
// ErrUnsupportedLayer when the terminal layer type is neither
// "DetectionOutput" nor "Region".
func NewDetectionModel(net Network) (*DetectionModel, error) {
	d := &DetectionModel{Model: NewModel(net)}
	switch t := net.TerminalLayerType(); t {
	case layerDetectionOutput:
		d.decode = decodeFixedRecord
	case layerRegion:
		d.decode = decodeGrid
		d.needsNMS = true
	default:
		return nil, errors.Wrapf(ErrUnsupportedLayer, "detect: unknown output layer type %q", t)
	}
	return d, nil
}

// SetNMSAcrossClasses switches suppression between per-class (the default)
// and cross-class mode.
func (d *DetectionModel) SetNMSAcrossClasses(across bool) *DetectionModel {
	d.acrossClasses = across
	return d
}

// NMSAcrossClasses reports the configured suppression mode.
func (d *DetectionModel) NMSAcrossClasses() bool {
	return d.acrossClasses
}

// Detect runs the network on frame and returns the surviving detections as
// parallel class/confidence/box slices.
//
// Candidates below confThreshold are dropped during decode. For grid-layout
// networks a nonzero nmsThreshold additionally applies Non-Maximum
// Suppression in the configured mode; a zero nmsThreshold returns every
// surviving candidate unsuppressed.
func (d *DetectionModel) Detect(frame image.Image, confThreshold, nmsThreshold float32) ([]int, []float32, []images.Rect, error) {
	outs, err := d.predict(frame)
	if err != nil {
		return nil, nil, nil, err
	}

	frameW := frame.Bounds().Dx()
	frameH := frame.Bounds().Dy()
	if d.net.HasInput(imInfoName) {
		// Two-stage networks emit boxes in the coordinate space of the
		// resized input, not of the original frame.
		frameW = d.params.Size.X
		frameH = d.params.Size.Y
	}

	cands := d.decode(outs, frameW, frameH, confThreshold)
	if d.needsNMS && nmsThreshold != 0 {
		cands = postprocess.Suppress(cands, confThreshold, nmsThreshold, d.acrossClasses)
	}

	classIDs := make([]int, len(cands))
	confidences := make([]float32, len(cands))
	boxes := make([]images.Rect, len(cands))
	for i, c := range cands {
		classIDs[i] = c.Class
		confidences[i] = c.Score
		boxes[i] = c.Box
	}
	return classIDs, confidences, boxes, nil
}

// decodeFixedRecord interprets every output tensor as a flat sequence of
// 7-float records [batchId, classId, confidence, left, top, right, bottom].
//
// Exporters disagree on whether the four coordinates are absolute pixels or
// normalized to [0,1]; a raw box bigger than 2x2 pixels is taken as already
// absolute, anything smaller is re-read as normalized.
func decodeFixedRecord(outs []*tensor.Dense, frameW, frameH int, confThreshold float32) []postprocess.Candidate {
	var cands []postprocess.Candidate
	for _, out := range outs {
		data := out.Data().([]float32)
		for j := 0; j+7 <= len(data); j += 7 {
			conf := data[j+2]
			if conf < confThreshold {
				continue
			}

			left := int(data[j+3])
			top := int(data[j+4])
			right := int(data[j+5])
			bottom := int(data[j+6])
			width := right - left + 1
			height := bottom - top + 1

			if width <= 2 || height <= 2 {
				left = int(data[j+3] * float32(frameW))
				top = int(data[j+4] * float32(frameH))
				right = int(data[j+5] * float32(frameW))
				bottom = int(data[j+6] * float32(frameH))
				width = right - left + 1
				height = bottom - top + 1
			}

			cands = append(cands, postprocess.Candidate{
				Class: int(data[j+1]),
				Score: conf,
				Box:   clampBox(left, top, width, height, frameW, frameH),
			})
		}
	}
	return cands
}

// decodeGrid interprets every output tensor as a matrix whose rows hold
// [centerX, centerY, width, height, objectness, classScore...], all
// normalized to [0,1]. The class scores start at column 5; the objectness
// slot in column 4 is not consulted.
func decodeGrid(outs []*tensor.Dense, frameW, frameH int, confThreshold float32) []postprocess.Candidate {
	var cands []postprocess.Candidate
	for _, out := range outs {
		shape := out.Shape()
		cols := shape[len(shape)-1]
		if cols <= 5 {
			continue
		}
		rows := shape.TotalSize() / cols
		data := out.Data().([]float32)

		for r := 0; r < rows; r++ {
			row := data[r*cols : (r+1)*cols]

			classID := 0
			conf := row[5]
			for c := 6; c < cols; c++ {
				if row[c] > conf {
					conf = row[c]
					classID = c - 5
				}
			}
			if conf < confThreshold {
				continue
			}

			width := int(row[2] * float32(frameW))
			height := int(row[3] * float32(frameH))
			left := int(row[0]*float32(frameW)) - width/2
			top := int(row[1]*float32(frameH)) - height/2

			cands = append(cands, postprocess.Candidate{
				Class: classID,
				Score: conf,
				Box:   clampBox(left, top, width, height, frameW, frameH),
			})
		}
	}
	return cands
}

// clampBox keeps the origin inside the frame and the extent at least one
// pixel without crossing the frame edge.
func clampBox(left, top, width, height, frameW, frameH int) images.Rect {
	left = max(0, min(left, frameW-1))
	top = max(0, min(top, frameH-1))
	width = max(1, min(width, frameW-left))
	height = max(1, min(height, frameH-top))
	return images.Rect{X: left, Y: top, Width: width, Height: height}
}
