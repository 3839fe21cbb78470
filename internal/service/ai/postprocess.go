package ai

import (
	"fmt"
	"math"
	"sort"

	"trackserver/internal/model"
)

// Output is the raw tensor produced by a YOLO v8/v11 head, laid out as
// [4+classes, boxes] in row-major order. Box coordinates are in model input pixels.
type Output struct {
	Data       []float32
	Attributes int
	Boxes      int
	ScaleX     float64
	ScaleY     float64
}

// Candidate is a detection before tracking, in frame pixel coordinates.
type Candidate struct {
	ClassID    int
	Confidence float64
	Box        Rect
}

// Rect is a float box, (X1,Y1) top-left and (X2,Y2) bottom-right.
type Rect struct {
	X1, Y1, X2, Y2 float64
}

func (r Rect) area() float64 {
	w, h := r.X2-r.X1, r.Y2-r.Y1
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// BBox rounds the rect to pixels and clamps it to a width x height frame.
func (r Rect) BBox(width, height int) model.BBox {
	return model.BBox{
		X1: int(math.Round(r.X1)),
		Y1: int(math.Round(r.Y1)),
		X2: int(math.Round(r.X2)),
		Y2: int(math.Round(r.Y2)),
	}.Clamp(width, height)
}

// IoU returns the intersection over union of two rects.
func IoU(a, b Rect) float64 {
	inter := Rect{
		X1: math.Max(a.X1, b.X1),
		Y1: math.Max(a.Y1, b.Y1),
		X2: math.Min(a.X2, b.X2),
		Y2: math.Min(a.Y2, b.Y2),
	}.area()
	if inter == 0 {
		return 0
	}
	union := a.area() + b.area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Decode converts a raw output into candidates whose best class score is at least
// confThreshold. Boxes are scaled into frame coordinates.
func Decode(out Output, confThreshold float64) ([]Candidate, error) {
	if out.Attributes <= 4 || out.Boxes <= 0 {
		return nil, fmt.Errorf("%w: unexpected output shape [%d, %d]", ErrInference, out.Attributes, out.Boxes)
	}
	if len(out.Data) < out.Attributes*out.Boxes {
		return nil, fmt.Errorf("%w: output has %d values, expected %d", ErrInference, len(out.Data), out.Attributes*out.Boxes)
	}

	scaleX, scaleY := out.ScaleX, out.ScaleY
	if scaleX == 0 {
		scaleX = 1
	}
	if scaleY == 0 {
		scaleY = 1
	}

	n := out.Boxes
	at := func(attr, box int) float64 { return float64(out.Data[attr*n+box]) }

	var candidates []Candidate
	for i := 0; i < n; i++ {
		classID, best := -1, -1.0
		for c := 4; c < out.Attributes; c++ {
			if score := at(c, i); score > best {
				best = score
				classID = c - 4
			}
		}
		if best < confThreshold {
			continue
		}

		cx, cy, w, h := at(0, i), at(1, i), at(2, i), at(3, i)
		candidates = append(candidates, Candidate{
			ClassID:    classID,
			Confidence: best,
			Box: Rect{
				X1: (cx - w/2) * scaleX,
				Y1: (cy - h/2) * scaleY,
				X2: (cx + w/2) * scaleX,
				Y2: (cy + h/2) * scaleY,
			},
		})
	}
	return candidates, nil
}

// NMS performs class-wise greedy non-maximum suppression. Boxes of the same class
// overlapping a higher scored box by more than iouThreshold are dropped.
func NMS(candidates []Candidate, iouThreshold float64) []Candidate {
	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	kept := make([]Candidate, 0, len(sorted))
	for _, c := range sorted {
		suppressed := false
		for _, k := range kept {
			if k.ClassID == c.ClassID && IoU(k.Box, c.Box) > iouThreshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, c)
		}
	}
	return kept
}
