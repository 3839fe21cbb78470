package ai

import (
	"errors"
	"math"
	"testing"
)

// newOutput lays rows of [cx, cy, w, h, scores...] out as [attributes, boxes].
func newOutput(rows ...[]float32) Output {
	attrs := len(rows[0])
	data := make([]float32, attrs*len(rows))
	for b, row := range rows {
		for a, v := range row {
			data[a*len(rows)+b] = v
		}
	}
	return Output{Data: data, Attributes: attrs, Boxes: len(rows), ScaleX: 1, ScaleY: 1}
}

func TestDecode_ConfidenceThreshold(t *testing.T) {
	out := newOutput(
		[]float32{100, 100, 20, 20, 0.9, 0.1},
		[]float32{200, 200, 20, 20, 0.2, 0.49},
		[]float32{300, 300, 20, 20, 0.1, 0.5},
	)

	candidates, err := Decode(out, 0.5)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("Expected 2 candidates, got %d", len(candidates))
	}
	for _, c := range candidates {
		if c.Confidence < 0.5 {
			t.Errorf("Candidate below threshold: %+v", c)
		}
	}
	if candidates[0].ClassID != 0 || candidates[1].ClassID != 1 {
		t.Errorf("Unexpected classes %d, %d", candidates[0].ClassID, candidates[1].ClassID)
	}
}

func TestDecode_ScalesToFrame(t *testing.T) {
	out := newOutput([]float32{320, 320, 64, 32, 0.8})
	out.ScaleX, out.ScaleY = 2, 0.75

	candidates, err := Decode(out, 0.5)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	expected := Rect{X1: 576, Y1: 228, X2: 704, Y2: 252}
	if candidates[0].Box != expected {
		t.Errorf("Box = %+v, expected %+v", candidates[0].Box, expected)
	}
}

func TestDecode_BadShape(t *testing.T) {
	tests := []struct {
		name string
		out  Output
	}{
		{"no classes", Output{Data: make([]float32, 8), Attributes: 4, Boxes: 2}},
		{"short data", Output{Data: make([]float32, 5), Attributes: 6, Boxes: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.out, 0.5); !errors.Is(err, ErrInference) {
				t.Errorf("Expected ErrInference, got %v", err)
			}
		})
	}
}

func TestNMS(t *testing.T) {
	candidates := []Candidate{
		{ClassID: 0, Confidence: 0.7, Box: Rect{12, 12, 112, 112}},
		{ClassID: 0, Confidence: 0.9, Box: Rect{10, 10, 110, 110}},
		{ClassID: 1, Confidence: 0.8, Box: Rect{10, 10, 110, 110}},
		{ClassID: 0, Confidence: 0.6, Box: Rect{300, 300, 350, 350}},
	}

	kept := NMS(candidates, 0.45)
	if len(kept) != 3 {
		t.Fatalf("Expected 3 boxes after NMS, got %d: %+v", len(kept), kept)
	}
	if kept[0].Confidence != 0.9 || kept[0].ClassID != 0 {
		t.Errorf("Highest scored box must survive first, got %+v", kept[0])
	}
	for _, k := range kept {
		if k.Confidence == 0.7 {
			t.Error("Overlapping lower scored box of the same class must be suppressed")
		}
	}
}

func TestIoU(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Rect
		expected float64
	}{
		{"identical", Rect{0, 0, 10, 10}, Rect{0, 0, 10, 10}, 1},
		{"disjoint", Rect{0, 0, 10, 10}, Rect{20, 20, 30, 30}, 0},
		{"half", Rect{0, 0, 10, 10}, Rect{5, 0, 15, 10}, 50.0 / 150.0},
		{"degenerate", Rect{0, 0, 0, 10}, Rect{0, 0, 10, 10}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IoU(tt.a, tt.b); math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("IoU = %f, expected %f", got, tt.expected)
			}
		})
	}
}

func TestRect_BBoxClamps(t *testing.T) {
	b := Rect{X1: -10.4, Y1: 20.6, X2: 700, Y2: 100.2}.BBox(640, 480)
	if b.X1 != 0 || b.Y1 != 21 || b.X2 != 640 || b.Y2 != 100 {
		t.Errorf("Unexpected bbox %+v", b)
	}
}
