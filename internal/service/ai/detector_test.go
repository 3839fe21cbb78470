package ai

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"trackserver/internal/logger"
	"trackserver/internal/model"
)

type fakeInferencer struct {
	outputs []Output
	err     error
	calls   int
	closed  bool
}

func (f *fakeInferencer) Infer(frame model.Frame) (Output, error) {
	f.calls++
	if f.err != nil {
		return Output{}, f.err
	}
	out := f.outputs[0]
	if len(f.outputs) > 1 {
		f.outputs = f.outputs[1:]
	}
	return out, nil
}

func (f *fakeInferencer) Close() error {
	f.closed = true
	return nil
}

func newTestService(inf Inferencer) (*DetectorService, *clock.Mock) {
	clk := clock.NewMock()
	clk.Set(time.Unix(1700000000, 0))
	return NewDetectorServiceWith(inf, []string{"person", "car"}, NewTracker(DefaultTrackBuffer), clk, logger.Discard()), clk
}

func TestDetectAndTrack(t *testing.T) {
	inf := &fakeInferencer{outputs: []Output{newOutput(
		[]float32{150, 100, 100, 100, 0.9, 0.0},
		[]float32{152, 102, 100, 100, 0.8, 0.0},
		[]float32{500, 400, 80, 60, 0.1, 0.6},
		[]float32{50, 50, 10, 10, 0.3, 0.3},
	)}}
	svc, clk := newTestService(inf)
	frame := model.Frame{Width: 640, Height: 480}

	detections := svc.DetectAndTrack(frame, 0.5, 0.45)
	if len(detections) != 2 {
		t.Fatalf("Expected 2 detections, got %d: %+v", len(detections), detections)
	}

	person, car := detections[0], detections[1]
	if person.ClassLabel != "person" || person.ClassID != 0 || person.Confidence != float64(float32(0.9)) {
		t.Errorf("Unexpected person detection %+v", person)
	}
	if person.BBox != (model.BBox{X1: 100, Y1: 50, X2: 200, Y2: 150}) {
		t.Errorf("Unexpected person bbox %+v", person.BBox)
	}
	if car.ClassLabel != "car" || car.ClassID != 1 {
		t.Errorf("Unexpected car detection %+v", car)
	}
	if person.TrackID == car.TrackID {
		t.Error("Distinct objects must have distinct track ids")
	}
	for _, d := range detections {
		if d.Confidence < 0.5 {
			t.Errorf("Detection below threshold: %+v", d)
		}
		if !d.Timestamp.Equal(clk.Now()) {
			t.Errorf("Timestamp = %v, expected %v", d.Timestamp, clk.Now())
		}
	}

	again := svc.DetectAndTrack(frame, 0.5, 0.45)
	if len(again) != 2 || again[0].TrackID != person.TrackID || again[1].TrackID != car.TrackID {
		t.Errorf("Track ids must be stable across frames: %+v", again)
	}
	if len(svc.Trails()[person.TrackID]) != 2 {
		t.Errorf("Expected 2 trail points for track %d", person.TrackID)
	}
}

func TestDetectAndTrack_InferenceFailure(t *testing.T) {
	inf := &fakeInferencer{err: ErrInference}
	svc, _ := newTestService(inf)

	if detections := svc.DetectAndTrack(model.Frame{Width: 640, Height: 480}, 0.5, 0.45); len(detections) != 0 {
		t.Errorf("Expected no detections, got %+v", detections)
	}
	if inf.calls != 1 {
		t.Errorf("Expected 1 inference call, got %d", inf.calls)
	}
}

func TestDetectorService_ResetAndClose(t *testing.T) {
	inf := &fakeInferencer{outputs: []Output{newOutput([]float32{100, 100, 50, 50, 0.9, 0.0})}}
	svc, _ := newTestService(inf)
	frame := model.Frame{Width: 640, Height: 480}

	svc.DetectAndTrack(frame, 0.5, 0.45)
	svc.DetectAndTrack(frame, 0.5, 0.45)
	svc.Reset()
	if d := svc.DetectAndTrack(frame, 0.5, 0.45); len(d) != 1 || d[0].TrackID != 1 {
		t.Errorf("Expected track id 1 after reset, got %+v", d)
	}

	if err := svc.Close(); err != nil || !inf.closed {
		t.Errorf("Close must release the inferencer, err=%v", err)
	}
}

func TestLoadClassNames(t *testing.T) {
	names, err := LoadClassNames("")
	if err != nil || len(names) != 80 || names[0] != "person" {
		t.Fatalf("Expected COCO defaults, got %d names, err=%v", len(names), err)
	}

	path := filepath.Join(t.TempDir(), "classes.txt")
	if err := os.WriteFile(path, []byte("metal\n\nglass\n plastic \n"), 0644); err != nil {
		t.Fatalf("Failed to write names file: %v", err)
	}
	names, err = LoadClassNames(path)
	if err != nil {
		t.Fatalf("LoadClassNames failed: %v", err)
	}
	if len(names) != 3 || names[2] != "plastic" {
		t.Errorf("Unexpected names %q", names)
	}
	if got := className(names, 7); got != "class7" {
		t.Errorf("className out of range = %q", got)
	}

	empty := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(empty, nil, 0644); err != nil {
		t.Fatalf("Failed to write names file: %v", err)
	}
	if _, err := LoadClassNames(empty); !errors.Is(err, ErrModelLoad) {
		t.Errorf("Expected ErrModelLoad for empty file, got %v", err)
	}
}

func TestNewNetwork_MissingModel(t *testing.T) {
	_, err := NewNetwork(filepath.Join(t.TempDir(), "missing.onnx"), 640)
	if !errors.Is(err, ErrModelLoad) {
		t.Errorf("Expected ErrModelLoad, got %v", err)
	}
}
