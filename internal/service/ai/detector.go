package ai

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"gocv.io/x/gocv"

	"trackserver/internal/config"
	"trackserver/internal/logger"
	"trackserver/internal/model"
)

var (
	// ErrModelLoad is returned when the detection model cannot be loaded. Fatal at startup.
	ErrModelLoad = errors.New("model load failed")
	// ErrInference is returned when a single frame cannot be processed.
	ErrInference = errors.New("inference failed")
)

// Inferencer runs the detection model on one frame.
type Inferencer interface {
	Infer(frame model.Frame) (Output, error)
	Close() error
}

// Network runs a YOLO v8/v11 ONNX model through the OpenCV DNN module.
type Network struct {
	net       gocv.Net
	inputSize int
	mu        sync.Mutex
}

// NewNetwork loads the ONNX model at modelPath.
func NewNetwork(modelPath string, inputSize int) (*Network, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("%w: model file not found: %s", ErrModelLoad, modelPath)
	}

	net := gocv.ReadNetFromONNX(modelPath)
	if net.Empty() {
		return nil, fmt.Errorf("%w: failed to load network from %s", ErrModelLoad, modelPath)
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if err := multierr.Combine(errBackend, errTarget); err != nil {
		net.Close()
		return nil, fmt.Errorf("%w: failed to set preferable backend or target: %v", ErrModelLoad, err)
	}

	if inputSize <= 0 {
		inputSize = 640
	}
	return &Network{net: net, inputSize: inputSize}, nil
}

// Infer resizes the frame to the model input and returns the raw output tensor.
func (n *Network) Infer(frame model.Frame) (Output, error) {
	if frame.Mat == nil || frame.Mat.Empty() {
		return Output{}, fmt.Errorf("%w: frame is empty", ErrInference)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	blob := gocv.BlobFromImage(*frame.Mat, 1.0/255.0, image.Pt(n.inputSize, n.inputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	n.net.SetInput(blob, "")
	output := n.net.Forward("")
	defer output.Close()

	dims := output.Size()
	if len(dims) != 3 {
		return Output{}, fmt.Errorf("%w: unexpected output dims %v", ErrInference, dims)
	}

	data, err := output.DataPtrFloat32()
	if err != nil {
		return Output{}, fmt.Errorf("%w: %v", ErrInference, err)
	}
	values := make([]float32, len(data))
	copy(values, data)

	return Output{
		Data:       values,
		Attributes: dims[1],
		Boxes:      dims[2],
		ScaleX:     float64(frame.Width) / float64(n.inputSize),
		ScaleY:     float64(frame.Height) / float64(n.inputSize),
	}, nil
}

// Close releases the network.
func (n *Network) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.net.Close()
}

// DetectorService combines the detection model with the tracker.
type DetectorService struct {
	inferencer Inferencer
	classNames []string
	tracker    *Tracker
	clock      clock.Clock
	logger     logger.Interface
}

// NewDetectorService loads the configured model and class names.
func NewDetectorService(cfg *config.Config, log logger.Interface) (*DetectorService, error) {
	names, err := LoadClassNames(cfg.ClassNamesPath)
	if err != nil {
		return nil, err
	}

	network, err := NewNetwork(cfg.ModelPath, cfg.ModelInputSize)
	if err != nil {
		return nil, err
	}

	log.Info("Detection network initialized from %s with %d classes", cfg.ModelPath, len(names))
	return NewDetectorServiceWith(network, names, NewTracker(cfg.TrackBuffer), clock.New(), log), nil
}

// NewDetectorServiceWith assembles a detector service from its parts.
func NewDetectorServiceWith(inferencer Inferencer, classNames []string, tracker *Tracker, clk clock.Clock, log logger.Interface) *DetectorService {
	if clk == nil {
		clk = clock.New()
	}
	return &DetectorService{
		inferencer: inferencer,
		classNames: classNames,
		tracker:    tracker,
		clock:      clk,
		logger:     log,
	}
}

// DetectAndTrack returns the tracked detections in the frame. Every returned
// detection has confidence at least confThreshold. Inference failures are
// logged and yield no detections.
func (s *DetectorService) DetectAndTrack(frame model.Frame, confThreshold, iouThreshold float64) []model.Detection {
	var candidates []Candidate

	output, err := s.inferencer.Infer(frame)
	if err == nil {
		candidates, err = Decode(output, confThreshold)
	}
	if err != nil {
		s.logger.Error("Detection failed: %v", err)
		s.tracker.Update(nil)
		return nil
	}

	tracked := s.tracker.Update(NMS(candidates, iouThreshold))

	now := s.clock.Now()
	detections := make([]model.Detection, 0, len(tracked))
	for _, t := range tracked {
		bbox := t.Box.BBox(frame.Width, frame.Height)
		if bbox.Width() <= 0 || bbox.Height() <= 0 {
			continue
		}
		detections = append(detections, model.Detection{
			ClassID:    t.ClassID,
			ClassLabel: className(s.classNames, t.ClassID),
			Confidence: t.Confidence,
			BBox:       bbox,
			TrackID:    t.TrackID,
			Timestamp:  now,
		})
	}
	return detections
}

// Trails returns the center history of the live tracks, keyed by track id.
func (s *DetectorService) Trails() map[int][]image.Point {
	return s.tracker.Trails()
}

// Reset clears the tracker state for a new session.
func (s *DetectorService) Reset() {
	s.tracker.Reset()
}

// Close releases the model.
func (s *DetectorService) Close() error {
	return s.inferencer.Close()
}
