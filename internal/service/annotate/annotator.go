package annotate

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"trackserver/internal/model"
)

const (
	lineThickness = 2
	fontScale     = 0.5
	fontThickness = 1
	labelPad      = 4
)

var (
	textColor = color.RGBA{R: 255, G: 255, B: 255, A: 0}
	fpsColor  = color.RGBA{R: 0, G: 255, B: 0, A: 0}
)

// Annotator draws detections, track trails and the fps counter onto frames.
type Annotator struct {
	showTrails bool
	showFPS    bool
}

// New creates an annotator.
func New(showTrails, showFPS bool) *Annotator {
	return &Annotator{showTrails: showTrails, showFPS: showFPS}
}

// TrackColor returns a stable colour for a track id.
func TrackColor(trackID int) color.RGBA {
	if trackID < 0 {
		trackID = -trackID
	}
	idx := trackID * 3
	return color.RGBA{R: uint8((29 * idx) % 255), G: uint8((17 * idx) % 255), B: uint8((37 * idx) % 255), A: 0}
}

// LabelText returns the caption drawn above a detection.
func LabelText(d model.Detection) string {
	return fmt.Sprintf("%s %.2f ID:%d", d.ClassLabel, d.Confidence, d.TrackID)
}

// Draw annotates img in place.
func (a *Annotator) Draw(img *gocv.Mat, detections []model.Detection, trails map[int][]image.Point, fps float64) error {
	for _, d := range detections {
		clr := TrackColor(d.TrackID)

		if err := gocv.Rectangle(img, d.BBox.Rect(), clr, lineThickness); err != nil {
			return fmt.Errorf("failed to draw rectangle: %v", err)
		}

		text := LabelText(d)
		size := gocv.GetTextSize(text, gocv.FontHersheySimplex, fontScale, fontThickness)
		top := d.BBox.Y1 - size.Y - 2*labelPad
		if top < 0 {
			top = d.BBox.Y1
		}
		box := image.Rect(d.BBox.X1, top, d.BBox.X1+size.X+2*labelPad, top+size.Y+2*labelPad)
		if err := gocv.Rectangle(img, box, clr, -1); err != nil {
			return fmt.Errorf("failed to draw label box: %v", err)
		}
		pt := image.Pt(box.Min.X+labelPad, box.Max.Y-labelPad)
		if err := gocv.PutText(img, text, pt, gocv.FontHersheySimplex, fontScale, textColor, fontThickness); err != nil {
			return fmt.Errorf("failed to draw text: %v", err)
		}

		if !a.showTrails {
			continue
		}
		trail := trails[d.TrackID]
		for i := 1; i < len(trail); i++ {
			if err := gocv.Line(img, trail[i-1], trail[i], clr, lineThickness); err != nil {
				return fmt.Errorf("failed to draw trail: %v", err)
			}
		}
	}

	if a.showFPS {
		text := fmt.Sprintf("FPS: %.2f", fps)
		if err := gocv.PutText(img, text, image.Pt(10, 30), gocv.FontHersheySimplex, 1, fpsColor, 2); err != nil {
			return fmt.Errorf("failed to draw fps: %v", err)
		}
	}
	return nil
}

// Render draws on a copy of the frame and returns it as JPEG. The frame is not modified.
func (a *Annotator) Render(frame model.Frame, detections []model.Detection, trails map[int][]image.Point, fps float64) ([]byte, error) {
	if frame.Mat == nil || frame.Mat.Empty() {
		return nil, fmt.Errorf("frame has no pixels")
	}

	img := frame.Mat.Clone()
	defer img.Close()

	if err := a.Draw(&img, detections, trails, fps); err != nil {
		return nil, err
	}
	return EncodeJPEG(img)
}

// EncodeJPEG encodes a Mat and copies the bytes out of the native buffer.
func EncodeJPEG(img gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %v", err)
	}
	defer buf.Close()

	data := make([]byte, len(buf.GetBytes()))
	copy(data, buf.GetBytes())
	return data, nil
}

// BlankJPEG returns a black width x height JPEG, shown before the first frame.
func BlankJPEG(width, height int) ([]byte, error) {
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), height, width, gocv.MatTypeCV8UC3)
	defer img.Close()
	return EncodeJPEG(img)
}
