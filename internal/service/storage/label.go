package storage

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"trackserver/internal/model"
)

// Label is one YOLO annotation: class id and a box normalized to [0,1].
type Label struct {
	ClassID int
	XCenter float64
	YCenter float64
	Width   float64
	Height  float64
}

// NewLabel normalizes a pixel bbox against a width x height frame. The box is
// clamped to the frame first.
func NewLabel(classID int, bbox model.BBox, width, height int) (Label, error) {
	if width <= 0 || height <= 0 {
		return Label{}, fmt.Errorf("invalid frame size %dx%d", width, height)
	}

	b := bbox.Clamp(width, height)
	w, h := float64(width), float64(height)
	return Label{
		ClassID: classID,
		XCenter: float64(b.X1+b.X2) / 2 / w,
		YCenter: float64(b.Y1+b.Y2) / 2 / h,
		Width:   float64(b.Width()) / w,
		Height:  float64(b.Height()) / h,
	}, nil
}

// String formats the label as "<class_id> <x_center> <y_center> <width> <height>".
func (l Label) String() string {
	return fmt.Sprintf("%d %.6f %.6f %.6f %.6f", l.ClassID, l.XCenter, l.YCenter, l.Width, l.Height)
}

// BBox converts the label back to pixels on a width x height frame.
func (l Label) BBox(width, height int) model.BBox {
	w, h := float64(width), float64(height)
	return model.BBox{
		X1: int(math.Round((l.XCenter - l.Width/2) * w)),
		Y1: int(math.Round((l.YCenter - l.Height/2) * h)),
		X2: int(math.Round((l.XCenter + l.Width/2) * w)),
		Y2: int(math.Round((l.YCenter + l.Height/2) * h)),
	}
}

// ParseLabel parses a single YOLO label line.
func ParseLabel(line string) (Label, error) {
	fields := strings.Fields(line)
	if len(fields) != 5 {
		return Label{}, fmt.Errorf("expected 5 fields, got %d", len(fields))
	}

	classID, err := strconv.Atoi(fields[0])
	if err != nil {
		return Label{}, fmt.Errorf("invalid class id %q: %w", fields[0], err)
	}

	var values [4]float64
	for i, f := range fields[1:] {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Label{}, fmt.Errorf("invalid value %q: %w", f, err)
		}
		if v < 0 || v > 1 {
			return Label{}, fmt.Errorf("value %q is not normalized", f)
		}
		values[i] = v
	}

	return Label{
		ClassID: classID,
		XCenter: values[0],
		YCenter: values[1],
		Width:   values[2],
		Height:  values[3],
	}, nil
}

// SanitizeLabel makes a class label safe for use in a filename.
func SanitizeLabel(label string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '/' || r == '\\' || r == filepath.Separator {
			return '-'
		}
		return r
	}, label)
}

// BaseName returns "<class>_<track>_<unix>" for a detection.
func BaseName(key model.IdentityKey, ts time.Time) string {
	return fmt.Sprintf("%s_%d_%d", SanitizeLabel(key.ClassLabel), key.TrackID, ts.Unix())
}

// ParsedName holds the parts of a persisted file name.
type ParsedName struct {
	ClassLabel string
	TrackID    int
	Timestamp  time.Time
}

// ParseFilename parses "<class>_<track>_<unix>.<ext>". Class labels may contain underscores.
func ParseFilename(name string) (ParsedName, error) {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))

	parts := strings.Split(base, "_")
	if len(parts) < 3 {
		return ParsedName{}, fmt.Errorf("invalid filename format: %s", name)
	}

	n := len(parts)
	unix, err := strconv.ParseInt(parts[n-1], 10, 64)
	if err != nil {
		return ParsedName{}, fmt.Errorf("invalid timestamp in %s: %w", name, err)
	}
	trackID, err := strconv.Atoi(parts[n-2])
	if err != nil {
		return ParsedName{}, fmt.Errorf("invalid track id in %s: %w", name, err)
	}
	class := strings.Join(parts[:n-2], "_")
	if class == "" {
		return ParsedName{}, fmt.Errorf("missing class in %s", name)
	}

	return ParsedName{ClassLabel: class, TrackID: trackID, Timestamp: time.Unix(unix, 0)}, nil
}
