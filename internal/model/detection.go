package model

import (
	"fmt"
	"image"
	"time"
)

// BBox is a bounding box in pixel coordinates, (X1,Y1) top-left and (X2,Y2) bottom-right.
type BBox struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Width of the box in pixels.
func (b BBox) Width() int { return b.X2 - b.X1 }

// Height of the box in pixels.
func (b BBox) Height() int { return b.Y2 - b.Y1 }

// Center returns the integer center point.
func (b BBox) Center() image.Point {
	return image.Pt((b.X1+b.X2)/2, (b.Y1+b.Y2)/2)
}

// Rect converts the box to an image.Rectangle.
func (b BBox) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

// Clamp limits the box to a width x height frame.
func (b BBox) Clamp(width, height int) BBox {
	return BBox{
		X1: clampInt(b.X1, 0, width),
		Y1: clampInt(b.Y1, 0, height),
		X2: clampInt(b.X2, 0, width),
		Y2: clampInt(b.Y2, 0, height),
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Detection is one tracked object observed in one frame. It is never mutated after creation.
type Detection struct {
	ClassID    int       `json:"class_id"`
	ClassLabel string    `json:"class"`
	Confidence float64   `json:"confidence"`
	BBox       BBox      `json:"bbox"`
	TrackID    int       `json:"track_id"`
	Timestamp  time.Time `json:"timestamp"`
}

// Key returns the identity key used for deduplication.
func (d Detection) Key() IdentityKey {
	return IdentityKey{ClassLabel: d.ClassLabel, TrackID: d.TrackID}
}

// IdentityKey identifies one physical object within a tracking session.
type IdentityKey struct {
	ClassLabel string
	TrackID    int
}

func (k IdentityKey) String() string {
	return fmt.Sprintf("%s_%d", k.ClassLabel, k.TrackID)
}
