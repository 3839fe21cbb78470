package model

import "testing"

func TestIdentityKey_String(t *testing.T) {
	d := Detection{ClassLabel: "person", TrackID: 7}
	if got := d.Key().String(); got != "person_7" {
		t.Errorf("Key().String() = %q, expected person_7", got)
	}
	if d.Key() != (IdentityKey{ClassLabel: "person", TrackID: 7}) {
		t.Error("Keys built from the same class and track id must be equal")
	}
}

func TestBBox_Clamp(t *testing.T) {
	tests := []struct {
		name     string
		in       BBox
		expected BBox
	}{
		{"inside", BBox{10, 20, 30, 40}, BBox{10, 20, 30, 40}},
		{"negative", BBox{-5, -1, 30, 40}, BBox{0, 0, 30, 40}},
		{"overflow", BBox{600, 400, 700, 500}, BBox{600, 400, 640, 480}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Clamp(640, 480); got != tt.expected {
				t.Errorf("Clamp(%v) = %v, expected %v", tt.in, got, tt.expected)
			}
		})
	}
}

func TestBBox_Geometry(t *testing.T) {
	b := BBox{X1: 100, Y1: 50, X2: 200, Y2: 150}
	if b.Width() != 100 || b.Height() != 100 {
		t.Errorf("Unexpected size %dx%d", b.Width(), b.Height())
	}
	if c := b.Center(); c.X != 150 || c.Y != 100 {
		t.Errorf("Unexpected center %v", c)
	}
}

func TestStreamState_Active(t *testing.T) {
	if !StateRunning.Active() || !StateReconnecting.Active() {
		t.Error("running and reconnecting must be active")
	}
	if StateStopped.Active() {
		t.Error("stopped must not be active")
	}
}
