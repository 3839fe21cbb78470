package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"trackserver/internal/model"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "person_7_1700000000.txt"), "0 0.234375 0.208333 0.156250 0.208333\n")
	writeFile(t, filepath.Join(root, "person_7_1700000000.jpg"), "jpeg")
	writeFile(t, filepath.Join(root, "traffic_light_3_1700000100.txt"), "9 0.5 0.5 0.25 0.25\n")
	writeFile(t, filepath.Join(root, "broken.txt"), "0 0.5 0.5 0.1 0.1\n")
	writeFile(t, filepath.Join(root, "car_1_1700000200.txt"), "not a label\n")
	writeFile(t, filepath.Join(root, "notes.md"), "ignored")

	sizes := map[string]bool{
		filepath.Join(root, "person_7_1700000000.jpg"):        true,
		filepath.Join(root, "traffic_light_3_1700000100.jpg"): true,
	}
	sizeOf := func(path string) (int, int, error) {
		if !sizes[path] {
			return 0, 0, errors.New("missing image")
		}
		return 640, 480, nil
	}

	result, err := Scan(root, sizeOf)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(result.Sightings) != 2 {
		t.Fatalf("Expected 2 sightings, got %d (skipped %v)", len(result.Sightings), result.Skipped)
	}
	if len(result.Skipped) != 2 {
		t.Errorf("Expected 2 skipped files, got %v", result.Skipped)
	}

	byClass := map[string]model.Sighting{}
	for _, s := range result.Sightings {
		byClass[s.ClassLabel] = s
	}

	person := byClass["person"]
	if person.TrackID != 7 || person.ClassID != 0 || person.Timestamp.Unix() != 1700000000 || person.SessionID != ImportedSession {
		t.Errorf("Unexpected person sighting %+v", person)
	}
	if expected := (model.BBox{X1: 100, Y1: 50, X2: 200, Y2: 150}); person.BBox != expected {
		t.Errorf("BBox = %+v, expected %+v", person.BBox, expected)
	}
	if person.ImagePath != filepath.Join(root, "person_7_1700000000.jpg") || person.FrameWidth != 640 {
		t.Errorf("Unexpected paths or size %+v", person)
	}

	light, ok := byClass["traffic_light"]
	if !ok || light.ClassID != 9 || light.TrackID != 3 {
		t.Errorf("Unexpected traffic light sighting %+v", light)
	}
}

func TestScan_MissingRoot(t *testing.T) {
	if _, err := Scan(filepath.Join(t.TempDir(), "missing"), nil); err == nil {
		t.Error("Expected error for a missing storage root")
	}
}
