package storage

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gocv.io/x/gocv"

	"trackserver/internal/model"
)

// ImportedSession is the session id given to sightings imported from disk.
const ImportedSession = "imported"

// SizeFunc returns the pixel size of an image file.
type SizeFunc func(path string) (width, height int, err error)

// ImageSize reads an image with gocv and returns its size.
func ImageSize(path string) (int, int, error) {
	img := gocv.IMRead(path, gocv.IMReadUnchanged)
	defer img.Close()
	if img.Empty() {
		return 0, 0, fmt.Errorf("cannot read image %s", path)
	}
	return img.Cols(), img.Rows(), nil
}

// ScanResult lists the sightings found in a storage root and the files that were skipped.
type ScanResult struct {
	Sightings []model.Sighting
	Skipped   map[string]error
}

// Scan rebuilds sightings from the label and image pairs under root. Class names
// come from the file names; the label line provides the class id and box.
func Scan(root string, sizeOf SizeFunc) (*ScanResult, error) {
	if sizeOf == nil {
		sizeOf = ImageSize
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read storage directory: %w", err)
	}

	result := &ScanResult{Skipped: make(map[string]error)}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".txt" {
			continue
		}

		sighting, err := scanLabel(root, entry.Name(), sizeOf)
		if err != nil {
			result.Skipped[entry.Name()] = err
			continue
		}
		result.Sightings = append(result.Sightings, sighting)
	}
	return result, nil
}

func scanLabel(root, name string, sizeOf SizeFunc) (model.Sighting, error) {
	parsed, err := ParseFilename(name)
	if err != nil {
		return model.Sighting{}, err
	}

	labelPath := filepath.Join(root, name)
	line, err := firstLine(labelPath)
	if err != nil {
		return model.Sighting{}, err
	}
	label, err := ParseLabel(line)
	if err != nil {
		return model.Sighting{}, fmt.Errorf("invalid label in %s: %w", name, err)
	}

	imagePath := strings.TrimSuffix(labelPath, ".txt") + ".jpg"
	width, height, err := sizeOf(imagePath)
	if err != nil {
		return model.Sighting{}, err
	}

	return model.Sighting{
		SessionID:   ImportedSession,
		ClassID:     label.ClassID,
		ClassLabel:  parsed.ClassLabel,
		TrackID:     parsed.TrackID,
		BBox:        label.BBox(width, height),
		FrameWidth:  width,
		FrameHeight: height,
		ImagePath:   imagePath,
		LabelPath:   labelPath,
		Timestamp:   parsed.Timestamp,
	}, nil
}

func firstLine(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("empty label file %s", path)
	}
	return scanner.Text(), nil
}
