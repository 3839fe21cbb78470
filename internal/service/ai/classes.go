package ai

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// cocoClasses is used when no class names file is configured.
var cocoClasses = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat",
	"dog", "horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack",
	"umbrella", "handbag", "tie", "suitcase", "frisbee", "skis", "snowboard", "sports ball",
	"kite", "baseball bat", "baseball glove", "skateboard", "surfboard", "tennis racket",
	"bottle", "wine glass", "cup", "fork", "knife", "spoon", "bowl", "banana", "apple",
	"sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair",
	"couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink",
	"refrigerator", "book", "clock", "vase", "scissors", "teddy bear", "hair drier",
	"toothbrush",
}

// LoadClassNames reads one class name per line. An empty path or a missing file
// yields the COCO class list.
func LoadClassNames(path string) ([]string, error) {
	if path == "" {
		return cocoClasses, nil
	}

	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return cocoClasses, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: class names %s: %v", ErrModelLoad, path, err)
	}
	defer file.Close()

	var names []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if name := strings.TrimSpace(scanner.Text()); name != "" {
			names = append(names, name)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: class names %s: %v", ErrModelLoad, path, err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: class names %s: file is empty", ErrModelLoad, path)
	}
	return names, nil
}

func className(names []string, classID int) string {
	if classID >= 0 && classID < len(names) {
		return names[classID]
	}
	return fmt.Sprintf("class%d", classID)
}
