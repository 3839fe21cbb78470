package ai

import (
	"image"
	"sort"
	"sync"
)

const (
	// DefaultTrackBuffer is the number of frames a lost track is kept before its id is retired.
	DefaultTrackBuffer = 30
	// DefaultMatchThreshold is the minimum IoU for associating a detection with a track.
	DefaultMatchThreshold = 0.3
	// TrailLength is the number of center points kept per track.
	TrailLength = 30
)

type track struct {
	id      int
	classID int
	motion  *motion
	lost    int
	trail   []image.Point
}

// correct applies a measurement. A filter that cannot absorb it is re-seeded
// from the measured box.
func (tr *track) correct(r Rect) {
	if err := tr.motion.update(r); err != nil {
		tr.motion = newMotion(r)
	}
}

// Tracked is a candidate with its assigned track id.
type Tracked struct {
	Candidate
	TrackID int
}

// Tracker assigns stable ids to candidates across frames using IoU association
// against motion-predicted track boxes. Ids are never reused within a session.
type Tracker struct {
	mu             sync.Mutex
	buffer         int
	matchThreshold float64
	nextID         int
	tracks         []*track
}

// NewTracker creates a tracker that keeps lost tracks for buffer frames.
func NewTracker(buffer int) *Tracker {
	if buffer < 0 {
		buffer = DefaultTrackBuffer
	}
	return &Tracker{
		buffer:         buffer,
		matchThreshold: DefaultMatchThreshold,
		nextID:         1,
	}
}

type match struct {
	track, candidate int
	iou              float64
}

// Update associates the frame's candidates with live tracks and returns them with ids.
// Calling it with no candidates ages every track by one frame.
func (t *Tracker) Update(candidates []Candidate) []Tracked {
	t.mu.Lock()
	defer t.mu.Unlock()

	predicted := make([]Rect, len(t.tracks))
	for i, tr := range t.tracks {
		tr.motion.predict()
		predicted[i] = tr.motion.rect()
	}

	var matches []match
	for ti, tr := range t.tracks {
		for ci, c := range candidates {
			if c.ClassID != tr.classID {
				continue
			}
			if iou := IoU(predicted[ti], c.Box); iou >= t.matchThreshold {
				matches = append(matches, match{track: ti, candidate: ci, iou: iou})
			}
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].iou > matches[j].iou })

	trackOf := make(map[int]int, len(candidates))
	usedTracks := make(map[int]bool, len(t.tracks))
	for _, m := range matches {
		if usedTracks[m.track] {
			continue
		}
		if _, ok := trackOf[m.candidate]; ok {
			continue
		}
		usedTracks[m.track] = true
		trackOf[m.candidate] = m.track
	}

	result := make([]Tracked, 0, len(candidates))
	for ci, c := range candidates {
		var tr *track
		if ti, ok := trackOf[ci]; ok {
			tr = t.tracks[ti]
			tr.correct(c.Box)
			tr.lost = 0
		} else {
			tr = &track{id: t.nextID, classID: c.ClassID, motion: newMotion(c.Box)}
			t.nextID++
			t.tracks = append(t.tracks, tr)
		}
		tr.trail = appendTrail(tr.trail, centerOf(c.Box))
		result = append(result, Tracked{Candidate: c, TrackID: tr.id})
	}

	live := t.tracks[:0]
	for ti, tr := range t.tracks {
		if ti < len(predicted) && !usedTracks[ti] {
			tr.lost++
		}
		if tr.lost <= t.buffer {
			live = append(live, tr)
		}
	}
	for i := len(live); i < len(t.tracks); i++ {
		t.tracks[i] = nil
	}
	t.tracks = live

	return result
}

// Trails returns a copy of the center history of every live track.
func (t *Tracker) Trails() map[int][]image.Point {
	t.mu.Lock()
	defer t.mu.Unlock()

	trails := make(map[int][]image.Point, len(t.tracks))
	for _, tr := range t.tracks {
		trails[tr.id] = append([]image.Point(nil), tr.trail...)
	}
	return trails
}

// Len returns the number of live tracks.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tracks)
}

// Reset drops all tracks and restarts id allocation.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tracks = nil
	t.nextID = 1
}

func appendTrail(trail []image.Point, p image.Point) []image.Point {
	trail = append(trail, p)
	if len(trail) > TrailLength {
		trail = trail[len(trail)-TrailLength:]
	}
	return trail
}

func centerOf(r Rect) image.Point {
	return image.Pt(int((r.X1+r.X2)/2), int((r.Y1+r.Y2)/2))
}
