package sim

import (
	"sync"
	"time"
)

const keyframeEvictionCapacity = "capacity"

// Journal keeps a bounded window of keyframes so late-joining diagnostic
// clients can catch up without replaying the whole episode. It is safe for
// concurrent use.
type Journal struct {
	mu       sync.Mutex
	frames   []Keyframe
	capacity int
	nextSeq  uint64
}

// NewJournal constructs a journal holding at most capacity keyframes.
func NewJournal(capacity int) *Journal {
	if capacity < 1 {
		capacity = 1
	}
	return &Journal{
		frames:   make([]Keyframe, 0, capacity),
		capacity: capacity,
		nextSeq:  1,
	}
}

// Record stores a snapshot, evicting the oldest frame when the window is full.
func (j *Journal) Record(snapshot Snapshot, at time.Time) (Keyframe, KeyframeRecordResult) {
	if j == nil {
		return Keyframe{}, KeyframeRecordResult{}
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	frame := Keyframe{
		Tick:       snapshot.Tick,
		Sequence:   j.nextSeq,
		Snapshot:   snapshot,
		RecordedAt: at,
	}
	j.nextSeq++

	var evicted []KeyframeEviction
	for len(j.frames) >= j.capacity {
		oldest := j.frames[0]
		evicted = append(evicted, KeyframeEviction{
			Sequence: oldest.Sequence,
			Tick:     oldest.Tick,
			Reason:   keyframeEvictionCapacity,
		})
		j.frames = j.frames[1:]
	}
	j.frames = append(j.frames, frame)

	result := KeyframeRecordResult{
		Size:           len(j.frames),
		OldestSequence: j.frames[0].Sequence,
		NewestSequence: frame.Sequence,
		Evicted:        evicted,
	}
	return frame, result
}

// BySequence returns the keyframe with the given sequence, if still buffered.
func (j *Journal) BySequence(sequence uint64) (Keyframe, bool) {
	if j == nil {
		return Keyframe{}, false
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, frame := range j.frames {
		if frame.Sequence == sequence {
			return frame, true
		}
	}
	return Keyframe{}, false
}

// Latest returns the most recently recorded keyframe.
func (j *Journal) Latest() (Keyframe, bool) {
	if j == nil {
		return Keyframe{}, false
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.frames) == 0 {
		return Keyframe{}, false
	}
	return j.frames[len(j.frames)-1], true
}

// Window reports the buffered frame count and the oldest and newest sequences.
func (j *Journal) Window() (int, uint64, uint64) {
	if j == nil {
		return 0, 0, 0
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.frames) == 0 {
		return 0, 0, 0
	}
	return len(j.frames), j.frames[0].Sequence, j.frames[len(j.frames)-1].Sequence
}
