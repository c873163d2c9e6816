// Package motion samples keyframe tracks into bone-local transforms and keeps
// the animation clock.
package motion

import (
	"sort"

	"github.com/Faultbox/mmd-pose/pkg/math"
)

// KeyFrame is one sample on a bone's track. P1 and P2 shape the easing from
// this key to the next one.
type KeyFrame struct {
	Frame    uint32
	Rotation math.Quat
	Offset   math.Vec3 // Translation relative to the bind position
	P1, P2   math.Vec2
}

// Track is one bone's keyframes sorted by frame.
type Track struct {
	keys       []KeyFrame
	iterations int
}

// NewTrack copies and sorts keys. Keys sharing a frame keep their input
// order, so the last of them is the one sampled.
func NewTrack(keys []KeyFrame, easeIterations int) *Track {
	sorted := append([]KeyFrame(nil), keys...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Frame < sorted[j].Frame
	})
	return &Track{keys: sorted, iterations: easeIterations}
}

// Keys returns the sorted keyframes.
func (t *Track) Keys() []KeyFrame {
	return t.keys
}

// Len returns the number of keyframes.
func (t *Track) Len() int {
	return len(t.keys)
}

// LastFrame returns the frame of the final key, or 0 for an empty track.
func (t *Track) LastFrame() uint32 {
	if len(t.keys) == 0 {
		return 0
	}
	return t.keys[len(t.keys)-1].Frame
}

// Sample returns the rotation and offset at frame. It uses the last key at or
// before frame, eased toward the following key; past the final key it holds
// that key. ok is false when no key precedes frame, in which case the bone
// stays at its bind pose.
func (t *Track) Sample(frame uint32) (rot math.Quat, offset math.Vec3, ok bool) {
	i := sort.Search(len(t.keys), func(i int) bool {
		return t.keys[i].Frame > frame
	}) - 1
	if i < 0 {
		return math.QuatIdentity(), math.Vec3{}, false
	}

	prev := &t.keys[i]
	if i+1 == len(t.keys) || prev.Frame == frame {
		return prev.Rotation, prev.Offset, true
	}

	next := &t.keys[i+1]
	x := float32(frame-prev.Frame) / float32(next.Frame-prev.Frame)
	w := Ease(x, prev.P1, prev.P2, t.iterations)

	return prev.Rotation.Slerp(next.Rotation, w), prev.Offset.Lerp(next.Offset, w), true
}

// LocalMatrix builds a bone-local transform: the rotation pivots about the bind
// position and the offset is applied afterwards in model units.
func LocalMatrix(bind math.Vec3, rot math.Quat, offset math.Vec3) math.Mat4 {
	return math.TranslateVec(bind.Add(offset)).
		Mul(rot.ToMat4()).
		Mul(math.TranslateVec(bind.Neg()))
}
