package motion

import (
	"sort"

	"github.com/Faultbox/mmd-pose/internal/engine/skeleton"
	"github.com/Faultbox/mmd-pose/pkg/formats"
	"github.com/Faultbox/mmd-pose/pkg/math"
)

// Motion is a set of tracks keyed by bone name.
type Motion struct {
	tracks   map[string]*Track
	duration uint32
}

// New groups keys into per-bone tracks.
func New(keys map[string][]KeyFrame, easeIterations int) *Motion {
	m := &Motion{tracks: make(map[string]*Track, len(keys))}
	for name, k := range keys {
		track := NewTrack(k, easeIterations)
		m.tracks[name] = track
		m.duration = max(m.duration, track.LastFrame())
	}
	return m
}

// FromVMD converts parsed VMD bone keys. Only the rotation interpolation
// channel is used; it eases both rotation and offset.
func FromVMD(vmd *formats.VMD, easeIterations int) *Motion {
	keys := make(map[string][]KeyFrame)
	for i := range vmd.BoneKeys {
		k := &vmd.BoneKeys[i]
		curve := k.Curve(formats.ChannelRotation)
		keys[k.Name] = append(keys[k.Name], KeyFrame{
			Frame:    k.Frame,
			Rotation: math.Quat{X: k.Rotation[0], Y: k.Rotation[1], Z: k.Rotation[2], W: k.Rotation[3]},
			Offset:   math.Vec3{X: k.Position[0], Y: k.Position[1], Z: k.Position[2]},
			P1:       math.Vec2{X: curve.P1[0], Y: curve.P1[1]},
			P2:       math.Vec2{X: curve.P2[0], Y: curve.P2[1]},
		})
	}
	return New(keys, easeIterations)
}

// Track returns the track for a bone name, or nil.
func (m *Motion) Track(name string) *Track {
	return m.tracks[name]
}

// Names returns the animated bone names, sorted.
func (m *Motion) Names() []string {
	names := make([]string, 0, len(m.tracks))
	for name := range m.tracks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Duration returns the last keyed frame of any track.
func (m *Motion) Duration() uint32 {
	return m.duration
}

// Bind resolves tracks to bone indices. The result has one entry per bone,
// nil for bones without a track. Track names that match no bone are returned
// sorted in unknown.
func (m *Motion) Bind(s *skeleton.Skeleton) (tracks []*Track, unknown []string) {
	tracks = make([]*Track, s.Len())
	for _, name := range m.Names() {
		i, ok := s.Index(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		tracks[i] = m.tracks[name]
	}
	return tracks, unknown
}

// SampleLocals writes every bone's local transform for frame into locals.
// Bones without a track, or before their first key, get the identity (bind) transform.
func SampleLocals(s *skeleton.Skeleton, tracks []*Track, frame uint32, locals []math.Mat4) {
	for i := range locals {
		track := tracks[i]
		if track == nil {
			locals[i] = math.Identity()
			continue
		}
		rot, offset, ok := track.Sample(frame)
		if !ok {
			locals[i] = math.Identity()
			continue
		}
		locals[i] = LocalMatrix(s.Bind(i), rot, offset)
	}
}
