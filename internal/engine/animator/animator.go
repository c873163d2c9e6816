// Package animator drives one model's skeleton through a motion: each update
// samples the keyframe tracks, propagates the hierarchy and applies the IK
// chains enabled for that frame.
package animator

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/mmd-pose/internal/engine/ik"
	"github.com/Faultbox/mmd-pose/internal/engine/motion"
	"github.com/Faultbox/mmd-pose/internal/engine/skeleton"
	"github.com/Faultbox/mmd-pose/internal/logger"
	"github.com/Faultbox/mmd-pose/pkg/formats"
	"github.com/Faultbox/mmd-pose/pkg/math"
)

// Options tunes playback and solving.
type Options struct {
	FPS            int  // Clock rate, motion.FramesPerSecond if <= 0
	EaseIterations int  // Bezier inversion budget, motion.DefaultEaseIterations if <= 0
	IKEnabled      bool // Run IK chains after propagation
}

// DefaultOptions returns the standard MMD playback settings.
func DefaultOptions() Options {
	return Options{
		FPS:            motion.FramesPerSecond,
		EaseIterations: motion.DefaultEaseIterations,
		IKEnabled:      true,
	}
}

// Animator owns a skeleton, its bound tracks and the pose they produce. It is
// not safe for concurrent use; the pose must not be read during Update.
type Animator struct {
	skel     *skeleton.Skeleton
	chains   []*ik.Chain
	tracks   []*motion.Track
	timeline *ik.Timeline
	clock    *motion.Clock

	locals []math.Mat4
	pose   skeleton.Pose

	unresolved []string
	duration   uint32
	ikEnabled  bool
	frame      uint32
}

// New builds an animator for a model. mot may be nil, in which case the
// model holds its bind pose and only IK moves it.
func New(model *formats.PMD, mot *formats.VMD, opts Options) (*Animator, error) {
	skel, err := BuildSkeleton(model)
	if err != nil {
		return nil, err
	}
	chains, err := BuildChains(skel, model)
	if err != nil {
		return nil, err
	}

	a := &Animator{
		skel:      skel,
		chains:    chains,
		tracks:    make([]*motion.Track, skel.Len()),
		locals:    make([]math.Mat4, skel.Len()),
		pose:      skeleton.NewPose(skel),
		ikEnabled: opts.IKEnabled,
	}

	if mot != nil {
		m := motion.FromVMD(mot, opts.EaseIterations)
		a.tracks, a.unresolved = m.Bind(skel)
		a.timeline = ik.NewTimeline(mot.IKKeys)
		a.duration = mot.MaxFrame()
	}
	a.clock = motion.NewClock(a.duration, opts.FPS)

	logger.Info("animator ready",
		zap.String("model", model.Name),
		zap.Int("bones", skel.Len()),
		zap.Int("chains", len(chains)),
		zap.Int("tracks", a.boundTracks()),
		zap.Uint32("duration", a.duration))
	for i, c := range chains {
		if err := c.Broken(); err != nil {
			logger.Warn("IK chain cannot be solved",
				zap.Int("index", i),
				zap.String("chain", c.Name),
				zap.Error(err))
		}
	}
	if len(a.unresolved) > 0 {
		logger.Warn("motion tracks without a matching bone",
			zap.Strings("names", a.unresolved))
	}

	return a, nil
}

// BuildSkeleton converts PMD bone records into a skeleton.
func BuildSkeleton(model *formats.PMD) (*skeleton.Skeleton, error) {
	defs := make([]skeleton.BoneDef, len(model.Bones))
	for i := range model.Bones {
		b := &model.Bones[i]
		defs[i] = skeleton.BoneDef{
			Name:     b.Name,
			Parent:   boneRef(b.Parent),
			Kind:     skeleton.Kind(b.Kind),
			IKParent: boneRef(b.IKParent),
			Bind:     math.Vec3{X: b.Position[0], Y: b.Position[1], Z: b.Position[2]},
		}
	}
	skel, err := skeleton.Build(defs)
	if err != nil {
		return nil, fmt.Errorf("building skeleton for %q: %w", model.Name, err)
	}
	return skel, nil
}

// BuildChains converts PMD IK records into chains. The file lists chain
// nodes tip first; chains store them root first. Only out-of-range indices
// fail; a chain whose nodes do not form a branch is kept and reports
// ik.ErrBrokenChain when solved.
func BuildChains(skel *skeleton.Skeleton, model *formats.PMD) ([]*ik.Chain, error) {
	chains := make([]*ik.Chain, 0, len(model.IKs))
	for i := range model.IKs {
		rec := &model.IKs[i]
		nodes := make([]int, len(rec.Chain))
		for j, n := range rec.Chain {
			nodes[len(nodes)-1-j] = boneRef(n)
		}
		c, err := ik.NewChain(skel, boneRef(rec.Goal), boneRef(rec.Tip), nodes, int(rec.Iterations), rec.Limit)
		if err != nil {
			return nil, fmt.Errorf("IK %d: %w", i, err)
		}
		chains = append(chains, c)
	}
	return chains, nil
}

func boneRef(i uint16) int {
	if i == formats.PMDNoBone {
		return skeleton.NoParent
	}
	return int(i)
}

func (a *Animator) boundTracks() int {
	n := 0
	for _, t := range a.tracks {
		if t != nil {
			n++
		}
	}
	return n
}

// Update recomputes the whole pose for frame. global is composed onto every
// root. The returned error collects chains that could not be solved this
// frame; the pose is complete either way.
func (a *Animator) Update(frame uint32, global math.Mat4) error {
	a.frame = frame
	motion.SampleLocals(a.skel, a.tracks, frame, a.locals)
	skeleton.Propagate(a.skel, a.locals, global, a.pose)

	if !a.ikEnabled {
		return nil
	}
	return ik.SolveAll(a.skel, a.chains, a.timeline, frame, a.pose)
}

// Start restarts the playback clock at now.
func (a *Animator) Start(now time.Time) {
	a.clock.Start(now)
}

// Advance updates the pose for the frame the clock shows at now.
func (a *Animator) Advance(now time.Time, global math.Mat4) (uint32, error) {
	frame := a.clock.Frame(now)
	return frame, a.Update(frame, global)
}

// SetIKEnabled switches IK solving on or off for later updates.
func (a *Animator) SetIKEnabled(enabled bool) {
	a.ikEnabled = enabled
}

// Pose returns the pose of the last update. The slice is reused by the next
// Update; callers must not modify it.
func (a *Animator) Pose() skeleton.Pose {
	return a.pose
}

// Position returns bone i's world position in the current pose.
func (a *Animator) Position(i int) math.Vec3 {
	return a.pose.Position(a.skel, i)
}

// Skeleton returns the model's skeleton.
func (a *Animator) Skeleton() *skeleton.Skeleton {
	return a.skel
}

// Chains returns the IK chains in file order.
func (a *Animator) Chains() []*ik.Chain {
	return a.chains
}

// Timeline returns the IK enable timeline, nil without a motion.
func (a *Animator) Timeline() *ik.Timeline {
	return a.timeline
}

// Duration returns the motion length in frames.
func (a *Animator) Duration() uint32 {
	return a.duration
}

// Frame returns the frame of the last update.
func (a *Animator) Frame() uint32 {
	return a.frame
}

// Unresolved returns motion track names that matched no bone.
func (a *Animator) Unresolved() []string {
	return a.unresolved
}
