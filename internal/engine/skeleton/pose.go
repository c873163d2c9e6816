package skeleton

import "github.com/Faultbox/mmd-pose/pkg/math"

// Pose holds one accumulated transform per bone. Each matrix maps a bind-space
// point to its posed world position.
type Pose []math.Mat4

// NewPose returns an identity pose sized to the skeleton.
func NewPose(s *Skeleton) Pose {
	p := make(Pose, s.Len())
	for i := range p {
		p[i] = math.Identity()
	}
	return p
}

// Position returns the current world position of bone i.
func (p Pose) Position(s *Skeleton, i int) math.Vec3 {
	return p[i].TransformVec3(s.bones[i].Bind)
}

// Propagate overwrites every pose entry with parent * local, starting from the
// entry root and then the remaining roots. global is composed onto each root.
// locals must hold one matrix per bone.
func Propagate(s *Skeleton, locals []math.Mat4, global math.Mat4, pose Pose) {
	for _, root := range s.roots {
		s.propagate(root, global, locals, pose)
	}
}

func (s *Skeleton) propagate(i int, parent math.Mat4, locals []math.Mat4, pose Pose) {
	pose[i] = parent.Mul(locals[i])
	for _, child := range s.bones[i].Children {
		s.propagate(child, pose[i], locals, pose)
	}
}

// ApplyToSubtree premultiplies m into bone and all of its descendants. This is
// the partial re-propagation IK uses after rotating a joint in world space.
func ApplyToSubtree(s *Skeleton, bone int, m math.Mat4, pose Pose) {
	pose[bone] = m.Mul(pose[bone])
	for _, child := range s.bones[bone].Children {
		ApplyToSubtree(s, child, m, pose)
	}
}

// InSubtree reports whether bone lies in the subtree rooted at ancestor.
func InSubtree(s *Skeleton, ancestor, bone int) bool {
	for i := bone; i != NoParent; i = s.bones[i].Parent {
		if i == ancestor {
			return true
		}
	}
	return false
}
