package ik

import (
	stdmath "math"

	"github.com/Faultbox/mmd-pose/internal/engine/skeleton"
	"github.com/Faultbox/mmd-pose/pkg/math"
)

// bendAngle returns the interior angle at the mid joint of the triangle
// formed by a root joint, a mid joint and the target. a is the root to target
// distance, b the root bone length and c the mid bone length. Targets out of
// reach clamp to the fully extended or folded triangle. The root's angle is
// not needed: swing turns the bent chain onto the target line directly.
func bendAngle(a, b, c float32) float32 {
	if a <= 0 || b <= 0 || c <= 0 {
		return stdmath.Pi
	}
	return math.Acos((b*b + c*c - a*a) / (2 * b * c))
}

// solveTwoBone bends the mid joint to the law-of-cosines angle, then swings
// the root so the effector lies on the root to target line. Both rotations are
// computed before either is written to the pose.
func solveTwoBone(s *skeleton.Skeleton, c *Chain, pose skeleton.Pose) error {
	root, mid := c.Nodes[0], c.Nodes[1]

	r := pose.Position(s, root)
	m := pose.Position(s, mid)
	e := pose.Position(s, c.Effector)
	t := pose.Position(s, c.Target)

	u := r.Sub(m)
	v := e.Sub(m)
	b, cl := u.Length(), v.Length()
	if b*cl < minLengthSq {
		return ErrDegenerateBasis
	}
	bend := bendAngle(t.Distance(r), b, cl)

	var midRot math.Mat4
	if s.Bone(mid).Knee {
		axis := pose[mid].TransformDirection(math.AxisX).Normalize()
		angle, ok := kneeAngle(u, v, axis, bend)
		if !ok {
			return ErrDegenerateBasis
		}
		midRot = math.RotateAxis(axis, angle)
	} else {
		axis, ok := bendAxis(u, v, t.Sub(r), m.Sub(r))
		if !ok {
			return ErrDegenerateBasis
		}
		midRot = math.RotateAxis(axis, bend-math.AngleBetween(u, v))
	}
	midM := math.RotateAround(m, midRot)

	rootRot, err := swing(midM.TransformVec3(e).Sub(r), t.Sub(r))
	if err != nil {
		return err
	}
	rootM := math.RotateAround(r, rootRot)

	skeleton.ApplyToSubtree(s, mid, midM, pose)
	skeleton.ApplyToSubtree(s, root, rootM, pose)
	return nil
}

// bendAxis returns the normal of the plane holding both bones. A straight
// chain falls back to the plane of the target, then to the world X axis.
func bendAxis(u, v, toTarget, toMid math.Vec3) (math.Vec3, bool) {
	if n, ok := normal(u, v); ok {
		return n, true
	}
	if n, ok := normal(toTarget, toMid); ok {
		return n, true
	}
	return normal(u, math.AxisX)
}

// normal returns the unit normal of a and b, or false when they are too
// close to parallel for the cross product to be meaningful.
func normal(a, b math.Vec3) (math.Vec3, bool) {
	n := a.Normalize().Cross(b.Normalize())
	if n.LengthSq() < parallelSinSq {
		return math.Vec3{}, false
	}
	return n.Normalize(), true
}

// kneeAngle returns the rotation about axis that leaves the bones, projected
// onto the plane normal to axis, at the signed angle bend. The sign is fixed
// so a knee always folds the same way.
func kneeAngle(u, v, axis math.Vec3, bend float32) (float32, bool) {
	up := u.Sub(axis.Scale(u.Dot(axis)))
	vp := v.Sub(axis.Scale(v.Dot(axis)))
	if up.LengthSq() < minLengthSq || vp.LengthSq() < minLengthSq {
		return 0, false
	}
	current := float32(stdmath.Atan2(float64(axis.Dot(up.Cross(vp))), float64(up.Dot(vp))))
	return wrapAngle(bend - current), true
}

// wrapAngle maps a to (-pi, pi].
func wrapAngle(a float32) float32 {
	for a > stdmath.Pi {
		a -= 2 * stdmath.Pi
	}
	for a <= -stdmath.Pi {
		a += 2 * stdmath.Pi
	}
	return a
}

// swing returns the shortest rotation taking direction from onto to.
func swing(from, to math.Vec3) (math.Mat4, error) {
	if from.LengthSq() < minLengthSq || to.LengthSq() < minLengthSq {
		return math.Mat4{}, ErrDegenerateBasis
	}
	angle := math.AngleBetween(from, to)
	if axis, ok := normal(from, to); ok {
		return math.RotateAxis(axis, angle), nil
	}
	if angle < stdmath.Pi/2 {
		return math.Identity(), nil
	}
	// Opposite directions: any perpendicular axis works.
	axis, ok := normal(from, math.AxisX)
	if !ok {
		axis, ok = normal(from, math.AxisY)
	}
	if !ok {
		return math.Mat4{}, ErrDegenerateBasis
	}
	return math.RotateAxis(axis, angle), nil
}
