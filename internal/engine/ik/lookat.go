package ik

import (
	"github.com/Faultbox/mmd-pose/internal/engine/skeleton"
	"github.com/Faultbox/mmd-pose/pkg/math"
)

const (
	minLengthSq = 1e-12

	// parallelSinSq is the squared sine below which two directions count
	// as parallel.
	parallelSinSq = 1e-8

	// parallelDot is the |dot| past which the up axis is swapped for the
	// right axis when building a basis.
	parallelDot = 0.999
)

// solveLookAt turns the single node so the direction toward the effector
// points at the target.
func solveLookAt(s *skeleton.Skeleton, c *Chain, pose skeleton.Pose) error {
	node := c.Nodes[0]
	pivot := pose.Position(s, node)

	from := pose.Position(s, c.Effector).Sub(pivot)
	to := pose.Position(s, c.Target).Sub(pivot)

	rot, err := alignRotation(from, to)
	if err != nil {
		return err
	}
	skeleton.ApplyToSubtree(s, node, math.RotateAround(pivot, rot), pose)
	return nil
}

// alignRotation returns the rotation taking direction from onto direction to,
// built from one orthonormal basis per direction.
func alignRotation(from, to math.Vec3) (math.Mat4, error) {
	b0, err := basis(from)
	if err != nil {
		return math.Mat4{}, err
	}
	b1, err := basis(to)
	if err != nil {
		return math.Mat4{}, err
	}
	return b1.Mul(b0.Transpose()), nil
}

// basis returns a rotation whose Z column is the normalized forward vector.
func basis(forward math.Vec3) (math.Mat4, error) {
	if forward.LengthSq() < minLengthSq {
		return math.Mat4{}, ErrDegenerateBasis
	}
	f := forward.Normalize()

	up := math.AxisY
	if d := f.Dot(up); d > parallelDot || d < -parallelDot {
		up = math.AxisX
	}
	r := up.Cross(f)
	if r.LengthSq() < minLengthSq {
		return math.Mat4{}, ErrDegenerateBasis
	}
	r = r.Normalize()
	u := f.Cross(r)

	return math.FromBasis(r, u, f), nil
}
