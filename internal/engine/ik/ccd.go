package ik

import (
	"github.com/Faultbox/mmd-pose/internal/engine/skeleton"
	"github.com/Faultbox/mmd-pose/pkg/math"
)

// ccdEpsilon is the squared effector to target distance treated as reached.
const ccdEpsilon = 5e-4

// solveCCD runs cyclic coordinate descent on working copies of the chain
// positions. Each node accumulates its rotation about its pre-solve position;
// the pose is only written once all passes are done.
func solveCCD(s *skeleton.Skeleton, c *Chain, pose skeleton.Pose) {
	n := len(c.Nodes)
	pivots := make([]math.Vec3, n)
	for i, node := range c.Nodes {
		pivots[i] = pose.Position(s, node)
	}
	positions := append([]math.Vec3(nil), pivots...)
	effector := pose.Position(s, c.Effector)
	target := pose.Position(s, c.Target)

	rots := make([]math.Quat, n)
	for i := range rots {
		rots[i] = math.QuatIdentity()
	}

	changed := false
	for iter := 0; iter < c.Iterations; iter++ {
		if effector.DistanceSq(target) <= ccdEpsilon {
			break
		}
		for j := n - 1; j >= 0; j-- {
			if effector.DistanceSq(target) <= ccdEpsilon {
				break
			}
			p := positions[j]
			toEffector := effector.Sub(p)
			toTarget := target.Sub(p)

			axis, ok := normal(toEffector, toTarget)
			if !ok {
				continue
			}
			angle := math.AngleBetween(toEffector, toTarget)
			if c.AngleLimit > 0 {
				angle = min(angle, c.AngleLimit)
			}
			w := math.QuatFromAxisAngle(axis, angle)

			for k := j + 1; k < n; k++ {
				positions[k] = p.Add(w.Rotate(positions[k].Sub(p)))
			}
			effector = p.Add(w.Rotate(toEffector))

			// Express the world rotation in the frame the ancestor nodes
			// have already rotated this node into.
			ancestors := math.QuatIdentity()
			for k := 0; k < j; k++ {
				ancestors = ancestors.Mul(rots[k])
			}
			rots[j] = ancestors.Conjugate().Mul(w).Mul(ancestors).Mul(rots[j]).Normalize()
			changed = true
		}
	}

	if !changed {
		return
	}
	for j := n - 1; j >= 0; j-- {
		skeleton.ApplyToSubtree(s, c.Nodes[j], math.RotateAround(pivots[j], rots[j].ToMat4()), pose)
	}
}
