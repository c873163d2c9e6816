// Package ik corrects a propagated pose so that chain tips reach their goal
// bones. Chains are solved with a look-at, an analytic two-bone or an
// iterative CCD solver depending on their length.
package ik

import (
	"errors"
	"fmt"

	"github.com/Faultbox/mmd-pose/internal/engine/skeleton"
)

var (
	// ErrEmptyChain is returned for a chain with no rotatable nodes.
	ErrEmptyChain = errors.New("ik: empty chain")

	// ErrDegenerateBasis is returned when a solver cannot find a stable
	// rotation axis, even after trying its fallback axes.
	ErrDegenerateBasis = errors.New("ik: degenerate basis")

	// ErrBrokenChain is returned for a chain whose nodes do not lie on one
	// branch leading to the effector.
	ErrBrokenChain = errors.New("ik: nodes do not form a chain")
)

// SolverKind selects the algorithm for a chain.
type SolverKind uint8

const (
	SolverEmpty SolverKind = iota
	SolverLookAt
	SolverTwoBone
	SolverCCD
)

// String returns a human-readable name for the solver.
func (k SolverKind) String() string {
	switch k {
	case SolverEmpty:
		return "Empty"
	case SolverLookAt:
		return "LookAt"
	case SolverTwoBone:
		return "TwoBone"
	case SolverCCD:
		return "CCD"
	default:
		return fmt.Sprintf("SolverKind(%d)", k)
	}
}

// solverFor picks the algorithm from the number of chain nodes.
func solverFor(nodes int) SolverKind {
	switch {
	case nodes == 0:
		return SolverEmpty
	case nodes == 1:
		return SolverLookAt
	case nodes == 2:
		return SolverTwoBone
	default:
		return SolverCCD
	}
}

// Chain is one IK constraint.
type Chain struct {
	// Name is the goal bone's name. IK-enable records are keyed by it.
	Name string

	Target     int   // Goal bone, read from the propagated pose
	Effector   int   // Chain tip moved onto the target
	Nodes      []int // Rotatable bones, root to leaf
	Iterations int
	AngleLimit float32 // Per-step CCD clamp in radians, <= 0 for none
	Solver     SolverKind

	broken error
}

// NewChain range checks the bone indices and resolves the solver. An index
// out of range is a load error. Nodes that are in range but do not form a
// branch (each node an ancestor of the next, the last one an ancestor of the
// effector) still yield a chain; it reports ErrBrokenChain from Broken and
// from every Solve.
func NewChain(s *skeleton.Skeleton, target, effector int, nodes []int, iterations int, angleLimit float32) (*Chain, error) {
	if !s.Valid(target) {
		return nil, fmt.Errorf("chain target %d: %w", target, skeleton.ErrUnreachableBone)
	}
	if !s.Valid(effector) {
		return nil, fmt.Errorf("chain effector %d: %w", effector, skeleton.ErrUnreachableBone)
	}
	for _, n := range nodes {
		if !s.Valid(n) {
			return nil, fmt.Errorf("chain node %d: %w", n, skeleton.ErrUnreachableBone)
		}
	}
	var broken error
	for i, n := range nodes {
		next := effector
		if i+1 < len(nodes) {
			next = nodes[i+1]
		}
		if n == next || !skeleton.InSubtree(s, n, next) {
			broken = fmt.Errorf("node %d is not an ancestor of %d: %w", n, next, ErrBrokenChain)
			break
		}
	}

	return &Chain{
		Name:       s.Bone(target).Name,
		Target:     target,
		Effector:   effector,
		Nodes:      append([]int(nil), nodes...),
		Iterations: iterations,
		AngleLimit: angleLimit,
		Solver:     solverFor(len(nodes)),
		broken:     broken,
	}, nil
}

// Broken returns the reason the chain cannot be solved, or nil.
func (c *Chain) Broken() error {
	return c.broken
}

// Solve applies one chain to pose. On error the pose is left unmodified.
func Solve(s *skeleton.Skeleton, c *Chain, pose skeleton.Pose) error {
	var err error
	switch {
	case c.broken != nil:
		err = c.broken
	case c.Solver == SolverEmpty:
		err = ErrEmptyChain
	case c.Solver == SolverLookAt:
		err = solveLookAt(s, c, pose)
	case c.Solver == SolverTwoBone:
		err = solveTwoBone(s, c, pose)
	case c.Solver == SolverCCD:
		solveCCD(s, c, pose)
	default:
		err = fmt.Errorf("unknown solver %v", c.Solver)
	}
	if err != nil {
		return fmt.Errorf("chain %q: %w", c.Name, err)
	}
	return nil
}
