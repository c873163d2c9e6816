package ik

import (
	"go.uber.org/multierr"

	"github.com/Faultbox/mmd-pose/internal/engine/skeleton"
)

// SolveAll runs every chain enabled at frame in order. A failing chain is
// skipped and its error collected; the remaining chains still run. A nil
// timeline enables every chain.
func SolveAll(s *skeleton.Skeleton, chains []*Chain, tl *Timeline, frame uint32, pose skeleton.Pose) error {
	var errs error
	for _, c := range chains {
		if !tl.Enabled(c.Name, frame) {
			continue
		}
		errs = multierr.Append(errs, Solve(s, c, pose))
	}
	return errs
}
