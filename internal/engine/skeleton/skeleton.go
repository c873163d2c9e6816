// Package skeleton holds the immutable bone hierarchy and the pose array
// that is recomputed from it every frame.
package skeleton

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Faultbox/mmd-pose/pkg/math"
)

// NoParent marks a root bone (and a bone without an IK parent).
const NoParent = -1

// CenterName is the bone name MMD models use for the body's entry bone.
const CenterName = "センター"

// ErrUnreachableBone is returned when a parent, IK-parent or chain index is out
// of range, or when a bone cannot be reached from any root.
var ErrUnreachableBone = errors.New("unreachable bone")

// Kind is the role a bone plays in the model.
type Kind uint8

// Bone kinds, numbered as stored in PMD files.
const (
	KindRotate Kind = iota
	KindRotateMove
	KindIK
	KindUndefined
	KindIKChild
	KindRotateChild
	KindIKDestination
	KindInvisible
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindRotate:
		return "Rotate"
	case KindRotateMove:
		return "RotateMove"
	case KindIK:
		return "IK"
	case KindUndefined:
		return "Undefined"
	case KindIKChild:
		return "IKChild"
	case KindRotateChild:
		return "RotateChild"
	case KindIKDestination:
		return "IKDestination"
	case KindInvisible:
		return "Invisible"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// BoneDef describes one bone as loaded from a file, in file order.
type BoneDef struct {
	Name     string
	Parent   int // NoParent for roots
	Kind     Kind
	IKParent int // NoParent if unset
	Bind     math.Vec3
}

// Bone is one joint of a built skeleton.
type Bone struct {
	Index    int
	Name     string
	Kind     Kind
	Parent   int
	IKParent int
	Bind     math.Vec3 // Rest position, the pivot of every rotation
	Children []int     // In file order
	Knee     bool      // Bends about a fixed axis in two-bone IK
}

// Skeleton is an arena of bones indexed by their dense file index.
// It is immutable once built.
type Skeleton struct {
	bones  []Bone
	roots  []int // Propagation order; the entry root comes first
	center int
	byName map[string]int
}

// Build creates a skeleton from bone definitions. No partial skeleton is
// returned on error.
func Build(defs []BoneDef) (*Skeleton, error) {
	n := len(defs)
	s := &Skeleton{
		bones:  make([]Bone, n),
		center: -1,
		byName: make(map[string]int, n),
	}

	for i, d := range defs {
		switch {
		case d.Parent == NoParent:
		case d.Parent < 0 || d.Parent >= n:
			return nil, fmt.Errorf("%w: bone %d (%s) parent %d out of range [0,%d)", ErrUnreachableBone, i, d.Name, d.Parent, n)
		case d.Parent == i:
			return nil, fmt.Errorf("%w: bone %d (%s) is its own parent", ErrUnreachableBone, i, d.Name)
		}
		if d.IKParent != NoParent && (d.IKParent < 0 || d.IKParent >= n) {
			return nil, fmt.Errorf("%w: bone %d (%s) IK parent %d out of range [0,%d)", ErrUnreachableBone, i, d.Name, d.IKParent, n)
		}

		s.bones[i] = Bone{
			Index:    i,
			Name:     d.Name,
			Kind:     d.Kind,
			Parent:   d.Parent,
			IKParent: d.IKParent,
			Bind:     d.Bind,
			Knee:     isKnee(d.Name),
		}
		if _, dup := s.byName[d.Name]; !dup {
			s.byName[d.Name] = i
		}
		if s.center < 0 && isCenter(d.Name) {
			s.center = i
		}
	}

	var roots []int
	for i := range s.bones {
		if p := s.bones[i].Parent; p == NoParent {
			roots = append(roots, i)
		} else {
			s.bones[p].Children = append(s.bones[p].Children, i)
		}
	}
	if n > 0 && len(roots) == 0 {
		return nil, fmt.Errorf("%w: no root bone", ErrUnreachableBone)
	}

	if reached := s.countReachable(roots); reached != n {
		return nil, fmt.Errorf("%w: %d of %d bones are not connected to a root", ErrUnreachableBone, n-reached, n)
	}

	s.roots = orderRoots(roots, s.entryRoot(roots))
	return s, nil
}

// countReachable walks down from every root and counts the bones visited.
// Bones on a parent cycle are never visited.
func (s *Skeleton) countReachable(roots []int) int {
	stack := append([]int(nil), roots...)
	count := 0
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		count++
		stack = append(stack, s.bones[i].Children...)
	}
	return count
}

// entryRoot returns the top-level ancestor of the center bone, or the first
// root when the model has no center bone.
func (s *Skeleton) entryRoot(roots []int) int {
	if s.center < 0 {
		if len(roots) == 0 {
			return -1
		}
		return roots[0]
	}
	i := s.center
	for s.bones[i].Parent != NoParent {
		i = s.bones[i].Parent
	}
	return i
}

// orderRoots moves entry to the front, keeping the other roots in file order.
func orderRoots(roots []int, entry int) []int {
	ordered := make([]int, 0, len(roots))
	if entry >= 0 {
		ordered = append(ordered, entry)
	}
	for _, r := range roots {
		if r != entry {
			ordered = append(ordered, r)
		}
	}
	return ordered
}

func isCenter(name string) bool {
	return name == CenterName || strings.EqualFold(name, "center")
}

func isKnee(name string) bool {
	return strings.Contains(name, "ひざ") || strings.Contains(strings.ToLower(name), "knee")
}

// Len returns the number of bones.
func (s *Skeleton) Len() int {
	return len(s.bones)
}

// Bone returns the bone at index i. The Children slice must not be modified.
func (s *Skeleton) Bone(i int) Bone {
	return s.bones[i]
}

// Bind returns the rest position of bone i.
func (s *Skeleton) Bind(i int) math.Vec3 {
	return s.bones[i].Bind
}

// Index resolves a bone name to its index. The first bone with a name wins.
// Only load-time code should look bones up by name.
func (s *Skeleton) Index(name string) (int, bool) {
	i, ok := s.byName[name]
	return i, ok
}

// Roots returns the root bones in propagation order.
func (s *Skeleton) Roots() []int {
	return s.roots
}

// Center returns the center bone's index, or -1 if the model has none.
func (s *Skeleton) Center() int {
	return s.center
}

// Valid reports whether i is a bone index.
func (s *Skeleton) Valid(i int) bool {
	return i >= 0 && i < len(s.bones)
}
