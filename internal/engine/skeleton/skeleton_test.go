package skeleton

import (
	"errors"
	"testing"

	"github.com/Faultbox/mmd-pose/pkg/math"
)

// legDefs is a center bone with one leg and a separate IK root.
func legDefs() []BoneDef {
	return []BoneDef{
		{Name: "全ての親", Parent: NoParent, IKParent: NoParent},
		{Name: "センター", Parent: 0, Kind: KindRotateMove, IKParent: NoParent, Bind: math.Vec3{Y: 8}},
		{Name: "左足", Parent: 1, IKParent: NoParent, Bind: math.Vec3{X: 1, Y: 8}},
		{Name: "左ひざ", Parent: 2, Kind: KindIKChild, IKParent: 5, Bind: math.Vec3{X: 1, Y: 4}},
		{Name: "左足首", Parent: 3, Kind: KindIKChild, IKParent: 5, Bind: math.Vec3{X: 1, Y: 0.5}},
		{Name: "左足ＩＫ", Parent: NoParent, Kind: KindIK, IKParent: NoParent, Bind: math.Vec3{X: 1, Y: 0.5}},
	}
}

func TestBuild(t *testing.T) {
	s, err := Build(legDefs())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if s.Len() != 6 {
		t.Errorf("expected 6 bones, got %d", s.Len())
	}
	if got := s.Bone(2).Children; len(got) != 1 || got[0] != 3 {
		t.Errorf("children of 左足 = %v, want [3]", got)
	}
	if s.Center() != 1 {
		t.Errorf("center = %d, want 1", s.Center())
	}
	// The entry root is the ancestor of the center bone
	if roots := s.Roots(); len(roots) != 2 || roots[0] != 0 || roots[1] != 5 {
		t.Errorf("roots = %v, want [0 5]", roots)
	}
	if !s.Bone(3).Knee || s.Bone(2).Knee {
		t.Error("only 左ひざ should be flagged as a knee")
	}
	if i, ok := s.Index("左足首"); !ok || i != 4 {
		t.Errorf("Index(左足首) = %d, %v", i, ok)
	}
	if _, ok := s.Index("右足首"); ok {
		t.Error("Index should miss unknown names")
	}
	if s.Bone(3).Kind.String() != "IKChild" {
		t.Errorf("kind string = %q", s.Bone(3).Kind.String())
	}
}

func TestBuildEntryRootWithoutCenter(t *testing.T) {
	defs := []BoneDef{
		{Name: "a", Parent: NoParent, IKParent: NoParent},
		{Name: "b", Parent: NoParent, IKParent: NoParent},
		{Name: "c", Parent: 1, IKParent: NoParent},
	}
	s, err := Build(defs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if s.Center() != -1 {
		t.Errorf("center = %d, want -1", s.Center())
	}
	if roots := s.Roots(); len(roots) != 2 || roots[0] != 0 {
		t.Errorf("roots = %v, want [0 1]", roots)
	}
}

func TestBuildCenterFirstMatchWins(t *testing.T) {
	defs := []BoneDef{
		{Name: "root", Parent: NoParent, IKParent: NoParent},
		{Name: "Center", Parent: NoParent, IKParent: NoParent},
		{Name: "センター", Parent: 0, IKParent: NoParent},
	}
	s, err := Build(defs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if s.Center() != 1 {
		t.Errorf("center = %d, want 1", s.Center())
	}
	if s.Roots()[0] != 1 {
		t.Errorf("entry root = %d, want 1", s.Roots()[0])
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		defs []BoneDef
	}{
		{"parent out of range", []BoneDef{
			{Name: "a", Parent: NoParent, IKParent: NoParent},
			{Name: "b", Parent: 7, IKParent: NoParent},
		}},
		{"negative parent", []BoneDef{
			{Name: "a", Parent: -5, IKParent: NoParent},
		}},
		{"self parent", []BoneDef{
			{Name: "a", Parent: NoParent, IKParent: NoParent},
			{Name: "b", Parent: 1, IKParent: NoParent},
		}},
		{"IK parent out of range", []BoneDef{
			{Name: "a", Parent: NoParent, IKParent: 3},
		}},
		{"cycle", []BoneDef{
			{Name: "a", Parent: NoParent, IKParent: NoParent},
			{Name: "b", Parent: 2, IKParent: NoParent},
			{Name: "c", Parent: 1, IKParent: NoParent},
		}},
		{"no root", []BoneDef{
			{Name: "a", Parent: 1, IKParent: NoParent},
			{Name: "b", Parent: 0, IKParent: NoParent},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Build(tt.defs)
			if !errors.Is(err, ErrUnreachableBone) {
				t.Errorf("expected ErrUnreachableBone, got %v", err)
			}
			if s != nil {
				t.Error("no partial skeleton should be returned")
			}
		})
	}
}

func TestBuildEmpty(t *testing.T) {
	s, err := Build(nil)
	if err != nil {
		t.Fatalf("Build(nil): %v", err)
	}
	if s.Len() != 0 || len(s.Roots()) != 0 {
		t.Errorf("empty skeleton has %d bones, roots %v", s.Len(), s.Roots())
	}
}
