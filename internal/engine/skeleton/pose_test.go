package skeleton

import (
	"testing"

	"github.com/Faultbox/mmd-pose/pkg/math"
)

func identityLocals(n int) []math.Mat4 {
	locals := make([]math.Mat4, n)
	for i := range locals {
		locals[i] = math.Identity()
	}
	return locals
}

func TestPropagateComposesParents(t *testing.T) {
	s, err := Build(legDefs())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	locals := identityLocals(s.Len())
	locals[1] = math.TranslateVec(math.Vec3{Y: 1})
	locals[2] = math.TranslateVec(math.Vec3{Z: 2})
	global := math.TranslateVec(math.Vec3{X: 10})

	pose := NewPose(s)
	Propagate(s, locals, global, pose)

	// 左足首 inherits 全ての親 (identity), センター (+Y) and 左足 (+Z) plus the global transform
	got := pose.Position(s, 4)
	want := math.Vec3{X: 11, Y: 1.5, Z: 2}
	if got.DistanceSq(want) > 1e-10 {
		t.Errorf("ankle position = %v, want %v", got, want)
	}

	// The IK root only gets the global transform
	if ik := pose.Position(s, 5); ik.DistanceSq(math.Vec3{X: 11, Y: 0.5}) > 1e-10 {
		t.Errorf("IK root position = %v", ik)
	}
}

func TestPropagateIdempotent(t *testing.T) {
	s, err := Build(legDefs())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	locals := identityLocals(s.Len())
	for i := range locals {
		locals[i] = math.RotateAround(s.Bind(i), math.RotateAxis(math.Vec3{X: 0.6, Z: 0.8}, float32(i)*0.37))
	}
	global := math.TranslateVec(math.Vec3{X: 1, Y: 2, Z: 3}).Mul(math.RotateAxis(math.AxisY, 0.5))

	first := NewPose(s)
	Propagate(s, locals, global, first)
	second := NewPose(s)
	Propagate(s, locals, global, second)
	// Propagating into an already filled pose must also fully overwrite it
	Propagate(s, locals, global, first)

	for i := range first {
		if first[i] != second[i] {
			t.Errorf("bone %d differs between runs:\n%v\n%v", i, first[i], second[i])
		}
	}
}

func TestApplyToSubtree(t *testing.T) {
	s, err := Build(legDefs())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	pose := NewPose(s)
	Propagate(s, identityLocals(s.Len()), math.Identity(), pose)

	ApplyToSubtree(s, 3, math.TranslateVec(math.Vec3{Z: 1}), pose)

	if pose[2] != math.Identity() {
		t.Error("parent of the subtree must not change")
	}
	if pose[5] != math.Identity() {
		t.Error("unrelated root must not change")
	}
	for _, i := range []int{3, 4} {
		if got := pose.Position(s, i); got.Z != 1 {
			t.Errorf("bone %d z = %v, want 1", i, got.Z)
		}
	}
}

func TestInSubtree(t *testing.T) {
	s, err := Build(legDefs())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !InSubtree(s, 2, 4) {
		t.Error("左足首 should be below 左足")
	}
	if InSubtree(s, 4, 2) {
		t.Error("左足 is not below 左足首")
	}
	if InSubtree(s, 1, 5) {
		t.Error("IK root is not below センター")
	}
}
