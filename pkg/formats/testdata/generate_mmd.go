//go:build ignore

// This program generates a sample PMD model and VMD motion for unit tests.
// Run with: go run generate_mmd.go
package main

import (
	"log"
	"os"

	"github.com/Faultbox/mmd-pose/pkg/formats"
)

const none = formats.PMDNoBone

func main() {
	model := &formats.PMD{
		Version: 1,
		Name:    "sample",
		Comment: "two legs, a toe chain and a look-at head",
		Bones: []formats.PMDBone{
			{Name: "センター", Parent: none, Kind: 1, Position: [3]float32{0, 8, 0}},
			{Name: "左足", Parent: 0, Position: [3]float32{1, 7, 0}},
			{Name: "左ひざ", Parent: 1, Position: [3]float32{1, 4, 0}},
			{Name: "左足首", Parent: 2, Position: [3]float32{1, 1, 0}},
			{Name: "右足", Parent: 0, Position: [3]float32{-1, 7, 0}},
			{Name: "右ひざ", Parent: 4, Position: [3]float32{-1, 4, 0}},
			{Name: "右足首", Parent: 5, Position: [3]float32{-1, 1, 0}},
			{Name: "左つま先", Parent: 3, Position: [3]float32{1, 0, -1}},
			{Name: "首", Parent: 0, Position: [3]float32{0, 10, 0}},
			{Name: "頭", Parent: 8, Position: [3]float32{0, 11, 0}},
			{Name: "左足ＩＫ", Parent: none, Kind: 2, Position: [3]float32{1, 1, 0}},
			{Name: "右足ＩＫ", Parent: none, Kind: 2, Position: [3]float32{-1, 1, 0}},
			{Name: "左つま先ＩＫ", Parent: 10, Kind: 2, Position: [3]float32{1, 0, -1}},
			{Name: "視線", Parent: none, Kind: 2, Position: [3]float32{0, 11, -5}},
		},
		IKs: []formats.PMDIK{
			{Goal: 10, Tip: 3, Iterations: 40, Limit: 0.5, Chain: []uint16{2, 1}},
			{Goal: 11, Tip: 6, Iterations: 40, Limit: 0.5, Chain: []uint16{5, 4}},
			{Goal: 12, Tip: 7, Iterations: 3, Limit: 1, Chain: []uint16{3, 2, 1}},
			{Goal: 13, Tip: 9, Iterations: 1, Limit: 1, Chain: []uint16{8}},
		},
	}

	pmd, err := formats.EncodePMD(model)
	if err != nil {
		log.Fatal(err)
	}
	if err := os.WriteFile("sample.pmd", pmd, 0644); err != nil {
		log.Fatal(err)
	}

	ease := formats.CurveInterpolation(formats.BezierCurve{
		P1: [2]float32{0.25, 0.1},
		P2: [2]float32{0.25, 1},
	})
	key := func(name string, frame uint32, pos [3]float32) formats.VMDBoneKey {
		return formats.VMDBoneKey{
			Name:          name,
			Frame:         frame,
			Position:      pos,
			Rotation:      [4]float32{0, 0, 0, 1},
			Interpolation: ease,
		}
	}

	motion := &formats.VMD{
		ModelName: "sample",
		BoneKeys: []formats.VMDBoneKey{
			key("センター", 0, [3]float32{}),
			key("センター", 30, [3]float32{0, -1, 0}),
			key("センター", 60, [3]float32{}),
			key("左足ＩＫ", 0, [3]float32{}),
			key("左足ＩＫ", 30, [3]float32{0, 1, -1}),
			key("左足ＩＫ", 60, [3]float32{}),
			key("右足ＩＫ", 0, [3]float32{}),
			key("右足ＩＫ", 60, [3]float32{0, 0, 1}),
		},
		IKKeys: []formats.VMDIKKey{
			{Frame: 0, Visible: true, States: []formats.VMDIKState{
				{Name: "左足ＩＫ", Enabled: true},
				{Name: "右足ＩＫ", Enabled: true},
			}},
			{Frame: 45, Visible: true, States: []formats.VMDIKState{
				{Name: "右足ＩＫ", Enabled: false},
			}},
		},
	}
	if err := os.WriteFile("sample.vmd", formats.EncodeVMD(motion), 0644); err != nil {
		log.Fatal(err)
	}
}
