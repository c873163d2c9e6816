package formats

import (
	"errors"
	"testing"
)

func rotationCurveBytes(p1x, p1y, p2x, p2y byte) [64]byte {
	var b [64]byte
	b[int(ChannelRotation)] = p1x
	b[int(ChannelRotation)+4] = p1y
	b[int(ChannelRotation)+8] = p2x
	b[int(ChannelRotation)+12] = p2y
	b[int(ChannelX)] = 20
	return b
}

func TestParseVMD_BoneKeys(t *testing.T) {
	keys := []testKey{
		{name: "センター", frame: 0, rot: [4]float32{0, 0, 0, 1}, interp: rotationCurveBytes(20, 20, 107, 107)},
		{name: "左足ＩＫ", frame: 30, pos: [3]float32{0, 1, -2}, rot: [4]float32{0, 0.7071068, 0, 0.7071068}, interp: rotationCurveBytes(127, 0, 0, 127)},
	}
	data := buildVMD(keys, nil, vmdSections{morphs: 2, cameras: 1, lights: 1, shadows: 1})

	vmd, err := ParseVMD(data)
	if err != nil {
		t.Fatalf("ParseVMD: %v", err)
	}
	if vmd.ModelName != "モデル" {
		t.Errorf("model name = %q", vmd.ModelName)
	}
	if len(vmd.BoneKeys) != 2 {
		t.Fatalf("expected 2 bone keys, got %d", len(vmd.BoneKeys))
	}

	k := vmd.BoneKeys[1]
	if k.Name != "左足ＩＫ" || k.Frame != 30 {
		t.Errorf("key = %q@%d", k.Name, k.Frame)
	}
	if k.Position != [3]float32{0, 1, -2} {
		t.Errorf("position = %v", k.Position)
	}
	if k.Rotation[1] != 0.7071068 {
		t.Errorf("rotation = %v", k.Rotation)
	}

	if vmd.MorphKeyCount != 2 || vmd.CameraKeyCount != 1 || vmd.LightKeyCount != 1 || vmd.ShadowKeyCount != 1 {
		t.Errorf("skipped counts = %d/%d/%d/%d", vmd.MorphKeyCount, vmd.CameraKeyCount, vmd.LightKeyCount, vmd.ShadowKeyCount)
	}
	if len(vmd.IKKeys) != 0 {
		t.Errorf("expected no IK keys, got %d", len(vmd.IKKeys))
	}
	if vmd.MaxFrame() != 30 {
		t.Errorf("MaxFrame = %d, want 30", vmd.MaxFrame())
	}
}

func TestVMDBoneKey_Curve(t *testing.T) {
	key := VMDBoneKey{Interpolation: rotationCurveBytes(127, 0, 0, 127)}

	c := key.Curve(ChannelRotation)
	if c.P1 != [2]float32{1, 0} || c.P2 != [2]float32{0, 1} {
		t.Errorf("rotation curve = %+v", c)
	}

	x := key.Curve(ChannelX)
	if x.P1[0] != 20.0/127.0 {
		t.Errorf("X channel P1.x = %v, want %v", x.P1[0], 20.0/127.0)
	}
}

func TestParseVMD_IKKeys(t *testing.T) {
	ikKeys := []testIKKey{
		{frame: 0, order: []string{"左足ＩＫ", "右足ＩＫ"}, states: map[string]bool{"左足ＩＫ": true, "右足ＩＫ": true}},
		{frame: 10, order: []string{"左足ＩＫ"}, states: map[string]bool{"左足ＩＫ": false}},
	}
	data := buildVMD(nil, ikKeys, vmdSections{withIK: true})

	vmd, err := ParseVMD(data)
	if err != nil {
		t.Fatalf("ParseVMD: %v", err)
	}
	if len(vmd.IKKeys) != 2 {
		t.Fatalf("expected 2 IK keys, got %d", len(vmd.IKKeys))
	}
	if !vmd.IKKeys[0].Visible {
		t.Error("expected visible flag")
	}
	if len(vmd.IKKeys[0].States) != 2 || vmd.IKKeys[0].States[1].Name != "右足ＩＫ" || !vmd.IKKeys[0].States[1].Enabled {
		t.Errorf("record 0 states = %+v", vmd.IKKeys[0].States)
	}
	if vmd.IKKeys[1].Frame != 10 || vmd.IKKeys[1].States[0].Enabled {
		t.Errorf("record 1 = %+v", vmd.IKKeys[1])
	}
}

func TestParseVMD_EndsAfterBones(t *testing.T) {
	keys := []testKey{{name: "頭", frame: 5, rot: [4]float32{0, 0, 0, 1}}}
	vmd, err := ParseVMD(buildVMD(keys, nil, vmdSections{stopAfterBones: true}))
	if err != nil {
		t.Fatalf("ParseVMD: %v", err)
	}
	if len(vmd.BoneKeys) != 1 || vmd.BoneKeys[0].Name != "頭" {
		t.Errorf("bone keys = %+v", vmd.BoneKeys)
	}
}

func TestParseVMD_Malformed(t *testing.T) {
	keys := []testKey{{name: "頭", frame: 5, rot: [4]float32{0, 0, 0, 1}}}
	valid := buildVMD(keys, []testIKKey{{frame: 0, order: []string{"a"}, states: map[string]bool{"a": true}}},
		vmdSections{withIK: true})

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"empty", nil, ErrMalformedFile},
		{"bad magic", append([]byte("Not a motion file at all......"), valid[30:]...), ErrInvalidVMDMagic},
		{"truncated bone key", valid[:30+20+4+50], ErrMalformedFile},
		{"truncated IK state", valid[:len(valid)-3], ErrMalformedFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseVMD(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
