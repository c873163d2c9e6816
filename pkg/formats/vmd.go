package formats

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
)

// VMD magic strings. Files written by MMD 7+ use the "0002" header with a
// 20-byte model name; older files use a 10-byte model name.
const (
	vmdMagic       = "Vocaloid Motion Data 0002"
	vmdLegacyMagic = "Vocaloid Motion Data file"
	vmdMagicSize   = 30
)

// VMD record sizes in bytes.
const (
	vmdBoneNameSize   = 15
	vmdBoneKeySize    = 15 + 4 + 12 + 16 + 64
	vmdMorphKeySize   = 15 + 4 + 4
	vmdCameraKeySize  = 61
	vmdLightKeySize   = 28
	vmdShadowKeySize  = 9
	vmdIKHeaderSize   = 4 + 1 + 4
	vmdIKNameSize     = 20
	vmdIKStateSize    = vmdIKNameSize + 1
	interpolationSize = 64
)

// ErrInvalidVMDMagic is returned when the header is not a VMD signature.
var ErrInvalidVMDMagic = fmt.Errorf("%w: invalid VMD magic", ErrMalformedFile)

// Channel selects one interpolation curve of a bone key.
type Channel int

// Interpolation channels in the order they are packed.
const (
	ChannelX Channel = iota
	ChannelY
	ChannelZ
	ChannelRotation
)

// BezierCurve holds the two inner control points of a unit cubic Bezier
// easing curve, both in [0,1]x[0,1].
type BezierCurve struct {
	P1 [2]float32
	P2 [2]float32
}

// VMDBoneKey is one bone keyframe.
type VMDBoneKey struct {
	Name          string
	Frame         uint32
	Position      [3]float32 // Offset from the bind position
	Rotation      [4]float32 // X, Y, Z, W quaternion
	Interpolation [interpolationSize]byte
}

// Curve decodes the easing curve of one channel. Control point coordinates
// are bytes in [0,127] scaled into [0,1].
func (k *VMDBoneKey) Curve(ch Channel) BezierCurve {
	b := k.Interpolation[:]
	c := int(ch)
	return BezierCurve{
		P1: [2]float32{float32(b[c]) / 127.0, float32(b[c+4]) / 127.0},
		P2: [2]float32{float32(b[c+8]) / 127.0, float32(b[c+12]) / 127.0},
	}
}

// VMDIKState is the enable flag for one IK bone.
type VMDIKState struct {
	Name    string
	Enabled bool
}

// VMDIKKey switches IK chains on or off from Frame onward.
type VMDIKKey struct {
	Frame   uint32
	Visible bool
	States  []VMDIKState
}

// VMD represents the animation-relevant part of a parsed VMD motion.
type VMD struct {
	ModelName string
	BoneKeys  []VMDBoneKey
	IKKeys    []VMDIKKey

	// Sections that are skipped, kept as counts for diagnostics.
	MorphKeyCount  int
	CameraKeyCount int
	LightKeyCount  int
	ShadowKeyCount int
}

// ParseVMD parses VMD data from a byte slice.
func ParseVMD(data []byte) (*VMD, error) {
	if len(data) < vmdMagicSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the VMD header", ErrMalformedFile, len(data))
	}

	modelNameSize := 20
	switch {
	case bytes.HasPrefix(data, []byte(vmdMagic)):
	case bytes.HasPrefix(data, []byte(vmdLegacyMagic)):
		modelNameSize = 10
	default:
		return nil, ErrInvalidVMDMagic
	}

	r := bytes.NewReader(data[vmdMagicSize:])
	vmd := &VMD{}

	var err error
	if vmd.ModelName, err = readFixedString(r, modelNameSize); err != nil {
		return nil, err
	}

	if vmd.BoneKeys, err = parseVMDBoneKeys(r); err != nil {
		return nil, err
	}

	// The remaining sections were added over time; files may end after any of them.
	skipped := []struct {
		size  int
		name  string
		count *int
	}{
		{vmdMorphKeySize, "morph", &vmd.MorphKeyCount},
		{vmdCameraKeySize, "camera", &vmd.CameraKeyCount},
		{vmdLightKeySize, "light", &vmd.LightKeyCount},
		{vmdShadowKeySize, "self-shadow", &vmd.ShadowKeyCount},
	}
	for _, s := range skipped {
		if r.Len() < 4 {
			return vmd, nil
		}
		n, err := readCount(r, 4, s.size, s.name)
		if err != nil {
			return nil, err
		}
		*s.count = n
		if err := skip(r, int64(n)*int64(s.size)); err != nil {
			return nil, err
		}
	}

	if r.Len() < 4 {
		return vmd, nil
	}
	if vmd.IKKeys, err = parseVMDIKKeys(r); err != nil {
		return nil, err
	}

	return vmd, nil
}

// parseVMDBoneKeys reads the bone keyframe section.
func parseVMDBoneKeys(r *bytes.Reader) ([]VMDBoneKey, error) {
	count, err := readCount(r, 4, vmdBoneKeySize, "bone key")
	if err != nil {
		return nil, err
	}

	keys := make([]VMDBoneKey, count)
	for i := range keys {
		key := &keys[i]
		key.Name, _ = readFixedString(r, vmdBoneNameSize)
		binary.Read(r, binary.LittleEndian, &key.Frame)
		binary.Read(r, binary.LittleEndian, &key.Position)
		binary.Read(r, binary.LittleEndian, &key.Rotation)
		r.Read(key.Interpolation[:])
	}
	return keys, nil
}

// parseVMDIKKeys reads the IK enable section. Each record carries a variable
// number of name/flag pairs.
func parseVMDIKKeys(r *bytes.Reader) ([]VMDIKKey, error) {
	count, err := readCount(r, 4, vmdIKHeaderSize, "IK enable")
	if err != nil {
		return nil, err
	}

	keys := make([]VMDIKKey, count)
	for i := range keys {
		key := &keys[i]
		if r.Len() < 5 {
			return nil, fmt.Errorf("%w: IK enable record %d truncated", ErrMalformedFile, i)
		}
		var visible uint8
		binary.Read(r, binary.LittleEndian, &key.Frame)
		binary.Read(r, binary.LittleEndian, &visible)
		key.Visible = visible != 0

		n, err := readCount(r, 4, vmdIKStateSize, "IK state")
		if err != nil {
			return nil, fmt.Errorf("IK enable record %d: %w", i, err)
		}
		key.States = make([]VMDIKState, n)
		for j := range key.States {
			var enabled uint8
			key.States[j].Name, _ = readFixedString(r, vmdIKNameSize)
			binary.Read(r, binary.LittleEndian, &enabled)
			key.States[j].Enabled = enabled != 0
		}
	}
	return keys, nil
}

// ParseVMDFile parses a VMD file from disk.
func ParseVMDFile(path string) (*VMD, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading VMD file: %w", err)
	}
	return ParseVMD(data)
}

// MaxFrame returns the largest keyframe number across bone and IK keys.
func (vmd *VMD) MaxFrame() uint32 {
	var last uint32
	for i := range vmd.BoneKeys {
		last = max(last, vmd.BoneKeys[i].Frame)
	}
	for i := range vmd.IKKeys {
		last = max(last, vmd.IKKeys[i].Frame)
	}
	return last
}
