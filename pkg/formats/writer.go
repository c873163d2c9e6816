package formats

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/Faultbox/mmd-pose/pkg/encoding"
)

// EncodePMD serializes the animation-relevant part of a model. Mesh sections
// are written as zero-filled records so their counts survive a round trip.
// Names that do not fit their field are truncated.
func EncodePMD(pmd *PMD) ([]byte, error) {
	if len(pmd.Bones) > int(PMDNoBone) {
		return nil, fmt.Errorf("too many bones: %d", len(pmd.Bones))
	}
	if len(pmd.IKs) > 0xFFFF {
		return nil, fmt.Errorf("too many IK chains: %d", len(pmd.IKs))
	}

	var buf bytes.Buffer
	buf.WriteString("Pmd")
	binary.Write(&buf, binary.LittleEndian, pmd.Version)
	buf.Write(encoding.UTF8ToFixedString(pmd.Name, pmdNameSize))
	buf.Write(encoding.UTF8ToFixedString(pmd.Comment, pmdCommentSize))

	for _, s := range []struct{ count, size int }{
		{pmd.VertexCount, pmdVertexSize},
		{pmd.IndexCount, pmdIndexSize},
		{pmd.MaterialCount, pmdMaterialSize},
	} {
		binary.Write(&buf, binary.LittleEndian, uint32(s.count))
		buf.Write(make([]byte, s.count*s.size))
	}

	binary.Write(&buf, binary.LittleEndian, uint16(len(pmd.Bones)))
	for i := range pmd.Bones {
		b := &pmd.Bones[i]
		buf.Write(encoding.UTF8ToFixedString(b.Name, pmdNameSize))
		binary.Write(&buf, binary.LittleEndian, b.Parent)
		binary.Write(&buf, binary.LittleEndian, b.Tail)
		binary.Write(&buf, binary.LittleEndian, b.Kind)
		binary.Write(&buf, binary.LittleEndian, b.IKParent)
		binary.Write(&buf, binary.LittleEndian, b.Position)
	}

	binary.Write(&buf, binary.LittleEndian, uint16(len(pmd.IKs)))
	for i := range pmd.IKs {
		ik := &pmd.IKs[i]
		if len(ik.Chain) > 0xFF {
			return nil, fmt.Errorf("IK %d: chain of %d nodes exceeds 255", i, len(ik.Chain))
		}
		binary.Write(&buf, binary.LittleEndian, ik.Goal)
		binary.Write(&buf, binary.LittleEndian, ik.Tip)
		binary.Write(&buf, binary.LittleEndian, uint8(len(ik.Chain)))
		binary.Write(&buf, binary.LittleEndian, ik.Iterations)
		binary.Write(&buf, binary.LittleEndian, ik.Limit)
		binary.Write(&buf, binary.LittleEndian, ik.Chain)
	}

	return buf.Bytes(), nil
}

// EncodeVMD serializes a motion in the "0002" layout. Skipped sections are
// written as zero-filled records of their recorded counts.
func EncodeVMD(vmd *VMD) []byte {
	var buf bytes.Buffer
	magic := make([]byte, vmdMagicSize)
	copy(magic, vmdMagic)
	buf.Write(magic)
	buf.Write(encoding.UTF8ToFixedString(vmd.ModelName, 20))

	binary.Write(&buf, binary.LittleEndian, uint32(len(vmd.BoneKeys)))
	for i := range vmd.BoneKeys {
		k := &vmd.BoneKeys[i]
		buf.Write(encoding.UTF8ToFixedString(k.Name, vmdBoneNameSize))
		binary.Write(&buf, binary.LittleEndian, k.Frame)
		binary.Write(&buf, binary.LittleEndian, k.Position)
		binary.Write(&buf, binary.LittleEndian, k.Rotation)
		buf.Write(k.Interpolation[:])
	}

	for _, s := range []struct{ count, size int }{
		{vmd.MorphKeyCount, vmdMorphKeySize},
		{vmd.CameraKeyCount, vmdCameraKeySize},
		{vmd.LightKeyCount, vmdLightKeySize},
		{vmd.ShadowKeyCount, vmdShadowKeySize},
	} {
		binary.Write(&buf, binary.LittleEndian, uint32(s.count))
		buf.Write(make([]byte, s.count*s.size))
	}

	binary.Write(&buf, binary.LittleEndian, uint32(len(vmd.IKKeys)))
	for i := range vmd.IKKeys {
		k := &vmd.IKKeys[i]
		binary.Write(&buf, binary.LittleEndian, k.Frame)
		buf.WriteByte(boolByte(k.Visible))
		binary.Write(&buf, binary.LittleEndian, uint32(len(k.States)))
		for _, st := range k.States {
			buf.Write(encoding.UTF8ToFixedString(st.Name, vmdIKNameSize))
			buf.WriteByte(boolByte(st.Enabled))
		}
	}

	return buf.Bytes()
}

// LinearInterpolation returns an interpolation block whose four channels all
// describe a straight line.
func LinearInterpolation() [interpolationSize]byte {
	return CurveInterpolation(BezierCurve{P1: [2]float32{20.0 / 127, 20.0 / 127}, P2: [2]float32{107.0 / 127, 107.0 / 127}})
}

// CurveInterpolation returns an interpolation block using curve for every
// channel. Control points are quantized to 1/127.
func CurveInterpolation(curve BezierCurve) [interpolationSize]byte {
	var b [interpolationSize]byte
	q := func(f float32) byte {
		v := f*127 + 0.5
		if v < 0 {
			return 0
		}
		if v > 127 {
			return 127
		}
		return byte(v)
	}
	for c := 0; c < 4; c++ {
		b[c] = q(curve.P1[0])
		b[c+4] = q(curve.P1[1])
		b[c+8] = q(curve.P2[0])
		b[c+12] = q(curve.P2[1])
	}
	return b
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
