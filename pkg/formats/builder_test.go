package formats

import (
	"bytes"
	"encoding/binary"

	"github.com/Faultbox/mmd-pose/pkg/encoding"
)

type testBone struct {
	name     string
	parent   uint16
	kind     uint8
	ikParent uint16
	pos      [3]float32
}

type testIK struct {
	goal, tip  uint16
	iterations uint16
	limit      float32
	chain      []uint16
}

// buildPMD writes a PMD file with empty-but-sized mesh sections.
func buildPMD(vertices, indices, materials int, bones []testBone, iks []testIK) []byte {
	var buf bytes.Buffer
	buf.WriteString("Pmd")
	binary.Write(&buf, binary.LittleEndian, float32(1.0))
	buf.Write(encoding.UTF8ToFixedString("テスト", 20))
	buf.Write(encoding.UTF8ToFixedString("comment", 256))

	binary.Write(&buf, binary.LittleEndian, uint32(vertices))
	buf.Write(make([]byte, vertices*pmdVertexSize))
	binary.Write(&buf, binary.LittleEndian, uint32(indices))
	buf.Write(make([]byte, indices*pmdIndexSize))
	binary.Write(&buf, binary.LittleEndian, uint32(materials))
	buf.Write(make([]byte, materials*pmdMaterialSize))

	binary.Write(&buf, binary.LittleEndian, uint16(len(bones)))
	for _, b := range bones {
		buf.Write(encoding.UTF8ToFixedString(b.name, 20))
		binary.Write(&buf, binary.LittleEndian, b.parent)
		binary.Write(&buf, binary.LittleEndian, uint16(0)) // tail
		binary.Write(&buf, binary.LittleEndian, b.kind)
		binary.Write(&buf, binary.LittleEndian, b.ikParent)
		binary.Write(&buf, binary.LittleEndian, b.pos)
	}

	binary.Write(&buf, binary.LittleEndian, uint16(len(iks)))
	for _, ik := range iks {
		binary.Write(&buf, binary.LittleEndian, ik.goal)
		binary.Write(&buf, binary.LittleEndian, ik.tip)
		binary.Write(&buf, binary.LittleEndian, uint8(len(ik.chain)))
		binary.Write(&buf, binary.LittleEndian, ik.iterations)
		binary.Write(&buf, binary.LittleEndian, ik.limit)
		binary.Write(&buf, binary.LittleEndian, ik.chain)
	}
	return buf.Bytes()
}

type testKey struct {
	name   string
	frame  uint32
	pos    [3]float32
	rot    [4]float32
	interp [64]byte
}

type testIKKey struct {
	frame  uint32
	states map[string]bool
	order  []string
}

// vmdSections controls which optional trailing sections are written.
type vmdSections struct {
	morphs, cameras, lights, shadows int
	withIK                           bool
	stopAfterBones                   bool
}

func buildVMD(keys []testKey, ikKeys []testIKKey, s vmdSections) []byte {
	var buf bytes.Buffer
	magic := make([]byte, 30)
	copy(magic, vmdMagic)
	buf.Write(magic)
	buf.Write(encoding.UTF8ToFixedString("モデル", 20))

	binary.Write(&buf, binary.LittleEndian, uint32(len(keys)))
	for _, k := range keys {
		buf.Write(encoding.UTF8ToFixedString(k.name, 15))
		binary.Write(&buf, binary.LittleEndian, k.frame)
		binary.Write(&buf, binary.LittleEndian, k.pos)
		binary.Write(&buf, binary.LittleEndian, k.rot)
		buf.Write(k.interp[:])
	}
	if s.stopAfterBones {
		return buf.Bytes()
	}

	for _, sec := range []struct{ n, size int }{
		{s.morphs, vmdMorphKeySize},
		{s.cameras, vmdCameraKeySize},
		{s.lights, vmdLightKeySize},
		{s.shadows, vmdShadowKeySize},
	} {
		binary.Write(&buf, binary.LittleEndian, uint32(sec.n))
		buf.Write(make([]byte, sec.n*sec.size))
	}

	if !s.withIK {
		return buf.Bytes()
	}
	binary.Write(&buf, binary.LittleEndian, uint32(len(ikKeys)))
	for _, k := range ikKeys {
		binary.Write(&buf, binary.LittleEndian, k.frame)
		buf.WriteByte(1) // visible
		binary.Write(&buf, binary.LittleEndian, uint32(len(k.order)))
		for _, name := range k.order {
			buf.Write(encoding.UTF8ToFixedString(name, 20))
			if k.states[name] {
				buf.WriteByte(1)
			} else {
				buf.WriteByte(0)
			}
		}
	}
	return buf.Bytes()
}
