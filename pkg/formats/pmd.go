package formats

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
)

// PMD record sizes in bytes.
const (
	pmdHeaderSize   = 3 + 4 + 20 + 256
	pmdVertexSize   = 38
	pmdIndexSize    = 2
	pmdMaterialSize = 70
	pmdBoneSize     = 39
	pmdIKHeaderSize = 11
	pmdNameSize     = 20
	pmdCommentSize  = 256
)

// PMDNoBone marks an absent bone reference (e.g. the parent of a root bone).
const PMDNoBone uint16 = 0xFFFF

// ErrInvalidPMDMagic is returned when the header does not start with "Pmd".
var ErrInvalidPMDMagic = fmt.Errorf("%w: invalid PMD magic: expected 'Pmd'", ErrMalformedFile)

// PMDBone is one bone record.
type PMDBone struct {
	Name     string
	Parent   uint16 // PMDNoBone for roots
	Tail     uint16 // Display-only link to the next bone
	Kind     uint8
	IKParent uint16
	Position [3]float32 // Bind position in model space
}

// PMDIK is one IK chain record.
type PMDIK struct {
	Goal       uint16   // IK control bone; the chain tip is pulled to its position
	Tip        uint16   // Chain end bone moved onto Goal
	Iterations uint16   // Max solver passes
	Limit      float32  // Per-step angle limit in radians
	Chain      []uint16 // Bones the solver may rotate, tip-most first as stored
}

// PMD represents the animation-relevant part of a parsed PMD model.
type PMD struct {
	Version       float32
	Name          string
	Comment       string
	VertexCount   int
	IndexCount    int
	MaterialCount int
	Bones         []PMDBone
	IKs           []PMDIK
}

// ParsePMD parses PMD data from a byte slice.
func ParsePMD(data []byte) (*PMD, error) {
	if len(data) < pmdHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the PMD header", ErrMalformedFile, len(data))
	}
	if string(data[:3]) != "Pmd" {
		return nil, ErrInvalidPMDMagic
	}

	r := bytes.NewReader(data[3:])
	pmd := &PMD{}

	binary.Read(r, binary.LittleEndian, &pmd.Version)
	pmd.Name, _ = readFixedString(r, pmdNameSize)
	pmd.Comment, _ = readFixedString(r, pmdCommentSize)

	var err error
	if pmd.VertexCount, err = readCount(r, 4, pmdVertexSize, "vertex"); err != nil {
		return nil, err
	}
	if err := skip(r, int64(pmd.VertexCount)*pmdVertexSize); err != nil {
		return nil, err
	}

	if pmd.IndexCount, err = readCount(r, 4, pmdIndexSize, "index"); err != nil {
		return nil, err
	}
	if err := skip(r, int64(pmd.IndexCount)*pmdIndexSize); err != nil {
		return nil, err
	}

	if pmd.MaterialCount, err = readCount(r, 4, pmdMaterialSize, "material"); err != nil {
		return nil, err
	}
	if err := skip(r, int64(pmd.MaterialCount)*pmdMaterialSize); err != nil {
		return nil, err
	}

	if pmd.Bones, err = parsePMDBones(r); err != nil {
		return nil, err
	}
	if pmd.IKs, err = parsePMDIKs(r); err != nil {
		return nil, err
	}

	return pmd, nil
}

// parsePMDBones reads the bone section.
func parsePMDBones(r *bytes.Reader) ([]PMDBone, error) {
	boneCount, err := readCount(r, 2, pmdBoneSize, "bone")
	if err != nil {
		return nil, err
	}

	bones := make([]PMDBone, boneCount)
	for i := range bones {
		bone := &bones[i]
		bone.Name, _ = readFixedString(r, pmdNameSize)
		binary.Read(r, binary.LittleEndian, &bone.Parent)
		binary.Read(r, binary.LittleEndian, &bone.Tail)
		binary.Read(r, binary.LittleEndian, &bone.Kind)
		binary.Read(r, binary.LittleEndian, &bone.IKParent)
		binary.Read(r, binary.LittleEndian, &bone.Position)
	}
	return bones, nil
}

// parsePMDIKs reads the IK section. Records are variable length, so each
// chain's node list is checked against the remaining data.
func parsePMDIKs(r *bytes.Reader) ([]PMDIK, error) {
	ikCount, err := readCount(r, 2, pmdIKHeaderSize, "IK")
	if err != nil {
		return nil, err
	}

	iks := make([]PMDIK, ikCount)
	for i := range iks {
		ik := &iks[i]
		if r.Len() < pmdIKHeaderSize {
			return nil, fmt.Errorf("%w: IK %d header truncated", ErrMalformedFile, i)
		}

		var chainLen uint8
		binary.Read(r, binary.LittleEndian, &ik.Goal)
		binary.Read(r, binary.LittleEndian, &ik.Tip)
		binary.Read(r, binary.LittleEndian, &chainLen)
		binary.Read(r, binary.LittleEndian, &ik.Iterations)
		binary.Read(r, binary.LittleEndian, &ik.Limit)

		if int(chainLen)*2 > r.Len() {
			return nil, fmt.Errorf("%w: IK %d chain of %d nodes truncated", ErrMalformedFile, i, chainLen)
		}
		ik.Chain = make([]uint16, chainLen)
		binary.Read(r, binary.LittleEndian, ik.Chain)
	}
	return iks, nil
}

// ParsePMDFile parses a PMD file from disk.
func ParsePMDFile(path string) (*PMD, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading PMD file: %w", err)
	}
	return ParsePMD(data)
}

// BoneByName returns the index of the first bone with the given name, or -1.
func (pmd *PMD) BoneByName(name string) int {
	for i := range pmd.Bones {
		if pmd.Bones[i].Name == name {
			return i
		}
	}
	return -1
}
