// Package formats provides parsers for the MMD model (PMD) and motion (VMD)
// file formats. Only the sections that drive skeletal animation are decoded;
// mesh, material and physics data are skipped by length.
package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Faultbox/mmd-pose/pkg/encoding"
)

// ErrMalformedFile is returned when a file's magic is wrong or its record
// counts do not fit in the remaining data. Format-specific errors wrap it.
var ErrMalformedFile = errors.New("malformed file")

// readFixedString reads a fixed-length Shift-JIS field.
func readFixedString(r *bytes.Reader, length int) (string, error) {
	buf := make([]byte, length)
	if n, _ := r.Read(buf); n < length {
		return "", fmt.Errorf("%w: truncated %d-byte name", ErrMalformedFile, length)
	}
	return encoding.FixedStringToUTF8(buf), nil
}

// readCount reads a record count of the given width (2 or 4 bytes) and checks
// that count*recordSize bytes remain.
func readCount(r *bytes.Reader, width, recordSize int, section string) (int, error) {
	var n uint64
	switch width {
	case 2:
		var v uint16
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return 0, fmt.Errorf("%w: missing %s count", ErrMalformedFile, section)
		}
		n = uint64(v)
	default:
		var v uint32
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return 0, fmt.Errorf("%w: missing %s count", ErrMalformedFile, section)
		}
		n = uint64(v)
	}
	if n*uint64(recordSize) > uint64(r.Len()) {
		return 0, fmt.Errorf("%w: %d %s records need %d bytes, %d remain",
			ErrMalformedFile, n, section, n*uint64(recordSize), r.Len())
	}
	return int(n), nil
}

// skip advances the reader by n bytes.
func skip(r *bytes.Reader, n int64) error {
	if n > int64(r.Len()) {
		return fmt.Errorf("%w: cannot skip %d bytes, %d remain", ErrMalformedFile, n, r.Len())
	}
	_, err := r.Seek(n, 1)
	return err
}
