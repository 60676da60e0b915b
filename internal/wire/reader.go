package wire

import (
	"encoding/binary"
	"fmt"

	"sml/internal/domain"
)

// reader is a cursor over an immutable input buffer. Every accessor fails
// with ErrInvalidInput naming the field that was truncated.
type reader struct {
	buf []byte
	off int
}

func (r *reader) short(field string) error {
	return fmt.Errorf("%w: truncated %s", domain.ErrInvalidInput, field)
}

func (r *reader) byte(field string) (byte, error) {
	if r.off >= len(r.buf) {
		return 0, r.short(field)
	}
	b := r.buf[r.off]
	r.off++
	return b, nil
}

func (r *reader) expectByte(want byte, field string) error {
	b, err := r.byte(field)
	if err != nil {
		return err
	}
	if b != want {
		return fmt.Errorf("%w: unsupported %s %#x", domain.ErrInvalidInput, field, b)
	}
	return nil
}

func (r *reader) key32(dst []byte, field string) error {
	if r.off+keyLen > len(r.buf) {
		return r.short(field)
	}
	copy(dst, r.buf[r.off:r.off+keyLen])
	r.off += keyLen
	return nil
}

func (r *reader) uint32(field string) (uint32, error) {
	if r.off+4 > len(r.buf) {
		return 0, r.short(field)
	}
	v := binary.BigEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v, nil
}

func (r *reader) uint64(field string) (uint64, error) {
	if r.off+8 > len(r.buf) {
		return 0, r.short(field)
	}
	v := binary.BigEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v, nil
}

// bytes32 reads a u32 length-prefixed byte string.
func (r *reader) bytes32(field string) ([]byte, error) {
	n, err := r.uint32(field)
	if err != nil {
		return nil, err
	}
	if int(n) > len(r.buf)-r.off {
		return nil, r.short(field)
	}
	out := make([]byte, n)
	copy(out, r.buf[r.off:r.off+int(n)])
	r.off += int(n)
	return out, nil
}

// string reads a u8 length-prefixed string.
func (r *reader) string(field string) (string, error) {
	n, err := r.byte(field)
	if err != nil {
		return "", err
	}
	if int(n) > len(r.buf)-r.off {
		return "", r.short(field)
	}
	s := string(r.buf[r.off : r.off+int(n)])
	r.off += int(n)
	return s, nil
}

// maxIDLen is the longest identifier the u8 length prefix can carry.
// DecodeCommit enforces it, so encoded headers never hold a longer id.
const maxIDLen = 255

func appendString(dst []byte, s string) []byte {
	if len(s) > maxIDLen {
		panic("wire: identifier exceeds u8 length prefix")
	}
	dst = append(dst, byte(len(s)))
	return append(dst, s...)
}
