package guestio

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

// Reader consumes the input stream in order. Every read checks bounds
// before touching the buffer.
type Reader struct {
	buf            []byte
	off            int
	maxStringBytes int
}

func NewReader(b []byte) *Reader {
	return &Reader{buf: b, maxStringBytes: MaxStringBytes}
}

func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

func (r *Reader) ReadU32() (uint32, error) {
	if r.Remaining() < 4 {
		return 0, fmt.Errorf("%w: need 4 bytes at offset %d, have %d", ErrTruncatedInput, r.off, r.Remaining())
	}

	v := binary.LittleEndian.Uint32(r.buf[r.off : r.off+4])
	r.off += 4
	return v, nil
}

func (r *Reader) ReadString() (string, error) {
	n, err := r.ReadU32()
	if err != nil {
		return "", err
	}
	if int64(n) > int64(r.maxStringBytes) {
		return "", fmt.Errorf("%w: string length %d exceeds %d", ErrMalformedInput, n, r.maxStringBytes)
	}
	if r.Remaining() < int(n) {
		return "", fmt.Errorf("%w: string needs %d bytes at offset %d, have %d", ErrTruncatedInput, n, r.off, r.Remaining())
	}

	raw := r.buf[r.off : r.off+int(n)]
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("%w: string at offset %d is not valid utf-8", ErrMalformedInput, r.off)
	}
	r.off += int(n)
	return string(raw), nil
}

// Finish fails when unread bytes remain.
func (r *Reader) Finish() error {
	if r.Remaining() != 0 {
		return fmt.Errorf("%w: %d trailing bytes", ErrMalformedInput, r.Remaining())
	}
	return nil
}
