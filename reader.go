package pdfops

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// Reader is an in-memory, seekable byte source. It is the cursor shared by
// the tokenizer and the document container.
type Reader struct {
	buf []byte
	ptr int
}

func NewReader(b []byte) *Reader {
	return &Reader{
		buf: b,
		ptr: 0,
	}
}

func (r *Reader) Close() error {
	if r.buf == nil {
		return fmt.Errorf("reader already closed")
	}
	r.buf = nil
	r.ptr = 0
	return nil
}

func (r *Reader) AtEOF() bool {
	return r.ptr >= len(r.buf)
}

// Section returns a new Reader over size bytes starting at offset. The
// section is clamped to the underlying buffer.
func (r *Reader) Section(offset, size int64) *Reader {
	if offset < 0 {
		offset = 0
	}
	if offset > r.Size() {
		offset = r.Size()
	}
	end := offset + size
	if end > r.Size() || size < 0 {
		end = r.Size()
	}
	return NewReader(r.buf[offset:end])
}

func (r *Reader) Size() int64 {
	return int64(len(r.buf))
}

func (r *Reader) Len() int {
	if r.ptr >= len(r.buf) {
		return 0
	}
	return len(r.buf) - r.ptr
}

func (r *Reader) Index(b []byte) int {
	if r.ptr >= len(r.buf) {
		return -1
	}
	return bytes.Index(r.buf[r.ptr:], b)
}

// LastIndex reports the absolute offset of the last occurrence of b in the
// whole buffer, regardless of the cursor.
func (r *Reader) LastIndex(b []byte) int64 {
	return int64(bytes.LastIndex(r.buf, b))
}

func (r *Reader) Bytes() []byte {
	if r.ptr >= len(r.buf) {
		return nil
	}
	return r.buf[r.ptr:]
}

func (r *Reader) StartsWith(b []byte) bool {
	if r.ptr >= len(r.buf) {
		return false
	}
	return bytes.HasPrefix(r.buf[r.ptr:], b)
}

func (r *Reader) ReadLine() ([]byte, error) {
	if r.ptr >= len(r.buf) {
		return nil, io.EOF
	}
	var (
		rest = r.buf[r.ptr:]
		end  = bytes.IndexAny(rest, "\r\n")
	)
	if end < 0 {
		r.ptr = len(r.buf)
		return bytes.TrimSpace(rest), nil
	}
	line := rest[:end]
	r.ptr += end + 1
	if rest[end] == cr && r.ptr < len(r.buf) && r.buf[r.ptr] == nl {
		r.ptr++
	}
	return bytes.TrimSpace(line), nil
}

// Skip moves the cursor past any whitespace.
func (r *Reader) Skip() {
	for r.ptr < len(r.buf) && isBlank(r.buf[r.ptr]) {
		r.ptr++
	}
}

// SkipEOL consumes a single CR, LF or CRLF sequence if the cursor is
// positioned on one.
func (r *Reader) SkipEOL() {
	if r.ptr >= len(r.buf) {
		return
	}
	switch r.buf[r.ptr] {
	case cr:
		r.ptr++
		if r.ptr < len(r.buf) && r.buf[r.ptr] == nl {
			r.ptr++
		}
	case nl:
		r.ptr++
	}
}

func (r *Reader) Discard(n int) (int, error) {
	if r.ptr >= len(r.buf) {
		return 0, io.EOF
	}
	if rest := len(r.buf) - r.ptr; n > rest {
		n = rest
	}
	r.ptr += n
	return n, nil
}

func (r *Reader) Read(b []byte) (int, error) {
	if r.ptr >= len(r.buf) {
		return 0, io.EOF
	}
	n := copy(b, r.buf[r.ptr:])
	r.ptr += n
	return n, nil
}

func (r *Reader) ReadAt(b []byte, offset int64) (n int, err error) {
	if offset < 0 {
		return 0, fmt.Errorf("readat: negative offset")
	}
	if offset >= r.Size() {
		return 0, io.EOF
	}
	n = copy(b, r.buf[offset:])
	if n < len(b) {
		err = io.EOF
	}
	return n, err
}

func (r *Reader) Tell() int64 {
	return int64(r.ptr)
}

func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	var ptr int
	switch whence {
	case io.SeekStart:
		ptr = int(offset)
	case io.SeekCurrent:
		ptr = r.ptr + int(offset)
	case io.SeekEnd:
		ptr = len(r.buf) + int(offset)
	default:
		return 0, fmt.Errorf("seek: invalid whence")
	}
	if ptr < 0 {
		return 0, fmt.Errorf("seek: negative position")
	}
	r.ptr = ptr
	return int64(r.ptr), nil
}

// ReadInt reads a big-endian unsigned integer stored on n bytes.
func (r *Reader) ReadInt(n int64) int64 {
	var z int64
	for i := n - 1; i >= 0; i-- {
		b, _ := r.ReadByte()
		z |= int64(b) << (i * 8)
	}
	return z
}

func (r *Reader) ReadByte() (byte, error) {
	if r.ptr >= len(r.buf) {
		return 0, io.EOF
	}
	b := r.buf[r.ptr]
	r.ptr++
	return b, nil
}

func (r *Reader) UnreadByte() error {
	if r.ptr <= 0 {
		return errors.New("unread: at beginning of buffer")
	}
	r.ptr--
	return nil
}

// Position converts an absolute offset into a 1-based line and column.
// CR, LF and CRLF all count as a single line break.
func (r *Reader) Position(offset int64) (int, int) {
	if offset > r.Size() {
		offset = r.Size()
	}
	line, col := 1, 1
	for i := int64(0); i < offset; i++ {
		switch b := r.buf[i]; {
		case b == nl && i > 0 && r.buf[i-1] == cr:
		case b == nl || b == cr:
			line, col = line+1, 1
		default:
			col++
		}
	}
	return line, col
}

func (r *Reader) peek(n int) (byte, bool) {
	if i := r.ptr + n; i >= 0 && i < len(r.buf) {
		return r.buf[i], true
	}
	return 0, false
}

func (r *Reader) slice(from, to int64) []byte {
	if from < 0 {
		from = 0
	}
	if to > r.Size() {
		to = r.Size()
	}
	if from >= to {
		return nil
	}
	return r.buf[from:to]
}
