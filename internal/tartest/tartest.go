// Package tartest builds small block-structured archives for tests.
//
// The builder writes raw 512-byte blocks directly so tests can produce
// archives with exact block layouts, custom type flags, deliberately broken
// checksums, and missing end markers.
package tartest

import (
	"bytes"
	"fmt"
	"io"
)

const blockSize = 512

// Builder accumulates archive blocks.
type Builder struct {
	buf bytes.Buffer
}

// New creates an empty Builder.
func New() *Builder {
	return &Builder{}
}

// File appends a regular-file entry.
func (b *Builder) File(name string, content []byte) *Builder {
	return b.Entry(name, content, '0')
}

// BuildTreeRef appends a build-tree-reference entry whose content is the
// given filesystem path.
func (b *Builder) BuildTreeRef(path string) *Builder {
	return b.Entry(path+"-ref", []byte(path), 'C')
}

// Entry appends an entry with an explicit type flag.
func (b *Builder) Entry(name string, content []byte, typeflag byte) *Builder {
	b.buf.Write(header(name, int64(len(content)), typeflag))
	b.buf.Write(content)
	if pad := len(content) % blockSize; pad != 0 {
		b.buf.Write(make([]byte, blockSize-pad))
	}
	return b
}

// CorruptEntry appends an entry whose header checksum is deliberately wrong.
func (b *Builder) CorruptEntry(name string, content []byte) *Builder {
	h := header(name, int64(len(content)), '0')
	h[148] = '9'
	h[149] = '9'
	b.buf.Write(h)
	b.buf.Write(content)
	if pad := len(content) % blockSize; pad != 0 {
		b.buf.Write(make([]byte, blockSize-pad))
	}
	return b
}

// RawBlock appends one literal block, zero-padded or truncated to 512 bytes.
func (b *Builder) RawBlock(data []byte) *Builder {
	block := make([]byte, blockSize)
	copy(block, data)
	b.buf.Write(block)
	return b
}

// Bytes returns the archive with its two-zero-block end marker.
func (b *Builder) Bytes() []byte {
	out := make([]byte, b.buf.Len(), b.buf.Len()+2*blockSize)
	copy(out, b.buf.Bytes())
	return append(out, make([]byte, 2*blockSize)...)
}

// BytesNoTrailer returns the archive without an end marker.
func (b *Builder) BytesNoTrailer() []byte {
	return bytes.Clone(b.buf.Bytes())
}

// header builds one ustar header block with a valid unsigned checksum.
func header(name string, size int64, typeflag byte) []byte {
	h := make([]byte, blockSize)
	copy(h[0:100], name)
	copy(h[100:108], "0000644\x00")                   // mode
	copy(h[108:116], "0000000\x00")                   // uid
	copy(h[116:124], "0000000\x00")                   // gid
	copy(h[124:136], fmt.Sprintf("%011o\x00", size))  // size
	copy(h[136:148], "00000000000\x00")               // mtime
	copy(h[148:156], "        ")                      // chksum placeholder
	h[156] = typeflag
	copy(h[257:263], "ustar\x00")
	copy(h[263:265], "00")

	var sum int64
	for _, c := range h {
		sum += int64(c)
	}
	copy(h[148:156], fmt.Sprintf("%06o\x00 ", sum))
	return h
}

// Source is an in-memory ByteSource over archive bytes.
type Source struct {
	data []byte
}

// NewSource wraps archive bytes as a random-access source.
func NewSource(data []byte) *Source {
	return &Source{data: data}
}

// ReadAt implements io.ReaderAt.
func (s *Source) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(s.data)) {
		return 0, io.EOF
	}
	n := copy(p, s.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Size returns the archive length in bytes.
func (s *Source) Size() int64 {
	return int64(len(s.data))
}

// Bytes returns the underlying buffer for in-place corruption by tests.
func (s *Source) Bytes() []byte {
	return s.data
}
