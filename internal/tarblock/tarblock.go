// Package tarblock reads 512-byte-block tar-style containers with exact
// block-offset tracking.
//
// The package supports two access modes: a full sequential pass from block 0
// (used when indexing an archive) and single-entry random access at an
// arbitrary block offset (used when resolving a cached offset). Entry content
// is never read until asked for, so a sequential pass over an archive with
// tens of thousands of entries touches only headers.
package tarblock

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// BlockSize is the container's block granularity. Headers occupy exactly one
// block; content is zero-padded to the next block boundary.
const BlockSize = 512

// Entry type flags recognized by the reader.
const (
	// TypeReg marks a regular file.
	TypeReg = '0'

	// TypeRegA is the legacy regular-file marker (pre-ustar archives).
	TypeRegA = '\x00'

	// TypeBuildTreeRef marks a build tree reference: the entry content is a
	// raw filesystem path to an external package tree, not file data.
	TypeBuildTreeRef = 'C'
)

// ErrFormat is returned (wrapped, with a diagnostic) when the container
// format cannot be parsed: bad checksum, truncated header, or an unsupported
// size encoding.
var ErrFormat = errors.New("tarblock: malformed archive")

// ByteSource provides random access to the container bytes.
//
// Implementations exist for local files (*os.File wrappers) and in-memory
// buffers in tests.
type ByteSource interface {
	io.ReaderAt
	Size() int64
}

// Entry is one container record. Content is not read until Content is called.
type Entry struct {
	// Name is the entry path as stored in the header (ustar prefix applied).
	Name string

	// Size is the exact content length in bytes, excluding padding.
	Size int64

	// Typeflag is the entry's declared type.
	Typeflag byte

	// Linkname is the link target for link-typed entries.
	Linkname string

	// BlockOffset is the index of the entry's header block.
	BlockOffset int64

	src ByteSource
}

// Blocks returns the entry's total span in blocks: one header block plus the
// content rounded up to a block boundary.
func (e *Entry) Blocks() int64 {
	return 1 + (e.Size+BlockSize-1)/BlockSize
}

// Content reads and returns exactly the entry's content bytes.
func (e *Entry) Content() ([]byte, error) {
	buf := make([]byte, e.Size)
	if _, err := io.ReadFull(io.NewSectionReader(e.src, (e.BlockOffset+1)*BlockSize, e.Size), buf); err != nil {
		return nil, fmt.Errorf("%w: entry %q at block %d truncated: %v", ErrFormat, e.Name, e.BlockOffset, err)
	}
	return buf, nil
}

// Reader produces the lazy sequence of entries in a container.
type Reader struct {
	src ByteSource
	off int64 // next header, in blocks
}

// NewReader creates a Reader positioned at block 0.
func NewReader(src ByteSource) *Reader {
	return &Reader{src: src}
}

// NewReaderAt creates a Reader positioned at an arbitrary block offset.
// The offset must address an entry header.
func NewReaderAt(src ByteSource, blockOffset int64) *Reader {
	return &Reader{src: src, off: blockOffset}
}

// Next returns the next entry, or io.EOF at the end of the container.
//
// The container ends at two zero blocks; a clean EOF at a block boundary is
// also accepted so that a concatenation-truncated end marker does not fail a
// whole read.
func (r *Reader) Next() (*Entry, error) {
	var block [BlockSize]byte
	n, err := r.src.ReadAt(block[:], r.off*BlockSize)
	if err == io.EOF && n == 0 {
		return nil, io.EOF
	}
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("%w: reading header at block %d: %v", ErrFormat, r.off, err)
	}
	if n < BlockSize {
		return nil, fmt.Errorf("%w: truncated header at block %d (%d bytes)", ErrFormat, r.off, n)
	}

	if isZeroBlock(block[:]) {
		// End marker. The second zero block is optional; anything else
		// after a lone zero block is a format violation.
		n, err = r.src.ReadAt(block[:], (r.off+1)*BlockSize)
		if (err == io.EOF && n == 0) || (n == BlockSize && isZeroBlock(block[:])) {
			return nil, io.EOF
		}
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("%w: reading end marker at block %d: %v", ErrFormat, r.off+1, err)
		}
		return nil, fmt.Errorf("%w: data after end marker at block %d", ErrFormat, r.off)
	}

	entry, err := parseHeader(block[:], r.off, r.src)
	if err != nil {
		return nil, err
	}
	r.off += entry.Blocks()
	return entry, nil
}

// ReadEntryAt reads exactly one entry header at the given block offset.
// Hitting the end marker is reported as io.EOF, which callers resolving
// cached offsets should treat as a desynchronized cache.
func ReadEntryAt(src ByteSource, blockOffset int64) (*Entry, error) {
	return NewReaderAt(src, blockOffset).Next()
}

func isZeroBlock(block []byte) bool {
	for _, b := range block {
		if b != 0 {
			return false
		}
	}
	return true
}

// Header field layout (ustar).
const (
	nameOff     = 0
	nameLen     = 100
	sizeOff     = 124
	sizeLen     = 12
	chksumOff   = 148
	chksumLen   = 8
	typeflagOff = 156
	linknameOff = 157
	linknameLen = 100
	magicOff    = 257
	magicLen    = 6
	prefixOff   = 345
	prefixLen   = 155
)

func parseHeader(block []byte, blockOffset int64, src ByteSource) (*Entry, error) {
	if err := verifyChecksum(block, blockOffset); err != nil {
		return nil, err
	}

	size, err := parseSize(block[sizeOff:sizeOff+sizeLen], blockOffset)
	if err != nil {
		return nil, err
	}

	name := cstring(block[nameOff : nameOff+nameLen])
	if string(block[magicOff:magicOff+magicLen]) == "ustar\x00" {
		if prefix := cstring(block[prefixOff : prefixOff+prefixLen]); prefix != "" {
			name = prefix + "/" + name
		}
	}

	return &Entry{
		Name:        name,
		Size:        size,
		Typeflag:    block[typeflagOff],
		Linkname:    cstring(block[linknameOff : linknameOff+linknameLen]),
		BlockOffset: blockOffset,
		src:         src,
	}, nil
}

// verifyChecksum accepts either the standard unsigned sum or the signed sum
// produced by some historic writers.
func verifyChecksum(block []byte, blockOffset int64) error {
	want, err := parseOctal(block[chksumOff : chksumOff+chksumLen])
	if err != nil {
		return fmt.Errorf("%w: unreadable checksum at block %d", ErrFormat, blockOffset)
	}
	var unsigned, signed int64
	for i, b := range block {
		if i >= chksumOff && i < chksumOff+chksumLen {
			b = ' '
		}
		unsigned += int64(b)
		signed += int64(int8(b))
	}
	if want != unsigned && want != signed {
		return fmt.Errorf("%w: bad checksum at block %d", ErrFormat, blockOffset)
	}
	return nil
}

// parseSize decodes the size field: octal, or GNU base-256 when the high bit
// of the first byte is set. Anything else is an unsupported encoding.
//
// A negative size is rejected outright: it would produce a non-positive
// Blocks() span, and a reader that does not advance past such a header would
// spin on it forever.
func parseSize(field []byte, blockOffset int64) (int64, error) {
	if field[0]&0x80 != 0 {
		var size int64
		for i, b := range field {
			if i == 0 {
				b &= 0x7f
			}
			if size > (1<<55)-1 {
				return 0, fmt.Errorf("%w: entry size overflow at block %d", ErrFormat, blockOffset)
			}
			size = size<<8 | int64(b)
		}
		return size, nil
	}
	size, err := parseOctal(field)
	if err != nil {
		return 0, fmt.Errorf("%w: unsupported size encoding at block %d", ErrFormat, blockOffset)
	}
	if size < 0 {
		return 0, fmt.Errorf("%w: negative entry size at block %d", ErrFormat, blockOffset)
	}
	return size, nil
}

func parseOctal(field []byte) (int64, error) {
	s := strings.Trim(string(field), " \x00")
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 8, 64)
}

func cstring(field []byte) string {
	if i := bytes.IndexByte(field, 0); i >= 0 {
		field = field[:i]
	}
	return string(field)
}
