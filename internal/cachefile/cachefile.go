// Package cachefile encodes and decodes the repository index cache: a
// UTF-8 text file with one index record per line, mapping package
// identities to archive block offsets.
//
// The format is deliberately forward-compatible: a reader drops any line it
// does not recognize instead of failing, so the format can gain fields
// without breaking older readers. This is independent of the archive
// container format.
package cachefile

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Entry is one persisted index record. The variant set is closed: Package,
// BuildTreeRef, and Preference. Consumers switch exhaustively on the
// concrete type.
type Entry interface {
	isEntry()
}

// Package maps a package identity to the block offset of its metadata entry
// in the archive.
type Package struct {
	Name        string
	Version     string
	BlockOffset int64
}

// BuildTreeRef records only the block offset of a build-tree-reference
// entry. The identity is never cached: the referenced external tree is
// mutable, so identity is re-derived from its metadata file on every load.
type BuildTreeRef struct {
	BlockOffset int64
}

// Preference is a named version-constraint expression, stored verbatim.
type Preference struct {
	Constraint string
}

func (Package) isEntry()      {}
func (BuildTreeRef) isEntry() {}
func (Preference) isEntry()   {}

// Line prefixes.
const (
	packageTag      = "pkg:"
	buildTreeRefTag = "build-tree-ref:"
	preferenceTag   = "pref-ver:"
	offsetMarker    = "b#"
)

// Encode writes entries one per line in a deterministic text form.
func Encode(w io.Writer, entries []Entry) error {
	bw := bufio.NewWriter(w)
	for _, entry := range entries {
		var err error
		switch e := entry.(type) {
		case Package:
			_, err = fmt.Fprintf(bw, "%s %s %s %s %d\n", packageTag, e.Name, e.Version, offsetMarker, e.BlockOffset)
		case BuildTreeRef:
			_, err = fmt.Fprintf(bw, "%s %d\n", buildTreeRefTag, e.BlockOffset)
		case Preference:
			_, err = fmt.Fprintf(bw, "%s %s\n", preferenceTag, e.Constraint)
		default:
			err = fmt.Errorf("cachefile: unknown entry type %T", entry)
		}
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Decode parses a cache file back into entries, preserving order.
//
// Lines that do not match a recognized shape, or whose name or version
// tokens fail validation, are dropped silently. Only I/O failures are
// reported as errors.
func Decode(r io.Reader) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if entry, ok := parseLine(scanner.Text()); ok {
			entries = append(entries, entry)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cachefile: read: %w", err)
	}
	return entries, nil
}

// parseLine decodes one line, reporting ok=false for anything unrecognized.
func parseLine(line string) (Entry, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, false
	}
	switch fields[0] {
	case packageTag:
		if len(fields) != 5 || fields[3] != offsetMarker {
			return nil, false
		}
		if !ValidName(fields[1]) || !ValidVersion(fields[2]) {
			return nil, false
		}
		off, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil || off < 0 {
			return nil, false
		}
		return Package{Name: fields[1], Version: fields[2], BlockOffset: off}, true
	case buildTreeRefTag:
		if len(fields) != 2 {
			return nil, false
		}
		off, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil || off < 0 {
			return nil, false
		}
		return BuildTreeRef{BlockOffset: off}, true
	case preferenceTag:
		if len(fields) < 2 {
			return nil, false
		}
		return Preference{Constraint: strings.Join(fields[1:], " ")}, true
	default:
		return nil, false
	}
}

// ValidName reports whether a package name token is well formed:
// non-empty, alphanumeric and hyphen only.
func ValidName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-':
		default:
			return false
		}
	}
	return true
}

// ValidVersion reports whether a version token is well formed:
// dot-separated non-negative integers.
func ValidVersion(version string) bool {
	if version == "" {
		return false
	}
	for part := range strings.SplitSeq(version, ".") {
		if part == "" {
			return false
		}
		for _, r := range part {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}
