package repoindex

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/meigma/repoindex/internal/tarblock"
)

// PackageRecord is one package in the index.
//
// Normal records resolve their metadata lazily from the archive on first
// demand; build-tree records are resolved eagerly at load time because the
// referenced tree is mutable and its identity cannot be trusted from a
// cache.
type PackageRecord struct {
	// ID is the package identity.
	ID PackageID

	// BlockOffset is where the record's archive entry starts, in blocks.
	BlockOffset int64

	// BuildTreePath is the external tree directory for build-tree
	// references; empty for archived packages.
	BuildTreePath string

	once    sync.Once
	meta    *Metadata
	err     error
	resolve func() (*Metadata, error)
}

// Metadata returns the record's decoded metadata, resolving it on first
// use. The result is memoized: repeated calls perform no additional archive
// reads or decodes. Safe for concurrent use.
func (r *PackageRecord) Metadata() (*Metadata, error) {
	r.once.Do(func() {
		r.meta, r.err = r.resolve()
	})
	return r.meta, r.err
}

// newArchiveRecord builds a lazily-resolved record for an archived package.
// The archive is opened only when the metadata is first demanded.
func newArchiveRecord(id PackageID, blockOffset int64, archivePath string, decoder MetadataDecoder) *PackageRecord {
	rec := &PackageRecord{ID: id, BlockOffset: blockOffset}
	rec.resolve = func() (*Metadata, error) {
		src, err := openFileSource(archivePath)
		if err != nil {
			return nil, fmt.Errorf("open archive for %s: %w", id, err)
		}
		defer src.Close()
		return resolveArchiveEntry(src, blockOffset, id, decoder)
	}
	return rec
}

// resolveArchiveEntry seeks to a cached offset and decodes exactly one
// metadata payload. An offset that no longer points at the expected entry
// means the cache is desynchronized from the archive.
func resolveArchiveEntry(src tarblock.ByteSource, blockOffset int64, id PackageID, decoder MetadataDecoder) (*Metadata, error) {
	entry, err := tarblock.ReadEntryAt(src, blockOffset)
	if err != nil {
		return nil, fmt.Errorf("%w: block %d: %v", ErrCorruptCache, blockOffset, err)
	}
	it, ok := classifyEntry(entry, false)
	if !ok || it.kind != intentPackage {
		return nil, fmt.Errorf("%w: block %d holds %q, not package metadata", ErrCorruptCache, blockOffset, entry.Name)
	}
	if it.id.Name != id.Name || it.id.Version.Compare(id.Version) != 0 {
		return nil, fmt.Errorf("%w: block %d holds %s, expected %s", ErrCorruptCache, blockOffset, it.id, id)
	}

	content, err := entry.Content()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptCache, err)
	}
	meta, err := decoder.Decode(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, entry.Name, err)
	}
	return meta, nil
}

// resolveBuildTreeRef reads the build-tree marker at a block offset and
// re-reads the external tree's metadata file. Identity comes from the
// file's current content, never from the cache.
func resolveBuildTreeRef(src tarblock.ByteSource, blockOffset int64, decoder MetadataDecoder) (*PackageRecord, error) {
	entry, err := tarblock.ReadEntryAt(src, blockOffset)
	if err != nil {
		return nil, fmt.Errorf("%w: block %d: %v", ErrCorruptCache, blockOffset, err)
	}
	if entry.Typeflag != tarblock.TypeBuildTreeRef {
		return nil, fmt.Errorf("%w: block %d holds %q, not a build tree reference", ErrCorruptCache, blockOffset, entry.Name)
	}
	content, err := entry.Content()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptCache, err)
	}
	treePath := strings.TrimRight(string(content), "\n\x00")

	metaPath, err := locateMetadataFile(treePath)
	if err != nil {
		return nil, fmt.Errorf("build tree %s: %w", treePath, err)
	}
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, fmt.Errorf("build tree %s: %w", treePath, err)
	}
	meta, err := decoder.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, metaPath, err)
	}

	rec := &PackageRecord{ID: meta.ID(), BlockOffset: blockOffset, BuildTreePath: treePath}
	rec.resolve = func() (*Metadata, error) { return meta, nil }
	return rec, nil
}

// locateMetadataFile probes a build tree directory for its description file.
func locateMetadataFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	for _, de := range entries {
		if !de.IsDir() && filepath.Ext(de.Name()) == MetadataExt {
			return filepath.Join(dir, de.Name()), nil
		}
	}
	return "", fmt.Errorf("no %s file in %s", MetadataExt, dir)
}
