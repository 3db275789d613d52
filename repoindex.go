package repoindex

import (
	"path/filepath"
	"strings"
)

// Default file names within a repository directory.
const (
	// ArchiveName is the append-only index archive holding one metadata
	// file per package version plus build-tree-reference markers.
	ArchiveName = "00-index.tar"

	// MetadataExt is the file extension of package metadata entries.
	MetadataExt = ".cabal"

	// PreferredVersionsFile names the archive-embedded preference file
	// recognized when preference extraction is enabled.
	PreferredVersionsFile = "preferred-versions"

	// cacheExt replaces the archive extension to derive the cache path.
	cacheExt = ".cache"
)

// Repo identifies one package repository on disk.
//
// The archive lives at a fixed path under Root; the derived cache is
// co-located with the same base name and a different extension.
type Repo struct {
	// Name identifies the repository in warnings and logs.
	Name string

	// Root is the directory holding the archive and its cache.
	Root string

	// Remote marks repositories whose archive is fetched from an origin.
	// Remote repositories get refresh advisories; local ones do not.
	Remote bool
}

// ArchivePath returns the repository's archive file path.
func (r Repo) ArchivePath() string {
	return filepath.Join(r.Root, ArchiveName)
}

// CachePath returns the repository's cache file path.
func (r Repo) CachePath() string {
	archive := r.ArchivePath()
	return strings.TrimSuffix(archive, filepath.Ext(archive)) + cacheExt
}

// PackageID is a package identity: name plus version.
type PackageID struct {
	Name    string
	Version Version
}

// String formats the identity as "name-version".
func (id PackageID) String() string {
	return id.Name + "-" + id.Version.String()
}

// Metadata is one decoded package description.
//
// The description grammar is owned by the injected MetadataDecoder;
// repoindex only locates record boundaries in the archive.
type Metadata struct {
	// Name and Version are the identity declared by the description itself.
	Name    string
	Version Version

	// Fields holds the description's simple header fields, lowercased keys.
	Fields map[string]string

	// Raw is the undecoded payload.
	Raw []byte
}

// ID returns the identity declared by the metadata.
func (m *Metadata) ID() PackageID {
	return PackageID{Name: m.Name, Version: m.Version}
}

// MetadataDecoder decodes a package description payload.
//
// Decoders are injected via WithDecoder; FieldDecoder is the default.
type MetadataDecoder interface {
	Decode(data []byte) (*Metadata, error)
}
