package repoindex

import (
	"errors"

	"github.com/meigma/repoindex/internal/tarblock"
)

// Errors re-exported from internal packages.
var (
	// ErrMalformedArchive is returned when the archive container format
	// cannot be parsed. The archive is unusable until re-fetched.
	ErrMalformedArchive = tarblock.ErrFormat
)

// Sentinel errors specific to the repoindex package.
var (
	// ErrCorruptCache is returned when a cached block offset does not
	// resolve to the expected archive entry. The cache is desynchronized
	// from the archive; a forced refresh rebuilds it.
	ErrCorruptCache = errors.New("repoindex: index or cache is corrupt, refresh to fix")

	// ErrDecode is returned when a package metadata payload fails its
	// grammar. Fatal for that record's resolution.
	ErrDecode = errors.New("repoindex: metadata decode failure")

	// ErrMissingArchive is returned by operations that require the archive
	// to exist on disk. Load downgrades this condition to a warning.
	ErrMissingArchive = errors.New("repoindex: archive file missing")

	// ErrVersionSyntax is returned when a version or constraint string
	// cannot be parsed.
	ErrVersionSyntax = errors.New("repoindex: invalid version syntax")
)
