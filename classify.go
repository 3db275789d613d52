package repoindex

import (
	"path"
	"strings"

	"github.com/meigma/repoindex/internal/cachefile"
	"github.com/meigma/repoindex/internal/tarblock"
)

// intentKind identifies how an archive entry contributes to the index.
type intentKind int

const (
	intentPackage intentKind = iota
	intentBuildTreeRef
	intentPreference
)

// entryIntent is the classifier's verdict for one archive entry.
type entryIntent struct {
	kind intentKind
	id   PackageID // set for intentPackage
}

// classifyEntry decides whether an archive entry is package metadata, a
// build-tree-reference marker, or irrelevant to indexing.
//
// Metadata payloads are not parsed here; decoding is deferred until the
// record is demanded, so one corrupt description cannot abort indexing of
// the whole archive.
//
// Preference files are recognized only when extractPrefs is set; the hook
// is off by default.
func classifyEntry(e *tarblock.Entry, extractPrefs bool) (entryIntent, bool) {
	switch e.Typeflag {
	case tarblock.TypeReg, tarblock.TypeRegA:
		name := normalizeEntryPath(e.Name)
		if extractPrefs && path.Base(name) == PreferredVersionsFile {
			return entryIntent{kind: intentPreference}, true
		}
		id, ok := packagePathID(name)
		if !ok {
			return entryIntent{}, false
		}
		return entryIntent{kind: intentPackage, id: id}, true
	case tarblock.TypeBuildTreeRef:
		return entryIntent{kind: intentBuildTreeRef}, true
	default:
		return entryIntent{}, false
	}
}

func normalizeEntryPath(name string) string {
	return path.Clean(strings.TrimPrefix(name, "./"))
}

// packagePathID decomposes "name/version/name<ext>" into an identity.
// Anything that does not match exactly is not package metadata.
func packagePathID(name string) (PackageID, bool) {
	segs := strings.Split(name, "/")
	if len(segs) != 3 {
		return PackageID{}, false
	}
	pkg, versionText, base := segs[0], segs[1], segs[2]
	if !cachefile.ValidName(pkg) || base != pkg+MetadataExt {
		return PackageID{}, false
	}
	version, err := ParseVersion(versionText)
	if err != nil {
		return PackageID{}, false
	}
	return PackageID{Name: pkg, Version: version}, true
}
