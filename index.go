package repoindex

import (
	"iter"
	"sort"
)

// PackageIndex maps package identities to their chosen records, honoring
// the archive's last-write-wins shadowing rule: a later entry for the same
// identity supersedes an earlier one.
type PackageIndex struct {
	records map[string]*PackageRecord // keyed by PackageID.String()
}

func newPackageIndex() *PackageIndex {
	return &PackageIndex{records: make(map[string]*PackageRecord)}
}

// insert adds or replaces the record for its identity. Later inserts win.
func (ix *PackageIndex) insert(rec *PackageRecord) {
	ix.records[rec.ID.String()] = rec
}

// Lookup returns the record for an exact identity.
func (ix *PackageIndex) Lookup(name string, version Version) (*PackageRecord, bool) {
	rec, ok := ix.records[PackageID{Name: name, Version: version}.String()]
	return rec, ok
}

// LookupVersions returns all records for a package name, ordered by version.
func (ix *PackageIndex) LookupVersions(name string) []*PackageRecord {
	var recs []*PackageRecord
	for _, rec := range ix.records {
		if rec.ID.Name == name {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].ID.Version.Compare(recs[j].ID.Version) < 0
	})
	return recs
}

// Len returns the number of distinct identities in the index.
func (ix *PackageIndex) Len() int {
	return len(ix.records)
}

// Records returns an iterator over all records, ordered by name then
// version.
func (ix *PackageIndex) Records() iter.Seq[*PackageRecord] {
	recs := make([]*PackageRecord, 0, len(ix.records))
	for _, rec := range ix.records {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].ID.Name != recs[j].ID.Name {
			return recs[i].ID.Name < recs[j].ID.Name
		}
		return recs[i].ID.Version.Compare(recs[j].ID.Version) < 0
	})
	return func(yield func(*PackageRecord) bool) {
		for _, rec := range recs {
			if !yield(rec) {
				return
			}
		}
	}
}

// Preferences maps package names to their preferred version ranges, formed
// by intersecting every preference record for the name. Intersection is
// associative and commutative in outcome, so fold order does not matter.
type Preferences map[string]VersionRange

// add folds one constraint in by range intersection.
func (p Preferences) add(con Constraint) {
	if existing, ok := p[con.Name]; ok {
		p[con.Name] = existing.Intersect(con.Range)
		return
	}
	p[con.Name] = con.Range
}

// Allows reports whether a version is acceptable for the named package.
// Names without preferences are unconstrained.
func (p Preferences) Allows(name string, v Version) bool {
	r, ok := p[name]
	if !ok {
		return true
	}
	return r.Contains(v)
}

// Warning is a non-fatal, user-actionable advisory raised while loading a
// repository.
type Warning struct {
	// Repo names the repository the warning concerns.
	Repo string

	// Message is the advisory text, including the suggested remediation.
	Message string
}

// Snapshot is the consumer-facing result of reading one repository: the
// package index, the folded preferences, and any advisories.
type Snapshot struct {
	Packages    *PackageIndex
	Preferences Preferences
	Warnings    []Warning
}
