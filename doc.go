// Package repoindex turns an append-only package metadata archive into a
// fast, randomly-accessible package index with a derived on-disk cache.
//
// A repository's archive is a 512-byte-block container holding one metadata
// file per package version plus build-tree-reference markers. repoindex
// scans the archive once, records each relevant entry's block offset in a
// compact line-oriented cache file next to the archive, and serves
// subsequent reads from that cache. Package metadata is decoded lazily: a
// record's payload is read from the archive and decoded only the first time
// it is demanded, then memoized.
//
// The cache is invalidated by modification time. Any write to the archive
// with a newer timestamp triggers a rebuild on the next read; Refresh
// forces one. Cache writes are atomic (temp file plus rename), so readers
// never observe a partially written cache.
//
// Typical use:
//
//	client := repoindex.New()
//	snap, err := client.Load(repoindex.Repo{
//		Name:   "hackage.example.org",
//		Root:   "/var/cache/pkgs/hackage.example.org",
//		Remote: true,
//	})
//	if err != nil {
//		// handle
//	}
//	if rec, ok := snap.Packages.Lookup("foo", repoindex.Version{1, 0}); ok {
//		meta, err := rec.Metadata() // first demand reads and decodes
//		_ = meta
//		_ = err
//	}
//
// Network fetch of archives, the metadata description grammar, and
// dependency resolution are external collaborators: fetching is handled by
// whoever writes the archive (see ImportArchive for installing a fetched
// snapshot), and the grammar is injected as a MetadataDecoder.
package repoindex
