package repoindex

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/meigma/repoindex/internal/cachefile"
)

// Load reads one repository's index.
//
// The persisted cache is trusted only when it is at least as new as the
// archive; otherwise it is rebuilt first. A missing archive is not an
// error: Load returns an empty snapshot with a single warning so one bad
// repository does not block others.
func (c *Client) Load(repo Repo) (*Snapshot, error) {
	archivePath := repo.ArchivePath()
	info, err := os.Stat(archivePath)
	if errors.Is(err, fs.ErrNotExist) {
		w := missingArchiveWarning(repo)
		c.log().Warn("archive missing", "repo", repo.Name, "path", archivePath)
		return &Snapshot{
			Packages:    newPackageIndex(),
			Preferences: Preferences{},
			Warnings:    []Warning{w},
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat archive: %w", err)
	}

	var warnings []Warning
	if w, ok := c.ageAdvisory(repo, info.ModTime()); ok {
		c.log().Warn("archive is stale", "repo", repo.Name, "modified", info.ModTime())
		warnings = append(warnings, w)
	}

	entries, err := c.ensureCache(repo, info.ModTime())
	if err != nil {
		return nil, err
	}

	snap, err := c.buildSnapshot(archivePath, entries)
	if err != nil {
		return nil, fmt.Errorf("repository %s: %w", repo.Name, err)
	}
	snap.Warnings = warnings
	return snap, nil
}

// LoadAll loads several repositories concurrently. Repositories are
// independent; per-repository recoverable conditions surface as warnings in
// the matching snapshot, while a fatal error aborts the whole call.
func (c *Client) LoadAll(ctx context.Context, repos []Repo) ([]*Snapshot, error) {
	snaps := make([]*Snapshot, len(repos))
	g, ctx := errgroup.WithContext(ctx)
	for i, repo := range repos {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			snap, err := c.Load(repo)
			if err != nil {
				return err
			}
			snaps[i] = snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snaps, nil
}

// Refresh forces the repository's cache current. It is idempotent: when the
// cache is already at least as new as the archive it does nothing.
func (c *Client) Refresh(repo Repo) error {
	info, err := os.Stat(repo.ArchivePath())
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrMissingArchive, repo.ArchivePath())
	}
	if err != nil {
		return fmt.Errorf("stat archive: %w", err)
	}
	if current(repo.CachePath(), info.ModTime()) {
		return nil
	}
	_, err = c.rebuild(repo)
	return err
}

// ReadArchive reads an archive directly, bypassing any cache.
func (c *Client) ReadArchive(path string) (*Snapshot, error) {
	src, err := openFileSource(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrMissingArchive, path)
	}
	if err != nil {
		return nil, err
	}
	defer src.Close()

	entries, err := scanArchive(src, c.preferredVersions)
	if err != nil {
		return nil, err
	}
	return c.buildSnapshot(path, entries)
}

// ensureCache returns the repository's cache records, rebuilding the cache
// file first when it is missing or older than the archive. A current cache
// is trusted without re-reading archive content.
func (c *Client) ensureCache(repo Repo, archiveMod time.Time) ([]cachefile.Entry, error) {
	cachePath := repo.CachePath()
	if !current(cachePath, archiveMod) {
		return c.rebuild(repo)
	}

	f, err := os.Open(cachePath)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	defer f.Close()
	entries, err := cachefile.Decode(f)
	if err != nil {
		return nil, err
	}
	c.log().Debug("cache is current", "repo", repo.Name, "records", len(entries))
	return entries, nil
}

// current reports whether the cache at cachePath is at least as new as the
// archive's modification time.
func current(cachePath string, archiveMod time.Time) bool {
	info, err := os.Stat(cachePath)
	return err == nil && !info.ModTime().Before(archiveMod)
}

// rebuild scans the archive and atomically replaces the cache file.
// Concurrent rebuilds of the same cache are deduplicated.
func (c *Client) rebuild(repo Repo) ([]cachefile.Entry, error) {
	result, err, _ := c.refreshGroup.Do(repo.CachePath(), func() (any, error) {
		src, err := openFileSource(repo.ArchivePath())
		if err != nil {
			return nil, fmt.Errorf("open archive: %w", err)
		}
		defer src.Close()

		entries, err := scanArchive(src, c.preferredVersions)
		if err != nil {
			return nil, err
		}
		if err := writeCacheAtomic(repo.CachePath(), entries); err != nil {
			return nil, err
		}
		c.log().Info("cache rebuilt", "repo", repo.Name, "records", len(entries))
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]cachefile.Entry), nil
}

// buildSnapshot folds cache records into the consumer-facing index.
// Archived packages become lazily-resolved records; build-tree references
// are resolved eagerly; preferences are folded by intersection.
func (c *Client) buildSnapshot(archivePath string, entries []cachefile.Entry) (_ *Snapshot, err error) {
	snap := &Snapshot{Packages: newPackageIndex(), Preferences: Preferences{}}

	var src *fileSource // opened on first build-tree reference
	defer func() {
		if src != nil {
			closeErr := src.Close()
			if err == nil {
				err = closeErr
			}
		}
	}()

	for _, entry := range entries {
		switch e := entry.(type) {
		case cachefile.Package:
			version, verr := ParseVersion(e.Version)
			if verr != nil {
				continue
			}
			id := PackageID{Name: e.Name, Version: version}
			snap.Packages.insert(newArchiveRecord(id, e.BlockOffset, archivePath, c.decoder))
		case cachefile.BuildTreeRef:
			if src == nil {
				src, err = openFileSource(archivePath)
				if err != nil {
					return nil, fmt.Errorf("open archive: %w", err)
				}
			}
			rec, rerr := resolveBuildTreeRef(src, e.BlockOffset, c.decoder)
			if rerr != nil {
				return nil, rerr
			}
			snap.Packages.insert(rec)
		case cachefile.Preference:
			con, perr := ParseConstraint(e.Constraint)
			if perr != nil {
				continue
			}
			snap.Preferences.add(con)
		}
	}
	return snap, nil
}

// writeCacheAtomic replaces the cache file via a temp file and rename, so a
// concurrent reader never observes a partially written cache.
func writeCacheAtomic(path string, entries []cachefile.Entry) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".repoindex-")
	if err != nil {
		return fmt.Errorf("creating temp cache: %w", err)
	}
	tmpPath := tmp.Name()
	success := false
	defer func() {
		if !success {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if err := cachefile.Encode(tmp, entries); err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp cache: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replacing cache: %w", err)
	}
	success = true
	return nil
}

// ageAdvisory reports a refresh advisory when a remote archive has not been
// updated within the stale-age window. Local repositories are exempt.
func (c *Client) ageAdvisory(repo Repo, mod time.Time) (Warning, bool) {
	if !repo.Remote || c.staleAge <= 0 {
		return Warning{}, false
	}
	age := c.now().Sub(mod)
	if age <= c.staleAge {
		return Warning{}, false
	}
	days := int(age.Hours() / 24)
	return Warning{
		Repo:    repo.Name,
		Message: fmt.Sprintf("the package index is %d days old; run refresh to update it", days),
	}, true
}

// missingArchiveWarning distinguishes a remote repository that has never
// been fetched from a local repository that is simply invalid.
func missingArchiveWarning(repo Repo) Warning {
	if repo.Remote {
		return Warning{Repo: repo.Name, Message: "the package index does not exist; run refresh to download it"}
	}
	return Warning{Repo: repo.Name, Message: "the local repository is invalid: missing " + ArchiveName}
}
