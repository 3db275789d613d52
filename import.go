package repoindex

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// ImportArchive installs a fetched index snapshot at the repository's
// archive path, replacing any previous archive atomically.
//
// Gzip- and zstd-compressed snapshots are decompressed transparently,
// detected by their magic bytes. The replaced archive carries a newer
// modification time, so the next Load rebuilds the cache.
func (c *Client) ImportArchive(repo Repo, srcPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer src.Close()

	reader, closeReader, err := sniffCompression(bufio.NewReader(src))
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", srcPath, err)
	}
	defer closeReader()

	if err := os.MkdirAll(repo.Root, 0o755); err != nil {
		return fmt.Errorf("creating repository root: %w", err)
	}
	tmp, err := os.CreateTemp(repo.Root, ".repoindex-")
	if err != nil {
		return fmt.Errorf("creating temp archive: %w", err)
	}
	tmpPath := tmp.Name()
	success := false
	defer func() {
		if !success {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmp, reader); err != nil {
		return fmt.Errorf("writing archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp archive: %w", err)
	}
	if err := os.Rename(tmpPath, repo.ArchivePath()); err != nil {
		return fmt.Errorf("replacing archive: %w", err)
	}
	success = true

	c.log().Info("archive imported", "repo", repo.Name, "from", srcPath)
	return nil
}

// sniffCompression wraps r with a decompressor chosen by magic bytes.
// Plain archives pass through unchanged.
func sniffCompression(br *bufio.Reader) (io.Reader, func(), error) {
	magic, err := br.Peek(4)
	if err != nil && err != io.EOF {
		return nil, nil, err
	}
	switch {
	case len(magic) >= 2 && magic[0] == 0x1f && magic[1] == 0x8b:
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, nil, fmt.Errorf("gzip: %w", err)
		}
		return zr, func() { zr.Close() }, nil
	case len(magic) >= 4 && magic[0] == 0x28 && magic[1] == 0xb5 && magic[2] == 0x2f && magic[3] == 0xfd:
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, nil, fmt.Errorf("zstd: %w", err)
		}
		return zr, zr.Close, nil
	default:
		return br, func() {}, nil
	}
}
