package repoindex

import (
	"fmt"
	"os"

	"github.com/meigma/repoindex/internal/tarblock"
)

// fileSource wraps *os.File to implement tarblock.ByteSource.
// os.File has ReadAt but not Size, so we cache the size at construction.
type fileSource struct {
	file *os.File
	size int64
}

// openFileSource opens a file for random access.
func openFileSource(path string) (*fileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat archive: %w", err)
	}
	return &fileSource{file: f, size: info.Size()}, nil
}

// ReadAt implements io.ReaderAt.
func (fs *fileSource) ReadAt(p []byte, off int64) (int, error) {
	return fs.file.ReadAt(p, off)
}

// Size returns the total size of the file.
func (fs *fileSource) Size() int64 {
	return fs.size
}

// Close closes the underlying file.
func (fs *fileSource) Close() error {
	return fs.file.Close()
}

// Interface compliance for fileSource.
var _ tarblock.ByteSource = (*fileSource)(nil)
