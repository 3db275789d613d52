package repoindex

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/repoindex/internal/tarblock"
	"github.com/meigma/repoindex/internal/tartest"
)

// readEntries decodes all entries from a test archive.
func readEntries(t *testing.T, archive []byte) []*tarblock.Entry {
	t.Helper()
	var entries []*tarblock.Entry
	r := tarblock.NewReader(tartest.NewSource(archive))
	for {
		e, err := r.Next()
		if err == io.EOF {
			return entries
		}
		require.NoError(t, err)
		entries = append(entries, e)
	}
}

func TestClassifyPackageMetadata(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path string
		id   string
		ok   bool
	}{
		{"plain", "foo/1.0/foo.cabal", "foo-1.0", true},
		{"dotted prefix", "./foo/1.0/foo.cabal", "foo-1.0", true},
		{"hyphenated name", "foo-bar/0.2.1/foo-bar.cabal", "foo-bar-0.2.1", true},
		{"wrong extension", "foo/1.0/foo.txt", "", false},
		{"wrong base name", "foo/1.0/bar.cabal", "", false},
		{"two segments", "foo/foo.cabal", "", false},
		{"four segments", "a/foo/1.0/foo.cabal", "", false},
		{"bad version", "foo/one/foo.cabal", "", false},
		{"bad name", "foo_bar/1.0/foo_bar.cabal", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			archive := tartest.New().File(tt.path, []byte("name: x\n")).Bytes()
			entries := readEntries(t, archive)
			require.Len(t, entries, 1)

			it, ok := classifyEntry(entries[0], false)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, intentPackage, it.kind)
				assert.Equal(t, tt.id, it.id.String())
			}
		})
	}
}

func TestClassifyBuildTreeRef(t *testing.T) {
	t.Parallel()

	archive := tartest.New().BuildTreeRef("/src/trees/foo").Bytes()
	entries := readEntries(t, archive)
	require.Len(t, entries, 1)

	it, ok := classifyEntry(entries[0], false)
	require.True(t, ok)
	assert.Equal(t, intentBuildTreeRef, it.kind)
}

func TestClassifyPreferredVersionsHook(t *testing.T) {
	t.Parallel()

	archive := tartest.New().File("preferred-versions", []byte("foo < 2.0\n")).Bytes()
	entries := readEntries(t, archive)
	require.Len(t, entries, 1)

	_, ok := classifyEntry(entries[0], false)
	assert.False(t, ok, "preference extraction is off by default")

	it, ok := classifyEntry(entries[0], true)
	require.True(t, ok)
	assert.Equal(t, intentPreference, it.kind)
}

func TestClassifyIgnoresOtherTypes(t *testing.T) {
	t.Parallel()

	archive := tartest.New().Entry("foo/1.0/foo.cabal", nil, '5').Bytes() // directory type
	entries := readEntries(t, archive)
	require.Len(t, entries, 1)

	_, ok := classifyEntry(entries[0], false)
	assert.False(t, ok)
}
