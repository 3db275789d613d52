package repoindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Version
		ok   bool
	}{
		{"1", Version{1}, true},
		{"1.0", Version{1, 0}, true},
		{"0.23.101", Version{0, 23, 101}, true},
		{"", nil, false},
		{"1.", nil, false},
		{".1", nil, false},
		{"1.x", nil, false},
		{"1.-2", nil, false},
		{"v1.0", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			v, err := ParseVersion(tt.in)
			if !tt.ok {
				require.ErrorIs(t, err, ErrVersionSyntax)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
			assert.Equal(t, tt.in, v.String())
		})
	}
}

func TestVersionCompare(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want int
	}{
		{"1.0", "1.0", 0},
		{"1.0", "1.1", -1},
		{"1.1", "1.0", 1},
		{"1.0", "1.0.0", -1},
		{"2", "10", -1},
		{"1.10", "1.9", 1},
	}
	for _, tt := range tests {
		a, err := ParseVersion(tt.a)
		require.NoError(t, err)
		b, err := ParseVersion(tt.b)
		require.NoError(t, err)
		assert.Equal(t, tt.want, a.Compare(b), "%s vs %s", tt.a, tt.b)
	}
}

func TestParseConstraint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		name    string
		inside  []string
		outside []string
	}{
		{
			in:      "foo",
			name:    "foo",
			inside:  []string{"0.1", "99.0"},
			outside: nil,
		},
		{
			in:      "base >= 4.3 && < 4.16",
			name:    "base",
			inside:  []string{"4.3", "4.10", "4.15.999"},
			outside: []string{"4.2", "4.16", "5.0"},
		},
		{
			in:      "foo == 1.0 || == 2.0",
			name:    "foo",
			inside:  []string{"1.0", "2.0"},
			outside: []string{"1.5", "1.0.0"},
		},
		{
			in:      "foo > 1.0 && (< 2.0 || == 3.0)",
			name:    "foo",
			inside:  []string{"1.5", "3.0"},
			outside: []string{"1.0", "2.5"},
		},
		{
			in:      "foo <= 2.0",
			name:    "foo",
			inside:  []string{"2.0", "1.9"},
			outside: []string{"2.0.1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			con, err := ParseConstraint(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.name, con.Name)
			for _, s := range tt.inside {
				v, err := ParseVersion(s)
				require.NoError(t, err)
				assert.True(t, con.Range.Contains(v), "%s should be inside %s", s, tt.in)
			}
			for _, s := range tt.outside {
				v, err := ParseVersion(s)
				require.NoError(t, err)
				assert.False(t, con.Range.Contains(v), "%s should be outside %s", s, tt.in)
			}
		})
	}
}

func TestParseConstraintErrors(t *testing.T) {
	t.Parallel()

	for _, in := range []string{
		"",
		"foo >=",
		"foo >= 1.0 &&",
		"foo >= 1.0 extra",
		"foo & 1.0",
		"foo (>= 1.0",
		"bad_name >= 1.0",
		">= 1.0",
	} {
		_, err := ParseConstraint(in)
		assert.ErrorIs(t, err, ErrVersionSyntax, "input %q", in)
	}
}

func TestVersionRangeIntersect(t *testing.T) {
	t.Parallel()

	lower, err := ParseConstraint("foo >= 1.0")
	require.NoError(t, err)
	upper, err := ParseConstraint("foo < 2.0")
	require.NoError(t, err)

	// Intersection outcome is order-independent.
	ab := lower.Range.Intersect(upper.Range)
	ba := upper.Range.Intersect(lower.Range)
	for _, s := range []string{"0.9", "1.0", "1.5", "2.0"} {
		v, err := ParseVersion(s)
		require.NoError(t, err)
		assert.Equal(t, ab.Contains(v), ba.Contains(v), "version %s", s)
	}

	v15, err := ParseVersion("1.5")
	require.NoError(t, err)
	v25, err := ParseVersion("2.5")
	require.NoError(t, err)
	assert.True(t, ab.Contains(v15))
	assert.False(t, ab.Contains(v25))

	// AnyVersion is the identity of intersection.
	assert.True(t, AnyVersion().Intersect(ab).Contains(v15))
	assert.False(t, ab.Intersect(AnyVersion()).Contains(v25))
}
