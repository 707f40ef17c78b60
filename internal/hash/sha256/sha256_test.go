package sha256

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHasher_HashDeterministic(t *testing.T) {
	t.Parallel()

	h := New()
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	require.Equal(t, want, h.Hash([]byte("hello world")))
	require.Equal(t, h.Hash([]byte("hello world")), h.Hash([]byte("hello world")))
}

func TestHasher_ETag(t *testing.T) {
	t.Parallel()

	h := New()
	require.Equal(t, `W/"b94d27b9934d3e08a52e52d7da7dabfa"`, h.ETag([]byte("hello world")))
	require.NotEqual(t, h.ETag([]byte("[]")), h.ETag([]byte("[{}]")))
}

func TestMatches(t *testing.T) {
	t.Parallel()

	etag := `W/"abc"`
	tests := []struct {
		header string
		want   bool
	}{
		{header: "", want: false},
		{header: `W/"abc"`, want: true},
		{header: `"abc"`, want: true},
		{header: `"zzz", W/"abc"`, want: true},
		{header: `"zzz"`, want: false},
		{header: `*`, want: true},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, Matches(tt.header, etag), "header %q", tt.header)
	}
}
