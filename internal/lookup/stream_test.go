package lookup

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func feed(results ...Result) <-chan Result {
	ch := make(chan Result, len(results))
	for _, r := range results {
		ch <- r
	}
	close(ch)
	return ch
}

type flushCounter struct {
	bytes.Buffer
	flushes int
}

func (f *flushCounter) Flush() { f.flushes++ }

func TestWriteStream_WellFormedArray(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	n, err := WriteStream(&buf, feed(
		Result{ID: "a", Metatags: Metatags{ID: "a", Name: "A"}},
		Result{ID: "b", Metatags: Metatags{ID: "b", Name: "B"}},
		Result{ID: "c", Metatags: Metatags{ID: "c", Name: "C"}},
	))
	require.NoError(t, err)
	require.Equal(t, 3, n)

	var decoded []Metatags
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 3)
	require.Equal(t, byte('['), buf.Bytes()[0])
	require.NotContains(t, buf.String(), "[,")
	require.NotContains(t, buf.String(), ",]")
}

func TestWriteStream_Empty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	n, err := WriteStream(&buf, feed())
	require.NoError(t, err)
	require.Zero(t, n)
	require.Equal(t, "[]", buf.String())
}

func TestWriteStream_StopsOnError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	var buf bytes.Buffer
	n, err := WriteStream(&buf, feed(
		Result{ID: "a", Metatags: Metatags{ID: "a"}},
		Result{ID: "b", Err: boom},
	))
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, n)
	require.False(t, json.Valid(buf.Bytes()), "partial output must not be valid JSON: %s", buf.String())
}

func TestArrayWriter_FlushesEachElement(t *testing.T) {
	t.Parallel()

	w := &flushCounter{}
	aw := NewArrayWriter(w)
	require.NoError(t, aw.Write(Metatags{ID: "a"}))
	require.NoError(t, aw.Write(Metatags{ID: "b"}))
	require.NoError(t, aw.Close())
	require.NoError(t, aw.Close())
	require.Equal(t, 3, w.flushes)
	require.Error(t, aw.Write(Metatags{ID: "c"}))
	require.True(t, json.Valid(w.Bytes()))
}
