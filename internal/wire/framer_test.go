package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// feedAll feeds every chunk and collects the frames produced.
func feedAll(f *Framer, chunks ...[]byte) []string {
	var frames []string
	for _, chunk := range chunks {
		frames = append(frames, f.Feed(chunk)...)
	}

	return frames
}

func TestFramer_SingleChunk(t *testing.T) {
	var f Framer

	frames := f.Feed([]byte("{\"id\":1}\n{\"id\":2}\n"))
	require.Equal(t, []string{`{"id":1}`, `{"id":2}`}, frames)
	require.Zero(t, f.Pending())
}

func TestFramer_SplitPatternInvariance(t *testing.T) {
	// Feeding the same byte sequence in any split pattern must yield the
	// same frames in the same order as feeding it whole.
	input := []byte("{\"id\":1,\"result\":\"a\"}\n{\"id\":2}\nnoise line\n{\"method\":\"event\"}\n")

	var whole Framer

	want := whole.Feed(input)
	require.Len(t, want, 4)

	// Every two-chunk split.
	for i := 0; i <= len(input); i++ {
		var f Framer

		got := feedAll(&f, input[:i], input[i:])
		require.Equal(t, want, got, "split at %d", i)
		require.Zero(t, f.Pending())
	}

	// Every three-chunk split.
	for i := 0; i <= len(input); i++ {
		for j := i; j <= len(input); j++ {
			var f Framer

			got := feedAll(&f, input[:i], input[i:j], input[j:])
			require.Equal(t, want, got, "split at %d,%d", i, j)
		}
	}

	// Byte-at-a-time.
	var f Framer

	var got []string
	for _, b := range input {
		got = append(got, f.Feed([]byte{b})...)
	}

	require.Equal(t, want, got)
}

func TestFramer_PartialTailRetained(t *testing.T) {
	var f Framer

	require.Empty(t, f.Feed([]byte(`{"id":`)))
	require.Equal(t, 6, f.Pending())

	frames := f.Feed([]byte("1}\n"))
	require.Equal(t, []string{`{"id":1}`}, frames)
	require.Zero(t, f.Pending())
}

func TestFramer_BlankLinesFiltered(t *testing.T) {
	var f Framer

	frames := f.Feed([]byte("\n\na\n\n\nb\n\n"))
	require.Equal(t, []string{"a", "b"}, frames)
}

func TestFramer_CRLF(t *testing.T) {
	var f Framer

	frames := f.Feed([]byte("a\r\nb\r\n"))
	require.Equal(t, []string{"a", "b"}, frames)
}

func TestFramer_EmptyChunk(t *testing.T) {
	var f Framer

	require.Empty(t, f.Feed(nil))
	require.Empty(t, f.Feed([]byte{}))
	require.Zero(t, f.Pending())
}

func TestFramer_NoDelimiterBuffersEverything(t *testing.T) {
	var f Framer

	require.Empty(t, f.Feed([]byte("abc")))
	require.Empty(t, f.Feed([]byte("def")))
	require.Equal(t, 6, f.Pending())

	frames := f.Feed([]byte("\n"))
	require.Equal(t, []string{"abcdef"}, frames)
}
