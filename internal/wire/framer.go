package wire

import "bytes"

// Framer reassembles raw byte chunks into newline-delimited frames.
//
// Feed may be called with chunks split at arbitrary byte boundaries; the
// sequence of frames produced depends only on the concatenated input, never
// on the split pattern. The zero value is ready to use. A Framer is not safe
// for concurrent use; the transport read loop is its only caller.
type Framer struct {
	// buf holds the tail of the input after the last delimiter.
	buf []byte
}

// Feed appends chunk to the internal buffer and returns all complete frames
// discovered, in arrival order. Blank lines are filtered out. Framing is
// delimiter-based and content-agnostic, so Feed never fails.
func (f *Framer) Feed(chunk []byte) []string {
	if len(chunk) == 0 {
		return nil
	}

	f.buf = append(f.buf, chunk...)

	if !bytes.ContainsRune(chunk, '\n') {
		return nil
	}

	segments := bytes.Split(f.buf, []byte{'\n'})

	// Everything after the last delimiter stays buffered for the next chunk.
	// Copy it out so frames and buffer never alias the same backing array.
	tail := segments[len(segments)-1]
	f.buf = append(f.buf[:0:0], tail...)

	frames := make([]string, 0, len(segments)-1)

	for _, seg := range segments[:len(segments)-1] {
		// Tolerate CRLF line endings from the daemon.
		seg = bytes.TrimSuffix(seg, []byte{'\r'})
		if len(seg) == 0 {
			continue
		}

		frames = append(frames, string(seg))
	}

	return frames
}

// Pending returns the number of buffered bytes awaiting a delimiter.
func (f *Framer) Pending() int {
	return len(f.buf)
}
