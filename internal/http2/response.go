package http2

import (
	"strings"

	"golang.org/x/net/http2/hpack"
)

// ResponseAggregate is the per-stream buffering endpoint for inbound frame
// payloads. The frame handlers append decoded header text and raw DATA
// bytes; the application handler pulls from the other end.
//
// Appending is a pure enqueue and never blocks. Reading never blocks either:
// when the buffer runs dry the aggregate consults its hold-open gate, which
// answers io.EOF only once the stream can receive nothing further and
// ErrAgain otherwise.
type ResponseAggregate struct {
	chunks [][]byte
	off    int // read offset into chunks[0]

	holdOpen func() error // gate consulted when the buffer is empty

	destroyed bool
}

// newResponseAggregate creates an endpoint whose end-of-file signal is
// controlled by holdOpen.
func newResponseAggregate(holdOpen func() error) *ResponseAggregate {
	return &ResponseAggregate{holdOpen: holdOpen}
}

// Append enqueues a payload chunk. The aggregate takes ownership of p.
func (a *ResponseAggregate) Append(p []byte) {
	if a.destroyed || len(p) == 0 {
		return
	}
	a.chunks = append(a.chunks, p)
}

// AppendHeaderBlock enqueues a decoded header block rendered as header
// lines, one "name: value" line per field with a blank line terminating the
// block, which is the textual form the response consumer parses.
func (a *ResponseAggregate) AppendHeaderBlock(fields []hpack.HeaderField) {
	var sb strings.Builder
	for _, hf := range fields {
		sb.WriteString(hf.Name)
		sb.WriteString(": ")
		sb.WriteString(hf.Value)
		sb.WriteString("\r\n")
	}
	sb.WriteString("\r\n")
	a.Append([]byte(sb.String()))
}

// Buffered returns the number of unconsumed bytes.
func (a *ResponseAggregate) Buffered() int {
	n := -a.off
	for _, c := range a.chunks {
		n += len(c)
	}
	return n
}

// Read implements io.Reader over the buffered chunks. With nothing buffered
// it returns the hold-open gate's verdict: (0, ErrAgain) while the stream is
// still receiving, (0, io.EOF) once it cannot receive more.
func (a *ResponseAggregate) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) && len(a.chunks) > 0 {
		c := a.chunks[0]
		copied := copy(p[n:], c[a.off:])
		n += copied
		a.off += copied
		if a.off == len(c) {
			a.chunks = a.chunks[1:]
			a.off = 0
		}
	}
	if n > 0 {
		return n, nil
	}
	return 0, a.holdOpen()
}

// ReadSlices is the vectorized drain primitive: it consumes and returns up
// to max buffered chunks without copying. With nothing buffered it returns
// the hold-open gate's verdict, like Read.
func (a *ResponseAggregate) ReadSlices(max int) ([][]byte, error) {
	if len(a.chunks) == 0 {
		return nil, a.holdOpen()
	}
	n := len(a.chunks)
	if n > max {
		n = max
	}
	out := make([][]byte, n)
	for i := 0; i < n; i++ {
		c := a.chunks[i]
		if i == 0 && a.off > 0 {
			c = c[a.off:]
		}
		out[i] = c
	}
	a.chunks = a.chunks[n:]
	a.off = 0
	return out, nil
}

// destroy drops the buffered data. Destruction happens exactly once per
// stream, guarded by the stream's releaseResponse; calling it again is
// harmless.
func (a *ResponseAggregate) destroy() {
	a.chunks = nil
	a.off = 0
	a.destroyed = true
}
