package http2

import (
	"bytes"
	"testing"

	"golang.org/x/net/http2/hpack"

	"example.com/h2client/v2/internal/logger"
)

// sinkEntry is one frame handed to the test sink, with its flush flag.
type sinkEntry struct {
	frame Frame
	flush bool
}

// testSink is an in-memory FrameSink recording every enqueued frame.
type testSink struct {
	entries []sinkEntry
	err     error // when set, EnqueueFrame fails with it
}

func (ts *testSink) EnqueueFrame(f Frame, flush bool) error {
	if ts.err != nil {
		return ts.err
	}
	ts.entries = append(ts.entries, sinkEntry{frame: f, flush: flush})
	return nil
}

func (ts *testSink) frames() []Frame {
	out := make([]Frame, len(ts.entries))
	for i, e := range ts.entries {
		out[i] = e.frame
	}
	return out
}

func (ts *testSink) rstFrames() []*RSTStreamFrame {
	var out []*RSTStreamFrame
	for _, e := range ts.entries {
		if rst, ok := e.frame.(*RSTStreamFrame); ok {
			out = append(out, rst)
		}
	}
	return out
}

// newTestConn builds a connection core over a recording sink with default
// settings and silent logging.
func newTestConn(t *testing.T) (*Conn, *testSink) {
	t.Helper()
	sink := &testSink{}
	return NewConn(sink, DefaultSettings(), logger.NewDiscard()), sink
}

// peerEncoder simulates the peer's HPACK encoder; its dynamic table state
// persists across blocks the way a real peer's would.
type peerEncoder struct {
	buf bytes.Buffer
	enc *hpack.Encoder
}

func newPeerEncoder() *peerEncoder {
	p := &peerEncoder{}
	p.enc = hpack.NewEncoder(&p.buf)
	return p
}

func (p *peerEncoder) encode(t *testing.T, fields []hpack.HeaderField) []byte {
	t.Helper()
	p.buf.Reset()
	for _, hf := range fields {
		if err := p.enc.WriteField(hf); err != nil {
			t.Fatalf("peer hpack encode: %v", err)
		}
	}
	block := make([]byte, p.buf.Len())
	copy(block, p.buf.Bytes())
	return block
}

// respFields is a minimal response header block.
func respFields(status string) []hpack.HeaderField {
	return []hpack.HeaderField{{Name: ":status", Value: status}}
}
