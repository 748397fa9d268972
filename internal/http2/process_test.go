package http2

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/http2/hpack"
)

// collectingHandler drains src into out, propagating the endpoint's verdict.
func collectingHandler(out *bytes.Buffer) Handler {
	return func(req *Request, src io.Reader) error {
		buf := make([]byte, 512)
		for {
			n, err := src.Read(buf)
			if n > 0 {
				out.Write(buf[:n])
			}
			if err != nil {
				return err
			}
		}
	}
}

func bindRequest(t *testing.T, c *Conn, req *Request) *Stream {
	t.Helper()
	c.Enqueue(req)
	s := c.OpenStream()
	require.NoError(t, s.SetupNextRequest())
	return s
}

func TestProcessCompleteExchange(t *testing.T) {
	c, _ := newTestConn(t)
	var body bytes.Buffer
	req := &Request{
		Method: "GET", Scheme: "https", Authority: "example.com", Path: "/",
		Handler: collectingHandler(&body),
	}
	s := bindRequest(t, c, req)
	peer := newPeerEncoder()

	require.NoError(t, s.HandleHeaders(peer.encode(t, respFields("200")), false))

	// Mid-response the handler only gets "not ready" back.
	require.ErrorIs(t, s.Process(), ErrAgain)
	assert.Same(t, req, s.Request())

	require.NoError(t, s.HandleData([]byte("hello"), true))
	assert.Equal(t, StreamStateClosed, s.State())

	require.ErrorIs(t, s.Process(), io.EOF)
	assert.Contains(t, body.String(), ":status: 200\r\n")
	assert.Contains(t, body.String(), "hello")

	// The request was unlinked and released; the endpoint is gone.
	assert.Nil(t, s.Request())
	assert.Equal(t, 0, c.WrittenCount())
	assert.Nil(t, s.response)

	// A repeat drain after release stays a no-op.
	require.ErrorIs(t, s.Process(), io.EOF)
}

func TestProcessHeadersEndStreamClosesHalfClosedLocal(t *testing.T) {
	c, _ := newTestConn(t)
	var body bytes.Buffer
	s := bindRequest(t, c, &Request{
		Method: "HEAD", Scheme: "https", Authority: "example.com", Path: "/",
		Handler: collectingHandler(&body),
	})
	require.Equal(t, StreamStateHalfClosedLocal, s.State())
	peer := newPeerEncoder()

	require.NoError(t, s.HandleHeaders(peer.encode(t, respFields("204")), true))
	assert.Equal(t, StreamStateClosed, s.State())
	require.NotNil(t, s.response, "the endpoint is created even when END_STREAM rides the headers")

	require.ErrorIs(t, s.Process(), io.EOF)
	assert.Equal(t, ":status: 204\r\n\r\n", body.String())
}

func TestProcessDiscardsTrailingDataWithoutRequest(t *testing.T) {
	c, _ := newTestConn(t)
	s := newStream(c, 1, DefaultInitialWindowSize, DefaultInitialWindowSize)
	require.NoError(t, s.transition(StreamStateHalfClosedLocal))

	require.NoError(t, s.HandleData([]byte("leftover"), true))
	assert.Equal(t, StreamStateClosed, s.State())
	assert.Equal(t, 8, s.response.Buffered())

	require.ErrorIs(t, s.Process(), io.EOF)
	assert.Nil(t, s.response, "trailing bytes are drained and the endpoint destroyed")
}

func TestProcessHoldsEndpointOpenWhileReceiving(t *testing.T) {
	c, _ := newTestConn(t)
	s := newStream(c, 1, DefaultInitialWindowSize, DefaultInitialWindowSize)
	require.NoError(t, s.transition(StreamStateHalfClosedLocal))

	require.NoError(t, s.HandleData([]byte("partial"), false))
	require.ErrorIs(t, s.Process(), ErrAgain)
	require.NotNil(t, s.response, "the endpoint survives until end of stream")
	assert.Equal(t, 0, s.response.Buffered(), "buffered bytes were consumed")
}

func TestProcessHardHandlerError(t *testing.T) {
	c, sink := newTestConn(t)
	hard := NewStreamError(0, ErrCodeEnhanceYourCalm, "handler gave up")
	req := &Request{
		Method: "GET", Scheme: "https", Authority: "example.com", Path: "/",
		Handler: func(*Request, io.Reader) error { return hard },
	}
	s := bindRequest(t, c, req)
	peer := newPeerEncoder()
	require.NoError(t, s.HandleHeaders(peer.encode(t, respFields("200")), false))

	err := s.Process()
	require.ErrorIs(t, err, hard)

	// The request was unlinked and the stream reset toward the peer with the
	// error's code.
	assert.Nil(t, s.Request())
	assert.Equal(t, 0, c.WrittenCount())
	assert.Equal(t, StreamStateClosed, s.State())
	rsts := sink.rstFrames()
	require.Len(t, rsts, 1)
	assert.Equal(t, ErrCodeEnhanceYourCalm, rsts[0].ErrorCode)
	assert.Equal(t, uint32(s.ID()), rsts[0].Header().StreamID)
}

func TestProcessGenericHandlerErrorResetsWithCancel(t *testing.T) {
	c, sink := newTestConn(t)
	boom := errors.New("connection interrupted")
	s := bindRequest(t, c, &Request{
		Method: "GET", Scheme: "https", Authority: "example.com", Path: "/",
		Handler: func(*Request, io.Reader) error { return boom },
	})
	peer := newPeerEncoder()
	require.NoError(t, s.HandleHeaders(peer.encode(t, respFields("200")), false))

	require.ErrorIs(t, s.Process(), boom)
	rsts := sink.rstFrames()
	require.Len(t, rsts, 1)
	assert.Equal(t, ErrCodeCancel, rsts[0].ErrorCode)
}

func TestProcessWithoutEndpointIsInternalError(t *testing.T) {
	c, _ := newTestConn(t)
	s := bindRequest(t, c, &Request{
		Method: "GET", Scheme: "https", Authority: "example.com", Path: "/",
		Handler: func(*Request, io.Reader) error { return io.EOF },
	})

	err := s.Process()
	var ce *ConnectionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrCodeInternalError, ce.Code)
}

func TestHandleDataChargesReceiveWindow(t *testing.T) {
	c, _ := newTestConn(t)
	s := newStream(c, 1, DefaultInitialWindowSize, 4)
	require.NoError(t, s.transition(StreamStateHalfClosedLocal))

	require.NoError(t, s.HandleData([]byte("1234"), false))

	err := s.HandleData([]byte("5"), false)
	var se *StreamError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ErrCodeFlowControlError, se.Code)
}

func TestHandlersIgnoreClosedStream(t *testing.T) {
	c, _ := newTestConn(t)
	s := newStream(c, 1, DefaultInitialWindowSize, DefaultInitialWindowSize)
	require.NoError(t, s.Reset(NewStreamError(1, ErrCodeCancel, "gone"), false))
	peer := newPeerEncoder()

	require.NoError(t, s.HandleHeaders(peer.encode(t, respFields("200")), true))
	require.NoError(t, s.HandleData([]byte("late"), true))
	assert.Equal(t, StreamStateClosed, s.State())
	assert.Nil(t, s.response, "late frames must not resurrect the endpoint")
}

func TestClosedStreamHeadersKeepDecoderTableInSync(t *testing.T) {
	c, _ := newTestConn(t)
	peer := newPeerEncoder()

	closed := newStream(c, 1, DefaultInitialWindowSize, DefaultInitialWindowSize)
	require.NoError(t, closed.Reset(NewStreamError(1, ErrCodeCancel, "gone"), false))

	// The first block installs a dynamic table entry on the peer's side.
	fields := []hpack.HeaderField{{Name: "x-trace-id", Value: "abc123def456"}}
	require.NoError(t, closed.HandleHeaders(peer.encode(t, fields), true))
	assert.Nil(t, closed.response)

	// The second block references that entry by index; decoding it on a
	// live stream only works if the closed stream's block went through the
	// shared decoder too.
	live := newStream(c, 3, DefaultInitialWindowSize, DefaultInitialWindowSize)
	require.NoError(t, live.transition(StreamStateHalfClosedLocal))
	require.NoError(t, live.HandleHeaders(peer.encode(t, fields), true))

	buf := make([]byte, 256)
	n, err := live.response.Read(buf)
	require.NoError(t, err)
	assert.Contains(t, string(buf[:n]), "x-trace-id: abc123def456")
}
