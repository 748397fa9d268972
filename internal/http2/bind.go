package http2

import "example.com/h2client/v2/internal/logger"

// SetupNextRequest binds the connection's oldest unsent request to this
// stream and emits its HEADERS frame.
//
// The request's wire representation is materialized if it was not already;
// the request moves from the unwritten to the written queue; its header list
// is compressed through the connection's shared HPACK context; and a single
// HEADERS frame flagged END_HEADERS|END_STREAM goes to the transport with a
// flush request. Splitting a request body across DATA frames is not
// supported, so the headers always close the local side: the stream ends up
// half-closed (local).
//
// Calling this with no unsent request available is a caller bug, reported as
// an internal error. Setup or compression failures propagate without a frame
// being emitted; the connection layer decides what to do with the stream.
func (s *Stream) SetupNextRequest() error {
	c := s.conn

	req := c.unwritten.Head()
	if req == nil {
		return NewConnectionError(ErrCodeInternalError,
			"stream binding requested with no unsent request available")
	}
	s.request = req

	if err := req.materialize(); err != nil {
		return err
	}

	c.unwritten.Remove(req)
	c.written.Push(req)

	body := req.wire.Body
	block, err := c.hpack.Encode(req.wire.Fields)
	if err != nil {
		return err
	}

	if len(body) == 0 {
		// Nothing left to send after the headers; the wire representation
		// has served its purpose.
		req.wire = nil
	}

	frame := &HeadersFrame{
		FrameHeader: FrameHeader{
			Length: uint32(len(block)),
			Type:   FrameHeaders,
			Flags:  FlagHeadersEndHeaders | FlagHeadersEndStream,
		},
		HeaderBlockFragment: block,
	}
	if err := c.enqueueStreamFrame(s, frame, true); err != nil {
		return err
	}

	c.log.Debug("request bound to stream", logger.LogFields{
		"stream_id": s.id,
		"method":    req.Method,
		"path":      req.Path,
		"unwritten": c.unwritten.Len(),
		"written":   c.written.Len(),
	})

	// Headers sent, END_STREAM included.
	return s.noteHeadersSent()
}
