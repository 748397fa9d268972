package http2

import (
	"errors"
	"io"

	"example.com/h2client/v2/internal/logger"
)

// drainBatchSize caps how many buffered chunks one vectorized read consumes
// while discarding trailing data.
const drainBatchSize = 16

// HandleHeaders processes an inbound HEADERS frame payload: the block is
// decompressed through the connection's shared HPACK context and appended to
// the stream's buffering endpoint, which is created on first use. Appending
// never blocks. If the frame carried END_STREAM the lifecycle transition is
// applied after the append.
//
// A closed stream still runs the block through the decoder: the dynamic
// table is connection-wide state the peer updated with this block (RFC 7541,
// Section 2.3.2). The decoded fields are discarded and no transition occurs.
func (s *Stream) HandleHeaders(block []byte, endStream bool) error {
	h := s.conn.hpack
	h.BeginBlock(nil)
	if err := h.DecodeFragment(block); err != nil {
		return err
	}
	fields, err := h.FinishBlock()
	if err != nil {
		return err
	}

	if s.state == StreamStateClosed {
		return nil
	}
	if s.response == nil {
		s.setupResponse()
	}
	s.response.AppendHeaderBlock(fields)

	if endStream {
		return s.noteEndStream()
	}
	return nil
}

// HandleData processes an inbound DATA frame payload: the receive window is
// charged for the bytes and the payload is appended raw to the buffering
// endpoint, created on first use. A payload exceeding the stream's
// receive-window credit is the peer violating flow control.
//
// On a closed stream this is a no-op.
func (s *Stream) HandleData(payload []byte, endStream bool) error {
	if s.state == StreamStateClosed {
		return nil
	}
	if err := s.recvWindow.Consume(uint32(len(payload))); err != nil {
		return err
	}
	if s.response == nil {
		s.setupResponse()
	}
	s.response.Append(payload)

	if endStream {
		return s.noteEndStream()
	}
	return nil
}

// Process is the per-stream drain loop, invoked once the stream's buffering
// endpoint has data ready.
//
// While a request is bound its handler is advanced first; "more data needed"
// returns to the caller immediately. A terminal handler result unlinks the
// request from the connection's written bookkeeping and releases it. Hard
// read errors reset the stream with the error as reason and propagate.
// Plain end-of-file falls through to drain whatever trailing bytes remain
// (padding, bogus content-length leftovers), discarding them. Once the drain
// reports end-of-file and the stream can receive nothing further, the
// buffering endpoint is destroyed; that destruction happens exactly once.
//
// The returned error is ErrAgain when the stream merely ran out of buffered
// data, io.EOF once the stream is fully consumed, or a hard error.
func (s *Stream) Process() error {
	if s.response == nil {
		if s.state == StreamStateClosed {
			// Already fully drained and released; a repeat invocation must
			// not touch the endpoint again.
			return io.EOF
		}
		return NewConnectionError(ErrCodeInternalError,
			"stream processed without a response endpoint")
	}

	if req := s.request; req != nil {
		if req.response == nil {
			return NewConnectionError(ErrCodeInternalError,
				"bound request has no response consumer")
		}

		err := req.Handler(req, req.response)
		if err == nil || errors.Is(err, ErrAgain) {
			// The handler wants more data; nothing else to do yet.
			return err
		}

		// The handler is done with the request, one way or the other.
		// Unbind it and drop it from the in-flight bookkeeping.
		s.conn.written.Remove(req)
		req.destroy()
		s.request = nil

		if IsReadError(err) {
			if s.state != StreamStateClosed {
				// Tell the peer we are no longer interested in the rest.
				s.Reset(err, true)
			}
			return err
		}

		// err is io.EOF: the request finished, but the stream may still
		// hold trailing bytes we were supposed to read. Fall through and
		// eat whatever is left; usually this is nothing.
	}

	// Trailing data with no request left to want it is discarded.
	var err error
	for err == nil {
		_, err = s.response.ReadSlices(drainBatchSize)
	}

	if errors.Is(err, io.EOF) &&
		(s.state == StreamStateClosed || s.state == StreamStateHalfClosedRemote) {
		s.conn.log.Debug("stream fully drained, releasing response endpoint", logger.LogFields{
			"stream_id": s.id,
			"state":     s.state.String(),
		})
		s.releaseResponse()
	}

	return err
}
