package http2

import (
	"io"

	"example.com/h2client/v2/internal/logger"
	"golang.org/x/net/http2/hpack"
)

// StreamState represents the lifecycle state of a client-side HTTP/2 stream.
//
// The set is the client-perspective subset of RFC 7540, Section 5.1: a
// request's headers always carry END_STREAM here (no chunked request
// bodies), so a stream never observes the fully "open" state. INIT is local
// bookkeeping for a stream whose id has not been assigned yet.
type StreamState uint8

const (
	// StreamStateInit is a client-originated stream before its id exists.
	// Ids are assigned when the first frame is actually enqueued, not at
	// stream creation.
	StreamStateInit StreamState = iota

	// StreamStateIdle is a stream with an id that has sent nothing yet.
	StreamStateIdle

	// StreamStateReservedRemote is a stream the peer reserved via
	// PUSH_PROMISE, pending our accept/reject decision.
	StreamStateReservedRemote

	// StreamStateHalfClosedLocal means we sent END_STREAM; the response may
	// still arrive.
	StreamStateHalfClosedLocal

	// StreamStateHalfClosedRemote means the peer sent END_STREAM while our
	// side is still open.
	StreamStateHalfClosedRemote

	// StreamStateClosed is terminal. No transition leads out of it; all
	// operations on a closed stream are no-ops except resource release.
	StreamStateClosed
)

// String returns a string representation of the StreamState.
func (s StreamState) String() string {
	switch s {
	case StreamStateInit:
		return "init"
	case StreamStateIdle:
		return "idle"
	case StreamStateReservedRemote:
		return "reserved (remote)"
	case StreamStateHalfClosedLocal:
		return "half-closed (local)"
	case StreamStateHalfClosedRemote:
		return "half-closed (remote)"
	case StreamStateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// noStreamID marks a stream whose id has not been assigned yet.
const noStreamID int32 = -1

// Stream represents one multiplexed request/response exchange on a
// connection.
//
// A stream may outlive the request that drove it: once the handler signals
// completion the request is released while the stream keeps draining
// trailing bytes. The response aggregate, once created, is destroyed exactly
// once, after the stream closed and every buffered byte was consumed.
type Stream struct {
	conn *Conn

	id    int32 // noStreamID until the first frame is enqueued
	state StreamState

	sendWindow *FlowControlWindow
	recvWindow *FlowControlWindow

	request  *Request           // nil once the request completed
	response *ResponseAggregate // created lazily on first inbound HEADERS or DATA

	// pendingPromise is the reserved child stream currently receiving a
	// PUSH_PROMISE header block. At most one may be outstanding per parent;
	// it is cleared when the promise block finishes.
	pendingPromise *Stream

	// promisedHeaders are the fields announced when this stream was
	// reserved, kept so an accepting promise policy can match them against a
	// later request.
	promisedHeaders []hpack.HeaderField
}

// newStream creates a stream record. id < 0 creates a client-originated
// stream whose id will be assigned at first frame enqueue; id >= 0 adopts a
// peer-assigned id (push promise reservations).
func newStream(conn *Conn, id int32, sendWindow, recvWindow uint32) *Stream {
	s := &Stream{
		conn:       conn,
		id:         id,
		sendWindow: NewFlowControlWindow(sendWindow, streamIDForWindow(id)),
		recvWindow: NewFlowControlWindow(recvWindow, streamIDForWindow(id)),
	}
	if id >= 0 {
		s.state = StreamStateIdle
	} else {
		s.id = noStreamID
		s.state = StreamStateInit
	}
	return s
}

func streamIDForWindow(id int32) uint32 {
	if id < 0 {
		return 0
	}
	return uint32(id)
}

// ID returns the stream id, or a negative value if none was assigned yet.
func (s *Stream) ID() int32 { return s.id }

// State returns the stream's lifecycle state.
func (s *Stream) State() StreamState { return s.state }

// Request returns the bound request, or nil if none is bound. A nil request
// does not imply the stream is closed; streams outlive requests.
func (s *Stream) Request() *Request { return s.request }

// PromisedHeaders returns the header fields announced when this stream was
// reserved by a PUSH_PROMISE, in arrival order.
func (s *Stream) PromisedHeaders() []hpack.HeaderField { return s.promisedHeaders }

// canTransition is the single source of truth for legal state moves.
// Resets bypass it deliberately; see Reset.
func canTransition(from, to StreamState) bool {
	switch from {
	case StreamStateInit:
		return to == StreamStateIdle
	case StreamStateIdle:
		return to == StreamStateReservedRemote ||
			to == StreamStateHalfClosedLocal ||
			to == StreamStateHalfClosedRemote
	case StreamStateReservedRemote:
		return to == StreamStateHalfClosedRemote
	case StreamStateHalfClosedLocal:
		return to == StreamStateClosed
	case StreamStateHalfClosedRemote:
		return to == StreamStateClosed
	default: // StreamStateClosed is terminal
		return false
	}
}

// transition moves the stream to a new state, enforcing the lifecycle table
// in one place: no backward moves, closed is terminal.
func (s *Stream) transition(to StreamState) error {
	if s.state == to {
		return nil
	}
	if !canTransition(s.state, to) {
		return NewConnectionError(ErrCodeInternalError,
			"illegal stream state transition from "+s.state.String()+" to "+to.String())
	}
	s.conn.log.Debug("stream state transition", logger.LogFields{
		"stream_id": s.id,
		"from":      s.state.String(),
		"to":        to.String(),
	})
	s.state = to
	return nil
}

// setID adopts the id allocated when the stream's first frame is enqueued.
// Ids are assigned at most once.
func (s *Stream) setID(id uint32) error {
	if s.id >= 0 {
		return NewConnectionError(ErrCodeInternalError, "stream id assigned twice")
	}
	s.id = int32(id)
	s.sendWindow.streamID = id
	s.recvWindow.streamID = id
	return s.transition(StreamStateIdle)
}

// noteHeadersSent records that the request HEADERS frame, flagged
// END_STREAM, was handed to the transport.
func (s *Stream) noteHeadersSent() error {
	return s.transition(StreamStateHalfClosedLocal)
}

// noteEndStream applies an inbound END_STREAM flag: a stream that already
// closed its local side becomes closed; one whose local side is still open
// becomes half-closed (remote).
func (s *Stream) noteEndStream() error {
	if s.state == StreamStateHalfClosedLocal {
		return s.transition(StreamStateClosed)
	}
	return s.transition(StreamStateHalfClosedRemote)
}

// Reset cancels the stream, forcing it to the closed state. It is
// idempotent and safe from any error path.
//
// When local is true and the peer ever learned of this stream, a RST_STREAM
// frame carrying reason's error code is enqueued as a best-effort
// notification. A stream whose id was never assigned produces no wire
// message: the peer does not know it exists.
func (s *Stream) Reset(reason error, local bool) error {
	if s.state == StreamStateClosed {
		return nil
	}
	s.state = StreamStateClosed
	s.conn.log.Debug("stream reset", logger.LogFields{
		"stream_id": s.id,
		"local":     local,
		"reason":    reason,
	})

	if s.id < 0 {
		return nil
	}
	if local {
		return s.conn.enqueueStreamReset(uint32(s.id), ResetCodeForError(reason))
	}
	return nil
}

// responseEOF is the hold-open gate of the response aggregate: it reports
// end-of-file only once the peer can send nothing further on this stream.
// Anything earlier is "not ready yet", so a consumer blocks for more data
// instead of concluding the exchange prematurely.
func (s *Stream) responseEOF() error {
	switch s.state {
	case StreamStateClosed, StreamStateHalfClosedRemote:
		return io.EOF
	default:
		return ErrAgain
	}
}

// setupResponse creates the buffering endpoint for inbound payload and wires
// it to the bound request's consumer. Called lazily on the first inbound
// HEADERS or DATA frame.
func (s *Stream) setupResponse() {
	agg := newResponseAggregate(s.responseEOF)

	if req := s.request; req != nil && req.response == nil {
		if req.Accept != nil {
			req.response = req.Accept(req, agg)
		} else {
			req.response = agg
		}
	}

	s.response = agg
}

// releaseResponse destroys the buffering endpoint. This is the single
// destruction point; calling it again is a no-op.
func (s *Stream) releaseResponse() {
	if s.response == nil {
		return
	}
	s.response.destroy()
	s.response = nil
}

// Cleanup releases whatever the stream still owns. The connection's stream
// table calls it when discarding a stream; it is safe to call more than once
// and regardless of how far the stream got.
func (s *Stream) Cleanup() {
	s.releaseResponse()
	if s.request != nil {
		s.request.destroy()
		s.request = nil
	}
	s.pendingPromise = nil
}
