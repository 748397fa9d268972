package http2

import (
	"fmt"
	"sync/atomic"

	"example.com/h2client/v2/internal/config"
	"example.com/h2client/v2/internal/logger"
)

// Settings captures the negotiated parameters the stream engine needs.
// Negotiating them (SETTINGS frames) is the transport layer's concern; the
// engine only consumes the agreed values.
type Settings struct {
	// InitialSendWindow primes a new stream's send window (the peer's
	// SETTINGS_INITIAL_WINDOW_SIZE).
	InitialSendWindow uint32
	// InitialRecvWindow primes a new stream's receive window (our
	// advertised SETTINGS_INITIAL_WINDOW_SIZE).
	InitialRecvWindow uint32
	// MaxFrameSize caps a single frame payload.
	MaxFrameSize uint32
	// HeaderTableSize sizes the HPACK dynamic tables.
	HeaderTableSize uint32
	// MaxHeaderEntrySize bounds one decoded header name or value.
	MaxHeaderEntrySize uint32
	// EnablePush is our SETTINGS_ENABLE_PUSH; with it off, an arriving
	// PUSH_PROMISE is a protocol error.
	EnablePush bool
}

// DefaultSettings returns the pre-negotiation defaults of RFC 7540.
func DefaultSettings() Settings {
	return Settings{
		InitialSendWindow:  DefaultInitialWindowSize,
		InitialRecvWindow:  DefaultInitialWindowSize,
		MaxFrameSize:       DefaultMaxFrameSize,
		HeaderTableSize:    4096,
		MaxHeaderEntrySize: DefaultMaxHeaderEntrySize,
		EnablePush:         true,
	}
}

// SettingsFromConfig overlays configured protocol values onto the defaults.
func SettingsFromConfig(cfg *config.ProtocolConfig) Settings {
	s := DefaultSettings()
	if cfg == nil {
		return s
	}
	if cfg.InitialWindowSize != nil {
		s.InitialSendWindow = *cfg.InitialWindowSize
		s.InitialRecvWindow = *cfg.InitialWindowSize
	}
	if cfg.MaxFrameSize != nil {
		s.MaxFrameSize = *cfg.MaxFrameSize
	}
	if cfg.HeaderTableSize != nil {
		s.HeaderTableSize = *cfg.HeaderTableSize
	}
	if cfg.MaxHeaderEntrySize != nil {
		s.MaxHeaderEntrySize = *cfg.MaxHeaderEntrySize
	}
	if cfg.EnablePush != nil {
		s.EnablePush = *cfg.EnablePush
	}
	return s
}

// PromisePolicy decides whether a reserved stream announced by PUSH_PROMISE
// should be accepted. An accepting policy must bind a request to the stream
// before returning true; otherwise the stream is reset with REFUSED_STREAM.
type PromisePolicy func(promised *Stream) bool

// Conn is the per-connection state the stream engine works against: the
// outgoing frame sink, the shared header-compression context, the request
// queues, and the stream table. The transport and settings negotiation live
// outside; Conn is their meeting point with the streams.
//
// All methods are driven from a single dispatch loop and are not safe for
// concurrent use, except stream-id allocation which is atomic.
type Conn struct {
	sink  FrameSink
	hpack *HpackAdapter
	log   *logger.Logger

	settings Settings

	// nextStreamID is the next client-originated stream id. Client streams
	// are odd; the counter only grows.
	nextStreamID atomic.Uint32

	// lastPromisedID trails the peer's reserved stream ids to enforce
	// monotonic assignment.
	lastPromisedID uint32

	unwritten *RequestQueue // requests not yet bound to a stream
	written   *RequestQueue // requests on the wire awaiting responses

	streams map[uint32]*Stream

	// PromisePolicy decides accept/reject for pushed streams. Nil means
	// reject everything, which is the default behavior.
	PromisePolicy PromisePolicy
}

// NewConn creates the connection core. sink receives every outgoing frame;
// log must not be nil (use logger.NewDiscard to silence).
func NewConn(sink FrameSink, settings Settings, log *logger.Logger) *Conn {
	c := &Conn{
		sink:      sink,
		hpack:     NewHpackAdapter(settings.HeaderTableSize, settings.MaxHeaderEntrySize),
		log:       log,
		settings:  settings,
		unwritten: NewRequestQueue(),
		written:   NewRequestQueue(),
		streams:   make(map[uint32]*Stream),
	}
	c.nextStreamID.Store(1)
	return c
}

// Settings returns the connection's negotiated parameters.
func (c *Conn) Settings() Settings { return c.settings }

// Hpack returns the shared header-compression context.
func (c *Conn) Hpack() *HpackAdapter { return c.hpack }

// UnwrittenCount returns the number of requests waiting to be sent.
func (c *Conn) UnwrittenCount() int { return c.unwritten.Len() }

// WrittenCount returns the number of in-flight requests.
func (c *Conn) WrittenCount() int { return c.written.Len() }

// Enqueue adds a request to the unsent queue.
func (c *Conn) Enqueue(req *Request) {
	c.unwritten.Push(req)
}

// OpenStream creates a client-originated stream. Its id stays unassigned
// until the stream's first frame is enqueued.
func (c *Conn) OpenStream() *Stream {
	return newStream(c, noStreamID, c.settings.InitialSendWindow, c.settings.InitialRecvWindow)
}

// StreamByID looks up a live stream.
func (c *Conn) StreamByID(id uint32) *Stream {
	return c.streams[id]
}

// allocStreamID atomically hands out the next odd client stream id.
func (c *Conn) allocStreamID() uint32 {
	return c.nextStreamID.Add(2) - 2
}

// reserveStream registers the peer-reserved child stream a PUSH_PROMISE
// announces. Promised ids must be even and strictly increasing.
func (c *Conn) reserveStream(promisedID uint32) (*Stream, error) {
	if promisedID == 0 || promisedID%2 != 0 {
		return nil, NewConnectionError(ErrCodeProtocolError,
			fmt.Sprintf("peer promised invalid stream id %d", promisedID))
	}
	if promisedID <= c.lastPromisedID {
		return nil, NewConnectionError(ErrCodeProtocolError,
			fmt.Sprintf("peer promised stream id %d out of order (last %d)", promisedID, c.lastPromisedID))
	}
	c.lastPromisedID = promisedID

	s := newStream(c, int32(promisedID), c.settings.InitialSendWindow, c.settings.InitialRecvWindow)
	if err := s.transition(StreamStateReservedRemote); err != nil {
		return nil, err
	}
	c.streams[promisedID] = s
	return s, nil
}

// enqueueStreamFrame hands a stream's outgoing frame to the transport,
// assigning the stream id first if this is the stream's first frame.
func (c *Conn) enqueueStreamFrame(s *Stream, f Frame, flush bool) error {
	if s.id < 0 {
		if err := s.setID(c.allocStreamID()); err != nil {
			return err
		}
		c.streams[uint32(s.id)] = s
	}
	f.Header().StreamID = uint32(s.id)
	return c.sink.EnqueueFrame(f, flush)
}

// enqueueStreamReset sends the best-effort RST_STREAM notification for a
// locally reset stream.
func (c *Conn) enqueueStreamReset(streamID uint32, code ErrorCode) error {
	c.log.Debug("enqueueing RST_STREAM", logger.LogFields{
		"stream_id": streamID,
		"code":      code.String(),
	})
	return c.sink.EnqueueFrame(rstStreamFrame(streamID, code), true)
}

// DispatchFrame routes one inbound frame, delivered in wire arrival order by
// the transport's read loop, to its stream's handler.
func (c *Conn) DispatchFrame(f Frame) error {
	hdr := f.Header()
	s := c.streams[hdr.StreamID]
	if s == nil {
		// The stream table may legitimately have dropped the stream (e.g.
		// frames in flight after a local reset); late frames are ignored.
		c.log.Debug("dropping frame for unknown stream", logger.LogFields{
			"stream_id": hdr.StreamID,
			"type":      hdr.Type.String(),
		})
		return nil
	}

	switch fr := f.(type) {
	case *HeadersFrame:
		return s.HandleHeaders(fr.HeaderBlockFragment, hdr.Flags&FlagHeadersEndStream != 0)
	case *DataFrame:
		return s.HandleData(fr.Data, hdr.Flags&FlagDataEndStream != 0)
	case *PushPromiseFrame:
		return s.HandlePushPromise(fr.PromisedStreamID, fr.HeaderBlockFragment, hdr.Flags&FlagPushPromiseEndHeaders != 0)
	case *RSTStreamFrame:
		return s.Reset(NewStreamError(hdr.StreamID, fr.ErrorCode, "reset by peer"), false)
	default:
		return NewConnectionError(ErrCodeProtocolError,
			fmt.Sprintf("unroutable frame type %s", hdr.Type))
	}
}

// ReleaseStream drops a stream from the table once it is closed and its
// response endpoint has been released, then frees whatever it still holds.
// It reports whether the stream was actually released.
func (c *Conn) ReleaseStream(s *Stream) bool {
	if s.state != StreamStateClosed || s.response != nil {
		return false
	}
	if s.id >= 0 {
		delete(c.streams, uint32(s.id))
	}
	s.Cleanup()
	return true
}
