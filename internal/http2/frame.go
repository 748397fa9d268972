package http2

import "fmt"

// The engine exchanges frames with the transport collaborator as in-memory
// records. Byte-level serialization and parsing of the wire format belong to
// the transport, not to this package.

// FrameType represents an HTTP/2 frame type.
type FrameType uint8

const (
	// FrameData is for DATA frames (0x0).
	FrameData FrameType = 0x0
	// FrameHeaders is for HEADERS frames (0x1).
	FrameHeaders FrameType = 0x1
	// FrameRSTStream is for RST_STREAM frames (0x3).
	FrameRSTStream FrameType = 0x3
	// FramePushPromise is for PUSH_PROMISE frames (0x5).
	FramePushPromise FrameType = 0x5
)

// String returns the string representation of the FrameType.
func (t FrameType) String() string {
	switch t {
	case FrameData:
		return "DATA"
	case FrameHeaders:
		return "HEADERS"
	case FrameRSTStream:
		return "RST_STREAM"
	case FramePushPromise:
		return "PUSH_PROMISE"
	default:
		return fmt.Sprintf("UNKNOWN_FRAME_TYPE_%d", uint8(t))
	}
}

// Flags represents flags for an HTTP/2 frame.
type Flags uint8

// Frame header flags.
const (
	// FlagDataEndStream indicates that this DATA frame is the last from the sender.
	FlagDataEndStream Flags = 0x1

	// FlagHeadersEndStream indicates that this HEADERS frame is the last from the sender.
	FlagHeadersEndStream Flags = 0x1
	// FlagHeadersEndHeaders indicates that this HEADERS frame contains an entire block of header fields.
	FlagHeadersEndHeaders Flags = 0x4

	// FlagPushPromiseEndHeaders indicates that this PUSH_PROMISE frame contains an entire block of header fields.
	FlagPushPromiseEndHeaders Flags = 0x4
)

const (
	// DefaultMaxFrameSize is the SETTINGS_MAX_FRAME_SIZE value in effect
	// before any negotiation, the minimum the RFC allows (2^14).
	DefaultMaxFrameSize uint32 = 16384

	// DefaultInitialWindowSize is the default initial window size for flow control.
	DefaultInitialWindowSize uint32 = 65535 // 2^16 - 1

	// DefaultMaxHeaderEntrySize bounds a single decoded header name or value.
	// Mirrors the limit handed to the header-block decoding stage.
	DefaultMaxHeaderEntrySize uint32 = 8192
)

// FrameHeader carries the fields of the 9-octet header common to all frames.
type FrameHeader struct {
	Length   uint32    // 24 bits on the wire
	Type     FrameType // 8 bits
	Flags    Flags     // 8 bits
	StreamID uint32    // 31 bits (R bit masked out)
}

// Frame is the interface for all frame records handed to or received from
// the transport collaborator.
type Frame interface {
	Header() *FrameHeader
}

// DataFrame represents an HTTP/2 DATA frame, already stripped of any padding
// by the transport.
type DataFrame struct {
	FrameHeader
	Data []byte
}

func (f *DataFrame) Header() *FrameHeader { return &f.FrameHeader }

// HeadersFrame represents an HTTP/2 HEADERS frame. The block fragment is the
// HPACK-compressed header block; priority fields are absent because stream
// priority is not implemented here.
type HeadersFrame struct {
	FrameHeader
	HeaderBlockFragment []byte
}

func (f *HeadersFrame) Header() *FrameHeader { return &f.FrameHeader }

// RSTStreamFrame represents an HTTP/2 RST_STREAM frame.
type RSTStreamFrame struct {
	FrameHeader
	ErrorCode ErrorCode
}

func (f *RSTStreamFrame) Header() *FrameHeader { return &f.FrameHeader }

// PushPromiseFrame represents an HTTP/2 PUSH_PROMISE frame.
type PushPromiseFrame struct {
	FrameHeader
	PromisedStreamID    uint32 // 31 bits (R bit masked out)
	HeaderBlockFragment []byte
}

func (f *PushPromiseFrame) Header() *FrameHeader { return &f.FrameHeader }

// rstStreamFrame builds the RST_STREAM record enqueued when a stream is
// locally reset.
func rstStreamFrame(streamID uint32, code ErrorCode) *RSTStreamFrame {
	return &RSTStreamFrame{
		FrameHeader: FrameHeader{
			Length:   4, // payload is the 4-byte error code
			Type:     FrameRSTStream,
			StreamID: streamID,
		},
		ErrorCode: code,
	}
}

// FrameSink is the outgoing-frame enqueue operation the connection's
// transport side exposes to the engine. flush requests that the frame jump
// ahead of pending bulk data and be written out promptly.
type FrameSink interface {
	EnqueueFrame(f Frame, flush bool) error
}
