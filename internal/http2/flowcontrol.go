package http2

import "fmt"

// MaxWindowSize is the maximum value a flow control window can reach (2^31 - 1).
// As per RFC 7540, 6.9.1.
const MaxWindowSize = (1 << 31) - 1

// FlowControlWindow tracks the byte credit available in one direction of a
// stream. The engine only does the bookkeeping: windows are consumed as
// payload bytes flow and replenished when the connection layer processes
// WINDOW_UPDATE; emitting those frames is the connection layer's job.
//
// Nothing here blocks. A send that would overrun the window is the caller's
// error to detect via Available before building a frame.
type FlowControlWindow struct {
	available int64
	streamID  uint32 // for error reporting only
}

// NewFlowControlWindow creates a window primed with initialSize credit.
// For new streams this is the applicable SETTINGS_INITIAL_WINDOW_SIZE.
func NewFlowControlWindow(initialSize uint32, streamID uint32) *FlowControlWindow {
	if initialSize > MaxWindowSize {
		initialSize = MaxWindowSize
	}
	return &FlowControlWindow{
		available: int64(initialSize),
		streamID:  streamID,
	}
}

// Available returns the current credit. It can be negative after a
// mid-stream SETTINGS_INITIAL_WINDOW_SIZE reduction; senders must treat a
// non-positive window as empty.
func (w *FlowControlWindow) Available() int64 {
	return w.available
}

// Consume reduces the window by n payload bytes. Driving the window negative
// through received DATA is the peer violating flow control.
func (w *FlowControlWindow) Consume(n uint32) error {
	if int64(n) > w.available {
		return NewStreamError(w.streamID, ErrCodeFlowControlError,
			fmt.Sprintf("flow control window exceeded: %d bytes against %d available", n, w.available))
	}
	w.available -= int64(n)
	return nil
}

// Replenish increases the window by a WINDOW_UPDATE increment. A resulting
// window above 2^31-1 is a flow-control error per RFC 7540, 6.9.1; the
// window is left unchanged in that case.
func (w *FlowControlWindow) Replenish(n uint32) error {
	newSize := w.available + int64(n)
	if newSize > MaxWindowSize {
		return NewStreamError(w.streamID, ErrCodeFlowControlError,
			fmt.Sprintf("flow control window would overflow: %d + %d > %d", w.available, n, int64(MaxWindowSize)))
	}
	w.available = newSize
	return nil
}

// Adjust applies a signed delta when SETTINGS_INITIAL_WINDOW_SIZE changes
// mid-connection (RFC 7540, 6.9.2). The result may legitimately be negative.
func (w *FlowControlWindow) Adjust(delta int64) error {
	newSize := w.available + delta
	if newSize > MaxWindowSize {
		return NewStreamError(w.streamID, ErrCodeFlowControlError,
			fmt.Sprintf("initial window size change drives window above maximum: %d", newSize))
	}
	w.available = newSize
	return nil
}
