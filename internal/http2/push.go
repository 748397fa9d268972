package http2

import (
	"golang.org/x/net/http2/hpack"

	"example.com/h2client/v2/internal/logger"
)

// HandlePushPromise processes an inbound PUSH_PROMISE frame payload on this
// (parent) stream.
//
// The first fragment of a promise block reserves the promised child stream
// and records it as the parent's pending promise; at most one promise may be
// in flight per parent at a time. Every decoded field is captured on the
// child via the decode stage's per-field callback so a later accept decision
// can be matched against it. When the block completes (endHeaders), the
// negotiation finishes: the pending promise is cleared exactly once and the
// accept/reject decision runs.
func (s *Stream) HandlePushPromise(promisedID uint32, fragment []byte, endHeaders bool) error {
	if s.state == StreamStateClosed {
		return nil
	}
	if !s.conn.settings.EnablePush {
		return NewConnectionError(ErrCodeProtocolError,
			"PUSH_PROMISE received with push disabled")
	}

	if s.pendingPromise != nil && uint32(s.pendingPromise.id) != promisedID {
		return NewConnectionError(ErrCodeProtocolError,
			"promise fragment for a different stream while a promise block is open")
	}

	if s.pendingPromise == nil {
		promised, err := s.conn.reserveStream(promisedID)
		if err != nil {
			return err
		}
		s.pendingPromise = promised

		// Store each promised field on the reserved stream so the
		// application could, in principle, be asked whether it is
		// interested. Promised resources tend to be pushed before the
		// response that references them, so the fields are kept for
		// matching against later requests rather than inspected here.
		s.conn.hpack.BeginBlock(func(hf hpack.HeaderField) {
			promised.promisedHeaders = append(promised.promisedHeaders, hf)
		})
	}

	if err := s.conn.hpack.DecodeFragment(fragment); err != nil {
		return err
	}
	if !endHeaders {
		return nil
	}
	if _, err := s.conn.hpack.FinishBlock(); err != nil {
		return err
	}
	return s.finishPromise()
}

// finishPromise is the promise block's completion callback: it ends the
// promise window on the parent and settles the reserved stream's fate.
func (s *Stream) finishPromise() error {
	promised := s.pendingPromise
	if promised == nil {
		return NewConnectionError(ErrCodeInternalError,
			"promise completion with no pending promise")
	}
	if promised.state != StreamStateReservedRemote {
		return NewConnectionError(ErrCodeInternalError,
			"promised stream in state "+promised.state.String()+" at decision time")
	}

	// End of PUSH_PROMISE: the next promise on this parent may now begin.
	s.pendingPromise = nil

	accepted := false
	if policy := s.conn.PromisePolicy; policy != nil {
		accepted = policy(promised)
	}
	if !accepted {
		if err := promised.Reset(
			NewStreamError(uint32(promised.id), ErrCodeRefusedStream, "push not accepted"),
			true,
		); err != nil {
			return err
		}
	}

	// Exit condition: either the stream was accepted and is ready to
	// receive HEADERS and DATA (a request is bound to it), or it was
	// rejected and is closed. Anything else is a policy bug.
	if promised.state != StreamStateClosed && promised.request == nil {
		return NewConnectionError(ErrCodeInternalError,
			"promise decision left stream neither closed nor bound")
	}

	s.conn.log.Debug("push promise settled", logger.LogFields{
		"parent_stream_id":   s.id,
		"promised_stream_id": promised.id,
		"accepted":           accepted,
	})
	return nil
}
