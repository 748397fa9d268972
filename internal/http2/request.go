package http2

import (
	"io"
	"strings"

	"golang.org/x/net/http2/hpack"
)

// Handler consumes the response of a request. src is the stream's buffering
// endpoint (possibly wrapped by the request's Accept hook). The handler is
// called repeatedly from the dispatch loop as data arrives and reports:
//
//   - nil or ErrAgain: more data is needed; call again later.
//   - io.EOF: the response was fully consumed.
//   - anything else: a hard read error; the stream will be reset with it.
type Handler func(req *Request, src io.Reader) error

// Acceptor lets a request interpose on the raw buffering endpoint before the
// handler sees it, e.g. to wrap it in a content-decoding reader.
type Acceptor func(req *Request, src *ResponseAggregate) io.Reader

// Request is one application request to be sent on a stream. The engine
// treats it mostly as opaque: it materializes the wire-level header list,
// hands the compressed block to the transport, and drives Handler with the
// assembled response.
type Request struct {
	Method    string
	Scheme    string
	Authority string
	Path      string

	// Extra header fields beyond the pseudo-headers, in order.
	Extra []hpack.HeaderField

	// Body is the request body; nil or empty means the request carries no
	// body and its headers close the local side of the stream.
	Body []byte

	// Setup finalizes the request just before its wire representation is
	// built, if set. It runs at most once.
	Setup func(req *Request) error

	Accept  Acceptor
	Handler Handler

	// HandlerData is opaque context carried for the handler.
	HandlerData interface{}

	wire     *requestWire
	response io.Reader // created when the stream's response endpoint appears
}

// requestWire is the materialized wire-level representation of a request:
// the full ordered header list and the body bytes, ready for framing.
type requestWire struct {
	Fields []hpack.HeaderField
	Body   []byte
}

// materialize builds the request's wire representation unless it already
// exists, running the Setup hook first.
func (r *Request) materialize() error {
	if r.wire != nil {
		return nil
	}
	if r.Setup != nil {
		if err := r.Setup(r); err != nil {
			return err
		}
	}

	fields := make([]hpack.HeaderField, 0, 4+len(r.Extra))
	fields = append(fields,
		hpack.HeaderField{Name: ":method", Value: r.Method},
		hpack.HeaderField{Name: ":scheme", Value: r.Scheme},
		hpack.HeaderField{Name: ":authority", Value: r.Authority},
		hpack.HeaderField{Name: ":path", Value: r.Path},
	)
	for _, hf := range r.Extra {
		fields = append(fields, hpack.HeaderField{
			Name:  strings.ToLower(hf.Name),
			Value: hf.Value,
		})
	}

	r.wire = &requestWire{Fields: fields, Body: r.Body}
	return nil
}

// destroy releases the request's resources once the handler reported a
// terminal condition (or the owning stream is torn down).
func (r *Request) destroy() {
	r.wire = nil
	r.response = nil
}
