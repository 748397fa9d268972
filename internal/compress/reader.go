// Package compress provides content-decoding readers for response bodies.
// A reader wraps the stream's response source lazily: nothing is read and no
// decoder is built until the first call to Read, so wrapping a source that
// never produces encoded bytes costs nothing.
//
// The sources these readers wrap are pull-based: an empty source reports a
// transient "not ready" error until the stream ends, and io.EOF only then.
// Stream decoders cannot tell "no data yet" from a truncated stream, so each
// reader spools the compressed bytes until the source reports io.EOF and
// surfaces the source's own verdict untouched in the meantime. The decoder
// only ever sees a complete input.
package compress

import (
	"bytes"
	"io"
)

// NewReader returns a reader decoding src according to contentEncoding, or
// nil if the encoding is unknown. "identity" and the empty string mean no
// decoding; callers should use src directly in that case.
func NewReader(src io.Reader, contentEncoding string) io.Reader {
	switch contentEncoding {
	case "gzip":
		return NewGzipReader(src)
	case "deflate":
		return NewDeflateReader(src)
	case "br":
		return NewBrotliReader(src)
	case "zstd":
		return NewZstdReader(src)
	}
	return nil
}

// spoolingSource accumulates the compressed input until the wrapped source
// reports io.EOF. Afterwards it serves the spooled bytes as an ordinary
// reader for a decoder to consume.
type spoolingSource struct {
	src io.Reader
	buf bytes.Buffer
	eof bool
}

func newSpoolingSource(src io.Reader) *spoolingSource {
	return &spoolingSource{src: src}
}

// ready drains the source into the spool. It returns nil once the source
// reported io.EOF; any other source error, the transient not-ready verdict
// included, is returned for the caller to surface as-is.
func (s *spoolingSource) ready() error {
	if s.eof {
		return nil
	}
	chunk := make([]byte, 4096)
	for {
		n, err := s.src.Read(chunk)
		if n > 0 {
			s.buf.Write(chunk[:n])
		}
		if err == io.EOF {
			s.eof = true
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (s *spoolingSource) Read(p []byte) (int, error) {
	return s.buf.Read(p)
}
