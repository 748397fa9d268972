package compress

import (
	"io"

	"github.com/andybalholm/brotli"
)

// BrotliReader wraps a response source so it can lazily construct the
// brotli reader once the spooled input is complete.
type BrotliReader struct {
	src *spoolingSource
	br  io.Reader // initialized when the input is complete
}

func NewBrotliReader(src io.Reader) *BrotliReader {
	return &BrotliReader{src: newSpoolingSource(src)}
}

func (br *BrotliReader) Read(p []byte) (n int, err error) {
	if err := br.src.ready(); err != nil {
		return 0, err
	}
	if br.br == nil {
		br.br = brotli.NewReader(br.src)
	}
	return br.br.Read(p)
}
