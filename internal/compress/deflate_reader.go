package compress

import (
	"compress/flate"
	"io"
)

// DeflateReader wraps a response source so it can lazily construct the
// flate reader once the spooled input is complete.
type DeflateReader struct {
	src *spoolingSource
	dr  io.ReadCloser // initialized when the input is complete
}

func NewDeflateReader(src io.Reader) *DeflateReader {
	return &DeflateReader{src: newSpoolingSource(src)}
}

func (df *DeflateReader) Read(p []byte) (n int, err error) {
	if err := df.src.ready(); err != nil {
		return 0, err
	}
	if df.dr == nil {
		df.dr = flate.NewReader(df.src)
	}
	return df.dr.Read(p)
}
