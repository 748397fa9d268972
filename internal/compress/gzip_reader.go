package compress

import (
	"compress/gzip"
	"io"
)

// GzipReader wraps a response source so it can lazily call gzip.NewReader
// once the spooled input is complete.
type GzipReader struct {
	src  *spoolingSource
	zr   *gzip.Reader // initialized when the input is complete
	zerr error        // sticky decode error
}

func NewGzipReader(src io.Reader) *GzipReader {
	return &GzipReader{src: newSpoolingSource(src)}
}

func (gz *GzipReader) Read(p []byte) (n int, err error) {
	if gz.zerr != nil {
		return 0, gz.zerr
	}
	if err := gz.src.ready(); err != nil {
		return 0, err
	}
	if gz.zr == nil {
		gz.zr, err = gzip.NewReader(gz.src)
		if err != nil {
			gz.zerr = err
			return 0, err
		}
	}
	return gz.zr.Read(p)
}
