package compress

import (
	"io"

	"github.com/klauspost/compress/zstd"
)

// ZstdReader wraps a response source so it can lazily construct the zstd
// decoder once the spooled input is complete.
type ZstdReader struct {
	src  *spoolingSource
	zr   *zstd.Decoder // initialized when the input is complete
	zerr error         // sticky decode error
}

func NewZstdReader(src io.Reader) *ZstdReader {
	return &ZstdReader{src: newSpoolingSource(src)}
}

func (zr *ZstdReader) Read(p []byte) (n int, err error) {
	if zr.zerr != nil {
		return 0, zr.zerr
	}
	if err := zr.src.ready(); err != nil {
		return 0, err
	}
	if zr.zr == nil {
		zr.zr, err = zstd.NewReader(zr.src)
		if err != nil {
			zr.zerr = err
			return 0, err
		}
	}
	return zr.zr.Read(p)
}
