package http2

import (
	"bytes"
	"compress/gzip"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/h2client/v2/internal/compress"
)

// The acceptor lets a request interpose a content-decoding reader between
// the buffering endpoint and its handler.
func TestAcceptorWrapsResponseInDecoder(t *testing.T) {
	c, _ := newTestConn(t)

	var encoded bytes.Buffer
	zw := gzip.NewWriter(&encoded)
	_, err := zw.Write([]byte("compressed response body"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	var body bytes.Buffer
	req := &Request{
		Method: "GET", Scheme: "https", Authority: "example.com", Path: "/",
		Accept: func(_ *Request, src *ResponseAggregate) io.Reader {
			return compress.NewReader(src, "gzip")
		},
		Handler: collectingHandler(&body),
	}
	s := bindRequest(t, c, req)

	require.NoError(t, s.HandleData(encoded.Bytes(), true))
	require.ErrorIs(t, s.Process(), io.EOF)
	assert.Equal(t, "compressed response body", body.String())
}

// A decoded body normally arrives across several DATA frames with drain
// passes in between; the decoder must ride out the endpoint's "not ready"
// phases and still finish the exchange once END_STREAM lands.
func TestAcceptorDecodesBodySpanningDataFrames(t *testing.T) {
	c, _ := newTestConn(t)

	var encoded bytes.Buffer
	zw := gzip.NewWriter(&encoded)
	_, err := zw.Write([]byte("compressed response body"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	var body bytes.Buffer
	req := &Request{
		Method: "GET", Scheme: "https", Authority: "example.com", Path: "/",
		Accept: func(_ *Request, src *ResponseAggregate) io.Reader {
			return compress.NewReader(src, "gzip")
		},
		Handler: collectingHandler(&body),
	}
	s := bindRequest(t, c, req)

	payload := encoded.Bytes()
	mid := len(payload) / 2
	require.NoError(t, s.HandleData(payload[:mid], false))
	require.ErrorIs(t, s.Process(), ErrAgain)
	assert.Same(t, req, s.Request(), "the request stays bound across a partial body")

	require.NoError(t, s.HandleData(payload[mid:], true))
	require.ErrorIs(t, s.Process(), io.EOF)

	assert.Equal(t, "compressed response body", body.String())
	assert.Nil(t, s.Request())
	assert.Equal(t, 0, c.WrittenCount())
	assert.Nil(t, s.response, "the endpoint is released once the exchange completes")
}

func TestAcceptorSeesRawEndpoint(t *testing.T) {
	c, _ := newTestConn(t)

	var captured *ResponseAggregate
	s := bindRequest(t, c, &Request{
		Method: "GET", Scheme: "https", Authority: "example.com", Path: "/",
		Accept: func(_ *Request, src *ResponseAggregate) io.Reader {
			captured = src
			return src
		},
		Handler: func(*Request, io.Reader) error { return io.EOF },
	})

	require.NoError(t, s.HandleData([]byte("x"), true))
	require.Same(t, captured, s.response)
	require.ErrorIs(t, s.Process(), io.EOF)
}
