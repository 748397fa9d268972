// Command h2drive drives the stream engine through one simulated exchange:
// a bound request, an inbound response, a trailing drain, and a rejected
// push promise. Frames never touch a socket; the peer is scripted in
// memory, which keeps the protocol engine observable end to end without any
// transport.
package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"golang.org/x/net/http2/hpack"

	"example.com/h2client/v2/internal/config"
	"example.com/h2client/v2/internal/http2"
	"example.com/h2client/v2/internal/logger"
)

// memorySink collects the frames the engine hands to the transport.
type memorySink struct {
	frames []http2.Frame
}

func (m *memorySink) EnqueueFrame(f http2.Frame, flush bool) error {
	m.frames = append(m.frames, f)
	return nil
}

// encodePeerBlock compresses header fields with the simulated peer's own
// HPACK encoder, producing the block our decoder receives.
func encodePeerBlock(enc *hpack.Encoder, buf *bytes.Buffer, fields []hpack.HeaderField) []byte {
	buf.Reset()
	for _, hf := range fields {
		if err := enc.WriteField(hf); err != nil {
			log.Fatalf("encoding peer header block: %v", err)
		}
	}
	block := make([]byte, buf.Len())
	copy(block, buf.Bytes())
	return block
}

func main() {
	cfg := &config.Config{}
	if len(os.Args) > 1 {
		loaded, err := config.Load(os.Args[1])
		if err != nil {
			log.Fatalf("loading config: %v", err)
		}
		cfg = loaded
	} else {
		cfg.ApplyDefaults()
	}

	lg, err := logger.New(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer lg.Close()

	sink := &memorySink{}
	conn := http2.NewConn(sink, http2.SettingsFromConfig(cfg.Protocol), lg)

	var bodyBuf bytes.Buffer
	req := &http2.Request{
		Method:    "GET",
		Scheme:    "https",
		Authority: "example.test",
		Path:      "/",
		// Pull everything available; the source's error tells the engine
		// whether to call again (ErrAgain) or finish the request (io.EOF).
		Handler: func(_ *http2.Request, src io.Reader) error {
			buf := make([]byte, 512)
			for {
				n, err := src.Read(buf)
				bodyBuf.Write(buf[:n])
				if err != nil {
					return err
				}
			}
		},
	}
	conn.Enqueue(req)

	stream := conn.OpenStream()
	if err := stream.SetupNextRequest(); err != nil {
		log.Fatalf("binding request: %v", err)
	}
	lg.Info("request bound", logger.LogFields{
		"stream_id": stream.ID(),
		"state":     stream.State().String(),
		"frames":    len(sink.frames),
	})

	// The scripted peer answers with HEADERS, then DATA flagged END_STREAM.
	var peerBuf bytes.Buffer
	peerEnc := hpack.NewEncoder(&peerBuf)
	respBlock := encodePeerBlock(peerEnc, &peerBuf, []hpack.HeaderField{
		{Name: ":status", Value: "200"},
		{Name: "content-type", Value: "text/plain"},
	})

	streamID := uint32(stream.ID())
	frames := []http2.Frame{
		&http2.HeadersFrame{
			FrameHeader: http2.FrameHeader{
				Length:   uint32(len(respBlock)),
				Type:     http2.FrameHeaders,
				Flags:    http2.FlagHeadersEndHeaders,
				StreamID: streamID,
			},
			HeaderBlockFragment: respBlock,
		},
		&http2.DataFrame{
			FrameHeader: http2.FrameHeader{
				Length:   uint32(len("hello, stream")),
				Type:     http2.FrameData,
				Flags:    http2.FlagDataEndStream,
				StreamID: streamID,
			},
			Data: []byte("hello, stream"),
		},
	}
	for _, f := range frames {
		if err := conn.DispatchFrame(f); err != nil {
			log.Fatalf("dispatching %s: %v", f.Header().Type, err)
		}
		if err := stream.Process(); err != nil && !errors.Is(err, http2.ErrAgain) && !errors.Is(err, io.EOF) {
			log.Fatalf("processing stream: %v", err)
		}
	}

	lg.Info("exchange complete", logger.LogFields{
		"stream_id": stream.ID(),
		"state":     stream.State().String(),
		"response":  bodyBuf.String(),
	})

	// A second exchange demonstrates push-promise negotiation: the promise
	// is refused, which shows up as an RST_STREAM in the sink.
	conn.Enqueue(&http2.Request{
		Method: "GET", Scheme: "https", Authority: "example.test", Path: "/page",
		Handler: func(_ *http2.Request, src io.Reader) error {
			buf := make([]byte, 512)
			for {
				if _, err := src.Read(buf); err != nil {
					return err
				}
			}
		},
	})
	parent := conn.OpenStream()
	if err := parent.SetupNextRequest(); err != nil {
		log.Fatalf("binding second request: %v", err)
	}

	promiseBlock := encodePeerBlock(peerEnc, &peerBuf, []hpack.HeaderField{
		{Name: ":method", Value: "GET"},
		{Name: ":scheme", Value: "https"},
		{Name: ":authority", Value: "example.test"},
		{Name: ":path", Value: "/style.css"},
	})
	framesBefore := len(sink.frames)
	err = conn.DispatchFrame(&http2.PushPromiseFrame{
		FrameHeader: http2.FrameHeader{
			Length:   uint32(len(promiseBlock)) + 4,
			Type:     http2.FramePushPromise,
			Flags:    http2.FlagPushPromiseEndHeaders,
			StreamID: uint32(parent.ID()),
		},
		PromisedStreamID:    2,
		HeaderBlockFragment: promiseBlock,
	})
	if err != nil {
		log.Fatalf("dispatching push promise: %v", err)
	}

	for _, f := range sink.frames[framesBefore:] {
		if rst, ok := f.(*http2.RSTStreamFrame); ok {
			lg.Info("push promise refused", logger.LogFields{
				"promised_stream_id": rst.StreamID,
				"code":               rst.ErrorCode.String(),
			})
		}
	}

	fmt.Printf("exchange done: %d frames enqueued, response %q\n",
		len(sink.frames), bodyBuf.String())
}
