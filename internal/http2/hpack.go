package http2

import (
	"bytes"
	"fmt"

	"golang.org/x/net/http2/hpack"
)

// HpackAdapter is the engine's handle on the connection's shared header
// compression context. It wraps golang.org/x/net/http2/hpack's Encoder and
// Decoder; the codec itself (varint, Huffman, table eviction) lives entirely
// in that package.
//
// The dynamic tables are connection-wide shared state: only one header block
// may be encoded or decoded at a time. The single-threaded dispatch loop
// guarantees that by construction.
type HpackAdapter struct {
	encoder   *hpack.Encoder
	encodeBuf *bytes.Buffer

	decoder       *hpack.Decoder
	decodedFields []hpack.HeaderField
	onField       func(hpack.HeaderField) // per-block emit hook, optional

	maxEntrySize uint32
}

// NewHpackAdapter creates the shared compression context. tableSize is the
// HPACK dynamic table size for both directions; maxEntrySize bounds a single
// decoded name or value string.
func NewHpackAdapter(tableSize, maxEntrySize uint32) *HpackAdapter {
	h := &HpackAdapter{
		encodeBuf:    new(bytes.Buffer),
		maxEntrySize: maxEntrySize,
	}
	h.encoder = hpack.NewEncoder(h.encodeBuf)
	h.encoder.SetMaxDynamicTableSize(tableSize)
	h.decoder = hpack.NewDecoder(tableSize, h.emitHeaderField)
	h.decoder.SetMaxStringLength(int(maxEntrySize))
	return h
}

// emitHeaderField is the hpack.Decoder callback. Decoded fields accumulate on
// the adapter until the block is finished; the per-block hook, when set, sees
// each field as it is decoded.
func (h *HpackAdapter) emitHeaderField(hf hpack.HeaderField) {
	h.decodedFields = append(h.decodedFields, hf)
	if h.onField != nil {
		h.onField(hf)
	}
}

// BeginBlock starts decoding a new header block. onField is an optional
// per-field callback invoked for every field in the block, in order; pass nil
// when only the collected result matters.
func (h *HpackAdapter) BeginBlock(onField func(hpack.HeaderField)) {
	h.decodedFields = nil
	h.onField = onField
}

// DecodeFragment feeds one fragment of the current header block to the
// decoder. Fields decoded so far accumulate internally until FinishBlock.
func (h *HpackAdapter) DecodeFragment(fragment []byte) error {
	if _, err := h.decoder.Write(fragment); err != nil {
		return NewConnectionErrorWithCause(ErrCodeCompressionError,
			"hpack decoding failed", err)
	}
	return nil
}

// FinishBlock finalizes the current header block, returning every field it
// contained. The decoder validates the block's end state; a truncated or
// malformed block surfaces here as a COMPRESSION_ERROR.
func (h *HpackAdapter) FinishBlock() ([]hpack.HeaderField, error) {
	err := h.decoder.Close()
	fields := h.decodedFields
	h.decodedFields = nil
	h.onField = nil
	if err != nil {
		return fields, NewConnectionErrorWithCause(ErrCodeCompressionError,
			"hpack block did not terminate cleanly", err)
	}
	return fields, nil
}

// Encode compresses a list of header fields into a single header block.
// The returned slice is a copy; the internal buffer is reused per call.
func (h *HpackAdapter) Encode(fields []hpack.HeaderField) ([]byte, error) {
	h.encodeBuf.Reset()
	for _, hf := range fields {
		if hf.Name == "" {
			return nil, fmt.Errorf("hpack: empty header field name (value %q)", hf.Value)
		}
		if err := h.encoder.WriteField(hf); err != nil {
			return nil, fmt.Errorf("hpack: encoding header field %q: %w", hf.Name, err)
		}
	}
	block := make([]byte, h.encodeBuf.Len())
	copy(block, h.encodeBuf.Bytes())
	return block, nil
}

// MaxEntrySize returns the per-entry string bound the decode stage enforces.
func (h *HpackAdapter) MaxEntrySize() uint32 {
	return h.maxEntrySize
}
