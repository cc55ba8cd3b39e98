package inflate

import (
	"bytes"
	"strings"
	"testing"

	"github.com/klauspost/compress/flate"

	"github.com/google/go-cmp/cmp"
)

// bitWriter packs bits LSB-first within each byte, the inverse of
// bitReader, for constructing hand-verified RFC 1951 fixtures.
type bitWriter struct {
	buf   []byte
	cur   byte
	nbits uint
}

func (w *bitWriter) writeBit(b uint32) {
	w.cur |= byte(b&1) << w.nbits
	w.nbits++
	if w.nbits == 8 {
		w.buf = append(w.buf, w.cur)
		w.cur = 0
		w.nbits = 0
	}
}

// writeBits writes the low n bits of v, least-significant bit first —
// the packing DEFLATE uses for every field except Huffman codes.
func (w *bitWriter) writeBits(v uint32, n uint) {
	for i := uint(0); i < n; i++ {
		w.writeBit((v >> i) & 1)
	}
}

// writeHuffman writes a code's bits most-significant bit first, per RFC
// 1951 §3.1.1: "Huffman codes are packed starting with the most
// significant bit of the code".
func (w *bitWriter) writeHuffman(code uint32, length uint) {
	for i := length; i > 0; i-- {
		w.writeBit((code >> (i - 1)) & 1)
	}
}

func (w *bitWriter) bytes() []byte {
	if w.nbits > 0 {
		w.buf = append(w.buf, w.cur)
		w.cur, w.nbits = 0, 0
	}
	return w.buf
}

// fixedLitCode returns the RFC 1951 §3.2.6 fixed Huffman code and bit
// length for literal/length symbol sym (0..287).
func fixedLitCode(sym int) (code uint32, length uint) {
	switch {
	case sym <= 143:
		return uint32(0x30 + sym), 8
	case sym <= 255:
		return uint32(0x190 + (sym - 144)), 9
	case sym <= 279:
		return uint32(sym - 256), 7
	default:
		return uint32(0xC0 + (sym - 280)), 8
	}
}

// encodeFixedLiterals builds a single final fixed-Huffman block encoding
// data as a literal run with no back-references, followed by the
// end-of-block symbol.
func encodeFixedLiterals(data []byte) []byte {
	var w bitWriter
	w.writeBits(1, 1) // BFINAL
	w.writeBits(1, 2) // BTYPE = 01 (fixed Huffman)
	for _, b := range data {
		code, length := fixedLitCode(int(b))
		w.writeHuffman(code, length)
	}
	code, length := fixedLitCode(256) // end of block
	w.writeHuffman(code, length)
	return w.bytes()
}

// encodeStored builds a single final stored (uncompressed) block.
func encodeStored(data []byte) []byte {
	var w bitWriter
	w.writeBits(1, 1) // BFINAL
	w.writeBits(0, 2) // BTYPE = 00 (stored)
	raw := w.bytes()  // flush to byte boundary

	var buf bytes.Buffer
	buf.Write(raw)
	length := uint16(len(data))
	buf.WriteByte(byte(length))
	buf.WriteByte(byte(length >> 8))
	nlength := ^length
	buf.WriteByte(byte(nlength))
	buf.WriteByte(byte(nlength >> 8))
	buf.Write(data)
	return buf.Bytes()
}

// Scenario F — DEFLATE fixed block.
func TestInflateFixedHuffmanLiteralRun(t *testing.T) {
	want := "abracadabra"
	src := encodeFixedLiterals([]byte(want))
	dst := make([]byte, len(want))

	n, err := Inflate(src, dst)
	if err != nil {
		t.Fatalf("Inflate: %v", err)
	}
	if n != len(want) {
		t.Fatalf("Inflate wrote %d bytes, want %d", n, len(want))
	}
	if got := string(dst[:n]); got != want {
		t.Errorf("Inflate = %q, want %q", got, want)
	}
}

func TestInflateStoredBlock(t *testing.T) {
	want := []byte("a stored, uncompressed block")
	src := encodeStored(want)
	dst := make([]byte, len(want))

	n, err := Inflate(src, dst)
	if err != nil {
		t.Fatalf("Inflate: %v", err)
	}
	if diff := cmp.Diff(want, dst[:n]); diff != "" {
		t.Errorf("Inflate mismatch (-want +got):\n%s", diff)
	}
}

func TestInflateStoredBlockLengthMismatch(t *testing.T) {
	src := encodeStored([]byte("hello"))
	// Corrupt the one's-complement length field.
	src[3] ^= 0xFF
	dst := make([]byte, 5)
	if _, err := Inflate(src, dst); err != ErrStoredBlockMismatch {
		t.Fatalf("Inflate with corrupted stored length = %v, want ErrStoredBlockMismatch", err)
	}
}

func TestInflateShortOutputBuffer(t *testing.T) {
	src := encodeFixedLiterals([]byte("abracadabra"))
	dst := make([]byte, 3)
	if _, err := Inflate(src, dst); err != ErrShortOutput {
		t.Fatalf("Inflate into undersized buffer = %v, want ErrShortOutput", err)
	}
}

// TestInflateDynamicHuffmanRoundTrip exercises dynamic-Huffman blocks and
// length/distance match decoding (including short and long matches) via
// klauspost/compress/flate as a reference encoder — this module carries
// no compressor of its own.
func TestInflateDynamicHuffmanRoundTrip(t *testing.T) {
	for _, tt := range []struct {
		desc  string
		input string
	}{
		{desc: "repeated phrase", input: strings.Repeat("the quick brown fox jumps over the lazy dog. ", 40)},
		{desc: "offset-1 run", input: strings.Repeat("a", 500)},
		{desc: "mixed alphabet", input: strings.Repeat("abcabcabcabcxyzxyzxyz", 100) + "tail"},
		{desc: "short distance match", input: "abababababababababababababab"},
	} {
		t.Run(tt.desc, func(t *testing.T) {
			var compressed bytes.Buffer
			zw, err := flate.NewWriter(&compressed, flate.DefaultCompression)
			if err != nil {
				t.Fatalf("flate.NewWriter: %v", err)
			}
			if _, err := zw.Write([]byte(tt.input)); err != nil {
				t.Fatalf("Write: %v", err)
			}
			if err := zw.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}

			dst := make([]byte, len(tt.input))
			n, err := Inflate(compressed.Bytes(), dst)
			if err != nil {
				t.Fatalf("Inflate: %v", err)
			}
			if diff := cmp.Diff(tt.input, string(dst[:n])); diff != "" {
				t.Errorf("round-trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestInflateStoredViaReferenceEncoder(t *testing.T) {
	var compressed bytes.Buffer
	zw, err := flate.NewWriter(&compressed, flate.NoCompression)
	if err != nil {
		t.Fatalf("flate.NewWriter: %v", err)
	}
	input := "no compression, just framing"
	if _, err := zw.Write([]byte(input)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	dst := make([]byte, len(input))
	n, err := Inflate(compressed.Bytes(), dst)
	if err != nil {
		t.Fatalf("Inflate: %v", err)
	}
	if got := string(dst[:n]); got != input {
		t.Errorf("Inflate = %q, want %q", got, input)
	}
}
