package xcomp

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/distr1/siswa/container"
)

func buildXCompHeader(uncompressedBlockSize uint32) []byte {
	b := make([]byte, HeaderSize)
	binary.BigEndian.PutUint32(b[0:4], container.MagicXComp)
	binary.BigEndian.PutUint32(b[40:44], uncompressedBlockSize)
	return b
}

func buildBlockHeader(compBlockSize uint32, marker byte, uncompBlockSize uint16) []byte {
	b := make([]byte, BlockHeaderSize)
	binary.BigEndian.PutUint32(b[0:4], compBlockSize)
	b[4] = marker
	binary.BigEndian.PutUint16(b[5:7], uncompBlockSize)
	return b
}

func TestDecompressVerbatimBlocks(t *testing.T) {
	block0 := []byte("first block of sixteen!")[:16]
	block1 := []byte("second block....")[:16]

	var buf bytes.Buffer
	buf.Write(buildXCompHeader(16))
	buf.Write(buildBlockHeader(16, 1, 16))
	buf.Write(block0)
	buf.Write(buildBlockHeader(16, 1, 16))
	buf.Write(block1)
	buf.Write(buildBlockHeader(0, 0, 0)) // terminator

	c := &container.Handle{Data: buf.Bytes(), Length: buf.Len(), Kind: container.XCompressed}
	out := make([]byte, 64)

	got, err := Decompress(c, out)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	want := append(append([]byte{}, block0...), block1...)
	if !bytes.Equal(got.Data, want) {
		t.Errorf("Data = %q, want %q", got.Data, want)
	}
	if got.Kind != container.Regular {
		t.Errorf("Kind = %v, want Regular", got.Kind)
	}
}

func TestDecompressReturnsErrLZXUnsupported(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(buildXCompHeader(16))
	// uncomp_block_size (8) doesn't match header's uncompressed_block_size
	// (16), signaling a block that needs real LZX inflation.
	buf.Write(buildBlockHeader(4, 1, 8))
	buf.Write(make([]byte, 4))

	c := &container.Handle{Data: buf.Bytes(), Length: buf.Len(), Kind: container.XCompressed}
	if _, err := Decompress(c, make([]byte, 64)); err != ErrLZXUnsupported {
		t.Fatalf("Decompress = %v, want ErrLZXUnsupported", err)
	}
}

func TestDecompressAcceptsShortTerminator(t *testing.T) {
	block0 := []byte("exactly-sixteen!")

	var buf bytes.Buffer
	buf.Write(buildXCompHeader(16))
	buf.Write(buildBlockHeader(16, 1, 16))
	buf.Write(block0)
	buf.Write(buildBlockHeader(0, 0, 0)[:5]) // terminator, no reserved bytes

	c := &container.Handle{Data: buf.Bytes(), Length: buf.Len(), Kind: container.XCompressed}
	out := make([]byte, 64)

	got, err := Decompress(c, out)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(got.Data, block0) {
		t.Errorf("Data = %q, want %q", got.Data, block0)
	}
}

func TestDecompressRejectsWrongKind(t *testing.T) {
	c := &container.Handle{Data: make([]byte, HeaderSize), Length: HeaderSize, Kind: container.Regular}
	if _, err := Decompress(c, make([]byte, 16)); err != container.ErrWrongKind {
		t.Fatalf("Decompress on Regular handle = %v, want ErrWrongKind", err)
	}
}
