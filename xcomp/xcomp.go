// Package xcomp parses the XCompression (LZX-family) container: a 48-byte
// big-endian header followed by a walk of per-block headers. Only the
// framing and the verbatim (non-LZX) block path are implemented; a block
// whose compressed and uncompressed sizes differ would require true LZX
// inflation, which is out of scope (spec.md Open Question 5) and reported
// via ErrLZXUnsupported rather than silently producing wrong bytes.
package xcomp

import (
	"errors"

	"github.com/distr1/siswa/byteorder"
	"github.com/distr1/siswa/container"
)

// HeaderSize is the fixed size, in bytes, of the XCompression header.
const HeaderSize = 48

// BlockHeaderSize is the fixed size, in bytes, of one block header:
// comp_block_size u32, marker u8, uncomp_block_size u16, 14 reserved bytes.
const BlockHeaderSize = 4 + 1 + 2 + 14

var (
	// ErrTruncatedHeader is returned when the buffer is too short to hold
	// the XCompression header or a block header it claims to have.
	ErrTruncatedHeader = errors.New("xcomp: truncated header")
	// ErrLZXUnsupported is returned when a block's compressed and
	// uncompressed sizes differ, meaning the block needs true LZX
	// inflation rather than a verbatim copy.
	ErrLZXUnsupported = errors.New("xcomp: LZX-compressed block not supported")
)

// Header is a byte-offset view of the 48-byte XCompression header.
type Header struct {
	data []byte
}

// ReadHeader interprets the first HeaderSize bytes of data as an
// XCompression header, verifying the magic.
func ReadHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, ErrTruncatedHeader
	}
	h := Header{data: data[:HeaderSize]}
	if h.Identifier() != container.MagicXComp {
		return Header{}, container.ErrWrongKind
	}
	return h, nil
}

func (h Header) Identifier() uint32         { return byteorder.BigEndian.Uint32(h.data[0:4]) }
func (h Header) Version() uint32            { return byteorder.BigEndian.Uint32(h.data[4:8]) }
func (h Header) Reserved() uint32           { return byteorder.BigEndian.Uint32(h.data[8:12]) }
func (h Header) ContextFlags() uint32       { return byteorder.BigEndian.Uint32(h.data[12:16]) }
func (h Header) WindowSize() uint32         { return byteorder.BigEndian.Uint32(h.data[16:20]) }
func (h Header) PartitionSize() uint32      { return byteorder.BigEndian.Uint32(h.data[20:24]) }
func (h Header) UncompressedSize() uint64   { return byteorder.BigEndian.Uint64(h.data[24:32]) }
func (h Header) CompressedSize() uint64     { return byteorder.BigEndian.Uint64(h.data[32:40]) }
func (h Header) UncompressedBlockSize() uint32 {
	return byteorder.BigEndian.Uint32(h.data[40:44])
}

// blockHeader is a byte-offset view of one 21-byte block header.
type blockHeader struct {
	data []byte
}

func readBlockHeader(data []byte) blockHeader {
	return blockHeader{data: data[:BlockHeaderSize]}
}

func (b blockHeader) compBlockSize() uint32   { return byteorder.BigEndian.Uint32(b.data[0:4]) }
func (b blockHeader) marker() byte            { return b.data[4] }
func (b blockHeader) uncompBlockSize() uint16 { return byteorder.BigEndian.Uint16(b.data[5:7]) }

// Decompress walks an XCompression container's block table, copying every
// full-size (verbatim) block into out and returning a Regular Handle over
// the written prefix. It stops at the first block whose marker is 0 (the
// on-disk terminator) or returns ErrLZXUnsupported at the first block that
// needs real LZX inflation.
func Decompress(c *container.Handle, out []byte) (*container.Handle, error) {
	if c.Kind != container.XCompressed {
		return nil, container.ErrWrongKind
	}
	hdr, err := ReadHeader(c.Data[:c.Length])
	if err != nil {
		return nil, err
	}

	pos := HeaderSize
	cursor := 0
	for {
		// Only comp_block_size (4 bytes) and marker (1 byte) need to be
		// present to decide whether this is the terminator block; the
		// remaining 16 bytes of the block header are only read once marker
		// says there's a real block here.
		if pos+5 > len(c.Data) {
			return nil, ErrTruncatedHeader
		}
		if c.Data[pos+4] == 0 {
			break
		}
		if pos+BlockHeaderSize > len(c.Data) {
			return nil, ErrTruncatedHeader
		}
		b := readBlockHeader(c.Data[pos : pos+BlockHeaderSize])
		pos += BlockHeaderSize

		compSize := int(b.compBlockSize())
		uncompSize := int(b.uncompBlockSize())
		if pos+compSize > len(c.Data) {
			return nil, ErrTruncatedHeader
		}

		if uint32(uncompSize) != hdr.UncompressedBlockSize() || compSize != uncompSize {
			return nil, ErrLZXUnsupported
		}
		if cursor+uncompSize > len(out) {
			return nil, errors.New("xcomp: output buffer too small")
		}
		copy(out[cursor:cursor+uncompSize], c.Data[pos:pos+compSize])
		cursor += uncompSize
		pos += compSize
	}

	return &container.Handle{
		Data:   out[:cursor],
		Length: cursor,
		Kind:   container.Regular,
	}, nil
}
