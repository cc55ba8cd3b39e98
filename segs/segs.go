// Package segs decompresses the SEGS container: a big-endian chunk table
// wrapping alternating verbatim and DEFLATE-compressed ranges. Each chunk is
// inflated (or copied verbatim) independently and concatenated into a
// single Regular container.Handle.
package segs

import (
	"errors"

	"github.com/distr1/siswa/byteorder"
	"github.com/distr1/siswa/container"
	"github.com/distr1/siswa/inflate"

	"golang.org/x/xerrors"
)

// HeaderSize is the fixed size, in bytes, of the SEGS header.
const HeaderSize = 16

// ChunkEntrySize is the fixed size, in bytes, of one chunk table entry.
const ChunkEntrySize = 8

var (
	// ErrTruncatedHeader is returned when the buffer is too short to hold
	// the SEGS header or its chunk table.
	ErrTruncatedHeader = errors.New("segs: truncated header")
	// ErrShortOutput is returned when out is too small to hold the
	// decompressed stream.
	ErrShortOutput = errors.New("segs: output buffer too small")
)

// Header is a byte-offset view of the 16-byte SEGS header, read
// big-endian per spec.md §3.
type Header struct {
	data []byte
}

// ReadHeader interprets the first HeaderSize bytes of data as a SEGS
// header, verifying the magic.
func ReadHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, ErrTruncatedHeader
	}
	h := Header{data: data[:HeaderSize]}
	if h.Identifier() != container.MagicSegs {
		return Header{}, container.ErrWrongKind
	}
	return h, nil
}

func (h Header) Identifier() uint32       { return byteorder.BigEndian.Uint32(h.data[0:4]) }
func (h Header) Dummy() uint16            { return byteorder.BigEndian.Uint16(h.data[4:6]) }
func (h Header) ChunkCount() uint16       { return byteorder.BigEndian.Uint16(h.data[6:8]) }
func (h Header) UncompressedSize() uint32 { return byteorder.BigEndian.Uint32(h.data[8:12]) }
func (h Header) CompressedSize() uint32   { return byteorder.BigEndian.Uint32(h.data[12:16]) }

// chunkEntry is a byte-offset view of one 8-byte chunk table entry.
type chunkEntry struct {
	data []byte
}

func readChunkEntry(data []byte) chunkEntry {
	return chunkEntry{data: data[:ChunkEntrySize]}
}

// compressedSize is stored as 0 to mean 65536 — see uSize.
func (c chunkEntry) zSize() uint32 {
	v := uint32(byteorder.BigEndian.Uint16(c.data[0:2]))
	if v == 0 {
		return 65536
	}
	return v
}

func (c chunkEntry) uSize() uint32 {
	v := uint32(byteorder.BigEndian.Uint16(c.data[2:4]))
	if v == 0 {
		return 65536
	}
	return v
}

// offset is the 1-based on-disk value; callers must subtract 1.
func (c chunkEntry) offset() uint32 { return byteorder.BigEndian.Uint32(c.data[4:8]) }

// Decompress reads a SEGS-compressed container.Handle and writes its
// decompressed bytes into out, returning a Regular Handle over the written
// prefix of out. Each chunk is either copied verbatim (when its compressed
// and uncompressed sizes match) or inflated; the first chunk's offset, if
// it reads as 0 or below after rebasing to 0-based (a stored value of 1 or
// 0), is rebased to the first byte past the chunk table, matching spec.md
// §4.7.
//
// The corrected per-chunk output advance (by u_size, not u_size+1 as the
// source does) is deliberate — see spec.md Open Question 1.
func Decompress(c *container.Handle, out []byte) (*container.Handle, error) {
	if c.Kind != container.Segs {
		return nil, container.ErrWrongKind
	}
	hdr, err := ReadHeader(c.Data[:c.Length])
	if err != nil {
		return nil, err
	}

	chunkCount := int(hdr.ChunkCount())
	tableEnd := HeaderSize + chunkCount*ChunkEntrySize
	if len(c.Data) < tableEnd {
		return nil, ErrTruncatedHeader
	}

	uncompressedSize := int(hdr.UncompressedSize())
	if len(out) < uncompressedSize {
		return nil, ErrShortOutput
	}

	cursor := 0
	for i := 0; i < chunkCount; i++ {
		off := HeaderSize + i*ChunkEntrySize
		entry := readChunkEntry(c.Data[off : off+ChunkEntrySize])

		chunkOffset := int(entry.offset()) - 1
		if i == 0 && chunkOffset <= 0 {
			chunkOffset = tableEnd
		}
		zSize := int(entry.zSize())
		uSize := int(entry.uSize())

		if chunkOffset < 0 || chunkOffset+zSize > len(c.Data) {
			return nil, xerrors.Errorf("segs: chunk %d: %w", i, ErrTruncatedHeader)
		}
		if cursor+uSize > len(out) {
			return nil, xerrors.Errorf("segs: chunk %d: %w", i, ErrShortOutput)
		}

		src := c.Data[chunkOffset : chunkOffset+zSize]
		if uSize == zSize {
			copy(out[cursor:cursor+uSize], src)
		} else {
			n, err := inflate.Inflate(src, out[cursor:cursor+uSize])
			if err != nil {
				return nil, xerrors.Errorf("segs: chunk %d: %w", i, err)
			}
			if n != uSize {
				return nil, xerrors.Errorf("segs: chunk %d: inflated %d bytes, want %d", i, n, uSize)
			}
		}
		cursor += uSize
	}

	return &container.Handle{
		Data:   out[:uncompressedSize],
		Length: uncompressedSize,
		Kind:   container.Regular,
	}, nil
}
