// Package ar implements the in-place editor for the ".ar" archive format: a
// 16-byte header followed by a flat sequence of (20-byte record, NUL-
// terminated name, payload) entries packed directly into a single byte
// buffer. There is no parallel object model — every operation reads or
// writes the buffer at fixed byte offsets, the way squashfs's dirHeader and
// dirEntry types do in the teacher package this is grounded on.
package ar

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/distr1/siswa/container"
)

// EntryRecordSize is the fixed size, in bytes, of an entry record before its
// inline name and payload.
const EntryRecordSize = 20

// HeaderSize is the fixed size, in bytes, of the archive header.
const HeaderSize = container.ArchiveHeaderSize

var (
	// ErrDuplicateName is returned by Add when an entry with the given name
	// already exists.
	ErrDuplicateName = errors.New("ar: entry with this name already exists")
	// ErrNotFound is returned by Remove/Update when no entry matches.
	ErrNotFound = errors.New("ar: entry not found")
	// ErrInsufficientCapacity is returned by Add/Update when the mutation
	// would require growing the buffer past its capacity.
	ErrInsufficientCapacity = errors.New("ar: insufficient capacity")
)

// Header is a byte-offset view of the 16-byte archive header. It is never
// copied out of the buffer as a Go struct with named fields — see
// SPEC_FULL.md §6.4 for why this repo models packed records as views
// instead of tail-member structs.
type Header struct {
	data []byte
}

// ReadHeader interprets the first HeaderSize bytes of data as an archive
// header.
func ReadHeader(data []byte) Header {
	_ = data[HeaderSize-1] // bounds check hint, same idiom as squashfs.dirHeader.Unmarshal
	return Header{data: data[:HeaderSize]}
}

func (h Header) Unknown() uint32         { return binary.LittleEndian.Uint32(h.data[0:4]) }
func (h Header) HeaderSize() uint32      { return binary.LittleEndian.Uint32(h.data[4:8]) }
func (h Header) EntryRecordSize() uint32 { return binary.LittleEndian.Uint32(h.data[8:12]) }
func (h Header) Alignment() uint32       { return binary.LittleEndian.Uint32(h.data[12:16]) }

// Entry is a byte-offset view onto a single entry record, its inline name,
// and its payload, all living in the archive's backing buffer. offset is
// the entry's byte position within the owning Archive's buffer, needed by
// Remove/Update to locate the record to splice.
type Entry struct {
	base   []byte // from the entry record's start to the end of the buffer
	offset int
}

// Size is the entire record length: EntryRecordSize + name length + 1 +
// payload size.
func (e Entry) Size() uint32 { return binary.LittleEndian.Uint32(e.base[0:4]) }

// PayloadSize is the payload's length in bytes.
func (e Entry) PayloadSize() uint32 { return binary.LittleEndian.Uint32(e.base[4:8]) }

// PayloadOffset is the byte offset from the record's start to its first
// payload byte.
func (e Entry) PayloadOffset() uint32 { return binary.LittleEndian.Uint32(e.base[8:12]) }

// FileDate is the opaque 8-byte timestamp field.
func (e Entry) FileDate() []byte { return e.base[12:20] }

// Name returns the entry's NUL-terminated name, without the NUL.
func (e Entry) Name() []byte {
	rest := e.base[EntryRecordSize:]
	i := bytes.IndexByte(rest, 0)
	if i < 0 {
		// malformed entry: no terminator found before the buffer ends
		return rest
	}
	return rest[:i]
}

// Data returns the entry's payload bytes.
func (e Entry) Data() []byte {
	off := e.PayloadOffset()
	sz := e.PayloadSize()
	return e.base[off : off+sz]
}

// Raw returns the entry's full on-disk record: the 20-byte header, the
// NUL-terminated name, and the payload, back to back. merge.Many copies
// this verbatim into its output buffer.
func (e Entry) Raw() []byte { return e.base[:e.Size()] }

// Archive wraps a container.Handle of Kind Regular, maintaining a private
// iteration cursor. Per SPEC_FULL.md §6.4/§8, an Archive is not safe for
// concurrent use; independent iteration needs an independent Archive value
// over the same Handle (a plain struct copy, since the cursor is the only
// per-iteration state).
type Archive struct {
	h      *container.Handle
	cursor int
}

// NewEmpty allocates a fresh, empty archive with room for capacity bytes
// and writes the canonical {0, 16, 20, 64} header into it.
func NewEmpty(capacity int) (*Archive, error) {
	h, err := container.NewEmptyAr(capacity)
	if err != nil {
		return nil, err
	}
	return &Archive{h: h, cursor: HeaderSize}, nil
}

// Open wraps an existing Handle of Kind Regular as an Archive.
func Open(h *container.Handle) (*Archive, error) {
	if h.Kind != container.Regular {
		return nil, container.ErrWrongKind
	}
	return &Archive{h: h, cursor: HeaderSize}, nil
}

// Handle returns the underlying container.Handle.
func (a *Archive) Handle() *container.Handle { return a.h }

// Header returns the archive's 16-byte header view.
func (a *Archive) Header() Header { return ReadHeader(a.h.Data) }

// Reset re-anchors the iteration cursor to just past the header.
func (a *Archive) Reset() { a.cursor = HeaderSize }

// Poll returns the entry at the current cursor and advances past it. When
// the cursor reaches the end of the buffer, Poll resets the cursor to the
// header end and reports ok == false — callers that want to iterate again
// simply call Poll again.
func (a *Archive) Poll() (entry Entry, ok bool) {
	if a.cursor >= a.h.Length {
		a.Reset()
		return Entry{}, false
	}
	e := Entry{base: a.h.Data[a.cursor:a.h.Length], offset: a.cursor}
	a.cursor += int(e.Size())
	return e, true
}

// clone returns an independent iterator over the same buffer, positioned
// at the header end, so Find/EntryCount never disturb the caller's own
// iteration in progress.
func (a *Archive) clone() Archive {
	return Archive{h: a.h, cursor: HeaderSize}
}

// EntryCount walks the archive and counts its entries. O(n).
func (a *Archive) EntryCount() int {
	it := a.clone()
	n := 0
	for {
		if _, ok := it.Poll(); !ok {
			break
		}
		n++
	}
	return n
}

// Find looks up an entry by name, comparing the full name length (spec.md
// Open Question 2: tightened from the source's accidental prefix match).
func (a *Archive) Find(name string) (Entry, bool) {
	return a.FindBytes([]byte(name))
}

// FindBytes is Find taking the name as a byte slice.
func (a *Archive) FindBytes(name []byte) (Entry, bool) {
	it := a.clone()
	for {
		e, ok := it.Poll()
		if !ok {
			return Entry{}, false
		}
		if bytes.Equal(e.Name(), name) {
			return e, true
		}
	}
}

// Add appends a new entry at the logical end of the table. data_size == 0
// and name_len == 0 are both structurally permitted (an empty payload, or
// an unkeyed entry), per spec.md §4.2.
func (a *Archive) Add(name string, data []byte) error {
	nameBytes := []byte(name)
	if _, ok := a.FindBytes(nameBytes); ok {
		return ErrDuplicateName
	}

	offset := a.h.Length
	payloadOffset := EntryRecordSize + len(nameBytes) + 1
	size := payloadOffset + len(data)
	if offset+size >= cap(a.h.Data) {
		return ErrInsufficientCapacity
	}

	buf := a.h.Data[:offset+size]
	e := binary.LittleEndian
	e.PutUint32(buf[offset:offset+4], uint32(size))
	e.PutUint32(buf[offset+4:offset+8], uint32(len(data)))
	e.PutUint32(buf[offset+8:offset+12], uint32(payloadOffset))
	for i := 12; i < EntryRecordSize; i++ {
		buf[offset+i] = 0 // filedate, zero by default
	}
	copy(buf[offset+EntryRecordSize:], nameBytes)
	buf[offset+EntryRecordSize+len(nameBytes)] = 0
	copy(buf[offset+payloadOffset:], data)

	a.h.Data = buf
	a.h.Length = offset + size
	return nil
}

// Remove deletes the named entry and shifts the remaining tail of the
// buffer down to close the gap. The cursor is not adjusted; mutating an
// archive while iterating it is defined to potentially skip entries and
// callers should not rely on an iteration that mutates mid-flight.
func (a *Archive) Remove(name string) error {
	e, ok := a.Find(name)
	if !ok {
		return ErrNotFound
	}
	sz := int(e.Size())
	off := e.offset
	copy(a.h.Data[off:a.h.Length-sz], a.h.Data[off+sz:a.h.Length])
	a.h.Length -= sz
	a.h.Data = a.h.Data[:a.h.Length]
	return nil
}

// Update replaces the named entry's payload, shrinking or growing the
// buffer as needed to preserve every entry after it byte-identical.
func (a *Archive) Update(name string, data []byte) error {
	e, ok := a.Find(name)
	if !ok {
		return ErrNotFound
	}
	off := e.offset
	oldSize := int(e.Size())
	// Name() aliases a.h.Data; copy it out before the buffer is rewritten.
	nameCopy := append([]byte(nil), e.Name()...)
	payloadOffset := EntryRecordSize + len(nameCopy) + 1
	newSize := payloadOffset + len(data)
	delta := newSize - oldSize

	if delta > 0 && a.h.Length+delta >= cap(a.h.Data) {
		return ErrInsufficientCapacity
	}

	tailStart := off + oldSize
	tail := append([]byte(nil), a.h.Data[tailStart:a.h.Length]...)
	newLength := a.h.Length + delta
	a.h.Data = a.h.Data[:newLength]
	copy(a.h.Data[off+newSize:], tail)

	buf := a.h.Data
	le := binary.LittleEndian
	le.PutUint32(buf[off:off+4], uint32(newSize))
	le.PutUint32(buf[off+4:off+8], uint32(len(data)))
	le.PutUint32(buf[off+8:off+12], uint32(payloadOffset))
	copy(buf[off+EntryRecordSize:], nameCopy)
	buf[off+EntryRecordSize+len(nameCopy)] = 0
	copy(buf[off+payloadOffset:], data)

	a.h.Length = newLength
	return nil
}
