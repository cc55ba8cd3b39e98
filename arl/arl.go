// Package arl implements the in-place editor for the ".arl" archive-linker
// format: a variable-length header (magic, archive count, per-archive
// cumulative size counters) followed by a flat sequence of 1-byte-length-
// prefixed entry names, indexing the names held across a set of split
// archives. The byte-offset-view shape mirrors package ar; see
// SPEC_FULL.md §6.5 for the archive_sizes accounting rule this package
// reproduces from the source rather than "fixing".
package arl

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/distr1/siswa/ar"
	"github.com/distr1/siswa/container"
)

var (
	// ErrDuplicateName is returned by Add when an entry with the given name
	// already exists.
	ErrDuplicateName = errors.New("arl: entry with this name already exists")
	// ErrNotFound is returned by Remove/Update when no entry matches.
	ErrNotFound = errors.New("arl: entry not found")
	// ErrInsufficientCapacity is returned by Add/Update when the mutation
	// would require growing the buffer past its capacity.
	ErrInsufficientCapacity = errors.New("arl: insufficient capacity")
	// ErrArchiveIndex is returned when an archive index is out of range for
	// the linker's archive_count.
	ErrArchiveIndex = errors.New("arl: archive index out of range")
)

// Header is a byte-offset view over the variable-length linker header:
// identifier (4 bytes, ARL2), archive_count (4 bytes), then
// archive_count per-archive uint32 size counters.
type Header struct {
	data []byte
}

// ReadHeader interprets the start of data as a linker header. The header's
// own length depends on archive_count, so it first reads the 8-byte fixed
// part, then rejects data shorter than the full BodyLen() it implies.
func ReadHeader(data []byte) (Header, error) {
	if len(data) < 8 {
		return Header{}, errors.New("arl: header truncated")
	}
	h := Header{data: data}
	if h.Identifier() != container.MagicARL2 {
		return Header{}, container.ErrWrongKind
	}
	if len(data) < h.BodyLen() {
		return Header{}, errors.New("arl: header truncated")
	}
	return h, nil
}

// Identifier is the ARL2 magic.
func (h Header) Identifier() uint32 { return binary.LittleEndian.Uint32(h.data[0:4]) }

// ArchiveCount is the number of archives this linker indexes.
func (h Header) ArchiveCount() uint32 { return binary.LittleEndian.Uint32(h.data[4:8]) }

// BodyLen is the total header length: 8 + 4*archive_count.
func (h Header) BodyLen() int { return 8 + 4*int(h.ArchiveCount()) }

// ArchiveSize returns the cumulative size counter for archive i.
func (h Header) ArchiveSize(i int) uint32 {
	off := 8 + 4*i
	return binary.LittleEndian.Uint32(h.data[off : off+4])
}

func (h Header) setArchiveSize(i int, v uint32) {
	off := 8 + 4*i
	binary.LittleEndian.PutUint32(h.data[off:off+4], v)
}

// Entry is a byte-offset view onto a single 1-byte-length-prefixed,
// non-NUL-terminated linker entry name.
type Entry struct {
	base   []byte // from the length prefix to the end of the buffer
	offset int
}

// NameLen is the 1-byte name length prefix.
func (e Entry) NameLen() uint8 { return e.base[0] }

// Name returns the entry's name bytes.
func (e Entry) Name() []byte {
	n := int(e.NameLen())
	return e.base[1 : 1+n]
}

// Size is the entry's total on-disk size: 1 + len(name).
func (e Entry) Size() int { return 1 + int(e.NameLen()) }

// Linker wraps a container.Handle of Kind Regular carrying an ARL2 magic.
type Linker struct {
	h      *container.Handle
	cursor int
}

// arEntrySize computes the bytes an entry with the given name would occupy
// in the corresponding .ar file: EntryRecordSize + name length + 1. Linker
// add/remove/update adjust archive_sizes by this, not by the linker's own
// 1+len(name) encoding — see spec.md §4.5 and Open Question 3.
func arEntrySize(nameLen int) uint32 {
	return uint32(ar.EntryRecordSize + nameLen + 1)
}

// NewEmpty allocates a fresh linker with room for capacity bytes, indexing
// archiveCount archives, all size counters starting at zero.
func NewEmpty(capacity int, archiveCount int) (*Linker, error) {
	bodyLen := 8 + 4*archiveCount
	if capacity < bodyLen {
		return nil, errors.New("arl: capacity too small for header")
	}
	buf := make([]byte, bodyLen, capacity)
	binary.LittleEndian.PutUint32(buf[0:4], container.MagicARL2)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(archiveCount))
	return &Linker{
		h: &container.Handle{
			Data:   buf,
			Length: bodyLen,
			Kind:   container.Regular,
		},
		cursor: bodyLen,
	}, nil
}

// Open wraps an existing Handle as a Linker, verifying the ARL2 magic.
func Open(h *container.Handle) (*Linker, error) {
	hdr, err := ReadHeader(h.Data[:h.Length])
	if err != nil {
		return nil, err
	}
	return &Linker{h: h, cursor: hdr.BodyLen()}, nil
}

// Handle returns the underlying container.Handle.
func (l *Linker) Handle() *container.Handle { return l.h }

// Header returns the linker's header view.
func (l *Linker) Header() Header {
	h, _ := ReadHeader(l.h.Data[:l.h.Length])
	return h
}

func (l *Linker) bodyLen() int { return l.Header().BodyLen() }

// Reset re-anchors the iteration cursor to just past the header.
func (l *Linker) Reset() { l.cursor = l.bodyLen() }

// Poll returns the entry at the current cursor and advances past it,
// auto-resetting at end of stream, exactly like ar.Archive.Poll.
func (l *Linker) Poll() (Entry, bool) {
	if l.cursor >= l.h.Length {
		l.Reset()
		return Entry{}, false
	}
	e := Entry{base: l.h.Data[l.cursor:l.h.Length], offset: l.cursor}
	l.cursor += e.Size()
	return e, true
}

func (l *Linker) clone() Linker {
	return Linker{h: l.h, cursor: l.bodyLen()}
}

// EntryCount walks the linker and counts its entries. O(n).
func (l *Linker) EntryCount() int {
	it := l.clone()
	n := 0
	for {
		if _, ok := it.Poll(); !ok {
			break
		}
		n++
	}
	return n
}

// Find looks up an entry by name (full-length equality).
func (l *Linker) Find(name string) (Entry, bool) {
	return l.FindBytes([]byte(name))
}

// FindBytes is Find taking the name as a byte slice.
func (l *Linker) FindBytes(name []byte) (Entry, bool) {
	it := l.clone()
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

// Add appends a new entry for name, indexed under archiveIndex, and bumps
// that archive's cumulative size counter by the .ar-entry-equivalent size
// of the new entry.
func (l *Linker) Add(name string, archiveIndex int) error {
	nameBytes := []byte(name)
	if len(nameBytes) > 255 {
		return errors.New("arl: name too long (max 255 bytes)")
	}
	if _, ok := l.FindBytes(nameBytes); ok {
		return ErrDuplicateName
	}
	hdr := l.Header()
	if archiveIndex < 0 || archiveIndex >= int(hdr.ArchiveCount()) {
		return ErrArchiveIndex
	}

	offset := l.h.Length
	size := 1 + len(nameBytes)
	if offset+size >= cap(l.h.Data) {
		return ErrInsufficientCapacity
	}

	buf := l.h.Data[:offset+size]
	buf[offset] = byte(len(nameBytes))
	copy(buf[offset+1:], nameBytes)

	l.h.Data = buf
	l.h.Length = offset + size

	hdr = l.Header()
	hdr.setArchiveSize(archiveIndex, hdr.ArchiveSize(archiveIndex)+arEntrySize(len(nameBytes)))
	return nil
}

// Remove deletes the named entry, shifts the tail down, and decrements
// archiveIndex's cumulative size counter symmetrically with Add.
func (l *Linker) Remove(name string, archiveIndex int) error {
	e, ok := l.Find(name)
	if !ok {
		return ErrNotFound
	}
	hdr := l.Header()
	if archiveIndex < 0 || archiveIndex >= int(hdr.ArchiveCount()) {
		return ErrArchiveIndex
	}
	nameLen := len(e.Name())
	sz := e.Size()
	off := e.offset
	copy(l.h.Data[off:l.h.Length-sz], l.h.Data[off+sz:l.h.Length])
	l.h.Length -= sz
	l.h.Data = l.h.Data[:l.h.Length]

	hdr = l.Header()
	hdr.setArchiveSize(archiveIndex, hdr.ArchiveSize(archiveIndex)-arEntrySize(nameLen))
	return nil
}

// Update replaces the named entry with newName, adjusting archiveIndex's
// size counter by the difference between the old and new .ar-entry-
// equivalent sizes.
func (l *Linker) Update(name, newName string, archiveIndex int) error {
	e, ok := l.Find(name)
	if !ok {
		return ErrNotFound
	}
	hdr := l.Header()
	if archiveIndex < 0 || archiveIndex >= int(hdr.ArchiveCount()) {
		return ErrArchiveIndex
	}
	oldNameLen := len(e.Name())
	newNameBytes := []byte(newName)
	if len(newNameBytes) > 255 {
		return errors.New("arl: name too long (max 255 bytes)")
	}

	off := e.offset
	oldSize := e.Size()
	newSize := 1 + len(newNameBytes)
	delta := newSize - oldSize

	if delta > 0 && l.h.Length+delta >= cap(l.h.Data) {
		return ErrInsufficientCapacity
	}

	tailStart := off + oldSize
	tail := append([]byte(nil), l.h.Data[tailStart:l.h.Length]...)
	newLength := l.h.Length + delta
	l.h.Data = l.h.Data[:newLength]
	copy(l.h.Data[off+newSize:], tail)

	buf := l.h.Data
	buf[off] = byte(len(newNameBytes))
	copy(buf[off+1:], newNameBytes)

	l.h.Length = newLength

	hdr = l.Header()
	oldEq := arEntrySize(oldNameLen)
	newEq := arEntrySize(len(newNameBytes))
	hdr.setArchiveSize(archiveIndex, hdr.ArchiveSize(archiveIndex)-oldEq+newEq)
	return nil
}

// CreateFromArchive builds a fresh single-archive linker indexing every
// entry in a, with archive_sizes[0] reflecting the total .ar-entry bytes
// contributed.
func CreateFromArchive(a *ar.Archive, capacity int) (*Linker, error) {
	return CreateFromArchives([]*ar.Archive{a}, capacity)
}

// CreateFromArchives builds a fresh linker indexing every entry across as,
// one archive_sizes slot per archive, in order.
func CreateFromArchives(as []*ar.Archive, capacity int) (*Linker, error) {
	l, err := NewEmpty(capacity, len(as))
	if err != nil {
		return nil, err
	}
	for i, a := range as {
		a.Reset()
		for {
			e, ok := a.Poll()
			if !ok {
				break
			}
			if err := l.Add(string(e.Name()), i); err != nil {
				return nil, err
			}
		}
		a.Reset()
	}
	return l, nil
}
