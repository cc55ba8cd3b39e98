// Package merge combines several .ar archives into one output buffer,
// suppressing duplicate entry names with a scratch hash set: the first
// archive to contain a given name wins.
package merge

import (
	"errors"

	"github.com/distr1/siswa/ar"
	"github.com/distr1/siswa/container"
	"github.com/distr1/siswa/hashset"
)

// DefaultScratchBytes is the size of the scratch region backing the
// duplicate-name hash set, matching the source's SISWA_DEFAULT_STACK_SIZE.
const DefaultScratchBytes = 8 * 1024

// ErrInsufficientCapacity is returned when the output buffer is too small
// to hold the merged entries.
var ErrInsufficientCapacity = errors.New("merge: insufficient capacity")

// Many merges archives in order into out, returning an Archive view over
// the written prefix. Capacity is cap(out); the caller must pre-size out
// generously, since merge never grows or reallocates it.
//
// Tie-break: the first archive containing a given name wins. Iteration
// order within an archive is on-disk order (insertion order).
func Many(archives []*ar.Archive, out []byte) (*ar.Archive, error) {
	if cap(out) < container.ArchiveHeaderSize {
		return nil, ErrInsufficientCapacity
	}
	h, err := container.NewEmptyAr(cap(out))
	if err != nil {
		return nil, err
	}
	// Write the fresh header into the caller's backing array so capacity
	// accounting matches the buffer the caller actually sized.
	copy(out[:container.ArchiveHeaderSize], h.Data)
	h.Data = out[:container.ArchiveHeaderSize]

	set := hashset.NewFromBytes(DefaultScratchBytes)

	for i, a := range archives {
		last := i == len(archives)-1
		it := *a
		it.Reset()
		for {
			e, ok := it.Poll()
			if !ok {
				break
			}
			name := e.Name()
			if set.Contains(name) {
				continue
			}
			if !last {
				// No later archive will query the set once we're on the
				// last one, so skip the insert there — the emitted output
				// is identical either way.
				if err := set.Insert(append([]byte(nil), name...)); err != nil {
					return nil, err
				}
			}

			raw := e.Raw()
			if h.Length+len(raw) >= cap(h.Data) {
				return nil, ErrInsufficientCapacity
			}
			buf := h.Data[:h.Length+len(raw)]
			copy(buf[h.Length:], raw)
			h.Data = buf
			h.Length += len(raw)
		}
	}

	return ar.Open(h)
}
