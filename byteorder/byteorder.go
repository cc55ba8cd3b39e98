// Package byteorder is the single seam through which every big-endian
// SEGS/XCompression field is read. The little-endian .ar/.arl fields are
// read by ar, arl and container through encoding/binary directly.
package byteorder

import "encoding/binary"

// BigEndian reads multi-byte wire fields stored big-endian on disk (SEGS,
// XCompression).
var BigEndian = binary.BigEndian

// LittleEndian reads little-endian fields.
var LittleEndian = binary.LittleEndian
