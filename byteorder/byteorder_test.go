package byteorder

import "testing"

func TestBigEndianUint32(t *testing.T) {
	b := []byte{0x12, 0x34, 0x56, 0x78}
	if got, want := BigEndian.Uint32(b), uint32(0x12345678); got != want {
		t.Errorf("BigEndian.Uint32(%x) = %#08x, want %#08x", b, got, want)
	}
}

func TestLittleEndianUint32(t *testing.T) {
	b := []byte{0x12, 0x34, 0x56, 0x78}
	if got, want := LittleEndian.Uint32(b), uint32(0x78563412); got != want {
		t.Errorf("LittleEndian.Uint32(%x) = %#08x, want %#08x", b, got, want)
	}
}
