package xpk

import (
	"testing"
)

func smplTable() []field {
	f := []field{code("0001"), code("0"), code("0010"), code("10")}
	f = append(f, code("1111"), code("0000"), field{0x7000, 15})
	for range 252 {
		f = append(f, code("0000"))
	}
	return append(f, code("0011"), code("110"))
}

func TestSMPL(t *testing.T) {
	data := append(smplTable(), code("10"), code("10"), code("110"), field{0x7000, 15}, code("0"))
	chunk := packBits(t, []byte{0, 1}, data...)
	expectOutput(t, "SMPL", chunk, "\x01\x02\x01\x03\x03")
}

func TestSMPLErrors(t *testing.T) {
	t.Run("version", func(t *testing.T) {
		chunk := packBits(t, []byte{0, 2}, append(smplTable(), code("0"))...)
		expectError(t, "SMPL", chunk, 1, ErrCorruptData)
	})
	t.Run("truncated-table", func(t *testing.T) {
		chunk := packBits(t, []byte{0, 1}, smplTable()[:20]...)
		expectError(t, "SMPL", chunk, 1, ErrCorruptData)
	})
	t.Run("truncated-data", func(t *testing.T) {
		// the 15-bit code is cut short by the end of the chunk
		chunk := packBits(t, []byte{0, 1}, append(smplTable(), code("111"))...)
		expectError(t, "SMPL", chunk, 2, ErrCorruptData)
	})
	t.Run("conflict", func(t *testing.T) {
		f := []field{code("0001"), code("0"), code("0001"), code("0")}
		for range 254 {
			f = append(f, code("0000"))
		}
		expectError(t, "SMPL", packBits(t, []byte{0, 1}, f...), 1, ErrCorruptData)
	})
	t.Run("no-overrun", func(t *testing.T) {
		data := append(smplTable(), code("0"), code("0"), code("0"), code("0"))
		got, err := decode(t, "SMPL", packBits(t, []byte{0, 1}, data...), 2)
		if err != nil || len(got) != 2 {
			t.Errorf("%v %v", got, err)
		}
	})
}
