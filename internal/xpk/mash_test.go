package xpk

import (
	"math/bits"
	"math/rand/v2"
	"testing"
)

// mashWriter interleaves bit-reader bytes with literal bytes the way the decoder consumes them
type mashWriter struct {
	buf  []byte
	cur  int // index of the byte taking bits
	free int // bits left in it
}

func (w *mashWriter) bits(v uint32, n int) {
	for i := n - 1; i >= 0; i-- {
		if w.free == 0 {
			w.buf = append(w.buf, 0)
			w.cur = len(w.buf) - 1
			w.free = 8
		}
		w.free--
		w.buf[w.cur] |= byte(v>>i&1) << w.free
	}
}

func (w *mashWriter) unary(n int) {
	for range n - 1 {
		w.bits(1, 1)
	}
	w.bits(0, 1)
}

func (w *mashWriter) literals(p []byte) {
	switch n := len(p); {
	case n < 6:
		w.bits(1<<n-1, n) // n ones
		w.bits(0, 1)
	default:
		w.bits(0b111111, 6)
		nbits := bits.Len(uint(n-4)) - 2
		w.unary(nbits)
		w.bits(uint32(n-4-1<<(nbits+1)), nbits+1)
	}
	w.buf = append(w.buf, p...)
}

func (w *mashWriter) distance(d int) {
	for tier := 7; tier >= 0; tier-- {
		if d >= mashDistanceAddition[tier] {
			w.bits(uint32(tier), 3)
			w.bits(uint32(d-mashDistanceAddition[tier]), mashDistanceBits[tier])
			return
		}
	}
}

func (w *mashWriter) match(count, d int) {
	switch {
	case count == 2:
		w.bits(0b00, 2)
		w.bits(uint32(d), 9)
	case count == 3:
		w.bits(0b01, 2)
		w.distance(d)
	default:
		w.bits(1, 1)
		nbits := bits.Len(uint(count-2)) - 1
		w.unary(nbits)
		w.bits(uint32(count-2-1<<nbits), nbits)
		w.distance(d)
	}
}

func TestMASHFixtures(t *testing.T) {
	t.Run("copy", func(t *testing.T) {
		expectOutput(t, "MASH", []byte{0xe4, 'A', 'B', 'C', 0x0c, 0x00, 0xc0}, "ABCABCAB")
	})
	t.Run("zero-distance-at-end", func(t *testing.T) {
		expectOutput(t, "MASH", []byte{0xe0, 'X', 'Y', 'Z', 0x00}, "XYZ")
	})
	t.Run("zero-distance-midway", func(t *testing.T) {
		expectError(t, "MASH", []byte{0xe0, 'X', 'Y', 'Z', 0x00, 0x00}, 5, ErrCorruptData)
	})
	t.Run("overshoot-clamped", func(t *testing.T) {
		var w mashWriter
		w.literals([]byte("ab"))
		w.match(40, 2)
		expectOutput(t, "MASH", w.buf, "ababababab")
	})
	t.Run("literal-overrun", func(t *testing.T) {
		var w mashWriter
		w.literals([]byte("abcd"))
		expectError(t, "MASH", w.buf, 3, ErrCorruptData)
	})
	t.Run("long-unary", func(t *testing.T) {
		var w mashWriter
		w.bits(0, 1) // no literals
		w.bits(0xffff, 16)
		w.bits(0, 16)
		expectError(t, "MASH", w.buf, 10, ErrCorruptData)
	})
}

func TestMASH(t *testing.T) {
	for _, size := range []int{10, 1000, 40000} {
		rng := rand.New(rand.NewPCG(uint64(size), 5))
		var w mashWriter
		var want []byte
		for len(want) < size {
			n := rng.IntN(6)
			if rng.IntN(4) == 0 {
				n = 8 + rng.IntN(100)
			}
			if len(want) == 0 {
				n = max(n, 1)
			}
			n = min(n, size-len(want))
			lit := make([]byte, n)
			for i := range lit {
				lit[i] = byte(rng.IntN(256))
			}
			if n == 6 || n == 7 {
				lit = lit[:5]
			}
			w.literals(lit)
			want = append(want, lit...)

			if len(want) == size {
				w.match(2, 0)
				break
			}
			count := 2 + rng.IntN(30)
			var d int
			if count == 2 {
				d = 1 + rng.IntN(min(len(want), 511))
			} else {
				d = 1 + rng.IntN(min(len(want), 0x7e9f))
			}
			w.match(count, d)
			for range min(count, size-len(want)) {
				want = append(want, want[len(want)-d])
			}
		}
		expectOutput(t, "MASH", w.buf, string(want))
	}
}
