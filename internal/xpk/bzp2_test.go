package xpk

import (
	"bytes"
	"compress/bzip2"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"
	"testing"

	dsbzip2 "github.com/dsnet/compress/bzip2"
)

func bzip2Compress(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := dsbzip2.NewWriter(&buf, &dsbzip2.WriterConfig{Level: dsbzip2.BestSpeed})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func bzp2Inputs() map[string][]byte {
	rng := rand.New(rand.NewPCG(1, 2))
	random := make([]byte, 5000)
	for i := range random {
		random[i] = byte(rng.Uint32())
	}
	// compressible but not trivially, and more than one 100k block
	var words []string
	for range 60000 {
		words = append(words, []string{"alpha", "beta", "gamma", "delta", "\n"}[rng.IntN(5)])
	}
	return map[string][]byte{
		"one":        []byte("x"),
		"text":       []byte(strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40)),
		"random":     random,
		"long-runs":  append(bytes.Repeat([]byte{'a'}, 1000), bytes.Repeat([]byte{0}, 259)...),
		"exact-four": []byte("zzzz"),
		"multiblock": []byte(strings.Join(words, " ")),
	}
}

func TestBZP2(t *testing.T) {
	for name, data := range bzp2Inputs() {
		t.Run(name, func(t *testing.T) {
			chunk := bzip2Compress(t, data)

			std, err := io.ReadAll(bzip2.NewReader(bytes.NewReader(chunk)))
			if err != nil || !bytes.Equal(std, data) {
				t.Fatalf("fixture does not survive compress/bzip2: %v", err)
			}

			got, err := decode(t, "BZP2", chunk, len(data))
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, data) {
				t.Error("mismatch")
			}
		})
	}
}

func TestBZP2WrongSize(t *testing.T) {
	data := []byte(strings.Repeat("xyzzy", 100))
	chunk := bzip2Compress(t, data)
	expectError(t, "BZP2", chunk, len(data)-1, ErrCorruptData)
	expectError(t, "BZP2", chunk, len(data)+1, ErrCorruptData)
}

func TestBZP2Truncated(t *testing.T) {
	data := []byte(strings.Repeat("plugh ", 300))
	chunk := bzip2Compress(t, data)
	for _, n := range []int{0, 3, 4, 10, len(chunk) / 2, len(chunk) - 5} {
		expectError(t, "BZP2", chunk[:n], len(data), ErrCorruptData)
	}
}

func TestBZP2BadHeader(t *testing.T) {
	chunk := bzip2Compress(t, []byte("hello"))
	for _, hdr := range []string{"BZh0", "BZ0h", "XZh9"} {
		bad := append([]byte(hdr), chunk[4:]...)
		expectError(t, "BZP2", bad, 5, ErrCorruptData)
	}
}

func bitAt(data []byte, i int) uint64 {
	return uint64(data[i/8]>>(7-i%8)) & 1
}

func flipBit(data []byte, i int) {
	data[i/8] ^= 0x80 >> (i % 8)
}

// lastMatch finds the bit offset of the last occurrence of a 48-bit pattern
func lastMatch(data []byte, pattern uint64) int {
	for start := len(data)*8 - 48; start >= 0; start-- {
		var v uint64
		for i := range 48 {
			v = v<<1 | bitAt(data, start+i)
		}
		if v == pattern {
			return start
		}
	}
	return -1
}

func TestBZP2StreamChecksum(t *testing.T) {
	data := bzp2Inputs()["multiblock"]
	chunk := bzip2Compress(t, data)
	end := lastMatch(chunk, bzEndMagic)
	if end < 0 {
		t.Fatal("no end of stream marker")
	}
	for _, bit := range []int{0, 13, 31} {
		bad := bytes.Clone(chunk)
		flipBit(bad, end+48+bit)
		_, err := decode(t, "BZP2", bad, len(data))
		if !errors.Is(err, ErrWrongBlockChecksum) {
			t.Errorf("flipped CRC bit %d: %v", bit, err)
		}
		if errors.Is(err, ErrCorruptData) {
			t.Errorf("checksum mismatch reported as corruption")
		}
	}
}

func TestBZP2SymbolMapCorruption(t *testing.T) {
	data := []byte(strings.Repeat("Symbol map corruption must never go unnoticed. ", 30))
	chunk := bzip2Compress(t, data)
	// header 32 + magic 48 + crc 32 + randomized 1 + origPtr 24
	const mapStart = 137
	for bit := mapStart; bit < mapStart+32; bit++ {
		t.Run(fmt.Sprint(bit), func(t *testing.T) {
			bad := bytes.Clone(chunk)
			flipBit(bad, bit)
			_, err := decode(t, "BZP2", bad, len(data))
			if !errors.Is(err, ErrCorruptData) && !errors.Is(err, ErrWrongBlockChecksum) {
				t.Errorf("got %v", err)
			}
		})
	}
}

func TestBZRand(t *testing.T) {
	var r bzRand
	var flips []int
	for i := range 2000 {
		if r.next() != 0 {
			flips = append(flips, i)
		}
	}
	if fmt.Sprint(flips) != "[617 1337 1464 1945]" {
		t.Errorf("flips at %v", flips)
	}
}

func setBits(data []byte, start int, v uint32, n int) {
	for i := range n {
		bit := start + i
		data[bit/8] &^= 0x80 >> (bit % 8)
		data[bit/8] |= byte(v>>(n-1-i)&1) << (7 - bit%8)
	}
}

func TestBZP2Randomized(t *testing.T) {
	// neighbours differ by 7, so no flip can make a run
	data := make([]byte, 2000)
	for i := range data {
		data[i] = byte(i * 7 % 251)
	}
	chunk := bzip2Compress(t, data)

	want := bytes.Clone(data)
	for _, i := range []int{617, 1337, 1464, 1945} {
		want[i] ^= 1
	}
	crc := uint32(0xffffffff)
	for _, ch := range want {
		crc = crc<<8 ^ bzCRCTable[byte(crc>>24)^ch]
	}
	crc = ^crc

	// header 32 + magic 48, then the block CRC and the randomized bit
	if bitAt(chunk, 112) != 0 {
		t.Fatal("fixture already randomized")
	}
	flipBit(chunk, 112)
	setBits(chunk, 80, crc, 32)
	end := lastMatch(chunk, bzEndMagic)
	if end < 0 {
		t.Fatal("no end of stream marker")
	}
	// one block, so the stream CRC equals the block CRC
	setBits(chunk, end+48, crc, 32)

	got, err := decode(t, "BZP2", chunk, len(want))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		for i := range got {
			if got[i] != want[i] {
				t.Fatalf("first difference at %d", i)
			}
		}
	}
}

func TestBZCRC(t *testing.T) {
	// CRC-32/BZIP2 check value
	crc := uint32(0xffffffff)
	for _, ch := range []byte("123456789") {
		crc = crc<<8 ^ bzCRCTable[byte(crc>>24)^ch]
	}
	if ^crc != 0xfc891918 {
		t.Errorf("crc %08x", ^crc)
	}
}
