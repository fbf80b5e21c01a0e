package xpk

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"
)

func TestFormats(t *testing.T) {
	want := []string{"BLZW", "BZP2", "LHLB", "MASH", "RAKE", "SHRI", "SMPL", "SQSH"}
	if got := Formats(); !slices.Equal(got, want) {
		t.Errorf("got %v", got)
	}
	for _, f := range want {
		if IsStateful(f) != (f == "SHRI") {
			t.Errorf("IsStateful(%s)", f)
		}
		d, err := New(f)
		if err != nil || d.Format() != f {
			t.Errorf("New(%s): %v", f, err)
		}
	}
}

func TestUnknownFormat(t *testing.T) {
	if _, err := New("NUKE"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("got %v", err)
	}
	if err := Decompress("test", "nope", nil, nil); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("got %v", err)
	}
}

func TestErrorMessage(t *testing.T) {
	err := Decompress("xpk.library", "SQSH", []byte{0, 9}, make([]byte, 2))
	if got := err.Error(); got != "xpk.library: SQSH: corrupt data: SQSH chunk holds 9 bytes, expected 2" {
		t.Errorf("got %q", got)
	}
}

// Garbage must only ever produce one of the two error kinds, or a clean success
func TestGarbage(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 42))
	for _, f := range Formats() {
		t.Run(f, func(t *testing.T) {
			for i := range 300 {
				chunk := make([]byte, rng.IntN(64))
				for j := range chunk {
					chunk[j] = byte(rng.Uint32())
				}
				raw := make([]byte, rng.IntN(300))
				err := Decompress("test", f, chunk, raw)
				if err != nil && !errors.Is(err, ErrCorruptData) && !errors.Is(err, ErrWrongBlockChecksum) {
					t.Fatalf("%s: unexpected error kind: %v", fmt.Sprint(i), err)
				}
			}
		})
	}
}
