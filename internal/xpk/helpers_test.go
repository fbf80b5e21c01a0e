package xpk

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/icza/bitio"
)

type field struct {
	v uint64
	n uint8
}

// packBits appends MSB-first bit fields to a byte header, padding the last byte with zeros
func packBits(t *testing.T, header []byte, fields ...field) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(header)
	w := bitio.NewWriter(&buf)
	for _, f := range fields {
		if err := w.WriteBits(f.v, f.n); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// code is a field written from a string of '0' and '1'
func code(s string) field {
	var v uint64
	for _, c := range s {
		v = v<<1 | uint64(c-'0')
	}
	return field{v, uint8(len(s))}
}

func decode(t *testing.T, format string, chunk []byte, size int) ([]byte, error) {
	t.Helper()
	raw := make([]byte, size)
	err := Decompress("test", format, chunk, raw)
	return raw, err
}

func expectOutput(t *testing.T, format string, chunk []byte, want string) {
	t.Helper()
	got, err := decode(t, format, chunk, len(want))
	if err != nil {
		t.Fatalf("%s %s: %v", format, hex.EncodeToString(chunk), err)
	}
	if string(got) != want {
		t.Errorf("%s: got %q want %q", format, got, want)
	}
}

func expectError(t *testing.T, format string, chunk []byte, size int, want error) {
	t.Helper()
	_, err := decode(t, format, chunk, size)
	if !errors.Is(err, want) {
		t.Fatalf("%s %s: expected %v, got %v", format, hex.EncodeToString(chunk), want, err)
	}
	var de *DecruncherError
	if !errors.As(err, &de) || de.Format != format || de.Agent != "test" {
		t.Errorf("error not attributed: %#v", err)
	}
}
