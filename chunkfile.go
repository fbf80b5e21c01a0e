package main

import (
	"bytes"
	"io"
	"os"

	"github.com/therootcompany/xz"
)

const xzMagic = "\xfd7zXZ\x00"

// readChunk returns the contents of a chunk file, unwrapping xz if present.
// The release function must be called when the chunk is no longer needed.
func readChunk(name string) ([]byte, func(), error) {
	data, release, err := mapFile(name)
	if err != nil {
		return nil, nil, err
	}
	if !bytes.HasPrefix(data, []byte(xzMagic)) {
		return data, release, nil
	}
	defer release()

	r, err := xz.NewReader(bytes.NewReader(data), xz.DefaultDictMax)
	if err != nil {
		return nil, nil, err
	}
	inner, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, err
	}
	return inner, func() {}, nil
}

func readWholeFile(name string) ([]byte, func(), error) {
	data, err := os.ReadFile(name)
	return data, func() {}, err
}
