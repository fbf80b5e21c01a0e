// XPK decrunchers

// Copyright (C) 2025 Elliot Nunn

// This library is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 2.1 of the License, or (at your option) any later version.

// This library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.

// Package xpk decrunches single chunks of the XPK sub-library formats.
// The caller supplies the compressed chunk and a buffer of exactly the decompressed size.
package xpk

import (
	"fmt"
	"maps"
	"slices"
)

type decoder interface {
	decompress(chunk, raw []byte) error
}

var formats = map[string]func() decoder{
	"BLZW": func() decoder { return blzw{} },
	"BZP2": func() decoder { return bzp2{} },
	"LHLB": func() decoder { return lhlb{} },
	"MASH": func() decoder { return mash{} },
	"RAKE": func() decoder { return rake{} },
	"SHRI": func() decoder { return new(shri) },
	"SMPL": func() decoder { return smpl{} },
	"SQSH": func() decoder { return sqsh{} },
}

// Decruncher decodes a sequence of chunks in one format.
// SHRI keeps state from chunk to chunk,
// so every chunk of a stream must pass through the same Decruncher in order.
// A Decruncher is not safe for concurrent use.
type Decruncher struct {
	format string
	d      decoder
}

func New(format string) (*Decruncher, error) {
	f, ok := formats[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return &Decruncher{format: format, d: f()}, nil
}

func (d *Decruncher) Format() string { return d.format }

// Decompress fills raw from chunk.
// The returned error is a *DecruncherError wrapping ErrCorruptData or ErrWrongBlockChecksum.
func (d *Decruncher) Decompress(agent string, chunk, raw []byte) (reterr error) {
	defer func() {
		if recover() != nil {
			reterr = &DecruncherError{Agent: agent, Format: d.format, Err: corrupt("internal panic")}
		}
	}()

	if err := d.d.decompress(chunk, raw); err != nil {
		return &DecruncherError{Agent: agent, Format: d.format, Err: classify(err)}
	}
	return nil
}

// Decompress decodes one chunk on a fresh Decruncher
func Decompress(agent, format string, chunk, raw []byte) error {
	d, err := New(format)
	if err != nil {
		return err
	}
	return d.Decompress(agent, chunk, raw)
}

// Formats lists the supported four-character format tags
func Formats() []string {
	return slices.Sorted(maps.Keys(formats))
}

// IsStateful reports whether chunks of the format depend on the chunks before them
func IsStateful(format string) bool {
	return format == "SHRI"
}
