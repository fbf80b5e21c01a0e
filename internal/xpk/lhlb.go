// XPK LHLB decruncher

// XAD library system for archive handling
// Copyright (C) 1998 and later by Dirk Stoecker <soft@dstoecker.de>

// ported to Go
// Copyright (C) 2025 Elliot Nunn

// This library is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 2.1 of the License, or (at your option) any later version.

// This library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.

package xpk

import (
	"github.com/elliotnunn/xpkcrunch/internal/bitstream"
	"github.com/elliotnunn/xpkcrunch/internal/huffman"
)

// LHLB is LZHUF with 317 symbols.
// Unlike LH1 the model is frozen rather than halved once the root reaches 0x8000,
// and symbol 316 is an ordinary length code rather than an end marker.
type lhlb struct{}

const (
	lhlbSymbols  = 317
	lhlbFreqStop = 0x8000
)

// high six bits of the distance, indexed by the first distance byte
var lhlbDistanceHigh [256]byte

// extra bits that follow the first distance byte, indexed by its high nibble
var lhlbDistanceBits = [16]int{1, 1, 2, 2, 2, 3, 3, 3, 3, 4, 4, 4, 5, 5, 5, 6}

func init() {
	i := 0
	for _, run := range []struct{ first, last, each int }{
		{0x00, 0x00, 32},
		{0x01, 0x03, 16},
		{0x04, 0x0b, 8},
		{0x0c, 0x17, 4},
		{0x18, 0x2f, 2},
		{0x30, 0x3f, 1},
	} {
		for v := run.first; v <= run.last; v++ {
			for range run.each {
				lhlbDistanceHigh[i] = byte(v)
				i++
			}
		}
	}
}

func (lhlb) decompress(chunk, raw []byte) error {
	br := bitstream.NewMSBReader(bitstream.NewForwardReader(chunk, 0, len(chunk)))
	out := bitstream.NewForwardWriter(raw)
	model := huffman.NewDynamic(lhlbSymbols)

	for !out.EOF() {
		sym, err := model.Decode(br.ReadBit)
		if err != nil {
			return err
		}
		if model.MaxFrequency() < lhlbFreqStop {
			model.Update(sym)
		}

		if sym < 256 {
			if err := out.WriteByte(byte(sym)); err != nil {
				return err
			}
			continue
		}

		tmp, err := br.ReadBits8(8)
		if err != nil {
			return err
		}
		nbits := lhlbDistanceBits[tmp>>4]
		low, err := br.ReadBits8(nbits)
		if err != nil {
			return err
		}
		distance := (int(lhlbDistanceHigh[tmp])<<6 | int((tmp<<nbits|low)&63)) + 1
		count := int(sym) - 253
		if _, err := out.Copy(distance, count); err != nil {
			return err
		}
	}
	return nil
}
