// XPK RAKE decruncher

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
	"encoding/binary"

	"github.com/elliotnunn/xpkcrunch/internal/bitstream"
	"github.com/elliotnunn/xpkcrunch/internal/huffman"
)

// RAKE splits the chunk at a midpoint.
// Control bits run forward from the midpoint in 32-bit words,
// literal and distance bytes run backward from it,
// and the output is produced from its last byte to its first.
type rake struct{}

// code lengths of match lengths 2 to 256
var rakeLengthBits [255]uint8

var rakeLengthDecoder *huffman.Decoder

func init() {
	for sym := range rakeLengthBits {
		var l uint8
		switch {
		case sym < 2:
			l = 2
		case sym < 4:
			l = 3
		case sym < 8:
			l = 5
		case sym < 16:
			l = 7
		case sym < 32:
			l = 9
		case sym < 65:
			l = 12
		default:
			l = 13
		}
		rakeLengthBits[sym] = l
	}
	var err error
	rakeLengthDecoder, err = huffman.NewOrderly(rakeLengthBits[:])
	if err != nil {
		panic(err)
	}
}

func (rake) decompress(chunk, raw []byte) error {
	if len(chunk) < 4 {
		return corrupt("RAKE header truncated")
	}
	seedBits := int(binary.BigEndian.Uint16(chunk))
	mid := int(binary.BigEndian.Uint16(chunk[2:]))
	if seedBits < 1 || seedBits > 32 {
		return corrupt("RAKE seed of %d bits", seedBits)
	}
	if mid < 4 || mid+4 > len(chunk) {
		return corrupt("RAKE midpoint %d outside chunk of %d", mid, len(chunk))
	}

	br := bitstream.NewMSBReader(bitstream.NewForwardReader(chunk, mid+4, len(chunk)))
	br.Reset(binary.BigEndian.Uint32(chunk[mid:]), seedBits)
	back := bitstream.NewBackwardReader(chunk, 4, mid)
	out := bitstream.NewBackwardWriter(raw)

	for !out.EOF() {
		isMatch, err := br.ReadBit32()
		if err != nil {
			return err
		}
		if isMatch == 0 {
			b, err := back.ReadByte()
			if err != nil {
				return err
			}
			if err := out.WriteByte(b); err != nil {
				return err
			}
			continue
		}

		sym, err := rakeLengthDecoder.Decode(br.ReadBit32)
		if err != nil {
			return err
		}
		count := int(sym) + 2

		distance, err := rakeDistance(br, back)
		if err != nil {
			return err
		}
		if _, err := out.Copy(distance, count); err != nil {
			return err
		}
	}
	return nil
}

func rakeDistance(br *bitstream.MSBReader, back *bitstream.BackwardReader) (int, error) {
	far, err := br.ReadBit32()
	if err != nil {
		return 0, err
	}
	var high uint32
	base := 1
	if far != 0 {
		farther, err := br.ReadBit32()
		if err != nil {
			return 0, err
		}
		nbits := 3
		base = 0x101
		if farther != 0 {
			nbits = 6
			base = 0x901
		}
		high, err = br.ReadBits32(nbits)
		if err != nil {
			return 0, err
		}
	}
	low, err := back.ReadByte()
	if err != nil {
		return 0, err
	}
	return int(high<<8|uint32(low)) + base, nil
}
