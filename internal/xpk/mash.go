// XPK MASH decruncher

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

// MASH alternates a run of literal bytes with a back reference.
// The literal bytes are interleaved with the bytes that feed the bit reader.
type mash struct{}

var mashLiteralDecoder = huffman.MustNew(
	huffman.Code{Length: 1, Bits: 0b0, Symbol: 0},
	huffman.Code{Length: 2, Bits: 0b10, Symbol: 1},
	huffman.Code{Length: 3, Bits: 0b110, Symbol: 2},
	huffman.Code{Length: 4, Bits: 0b1110, Symbol: 3},
	huffman.Code{Length: 5, Bits: 0b11110, Symbol: 4},
	huffman.Code{Length: 6, Bits: 0b111110, Symbol: 5},
	huffman.Code{Length: 6, Bits: 0b111111, Symbol: 6},
)

var (
	mashDistanceBits     = [8]int{5, 7, 9, 10, 11, 12, 13, 14}
	mashDistanceAddition = [8]int{0, 0x20, 0xa0, 0x2a0, 0x6a0, 0xea0, 0x1ea0, 0x3ea0}
)

type mashState struct {
	in  *bitstream.ForwardReader
	br  *bitstream.MSBReader
	out *bitstream.ForwardWriter
}

func (mash) decompress(chunk, raw []byte) error {
	in := bitstream.NewForwardReader(chunk, 0, len(chunk))
	s := &mashState{
		in:  in,
		br:  bitstream.NewMSBReader(in),
		out: bitstream.NewForwardWriter(raw),
	}

	for !s.out.EOF() {
		litLength, err := s.literalLength()
		if err != nil {
			return err
		}
		for range litLength {
			b, err := s.in.ReadByte()
			if err != nil {
				return err
			}
			if err := s.out.WriteByte(b); err != nil {
				return err
			}
		}

		count, distance, err := s.match()
		if err != nil {
			return err
		}
		// the packer commonly leaves a dummy match after the last byte
		if distance == 0 && s.out.EOF() {
			break
		}
		count = min(count, len(raw)-s.out.Offset())
		if _, err := s.out.Copy(distance, count); err != nil {
			return err
		}
	}
	return nil
}

func (s *mashState) literalLength() (int, error) {
	sym, err := mashLiteralDecoder.Decode(s.br.ReadBit)
	if err != nil || sym != 6 {
		return int(sym), err
	}
	nbits, err := s.unary(17)
	if err != nil {
		return 0, err
	}
	v, err := s.br.ReadBits8(nbits + 1)
	if err != nil {
		return 0, err
	}
	return int(v) + 1<<(nbits+1) + 4, nil
}

func (s *mashState) match() (count, distance int, err error) {
	long, err := s.br.ReadBit()
	if err != nil {
		return 0, 0, err
	}
	if long != 0 {
		nbits, err := s.unary(16)
		if err != nil {
			return 0, 0, err
		}
		v, err := s.br.ReadBits8(nbits)
		if err != nil {
			return 0, 0, err
		}
		distance, err = s.distance()
		return int(v) + 1<<nbits + 2, distance, err
	}

	three, err := s.br.ReadBit()
	if err != nil {
		return 0, 0, err
	}
	if three != 0 {
		distance, err = s.distance()
		return 3, distance, err
	}
	v, err := s.br.ReadBits8(9)
	return 2, int(v), err
}

// unary counts one-bits up to the terminating zero, plus one.
// Reaching limit is corrupt.
func (s *mashState) unary(limit int) (int, error) {
	n := 1
	for ; n < limit; n++ {
		bit, err := s.br.ReadBit()
		if err != nil {
			return 0, err
		}
		if bit == 0 {
			return n, nil
		}
	}
	return 0, corrupt("MASH unary field too long")
}

func (s *mashState) distance() (int, error) {
	tier, err := s.br.ReadBits8(3)
	if err != nil {
		return 0, err
	}
	v, err := s.br.ReadBits8(mashDistanceBits[tier])
	if err != nil {
		return 0, err
	}
	return int(v) + mashDistanceAddition[tier], nil
}
