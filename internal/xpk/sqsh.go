// XPK SQSH decruncher

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

// SQSH predicts 8-bit samples.
// Each step either repeats earlier output or subtracts a run of small signed deltas from the last sample.
type sqsh struct{}

var (
	sqshModDecoder = huffman.MustNew(
		huffman.Code{Length: 1, Bits: 0b1, Symbol: 0},
		huffman.Code{Length: 2, Bits: 0b00, Symbol: 1},
		huffman.Code{Length: 3, Bits: 0b010, Symbol: 2},
		huffman.Code{Length: 4, Bits: 0b0110, Symbol: 3},
		huffman.Code{Length: 4, Bits: 0b0111, Symbol: 4},
	)
	sqshLengthDecoder = huffman.MustNew(
		huffman.Code{Length: 1, Bits: 0b0, Symbol: 0},
		huffman.Code{Length: 2, Bits: 0b10, Symbol: 1},
		huffman.Code{Length: 3, Bits: 0b110, Symbol: 2},
		huffman.Code{Length: 4, Bits: 0b1110, Symbol: 3},
		huffman.Code{Length: 4, Bits: 0b1111, Symbol: 4},
	)
	sqshDistanceDecoder = huffman.MustNew(
		huffman.Code{Length: 1, Bits: 0b1, Symbol: 0},
		huffman.Code{Length: 2, Bits: 0b00, Symbol: 1},
		huffman.Code{Length: 2, Bits: 0b01, Symbol: 2},
	)

	sqshLengthBits   = [5]int{1, 1, 1, 3, 5}
	sqshLengthBase   = [5]int{2, 4, 6, 8, 16}
	sqshDistanceBits = [3]int{12, 8, 14}
	sqshDistanceBase = [3]int{0x101, 1, 0x1101}
)

// delta width chosen by the previous width and a selector
var sqshDeltaWidths = [7][8]int{
	{2, 3, 4, 5, 6, 7, 8, 0},
	{3, 2, 4, 5, 6, 7, 8, 0},
	{4, 3, 5, 2, 6, 7, 8, 0},
	{5, 4, 6, 2, 3, 7, 8, 0},
	{6, 5, 7, 2, 3, 4, 8, 0},
	{7, 6, 8, 2, 3, 4, 5, 0},
	{8, 7, 6, 2, 3, 4, 5, 0},
}

type sqshState struct {
	br       *bitstream.MSBReader
	out      *bitstream.ForwardWriter
	sample   byte
	accum1   int // saturates at 31, counts recent delta runs
	accum2   int // decays by an eighth every step
	prevBits int
}

func (sqsh) decompress(chunk, raw []byte) error {
	in := bitstream.NewForwardReader(chunk, 0, len(chunk))
	size, err := in.ReadBE16()
	if err != nil {
		return err
	}
	if int(size) != len(raw) {
		return corrupt("SQSH chunk holds %d bytes, expected %d", size, len(raw))
	}
	if len(raw) == 0 {
		return nil
	}
	first, err := in.ReadByte()
	if err != nil {
		return err
	}

	s := &sqshState{
		br:     bitstream.NewMSBReader(in),
		out:    bitstream.NewForwardWriter(raw),
		sample: first,
	}
	if err := s.out.WriteByte(first); err != nil {
		return err
	}

	for !s.out.EOF() {
		if err := s.step(len(raw)); err != nil {
			return err
		}
		s.accum2 -= s.accum2 >> 3
	}
	return nil
}

func (s *sqshState) step(size int) error {
	var bits, count int
	if s.accum1 >= 8 {
		mod, err := sqshModDecoder.Decode(s.br.ReadBit)
		if err != nil {
			return err
		}
		var sel int
		switch mod {
		case 0:
			bits = s.prevBits
		case 1:
			return s.repeat(size)
		case 2, 3:
			sel = int(mod)
		case 4:
			v, err := s.br.ReadBits8(2)
			if err != nil {
				return err
			}
			sel = int(v) + 4
		}
		if sel != 0 {
			if s.prevBits < 2 {
				return corrupt("SQSH delta width follows width %d", s.prevBits)
			}
			bits = sqshDeltaWidths[s.prevBits-2][sel-1]
			if bits == 0 {
				return corrupt("SQSH delta width selector %d", sel)
			}
		}
		if bits == 8 {
			if s.accum2 < 20 {
				count = 1
			} else {
				count = 2
				s.accum2 += 8
			}
		} else {
			count = 5
			s.accum2 += 8
		}
	} else {
		isRepeat, err := s.br.ReadBit()
		if err != nil {
			return err
		}
		if isRepeat != 0 {
			return s.repeat(size)
		}
		count, bits = 1, 8
	}
	return s.deltas(size, count, bits)
}

func (s *sqshState) repeat(size int) error {
	idx, err := sqshLengthDecoder.Decode(s.br.ReadBit)
	if err != nil {
		return err
	}
	v, err := s.br.ReadBits8(sqshLengthBits[idx])
	if err != nil {
		return err
	}
	count := int(v) + sqshLengthBase[idx]
	if count >= 3 {
		if s.accum1 != 0 {
			s.accum1--
		}
		if count > 3 && s.accum1 != 0 {
			s.accum1--
		}
	}

	idx, err = sqshDistanceDecoder.Decode(s.br.ReadBit)
	if err != nil {
		return err
	}
	v, err = s.br.ReadBits8(sqshDistanceBits[idx])
	if err != nil {
		return err
	}
	distance := int(v) + sqshDistanceBase[idx]

	count = min(count, size-s.out.Offset())
	s.sample, err = s.out.Copy(distance, count)
	return err
}

func (s *sqshState) deltas(size, count, bits int) error {
	if bits < 1 || bits > 8 {
		return corrupt("SQSH delta width %d", bits)
	}
	count = min(count, size-s.out.Offset())
	for range count {
		v, err := s.br.ReadBits8(bits)
		if err != nil {
			return err
		}
		if v&(1<<(bits-1)) != 0 {
			v -= 1 << bits // sign extend
		}
		s.sample -= byte(v)
		if err := s.out.WriteByte(s.sample); err != nil {
			return err
		}
	}
	if s.accum1 != 31 {
		s.accum1++
	}
	s.prevBits = bits
	return nil
}
