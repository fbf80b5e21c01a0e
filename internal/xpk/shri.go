// XPK SHRI decruncher

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
)

// SHRI is an adaptive arithmetic coder over literals and LZ matches.
// The coder, its model and the decoded output all carry over from chunk to chunk,
// so a stream's chunks must go through one decoder in order.
type shri struct {
	state   *shriState // nil until a stream has been started
	history [][]byte
}

const (
	shriSymbols   = 499
	shriLeaf      = shriSymbols // node of symbol 0
	shriIncrement = 8
	shriRescale   = 0x2000
	shriWindow    = 65536
)

// shriModel is a heap of frequencies: node n has children 2n and 2n+1,
// nodes 1 to 498 hold sums and nodes 499 to 997 hold symbol counts.
type shriModel [2 * shriSymbols]uint32

type shriState struct {
	model       shriModel
	vLen, vNext uint32

	// bits read from the last chunk but not yet consumed
	bits  uint32
	shift int
}

func (m *shriModel) reset() {
	for n := shriLeaf; n < len(m); n++ {
		m[n] = 1
	}
	m.resum()
}

func (m *shriModel) resum() {
	for n := shriLeaf - 1; n >= 1; n-- {
		m[n] = m[2*n] + m[2*n+1]
	}
}

func (m *shriModel) total() uint32 { return m[1] }

// find returns the symbol whose cumulative range holds t
func (m *shriModel) find(t uint32) uint32 {
	n := 1
	for n < shriLeaf {
		l := 2 * n
		if t < m[l] {
			n = l
		} else {
			t -= m[l]
			n = l + 1
		}
	}
	return uint32(n - shriLeaf)
}

// bounds returns the cumulative frequency range of a symbol
func (m *shriModel) bounds(sym uint32) (low, high uint32) {
	for n := int(sym) + shriLeaf; n > 1; n >>= 1 {
		if n&1 != 0 {
			low += m[n-1]
		}
	}
	return low, low + m[int(sym)+shriLeaf]
}

func (m *shriModel) update(sym uint32) {
	for n := int(sym) + shriLeaf; n >= 1; n >>= 1 {
		m[n] += shriIncrement
	}
	if m.total() >= shriRescale {
		for n := shriLeaf; n < len(m); n++ {
			m[n] = (m[n] + 1) >> 1
		}
		m.resum()
	}
}

// scale returns mult*a/b in 16.16 fixed point
func scale(a, b, mult uint32) (uint32, error) {
	if b == 0 {
		return 0, corrupt("SHRI division by zero")
	}
	ratio := uint64(a) << 16 / uint64(b)
	return uint32(uint64(mult) * ratio >> 16), nil
}

// interval maps a cumulative frequency range onto the coder's current range
func (s *shriState) interval(low, high uint32) (lo, hi uint32, err error) {
	total := s.model.total()
	lo, err = scale(low, total, s.vLen)
	if err != nil {
		return 0, 0, err
	}
	if high == total {
		return lo, s.vLen, nil
	}
	hi, err = scale(high, total, s.vLen)
	return lo, hi, err
}

func (s *shriState) renormalize(br *bitstream.MSBReader) error {
	for s.vLen < 1<<31 {
		bit, err := br.ReadBits8(1)
		if err != nil {
			return err
		}
		s.vLen <<= 1
		s.vNext = s.vNext<<1 | bit
	}
	return nil
}

func (s *shriState) decodeSymbol(br *bitstream.MSBReader) (uint32, error) {
	total := s.model.total()
	t, err := scale(s.vNext, s.vLen, total)
	if err != nil {
		return 0, err
	}
	sym := s.model.find(min(t, total-1))

	// the scaled threshold can land one symbol off, so step until the range fits
	for {
		low, high := s.model.bounds(sym)
		lo, hi, err := s.interval(low, high)
		if err != nil {
			return 0, err
		}
		if s.vNext < lo {
			sym = s.model.find(low - 1)
		} else if s.vNext >= hi {
			sym = s.model.find(high)
		} else {
			s.vNext -= lo
			s.vLen = hi - lo
			break
		}
	}

	if err := s.renormalize(br); err != nil {
		return 0, err
	}
	s.model.update(sym)
	return sym, nil
}

// getCode reads raw bits through the coder
func (s *shriState) getCode(br *bitstream.MSBReader, n int) (uint32, error) {
	var v uint32
	for range n {
		half := s.vLen >> 1
		if s.vNext >= half {
			v = v<<1 | 1
			s.vNext -= half
			s.vLen -= half
		} else {
			v <<= 1
			s.vLen = half
		}
		if err := s.renormalize(br); err != nil {
			return 0, err
		}
	}
	return v, nil
}

func (d *shri) decompress(chunk, raw []byte) error {
	if len(chunk) < 4 {
		return corrupt("SHRI header truncated")
	}
	version := chunk[0]
	start := 4
	size := int(binary.BigEndian.Uint16(chunk[2:]))
	if chunk[2]&0x80 != 0 {
		if len(chunk) < 6 {
			return corrupt("SHRI header truncated")
		}
		start = 6
		size = -int(int32(binary.BigEndian.Uint32(chunk[2:])))
	}
	if size != len(raw) {
		return corrupt("SHRI chunk holds %d bytes, expected %d", size, len(raw))
	}

	br := bitstream.NewMSBReader(bitstream.NewForwardReader(chunk, start, len(chunk)))
	var s *shriState
	switch version {
	case 1:
		d.history = nil
		s = new(shriState)
		s.model.reset()
		s.vLen = 0xffffffff
		v, err := br.ReadBits8(32)
		if err != nil {
			return err
		}
		if v >= s.vLen {
			return corrupt("SHRI initial code out of range")
		}
		s.vNext = v
	case 2:
		if d.state == nil {
			return corrupt("SHRI: %w", ErrStateRequired)
		}
		s = d.state
		br.Reset(s.bits, s.shift)
	default:
		return corrupt("SHRI version %d", version)
	}
	// a failed chunk leaves nothing to continue from
	d.state = nil

	out := bitstream.NewForwardWriter(raw)
	for !out.EOF() {
		sym, err := s.decodeSymbol(br)
		if err != nil {
			return err
		}
		if sym < 256 {
			if err := out.WriteByte(byte(sym)); err != nil {
				return err
			}
			continue
		}

		var count, distance int
		if sym < shriSymbols-1 {
			idx := int(sym) - 256
			tier := idx / 35
			count = idx%35 + 3
			v, err := s.getCode(br, tier+2)
			if err != nil {
				return err
			}
			distance = int(v) + (1<<(tier+2)-1)&^3 + 1
		} else {
			v, err := s.getCode(br, 16)
			if err != nil {
				return err
			}
			count = int(v) + 3
			v, err = s.getCode(br, 16)
			if err != nil {
				return err
			}
			distance = int(v) + 1
		}
		if _, err := out.CopyWithHistory(distance, count, d.history); err != nil {
			return err
		}
	}

	s.bits, s.shift = br.Buffered()
	d.state = s
	d.keep(raw)
	return nil
}

// keep remembers output for later chunks to refer back to,
// dropping whole chunks that are beyond the longest distance
func (d *shri) keep(raw []byte) {
	d.history = append(d.history, append([]byte(nil), raw...))
	total := 0
	for _, h := range d.history {
		total += len(h)
	}
	for len(d.history) > 1 && total-len(d.history[0]) >= shriWindow {
		total -= len(d.history[0])
		d.history[0] = nil
		d.history = d.history[1:]
	}
}
