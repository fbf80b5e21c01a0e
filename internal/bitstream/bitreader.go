// MSB-first bit reader

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

package bitstream

import "io"

// MSBReader pulls bits most-significant-first from a byte source.
// Bits already pulled from the source but not yet returned are held in acc.
type MSBReader struct {
	src io.ByteReader
	acc uint64 // only the low n bits are meaningful
	n   int
}

func NewMSBReader(src io.ByteReader) *MSBReader {
	return &MSBReader{src: src}
}

// ReadBits8 returns the next count bits (count <= 32),
// refilling from the source one byte at a time.
func (r *MSBReader) ReadBits8(count int) (uint32, error) {
	for r.n < count {
		b, err := r.src.ReadByte()
		if err != nil {
			return 0, ErrUnexpectedEnd
		}
		r.acc = r.acc<<8 | uint64(b)
		r.n += 8
	}
	return r.take(count), nil
}

// ReadBits32 returns the next count bits (count <= 32),
// refilling from the source one big-endian 32-bit word at a time.
func (r *MSBReader) ReadBits32(count int) (uint32, error) {
	for r.n < count {
		var w uint64
		for range 4 {
			b, err := r.src.ReadByte()
			if err != nil {
				return 0, ErrUnexpectedEnd
			}
			w = w<<8 | uint64(b)
		}
		r.acc = r.acc<<32 | w
		r.n += 32
	}
	return r.take(count), nil
}

func (r *MSBReader) ReadBit() (uint32, error)   { return r.ReadBits8(1) }
func (r *MSBReader) ReadBit32() (uint32, error) { return r.ReadBits32(1) }

func (r *MSBReader) take(count int) uint32 {
	if count <= 0 {
		return 0
	}
	r.n -= count
	v := uint32(r.acc >> r.n & (1<<count - 1))
	r.acc &= 1<<r.n - 1
	return v
}

// Reset discards buffered bits and primes the reader with the low count bits of bits.
func (r *MSBReader) Reset(bits uint32, count int) {
	count = min(max(count, 0), 32)
	r.acc = uint64(bits) & (1<<count - 1)
	r.n = count
}

// Buffered returns the bits pulled from the source but not yet consumed,
// in the form accepted by Reset.
func (r *MSBReader) Buffered() (bits uint32, count int) {
	return uint32(r.acc), r.n
}
