// Byte cursors

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

// Package bitstream has the cursors that the XPK decoders are built on:
// byte readers running forwards or backwards over a chunk,
// an MSB-first bit reader,
// and writers that fill a preallocated output buffer.
package bitstream

import "errors"

var (
	ErrUnexpectedEnd = errors.New("unexpected end of input")
	ErrOverrun       = errors.New("write past end of output")
	ErrDistance      = errors.New("invalid copy distance")
)

// ForwardReader reads bytes from buf[start:end] in increasing order.
type ForwardReader struct {
	buf      []byte
	pos, end int
}

func NewForwardReader(buf []byte, start, end int) *ForwardReader {
	end = min(end, len(buf))
	start = min(max(start, 0), end)
	return &ForwardReader{buf: buf, pos: start, end: end}
}

func (r *ForwardReader) ReadByte() (byte, error) {
	if r.pos >= r.end {
		return 0, ErrUnexpectedEnd
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

// Consume returns a view of the next n bytes.
func (r *ForwardReader) Consume(n int) ([]byte, error) {
	if n < 0 || n > r.end-r.pos {
		return nil, ErrUnexpectedEnd
	}
	p := r.buf[r.pos : r.pos+n : r.pos+n]
	r.pos += n
	return p, nil
}

func (r *ForwardReader) ReadBE16() (uint16, error) {
	p, err := r.Consume(2)
	if err != nil {
		return 0, err
	}
	return uint16(p[0])<<8 | uint16(p[1]), nil
}

func (r *ForwardReader) ReadBE32() (uint32, error) {
	p, err := r.Consume(4)
	if err != nil {
		return 0, err
	}
	return uint32(p[0])<<24 | uint32(p[1])<<16 | uint32(p[2])<<8 | uint32(p[3]), nil
}

func (r *ForwardReader) Offset() int { return r.pos }
func (r *ForwardReader) EOF() bool   { return r.pos >= r.end }

// BackwardReader reads bytes from buf[floor:start] in decreasing order,
// so the first byte returned is buf[start-1].
type BackwardReader struct {
	buf        []byte
	pos, floor int
}

func NewBackwardReader(buf []byte, floor, start int) *BackwardReader {
	start = min(start, len(buf))
	floor = min(max(floor, 0), start)
	return &BackwardReader{buf: buf, pos: start, floor: floor}
}

func (r *BackwardReader) ReadByte() (byte, error) {
	if r.pos <= r.floor {
		return 0, ErrUnexpectedEnd
	}
	r.pos--
	return r.buf[r.pos], nil
}

func (r *BackwardReader) Offset() int { return r.pos }
func (r *BackwardReader) EOF() bool   { return r.pos <= r.floor }
