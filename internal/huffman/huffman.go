// Huffman decoder

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

// Package huffman decodes prefix codes one bit at a time by walking a binary trie.
package huffman

import (
	"errors"
	"fmt"
)

var (
	ErrConflict   = errors.New("huffman code is not prefix-free")
	ErrIncomplete = errors.New("huffman code not in table")
	ErrLength     = errors.New("invalid huffman code length")
)

const MaxLength = 32

// Code is one table entry: the low Length bits of Bits, sent most significant first.
type Code struct {
	Length int
	Bits   uint32
	Symbol uint32
}

type node struct {
	zero, one int32 // 0 means no child, because nothing points back at the root
	leaf      bool
	symbol    uint32
}

// A Decoder is a trie of prefix codes. The zero value is an empty table.
type Decoder struct {
	nodes []node
}

// New builds a decoder from an explicit list of codes.
func New(codes ...Code) (*Decoder, error) {
	d := new(Decoder)
	for _, c := range codes {
		if err := d.Insert(c); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// MustNew is New for fixed tables known to be valid.
func MustNew(codes ...Code) *Decoder {
	d, err := New(codes...)
	if err != nil {
		panic(err)
	}
	return d
}

// NewOrderly builds a canonical decoder from per-symbol code lengths, zero meaning unused.
// Codes are assigned as in RFC 1951:
// shorter codes sort first and codes of equal length are consecutive in symbol order.
func NewOrderly(lengths []uint8) (*Decoder, error) {
	var count [MaxLength + 1]uint32
	for _, l := range lengths {
		if int(l) > MaxLength {
			return nil, ErrLength
		}
		count[l]++
	}
	count[0] = 0

	var next [MaxLength + 1]uint64
	code := uint64(0)
	for l := 1; l <= MaxLength; l++ {
		code = (code + uint64(count[l-1])) << 1
		next[l] = code
	}

	d := new(Decoder)
	for sym, l := range lengths {
		if l == 0 {
			continue
		}
		c := next[l]
		next[l]++
		if c >= 1<<l {
			return nil, fmt.Errorf("%w: %d-bit codes oversubscribed", ErrConflict, l)
		}
		if err := d.Insert(Code{Length: int(l), Bits: uint32(c), Symbol: uint32(sym)}); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (d *Decoder) Insert(c Code) error {
	if c.Length <= 0 || c.Length > MaxLength {
		return ErrLength
	}
	if len(d.nodes) == 0 {
		d.nodes = append(d.nodes, node{})
	}

	n := int32(0)
	for i := c.Length - 1; i >= 0; i-- {
		if d.nodes[n].leaf {
			return ErrConflict
		}
		child := &d.nodes[n].zero
		if c.Bits>>i&1 != 0 {
			child = &d.nodes[n].one
		}
		if *child == 0 {
			*child = int32(len(d.nodes))
			d.nodes = append(d.nodes, node{}) // invalidates child
		} else if i == 0 {
			return ErrConflict
		}
		if c.Bits>>i&1 != 0 {
			n = d.nodes[n].one
		} else {
			n = d.nodes[n].zero
		}
	}
	d.nodes[n].leaf = true
	d.nodes[n].symbol = c.Symbol
	return nil
}

// Decode walks the trie using bits from next.
// Running off the edge of an incomplete table is ErrIncomplete.
func (d *Decoder) Decode(next func() (uint32, error)) (uint32, error) {
	if len(d.nodes) == 0 {
		return 0, ErrIncomplete
	}
	n := int32(0)
	for !d.nodes[n].leaf {
		bit, err := next()
		if err != nil {
			return 0, err
		}
		if bit != 0 {
			n = d.nodes[n].one
		} else {
			n = d.nodes[n].zero
		}
		if n == 0 {
			return 0, ErrIncomplete
		}
	}
	return d.nodes[n].symbol, nil
}
