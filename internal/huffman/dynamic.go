// LZHUF adaptive Huffman tree

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

package huffman

// Dynamic is the adaptive Huffman model of LZHUF (lh1):
// a sibling-ordered tree whose leaves start with equal frequency
// and are promoted as their counts grow.
//
// Nodes 0..t-1 are kept sorted by frequency. son[i] >= t means node i is a leaf
// for symbol son[i]-t; otherwise node i has children son[i] and son[i]+1.
type Dynamic struct {
	n, t int
	freq []uint32
	son  []int
	prnt []int
}

func NewDynamic(symbols int) *Dynamic {
	d := &Dynamic{
		n:    symbols,
		t:    symbols*2 - 1,
		freq: make([]uint32, symbols*2),
		son:  make([]int, symbols*2-1),
		prnt: make([]int, symbols*3-1),
	}
	d.Reset()
	return d
}

func (d *Dynamic) root() int { return d.t - 1 }

func (d *Dynamic) Reset() {
	for i := range d.n {
		d.freq[i] = 1
		d.son[i] = i + d.t
		d.prnt[i+d.t] = i
	}
	for i, j := 0, d.n; j <= d.root(); i, j = i+2, j+1 {
		d.freq[j] = d.freq[i] + d.freq[i+1]
		d.son[j] = i
		d.prnt[i] = j
		d.prnt[i+1] = j
	}
	d.freq[d.t] = 0xffff // sentinel that stops the promotion scan
	d.prnt[d.root()] = 0
}

func (d *Dynamic) Decode(next func() (uint32, error)) (uint32, error) {
	if d.n == 1 {
		return 0, nil
	}
	c := d.son[d.root()]
	for c < d.t {
		bit, err := next()
		if err != nil {
			return 0, err
		}
		c = d.son[c+int(bit&1)]
	}
	return uint32(c - d.t), nil
}

// MaxFrequency is the frequency at the root, that is, the total of all leaves.
func (d *Dynamic) MaxFrequency() uint32 { return d.freq[d.root()] }

// Update counts one more occurrence of symbol and restores the sibling property.
func (d *Dynamic) Update(symbol uint32) {
	if int(symbol) >= d.n || d.n == 1 || d.freq[d.root()] >= 0xffff {
		return
	}
	c := d.prnt[int(symbol)+d.t]
	for {
		d.freq[c]++
		k := d.freq[c]
		if l := c + 1; k > d.freq[l] {
			for k > d.freq[l+1] {
				l++
			}
			d.freq[c] = d.freq[l]
			d.freq[l] = k

			i := d.son[c]
			d.prnt[i] = l
			if i < d.t {
				d.prnt[i+1] = l
			}
			j := d.son[l]
			d.son[l] = i
			d.prnt[j] = c
			if j < d.t {
				d.prnt[j+1] = c
			}
			d.son[c] = j
			c = l
		}
		c = d.prnt[c]
		if c == 0 {
			break
		}
	}
}

// Code returns the current code for symbol, as Decode would consume it.
func (d *Dynamic) Code(symbol uint32) (bits uint32, length int) {
	if int(symbol) >= d.n || d.n == 1 {
		return 0, 0
	}
	for k := d.prnt[int(symbol)+d.t]; k != d.root(); k = d.prnt[k] {
		bits |= uint32(k&1) << length
		length++
	}
	return bits, length
}
