// XPK SMPL decruncher

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

// SMPL codes the byte-to-byte difference with a Huffman table sent at the front of every chunk.
type smpl struct{}

func (smpl) decompress(chunk, raw []byte) error {
	in := bitstream.NewForwardReader(chunk, 0, len(chunk))
	version, err := in.ReadBE16()
	if err != nil {
		return err
	}
	if version != 1 {
		return corrupt("SMPL version %d", version)
	}
	br := bitstream.NewMSBReader(in)

	var table huffman.Decoder
	for sym := range uint32(256) {
		length, err := br.ReadBits8(4)
		if err != nil {
			return err
		}
		if length == 0 {
			continue
		}
		if length == 15 {
			ext, err := br.ReadBits8(4)
			if err != nil {
				return err
			}
			length += ext
		}
		bits, err := br.ReadBits8(int(length))
		if err != nil {
			return err
		}
		if err := table.Insert(huffman.Code{Length: int(length), Bits: bits, Symbol: sym}); err != nil {
			return err
		}
	}

	out := bitstream.NewForwardWriter(raw)
	var accum byte
	for !out.EOF() {
		delta, err := table.Decode(br.ReadBit)
		if err != nil {
			return err
		}
		accum += byte(delta)
		if err := out.WriteByte(accum); err != nil {
			return err
		}
	}
	return nil
}
