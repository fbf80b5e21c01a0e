// XPK BLZW decruncher

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
)

// BLZW is LZW with a header-sized dictionary.
// Codes 256-258 are reserved: 256 is never valid, 257 restarts the dictionary, 258 widens codes by a bit.
type blzw struct{}

const blzwFirstCode = 259

type blzwState struct {
	br  *bitstream.MSBReader
	out *bitstream.ForwardWriter

	prefix []uint32
	suffix []byte
	stack  []byte

	maxCode   uint32
	freeIndex uint32
	codeBits  int
	prevCode  uint32
	newCode   byte // first byte of the sequence most recently written
}

func (blzw) decompress(chunk, raw []byte) error {
	in := bitstream.NewForwardReader(chunk, 0, len(chunk))
	maxBits, err := in.ReadBE16()
	if err != nil {
		return err
	}
	if maxBits < 9 || maxBits > 20 {
		return corrupt("BLZW code width %d", maxBits)
	}
	stackHint, err := in.ReadBE16()
	if err != nil {
		return err
	}

	s := &blzwState{
		br:      bitstream.NewMSBReader(in),
		out:     bitstream.NewForwardWriter(raw),
		maxCode: 1 << maxBits,
		stack:   make([]byte, int(stackHint)+5),
	}
	s.prefix = make([]uint32, s.maxCode-blzwFirstCode)
	s.suffix = make([]byte, s.maxCode-blzwFirstCode)

	if err := s.restart(); err != nil {
		return err
	}
	for !s.out.EOF() {
		code, err := s.br.ReadBits8(s.codeBits)
		if err != nil {
			return err
		}
		switch code {
		case 256:
			return corrupt("BLZW reserved code")
		case 257:
			if err := s.restart(); err != nil {
				return err
			}
		case 258:
			s.codeBits++
			if s.codeBits > 32 {
				return corrupt("BLZW code width overflow")
			}
		default:
			if code > s.freeIndex || code >= s.maxCode {
				return corrupt("BLZW code %d beyond dictionary of %d", code, s.freeIndex)
			}
			if code == s.freeIndex {
				tmp := s.newCode
				if err := s.insert(s.prevCode); err != nil {
					return err
				}
				if err := s.out.WriteByte(tmp); err != nil {
					return err
				}
			} else if err := s.insert(code); err != nil {
				return err
			}
			if s.freeIndex < s.maxCode {
				s.suffix[s.freeIndex-blzwFirstCode] = s.newCode
				s.prefix[s.freeIndex-blzwFirstCode] = s.prevCode
				s.freeIndex++
			}
			s.prevCode = code
		}
	}
	return nil
}

// restart empties the dictionary and reads the code that starts the new run
func (s *blzwState) restart() error {
	s.codeBits = 9
	s.freeIndex = blzwFirstCode
	code, err := s.br.ReadBits8(s.codeBits)
	if err != nil {
		return err
	}
	s.prevCode = code
	return s.insert(code)
}

func (s *blzwState) suffixOf(code uint32) (byte, error) {
	if code >= s.freeIndex {
		return 0, corrupt("BLZW code %d not yet defined", code)
	}
	if code < blzwFirstCode {
		return byte(code), nil
	}
	return s.suffix[code-blzwFirstCode], nil
}

// insert writes out the sequence for code, which is built back to front on the stack
func (s *blzwState) insert(code uint32) error {
	sp := 0
	b, err := s.suffixOf(code)
	if err != nil {
		return err
	}
	for code >= blzwFirstCode {
		if sp+1 >= len(s.stack) {
			return corrupt("BLZW stack overflow")
		}
		s.stack[sp] = b
		sp++
		code = s.prefix[code-blzwFirstCode]
		b, err = s.suffixOf(code)
		if err != nil {
			return err
		}
	}
	s.stack[sp] = b
	sp++
	s.newCode = b

	for sp > 0 {
		sp--
		if err := s.out.WriteByte(s.stack[sp]); err != nil {
			return err
		}
	}
	return nil
}
