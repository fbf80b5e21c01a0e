// XPK BZP2 decruncher

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
	"fmt"

	"github.com/elliotnunn/xpkcrunch/internal/bitstream"
	"github.com/elliotnunn/xpkcrunch/internal/huffman"
)

// BZP2 chunks are whole bzip2 streams.
type bzp2 struct{}

const (
	bzBlockMagic = 0x314159265359
	bzEndMagic   = 0x177245385090
	bzGroupSize  = 50
)

var bzCRCTable [256]uint32

func init() {
	for i := range uint32(256) {
		k := i << 24
		for range 8 {
			if k&0x80000000 != 0 {
				k = k<<1 ^ 0x04c11db7
			} else {
				k <<= 1
			}
		}
		bzCRCTable[i] = k
	}
}

var bzDeltaDecoder = huffman.MustNew(
	huffman.Code{Length: 1, Bits: 0b0, Symbol: 0},  // stop
	huffman.Code{Length: 2, Bits: 0b10, Symbol: 1}, // +1
	huffman.Code{Length: 2, Bits: 0b11, Symbol: 2}, // -1
)

// selector indices are unary coded, the all-ones code is left out so the table is incomplete
var bzSelectorDecoders [7]*huffman.Decoder

func init() {
	for groups := 2; groups <= 6; groups++ {
		d := new(huffman.Decoder)
		for i := range groups {
			d.Insert(huffman.Code{Length: i + 1, Bits: 1<<(i+1) - 2, Symbol: uint32(i)})
		}
		bzSelectorDecoders[groups] = d
	}
}

type bzp2State struct {
	br        *bitstream.MSBReader
	out       *bitstream.ForwardWriter
	blockSize int
	block     []byte
	xform     []uint32
	streamCRC uint32
}

func (bzp2) decompress(chunk, raw []byte) error {
	in := bitstream.NewForwardReader(chunk, 0, len(chunk))
	hdr, err := in.Consume(4)
	if err != nil {
		return err
	}
	if hdr[0] != 'B' || hdr[1] != 'Z' || hdr[2] != 'h' || hdr[3] < '1' || hdr[3] > '9' {
		return corrupt("BZP2 header %q", hdr)
	}

	s := &bzp2State{
		br:        bitstream.NewMSBReader(in),
		out:       bitstream.NewForwardWriter(raw),
		blockSize: int(hdr[3]-'0') * 100000,
	}

	for {
		magic, err := s.bits48()
		if err != nil {
			return err
		}
		switch magic {
		case bzBlockMagic:
			if err := s.readBlock(); err != nil {
				return err
			}
		case bzEndMagic:
			want, err := s.br.ReadBits8(32)
			if err != nil {
				return err
			}
			if !s.out.EOF() {
				return corrupt("BZP2 stream ended %d bytes short", len(raw)-s.out.Offset())
			}
			if want != s.streamCRC {
				return fmt.Errorf("%w: stream CRC %08x, expected %08x", ErrWrongBlockChecksum, s.streamCRC, want)
			}
			return nil
		default:
			return corrupt("BZP2 block magic %012x", magic)
		}
	}
}

func (s *bzp2State) bits48() (uint64, error) {
	hi, err := s.br.ReadBits8(24)
	if err != nil {
		return 0, err
	}
	lo, err := s.br.ReadBits8(24)
	if err != nil {
		return 0, err
	}
	return uint64(hi)<<24 | uint64(lo), nil
}

func (s *bzp2State) readBlock() error {
	br := s.br
	if _, err := br.ReadBits8(32); err != nil { // block CRC, the stream CRC covers it
		return err
	}
	randomized, err := br.ReadBit()
	if err != nil {
		return err
	}
	origPtr, err := br.ReadBits8(24)
	if err != nil {
		return err
	}

	// symbol map
	var symMap [256]byte
	numUsed := 0
	usedGroups, err := br.ReadBits8(16)
	if err != nil {
		return err
	}
	for i := range 16 {
		if usedGroups&(0x8000>>i) == 0 {
			continue
		}
		detail, err := br.ReadBits8(16)
		if err != nil {
			return err
		}
		for j := range 16 {
			if detail&(0x8000>>j) != 0 {
				symMap[numUsed] = byte(i*16 + j)
				numUsed++
			}
		}
	}
	if numUsed == 0 {
		return corrupt("BZP2 block uses no symbols")
	}
	numSymbols := numUsed + 2

	numGroups, err := br.ReadBits8(3)
	if err != nil {
		return err
	}
	if numGroups < 2 || numGroups > 6 {
		return corrupt("BZP2 %d huffman groups", numGroups)
	}
	numSelectors, err := br.ReadBits8(15)
	if err != nil {
		return err
	}
	if numSelectors == 0 {
		return corrupt("BZP2 no selectors")
	}

	selectors := make([]byte, numSelectors)
	mtf := [6]byte{0, 1, 2, 3, 4, 5}
	for i := range selectors {
		idx, err := bzSelectorDecoders[numGroups].Decode(br.ReadBit)
		if err != nil {
			return err
		}
		v := mtf[idx]
		copy(mtf[1:idx+1], mtf[:idx])
		mtf[0] = v
		selectors[i] = v
	}

	tables := make([]*huffman.Decoder, numGroups)
	lengths := make([]uint8, numSymbols)
	for g := range tables {
		length, err := br.ReadBits8(5)
		if err != nil {
			return err
		}
		for sym := range lengths {
			for {
				if length < 1 || length > 20 {
					return corrupt("BZP2 code length %d", int32(length))
				}
				delta, err := bzDeltaDecoder.Decode(br.ReadBit)
				if err != nil {
					return err
				}
				if delta == 0 {
					break
				} else if delta == 1 {
					length++
				} else {
					length--
				}
			}
			lengths[sym] = uint8(length)
		}
		tables[g], err = huffman.NewOrderly(lengths)
		if err != nil {
			return err
		}
	}

	blockLen, err := s.readSymbols(selectors, tables, &symMap, numSymbols)
	if err != nil {
		return err
	}

	// An empty block is accepted and contributes the CRC of nothing
	var decoded []byte
	if blockLen > 0 {
		if int(origPtr) >= blockLen {
			return corrupt("BZP2 BWT origin %d beyond block of %d", origPtr, blockLen)
		}
		decoded = make([]byte, blockLen)
		s.unblockSort(s.block[:blockLen], int(origPtr), decoded)
	}

	crc, err := s.unRLE(decoded, randomized != 0)
	if err != nil {
		return err
	}
	s.streamCRC = (s.streamCRC<<1 | s.streamCRC>>31) ^ crc
	return nil
}

// readSymbols undoes the Huffman, RUNA/RUNB and move-to-front stages into s.block
func (s *bzp2State) readSymbols(selectors []byte, tables []*huffman.Decoder, symMap *[256]byte, numSymbols int) (int, error) {
	if s.block == nil {
		s.block = make([]byte, s.blockSize)
	}
	var mtf [256]byte
	for i := range mtf {
		mtf[i] = byte(i)
	}
	eob := uint32(numSymbols - 1)

	blockLen := 0
	runLength, runBit := 0, 0
	groupIndex, groupLeft := 0, 0
	var table *huffman.Decoder
	for {
		if groupLeft == 0 {
			if groupIndex >= len(selectors) {
				return 0, corrupt("BZP2 ran out of selectors")
			}
			table = tables[selectors[groupIndex]]
			groupIndex++
			groupLeft = bzGroupSize
		}
		groupLeft--

		sym, err := table.Decode(s.br.ReadBit)
		if err != nil {
			return 0, err
		}
		if sym < 2 { // RUNA or RUNB
			if runBit > 20 {
				return 0, corrupt("BZP2 run too long")
			}
			runLength += int(sym+1) << runBit
			runBit++
			continue
		}

		if runLength > 0 {
			if blockLen+runLength > s.blockSize {
				return 0, corrupt("BZP2 block overflow")
			}
			b := symMap[mtf[0]]
			for i := range runLength {
				s.block[blockLen+i] = b
			}
			blockLen += runLength
			runLength, runBit = 0, 0
		}

		if sym == eob {
			return blockLen, nil
		}

		idx := sym - 1
		v := mtf[idx]
		copy(mtf[1:idx+1], mtf[:idx])
		mtf[0] = v
		if blockLen >= s.blockSize {
			return 0, corrupt("BZP2 block overflow")
		}
		s.block[blockLen] = symMap[v]
		blockLen++
	}
}

// unblockSort inverts the BWT with a counting sort, at the cost of a 32-bit word per byte
func (s *bzp2State) unblockSort(block []byte, origPtr int, out []byte) {
	var counts, cumcounts [256]uint32
	if s.xform == nil {
		s.xform = make([]uint32, s.blockSize)
	}
	xform := s.xform[:len(block)]

	for _, b := range block {
		counts[b]++
	}
	cum := uint32(0)
	for i := range 256 {
		cumcounts[i] = cum
		cum += counts[i]
		counts[i] = 0
	}
	for i, b := range block {
		xform[cumcounts[b]+counts[b]] = uint32(i)
		counts[b]++
	}

	j := xform[origPtr]
	for i := range out {
		out[i] = block[j]
		j = xform[j]
	}
}

// unRLE expands runs of four equal bytes and a count byte into the output, returning the block CRC.
// A block may end straight after four equal bytes with no count,
// and counts up to 255 are accepted although bzip2 never writes more than 251.
func (s *bzp2State) unRLE(block []byte, randomized bool) (uint32, error) {
	crc := uint32(0xffffffff)
	put := func(ch byte) error {
		crc = crc<<8 ^ bzCRCTable[byte(crc>>24)^ch]
		return s.out.WriteByte(ch)
	}

	var rnd bzRand
	count := 0
	last := byte(0)
	for _, ch := range block {
		if randomized {
			ch ^= rnd.next()
		}

		if count == 4 {
			for range ch {
				if err := put(last); err != nil {
					return 0, err
				}
			}
			count = 0
		} else {
			if err := put(ch); err != nil {
				return 0, err
			}
			if ch != last {
				count = 0
				last = ch
			}
			count++
		}
	}
	return ^crc, nil
}

// bzRand replays the pseudo-random bit flips of old randomized bzip2 blocks
type bzRand struct {
	toGo, pos int
}

func (r *bzRand) next() byte {
	if r.toGo == 0 {
		r.toGo = int(bzRNums[r.pos])
		r.pos = (r.pos + 1) % len(bzRNums)
	}
	r.toGo--
	if r.toGo == 1 {
		return 1
	}
	return 0
}

var bzRNums = [512]uint16{
	619, 720, 127, 481, 931, 816, 813, 233, 566, 247,
	985, 724, 205, 454, 863, 491, 741, 242, 949, 214,
	733, 859, 335, 708, 621, 574, 73, 654, 730, 472,
	419, 436, 278, 496, 867, 210, 399, 680, 480, 51,
	878, 465, 811, 169, 869, 675, 611, 697, 867, 561,
	862, 687, 507, 283, 482, 129, 807, 591, 733, 623,
	150, 238, 59, 379, 684, 877, 625, 169, 643, 105,
	170, 607, 520, 932, 727, 476, 693, 425, 174, 647,
	73, 122, 335, 530, 442, 853, 695, 249, 445, 515,
	909, 545, 703, 919, 874, 474, 882, 500, 594, 612,
	641, 801, 220, 162, 819, 984, 589, 513, 495, 799,
	161, 604, 958, 533, 221, 400, 386, 867, 600, 782,
	382, 596, 414, 171, 516, 375, 682, 485, 911, 276,
	98, 553, 163, 354, 666, 933, 424, 341, 533, 870,
	227, 730, 475, 186, 263, 647, 537, 686, 600, 224,
	469, 68, 770, 919, 190, 373, 294, 822, 808, 206,
	184, 943, 795, 384, 383, 461, 404, 758, 839, 887,
	715, 67, 618, 276, 204, 918, 873, 777, 604, 560,
	951, 160, 578, 722, 79, 804, 96, 409, 713, 940,
	652, 934, 970, 447, 318, 353, 859, 672, 112, 785,
	645, 863, 803, 350, 139, 93, 354, 99, 820, 908,
	609, 772, 154, 274, 580, 184, 79, 626, 630, 742,
	653, 282, 762, 623, 680, 81, 927, 626, 789, 125,
	411, 521, 938, 300, 821, 78, 343, 175, 128, 250,
	170, 774, 972, 275, 999, 639, 495, 78, 352, 126,
	857, 956, 358, 619, 580, 124, 737, 594, 701, 612,
	669, 112, 134, 694, 363, 992, 809, 743, 168, 974,
	944, 375, 748, 52, 600, 747, 642, 182, 862, 81,
	344, 805, 988, 739, 511, 655, 814, 334, 249, 515,
	897, 955, 664, 981, 649, 113, 974, 459, 893, 228,
	433, 837, 553, 268, 926, 240, 102, 654, 459, 51,
	686, 754, 806, 760, 493, 403, 415, 394, 687, 700,
	946, 670, 656, 610, 738, 392, 760, 799, 887, 653,
	978, 321, 576, 617, 626, 502, 894, 679, 243, 440,
	680, 879, 194, 572, 640, 724, 926, 56, 204, 700,
	707, 151, 457, 449, 797, 195, 791, 558, 945, 679,
	297, 59, 87, 824, 713, 663, 412, 693, 342, 606,
	134, 108, 571, 364, 631, 212, 174, 643, 304, 329,
	343, 97, 430, 751, 497, 314, 983, 374, 822, 928,
	140, 206, 73, 263, 980, 736, 876, 478, 430, 305,
	170, 514, 364, 692, 829, 82, 855, 953, 676, 246,
	369, 970, 294, 750, 807, 827, 150, 790, 288, 923,
	804, 378, 215, 828, 592, 281, 565, 555, 710, 82,
	896, 831, 547, 261, 524, 462, 293, 465, 502, 56,
	661, 821, 976, 991, 658, 869, 905, 758, 745, 193,
	768, 550, 608, 933, 378, 286, 215, 979, 792, 961,
	61, 688, 793, 644, 986, 403, 106, 366, 905, 644,
	372, 567, 466, 434, 645, 210, 389, 550, 919, 135,
	780, 773, 635, 389, 707, 100, 626, 958, 165, 504,
	920, 176, 193, 713, 857, 265, 203, 50, 668, 108,
	645, 990, 626, 197, 510, 357, 358, 850, 858, 364,
	936, 638,
}
