/*
   rv32ima - bit and endian utility functions.

   Copyright (c) 2024, Richard Cornwell

   Permission is hereby granted, free of charge, to any person obtaining a
   copy of this software and associated documentation files (the "Software"),
   to deal in the Software without restriction, including without limitation
   the rights to use, copy, modify, merge, publish, distribute, sublicense,
   and/or sell copies of the Software, and to permit persons to whom the
   Software is furnished to do so, subject to the following conditions:

   The above copyright notice and this permission notice shall be included in
   all copies or substantial portions of the Software.

   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
   ROBERT M SUPNIK BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
   IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
   CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

*/

// Package bits holds the small bit-twiddling helpers shared by the decoder,
// CPU and MMU: sign extension, field cut/pack, and little-endian load/store
// of 1/2/4/8 byte integers over a byte slice.
package bits

// Cut extracts bits [lo, hi] (inclusive, 0-indexed from the LSB) of v.
func Cut(v uint32, lo, hi uint) uint32 {
	width := hi - lo + 1
	mask := uint32((uint64(1)<<width)-1) << lo
	return (v & mask) >> lo
}

// Put returns v with bits [lo, hi] replaced by the low bits of nv.
func Put(v uint32, lo, hi uint, nv uint32) uint32 {
	width := hi - lo + 1
	mask := uint32((uint64(1)<<width) - 1)
	return (v &^ (mask << lo)) | ((nv & mask) << lo)
}

// SignExtend sign-extends the low width bits of v to a full 32-bit value.
func SignExtend(v uint32, width uint) uint32 {
	shift := 32 - width
	return uint32(int32(v<<shift) >> shift)
}

// GetBit returns 1 if bit n of v is set, else 0.
func GetBit(v uint32, n uint) uint32 {
	return (v >> n) & 1
}

// SetBit sets or clears bit n of v according to on.
func SetBit(v uint32, n uint, on bool) uint32 {
	if on {
		return v | (1 << n)
	}
	return v &^ (1 << n)
}

// Read8 through Read64 load little-endian unsigned integers from a byte slice.
func Read8(b []byte) uint8   { return b[0] }
func Read16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }
func Read32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func Read64(b []byte) uint64 {
	return uint64(Read32(b)) | uint64(Read32(b[4:]))<<32
}

// Write8 through Write64 store little-endian unsigned integers into a byte slice.
func Write8(b []byte, v uint8) { b[0] = v }

func Write16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

func Write32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func Write64(b []byte, v uint64) {
	Write32(b, uint32(v))
	Write32(b[4:], uint32(v>>32))
}
