// {{{ Copyright (c) Paul R. Tagliamonte <paultag@gmail.com> 2020-2021
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE. }}}

package ipmpsc

import "encoding/binary"

// prefixSize is the width, in bytes, of a frame's length prefix.
const prefixSize = 4

// marginSize is the extra space (beyond the length prefix) every accepted
// frame must reserve, so a later wrap sentinel always has room to be
// written at the new write cursor. See spec invariant 5.
const marginSize = 4

// frameOverhead is the total bytes of bookkeeping a frame of payload size S
// consumes beyond S itself: the 4-byte length prefix plus the 4-byte
// wrap-sentinel margin.
const frameOverhead = prefixSize + marginSize

// wrapSentinel is the length-prefix value that means "stop here, resume
// reading at BEGINNING".
const wrapSentinel uint32 = 0

// putSize writes a little-endian frame length prefix at buf[0:4].
func putSize(buf []byte, size uint32) {
	binary.LittleEndian.PutUint32(buf, size)
}

// getSize reads a little-endian frame length prefix from buf[0:4].
func getSize(buf []byte) uint32 {
	return binary.LittleEndian.Uint32(buf)
}

// fits reports whether a frame of payload size S can be written in a
// contiguous span starting at start and ending no later than limit.
func fits(start, size, limit uint32) bool {
	return start+size+frameOverhead <= limit
}
