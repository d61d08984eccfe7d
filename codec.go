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

import "github.com/paultag/go-ipmpsc/internal/wire"

// Codec encodes values to, and decodes values from, the byte image stored
// in a single frame's payload. Callers may supply their own via WithCodec;
// spec.md treats the codec as an external collaborator — any codec that
// produces a length-known byte image per value is valid so long as it
// agrees with itself across the processes sharing a channel.
type Codec interface {
	// Marshal returns the encoded bytes for v.
	Marshal(v any) ([]byte, error)

	// Unmarshal decodes data into v, which must be a non-nil pointer. When
	// zeroCopy is true, string and []byte fields (and top-level string/
	// []byte values) reference data directly rather than being copied;
	// data must then outlive the decoded value.
	Unmarshal(data []byte, v any, zeroCopy bool) error
}

// DefaultCodec is a reflection-based little-endian binary codec: fixed-
// width numeric kinds are encoded verbatim, strings and byte slices carry
// a 4-byte little-endian length prefix, and structs are encoded field by
// field in declaration order. It is the Codec used by every constructor
// that isn't given WithCodec or WithSenderCodec.
var DefaultCodec Codec = wire.Binary{}
