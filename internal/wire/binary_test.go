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

package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func roundTrip[T any](t *testing.T, want T) T {
	t.Helper()
	var c Binary

	encoded, err := c.Marshal(want)
	require.NoError(t, err)

	var got T
	require.NoError(t, c.Unmarshal(encoded, &got, false))
	return got
}

func TestBinary_FixedWidthScalars(t *testing.T) {
	require.Equal(t, true, roundTrip(t, true))
	require.Equal(t, int8(-12), roundTrip(t, int8(-12)))
	require.Equal(t, uint8(200), roundTrip(t, uint8(200)))
	require.Equal(t, int16(-1000), roundTrip(t, int16(-1000)))
	require.Equal(t, uint16(60000), roundTrip(t, uint16(60000)))
	require.Equal(t, int32(-100000), roundTrip(t, int32(-100000)))
	require.Equal(t, uint32(4000000000), roundTrip(t, uint32(4000000000)))
	require.Equal(t, int64(-1<<40), roundTrip(t, int64(-1<<40)))
	require.Equal(t, uint64(1<<60), roundTrip(t, uint64(1<<60)))
	require.InDelta(t, float32(3.25), roundTrip(t, float32(3.25)), 0.0001)
	require.InDelta(t, 6.02214076e23, roundTrip(t, 6.02214076e23), 1e10)
}

func TestBinary_StringAndBytes(t *testing.T) {
	require.Equal(t, "", roundTrip(t, ""))
	require.Equal(t, "hello, ring", roundTrip(t, "hello, ring"))
	require.Equal(t, []byte{}, roundTrip(t, []byte{}))
	require.Equal(t, []byte{1, 2, 3, 4, 5}, roundTrip(t, []byte{1, 2, 3, 4, 5}))
}

func TestBinary_SliceOfNonBytes(t *testing.T) {
	want := []uint32{1, 2, 3, 4, 5}
	require.Equal(t, want, roundTrip(t, want))
}

func TestBinary_Array(t *testing.T) {
	want := [4]byte{9, 8, 7, 6}
	require.Equal(t, want, roundTrip(t, want))
}

type point struct {
	X, Y int32
	Name string
}

func TestBinary_Struct(t *testing.T) {
	want := point{X: 1, Y: -2, Name: "origin"}
	require.Equal(t, want, roundTrip(t, want))
}

func TestBinary_NestedStructAndSlice(t *testing.T) {
	type shape struct {
		Points []point
		Closed bool
	}
	want := shape{
		Points: []point{{X: 0, Y: 0, Name: "a"}, {X: 1, Y: 1, Name: "b"}},
		Closed: true,
	}
	require.Equal(t, want, roundTrip(t, want))
}

// TestBinary_ZeroCopyAliasesInput verifies that decoding with zeroCopy=true
// gives back a string/[]byte that shares the input buffer's backing array
// instead of a copy, which is the entire reason ZeroCopyContext exists.
func TestBinary_ZeroCopyAliasesInput(t *testing.T) {
	var c Binary

	encoded, err := c.Marshal(composite{S: "borrowed", B: []byte{1, 2, 3}})
	require.NoError(t, err)

	var got composite
	require.NoError(t, c.Unmarshal(encoded, &got, true))
	require.Equal(t, "borrowed", got.S)
	require.Equal(t, []byte{1, 2, 3}, got.B)

	// Mutating the encoded buffer in place must be visible through the
	// decoded []byte, proving it aliases rather than copies.
	bOff := len(encoded) - len(got.B)
	encoded[bOff] = 0xFF
	require.Equal(t, byte(0xFF), got.B[0])
}

type composite struct {
	S string
	B []byte
}

func TestBinary_CopyingDecodeDoesNotAliasInput(t *testing.T) {
	var c Binary

	encoded, err := c.Marshal([]byte{1, 2, 3})
	require.NoError(t, err)

	var got []byte
	require.NoError(t, c.Unmarshal(encoded, &got, false))

	encoded[len(encoded)-1] = 0xFF
	require.Equal(t, byte(3), got[len(got)-1], "copying decode must not alias the input buffer")
}

func TestBinary_UnmarshalRequiresPointer(t *testing.T) {
	var c Binary
	var notAPointer int
	err := c.Unmarshal([]byte{1}, notAPointer, false)
	require.Error(t, err)
}

func TestBinary_UnmarshalRejectsTrailingBytes(t *testing.T) {
	var c Binary

	encoded, err := c.Marshal(uint32(7))
	require.NoError(t, err)
	encoded = append(encoded, 0, 0)

	var got uint32
	require.Error(t, c.Unmarshal(encoded, &got, false))
}
