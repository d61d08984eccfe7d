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

import (
	"testing"
	"time"
	"unsafe"

	"github.com/stretchr/testify/require"
)

type composite struct {
	S string
	B []byte
}

// TestZeroCopyContext_BorrowedFields mirrors spec.md §8 scenario 2: enter a
// zero-copy context, receive a composite value whose string and []byte
// fields must alias the mapped region rather than copy out of it, release,
// then receive a plain uint32 in ordinary copying mode.
func TestZeroCopyContext_BorrowedFields(t *testing.T) {
	rx, tx := newTestChannel(t, 256)

	want := composite{S: "hi", B: []byte{0, 1, 2, 3}}
	require.NoError(t, tx.Send(want))
	require.NoError(t, tx.Send(uint32(42)))

	zc, err := rx.ZeroCopy()
	require.NoError(t, err)

	got, err := ZeroCopyRecv[composite](zc)
	require.NoError(t, err)
	require.Equal(t, want, got)

	dataLo := uintptr(unsafe.Pointer(&rx.region.data[0]))
	dataHi := dataLo + uintptr(len(rx.region.data))

	strPtr := uintptr(unsafe.Pointer(unsafe.StringData(got.S)))
	require.True(t, strPtr >= dataLo && strPtr < dataHi, "decoded string must alias the mapped region")

	bytesPtr := uintptr(unsafe.Pointer(&got.B[0]))
	require.True(t, bytesPtr >= dataLo && bytesPtr < dataHi, "decoded []byte must alias the mapped region")

	require.NoError(t, zc.Release())

	n, err := Recv[uint32](rx)
	require.NoError(t, err)
	require.Equal(t, uint32(42), n)
}

// TestZeroCopyContext_AlreadyReceived mirrors spec invariant 5: a second
// decode through the same context fails without disturbing the read
// cursor, which only moves on Release.
func TestZeroCopyContext_AlreadyReceived(t *testing.T) {
	rx, tx := newTestChannel(t, 256)
	require.NoError(t, tx.Send([]byte("x")))

	zc, err := rx.ZeroCopy()
	require.NoError(t, err)
	defer zc.Release()

	_, err = ZeroCopyRecv[[]byte](zc)
	require.NoError(t, err)

	_, err = ZeroCopyRecv[[]byte](zc)
	require.ErrorIs(t, err, ErrAlreadyReceived)
}

// TestReceiver_ZeroCopyAlreadyBorrowed mirrors the single-outstanding-borrow
// rule: a second ZeroCopy call while one context is still live fails with
// ErrBorrowed.
func TestReceiver_ZeroCopyAlreadyBorrowed(t *testing.T) {
	rx, _ := newTestChannel(t, 256)

	zc, err := rx.ZeroCopy()
	require.NoError(t, err)
	defer zc.Release()

	_, err = rx.ZeroCopy()
	require.ErrorIs(t, err, ErrBorrowed)

	require.NoError(t, zc.Release())

	zc2, err := rx.ZeroCopy()
	require.NoError(t, err)
	require.NoError(t, zc2.Release())
}

// TestReceiver_CopyingRecvBlockedWhileBorrowed mirrors spec.md §4.5 bullet
// 1: the copying-mode receive path must refuse to run while a
// ZeroCopyContext is outstanding, since advancing read out from under it
// would let a racing producer clobber the borrow's string/[]byte fields.
func TestReceiver_CopyingRecvBlockedWhileBorrowed(t *testing.T) {
	rx, tx := newTestChannel(t, 256)
	require.NoError(t, tx.Send([]byte("x")))

	zc, err := rx.ZeroCopy()
	require.NoError(t, err)
	defer zc.Release()

	_, _, err = TryRecv[[]byte](rx)
	require.ErrorIs(t, err, ErrBorrowed)

	_, err = Recv[[]byte](rx)
	require.ErrorIs(t, err, ErrBorrowed)

	_, _, err = RecvTimeout[[]byte](rx, time.Millisecond)
	require.ErrorIs(t, err, ErrBorrowed)
}
