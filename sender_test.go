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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// emptyCodec always marshals to a zero-length payload, regardless of the
// value passed in; it exists to exercise ErrZeroSizedMessage, since the
// default codec's own length prefixes make a genuinely empty encoding
// unreachable through ordinary values.
type emptyCodec struct{}

func (emptyCodec) Marshal(v any) ([]byte, error) { return nil, nil }

func (emptyCodec) Unmarshal(data []byte, v any, zeroCopy bool) error { return nil }

func TestSender_ZeroSizedMessage(t *testing.T) {
	path, rx, err := CreateTempReceiver(256)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rx.Close() })

	tx, err := OpenSender(path, WithSenderCodec(emptyCodec{}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tx.Close() })

	require.ErrorIs(t, tx.Send("anything"), ErrZeroSizedMessage)
}

// TestSender_MessageTooLarge mirrors spec.md §8's boundary behaviors:
// S + 8 == capacity must succeed, S + 8 == capacity + 1 must fail, where S
// is the codec-encoded size. The default codec length-prefixes []byte with
// 4 bytes of its own, so the raw payload is sized 4 bytes short of S.
func TestSender_MessageTooLarge(t *testing.T) {
	const capacity = 64

	rx, tx := newTestChannel(t, capacity)

	atCapacity := make([]byte, capacity-frameOverhead-4)
	require.NoError(t, tx.Send(atCapacity))
	got, err := Recv[[]byte](rx)
	require.NoError(t, err)
	require.Equal(t, atCapacity, got)

	tooLarge := make([]byte, capacity-frameOverhead-4+1)
	require.ErrorIs(t, tx.Send(tooLarge), ErrMessageTooLarge)
}

// TestSender_WrapsAroundTail mirrors spec.md §8 scenario 3: a capacity
// chosen so two sends fit but a third doesn't; send two, receive one,
// send one more (forcing a wrap), receive two more transparently across
// the sentinel.
//
// The third message is smaller than the first two. Receiving a single
// frame of encoded size S only frees S+4 contiguous bytes (its ring-level
// prefix plus encoded payload), four bytes short of the S+8 a same-sized send
// would need, so a same-size message could never legitimately fit after
// just one receive.
//
// Sizes here are raw []byte lengths; the default codec adds its own 4-byte
// length prefix, so the encoded size S each frame actually reserves against
// is rawLen+4.
func TestSender_WrapsAroundTail(t *testing.T) {
	const rawLen1, rawLen3 = 12, 4 // encoded sizes: S1=S2=16, S3=8
	const encodedSize = rawLen1 + 4
	perFrame := uint32(encodedSize) + frameOverhead
	capacity := perFrame*2 + 4 // room for two frames but not a third

	rx, tx := newTestChannel(t, capacity)

	msg := func(b byte, size int) []byte {
		p := make([]byte, size)
		for i := range p {
			p[i] = b
		}
		return p
	}

	msg1, msg2, msg3 := msg(1, rawLen1), msg(2, rawLen1), msg(3, rawLen3)

	require.NoError(t, tx.Send(msg1))
	require.NoError(t, tx.Send(msg2))

	got, err := Recv[[]byte](rx)
	require.NoError(t, err)
	require.Equal(t, msg1, got)

	// This send can't fit in the remaining tail space, so the sender
	// must write a wrap sentinel and restart at BEGINNING.
	require.NoError(t, tx.Send(msg3))

	got, err = Recv[[]byte](rx)
	require.NoError(t, err)
	require.Equal(t, msg2, got)

	// Traverses the wrap sentinel transparently within a single Recv call.
	got, err = Recv[[]byte](rx)
	require.NoError(t, err)
	require.Equal(t, msg3, got)
}

// TestSender_BlocksUntilSpace mirrors spec.md §8 scenario 4: a full
// buffer's second send must block until the first message is received.
func TestSender_BlocksUntilSpace(t *testing.T) {
	capacity := uint32(64)
	rx, tx := newTestChannel(t, capacity)

	// Raw length is 4 less than capacity-frameOverhead: the default codec's
	// own 4-byte length prefix makes up the difference, so the encoded size
	// exactly fills the ring (S+8 == capacity).
	first := make([]byte, int(capacity)-int(frameOverhead)-4)
	require.NoError(t, tx.Send(first))

	unblocked := make(chan struct{})
	go func() {
		require.NoError(t, tx.Send([]byte("0123456789012345")))
		close(unblocked)
	}()

	select {
	case <-unblocked:
		t.Fatal("second send returned before the first message was received")
	case <-time.After(100 * time.Millisecond):
	}

	_, err := Recv[[]byte](rx)
	require.NoError(t, err)

	select {
	case <-unblocked:
	case <-time.After(time.Second):
		t.Fatal("second send never unblocked after receive")
	}
}

// TestSender_SendWhenEmptyBlocksUntilDrained mirrors spec.md §8 scenario 5.
func TestSender_SendWhenEmptyBlocksUntilDrained(t *testing.T) {
	rx, tx := newTestChannel(t, 1024)

	require.NoError(t, tx.Send(make([]byte, 10)))

	var wg sync.WaitGroup
	wg.Add(1)
	done := make(chan struct{})
	go func() {
		defer wg.Done()
		require.NoError(t, tx.SendWhenEmpty([]byte("urgent")))
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("send_when_empty returned before the buffer was drained")
	case <-time.After(100 * time.Millisecond):
	}

	_, err := Recv[[]byte](rx)
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("send_when_empty never unblocked after the buffer drained")
	}

	got, err := Recv[[]byte](rx)
	require.NoError(t, err)
	require.Equal(t, []byte("urgent"), got)

	wg.Wait()
}

func TestSender_Clone_SharesMapping(t *testing.T) {
	rx, tx := newTestChannel(t, 256)
	tx2 := tx.Clone()

	require.NoError(t, tx.Send([]byte("a")))
	require.NoError(t, tx2.Send([]byte("b")))

	got, err := Recv[[]byte](rx)
	require.NoError(t, err)
	require.Equal(t, []byte("a"), got)

	got, err = Recv[[]byte](rx)
	require.NoError(t, err)
	require.Equal(t, []byte("b"), got)
}
