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
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Receiver is the consuming end of a channel. It owns the mapped region
// exclusively within its process; exactly one Receiver may exist per
// backing file at a time (spec: single-consumer constraint).
type Receiver struct {
	region *region
	codec  Codec
	logger *zap.Logger

	// borrowed enforces the "at most one outstanding ZeroCopyContext"
	// rule at runtime, the way spec.md's Design Notes prescribe for host
	// languages without a borrow checker.
	borrowed atomic.Bool
}

// CreateReceiver creates (or truncates) the file at path, sizes it to hold
// capacity usable bytes, maps it, and initializes the header. Any number
// of Senders may subsequently be opened against path.
func CreateReceiver(path string, capacity uint32, opts ...ReceiverOption) (*Receiver, error) {
	o := defaultReceiverOptions()
	for _, opt := range opts {
		opt(&o)
	}

	reg, err := createRegion(path, capacity)
	if err != nil {
		return nil, err
	}

	return &Receiver{region: reg, codec: o.codec, logger: o.logger}, nil
}

// CreateTempReceiver allocates an anonymous temp file, initializes a
// channel over it, and returns its path alongside the Receiver. The
// backing file is removed when the Receiver is closed.
func CreateTempReceiver(capacity uint32, opts ...ReceiverOption) (string, *Receiver, error) {
	f, err := tempFile("ipmpsc-")
	if err != nil {
		return "", nil, wrapIO(err)
	}
	path := f.Name()
	f.Close()

	r, err := CreateReceiver(path, capacity, opts...)
	if err != nil {
		return "", nil, err
	}
	r.region.tempPath = path

	return path, r, nil
}

// OpenReceiver maps an existing file initialized by another Receiver's
// CreateReceiver/CreateTempReceiver call, without reinitializing its
// header or data. This is only useful for recovering a channel whose
// original Receiver has exited; spec.md's single-consumer constraint
// still applies to whichever Receiver is in use.
func OpenReceiver(path string, opts ...ReceiverOption) (*Receiver, error) {
	o := defaultReceiverOptions()
	for _, opt := range opts {
		opt(&o)
	}

	reg, err := openRegion(path)
	if err != nil {
		return nil, err
	}

	return &Receiver{region: reg, codec: o.codec, logger: o.logger}, nil
}

// Close unmaps the receiver's region and, if it was created with
// CreateTempReceiver, removes the backing file.
func (r *Receiver) Close() error {
	return r.region.Close()
}

// frame is a decoded-but-not-yet-released payload: the raw encoded bytes
// (a view into the mapped region, never copied at this layer) and the
// read offset to store once the caller is done with them.
type frame struct {
	payload []byte
	next    uint32
}

// tryRecvRaw implements spec.md §4.4's non-blocking core: it does not
// take the header lock to observe cursors, only to advance read past a
// wrap sentinel, exactly as the algorithm specifies.
func (r *Receiver) tryRecvRaw() (frame, bool, error) {
	h := r.region.header
	data := r.region.data

	for {
		read := h.loadRead()
		write := h.loadWrite()

		if read == write {
			return frame{}, false, nil
		}

		size := getSize(data[read : read+prefixSize])
		if size > 0 {
			start := read + prefixSize
			end := start + size
			return frame{payload: data[start:end], next: end}, true, nil
		}

		if write >= read {
			// spec invariant 6: a zero-length frame can only legally
			// appear when the writer has wrapped behind the reader.
			r.logger.Warn("ipmpsc: corrupt ring buffer: zero-length frame with write >= read",
				zap.Uint32("read", read), zap.Uint32("write", write))
			return frame{}, false, ErrCorruption
		}

		// Wrap sentinel: reset to BEGINNING and restart the decode loop.
		unlock, err := h.lock()
		if err != nil {
			return frame{}, false, err
		}
		h.storeRead(beginningOffset)
		broadcastErr := h.broadcast()
		unlock()
		if broadcastErr != nil {
			return frame{}, false, broadcastErr
		}
		r.logger.Debug("ipmpsc: consumer crossed wrap sentinel")
	}
}

// advance stores next into read and wakes any blocked senders. Used by
// the copying-mode receive path; ZeroCopyContext defers this call until
// release.
func (r *Receiver) advance(next uint32) error {
	h := r.region.header
	unlock, err := h.lock()
	if err != nil {
		return err
	}
	defer unlock()
	h.storeRead(next)
	return h.broadcast()
}

// recvRawTimeout blocks, respecting deadline if non-nil, until a frame is
// available or the deadline passes. ok is false only on timeout.
func (r *Receiver) recvRawTimeout(deadline *time.Time) (frame, bool, error) {
	h := r.region.header

	for {
		f, ok, err := r.tryRecvRaw()
		if err != nil || ok {
			return f, ok, err
		}

		unlock, err := h.lock()
		if err != nil {
			return frame{}, false, err
		}

		for h.loadRead() == h.loadWrite() {
			if deadline == nil {
				r.logger.Debug("ipmpsc: receiver stalled waiting for a message")
				if err := h.wait(); err != nil {
					unlock()
					return frame{}, false, err
				}
				continue
			}
			now := time.Now()
			if !now.Before(*deadline) {
				unlock()
				return frame{}, false, nil
			}
			r.logger.Debug("ipmpsc: receiver stalled waiting for a message", zap.Time("deadline", *deadline))
			if err := h.timedWaitUntil(*deadline); err != nil {
				unlock()
				return frame{}, false, err
			}
		}
		unlock()
	}
}

// TryRecv attempts to read a message without blocking. ok is false if no
// message is immediately available. Fails with ErrBorrowed if a
// ZeroCopyContext obtained from r.ZeroCopy is still outstanding.
func TryRecv[T any](r *Receiver) (T, bool, error) {
	var zero T

	if r.borrowed.Load() {
		return zero, false, ErrBorrowed
	}

	f, ok, err := r.tryRecvRaw()
	if err != nil || !ok {
		return zero, false, err
	}

	var v T
	if err := r.codec.Unmarshal(f.payload, &v, false); err != nil {
		return zero, false, wrapCodec(err)
	}
	if err := r.advance(f.next); err != nil {
		return zero, false, err
	}
	return v, true, nil
}

// Recv reads a message, blocking indefinitely until one becomes
// available. There is no cancellation for a blocked Recv; use
// RecvTimeout if a bounded wait is required. Fails with ErrBorrowed if a
// ZeroCopyContext obtained from r.ZeroCopy is still outstanding.
func Recv[T any](r *Receiver) (T, error) {
	var zero T

	if r.borrowed.Load() {
		return zero, ErrBorrowed
	}

	f, ok, err := r.recvRawTimeout(nil)
	if err != nil {
		return zero, err
	}
	if !ok {
		// recvRawTimeout with a nil deadline never returns ok=false
		// without an error; this is unreachable in practice.
		return zero, nil
	}

	var v T
	if err := r.codec.Unmarshal(f.payload, &v, false); err != nil {
		return zero, wrapCodec(err)
	}
	if err := r.advance(f.next); err != nil {
		return zero, err
	}
	return v, nil
}

// RecvTimeout reads a message, blocking for up to timeout. ok is false if
// the timeout elapsed before a message arrived. Fails with ErrBorrowed if a
// ZeroCopyContext obtained from r.ZeroCopy is still outstanding.
func RecvTimeout[T any](r *Receiver, timeout time.Duration) (T, bool, error) {
	var zero T

	if r.borrowed.Load() {
		return zero, false, ErrBorrowed
	}

	deadline := time.Now().Add(timeout)
	f, ok, err := r.recvRawTimeout(&deadline)
	if err != nil || !ok {
		return zero, false, err
	}

	var v T
	if err := r.codec.Unmarshal(f.payload, &v, false); err != nil {
		return zero, false, wrapCodec(err)
	}
	if err := r.advance(f.next); err != nil {
		return zero, false, err
	}
	return v, true, nil
}

// ZeroCopy borrows the receiver for a single zero-copy decode. It fails
// with ErrBorrowed if another ZeroCopyContext already borrows this
// receiver.
func (r *Receiver) ZeroCopy() (*ZeroCopyContext, error) {
	if !r.borrowed.CompareAndSwap(false, true) {
		return nil, ErrBorrowed
	}
	return newZeroCopyContext(r), nil
}
