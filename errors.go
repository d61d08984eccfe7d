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

import "errors"

// Sentinel errors returned by Sender and Receiver operations. Wrapped
// errors (Codec, IO, Sync) carry the underlying cause and should be
// unwrapped with errors.Is/errors.As rather than compared directly.
var (
	// ErrZeroSizedMessage is returned by Send/SendWhenEmpty when the
	// codec produces zero bytes for the value being sent.
	ErrZeroSizedMessage = errors.New("ipmpsc: serialized size of message is zero")

	// ErrMessageTooLarge is returned by Send/SendWhenEmpty when the
	// serialized size plus the 8-byte framing margin exceeds capacity.
	ErrMessageTooLarge = errors.New("ipmpsc: serialized size of message is too large for ring buffer")

	// ErrBorrowed is returned by Receiver.ZeroCopy when a ZeroCopyContext
	// already borrows the receiver.
	ErrBorrowed = errors.New("ipmpsc: receiver is already borrowed by a zero-copy context")

	// ErrAlreadyReceived is returned when a ZeroCopyContext is used to
	// decode a second message over its lifetime.
	ErrAlreadyReceived = errors.New("ipmpsc: zero-copy context may only be used to receive one message")

	// ErrCorruption is returned when the receiver observes a zero-length
	// frame with write >= read, which invariant 6 forbids.
	ErrCorruption = errors.New("ipmpsc: corrupt ring buffer")
)

// codecError wraps a failure from the configured Codec.
type codecError struct{ err error }

func (e *codecError) Error() string { return "ipmpsc: codec: " + e.err.Error() }
func (e *codecError) Unwrap() error { return e.err }

func wrapCodec(err error) error {
	if err == nil {
		return nil
	}
	return &codecError{err}
}

// ioError wraps a failure opening, truncating, or mapping the backing file.
type ioError struct{ err error }

func (e *ioError) Error() string { return "ipmpsc: io: " + e.err.Error() }
func (e *ioError) Unwrap() error { return e.err }

func wrapIO(err error) error {
	if err == nil {
		return nil
	}
	return &ioError{err}
}

// syncError wraps a nonzero status from the process-shared mutex/condition
// variable primitive.
type syncError struct{ err error }

func (e *syncError) Error() string { return "ipmpsc: sync: " + e.err.Error() }
func (e *syncError) Unwrap() error { return e.err }

func wrapSync(err error) error {
	if err == nil {
		return nil
	}
	return &syncError{err}
}
