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

// Package ipmpsc is an inter-process multiple-producer, single-consumer
// channel backed by a shared-memory ring buffer.
//
// Producers in separate processes open a Sender against a file a Receiver
// has created, and send length-framed, codec-encoded messages into a ring.
// The Receiver reads them back in the order producers acquired the ring's
// lock. A ZeroCopyContext lets the consumer decode a single message whose
// string and byte-slice fields reference the mapped ring directly, instead
// of copying them out, at the cost of deferring the read cursor's advance
// until the borrow is released.
//
// Only one Receiver may exist per backing file at a time; any number of
// Senders may send into it, from any number of processes.
package ipmpsc

// vim: foldmethod=marker
