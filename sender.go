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
	"go.uber.org/zap"
)

// Sender is the producing end of a channel. It is a thin handle over a
// shared *region; Clone shares the same mapping rather than re-mapping,
// mirroring the original library's Arc<UnsafeCell<MmapMut>> Sender and the
// teacher's pattern of passing shared *Ring state across API surface.
type Sender struct {
	region *region
	codec  Codec
	logger *zap.Logger
}

// OpenSender opens and maps an existing Receiver's backing file. Any
// number of Senders may be opened against the same path, from any number
// of processes; within a single process, prefer Clone over repeated
// OpenSender calls.
func OpenSender(path string, opts ...SenderOption) (*Sender, error) {
	o := defaultSenderOptions()
	for _, opt := range opts {
		opt(&o)
	}

	reg, err := openRegion(path)
	if err != nil {
		return nil, err
	}

	return &Sender{region: reg, codec: o.codec, logger: o.logger}, nil
}

// Clone returns a Sender sharing this Sender's mapping. Cheap: no file is
// reopened and no memory is remapped.
func (s *Sender) Clone() *Sender {
	return &Sender{region: s.region, codec: s.codec, logger: s.logger}
}

// Close unmaps this Sender's region. If other Sender/Receiver handles
// still reference the same file, callers should only Close once all
// clones sharing the mapping are done with it, the same lifetime
// contract the teacher documents for its Ring.Close.
func (s *Sender) Close() error {
	return s.region.Close()
}

// Send sends value, waiting for sufficient contiguous space to become
// available if necessary.
//
// Fails with ErrZeroSizedMessage if the codec produces zero bytes, or
// ErrMessageTooLarge if the encoded size plus the 8-byte framing margin
// exceeds the ring's capacity.
func (s *Sender) Send(value any) error {
	return s.send(value, false)
}

// SendWhenEmpty sends value, waiting for the ring to become completely
// empty before writing it. Appropriate for latency-sensitive messages
// where buffering behind older, unreceived messages is undesirable.
func (s *Sender) SendWhenEmpty(value any) error {
	return s.send(value, true)
}

func (s *Sender) send(value any, waitUntilEmpty bool) error {
	encoded, err := s.codec.Marshal(value)
	if err != nil {
		return wrapCodec(err)
	}
	size := uint32(len(encoded))

	if size == 0 {
		return ErrZeroSizedMessage
	}

	limit := beginningOffset + s.region.capacity
	if size+frameOverhead > s.region.capacity {
		return ErrMessageTooLarge
	}

	h := s.region.header
	data := s.region.data

	unlock, err := h.lock()
	if err != nil {
		return err
	}
	defer unlock()

	write := h.loadWrite()

	for {
		read := h.loadRead()

		switch {
		case write == read || (write > read && !waitUntilEmpty):
			if fits(write, size, limit) {
				putSize(data[write:write+prefixSize], size)
				copy(data[write+prefixSize:write+prefixSize+size], encoded)
				write += prefixSize + size
				h.storeWrite(write)
				if err := h.broadcast(); err != nil {
					return err
				}
				return nil
			}

			if read != beginningOffset {
				putSize(data[write:write+prefixSize], wrapSentinel)
				write = beginningOffset
				h.storeWrite(write)
				if err := h.broadcast(); err != nil {
					return err
				}
				s.logger.Debug("ipmpsc: producer wrote wrap sentinel")
				continue
			}

		case write < read && !waitUntilEmpty:
			if write+size+frameOverhead <= read {
				putSize(data[write:write+prefixSize], size)
				copy(data[write+prefixSize:write+prefixSize+size], encoded)
				write += prefixSize + size
				h.storeWrite(write)
				if err := h.broadcast(); err != nil {
					return err
				}
				return nil
			}
		}

		s.logger.Debug("ipmpsc: sender stalled waiting for space", zap.Uint32("write", write))
		if err := h.wait(); err != nil {
			return err
		}
		write = h.loadWrite()
	}
}
