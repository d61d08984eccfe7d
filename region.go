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
	"fmt"
	"os"
	"syscall"

	"go.uber.org/multierr"
)

// beginningOffset is the first usable ring offset: the end of the header.
// Both cursors live in [beginningOffset, headerSize+capacity] at all times.
const beginningOffset = headerSize

// region is the mapped backing store shared by a Receiver and any number
// of Sender handles. It is never copied; Sender.Clone shares the pointer,
// mirroring the original's Arc<UnsafeCell<MmapMut>> and the teacher's
// pattern of passing *Ring state around instead of re-mapping per handle.
type region struct {
	file     *os.File
	data     []byte // full mapping: header followed by the ring
	capacity uint32
	header   *header

	tempPath string // non-empty if the backing file should be removed on Close
}

// createRegion creates (or truncates) the file at path, sizes it to
// headerSize+capacity, maps it, and initializes the header. Used by
// Receiver constructors; spec §4.1 requires the creator to truncate any
// prior content before mapping.
func createRegion(path string, capacity uint32) (*region, error) {
	if capacity == 0 {
		return nil, wrapIO(fmt.Errorf("capacity must be greater than zero"))
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, wrapIO(err)
	}

	size := int64(headerSize) + int64(capacity)
	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, wrapIO(err)
	}

	r, err := mapRegion(f, capacity)
	if err != nil {
		f.Close()
		return nil, err
	}

	if err := r.header.init(); err != nil {
		r.Close()
		return nil, err
	}

	return r, nil
}

// openRegion maps an existing file initialized by a Receiver, without
// re-initializing the header.
func openRegion(path string) (*region, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, wrapIO(err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, wrapIO(err)
	}
	if uint64(stat.Size()) <= uint64(headerSize) {
		f.Close()
		return nil, wrapIO(fmt.Errorf("backing file too small to contain a header"))
	}
	capacity := uint32(uint64(stat.Size()) - uint64(headerSize))

	return mapRegion(f, capacity)
}

func mapRegion(f *os.File, capacity uint32) (*region, error) {
	size := int(headerSize) + int(capacity)
	data, err := syscall.Mmap(int(f.Fd()), 0, size, syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		return nil, wrapIO(fmt.Errorf("mmap: %w", err))
	}

	return &region{
		file:     f,
		data:     data,
		capacity: capacity,
		header:   newHeader(data),
	}, nil
}

// ring returns the byte slice backing the ring itself, excluding the
// header.
func (r *region) ring() []byte {
	return r.data[headerSize:]
}

// Close unmaps the region and closes (and, for a temp-file-backed region,
// removes) the underlying file. Unlike the teacher's Close, which returns
// on the first error it hits and abandons later teardown steps, every
// step always runs and their errors are joined with multierr.
func (r *region) Close() error {
	var errs error

	if err := syscall.Munmap(r.data); err != nil {
		errs = multierr.Append(errs, wrapIO(fmt.Errorf("munmap: %w", err)))
	}
	if err := r.file.Close(); err != nil {
		errs = multierr.Append(errs, wrapIO(fmt.Errorf("close: %w", err)))
	}
	if r.tempPath != "" {
		if err := os.Remove(r.tempPath); err != nil && !os.IsNotExist(err) {
			errs = multierr.Append(errs, wrapIO(fmt.Errorf("remove temp file: %w", err)))
		}
	}

	return errs
}
