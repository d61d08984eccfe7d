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

//go:build linux || darwin

package ipmpsc

/*
#include <pthread.h>
#include <stdint.h>
#include <string.h>
#include <time.h>
#include <errno.h>

typedef struct {
	pthread_mutex_t mutex;
	pthread_cond_t  cond;
	uint32_t        read;
	uint32_t        write;
} ipmpsc_header_t;

static int ipmpsc_header_init(ipmpsc_header_t *h) {
	pthread_mutexattr_t mattr;
	pthread_condattr_t  cattr;
	int rc;

	memset(&mattr, 0, sizeof(mattr));
	if ((rc = pthread_mutexattr_init(&mattr)) != 0) {
		return rc;
	}
	if ((rc = pthread_mutexattr_setpshared(&mattr, PTHREAD_PROCESS_SHARED)) != 0) {
		pthread_mutexattr_destroy(&mattr);
		return rc;
	}
	rc = pthread_mutex_init(&h->mutex, &mattr);
	pthread_mutexattr_destroy(&mattr);
	if (rc != 0) {
		return rc;
	}

	memset(&cattr, 0, sizeof(cattr));
	if ((rc = pthread_condattr_init(&cattr)) != 0) {
		return rc;
	}
	if ((rc = pthread_condattr_setpshared(&cattr, PTHREAD_PROCESS_SHARED)) != 0) {
		pthread_condattr_destroy(&cattr);
		return rc;
	}
	rc = pthread_cond_init(&h->cond, &cattr);
	pthread_condattr_destroy(&cattr);
	return rc;
}

static int ipmpsc_header_lock(ipmpsc_header_t *h) {
	return pthread_mutex_lock(&h->mutex);
}

static int ipmpsc_header_unlock(ipmpsc_header_t *h) {
	return pthread_mutex_unlock(&h->mutex);
}

static int ipmpsc_header_broadcast(ipmpsc_header_t *h) {
	return pthread_cond_broadcast(&h->cond);
}

static int ipmpsc_header_wait(ipmpsc_header_t *h) {
	return pthread_cond_wait(&h->cond, &h->mutex);
}

// ipmpsc_header_timedwait waits until the absolute wall-clock deadline
// (sec, nsec since the epoch). A timeout is normalized to 0 (success); the
// Go caller re-checks its predicate and its own deadline afterwards.
static int ipmpsc_header_timedwait(ipmpsc_header_t *h, long sec, long nsec) {
	struct timespec ts;
	int rc;

	ts.tv_sec = (time_t)sec;
	ts.tv_nsec = (long)nsec;

	rc = pthread_cond_timedwait(&h->cond, &h->mutex, &ts);
	if (rc == ETIMEDOUT) {
		return 0;
	}
	return rc;
}

static uint32_t *ipmpsc_header_read_ptr(ipmpsc_header_t *h)  { return &h->read; }
static uint32_t *ipmpsc_header_write_ptr(ipmpsc_header_t *h) { return &h->write; }
*/
import "C"

import (
	"fmt"
	"sync/atomic"
	"syscall"
	"time"
	"unsafe"
)

// headerSize is the size, in bytes, of the C header struct: the
// process-shared mutex and condition variable plus the two uint32
// cursors. It is platform-dependent, which is why mapped files are not
// portable across hosts (spec §6).
const headerSize = uint32(C.sizeof_ipmpsc_header_t)

// header is a typed view over the first headerSize bytes of a mapped
// region. It must never be copied; all access goes through its methods,
// which operate on the C struct in place.
type header struct {
	c *C.ipmpsc_header_t
}

func newHeader(base []byte) *header {
	if uint32(len(base)) < headerSize {
		panic("ipmpsc: mapped region shorter than header")
	}
	return &header{c: (*C.ipmpsc_header_t)(unsafe.Pointer(&base[0]))}
}

// init initializes the mutex and condition variable with process-shared
// semantics, then stores BEGINNING into both cursors. Called exactly once,
// by whichever Receiver creates the backing file.
func (h *header) init() error {
	if rc := C.ipmpsc_header_init(h.c); rc != 0 {
		return wrapSync(fmt.Errorf("pthread init: %w", syscall.Errno(rc)))
	}
	h.storeRead(headerSize)
	h.storeWrite(headerSize)
	return nil
}

// unlockFunc releases a lock acquired by header.lock.
type unlockFunc func()

// lock acquires the header mutex and returns a release function. The
// caller must invoke it exactly once, typically via defer, on every exit
// path.
func (h *header) lock() (unlockFunc, error) {
	if rc := C.ipmpsc_header_lock(h.c); rc != 0 {
		return nil, wrapSync(fmt.Errorf("pthread_mutex_lock: %w", syscall.Errno(rc)))
	}
	return func() {
		C.ipmpsc_header_unlock(h.c)
	}, nil
}

// broadcast wakes every waiter. Must be called while holding the lock.
func (h *header) broadcast() error {
	if rc := C.ipmpsc_header_broadcast(h.c); rc != 0 {
		return wrapSync(fmt.Errorf("pthread_cond_broadcast: %w", syscall.Errno(rc)))
	}
	return nil
}

// wait blocks on the condition variable indefinitely. Must be called
// while holding the lock; the lock is released for the duration of the
// wait and reacquired before returning.
func (h *header) wait() error {
	if rc := C.ipmpsc_header_wait(h.c); rc != 0 {
		return wrapSync(fmt.Errorf("pthread_cond_wait: %w", syscall.Errno(rc)))
	}
	return nil
}

// timedWaitUntil blocks on the condition variable until the absolute
// wall-clock deadline, normalizing a timeout to a nil error. Must be
// called while holding the lock.
func (h *header) timedWaitUntil(deadline time.Time) error {
	sec := deadline.Unix()
	nsec := int64(deadline.Nanosecond())
	if rc := C.ipmpsc_header_timedwait(h.c, C.long(sec), C.long(nsec)); rc != 0 {
		return wrapSync(fmt.Errorf("pthread_cond_timedwait: %w", syscall.Errno(rc)))
	}
	return nil
}

func (h *header) readPtr() *uint32 {
	return (*uint32)(unsafe.Pointer(C.ipmpsc_header_read_ptr(h.c)))
}

func (h *header) writePtr() *uint32 {
	return (*uint32)(unsafe.Pointer(C.ipmpsc_header_write_ptr(h.c)))
}

// loadRead/loadWrite/storeRead/storeWrite are the lock-free fast path:
// cursor loads never take the header lock (spec §5); stores are only ever
// issued by their owning side (consumer for read, producers for write)
// and always while holding the lock.

func (h *header) loadRead() uint32 { return atomic.LoadUint32(h.readPtr()) }

func (h *header) loadWrite() uint32 { return atomic.LoadUint32(h.writePtr()) }

func (h *header) storeRead(v uint32) { atomic.StoreUint32(h.readPtr(), v) }

func (h *header) storeWrite(v uint32) { atomic.StoreUint32(h.writePtr(), v) }
