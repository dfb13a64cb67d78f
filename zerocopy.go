// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package asynctls

import (
	"errors"
	"io"
	"unsafe"
)

// zcState is the three-state tag ZeroCopyBuffer cycles through per
// synchronous call: waiting for a caller buffer to capture, captured and
// waiting for the transport to complete, or completed and waiting to be
// reported.
type zcState uint8

const (
	zcWaiting zcState = iota
	zcCaptured
	zcCompleted
)

// ZeroCopyBuffer is the unsafe, optional fast path: instead of copying
// through a StagingBuffer, it captures the caller's buffer pointer and
// length on the first synchronous call and has the transport read or
// write directly into it.
//
// Safety contract: between a synchronous call that returns ErrWouldBlock
// (the capture) and the matching Pump call that completes it, the
// captured region must remain valid and the goroutine driving the pump
// must not be abandoned. Dropping the pump before it completes — e.g. by
// returning from the caller's stack frame while the transport still holds
// the pointer — is a memory-safety violation: the transport would read or
// write through a pointer the caller believes is no longer live. This
// buffer must only be used from code that drives the pump to completion
// synchronously relative to the capture, never across a cancellable
// suspension point.
type ZeroCopyBuffer struct {
	state  zcState
	ptr    unsafe.Pointer
	length int
	n      int
	err    error
}

// Read captures dst on first call (returning ErrWouldBlock), and reports
// the transport's result once PumpRead has run.
func (z *ZeroCopyBuffer) Read(dst []byte) (int, error) {
	switch z.state {
	case zcWaiting:
		if len(dst) == 0 {
			return 0, nil
		}
		z.ptr = unsafe.Pointer(&dst[0])
		z.length = len(dst)
		z.state = zcCaptured
		return 0, ErrWouldBlock
	case zcCompleted:
		n, err := z.n, z.err
		if !errors.Is(err, io.EOF) {
			z.state = zcWaiting
		}
		return n, err
	default: // zcCaptured: a pump is in flight, nothing to report yet.
		return 0, ErrWouldBlock
	}
}

// Write captures src on first call (returning ErrWouldBlock), and reports
// the transport's result once PumpWrite has run.
func (z *ZeroCopyBuffer) Write(src []byte) (int, error) {
	switch z.state {
	case zcWaiting:
		if len(src) == 0 {
			return 0, nil
		}
		z.ptr = unsafe.Pointer(&src[0])
		z.length = len(src)
		z.state = zcCaptured
		return 0, ErrWouldBlock
	case zcCompleted:
		n, err := z.n, z.err
		z.state = zcWaiting
		return n, err
	default:
		return 0, ErrWouldBlock
	}
}

// PumpRead performs the one real transport I/O a capture is waiting on.
// It is a no-op (returns 0, nil) if nothing has been captured.
func (z *ZeroCopyBuffer) PumpRead(r io.Reader) (int, error) {
	if z.state != zcCaptured {
		return 0, nil
	}
	view := unsafe.Slice((*byte)(z.ptr), z.length)
	n, err := r.Read(view)
	z.n, z.err = n, err
	z.state = zcCompleted
	return n, err
}

// PumpWrite performs the one real transport I/O a capture is waiting on.
// It is a no-op (returns 0, nil) if nothing has been captured.
func (z *ZeroCopyBuffer) PumpWrite(w io.Writer) (int, error) {
	if z.state != zcCaptured {
		return 0, nil
	}
	view := unsafe.Slice((*byte)(z.ptr), z.length)
	n, err := w.Write(view)
	z.n, z.err = n, err
	z.state = zcCompleted
	return n, err
}

// Flush reports WouldBlock while a capture is outstanding, mirroring
// StagingBuffer.Flush.
func (z *ZeroCopyBuffer) Flush() error {
	if z.state == zcCaptured {
		return ErrWouldBlock
	}
	return nil
}
