// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package asynctls

import (
	"errors"
	"io"
	"runtime"
	"time"
)

// statusKind tags the terminal status a StagingBuffer may be carrying
// alongside its bytes.
type statusKind uint8

const (
	statusNone statusKind = iota
	statusEOF
	statusErr
)

// StagingBuffer is a fixed-size ring region that marshals bytes between a
// TLS engine's synchronous read/write calls and a transport's non-blocking
// (ErrWouldBlock-capable) Read/Write.
//
// Invariant: readPos <= writePos <= len(buf), and whenever readPos ==
// writePos both are reset to zero so the full capacity is available again.
// A terminal status (EOF or error) travels alongside the bytes: it is
// sticky on the write side (every subsequent PumpWrite/Write call surfaces
// it once stored) and consumed one-shot on the read side (Read reports it
// once, then returns ErrWouldBlock until a fresh Pump sets it again).
type StagingBuffer struct {
	buf       []byte
	readPos   int
	writePos  int
	stKind    statusKind
	stErr     error
	retryDelay time.Duration
}

// NewStagingBuffer allocates a StagingBuffer of the given capacity. A
// non-positive size falls back to DefaultBufferSize.
func NewStagingBuffer(size int, retryDelay time.Duration) *StagingBuffer {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &StagingBuffer{buf: make([]byte, size), retryDelay: retryDelay}
}

// Len reports the number of unread bytes currently staged.
func (b *StagingBuffer) Len() int { return b.writePos - b.readPos }

// Cap reports the buffer's fixed capacity.
func (b *StagingBuffer) Cap() int { return len(b.buf) }

func (b *StagingBuffer) reset() {
	if b.readPos == b.writePos {
		b.readPos, b.writePos = 0, 0
	}
}

func (b *StagingBuffer) waitOnceOnWouldBlock() bool {
	if b.retryDelay < 0 {
		return false
	}
	if b.retryDelay == 0 {
		runtime.Gosched()
		return true
	}
	time.Sleep(b.retryDelay)
	return true
}

// PumpRead relinquishes the buffer's free region to the transport's Read
// for the duration of one call (or a short retry loop governed by
// RetryDelay), and reclaims it with the result. If the buffer already
// holds unread bytes, it returns that count without touching the
// transport.
func (b *StagingBuffer) PumpRead(r io.Reader) (int, error) {
	if n := b.Len(); n > 0 {
		return n, nil
	}
	b.reset()
	for {
		n, err := r.Read(b.buf[b.writePos:])
		if len(b.buf[b.writePos:]) != 0 && n == 0 && err == nil {
			return 0, io.ErrNoProgress
		}
		if n > 0 {
			b.writePos += n
			if err == io.EOF {
				// Final chunk arrived together with EOF: keep the bytes,
				// report the EOF on the next pump once they're drained.
				return n, nil
			}
			return n, err
		}
		if err == io.EOF {
			b.stKind, b.stErr = statusEOF, nil
			return 0, nil
		}
		if !errors.Is(err, ErrWouldBlock) {
			b.stKind, b.stErr = statusErr, err
			return 0, err
		}
		if !b.waitOnceOnWouldBlock() {
			return 0, err
		}
	}
}

// PumpWrite drains the buffer's unread bytes to the transport using
// write-all semantics, advancing readPos as progress is made. A prior
// stored error is sticky: it is returned immediately on every subsequent
// call for the life of this StagingBuffer.
func (b *StagingBuffer) PumpWrite(w io.Writer) (int, error) {
	if b.stKind == statusErr {
		return 0, b.stErr
	}
	total := 0
	for b.Len() > 0 {
		n, err := w.Write(b.buf[b.readPos:b.writePos])
		if n > 0 {
			b.readPos += n
			total += n
		}
		if err != nil {
			if errors.Is(err, ErrWouldBlock) || errors.Is(err, ErrMore) {
				b.reset()
				return total, err
			}
			b.stKind, b.stErr = statusErr, err
			return total, err
		}
		if n == 0 {
			b.stKind, b.stErr = statusErr, io.ErrShortWrite
			return total, io.ErrShortWrite
		}
	}
	b.reset()
	return total, nil
}

// Read is the engine-facing synchronous read: it copies buffered bytes
// into dst and never touches the transport. When the buffer is empty it
// reports (and consumes) any pending terminal status, or ErrWouldBlock if
// no pump has run since the last report.
func (b *StagingBuffer) Read(dst []byte) (int, error) {
	if n := b.Len(); n > 0 {
		n = copy(dst, b.buf[b.readPos:b.writePos])
		b.readPos += n
		b.reset()
		return n, nil
	}
	switch b.stKind {
	case statusEOF:
		b.stKind = statusNone
		return 0, io.EOF
	case statusErr:
		err := b.stErr
		b.stKind, b.stErr = statusNone, nil
		return 0, err
	default:
		return 0, ErrWouldBlock
	}
}

// Write is the engine-facing synchronous write: it copies src into the
// buffer's free region. It returns ErrWouldBlock when full, or the sticky
// stored error if a prior PumpWrite failed.
func (b *StagingBuffer) Write(src []byte) (int, error) {
	if b.stKind == statusErr {
		return 0, b.stErr
	}
	free := len(b.buf) - b.writePos
	if free <= 0 {
		return 0, ErrWouldBlock
	}
	n := copy(b.buf[b.writePos:], src)
	b.writePos += n
	return n, nil
}

// Flush reports WouldBlock while the buffer still holds unwritten bytes,
// so the engine knows to yield and retry after a PumpWrite.
func (b *StagingBuffer) Flush() error {
	if b.stKind == statusErr {
		return b.stErr
	}
	if b.Len() > 0 {
		return ErrWouldBlock
	}
	return nil
}
