// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package enginetls implements asynctls.Engine over the standard library's
// crypto/tls, bridging its blocking Conn to the synchronous,
// WouldBlock-capable shape the adapter expects.
package enginetls

import (
	"io"
	"sync"

	"code.hybscloud.com/asynctls"
)

// pipeQueue is an unbounded byte queue with one blocking consumer side (used
// by the real *tls.Conn, via pipeConn) and one non-blocking producer/consumer
// side (used by the engine adapter code). Pushing never blocks; BlockingRead
// blocks only until data arrives or the queue is closed.
type pipeQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []byte
	closed bool
	cerr   error
}

func newPipeQueue() *pipeQueue {
	q := &pipeQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends p to the queue. It never blocks.
func (q *pipeQueue) Push(p []byte) {
	if len(p) == 0 {
		return
	}
	q.mu.Lock()
	q.buf = append(q.buf, p...)
	q.mu.Unlock()
	q.cond.Broadcast()
}

// BlockingRead copies queued bytes into p, blocking until at least one byte
// is available or the queue is closed. It is used only by the underlying
// net.Conn the real *tls.Conn reads from.
func (q *pipeQueue) BlockingRead(p []byte) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.buf) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.buf) == 0 {
		if q.cerr != nil {
			return 0, q.cerr
		}
		return 0, io.EOF
	}
	n := copy(p, q.buf)
	q.buf = q.buf[n:]
	return n, nil
}

// Peek copies up to len(p) queued bytes into p without removing them. An
// empty, open queue reports ErrWouldBlock; an empty, closed queue reports
// its close error (io.EOF if none was given).
func (q *pipeQueue) Peek(p []byte) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.buf) == 0 {
		if q.closed {
			if q.cerr != nil {
				return 0, q.cerr
			}
			return 0, io.EOF
		}
		return 0, asynctls.ErrWouldBlock
	}
	return copy(p, q.buf), nil
}

// Advance discards the first n bytes, previously returned by Peek.
func (q *pipeQueue) Advance(n int) {
	if n <= 0 {
		return
	}
	q.mu.Lock()
	q.buf = q.buf[n:]
	q.mu.Unlock()
}

// Take copies and removes queued bytes in one step; semantics otherwise
// match Peek. Used where the caller's copy destination is the final
// consumer (no intermediate write that could fail partway).
func (q *pipeQueue) Take(p []byte) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.buf) == 0 {
		if q.closed {
			if q.cerr != nil {
				return 0, q.cerr
			}
			return 0, io.EOF
		}
		return 0, asynctls.ErrWouldBlock
	}
	n := copy(p, q.buf)
	q.buf = q.buf[n:]
	return n, nil
}

// Pending reports the number of queued, unread bytes.
func (q *pipeQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}

// CloseWithError marks the queue closed, waking any BlockingRead. Further
// reads drain remaining bytes, then report err (io.EOF if err is nil). The
// first CloseWithError call wins.
func (q *pipeQueue) CloseWithError(err error) {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		q.cerr = err
	}
	q.mu.Unlock()
	q.cond.Broadcast()
}

// closedClean reports whether the queue is closed with no error, or with
// io.EOF — i.e. the producer finished normally rather than failing.
func (q *pipeQueue) closedClean() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && (q.cerr == nil || q.cerr == io.EOF)
}
