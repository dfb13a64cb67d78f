// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package asynctls

import "sync"

// splitCore is the state a ReadHalf and WriteHalf share. Go has no
// Rc<RefCell<_>>; a shared pointer guarded by each half's own mutex plays
// the same role.
type splitCore struct {
	stream *TlsStream
}

// ReadHalf is the read side of a split TlsStream.
type ReadHalf struct {
	mu       sync.Mutex
	core     *splitCore
	reunited bool
}

// WriteHalf is the write side of a split TlsStream.
type WriteHalf struct {
	mu       sync.Mutex
	core     *splitCore
	reunited bool
}

// Split divides the stream into independently usable read and write
// halves, so one goroutine can read while another writes. The original
// TlsStream must not be used directly after this call; route all access
// through the returned halves until Reunite.
func (s *TlsStream) Split() (*ReadHalf, *WriteHalf) {
	s.splitted = true
	core := &splitCore{stream: s}
	return &ReadHalf{core: core}, &WriteHalf{core: core}
}

// Read implements io.Reader.
func (r *ReadHalf) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reunited {
		return 0, ErrReunitedHalf
	}
	return r.core.stream.Read(p)
}

// Readv reads into the first non-empty segment of bufs, same as
// TlsStream.Readv.
func (r *ReadHalf) Readv(bufs [][]byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reunited {
		return 0, ErrReunitedHalf
	}
	return r.core.stream.Readv(bufs)
}

// Write implements io.Writer.
func (w *WriteHalf) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.reunited {
		return 0, ErrReunitedHalf
	}
	return w.core.stream.Write(p)
}

// Writev writes the first non-empty segment of bufs, same as
// TlsStream.Writev.
func (w *WriteHalf) Writev(bufs [][]byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.reunited {
		return 0, ErrReunitedHalf
	}
	return w.core.stream.Writev(bufs)
}

// Flush drains any buffered outbound records on the write side.
func (w *WriteHalf) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.reunited {
		return ErrReunitedHalf
	}
	return w.core.stream.Flush()
}

// Shutdown sends close_notify from the write side.
func (w *WriteHalf) Shutdown() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.reunited {
		return ErrReunitedHalf
	}
	return w.core.stream.Shutdown()
}

// Reunite recombines a ReadHalf and WriteHalf produced by the same Split
// call back into a single TlsStream. It returns a *ReuniteError, carrying
// both halves back, if they did not originate from the same split.
func Reunite(r *ReadHalf, w *WriteHalf) (*TlsStream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w.mu.Lock()
	defer w.mu.Unlock()

	if r.reunited || w.reunited || r.core != w.core {
		return nil, &ReuniteError{Read: r, Write: w}
	}
	r.reunited, w.reunited = true, true
	r.core.stream.splitted = false
	return r.core.stream, nil
}
