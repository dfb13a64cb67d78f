// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package asynctls

import (
	"errors"
	"io"
	"sync"
)

// TlsStream is an established TLS connection: a transport, the IOWrapper
// staging its bytes, and the Engine decrypting/encrypting them. It
// implements io.Reader and io.Writer over plaintext application data.
//
// A TlsStream is not safe for concurrent Read and Write from the same
// half — use Split if the caller needs independent read and write
// goroutines.
type TlsStream struct {
	transport io.ReadWriter
	io        *IOWrapper
	engine    Engine
	opts      Options

	shutdownOnce sync.Once
	shutdownErr  error

	// splitted is set once Split has handed the halves out, so the
	// record-processing error path skips its best-effort alert write (which
	// would race the WriteHalf) and IntoParts refuses to run.
	splitted bool
}

func newTlsStream(transport io.ReadWriter, iow *IOWrapper, engine Engine, opts Options) *TlsStream {
	return &TlsStream{transport: transport, io: iow, engine: engine, opts: opts}
}

// Read returns decrypted application data. It returns ErrWouldBlock when
// the transport has nothing ready, following the same retry policy as the
// handshake.
func (s *TlsStream) Read(p []byte) (int, error) {
	for {
		n, err := s.engine.Reader().Read(p)
		if n > 0 || (err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, ErrWouldBlock)) {
			return n, err
		}
		if err != nil && errors.Is(err, io.EOF) {
			return 0, io.EOF
		}

		progress := false
		if pn, perr := s.io.PumpReadIO(); perr != nil {
			if errors.Is(perr, io.EOF) {
				return 0, rawStreamEOF()
			}
			if !errors.Is(perr, ErrWouldBlock) {
				return 0, ioError(perr)
			}
		} else if pn > 0 {
			progress = true
		}

		if s.engine.WantsRead() {
			if rn, rerr := s.engine.ReadTLS(s.io.EngineSink()); rerr != nil {
				if errors.Is(rerr, io.EOF) {
					return 0, rawStreamEOF()
				}
				if !errors.Is(rerr, ErrWouldBlock) {
					return 0, tlsError(rerr)
				}
			} else if rn > 0 {
				progress = true
			}
		}

		if _, perr := s.engine.ProcessNewPackets(); perr != nil {
			return 0, s.onProcessError(perr)
		}

		if progress {
			continue
		}
		if s.opts.RetryDelay < 0 {
			return 0, ErrWouldBlock
		}
		if !waitRetry(&s.opts) {
			return 0, ErrWouldBlock
		}
	}
}

// Write stages p as plaintext and attempts to drain the resulting records
// to the transport. It returns the number of plaintext bytes the engine
// accepted, which may be less than len(p) with a nil error; the caller
// writes the remainder again. If the engine accepts nothing, the returned
// error wraps ErrWouldBlock. Records the transport cannot take yet stay
// queued and are not reported as an error.
func (s *TlsStream) Write(p []byte) (int, error) {
	n, err := s.engine.Writer().Write(p)
	if err != nil {
		return n, tlsError(err)
	}
	if ferr := s.engine.Writer().Flush(); ferr != nil && !errors.Is(ferr, ErrWouldBlock) {
		return n, tlsError(ferr)
	}
	if _, derr := s.drainOutbound(); derr != nil && !errors.Is(derr, ErrWouldBlock) {
		return n, derr
	}
	return n, nil
}

// Flush drains any plaintext the engine has buffered and any TLS records
// queued behind it, to the extent the transport accepts without blocking.
func (s *TlsStream) Flush() error {
	if err := s.engine.Writer().Flush(); err != nil && !errors.Is(err, ErrWouldBlock) {
		return tlsError(err)
	}
	_, err := s.drainOutbound()
	return err
}

func (s *TlsStream) drainOutbound() (int64, error) {
	var total int64
	for s.engine.WantsWrite() {
		n, err := s.engine.WriteTLS(s.io.EngineSink())
		if n > 0 {
			total += int64(n)
		}
		if err != nil && !errors.Is(err, ErrWouldBlock) {
			return total, tlsError(err)
		}
		pn, perr := s.io.PumpWriteIO()
		_ = pn
		if perr != nil && !errors.Is(perr, ErrWouldBlock) {
			return total, ioError(perr)
		}
		if n == 0 && perr != nil {
			return total, ErrWouldBlock
		}
	}
	return total, nil
}

// writeCloser is an optional transport extension letting the adapter shut
// down the write half of the underlying connection once close_notify has
// been flushed, without requiring every transport to support half-close.
type writeCloser interface {
	CloseWrite() error
}

// Shutdown sends close_notify, attempts to flush it to the transport, then
// shuts down the transport's write side if it supports half-close. It is
// idempotent: subsequent calls return the result of the first attempt.
func (s *TlsStream) Shutdown() error {
	s.shutdownOnce.Do(func() {
		s.opts.trace("shutdown")
		if err := s.engine.SendCloseNotify(); err != nil {
			s.shutdownErr = tlsError(err)
			return
		}
		if _, err := s.drainOutbound(); err != nil && !errors.Is(err, ErrWouldBlock) {
			s.shutdownErr = err
		}
		if wc, ok := s.transport.(writeCloser); ok {
			if err := wc.CloseWrite(); err != nil {
				s.shutdownErr = errors.Join(s.shutdownErr, ioError(err))
			}
		}
	})
	return s.shutdownErr
}

// onProcessError reports a record-processing failure, making one
// best-effort attempt to notify the peer with an alert unless the stream
// has been split (where a half's own drainOutbound owns that job).
func (s *TlsStream) onProcessError(err error) error {
	if !s.splitted {
		_ = s.engine.SendCloseNotify()
		_, _ = s.drainOutbound()
	}
	return invalidData(err)
}

// Readv reads into the first non-empty segment of bufs, degrading a
// scatter read to a single Read the same way a short vectored I/O would.
func (s *TlsStream) Readv(bufs [][]byte) (int, error) {
	for _, b := range bufs {
		if len(b) == 0 {
			continue
		}
		return s.Read(b)
	}
	return 0, nil
}

// Writev writes the first non-empty segment of bufs, degrading a gather
// write to a single Write.
func (s *TlsStream) Writev(bufs [][]byte) (int, error) {
	for _, b := range bufs {
		if len(b) == 0 {
			continue
		}
		return s.Write(b)
	}
	return 0, nil
}

// ALPNProtocol returns the negotiated application protocol, if the engine
// supports ALPN and one was negotiated.
func (s *TlsStream) ALPNProtocol() (string, bool) {
	if a, ok := s.engine.(alpnCapable); ok {
		return a.ALPNProtocol()
	}
	return "", false
}

// IntoParts returns the stream's transport and engine, for callers that
// want to reclaim the raw connection (and its session, e.g. for resumption
// or inspection) after a close_notify exchange. It does not close or reset
// either part. On a stream that has been split it returns ErrReunitedHalf.
func (s *TlsStream) IntoParts() (io.ReadWriter, Engine, error) {
	if s.splitted {
		return nil, nil, ErrReunitedHalf
	}
	return s.transport, s.engine, nil
}
