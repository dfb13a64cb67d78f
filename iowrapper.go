// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package asynctls

import "io"

// stagingLike is satisfied by both StagingBuffer and ZeroCopyBuffer, so
// IOWrapper can be built over either without knowing which.
type stagingLike interface {
	PumpRead(io.Reader) (int, error)
	PumpWrite(io.Writer) (int, error)
	Read([]byte) (int, error)
	Write([]byte) (int, error)
	Flush() error
}

// IOWrapper pairs a transport with one read staging buffer and one write
// staging buffer, and exposes the synchronous façade (EngineSink) the TLS
// engine consumes plus the async pump operations the HandshakePump and
// TlsStream drive.
type IOWrapper struct {
	transport io.ReadWriter
	rbuf      stagingLike
	wbuf      stagingLike
}

func newIOWrapper(transport io.ReadWriter, opts Options) *IOWrapper {
	w := &IOWrapper{transport: transport}
	if opts.UnsafeZeroCopy {
		w.rbuf = &ZeroCopyBuffer{}
		w.wbuf = &ZeroCopyBuffer{}
	} else {
		w.rbuf = NewStagingBuffer(opts.readBufSize(), opts.RetryDelay)
		w.wbuf = NewStagingBuffer(opts.writeBufSize(), opts.RetryDelay)
	}
	return w
}

// PumpReadIO relinquishes the read buffer to the transport for one round trip.
func (w *IOWrapper) PumpReadIO() (int, error) { return w.rbuf.PumpRead(w.transport) }

// PumpWriteIO drains the write buffer to the transport.
func (w *IOWrapper) PumpWriteIO() (int, error) { return w.wbuf.PumpWrite(w.transport) }

// EngineSink returns the synchronous io.ReadWriter façade the engine reads
// TLS record bytes from and writes them into. Its Flush is a no-op:
// flushing is handled externally by whoever drives the pump, since some
// engines treat WouldBlock from flush as fatal.
func (w *IOWrapper) EngineSink() io.ReadWriter { return engineSink{w} }

type engineSink struct{ w *IOWrapper }

func (s engineSink) Read(p []byte) (int, error)  { return s.w.rbuf.Read(p) }
func (s engineSink) Write(p []byte) (int, error) { return s.w.wbuf.Write(p) }
func (s engineSink) Flush() error                { return nil }
