// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package asynctls

import "io"

// scriptedEngine is a minimal, fully scriptable Engine used to exercise
// HandshakePump and TlsStream without a real TLS implementation. Each hook
// defaults to a trivial, already-done behavior when left nil, so a test
// only needs to override the hooks it cares about.
type scriptedEngine struct {
	wantsReadFn     func() bool
	wantsWriteFn    func() bool
	handshakingFn   func() bool
	readTLSFn       func(io.Reader) (int, error)
	writeTLSFn      func(io.Writer) (int, error)
	processFn       func() (EngineState, error)
	readerFn        func() io.Reader
	writerFn        func() PlaintextWriter
	closeNotifyFn   func() error
	alpnFn          func() (string, bool)
	handshakeErrFn  func() error
}

func (e *scriptedEngine) WantsRead() bool {
	if e.wantsReadFn != nil {
		return e.wantsReadFn()
	}
	return false
}

func (e *scriptedEngine) WantsWrite() bool {
	if e.wantsWriteFn != nil {
		return e.wantsWriteFn()
	}
	return false
}

func (e *scriptedEngine) IsHandshaking() bool {
	if e.handshakingFn != nil {
		return e.handshakingFn()
	}
	return false
}

func (e *scriptedEngine) ReadTLS(sink io.Reader) (int, error) {
	if e.readTLSFn != nil {
		return e.readTLSFn(sink)
	}
	return 0, ErrWouldBlock
}

func (e *scriptedEngine) WriteTLS(sink io.Writer) (int, error) {
	if e.writeTLSFn != nil {
		return e.writeTLSFn(sink)
	}
	return 0, ErrWouldBlock
}

func (e *scriptedEngine) ProcessNewPackets() (EngineState, error) {
	if e.processFn != nil {
		return e.processFn()
	}
	return EngineState{}, nil
}

func (e *scriptedEngine) Reader() io.Reader {
	if e.readerFn != nil {
		return e.readerFn()
	}
	return emptyReader{}
}

func (e *scriptedEngine) Writer() PlaintextWriter {
	if e.writerFn != nil {
		return e.writerFn()
	}
	return discardWriter{}
}

func (e *scriptedEngine) SendCloseNotify() error {
	if e.closeNotifyFn != nil {
		return e.closeNotifyFn()
	}
	return nil
}

func (e *scriptedEngine) ALPNProtocol() (string, bool) {
	if e.alpnFn != nil {
		return e.alpnFn()
	}
	return "", false
}

func (e *scriptedEngine) HandshakeError() error {
	if e.handshakeErrFn != nil {
		return e.handshakeErrFn()
	}
	return nil
}

var _ Engine = (*scriptedEngine)(nil)
var _ alpnCapable = (*scriptedEngine)(nil)
var _ handshakeErrorer = (*scriptedEngine)(nil)

type emptyReader struct{}

func (emptyReader) Read([]byte) (int, error) { return 0, ErrWouldBlock }

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
func (discardWriter) Flush() error                { return nil }
