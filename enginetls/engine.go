// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package enginetls

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"io"

	"code.hybscloud.com/asynctls"
)

// maxRecordPlaintext bounds how much unflushed application data the
// plaintext writer accumulates before it must be flushed, mirroring a TLS
// record's plaintext payload limit.
const maxRecordPlaintext = 16 * 1024

// pipeEngine implements asynctls.Engine over a real *tls.Conn. The
// handshake and any blocking application reads the standard library does
// internally run on background goroutines talking to pipeConn; everything
// this type exposes to the adapter is non-blocking.
type pipeEngine struct {
	tlsConn *tls.Conn

	in  *pipeQueue // peer ciphertext, fed by ReadTLS, drained by tlsConn's reads
	out *pipeQueue // ciphertext tlsConn produced, drained by WriteTLS

	handshakeDone chan struct{}
	handshakeErr  error

	decrypted *pipeQueue // plaintext tlsConn.Read produced, drained by Reader()
	writeBuf  bytes.Buffer

	rscratch [4096]byte
	wscratch [4096]byte
}

func newPipeEngine(ctx context.Context, tlsConn *tls.Conn, in, out *pipeQueue) *pipeEngine {
	e := &pipeEngine{
		tlsConn:       tlsConn,
		in:            in,
		out:           out,
		handshakeDone: make(chan struct{}),
		decrypted:     newPipeQueue(),
	}
	go e.runHandshake(ctx)
	return e
}

func (e *pipeEngine) runHandshake(ctx context.Context) {
	err := e.tlsConn.HandshakeContext(ctx)
	e.handshakeErr = err
	close(e.handshakeDone)
	if err != nil {
		e.decrypted.CloseWithError(err)
		return
	}
	go e.readPump()
}

// readPump keeps calling the blocking tls.Conn.Read and forwards decrypted
// bytes to the non-blocking decrypted queue, until the connection ends.
func (e *pipeEngine) readPump() {
	buf := make([]byte, 16*1024)
	for {
		n, err := e.tlsConn.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			e.decrypted.Push(chunk)
		}
		if err != nil {
			e.decrypted.CloseWithError(err)
			return
		}
	}
}

func (e *pipeEngine) handshakeComplete() bool {
	select {
	case <-e.handshakeDone:
		return true
	default:
		return false
	}
}

// WantsRead reports whether feeding more ciphertext in could still help:
// true until the peer's ciphertext stream has been fully consumed and
// closed out.
func (e *pipeEngine) WantsRead() bool { return !e.in.closedClean() || e.in.Pending() > 0 }

// WantsWrite reports whether there is ciphertext queued to send.
func (e *pipeEngine) WantsWrite() bool { return e.out.Pending() > 0 }

func (e *pipeEngine) IsHandshaking() bool { return !e.handshakeComplete() }

// ReadTLS pulls ciphertext from sink (the transport side) into the queue
// the real tls.Conn blocks reading from.
func (e *pipeEngine) ReadTLS(sink io.Reader) (int, error) {
	n, err := sink.Read(e.rscratch[:])
	if n > 0 {
		e.in.Push(e.rscratch[:n])
	}
	if err != nil {
		if errors.Is(err, io.EOF) {
			e.in.CloseWithError(io.EOF)
		} else if !errors.Is(err, asynctls.ErrWouldBlock) {
			e.in.CloseWithError(err)
		}
	}
	return n, err
}

// WriteTLS drains ciphertext the real tls.Conn produced to sink (the
// transport side), advancing only by what sink actually accepted.
func (e *pipeEngine) WriteTLS(sink io.Writer) (int, error) {
	n, err := e.out.Peek(e.wscratch[:])
	if n == 0 {
		return 0, err
	}
	wn, werr := sink.Write(e.wscratch[:n])
	if wn > 0 {
		e.out.Advance(wn)
	}
	return wn, werr
}

// ProcessNewPackets surfaces a failed handshake as an error and reports
// whether the peer's side of the stream has ended cleanly.
func (e *pipeEngine) ProcessNewPackets() (asynctls.EngineState, error) {
	if e.handshakeComplete() && e.handshakeErr != nil {
		return asynctls.EngineState{}, e.handshakeErr
	}
	return asynctls.EngineState{PeerHasClosed: e.decrypted.closedClean() && e.decrypted.Pending() == 0}, nil
}

func (e *pipeEngine) Reader() io.Reader { return engineReader{e} }
func (e *pipeEngine) Writer() asynctls.PlaintextWriter { return engineWriter{e} }

// SendCloseNotify sends a close_notify alert without tearing down the
// underlying transport. It returns ErrWouldBlock if the handshake has not
// completed yet: there is nothing to notify-close before that.
func (e *pipeEngine) SendCloseNotify() error {
	if !e.handshakeComplete() {
		return asynctls.ErrWouldBlock
	}
	if e.handshakeErr != nil {
		return e.handshakeErr
	}
	return e.tlsConn.CloseWrite()
}

// ALPNProtocol implements the optional alpnCapable extension.
func (e *pipeEngine) ALPNProtocol() (string, bool) {
	if !e.handshakeComplete() || e.handshakeErr != nil {
		return "", false
	}
	proto := e.tlsConn.ConnectionState().NegotiatedProtocol
	return proto, proto != ""
}

// HandshakeError implements the optional handshakeErrorer extension.
func (e *pipeEngine) HandshakeError() error {
	if !e.handshakeComplete() {
		return nil
	}
	return e.handshakeErr
}

type engineReader struct{ e *pipeEngine }

func (r engineReader) Read(p []byte) (int, error) {
	n, err := r.e.decrypted.Take(p)
	if err != nil && !errors.Is(err, asynctls.ErrWouldBlock) && !errors.Is(err, io.EOF) {
		return n, err
	}
	return n, err
}

type engineWriter struct{ e *pipeEngine }

func (w engineWriter) Write(p []byte) (int, error) {
	free := maxRecordPlaintext - w.e.writeBuf.Len()
	if free <= 0 {
		return 0, asynctls.ErrWouldBlock
	}
	if len(p) > free {
		p = p[:free]
	}
	return w.e.writeBuf.Write(p)
}

func (w engineWriter) Flush() error {
	e := w.e
	if e.writeBuf.Len() == 0 {
		return nil
	}
	if !e.handshakeComplete() {
		return asynctls.ErrWouldBlock
	}
	if e.handshakeErr != nil {
		return e.handshakeErr
	}
	data := e.writeBuf.Bytes()
	n, err := e.tlsConn.Write(data)
	if n > 0 {
		remaining := append([]byte(nil), data[n:]...)
		e.writeBuf.Reset()
		e.writeBuf.Write(remaining)
	}
	if err != nil {
		return err
	}
	if e.writeBuf.Len() > 0 {
		return asynctls.ErrWouldBlock
	}
	return nil
}
