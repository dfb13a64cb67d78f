// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package enginetls

import (
	"io"
	"net"
	"time"
)

// pipeConn is the net.Conn a real *tls.Conn is built over. Its Read blocks
// on an in-memory queue fed by the adapter's ReadTLS; its Write appends to
// a queue the adapter's WriteTLS drains — never blocking, since appends are
// unbounded. This lets tls.Conn's blocking API run inside a background
// goroutine while the rest of the engine stays non-blocking.
type pipeConn struct {
	r *pipeQueue // peer ciphertext inbound, fed by ReadTLS
	w *pipeQueue // ciphertext outbound, drained by WriteTLS
}

func (c *pipeConn) Read(p []byte) (int, error)  { return c.r.BlockingRead(p) }
func (c *pipeConn) Write(p []byte) (int, error) { c.w.Push(p); return len(p), nil }

func (c *pipeConn) Close() error {
	c.r.CloseWithError(io.ErrClosedPipe)
	c.w.CloseWithError(io.ErrClosedPipe)
	return nil
}

func (c *pipeConn) LocalAddr() net.Addr  { return pipeAddr{} }
func (c *pipeConn) RemoteAddr() net.Addr { return pipeAddr{} }

// Deadlines are not meaningful for an in-process queue pair driven by the
// adapter's own retry policy; these are no-ops rather than errors so
// *tls.Conn's optional deadline calls don't fail.
func (c *pipeConn) SetDeadline(time.Time) error      { return nil }
func (c *pipeConn) SetReadDeadline(time.Time) error  { return nil }
func (c *pipeConn) SetWriteDeadline(time.Time) error { return nil }

type pipeAddr struct{}

func (pipeAddr) Network() string { return "pipe" }
func (pipeAddr) String() string  { return "pipe" }
