// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package msgframe frames discrete messages over a plain byte stream with a
// 4-byte big-endian length prefix, for carrying request/response pairs over
// a TlsStream. No other package in this repository imports it. It is a
// trimmed, stream-only descendant of the length-prefix framing this
// repository's adapter itself grew out of: packet-mode framing and the
// WriterTo/ReaderFrom fast paths are dropped, since it only moves plaintext
// over an already-reliable stream.
package msgframe

import (
	"encoding/binary"
	"errors"
	"io"

	"code.hybscloud.com/iox"
)

// ErrWouldBlock and ErrMore are re-exported so callers don't need their own
// import of iox to recognize these control-flow signals.
var (
	ErrWouldBlock = iox.ErrWouldBlock
	ErrMore       = iox.ErrMore
)

// ErrTooLong is returned when a peer's declared message length exceeds
// MaxMessageSize.
var ErrTooLong = errors.New("msgframe: message exceeds maximum size")

// MaxMessageSize bounds a single message's payload, guarding against a
// corrupt or hostile length prefix forcing an unbounded allocation.
const MaxMessageSize = 1 << 20

const headerSize = 4

// Reader decodes length-prefixed messages from an underlying stream. A
// single call to Read may need several underlying reads to complete; in
// between, Read returns ErrWouldBlock when the underlying stream does, and
// also when an underlying read comes back short of the header or payload,
// so a Reader composes over a non-blocking source the same way the rest of
// this repository's pump loops do.
type Reader struct {
	rd io.Reader

	hdr     [headerSize]byte
	hdrFill int

	payload []byte
	got     int

	// pending holds payload bytes decoded but not yet delivered to a
	// caller whose buffer was too small to take them all in one call.
	pending []byte
}

// NewReader wraps rd.
func NewReader(rd io.Reader) *Reader { return &Reader{rd: rd} }

// Read decodes at most one message per logical message boundary. If p is
// smaller than the message, Read fills p and returns ErrMore; subsequent
// calls drain the remainder the same way until the message is exhausted.
func (r *Reader) Read(p []byte) (int, error) {
	if len(r.pending) > 0 {
		return r.drainPending(p)
	}

	for r.hdrFill < headerSize {
		n, err := r.rd.Read(r.hdr[r.hdrFill:])
		if n > 0 {
			r.hdrFill += n
		}
		if err != nil {
			return 0, err
		}
		if r.hdrFill < headerSize {
			return 0, ErrWouldBlock
		}
	}

	if r.payload == nil {
		length := binary.BigEndian.Uint32(r.hdr[:])
		if length > MaxMessageSize {
			return 0, ErrTooLong
		}
		r.payload = make([]byte, length)
		r.got = 0
	}

	for r.got < len(r.payload) {
		n, err := r.rd.Read(r.payload[r.got:])
		if n > 0 {
			r.got += n
		}
		if err != nil {
			return 0, err
		}
		if r.got < len(r.payload) {
			return 0, ErrWouldBlock
		}
	}

	msg := r.payload
	r.hdrFill, r.payload, r.got = 0, nil, 0
	r.pending = msg
	return r.drainPending(p)
}

func (r *Reader) drainPending(p []byte) (int, error) {
	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	if len(r.pending) > 0 {
		return n, ErrMore
	}
	return n, nil
}

// Writer encodes messages as a 4-byte big-endian length prefix followed by
// the payload. Write accepts one whole message per call.
type Writer struct {
	wr io.Writer

	hdr     [headerSize]byte
	hdrSent int
	body    []byte
	sent    int
	active  bool
}

// NewWriter wraps wr.
func NewWriter(wr io.Writer) *Writer { return &Writer{wr: wr} }

// Write encodes and sends msg as one framed message. If the underlying
// writer returns ErrWouldBlock partway through, Write remembers its
// position; the caller must call Write again with the same msg slice until
// it returns a nil error.
func (w *Writer) Write(msg []byte) (int, error) {
	if !w.active {
		if len(msg) > MaxMessageSize {
			return 0, ErrTooLong
		}
		binary.BigEndian.PutUint32(w.hdr[:], uint32(len(msg)))
		w.hdrSent, w.body, w.sent, w.active = 0, msg, 0, true
	}

	for w.hdrSent < headerSize {
		n, err := w.wr.Write(w.hdr[w.hdrSent:])
		if n > 0 {
			w.hdrSent += n
		}
		if err != nil {
			return 0, err
		}
	}

	for w.sent < len(w.body) {
		n, err := w.wr.Write(w.body[w.sent:])
		if n > 0 {
			w.sent += n
		}
		if err != nil {
			return w.sent, err
		}
	}

	w.active, w.body = false, nil
	return len(msg), nil
}
