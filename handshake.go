// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package asynctls

import (
	"errors"
	"io"
)

// pumpHandshake drives one or more rounds of an Engine's handshake to
// completion against the transport behind io, alternating write-before-read
// exactly once per round: queued outbound handshake bytes are always
// flushed before the adapter asks the transport for more input, so a
// client's ClientHello and a server's response never wait on each other
// behind a single-buffered transport.
//
// This mirrors the phase/state-machine shape of a message forwarder that
// alternates "drain what's ready to send" and "pull in what's ready to
// receive" rather than committing to one direction until it blocks.
//
// In nonblocking mode (opts.RetryDelay < 0) it returns ErrWouldBlock as soon
// as a round makes no progress; the caller is expected to invoke it again
// once the transport is ready. In blocking modes it retries internally
// using the same wait policy StagingBuffer uses.
func pumpHandshake(engine Engine, iow *IOWrapper, opts *Options) (rdlen, wrlen int64, err error) {
	sink := iow.EngineSink()
	for {
		progress := false

		if engine.WantsWrite() {
			n, werr := engine.WriteTLS(sink)
			if n > 0 {
				wrlen += int64(n)
				progress = true
			}
			if werr != nil && !errors.Is(werr, ErrWouldBlock) {
				return rdlen, wrlen, tlsError(werr)
			}
			if pn, perr := iow.PumpWriteIO(); perr != nil && !errors.Is(perr, ErrWouldBlock) {
				return rdlen, wrlen, ioError(perr)
			} else if pn > 0 {
				progress = true
			}
		}

		if engine.WantsRead() {
			pn, perr := iow.PumpReadIO()
			if pn > 0 {
				progress = true
			}
			if perr != nil {
				if errors.Is(perr, io.EOF) {
					return rdlen, wrlen, handshakeEOF()
				}
				if !errors.Is(perr, ErrWouldBlock) {
					return rdlen, wrlen, ioError(perr)
				}
			}
			n, rerr := engine.ReadTLS(sink)
			if n > 0 {
				rdlen += int64(n)
				progress = true
			}
			if rerr != nil {
				if errors.Is(rerr, io.EOF) {
					return rdlen, wrlen, handshakeEOF()
				}
				if !errors.Is(rerr, ErrWouldBlock) {
					return rdlen, wrlen, tlsError(rerr)
				}
			}
		}

		state, perr := engine.ProcessNewPackets()
		if perr != nil {
			opts.trace("handshake-alert")
			return rdlen, wrlen, tlsError(perr)
		}
		if state.PeerHasClosed && engine.IsHandshaking() {
			opts.trace("handshake-alert")
			return rdlen, wrlen, handshakeAlert()
		}

		if !engine.IsHandshaking() {
			if he, ok := engine.(handshakeErrorer); ok {
				if herr := he.HandshakeError(); herr != nil {
					return rdlen, wrlen, tlsError(herr)
				}
			}
			// Drain records queued as the handshake finished (e.g. a client's Finished).
			for engine.WantsWrite() {
				n, werr := engine.WriteTLS(sink)
				wrlen += int64(n)
				if werr != nil && !errors.Is(werr, ErrWouldBlock) {
					return rdlen, wrlen, tlsError(werr)
				}
				pn, perr := iow.PumpWriteIO()
				if perr != nil && !errors.Is(perr, ErrWouldBlock) {
					return rdlen, wrlen, ioError(perr)
				}
				if n == 0 && pn == 0 {
					break
				}
			}
			opts.trace("handshake-done")
			return rdlen, wrlen, nil
		}

		if progress {
			continue
		}

		if opts.RetryDelay < 0 {
			return rdlen, wrlen, ErrWouldBlock
		}
		if !waitRetry(opts) {
			return rdlen, wrlen, ErrWouldBlock
		}
	}
}
