// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package asynctls bridges a non-blocking, completion-flavored byte-stream
// transport to a synchronous TLS engine.
//
// Semantics and design:
//   - Two mismatched I/O models: the transport's Read/Write may return
//     ErrWouldBlock or ErrMore instead of blocking (the same control-flow
//     vocabulary code.hybscloud.com/framer uses), while the TLS engine
//     (package asynctls's Engine interface) expects synchronous calls that
//     return immediately. StagingBuffer and the IOWrapper it backs are the
//     glue: they marshal bytes between the two without ever blocking the
//     caller.
//   - Non-blocking first: ErrWouldBlock and ErrMore are surfaced as
//     control-flow signals, not failures. Hot paths avoid allocations.
//   - Engine-agnostic: the adapter is parameterized by the Engine
//     interface. Package enginetls supplies a concrete implementation over
//     crypto/tls; nothing in this package depends on it.
//
// Wire format: standard TLS records as produced by the Engine. This
// package adds no framing of its own.
package asynctls

import "code.hybscloud.com/iox"

// These are provided as package-level aliases so callers can reference the
// semantic control-flow errors without importing iox directly.
var (
	// ErrWouldBlock means "no further progress without waiting".
	//
	// It is an expected, non-failure control-flow signal for non-blocking
	// I/O. Any returned byte count (n) still represents real progress.
	ErrWouldBlock = iox.ErrWouldBlock

	// ErrMore means "this completion is usable and more completions will
	// follow". It is not io.EOF and not "try later": the operation remains
	// active and additional data is expected from the same ongoing call.
	ErrMore = iox.ErrMore
)
