// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package asynctls

import (
	"errors"
	"fmt"
)

// Kind distinguishes the two causes a TlsError can report.
type Kind uint8

const (
	// KindIO means the transport failed or hit EOF mid-record.
	KindIO Kind = iota + 1
	// KindTLS means the engine rejected records, or the configuration is invalid.
	KindTLS
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindTLS:
		return "tls"
	default:
		return "unknown"
	}
}

// TlsError is the adapter's single error type. Kind tells callers whether
// the failure originated in the transport or in the TLS engine; Unwrap
// exposes the underlying error for errors.Is/errors.As.
type TlsError struct {
	Kind Kind
	Err  error
}

func (e *TlsError) Error() string {
	return fmt.Sprintf("asynctls: %s: %v", e.Kind, e.Err)
}

func (e *TlsError) Unwrap() error { return e.Err }

// AsIOError returns e as a plain error for call sites that only care that
// something on the connection failed, without branching on Kind.
func (e *TlsError) AsIOError() error { return e }

func ioError(err error) *TlsError {
	if err == nil {
		return nil
	}
	return &TlsError{Kind: KindIO, Err: err}
}

func tlsError(err error) *TlsError {
	if err == nil {
		return nil
	}
	return &TlsError{Kind: KindTLS, Err: err}
}

func invalidData(err error) *TlsError {
	return &TlsError{Kind: KindTLS, Err: fmt.Errorf("invalid data: %w", err)}
}

// Sentinel causes wrapped into a TlsError at the point of failure. Compare
// with errors.Is against the TlsError, not these bare values; Unwrap makes
// that work.
var (
	// ErrHandshakeEOF means the transport hit EOF before the handshake completed.
	ErrHandshakeEOF = errors.New("asynctls: tls handshake eof")
	// ErrHandshakeAlert means the peer closed the connection during the handshake.
	ErrHandshakeAlert = errors.New("asynctls: tls handshake alert")
	// ErrRawStreamEOF means the transport hit EOF while serving an application read.
	ErrRawStreamEOF = errors.New("asynctls: tls raw stream eof")
	// ErrInvalidArgument reports a nil transport or engine.
	ErrInvalidArgument = errors.New("asynctls: invalid argument")
	// ErrReunitedHalf is returned by a ReadHalf or WriteHalf after it has
	// already been consumed by a successful Reunite, and by
	// TlsStream.IntoParts on a stream that is currently split.
	ErrReunitedHalf = errors.New("asynctls: half already reunited")
)

func handshakeEOF() *TlsError   { return ioError(ErrHandshakeEOF) }
func handshakeAlert() *TlsError { return ioError(ErrHandshakeAlert) }
func rawStreamEOF() *TlsError   { return ioError(ErrRawStreamEOF) }

// ReuniteError is returned by Reunite when the two halves do not belong to
// the same TlsStream. It carries both halves back so the caller does not
// lose them.
type ReuniteError struct {
	Read  *ReadHalf
	Write *WriteHalf
}

func (e *ReuniteError) Error() string {
	return "asynctls: reunite: read half and write half belong to different streams"
}
