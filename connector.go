// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package asynctls

import (
	"context"
	"errors"
	"io"
)

// ClientEngineFactory builds a fresh client-side Engine for one connection
// attempt to serverName. It is called once per Connect.
type ClientEngineFactory func(ctx context.Context, serverName string) (Engine, error)

// ServerEngineFactory builds a fresh server-side Engine for one accepted
// connection. It is called once per Accept.
type ServerEngineFactory func(ctx context.Context) (Engine, error)

// Connector performs client-side TLS handshakes over caller-supplied
// transports, configured once via functional options and reused across
// many connections.
type Connector struct {
	factory ClientEngineFactory
	opts    Options
}

// NewConnector builds a Connector. factory must not be nil.
func NewConnector(factory ClientEngineFactory, opts ...Option) *Connector {
	return &Connector{factory: factory, opts: newOptions(opts)}
}

// Connect drives a client handshake to completion over transport,
// returning the established TlsStream. It polls pumpHandshake until it
// completes, fails, or ctx is done, regardless of the configured
// RetryDelay: Connect is the synchronous-looking entry point that hides
// the underlying non-blocking pump from callers who just want a stream.
func (c *Connector) Connect(ctx context.Context, serverName string, transport io.ReadWriter) (*TlsStream, error) {
	if transport == nil {
		return nil, invalidData(ErrInvalidArgument)
	}
	engine, err := c.factory(ctx, serverName)
	if err != nil {
		return nil, tlsError(err)
	}
	return handshakeLoop(ctx, transport, engine, c.opts)
}

// Acceptor performs server-side TLS handshakes over caller-supplied
// transports, configured once via functional options and reused across
// many accepted connections.
type Acceptor struct {
	factory ServerEngineFactory
	opts    Options
}

// NewAcceptor builds an Acceptor. factory must not be nil.
func NewAcceptor(factory ServerEngineFactory, opts ...Option) *Acceptor {
	return &Acceptor{factory: factory, opts: newOptions(opts)}
}

// Accept drives a server handshake to completion over transport, returning
// the established TlsStream. See Connect for the polling contract.
func (a *Acceptor) Accept(ctx context.Context, transport io.ReadWriter) (*TlsStream, error) {
	if transport == nil {
		return nil, invalidData(ErrInvalidArgument)
	}
	engine, err := a.factory(ctx)
	if err != nil {
		return nil, tlsError(err)
	}
	return handshakeLoop(ctx, transport, engine, a.opts)
}

func handshakeLoop(ctx context.Context, transport io.ReadWriter, engine Engine, opts Options) (*TlsStream, error) {
	if engine == nil {
		return nil, invalidData(ErrInvalidArgument)
	}
	iow := newIOWrapper(transport, opts)
	for {
		_, _, err := pumpHandshake(engine, iow, &opts)
		if err == nil {
			return newTlsStream(transport, iow, engine, opts), nil
		}
		if !errors.Is(err, ErrWouldBlock) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if !waitRetry(&opts) {
			// Nonblocking policy: yield once to the scheduler so the
			// transport's background pump (if any) gets a chance to run,
			// then retry. Connect/Accept always run the loop to
			// completion; only the lower-level pumpHandshake honors
			// RetryDelay<0 by returning immediately.
			yieldOnce()
		}
	}
}
