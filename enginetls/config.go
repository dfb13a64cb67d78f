// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package enginetls

import (
	"context"
	"crypto/tls"
	"crypto/x509"

	"code.hybscloud.com/asynctls"
)

// Config builds asynctls.Engine values over the standard library's
// crypto/tls, configured once via functional options and reused across
// many handshakes the way a Connector or Acceptor is.
type Config struct {
	tls *tls.Config
}

// ClientOption configures a client-side Config.
type ClientOption func(*tls.Config)

// ServerOption configures a server-side Config.
type ServerOption func(*tls.Config)

// NewClientConfig builds a client Config. Without WithRootCAs,
// certificate verification uses the system root pool.
func NewClientConfig(opts ...ClientOption) *Config {
	c := &tls.Config{MinVersion: tls.VersionTLS12}
	for _, fn := range opts {
		fn(c)
	}
	return &Config{tls: c}
}

// NewServerConfig builds a server Config. At least one certificate (via
// WithCertificate) is required before it can be used.
func NewServerConfig(opts ...ServerOption) *Config {
	c := &tls.Config{MinVersion: tls.VersionTLS12}
	for _, fn := range opts {
		fn(c)
	}
	return &Config{tls: c}
}

// WithRootCAs overrides the client's trusted root pool.
func WithRootCAs(pool *x509.CertPool) ClientOption {
	return func(c *tls.Config) { c.RootCAs = pool }
}

// WithInsecureSkipVerify disables server certificate verification. Use
// only for tests against fixtures that cannot carry a trusted certificate.
func WithInsecureSkipVerify() ClientOption {
	return func(c *tls.Config) { c.InsecureSkipVerify = true }
}

// WithCertificate adds a certificate the server presents to clients. For a
// client certificate in mutual TLS, use WithClientCertificate.
func WithCertificate(cert tls.Certificate) ServerOption {
	return func(c *tls.Config) { c.Certificates = append(c.Certificates, cert) }
}

// WithClientCertificate adds a certificate a client presents for mutual TLS.
func WithClientCertificate(cert tls.Certificate) ClientOption {
	return func(c *tls.Config) { c.Certificates = append(c.Certificates, cert) }
}

// WithALPN sets the client's offered application protocols.
func WithALPN(protocols ...string) ClientOption {
	return func(c *tls.Config) { c.NextProtos = protocols }
}

// WithServerALPN sets the server's supported application protocols.
func WithServerALPN(protocols ...string) ServerOption {
	return func(c *tls.Config) { c.NextProtos = protocols }
}

// NewClientEngine builds a client-side Engine that will handshake as
// serverName once driven. The handshake runs on a background goroutine
// started immediately; the returned Engine's IsHandshaking is true until
// it completes.
func (c *Config) NewClientEngine(ctx context.Context, serverName string) (asynctls.Engine, error) {
	cfg := c.tls.Clone()
	if serverName != "" {
		cfg.ServerName = serverName
	}
	in, out := newPipeQueue(), newPipeQueue()
	conn := &pipeConn{r: in, w: out}
	tlsConn := tls.Client(conn, cfg)
	return newPipeEngine(ctx, tlsConn, in, out), nil
}

// NewServerEngine builds a server-side Engine. The handshake runs on a
// background goroutine started immediately.
func (c *Config) NewServerEngine(ctx context.Context) (asynctls.Engine, error) {
	in, out := newPipeQueue(), newPipeQueue()
	conn := &pipeConn{r: in, w: out}
	tlsConn := tls.Server(conn, c.tls)
	return newPipeEngine(ctx, tlsConn, in, out), nil
}
