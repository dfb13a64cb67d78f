// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package asynctls

import (
	"runtime"
	"time"
)

// DefaultBufferSize is the staging buffer capacity used when a direction's
// size is left unconfigured.
const DefaultBufferSize = 16 * 1024

// Options configures a StagingBuffer/IOWrapper pair, a HandshakePump, and
// the streams built on top of them.
type Options struct {
	// ReadBufferSize caps the read-side staging buffer. Zero means DefaultBufferSize.
	ReadBufferSize int
	// WriteBufferSize caps the write-side staging buffer. Zero means DefaultBufferSize.
	WriteBufferSize int

	// UnsafeZeroCopy enables the zero-copy fast path (ZeroCopyBuffer) in
	// place of StagingBuffer. See ZeroCopyBuffer's doc comment for the
	// drop-safety contract this requires from the caller.
	UnsafeZeroCopy bool

	// RetryDelay controls how a pump handles ErrWouldBlock from the
	// transport:
	//   - negative: nonblock, return ErrWouldBlock immediately
	//   - zero: yield (runtime.Gosched) and retry
	//   - positive: sleep for the duration and retry
	RetryDelay time.Duration

	// Trace, if non-nil, is called with a short event name at handshake
	// and shutdown milestones. It is never called concurrently from more
	// than one goroutine for a single stream.
	Trace func(event string)
}

var defaultOptions = Options{
	ReadBufferSize:  DefaultBufferSize,
	WriteBufferSize: DefaultBufferSize,
	UnsafeZeroCopy:  false,
	RetryDelay:      -1, // default: nonblock
}

func (o *Options) trace(event string) {
	if o.Trace != nil {
		o.Trace(event)
	}
}

func (o Options) readBufSize() int {
	if o.ReadBufferSize <= 0 {
		return DefaultBufferSize
	}
	return o.ReadBufferSize
}

func (o Options) writeBufSize() int {
	if o.WriteBufferSize <= 0 {
		return DefaultBufferSize
	}
	return o.WriteBufferSize
}

// Option mutates an Options value. Apply via Connector/Acceptor constructors.
type Option func(*Options)

// WithReadBufferSize sets the read-side staging buffer capacity.
func WithReadBufferSize(n int) Option {
	return func(o *Options) { o.ReadBufferSize = n }
}

// WithWriteBufferSize sets the write-side staging buffer capacity.
func WithWriteBufferSize(n int) Option {
	return func(o *Options) { o.WriteBufferSize = n }
}

// WithUnsafeZeroCopy enables or disables the zero-copy fast path.
func WithUnsafeZeroCopy(enabled bool) Option {
	return func(o *Options) { o.UnsafeZeroCopy = enabled }
}

// WithRetryDelay sets the retry/wait policy used when the transport returns ErrWouldBlock.
func WithRetryDelay(d time.Duration) Option {
	return func(o *Options) { o.RetryDelay = d }
}

// WithBlock enables cooperative blocking (yield-and-retry) on ErrWouldBlock.
func WithBlock() Option {
	return func(o *Options) { o.RetryDelay = 0 }
}

// WithNonblock forces non-blocking behavior (return ErrWouldBlock immediately).
func WithNonblock() Option {
	return func(o *Options) { o.RetryDelay = -1 }
}

// WithTrace installs a handshake/shutdown milestone hook.
func WithTrace(fn func(event string)) Option {
	return func(o *Options) { o.Trace = fn }
}

// waitRetry applies opts.RetryDelay's wait policy once. It returns false
// when the policy is nonblocking, telling the caller to surface
// ErrWouldBlock instead of looping again.
func waitRetry(opts *Options) bool {
	if opts.RetryDelay < 0 {
		return false
	}
	if opts.RetryDelay == 0 {
		runtime.Gosched()
		return true
	}
	time.Sleep(opts.RetryDelay)
	return true
}

// yieldOnce hands the scheduler one timeslice, used by the polling loops
// that sit above pumpHandshake's own RetryDelay-aware waiting.
func yieldOnce() { runtime.Gosched() }

func newOptions(opts []Option) Options {
	o := defaultOptions
	for _, fn := range opts {
		fn(&o)
	}
	return o
}
