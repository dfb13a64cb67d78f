// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package asynctls

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestZeroCopyBufferReadCaptureThenComplete(t *testing.T) {
	var z ZeroCopyBuffer
	dst := make([]byte, 5)

	if _, err := z.Read(dst); !errors.Is(err, ErrWouldBlock) {
		t.Fatalf("first Read: expected ErrWouldBlock, got %v", err)
	}
	// A second synchronous call before the pump runs must not re-capture.
	if _, err := z.Read(dst); !errors.Is(err, ErrWouldBlock) {
		t.Fatalf("second Read before pump: expected ErrWouldBlock, got %v", err)
	}

	r := bytes.NewReader([]byte("hello"))
	n, err := z.PumpRead(r)
	if err != nil || n != 5 {
		t.Fatalf("PumpRead: n=%d err=%v", n, err)
	}
	if string(dst) != "hello" {
		t.Fatalf("pump did not write through captured pointer: %q", dst)
	}

	n, err = z.Read(dst)
	if err != nil || n != 5 {
		t.Fatalf("Read after pump: n=%d err=%v", n, err)
	}

	// Completed state resets to waiting so the next Read captures again.
	dst2 := make([]byte, 3)
	if _, err := z.Read(dst2); !errors.Is(err, ErrWouldBlock) {
		t.Fatalf("Read after drain: expected ErrWouldBlock (new capture), got %v", err)
	}
}

func TestZeroCopyBufferReadEOFStaysCompleted(t *testing.T) {
	var z ZeroCopyBuffer
	dst := make([]byte, 4)
	if _, err := z.Read(dst); !errors.Is(err, ErrWouldBlock) {
		t.Fatalf("capture: %v", err)
	}
	if _, err := z.PumpRead(&eofReader{}); !errors.Is(err, io.EOF) {
		t.Fatalf("PumpRead: %v", err)
	}
	// EOF is reported every time until a fresh capture is forced by the caller.
	if _, err := z.Read(dst); !errors.Is(err, io.EOF) {
		t.Fatalf("Read after EOF pump (1): %v", err)
	}
	if _, err := z.Read(dst); !errors.Is(err, io.EOF) {
		t.Fatalf("Read after EOF pump (2): %v", err)
	}
}

type eofReader struct{}

func (*eofReader) Read([]byte) (int, error) { return 0, io.EOF }

func TestZeroCopyBufferWriteRoundTrip(t *testing.T) {
	var z ZeroCopyBuffer
	src := []byte("payload")

	if _, err := z.Write(src); !errors.Is(err, ErrWouldBlock) {
		t.Fatalf("capture write: %v", err)
	}

	var out bytes.Buffer
	n, err := z.PumpWrite(&out)
	if err != nil || n != len(src) {
		t.Fatalf("PumpWrite: n=%d err=%v", n, err)
	}
	if out.String() != "payload" {
		t.Fatalf("unexpected bytes written: %q", out.String())
	}

	n, err = z.Write(src)
	if err != nil || n != len(src) {
		t.Fatalf("Write after pump: n=%d err=%v", n, err)
	}
}

func TestZeroCopyBufferFlushReflectsCapture(t *testing.T) {
	var z ZeroCopyBuffer
	if err := z.Flush(); err != nil {
		t.Fatalf("Flush on idle buffer: %v", err)
	}
	z.Write([]byte("x"))
	if err := z.Flush(); !errors.Is(err, ErrWouldBlock) {
		t.Fatalf("Flush while captured: %v", err)
	}
}

func TestZeroCopyBufferPumpIsNoopWithoutCapture(t *testing.T) {
	var z ZeroCopyBuffer
	n, err := z.PumpRead(bytes.NewReader([]byte("unused")))
	if n != 0 || err != nil {
		t.Fatalf("PumpRead without capture should be a no-op, got n=%d err=%v", n, err)
	}
	var out bytes.Buffer
	n, err = z.PumpWrite(&out)
	if n != 0 || err != nil {
		t.Fatalf("PumpWrite without capture should be a no-op, got n=%d err=%v", n, err)
	}
}

func TestZeroCopyBufferEmptySliceShortCircuits(t *testing.T) {
	var z ZeroCopyBuffer
	if n, err := z.Read(nil); n != 0 || err != nil {
		t.Fatalf("Read(nil): n=%d err=%v", n, err)
	}
	if n, err := z.Write(nil); n != 0 || err != nil {
		t.Fatalf("Write(nil): n=%d err=%v", n, err)
	}
}
