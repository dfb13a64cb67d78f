// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package asynctls

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"
)

func TestSplitThenReunite(t *testing.T) {
	engine := &scriptedEngine{readerFn: func() io.Reader { return bytes.NewReader([]byte("x")) }}
	s := newTestStream(engine, &loopbackTransport{in: bytes.NewBufferString("")}, newOptions(nil))
	if s.splitted {
		t.Fatalf("stream should not start split")
	}

	rh, wh := s.Split()
	if !s.splitted {
		t.Fatalf("Split should mark the stream splitted")
	}

	got, err := Reunite(rh, wh)
	if err != nil {
		t.Fatalf("Reunite: %v", err)
	}
	if got != s {
		t.Fatalf("Reunite should return the original stream")
	}
	if s.splitted {
		t.Fatalf("Reunite should clear splitted")
	}
}

func TestReuniteMismatchedHalvesFails(t *testing.T) {
	s1 := newTestStream(&scriptedEngine{}, &loopbackTransport{in: bytes.NewBufferString("")}, newOptions(nil))
	s2 := newTestStream(&scriptedEngine{}, &loopbackTransport{in: bytes.NewBufferString("")}, newOptions(nil))

	r1, _ := s1.Split()
	_, w2 := s2.Split()

	got, err := Reunite(r1, w2)
	if got != nil {
		t.Fatalf("expected nil stream on mismatch")
	}
	var reuniteErr *ReuniteError
	if !errors.As(err, &reuniteErr) {
		t.Fatalf("expected *ReuniteError, got %v", err)
	}
	if reuniteErr.Read != r1 || reuniteErr.Write != w2 {
		t.Fatalf("ReuniteError should carry back both original halves")
	}
}

func TestHalvesRejectUseAfterReunite(t *testing.T) {
	s := newTestStream(&scriptedEngine{}, &loopbackTransport{in: bytes.NewBufferString("")}, newOptions(nil))
	rh, wh := s.Split()
	if _, err := Reunite(rh, wh); err != nil {
		t.Fatalf("Reunite: %v", err)
	}
	if _, err := rh.Read(make([]byte, 1)); !errors.Is(err, ErrReunitedHalf) {
		t.Fatalf("expected ErrReunitedHalf from a reunited ReadHalf, got %v", err)
	}
	if _, err := wh.Write([]byte("x")); !errors.Is(err, ErrReunitedHalf) {
		t.Fatalf("expected ErrReunitedHalf from a reunited WriteHalf, got %v", err)
	}
}

func TestSplitHalvesReadvWritev(t *testing.T) {
	engine := &scriptedEngine{readerFn: func() io.Reader { return bytes.NewReader([]byte("abc")) }}
	s := newTestStream(engine, &loopbackTransport{in: bytes.NewBufferString("")}, newOptions(nil))
	rh, wh := s.Split()

	bufs := [][]byte{nil, make([]byte, 3), make([]byte, 3)}
	n, err := rh.Readv(bufs)
	if err != nil || n != 3 || string(bufs[1][:n]) != "abc" {
		t.Fatalf("ReadHalf.Readv: n=%d err=%v bufs=%v", n, err, bufs)
	}

	var staged bytes.Buffer
	engine2 := &scriptedEngine{writerFn: func() PlaintextWriter { return bufWriter{&staged} }}
	s2 := newTestStream(engine2, &loopbackTransport{in: bytes.NewBufferString("")}, newOptions(nil))
	_, wh2 := s2.Split()
	n, err = wh2.Writev([][]byte{nil, []byte("hello")})
	if err != nil || n != 5 || staged.String() != "hello" {
		t.Fatalf("WriteHalf.Writev: n=%d err=%v staged=%q", n, err, staged.String())
	}

	if _, err := Reunite(rh, wh); err != nil {
		t.Fatalf("Reunite: %v", err)
	}
	if _, err := rh.Readv(bufs); !errors.Is(err, ErrReunitedHalf) {
		t.Fatalf("expected ErrReunitedHalf from a reunited ReadHalf.Readv, got %v", err)
	}
	if _, err := wh.Writev([][]byte{[]byte("x")}); !errors.Is(err, ErrReunitedHalf) {
		t.Fatalf("expected ErrReunitedHalf from a reunited WriteHalf.Writev, got %v", err)
	}
}

func TestSplitHalvesConcurrentEcho(t *testing.T) {
	var staged bytes.Buffer
	sent := make(chan []byte, 1)
	engine := &scriptedEngine{
		writerFn: func() PlaintextWriter { return bufWriter{&staged} },
		wantsWriteFn: func() bool {
			return staged.Len() > 0
		},
		writeTLSFn: func(sink io.Writer) (int, error) {
			payload := append([]byte(nil), staged.Bytes()...)
			staged.Reset()
			sent <- payload
			return len(payload), nil
		},
		readerFn: func() io.Reader {
			return readerFunc(func(p []byte) (int, error) {
				select {
				case b := <-sent:
					return copy(p, b), nil
				default:
					return 0, ErrWouldBlock
				}
			})
		},
	}
	// Nonblocking mode: the transport never carries real bytes in this test
	// (the fake engine hands payloads straight across the "sent" channel),
	// so the staging pump must return ErrWouldBlock immediately rather than
	// spin waiting on a transport that will never produce data; the caller
	// is responsible for retrying, exactly as the async contract requires.
	s := newTestStream(engine, &loopbackTransport{in: bytes.NewBufferString("")}, newOptions([]Option{WithNonblock()}))
	rh, wh := s.Split()

	var wg sync.WaitGroup
	wg.Add(2)
	var readBack []byte
	go func() {
		defer wg.Done()
		buf := make([]byte, 5)
		for {
			n, err := rh.Read(buf)
			if errors.Is(err, ErrWouldBlock) {
				continue
			}
			if err != nil {
				t.Errorf("ReadHalf.Read: %v", err)
				return
			}
			readBack = append([]byte(nil), buf[:n]...)
			return
		}
	}()
	go func() {
		defer wg.Done()
		if _, err := wh.Write([]byte("hello")); err != nil {
			t.Errorf("WriteHalf.Write: %v", err)
		}
	}()
	wg.Wait()

	if string(readBack) != "hello" {
		t.Fatalf("expected to read back what was written, got %q", readBack)
	}
}
