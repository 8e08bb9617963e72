package audio

import (
	"bytes"
	"io"
	"testing"
	"time"
)

func TestPCMBufferReadWrite(t *testing.T) {
	buf := newPCMBuffer()

	data := []byte{1, 2, 3, 4, 5, 6}
	if n, err := buf.Write(data); n != len(data) || err != nil {
		t.Fatalf("Write: got n=%d err=%v", n, err)
	}
	if buf.Len() != len(data) {
		t.Errorf("expected %d buffered bytes, got %d", len(data), buf.Len())
	}

	out := make([]byte, 4)
	n, err := buf.Read(out)
	if err != nil || n != 4 {
		t.Fatalf("Read: got n=%d err=%v", n, err)
	}
	if !bytes.Equal(out, data[:4]) {
		t.Errorf("expected %v, got %v", data[:4], out)
	}

	n, err = buf.Read(out)
	if err != nil || n != 2 {
		t.Fatalf("second Read: got n=%d err=%v", n, err)
	}
	if !bytes.Equal(out[:n], data[4:]) {
		t.Errorf("expected %v, got %v", data[4:], out[:n])
	}
}

func TestPCMBufferSilenceWhenEmpty(t *testing.T) {
	buf := newPCMBuffer()

	// An empty open buffer must feed silence, never block.
	out := []byte{0xff, 0xff, 0xff, 0xff}
	n, err := buf.Read(out)
	if err != nil || n != len(out) {
		t.Fatalf("Read on empty buffer: got n=%d err=%v", n, err)
	}
	for i, b := range out {
		if b != 0 {
			t.Fatalf("expected silence, byte %d is %#x", i, b)
		}
	}
}

func TestPCMBufferClose(t *testing.T) {
	buf := newPCMBuffer()
	buf.Write([]byte{9, 9})
	buf.Close()

	// Remaining data drains first, then EOF.
	out := make([]byte, 8)
	n, err := buf.Read(out)
	if err != nil || n != 2 {
		t.Fatalf("Read after close: got n=%d err=%v", n, err)
	}
	if _, err := buf.Read(out); err != io.EOF {
		t.Errorf("expected io.EOF on drained closed buffer, got %v", err)
	}
	if _, err := buf.Write([]byte{1}); err != errBufferClosed {
		t.Errorf("expected write rejected after close, got %v", err)
	}
}

func TestPCMBufferWaitEmpty(t *testing.T) {
	buf := newPCMBuffer()
	buf.Write(make([]byte, 64))

	done := make(chan struct{})
	go func() {
		buf.WaitEmpty()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("WaitEmpty returned with data still buffered")
	case <-time.After(10 * time.Millisecond):
	}

	out := make([]byte, 64)
	buf.Read(out)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("WaitEmpty did not return after the buffer drained")
	}
}
