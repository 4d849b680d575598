// link/sercom_rwc_test.go
package link

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"seesaw-go/drivers/seesaw"

	"tinygo.org/x/drivers"
)

var _ drivers.I2C = (*fakeSercomI2C)(nil)

// fakeSercomI2C scripts just the serial port of a co-processor: the status
// register reports data-ready while rxq is non-empty, the data register pops
// from rxq on read and appends to sink on write.
type fakeSercomI2C struct {
	mu      sync.Mutex
	rxq     []byte
	sink    []byte
	lastArm [2]byte
}

func (f *fakeSercomI2C) Tx(addr uint16, w, r []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(w) > 0 && r == nil {
		if len(w) == 2 {
			f.lastArm = [2]byte{w[0], w[1]}
			return nil
		}
		if w[0] == seesaw.ModSercom0 && w[1] == seesaw.SercomData {
			f.sink = append(f.sink, w[2:]...)
		}
		return nil
	}
	if w == nil && len(r) > 0 {
		switch f.lastArm {
		case [2]byte{seesaw.ModSercom0, seesaw.SercomStatus}:
			if len(f.rxq) > 0 {
				r[0] = sercomStatusDataRdy
			} else {
				r[0] = 0
			}
		case [2]byte{seesaw.ModSercom0, seesaw.SercomData}:
			if len(f.rxq) > 0 {
				r[0] = f.rxq[0]
				f.rxq = f.rxq[1:]
			} else {
				r[0] = 0
			}
		}
		return nil
	}
	return errors.New("fake: unsupported transaction")
}

func (f *fakeSercomI2C) feed(data []byte) {
	f.mu.Lock()
	f.rxq = append(f.rxq, data...)
	f.mu.Unlock()
}

func (f *fakeSercomI2C) written() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]byte(nil), f.sink...)
}

func newTestRWC(f *fakeSercomI2C) io.ReadWriteCloser {
	dev := seesaw.New(f, seesaw.Config{})
	return NewSercomRWC(dev, time.Millisecond)
}

func TestSercomRWC_ReadDrainsPendingBytes(t *testing.T) {
	f := &fakeSercomI2C{}
	rwc := newTestRWC(f)
	defer rwc.Close()

	f.feed([]byte("ping"))

	buf := make([]byte, 16)
	n, err := rwc.Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(buf[:n], []byte("ping")) {
		t.Fatalf("Read = %q, want %q", buf[:n], "ping")
	}
}

func TestSercomRWC_ReadBlocksUntilData(t *testing.T) {
	f := &fakeSercomI2C{}
	rwc := newTestRWC(f)
	defer rwc.Close()

	go func() {
		time.Sleep(10 * time.Millisecond)
		f.feed([]byte{0x42})
	}()

	buf := make([]byte, 1)
	n, err := rwc.Read(buf)
	if err != nil || n != 1 || buf[0] != 0x42 {
		t.Fatalf("Read = (%d, %v, %#x), want (1, nil, 0x42)", n, err, buf[0])
	}
}

func TestSercomRWC_WriteChunksToFIFO(t *testing.T) {
	f := &fakeSercomI2C{}
	rwc := newTestRWC(f)
	defer rwc.Close()

	payload := make([]byte, 70)
	for i := range payload {
		payload[i] = byte(i)
	}
	n, err := rwc.Write(payload)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != len(payload) {
		t.Fatalf("Write n = %d, want %d", n, len(payload))
	}
	if !bytes.Equal(f.written(), payload) {
		t.Fatal("device saw different bytes than were written")
	}
}

func TestSercomRWC_CloseUnblocksRead(t *testing.T) {
	f := &fakeSercomI2C{}
	rwc := newTestRWC(f)

	done := make(chan error, 1)
	go func() {
		buf := make([]byte, 1)
		_, err := rwc.Read(buf)
		done <- err
	}()

	time.Sleep(5 * time.Millisecond)
	_ = rwc.Close()

	select {
	case err := <-done:
		if err != io.EOF {
			t.Fatalf("Read after Close = %v, want io.EOF", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Read did not unblock after Close")
	}
}
