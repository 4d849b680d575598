// link/sercom_rwc.go
package link

import (
	"io"
	"sync"
	"time"

	"seesaw-go/drivers/seesaw"
)

// Data-ready bit in the sercom status register.
const sercomStatusDataRdy = 0x01

// sercomRWC adapts a co-processor serial port to io.ReadWriteCloser. Reads
// poll the status register at a fixed interval; writes chunk to the 32-byte
// FIFO. The device handle serialises its own transactions, so Read and Write
// can run concurrently.
type sercomRWC struct {
	dev  *seesaw.Device
	poll time.Duration

	done chan struct{}
	once sync.Once
}

func NewSercomRWC(dev *seesaw.Device, poll time.Duration) io.ReadWriteCloser {
	return &sercomRWC{dev: dev, poll: poll, done: make(chan struct{})}
}

func (c *sercomRWC) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		select {
		case <-c.done:
			return 0, io.EOF
		default:
		}

		st, err := c.dev.Read8(seesaw.ModSercom0, seesaw.SercomStatus)
		if err != nil {
			return 0, err
		}
		if st&sercomStatusDataRdy != 0 {
			break
		}
		select {
		case <-c.done:
			return 0, io.EOF
		case <-time.After(c.poll):
		}
	}

	// Drain while the device reports pending data, without overrunning p.
	n := 0
	for n < len(p) {
		b, err := c.dev.ReadSercomData(0)
		if err != nil {
			if n > 0 {
				return n, nil
			}
			return 0, err
		}
		p[n] = b
		n++

		st, err := c.dev.Read8(seesaw.ModSercom0, seesaw.SercomStatus)
		if err != nil || st&sercomStatusDataRdy == 0 {
			break
		}
	}
	return n, nil
}

func (c *sercomRWC) Write(p []byte) (int, error) {
	written := 0
	for off := 0; off < len(p); {
		end := off + 32
		if end > len(p) {
			end = len(p)
		}
		if err := c.dev.Write(seesaw.ModSercom0, seesaw.SercomData, p[off:end]); err != nil {
			return written, err
		}
		written += end - off
		off = end
	}
	return written, nil
}

func (c *sercomRWC) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}
