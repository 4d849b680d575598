package seesaw

import "time"

// The sercom facade talks to the UART-like serial modules the firmware may
// carry at ModSercom0+index. The device's data FIFO takes at most 32 bytes
// per write; longer payloads must be chunked by the caller.

// EnableSercomDataRdyInterrupt sets the data-ready bit in the cached
// interrupt-enable byte and writes the whole byte to the sercom's INTEN
// register. Bits the driver does not model keep their last-known value
// (zero-initialised) rather than being recomputed.
func (d *Device) EnableSercomDataRdyInterrupt(sercom uint8) error {
	d.lk.Lock()
	defer d.lk.Unlock()
	d.sercomInten |= sercomIntenDataRdy
	return d.write8(ModSercom0+sercom, SercomInten, d.sercomInten)
}

// DisableSercomDataRdyInterrupt clears the data-ready bit and writes the
// cached byte back.
func (d *Device) DisableSercomDataRdyInterrupt(sercom uint8) error {
	d.lk.Lock()
	defer d.lk.Unlock()
	d.sercomInten &^= sercomIntenDataRdy
	return d.write8(ModSercom0+sercom, SercomInten, d.sercomInten)
}

// ReadSercomData reads one byte from the sercom's data register.
func (d *Device) ReadSercomData(sercom uint8) (byte, error) {
	return d.Read8(ModSercom0+sercom, SercomData)
}

// WriteSercomByte writes one byte to sercom 0's data register and waits the
// settle time the firmware needs to drain it.
func (d *Device) WriteSercomByte(value byte) error {
	if err := d.Write8(ModSercom0, SercomData, value); err != nil {
		return err
	}
	time.Sleep(d.cfg.WriteSettle)
	return nil
}

// WriteSercomString writes up to 32 bytes to sercom 0's data register in one
// transaction. Longer strings return ErrDataTooLong without touching the bus;
// the 32-byte FIFO is a hard device limit and chunking is the caller's job.
func (d *Device) WriteSercomString(s string) error {
	if len(s) > chunkSize {
		return ErrDataTooLong
	}
	return d.Write(ModSercom0, SercomData, []byte(s))
}

// UARTSetBaud sets the baud rate on sercom 0. Rates up to 115200 are
// supported by the firmware.
func (d *Device) UARTSetBaud(baud uint32) error {
	var cmd [4]byte
	putBE32(cmd[:], baud)
	return d.Write(ModSercom0, SercomBaud, cmd[:])
}
