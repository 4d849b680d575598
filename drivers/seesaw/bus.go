package seesaw

import "time"

// chunkSize is the transport's per-transaction read limit. The chunked read
// policy below keeps this detail out of the peripheral facades.
const chunkSize = 32

// Write sends (module, function, payload...) in one bus transaction.
func (d *Device) Write(module, function byte, payload []byte) error {
	d.lk.Lock()
	defer d.lk.Unlock()
	return d.write(module, function, payload)
}

func (d *Device) write(module, function byte, payload []byte) error {
	if len(payload) <= chunkSize {
		d.frame[0], d.frame[1] = module, function
		n := copy(d.frame[2:], payload)
		return d.bus.Tx(d.addr, d.frame[:2+n], nil)
	}
	frame := make([]byte, 2+len(payload))
	frame[0], frame[1] = module, function
	copy(frame[2:], payload)
	return d.bus.Tx(d.addr, frame, nil)
}

// WriteEmpty sends the two address bytes and nothing else, for registers
// where the function code itself is the command.
func (d *Device) WriteEmpty(module, function byte) error {
	d.lk.Lock()
	defer d.lk.Unlock()
	return d.arm(module, function)
}

// arm points the device's register pointer at a register. Callers hold the
// bus lock.
func (d *Device) arm(module, function byte) error {
	d.frame[0], d.frame[1] = module, function
	return d.bus.Tx(d.addr, d.frame[:2], nil)
}

// Write8 writes a single byte to a register.
func (d *Device) Write8(module, function, value byte) error {
	d.lk.Lock()
	defer d.lk.Unlock()
	return d.write8(module, function, value)
}

func (d *Device) write8(module, function, value byte) error {
	d.frame[0], d.frame[1], d.frame[2] = module, function, value
	return d.bus.Tx(d.addr, d.frame[:3], nil)
}

// Read fills buf from a register with no delay between arming the register
// pointer and reading. Use ReadWithDelay for registers backed by slow
// conversions.
func (d *Device) Read(module, function byte, buf []byte) error {
	return d.ReadWithDelay(module, function, buf, 0)
}

// ReadWithDelay fills buf from a register. Each chunk is two transactions: an
// address-only write that arms the device's register pointer, then a read of
// at most chunkSize bytes. Either buf fills completely or the first transport
// error is returned; there are no partial results. The bus lock is held for
// the whole read so nothing can retarget the register pointer between an arm
// and its read.
func (d *Device) ReadWithDelay(module, function byte, buf []byte, delay time.Duration) error {
	d.lk.Lock()
	defer d.lk.Unlock()
	for pos := 0; pos < len(buf); {
		if err := d.arm(module, function); err != nil {
			return err
		}
		if delay > 0 {
			time.Sleep(delay)
		}
		n := len(buf) - pos
		if n > chunkSize {
			n = chunkSize
		}
		if err := d.bus.Tx(d.addr, nil, buf[pos:pos+n]); err != nil {
			return err
		}
		pos += n
	}
	return nil
}

// Read8 reads a single byte from a register.
func (d *Device) Read8(module, function byte) (byte, error) {
	var b [1]byte
	if err := d.Read(module, function, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}
