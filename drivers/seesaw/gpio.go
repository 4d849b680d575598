package seesaw

// PinMode selects the configuration of a GPIO pin. Pins stay unconfigured
// until a mode is set; there are no implicit transitions.
type PinMode uint8

const (
	PinInput PinMode = iota
	PinOutput
	PinInputPullup
)

// PinModeBulk sets the mode of every pin whose bit is set in pins. Pull-ups
// need the direction cleared, the pull resistor enabled and the output latch
// driven high, in that order.
func (d *Device) PinModeBulk(pins uint32, mode PinMode) error {
	var mask [4]byte
	putBE32(mask[:], pins)
	switch mode {
	case PinOutput:
		return d.Write(ModGPIO, GPIODirSetBulk, mask[:])
	case PinInput:
		return d.Write(ModGPIO, GPIODirClrBulk, mask[:])
	case PinInputPullup:
		if err := d.Write(ModGPIO, GPIODirClrBulk, mask[:]); err != nil {
			return err
		}
		if err := d.Write(ModGPIO, GPIOPullEnSet, mask[:]); err != nil {
			return err
		}
		return d.Write(ModGPIO, GPIOBulkSet, mask[:])
	default:
		return ErrInvalidMode
	}
}

// PinMode sets the mode of a single pin.
func (d *Device) PinMode(pin uint8, mode PinMode) error {
	return d.PinModeBulk(1<<pin, mode)
}

// DigitalWriteBulk drives every pin whose bit is set in pins high or low.
// The device ORs (high) or AND-NOTs (low) the mask into its output register.
func (d *Device) DigitalWriteBulk(pins uint32, value bool) error {
	var mask [4]byte
	putBE32(mask[:], pins)
	if value {
		return d.Write(ModGPIO, GPIOBulkSet, mask[:])
	}
	return d.Write(ModGPIO, GPIOBulkClr, mask[:])
}

// DigitalWrite drives a single pin.
func (d *Device) DigitalWrite(pin uint8, value bool) error {
	return d.DigitalWriteBulk(1<<pin, value)
}

// DigitalToggleBulk inverts every pin whose bit is set in pins.
func (d *Device) DigitalToggleBulk(pins uint32) error {
	var mask [4]byte
	putBE32(mask[:], pins)
	return d.Write(ModGPIO, GPIOBulkToggle, mask[:])
}

// DigitalReadBulk returns the state of the pins selected by the mask.
func (d *Device) DigitalReadBulk(pins uint32) (uint32, error) {
	var buf [4]byte
	if err := d.Read(ModGPIO, GPIOBulk, buf[:]); err != nil {
		return 0, err
	}
	return be32(buf[:]) & pins, nil
}

// DigitalRead returns the level of a single pin.
func (d *Device) DigitalRead(pin uint8) (bool, error) {
	v, err := d.DigitalReadBulk(1 << pin)
	return v != 0, err
}

// SetGPIOInterrupts enables or disables level-change interrupts on the pins
// selected by the mask. The device raises its interrupt line; flags are read
// (and cleared) with InterruptFlags.
func (d *Device) SetGPIOInterrupts(pins uint32, enabled bool) error {
	var mask [4]byte
	putBE32(mask[:], pins)
	if enabled {
		return d.Write(ModGPIO, GPIOIntenSet, mask[:])
	}
	return d.Write(ModGPIO, GPIOIntenClr, mask[:])
}

// InterruptFlags reads the pending GPIO interrupt mask. Reading clears the
// flags on the device.
func (d *Device) InterruptFlags() (uint32, error) {
	var buf [4]byte
	if err := d.Read(ModGPIO, GPIOIntFlag, buf[:]); err != nil {
		return 0, err
	}
	return be32(buf[:]), nil
}
