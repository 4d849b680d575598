package seesaw

import "time"

// The EEPROM module persists across power cycles. The function byte is the
// byte offset; on the SAMD09 firmware valid offsets are 0–63 and the last
// byte holds the device's own I2C address. Writing past the end is undefined
// behaviour on the device and is not validated here.

// EEPROMWrite8 writes one byte at the given EEPROM offset.
func (d *Device) EEPROMWrite8(addr, value byte) error {
	return d.Write8(ModEEPROM, addr, value)
}

// EEPROMWrite writes buf starting at the given EEPROM offset.
func (d *Device) EEPROMWrite(addr byte, buf []byte) error {
	return d.Write(ModEEPROM, addr, buf)
}

// EEPROMRead8 reads one byte from the given EEPROM offset.
func (d *Device) EEPROMRead8(addr byte) (byte, error) {
	return d.Read8(ModEEPROM, addr)
}

// SetAddress persists a new 7-bit I2C address to the device's EEPROM, waits
// out the write latency, and re-runs the identity-checked Begin against the
// new address. The handle targets the new address afterwards even if the
// probe fails.
func (d *Device) SetAddress(addr uint8) error {
	if err := d.EEPROMWrite8(EEPROMI2CAddr, addr); err != nil {
		return err
	}
	time.Sleep(d.cfg.AddressSettle)
	return d.Begin(uint16(addr))
}

// Address reads the persisted I2C address back from EEPROM.
func (d *Device) Address() (uint8, error) {
	return d.EEPROMRead8(EEPROMI2CAddr)
}
