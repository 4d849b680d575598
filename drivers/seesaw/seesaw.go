// Package seesaw provides a driver for the Adafruit seesaw I2C co-processor.
//
// The seesaw exposes its peripherals (GPIO, ADC, PWM, sercom serial, EEPROM)
// behind a uniform register protocol: every transaction starts with a two-byte
// register address, (module base, function). Writes carry the payload in the
// same transaction; reads arm the device's register pointer with an
// address-only write and stream the value out in a second transaction, in
// chunks of at most 32 bytes.
//
// NOTE: I2C.Tx is only ever called as a pure write (r == nil) or a pure read
// (w == nil). The device does not implement repeated-start register reads; the
// arm and the read must be separate bus transactions.
//
// The driver is a deterministic one-shot translator from logical operation to
// bus transaction(s): transport errors propagate unwrapped and nothing is
// retried. Calls block for the duration of their transaction(s) plus any
// device settle time. Every operation holds the Device's bus lock for its
// whole transaction sequence, so a Device is safe to share across goroutines;
// handles for devices on the same physical bus must share a Config.Lock or an
// operation on one can split another's arm/read pair.
package seesaw

import (
	"errors"
	"sync"
	"time"

	"tinygo.org/x/drivers"
)

// Errors returned by the driver.
var (
	ErrWrongDevice = errors.New("seesaw: hardware ID mismatch")
	ErrInvalidMode = errors.New("seesaw: invalid pin mode")
	ErrDataTooLong = errors.New("seesaw: payload exceeds device buffer")
)

// Config controls addressing and settle timings. All fields are optional;
// zero values select the device defaults. Tests shorten the settle times.
type Config struct {
	// Address defaults to 0x49 if zero.
	Address uint16
	// Lock serialises bus transactions. Nil gives the Device a private
	// mutex, which suffices when the handle is the bus's only user; handles
	// sharing a physical bus must all carry the same Lock.
	Lock sync.Locker
	// ResetSettle is the wait after a software reset before the firmware is
	// ready again. Default 500 ms.
	ResetSettle time.Duration
	// ConversionDelay is the wait between arming an ADC value register and
	// streaming it out. Default 500 µs.
	ConversionDelay time.Duration
	// ReadSettle is the wait after an ADC sample. Default 1 ms.
	ReadSettle time.Duration
	// AddressSettle is the EEPROM write latency waited after persisting a new
	// I2C address. Default 250 ms.
	AddressSettle time.Duration
	// WriteSettle is the wait after a single sercom data byte. Default 1 ms.
	WriteSettle time.Duration
}

// Device is a handle to one seesaw on a shared I2C bus. Multiple devices on
// the same bus are represented by distinct handles sharing one transport and
// one lock.
type Device struct {
	bus  drivers.I2C
	addr uint16
	cfg  Config
	lk   sync.Locker

	// Cached sercom interrupt-enable byte. Written whole on every change so
	// bits this driver does not model survive enable/disable cycles.
	sercomInten byte

	// Fixed frame buffer to avoid per-call heap allocations.
	frame [2 + chunkSize]byte
}

// New creates a seesaw handle on the given bus. The I2C bus must already be
// configured. This only creates the Device object; it does not touch the
// device — call Begin for that.
func New(bus drivers.I2C, cfg Config) *Device {
	if cfg.Address == 0 {
		cfg.Address = AddressDefault
	}
	if cfg.ResetSettle <= 0 {
		cfg.ResetSettle = 500 * time.Millisecond
	}
	if cfg.ConversionDelay <= 0 {
		cfg.ConversionDelay = 500 * time.Microsecond
	}
	if cfg.ReadSettle <= 0 {
		cfg.ReadSettle = time.Millisecond
	}
	if cfg.AddressSettle <= 0 {
		cfg.AddressSettle = 250 * time.Millisecond
	}
	if cfg.WriteSettle <= 0 {
		cfg.WriteSettle = time.Millisecond
	}
	if cfg.Lock == nil {
		cfg.Lock = &sync.Mutex{}
	}
	return &Device{bus: bus, addr: cfg.Address, cfg: cfg, lk: cfg.Lock}
}

// Addr returns the bus address the handle currently targets.
func (d *Device) Addr() uint16 {
	d.lk.Lock()
	defer d.lk.Unlock()
	return d.addr
}

// Begin targets addr (0 keeps the current address), resets the device, waits
// for the firmware to come back up and verifies the hardware identity.
// ErrWrongDevice is a non-fatal probe failure: nothing answered the identity
// read with the expected code. Retrying or aborting is the caller's call.
func (d *Device) Begin(addr uint16) error {
	if addr != 0 {
		d.lk.Lock()
		d.addr = addr
		d.lk.Unlock()
	}
	if err := d.SWReset(); err != nil {
		return err
	}
	time.Sleep(d.cfg.ResetSettle)

	id, err := d.Read8(ModStatus, StatusHwID)
	if err != nil {
		return err
	}
	if id != HwIDCode {
		return ErrWrongDevice
	}
	return nil
}

// SWReset resets all device registers to their power-on defaults.
func (d *Device) SWReset() error {
	return d.Write8(ModStatus, StatusSwrst, 0xFF)
}

// HardwareID reads the raw hardware identity byte.
func (d *Device) HardwareID() (byte, error) {
	return d.Read8(ModStatus, StatusHwID)
}

// Options returns the firmware's compiled-in-module bitmask: bit i set means
// the module with base address i is present. Facade calls against an absent
// module are silently meaningless on the device, so check first.
func (d *Device) Options() (uint32, error) {
	var buf [4]byte
	if err := d.Read(ModStatus, StatusOptions, buf[:]); err != nil {
		return 0, err
	}
	return be32(buf[:]), nil
}

// Version returns the firmware version code: bits [31:16] are a date code,
// [15:0] the product id.
func (d *Device) Version() (uint32, error) {
	var buf [4]byte
	if err := d.Read(ModStatus, StatusVersion, buf[:]); err != nil {
		return 0, err
	}
	return be32(buf[:]), nil
}

// HasModule reports whether the firmware was compiled with the module at the
// given base address.
func (d *Device) HasModule(module byte) (bool, error) {
	opts, err := d.Options()
	if err != nil {
		return false, err
	}
	return opts&(1<<module) != 0, nil
}
