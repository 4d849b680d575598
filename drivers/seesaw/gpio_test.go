package seesaw

import (
	"bytes"
	"testing"
)

func maskBytes(pins uint32) []byte {
	return []byte{byte(pins >> 24), byte(pins >> 16), byte(pins >> 8), byte(pins)}
}

func TestDigitalWriteReadBulk_RoundTrip(t *testing.T) {
	sim := newSimSeesaw()
	d := newTestDevice(sim)

	for _, mask := range []uint32{0x1, 0x6, 0xDEADBEEF, 0xFFFFFFFF} {
		sim.outputs = 0
		if err := d.DigitalWriteBulk(mask, true); err != nil {
			t.Fatalf("DigitalWriteBulk(%#x): %v", mask, err)
		}
		got, err := d.DigitalReadBulk(mask)
		if err != nil {
			t.Fatalf("DigitalReadBulk(%#x): %v", mask, err)
		}
		if got != mask {
			t.Fatalf("round trip %#x, got %#x", mask, got)
		}
	}
}

func TestDigitalWriteBulk_SetVsClearRegister(t *testing.T) {
	sim := newSimSeesaw()
	d := newTestDevice(sim)

	if err := d.DigitalWriteBulk(0x0110, true); err != nil {
		t.Fatalf("write high: %v", err)
	}
	frame := sim.lastWrite(t)
	if frame[1] != GPIOBulkSet {
		t.Fatalf("high write hit function %#x, want BULK_SET", frame[1])
	}

	if err := d.DigitalWriteBulk(0x0110, false); err != nil {
		t.Fatalf("write low: %v", err)
	}
	frame = sim.lastWrite(t)
	if frame[1] != GPIOBulkClr {
		t.Fatalf("low write hit function %#x, want BULK_CLR", frame[1])
	}
	if !bytes.Equal(frame[2:], maskBytes(0x0110)) {
		t.Fatalf("mask payload = %v", frame[2:])
	}
}

func TestDigitalWrite_SinglePinIsOneBitMask(t *testing.T) {
	sim := newSimSeesaw()
	d := newTestDevice(sim)

	if err := d.DigitalWrite(9, true); err != nil {
		t.Fatalf("DigitalWrite: %v", err)
	}
	frame := sim.lastWrite(t)
	if !bytes.Equal(frame[2:], maskBytes(1<<9)) {
		t.Fatalf("single-pin mask = %v, want bit 9", frame[2:])
	}
}

func TestPinModeBulk_InputPullupWriteSequence(t *testing.T) {
	sim := newSimSeesaw()
	d := newTestDevice(sim)

	mask := uint32(0x0000000C)
	if err := d.PinModeBulk(mask, PinInputPullup); err != nil {
		t.Fatalf("PinModeBulk: %v", err)
	}

	// Exactly three payload writes, in order: direction clear, pull enable,
	// bulk set — each carrying the mask.
	writes := sim.payloadWrites()
	if len(writes) != 3 {
		t.Fatalf("payload writes = %d, want 3", len(writes))
	}
	wantFns := []byte{GPIODirClrBulk, GPIOPullEnSet, GPIOBulkSet}
	for i, w := range writes {
		if w[0] != ModGPIO || w[1] != wantFns[i] {
			t.Fatalf("write %d hit (%#x,%#x), want (%#x,%#x)", i, w[0], w[1], ModGPIO, wantFns[i])
		}
		if !bytes.Equal(w[2:], maskBytes(mask)) {
			t.Fatalf("write %d payload = %v, want mask", i, w[2:])
		}
	}
}

func TestPinModeBulk_OutputAndInput(t *testing.T) {
	sim := newSimSeesaw()
	d := newTestDevice(sim)

	if err := d.PinModeBulk(0x3, PinOutput); err != nil {
		t.Fatalf("output: %v", err)
	}
	if fn := sim.lastWrite(t)[1]; fn != GPIODirSetBulk {
		t.Fatalf("output hit %#x, want DIRSET_BULK", fn)
	}

	if err := d.PinModeBulk(0x3, PinInput); err != nil {
		t.Fatalf("input: %v", err)
	}
	if fn := sim.lastWrite(t)[1]; fn != GPIODirClrBulk {
		t.Fatalf("input hit %#x, want DIRCLR_BULK", fn)
	}

	if err := d.PinModeBulk(0x3, PinMode(99)); err != ErrInvalidMode {
		t.Fatalf("invalid mode err = %v, want ErrInvalidMode", err)
	}
}

func TestSetGPIOInterrupts(t *testing.T) {
	sim := newSimSeesaw()
	d := newTestDevice(sim)

	if err := d.SetGPIOInterrupts(0x30, true); err != nil {
		t.Fatalf("enable: %v", err)
	}
	if fn := sim.lastWrite(t)[1]; fn != GPIOIntenSet {
		t.Fatalf("enable hit %#x, want INTENSET", fn)
	}
	if err := d.SetGPIOInterrupts(0x30, false); err != nil {
		t.Fatalf("disable: %v", err)
	}
	frame := sim.lastWrite(t)
	if frame[1] != GPIOIntenClr {
		t.Fatalf("disable hit %#x, want INTENCLR", frame[1])
	}
	if !bytes.Equal(frame[2:], maskBytes(0x30)) {
		t.Fatalf("mask payload = %v", frame[2:])
	}
}

func TestDigitalToggleBulk(t *testing.T) {
	sim := newSimSeesaw()
	sim.outputs = 0xF0
	d := newTestDevice(sim)

	if err := d.DigitalToggleBulk(0xFF); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if sim.outputs != 0x0F {
		t.Fatalf("outputs after toggle = %#x, want 0x0F", sim.outputs)
	}
}

func TestInterruptFlags(t *testing.T) {
	sim := newSimSeesaw()
	sim.regs[key(ModGPIO, GPIOIntFlag)] = []byte{0x00, 0x00, 0x01, 0x80}
	d := newTestDevice(sim)

	flags, err := d.InterruptFlags()
	if err != nil {
		t.Fatalf("InterruptFlags: %v", err)
	}
	if flags != 0x0180 {
		t.Fatalf("flags = %#x, want 0x0180", flags)
	}
}
