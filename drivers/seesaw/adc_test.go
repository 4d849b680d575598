package seesaw

import "testing"

func TestAnalogRead_MappedPin(t *testing.T) {
	sim := newSimSeesaw()
	// Pin 3 is channel 1; value register at CHANNEL_OFFSET+1.
	sim.regs[key(ModADC, ADCChannelOffset+1)] = []byte{0x01, 0x23}
	d := newTestDevice(sim)

	v, err := d.AnalogRead(3)
	if err != nil {
		t.Fatalf("AnalogRead: %v", err)
	}
	if v != 0x0123 {
		t.Fatalf("AnalogRead = %#x, want 0x0123", v)
	}
}

func TestAnalogRead_UnmappedPinIsSilentNoOp(t *testing.T) {
	sim := newSimSeesaw()
	d := newTestDevice(sim)

	v, err := d.AnalogRead(9)
	if err != nil {
		t.Fatalf("AnalogRead: %v", err)
	}
	if v != 0 {
		t.Fatalf("AnalogRead = %d, want 0", v)
	}
	if sim.txs != 0 {
		t.Fatalf("unmapped pin issued %d transactions, want 0", sim.txs)
	}
}

func TestAnalogRead_ChannelLookup(t *testing.T) {
	for _, tc := range []struct {
		pin uint8
		ch  byte
	}{
		{2, 0}, {3, 1}, {4, 2}, {5, 3},
	} {
		sim := newSimSeesaw()
		sim.regs[key(ModADC, ADCChannelOffset+tc.ch)] = []byte{0x03, 0xFF}
		d := newTestDevice(sim)

		v, err := d.AnalogRead(tc.pin)
		if err != nil {
			t.Fatalf("AnalogRead(%d): %v", tc.pin, err)
		}
		if v != 0x03FF {
			t.Fatalf("pin %d read %#x, want full scale from channel %d", tc.pin, v, tc.ch)
		}
	}
}

func TestAnalogReadBulk_ReassemblesFromRawBuffer(t *testing.T) {
	sim := newSimSeesaw()
	sim.regs[key(ModADC, ADCChannelOffset)] = []byte{0x01, 0x02, 0x03, 0x04, 0x00, 0xFF}
	d := newTestDevice(sim)

	buf := make([]uint16, 3)
	if err := d.AnalogReadBulk(buf); err != nil {
		t.Fatalf("AnalogReadBulk: %v", err)
	}
	want := []uint16{0x0102, 0x0304, 0x00FF}
	for i := range want {
		if buf[i] != want[i] {
			t.Fatalf("buf[%d] = %#x, want %#x", i, buf[i], want[i])
		}
	}
}
