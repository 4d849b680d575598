package seesaw

import (
	"bytes"
	"testing"
)

func TestRead_ChunksAtTransportLimit(t *testing.T) {
	sim := newSimSeesaw()
	want := make([]byte, 40)
	for i := range want {
		want[i] = byte(i + 1)
	}
	sim.regs[key(ModEEPROM, 0x00)] = want
	d := newTestDevice(sim)

	got := make([]byte, 40)
	if err := d.Read(ModEEPROM, 0x00, got); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("chunked read mismatch:\n got %v\nwant %v", got, want)
	}
	// 40 bytes over a 32-byte transport: exactly two read transactions.
	if sim.reads != 2 {
		t.Fatalf("read transactions = %d, want 2", sim.reads)
	}
	// Each chunk was preceded by an address-only arm.
	var arms int
	for _, w := range sim.writes {
		if len(w) == 2 && w[0] == ModEEPROM && w[1] == 0x00 {
			arms++
		}
	}
	if arms != 2 {
		t.Fatalf("arm writes = %d, want 2", arms)
	}
}

func TestRead_SingleChunkExactLimit(t *testing.T) {
	sim := newSimSeesaw()
	val := make([]byte, 32)
	for i := range val {
		val[i] = byte(0xA0 + i)
	}
	sim.regs[key(ModEEPROM, 0x10)] = val
	d := newTestDevice(sim)

	got := make([]byte, 32)
	if err := d.Read(ModEEPROM, 0x10, got); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if sim.reads != 1 {
		t.Fatalf("read transactions = %d, want 1", sim.reads)
	}
	if !bytes.Equal(got, val) {
		t.Fatalf("read mismatch: got %v want %v", got, val)
	}
}

func TestWriteEmpty_AddressOnlyFrame(t *testing.T) {
	sim := newSimSeesaw()
	d := newTestDevice(sim)

	if err := d.WriteEmpty(ModStatus, StatusSwrst); err != nil {
		t.Fatalf("WriteEmpty: %v", err)
	}
	frame := sim.lastWrite(t)
	if len(frame) != 2 || frame[0] != ModStatus || frame[1] != StatusSwrst {
		t.Fatalf("unexpected frame: %#v", frame)
	}
}

func TestWrite_FramesAddressThenPayload(t *testing.T) {
	sim := newSimSeesaw()
	d := newTestDevice(sim)

	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	if err := d.Write(ModGPIO, GPIOIntenSet, payload); err != nil {
		t.Fatalf("Write: %v", err)
	}
	frame := sim.lastWrite(t)
	want := append([]byte{ModGPIO, GPIOIntenSet}, payload...)
	if !bytes.Equal(frame, want) {
		t.Fatalf("frame = %v, want %v", frame, want)
	}
}

func TestWrite_LargePayloadSingleTransaction(t *testing.T) {
	sim := newSimSeesaw()
	d := newTestDevice(sim)

	payload := make([]byte, 48) // above the fixed frame buffer
	for i := range payload {
		payload[i] = byte(i)
	}
	if err := d.Write(ModEEPROM, 0x00, payload); err != nil {
		t.Fatalf("Write: %v", err)
	}
	frame := sim.lastWrite(t)
	if len(frame) != 2+48 {
		t.Fatalf("frame length = %d, want %d", len(frame), 2+48)
	}
	if !bytes.Equal(frame[2:], payload) {
		t.Fatal("payload mismatch in large write")
	}
}

func TestRead8Write8(t *testing.T) {
	sim := newSimSeesaw()
	sim.regs[key(ModSercom0, SercomStatus)] = []byte{0x5A}
	d := newTestDevice(sim)

	v, err := d.Read8(ModSercom0, SercomStatus)
	if err != nil {
		t.Fatalf("Read8: %v", err)
	}
	if v != 0x5A {
		t.Fatalf("Read8 = %#x, want 0x5A", v)
	}

	if err := d.Write8(ModSercom0, SercomInten, 0x01); err != nil {
		t.Fatalf("Write8: %v", err)
	}
	frame := sim.lastWrite(t)
	if len(frame) != 3 || frame[2] != 0x01 {
		t.Fatalf("unexpected Write8 frame: %#v", frame)
	}
}
