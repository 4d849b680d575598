package seesaw

import "time"

// AnalogRead samples the ADC channel behind a breakout pin and returns a
// value in 0–1023. Pins with no ADC channel read as 0 without touching the
// bus — a firmware quirk kept for compatibility, not an error.
func (d *Device) AnalogRead(pin uint8) (uint16, error) {
	ch := adcChannel(pin)
	if ch < 0 {
		return 0, nil
	}
	var buf [2]byte
	err := d.ReadWithDelay(ModADC, ADCChannelOffset+byte(ch), buf[:], d.cfg.ConversionDelay)
	if err != nil {
		return 0, err
	}
	time.Sleep(d.cfg.ReadSettle)
	return be16(buf[:]), nil
}

// AnalogReadBulk samples len(buf) consecutive channels starting at channel 0.
// Channel indexing for more than one channel is not validated against the pin
// lookup; treat multi-channel reads as experimental.
func (d *Device) AnalogReadBulk(buf []uint16) error {
	raw := make([]byte, 2*len(buf))
	if err := d.Read(ModADC, ADCChannelOffset, raw); err != nil {
		return err
	}
	for i := range buf {
		buf[i] = be16(raw[2*i:])
	}
	return nil
}
