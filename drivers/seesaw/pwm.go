package seesaw

import "seesaw-go/x/mathx"

// AnalogWrite sets the PWM duty cycle on a breakout pin. The device's timers
// are 16-bit; when width is not 16 the value is treated as 8-bit (0–255) and
// rescaled to full range. Pins without a PWM channel are silently ignored.
func (d *Device) AnalogWrite(pin uint8, value uint16, width uint8) error {
	ch := pwmChannel(pin)
	if ch < 0 {
		return nil
	}
	if width != 16 {
		value = mathx.MapU16(value, 0, 255, 0, 65535)
	}
	cmd := [3]byte{byte(ch)}
	putBE16(cmd[1:], value)
	return d.Write(ModTimer, TimerPWM, cmd[:])
}

// SetPWMFreq sets the PWM frequency of a breakout pin's channel. Channels
// (0,1) and (2,3) share a timer on the device, so setting one channel's
// frequency changes its pair as well. Pins without a PWM channel are
// silently ignored.
func (d *Device) SetPWMFreq(pin uint8, freq uint16) error {
	ch := pwmChannel(pin)
	if ch < 0 {
		return nil
	}
	cmd := [3]byte{byte(ch)}
	putBE16(cmd[1:], freq)
	return d.Write(ModTimer, TimerFreq, cmd[:])
}
