// services/hal/adaptor_seesaw.go
package hal

import (
	"context"
	"errors"
	"time"

	"seesaw-go/drivers/seesaw"
	"seesaw-go/errcode"
)

// seesawAdaptor exposes a co-processor breakout: its ADC pins as a periodic
// producer, and the remaining modules (GPIO, PWM, serial, EEPROM, status)
// through the Control pass-through.
type seesawAdaptor struct {
	id      string
	dev     *seesaw.Device
	adcPins []int
}

// NewSeesawAdaptor builds an adaptor for the device at addr on the given
// port. The port's lock (shared with any other user of the physical bus) is
// what keeps concurrent Collect and Control calls off each other's
// transactions.
func NewSeesawAdaptor(id string, port BusPort, addr uint16, adcPins []int) Adaptor {
	dev := seesaw.New(port.Bus, seesaw.Config{Address: addr, Lock: port.Lock})
	return &seesawAdaptor{id: id, dev: dev, adcPins: adcPins}
}

func (a *seesawAdaptor) ID() string { return a.id }

// Begin runs the reset-and-identity probe. The service calls it once at
// configuration time, before the adaptor is handed to a worker.
func (a *seesawAdaptor) Begin() error {
	return a.dev.Begin(0)
}

func (a *seesawAdaptor) Capabilities() []CapInfo {
	caps := []CapInfo{
		{Kind: "gpio", Info: map[string]any{"pins": 32, "schema_version": 1, "driver": "seesaw"}},
		{Kind: "pwm", Info: map[string]any{"resolution_bits": 16, "schema_version": 1, "driver": "seesaw"}},
		{Kind: "serial", Info: map[string]any{"fifo_bytes": 32, "schema_version": 1, "driver": "seesaw"}},
		{Kind: "eeprom", Info: map[string]any{"bytes": 64, "schema_version": 1, "driver": "seesaw"}},
		{Kind: "status", Info: map[string]any{"schema_version": 1, "driver": "seesaw"}},
	}
	if len(a.adcPins) > 0 {
		caps = append(caps, CapInfo{Kind: "adc", Info: map[string]any{
			"pins": a.adcPins, "range": 1023, "schema_version": 1, "driver": "seesaw",
		}})
	}
	return caps
}

// Trigger is a no-op: the firmware converts on demand during the read, so
// there is nothing to arm ahead of Collect.
func (a *seesawAdaptor) Trigger(ctx context.Context) (time.Duration, error) {
	return 0, nil
}

func (a *seesawAdaptor) Collect(ctx context.Context) (Sample, error) {
	if len(a.adcPins) == 0 {
		return nil, nil
	}
	ts := time.Now().UnixMilli()
	values := make([]map[string]any, 0, len(a.adcPins))
	for _, pin := range a.adcPins {
		v, err := a.dev.AnalogRead(uint8(pin))
		if err != nil {
			return nil, err
		}
		values = append(values, map[string]any{"pin": pin, "value": int(v)})
	}
	return Sample{
		{Kind: "adc", Payload: map[string]any{"channels": values, "ts_ms": ts}, TsMs: ts},
	}, nil
}

func (a *seesawAdaptor) Control(kind, method string, payload any) (any, error) {
	switch kind {
	case "gpio":
		return a.controlGPIO(method, payload)
	case "pwm":
		return a.controlPWM(method, payload)
	case "serial":
		return a.controlSerial(method, payload)
	case "eeprom":
		return a.controlEEPROM(method, payload)
	case "status":
		return a.controlStatus(method)
	default:
		return nil, ErrUnsupported
	}
}

func (a *seesawAdaptor) controlGPIO(method string, payload any) (any, error) {
	var p struct {
		Pins    uint32 `json:"pins"`
		Mode    string `json:"mode,omitempty"`
		Value   bool   `json:"value,omitempty"`
		Enabled bool   `json:"enabled,omitempty"`
	}
	if err := decodeJSON(payload, &p); err != nil {
		return nil, errcode.InvalidPayload
	}
	switch method {
	case "mode":
		mode, ok := parsePinMode(p.Mode)
		if !ok {
			return nil, errcode.InvalidParams
		}
		return nil, mapDriverErr(a.dev.PinModeBulk(p.Pins, mode))
	case "write":
		return nil, mapDriverErr(a.dev.DigitalWriteBulk(p.Pins, p.Value))
	case "toggle":
		return nil, mapDriverErr(a.dev.DigitalToggleBulk(p.Pins))
	case "read":
		v, err := a.dev.DigitalReadBulk(p.Pins)
		if err != nil {
			return nil, mapDriverErr(err)
		}
		return map[string]any{"pins": v}, nil
	case "interrupts":
		return nil, mapDriverErr(a.dev.SetGPIOInterrupts(p.Pins, p.Enabled))
	case "int_flags":
		v, err := a.dev.InterruptFlags()
		if err != nil {
			return nil, mapDriverErr(err)
		}
		return map[string]any{"flags": v}, nil
	default:
		return nil, ErrUnsupported
	}
}

func (a *seesawAdaptor) controlPWM(method string, payload any) (any, error) {
	var p struct {
		Pin   int `json:"pin"`
		Value int `json:"value,omitempty"`
		Width int `json:"width,omitempty"`
		Freq  int `json:"freq,omitempty"`
	}
	if err := decodeJSON(payload, &p); err != nil {
		return nil, errcode.InvalidPayload
	}
	switch method {
	case "write":
		if p.Width == 0 {
			p.Width = 8
		}
		return nil, mapDriverErr(a.dev.AnalogWrite(uint8(p.Pin), uint16(p.Value), uint8(p.Width)))
	case "freq":
		return nil, mapDriverErr(a.dev.SetPWMFreq(uint8(p.Pin), uint16(p.Freq)))
	default:
		return nil, ErrUnsupported
	}
}

func (a *seesawAdaptor) controlSerial(method string, payload any) (any, error) {
	var p struct {
		Data    string `json:"data,omitempty"`
		Baud    int    `json:"baud,omitempty"`
		Sercom  int    `json:"sercom,omitempty"`
		Enabled bool   `json:"enabled,omitempty"`
	}
	if err := decodeJSON(payload, &p); err != nil {
		return nil, errcode.InvalidPayload
	}
	switch method {
	case "write":
		return nil, mapDriverErr(a.dev.WriteSercomString(p.Data))
	case "read":
		b, err := a.dev.ReadSercomData(uint8(p.Sercom))
		if err != nil {
			return nil, mapDriverErr(err)
		}
		return map[string]any{"data": b}, nil
	case "baud":
		return nil, mapDriverErr(a.dev.UARTSetBaud(uint32(p.Baud)))
	case "irq":
		if p.Enabled {
			return nil, mapDriverErr(a.dev.EnableSercomDataRdyInterrupt(uint8(p.Sercom)))
		}
		return nil, mapDriverErr(a.dev.DisableSercomDataRdyInterrupt(uint8(p.Sercom)))
	default:
		return nil, ErrUnsupported
	}
}

func (a *seesawAdaptor) controlEEPROM(method string, payload any) (any, error) {
	var p struct {
		Addr  int `json:"addr"`
		Value int `json:"value,omitempty"`
	}
	if err := decodeJSON(payload, &p); err != nil {
		return nil, errcode.InvalidPayload
	}
	switch method {
	case "read8":
		b, err := a.dev.EEPROMRead8(byte(p.Addr))
		if err != nil {
			return nil, mapDriverErr(err)
		}
		return map[string]any{"value": b}, nil
	case "write8":
		return nil, mapDriverErr(a.dev.EEPROMWrite8(byte(p.Addr), byte(p.Value)))
	default:
		return nil, ErrUnsupported
	}
}

func (a *seesawAdaptor) controlStatus(method string) (any, error) {
	switch method {
	case "version":
		v, err := a.dev.Version()
		if err != nil {
			return nil, mapDriverErr(err)
		}
		return map[string]any{"version": v}, nil
	case "options":
		v, err := a.dev.Options()
		if err != nil {
			return nil, mapDriverErr(err)
		}
		return map[string]any{"options": v}, nil
	case "reset":
		return nil, mapDriverErr(a.dev.SWReset())
	default:
		return nil, ErrUnsupported
	}
}

func parsePinMode(s string) (seesaw.PinMode, bool) {
	switch s {
	case "input":
		return seesaw.PinInput, true
	case "output":
		return seesaw.PinOutput, true
	case "input_pullup":
		return seesaw.PinInputPullup, true
	default:
		return 0, false
	}
}

// mapDriverErr converts driver sentinels into bus-facing codes, keeping the
// original as the cause.
func mapDriverErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, seesaw.ErrWrongDevice):
		return &errcode.E{C: errcode.WrongDevice, Err: err}
	case errors.Is(err, seesaw.ErrInvalidMode), errors.Is(err, seesaw.ErrDataTooLong):
		return &errcode.E{C: errcode.InvalidParams, Msg: err.Error(), Err: err}
	default:
		return err
	}
}
