//go:build rp2040

// seesaw-hal boots the full service stack on a Pico: message bus, embedded
// config, heartbeat, the HAL fronting a co-processor breakout on i2c0, and
// the serial link service.
package main

import (
	"context"
	"io"
	"machine"
	"runtime"
	"sync"
	"time"

	"seesaw-go/bus"
	"seesaw-go/drivers/seesaw"
	"seesaw-go/services/config"
	"seesaw-go/services/hal"
	"seesaw-go/services/heartbeat"
	"seesaw-go/services/link"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
)

type i2cFactory struct {
	buses map[string]hal.BusPort
}

func (f *i2cFactory) ByID(id string) (hal.BusPort, bool) {
	b, ok := f.buses[id]
	return b, ok
}

// uartRWC adapts uartx to io.ReadWriteCloser for the link service.
type uartRWC struct {
	u   *uartx.UART
	ctx context.Context
}

func (u *uartRWC) Read(p []byte) (int, error)  { return u.u.RecvSomeContext(u.ctx, p) }
func (u *uartRWC) Write(p []byte) (int, error) { return u.u.Write(p) }
func (u *uartRWC) Close() error                { return nil }

func printTopic(prefix string, t bus.Topic) {
	print(prefix)
	print(" ")
	for i, tok := range t {
		if i > 0 {
			print("/")
		}
		switch v := tok.(type) {
		case string:
			print(v)
		case int:
			print(v)
		default:
			print("?")
		}
	}
	println()
}

func main() {
	println("[main] boot …")
	time.Sleep(3 * time.Second)
	ctx := context.WithValue(context.Background(), config.CtxDeviceKey, "pico")

	// i2c0 @ 400 kHz on board-default pins. The HAL's device handle and the
	// link's sercom transport both sit on this bus, so they share one lock.
	i2c := machine.I2C0
	_ = i2c.Configure(machine.I2CConfig{
		Frequency: 400 * machine.KHz,
		SDA:       machine.I2C0_SDA_PIN,
		SCL:       machine.I2C0_SCL_PIN,
	})
	i2cLock := &sync.Mutex{}
	factory := &i2cFactory{buses: map[string]hal.BusPort{
		"i2c0": {Bus: i2c, Lock: i2cLock},
	}}

	// Link transports: the co-processor serial port, or a local UART.
	link.DeviceOpen = func(ctx context.Context) (*seesaw.Device, error) {
		dev := seesaw.New(i2c, seesaw.Config{Lock: i2cLock})
		if err := dev.Begin(seesaw.AddressDefault); err != nil {
			return nil, err
		}
		return dev, nil
	}
	link.UARTDial = func(ctx context.Context, u link.UARTConfig) (io.ReadWriteCloser, error) {
		hw := uartx.UART0
		_ = hw.Configure(uartx.UARTConfig{
			BaudRate: uint32(u.Baud),
			TX:       machine.Pin(u.TxPin),
			RX:       machine.Pin(u.RxPin),
		})
		return &uartRWC{u: hw, ctx: ctx}, nil
	}

	println("[main] bootstrapping bus …")
	b := bus.NewBus(32)
	halConn := b.NewConnection("hal")
	linkConn := b.NewConnection("link")
	hbConn := b.NewConnection("heartbeat")
	cfgConn := b.NewConnection("config")
	uiConn := b.NewConnection("ui")

	mon := uiConn.Subscribe(bus.T("hal", "#"))
	go func() {
		for m := range mon.Channel() {
			printTopic("[monitor] <-", m.Topic)
		}
	}()

	println("[main] starting services …")
	go hal.Run(ctx, halConn, factory)
	go link.Start(ctx, linkConn)
	_ = (&heartbeat.Service{}).Start(ctx, hbConn)

	// Config last: services pick up their retained sections as they subscribe.
	config.NewConfigService().Start(ctx, cfgConn)

	// Let the identity probe and first samples happen, then poke the ADC.
	time.Sleep(2 * time.Second)
	readNow := bus.T("hal", "capability", "adc", 0, "control", "read_now")
	if _, err := uiConn.RequestWait(ctx, uiConn.NewMessage(readNow, nil, false)); err != nil {
		println("[main] read_now error:", err.Error())
	}

	for {
		printMem()
		time.Sleep(5 * time.Second)
	}
}

// printMem prints a compact snapshot of TinyGo runtime memory stats.
// Uses builtin println to avoid fmt overhead/allocations.
func printMem() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	println(
		"[mem]",
		"alloc:", uint32(ms.Alloc),
		"heapInuse:", uint32(ms.HeapInuse),
		"heapSys:", uint32(ms.HeapSys),
		"mallocs:", uint32(ms.Mallocs),
		"frees:", uint32(ms.Frees),
	)
}
