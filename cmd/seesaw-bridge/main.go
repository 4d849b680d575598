//go:build rp2040

// seesaw-bridge forwards bytes between the Pico's uart0 and the serial port
// of a co-processor breakout on i2c0, so a host plugged into the Pico can
// talk to whatever is wired to the breakout's TX/RX pads.
package main

import (
	"context"
	"machine"
	"time"

	"seesaw-go/drivers/seesaw"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
)

const (
	hostBaud   = 115200
	remoteBaud = 9600

	// Data-ready bit in the sercom status register.
	sercomStatusDataRdy = 0x01
)

func main() {
	println("[bridge] boot …")
	time.Sleep(1500 * time.Millisecond)

	// I²C to the breakout, board-default pins at 400 kHz.
	i2c := machine.I2C0
	if err := i2c.Configure(machine.I2CConfig{
		Frequency: 400 * machine.KHz,
		SDA:       machine.I2C0_SDA_PIN,
		SCL:       machine.I2C0_SCL_PIN,
	}); err != nil {
		println("[bridge] FAIL: i2c configure:", err.Error())
		return
	}

	dev := seesaw.New(i2c, seesaw.Config{})
	for {
		err := dev.Begin(seesaw.AddressDefault)
		if err == nil {
			break
		}
		println("[bridge] probe failed, retrying:", err.Error())
		time.Sleep(time.Second)
	}
	ver, _ := dev.Version()
	println("[bridge] device up, version:", ver)

	if err := dev.UARTSetBaud(remoteBaud); err != nil {
		println("[bridge] FAIL: set remote baud:", err.Error())
		return
	}

	// Host side.
	host := uartx.UART0
	_ = host.Configure(uartx.UARTConfig{
		BaudRate: hostBaud,
		TX:       machine.UART0_TX_PIN,
		RX:       machine.UART0_RX_PIN,
	})

	// The device handle serialises its own transactions, so both pump
	// directions can share it directly.
	go hostToDevice(dev, host)
	deviceToHost(dev, host)
}

// hostToDevice drains uart0 and pushes the bytes to the remote serial port in
// FIFO-sized chunks.
func hostToDevice(dev *seesaw.Device, host *uartx.UART) {
	ctx := context.Background()
	buf := make([]byte, 32)
	for {
		n, err := host.RecvSomeContext(ctx, buf)
		if err != nil {
			println("[bridge] host rx:", err.Error())
			continue
		}
		for off := 0; off < n; {
			end := off + 32
			if end > n {
				end = n
			}
			if err := dev.WriteSercomString(string(buf[off:end])); err != nil {
				println("[bridge] device tx:", err.Error())
				break
			}
			off = end
		}
	}
}

// deviceToHost polls the remote status register and forwards pending bytes.
func deviceToHost(dev *seesaw.Device, host *uartx.UART) {
	for {
		st, err := dev.Read8(seesaw.ModSercom0, seesaw.SercomStatus)
		if err != nil {
			println("[bridge] device status:", err.Error())
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if st&sercomStatusDataRdy == 0 {
			time.Sleep(2 * time.Millisecond)
			continue
		}
		b, err := dev.ReadSercomData(0)
		if err != nil {
			println("[bridge] device rx:", err.Error())
			continue
		}
		if _, err := host.Write([]byte{b}); err != nil {
			println("[bridge] host tx:", err.Error())
		}
	}
}
