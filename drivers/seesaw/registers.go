package seesaw

// Module-base and function bytes making up the device's two-byte register
// address space. Constants are exported so the raw register escape hatch
// (Read/Write on Device) can reach modules this driver does not wrap.

const (
	// Default 7-bit I2C address of the SAMD09 breakout firmware.
	AddressDefault = 0x49

	// HwIDCode is the value the hardware-ID register must report.
	HwIDCode = 0x55
)

// Module base addresses (the first byte of a register address).
const (
	ModStatus    = 0x00
	ModGPIO      = 0x01
	ModSercom0   = 0x02 // sercoms 1..5 follow at +1 each
	ModTimer     = 0x08
	ModADC       = 0x09
	ModDAC       = 0x0A
	ModInterrupt = 0x0B
	ModDAP       = 0x0C
	ModEEPROM    = 0x0D
	ModNeopixel  = 0x0E
)

// Status module functions.
const (
	StatusHwID    = 0x01
	StatusVersion = 0x02
	StatusOptions = 0x03
	StatusSwrst   = 0x7F
)

// GPIO module functions. Direction/pull/output registers come in set/clear
// pairs; the device ORs (set) or AND-NOTs (clear) the 4-byte mask payload.
const (
	GPIODirSetBulk = 0x02
	GPIODirClrBulk = 0x03
	GPIOBulk       = 0x04
	GPIOBulkSet    = 0x05
	GPIOBulkClr    = 0x06
	GPIOBulkToggle = 0x07
	GPIOIntenSet   = 0x08
	GPIOIntenClr   = 0x09
	GPIOIntFlag    = 0x0A
	GPIOPullEnSet  = 0x0B
	GPIOPullEnClr  = 0x0C
)

// ADC module functions. Channel value registers start at the offset; channel
// n lives at ADCChannelOffset+n.
const (
	ADCStatus        = 0x00
	ADCInten         = 0x02
	ADCIntenClr      = 0x03
	ADCWinMode       = 0x04
	ADCWinThresh     = 0x05
	ADCChannelOffset = 0x07
)

// Timer (PWM) module functions.
const (
	TimerStatus = 0x00
	TimerPWM    = 0x01
	TimerFreq   = 0x02
)

// Sercom module functions, relative to ModSercom0+index.
const (
	SercomStatus   = 0x00
	SercomInten    = 0x02
	SercomIntenClr = 0x03
	SercomBaud     = 0x04
	SercomData     = 0x05
)

// Sercom INTEN bits. Only DATA_RDY is modelled; the cache keeps the rest of
// the byte intact anyway.
const sercomIntenDataRdy = 0x01

// EEPROM module: the function byte is the byte offset into the EEPROM. The
// device's own I2C address is persisted at a fixed offset.
const EEPROMI2CAddr = 0x3F

// Logical ADC channel for a breakout pin, -1 when the pin has no channel.
func adcChannel(pin uint8) int8 {
	switch pin {
	case 2:
		return 0
	case 3:
		return 1
	case 4:
		return 2
	case 5:
		return 3
	default:
		return -1
	}
}

// Logical PWM channel for a breakout pin, -1 when the pin has no channel.
// Channels (0,1) and (2,3) share a hardware timer on the device; setting the
// frequency of one changes its pair.
func pwmChannel(pin uint8) int8 {
	switch pin {
	case 4:
		return 0
	case 5:
		return 1
	case 6:
		return 2
	case 7:
		return 3
	default:
		return -1
	}
}
