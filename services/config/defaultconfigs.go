package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Populate embeddedConfigs at build time (e.g. via code generation) or
// manually during development.
// Key: device ID (same value placed in ctx under CtxDeviceKey)
// Val: raw JSON bytes for that device
// -----------------------------------------------------------------------------

const cfgPico = `{
  "hal": {
    "version": 1,
    "buses": [
      {"id": "i2c0", "type": "i2c", "params": {"freq_hz": 400000}}
    ],
    "devices": [
      {
        "id": "seesaw-0",
        "type": "seesaw",
        "bus_ref": {"id": "i2c0", "type": "i2c"},
        "params": {"addr": 73, "adc_pins": [2, 3], "poll_ms": 2000}
      }
    ]
  },
  "link": {
    "transport": {
      "type": "uart",
      "uart": {"baud": 115200, "rx_pin": 1, "tx_pin": 0}
    }
  },
  "heartbeat": {
    "interval": 2
  }
}`

var embeddedConfigs = map[string][]byte{
	"pico": []byte(cfgPico),
}
