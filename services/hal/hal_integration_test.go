// services/hal/hal_integration_test.go
package hal

import (
	"context"
	"testing"
	"time"

	"seesaw-go/bus"

	"tinygo.org/x/drivers"
)

// fakeFactory satisfies I2CBusFactory.
type fakeFactory struct {
	i2c drivers.I2C
}

func (f fakeFactory) ByID(id string) (BusPort, bool) {
	if id == "i2c0" {
		return BusPort{Bus: f.i2c}, true
	}
	return BusPort{}, false
}

func TestHAL_EndToEnd_Seesaw(t *testing.T) {
	b := bus.NewBus(128)
	halConn := b.NewConnection("hal")
	i2c := newFakeSeesaw()
	i2c.adc[0] = 512 // pin 2

	ctx, cancel := context.WithCancel(context.Background())
	go Run(ctx, halConn, fakeFactory{i2c: i2c})

	stateSub := halConn.Subscribe(bus.Topic{"hal", "state"})
	capSub := halConn.Subscribe(bus.Topic{"hal", "capability", "#"})
	defer halConn.Unsubscribe(stateSub)
	defer halConn.Unsubscribe(capSub)
	// Cancel *after* all Unsubscribe defers are registered so it runs first at teardown.
	defer cancel()

	// 1) Wait for 'awaiting_config'
	deadline := time.Now().Add(1 * time.Second)
	ready := false
	for time.Now().Before(deadline) && !ready {
		select {
		case m := <-stateSub.Channel():
			if s, _ := m.Payload.(map[string]any); s != nil &&
				s["level"] == "idle" && s["status"] == "awaiting_config" {
				ready = true
			}
		case <-time.After(20 * time.Millisecond):
		}
	}
	if !ready {
		t.Fatal("HAL did not report awaiting_config")
	}

	// 2) Publish config
	cfg := map[string]any{
		"version": 1,
		"buses": []map[string]any{
			{"id": "i2c0", "type": "i2c"},
		},
		"devices": []map[string]any{
			{
				"id":      "seesaw-0",
				"type":    "seesaw",
				"bus_ref": map[string]any{"id": "i2c0", "type": "i2c"},
				"params":  map[string]any{"addr": 0x49, "adc_pins": []int{2}, "poll_ms": 60000},
			},
		},
	}
	halConn.Publish(halConn.NewMessage(bus.Topic{"config", "hal"}, cfg, false))

	// 3) Discover capability IDs from retained info documents.
	// The reset settle inside the identity probe delays configuration.
	var adcID, gpioID, serialID = -1, -1, -1
	deadline = time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) && (adcID < 0 || gpioID < 0 || serialID < 0) {
		select {
		case m := <-capSub.Channel():
			if len(m.Topic) >= 5 && m.Topic[4] == "info" {
				kind, _ := m.Topic[2].(string)
				if id, ok := asInt(m.Topic[3]); ok {
					switch kind {
					case "adc":
						adcID = id
					case "gpio":
						gpioID = id
					case "serial":
						serialID = id
					}
				}
			}
		case <-time.After(20 * time.Millisecond):
		}
	}
	if adcID < 0 || gpioID < 0 || serialID < 0 {
		t.Fatalf("did not receive capability info in time (adc=%d gpio=%d serial=%d)", adcID, gpioID, serialID)
	}

	// 4) Immediate measurement (request-reply), then expect a value.
	req := halConn.NewMessage(bus.Topic{"hal", "capability", "adc", adcID, "control", "read_now"}, nil, false)
	rctx, rcancel := context.WithTimeout(context.Background(), 400*time.Millisecond)
	_, err := halConn.RequestWait(rctx, req)
	rcancel()
	if err != nil {
		t.Fatalf("read_now request failed: %v", err)
	}

	gotValue := false
	deadline = time.Now().Add(1 * time.Second)
	for time.Now().Before(deadline) && !gotValue {
		select {
		case m := <-capSub.Channel():
			if len(m.Topic) >= 5 && m.Topic[2] == "adc" && m.Topic[4] == "value" {
				if mm, _ := m.Payload.(map[string]any); mm != nil {
					if chans, ok := mm["channels"].([]map[string]any); ok && len(chans) == 1 {
						if gi(chans[0], "value") == 512 {
							gotValue = true
						}
					}
				}
			}
		case <-time.After(20 * time.Millisecond):
		}
	}
	if !gotValue {
		t.Fatal("did not receive adc value after read_now")
	}

	// 5) GPIO control lands on the device.
	gpioReq := halConn.NewMessage(
		bus.Topic{"hal", "capability", "gpio", gpioID, "control", "write"},
		map[string]any{"pins": 0x08, "value": true}, false)
	rctx, rcancel = context.WithTimeout(context.Background(), 400*time.Millisecond)
	rep, err := halConn.RequestWait(rctx, gpioReq)
	rcancel()
	if err != nil {
		t.Fatalf("gpio write request failed: %v", err)
	}
	if m, _ := rep.Payload.(map[string]any); m == nil || m["ok"] != true {
		t.Fatalf("gpio write reply: %#v", rep.Payload)
	}
	if i2c.outputLevels() != 0x08 {
		t.Fatalf("device outputs = %#x, want 0x08", i2c.outputLevels())
	}

	// 6) Control errors come back as coded replies, not dropped messages.
	long := make([]byte, 40)
	for i := range long {
		long[i] = 'x'
	}
	serReq := halConn.NewMessage(
		bus.Topic{"hal", "capability", "serial", serialID, "control", "write"},
		map[string]any{"data": string(long)}, false)
	rctx, rcancel = context.WithTimeout(context.Background(), 400*time.Millisecond)
	rep, err = halConn.RequestWait(rctx, serReq)
	rcancel()
	if err != nil {
		t.Fatalf("serial write request failed: %v", err)
	}
	if m, _ := rep.Payload.(map[string]any); m == nil || m["ok"] != false || m["code"] != "invalid_params" {
		t.Fatalf("serial write reply: %#v", rep.Payload)
	}
}
