// link/link.go
package link

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"seesaw-go/bus"
	"seesaw-go/drivers/seesaw"
)

// -----------------------------------------------------------------------------
// Public entry point
// -----------------------------------------------------------------------------

// Start starts the link service. It blocks until ctx is cancelled.
// It listens for JSON config on topic {"config","link"} and (re)configures
// the serial link; while a link is up, bytes received from the remote are
// published on {"link","rx"} and payloads published to {"link","tx"} are
// written out.
func Start(ctx context.Context, conn *bus.Connection) {
	s := &Service{
		conn:       conn,
		stateTopic: bus.Topic{"link", "state"},
	}
	s.run(ctx)
}

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// Config is the JSON-encoded configuration expected on "config/link".
type Config struct {
	Transport TransportConfig `json:"transport"`
}

type TransportConfig struct {
	// "sercom" (a co-processor serial port over I²C) or "uart", or other
	// names registered via RegisterTransport.
	Type   string        `json:"type"`
	Sercom *SercomConfig `json:"sercom,omitempty"`
	UART   *UARTConfig   `json:"uart,omitempty"`
}

// SercomConfig selects the co-processor serial port.
type SercomConfig struct {
	Baud   uint32 `json:"baud"`
	PollMS int    `json:"poll_ms,omitempty"` // receive poll interval
}

// UARTConfig carries enough information for an injected dialler to open a
// local UART. Pin mapping and UART instance selection happen in UARTDial.
type UARTConfig struct {
	Baud  int `json:"baud"`
	RxPin int `json:"rx_pin"`
	TxPin int `json:"tx_pin"`
}

// -----------------------------------------------------------------------------
// Service
// -----------------------------------------------------------------------------

type Service struct {
	conn       *bus.Connection
	stateTopic bus.Topic

	mu     sync.Mutex
	curRun context.CancelFunc
}

// run waits for config and supervises a single link instance.
func (s *Service) run(ctx context.Context) {
	cfgSub := s.conn.Subscribe(bus.Topic{"config", "link"})
	defer s.conn.Unsubscribe(cfgSub)

	s.publishState("idle", "awaiting_config", nil)

	for {
		select {
		case <-ctx.Done():
			s.stopCurrent()
			return
		case msg, ok := <-cfgSub.Channel():
			if !ok {
				s.publishState("error", "config_subscription_closed", nil)
				return
			}
			cfg, err := decodeConfig(msg.Payload)
			if err != nil {
				s.publishState("error", "config_decode_failed", err)
				continue
			}
			s.reconfigure(ctx, cfg)
		}
	}
}

func (s *Service) stopCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.curRun != nil {
		s.curRun()
		s.curRun = nil
	}
}

func (s *Service) reconfigure(parent context.Context, cfg Config) {
	s.mu.Lock()
	if s.curRun != nil {
		s.curRun()
		s.curRun = nil
	}
	ctx, cancel := context.WithCancel(parent)
	s.curRun = cancel
	s.mu.Unlock()

	go s.runLink(ctx, cfg)
}

// -----------------------------------------------------------------------------
// Link supervision and I/O
// -----------------------------------------------------------------------------

func (s *Service) runLink(ctx context.Context, cfg Config) {
	tr, err := newTransport(cfg.Transport)
	if err != nil {
		s.publishState("error", "transport_init_failed", err)
		return
	}

	backoff := backoffSeq(250*time.Millisecond, 5*time.Second)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		rwc, err := tr.Open(ctx)
		if err != nil {
			delay := backoff()
			s.publishState("degraded", "dial_failed_retrying", fmt.Errorf("%v (retry in %s)", err, delay))
			if !sleep(ctx, delay) {
				return
			}
			continue
		}

		s.publishState("up", "link_established", nil)
		if err := s.handleLink(ctx, rwc); err != nil {
			_ = rwc.Close()
			delay := backoff()
			s.publishState("degraded", "link_lost_retrying", fmt.Errorf("%v (retry in %s)", err, delay))
			if !sleep(ctx, delay) {
				return
			}
			continue
		}
		// Clean close: restart only on new config.
		return
	}
}

// handleLink owns the active link lifetime: received bytes go out on
// {"link","rx"}, payloads from {"link","tx"} go down the wire.
func (s *Service) handleLink(ctx context.Context, rwc io.ReadWriteCloser) error {
	txSub := s.conn.Subscribe(bus.Topic{"link", "tx"})
	defer s.conn.Unsubscribe(txSub)

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		buf := make([]byte, 32)
		for {
			n, err := rwc.Read(buf)
			if err != nil {
				errCh <- err
				return
			}
			if n == 0 {
				continue
			}
			out := append([]byte(nil), buf[:n]...)
			s.conn.Publish(s.conn.NewMessage(bus.Topic{"link", "rx"}, out, false))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = rwc.Close()
			return nil
		case err := <-errCh:
			if err != nil {
				return err
			}
			return nil
		case msg := <-txSub.Channel():
			data, ok := payloadBytes(msg.Payload)
			if !ok {
				continue
			}
			if _, err := rwc.Write(data); err != nil {
				return err
			}
		}
	}
}

func payloadBytes(p any) ([]byte, bool) {
	switch v := p.(type) {
	case []byte:
		return v, true
	case string:
		return []byte(v), true
	default:
		return nil, false
	}
}

// -----------------------------------------------------------------------------
// Transport registry
// -----------------------------------------------------------------------------

// Transport is a pluggable link dialler/owner.
type Transport interface {
	Open(ctx context.Context) (io.ReadWriteCloser, error)
	String() string
}

type transportFactory func(TransportConfig) (Transport, error)

var (
	regMu    sync.RWMutex
	registry = map[string]transportFactory{}

	errNoUARTDial   = errors.New("UARTDial not implemented")
	errNoDeviceOpen = errors.New("DeviceOpen not implemented")
)

// RegisterTransport allows external packages to add transports (eg. "ws", "tcp").
func RegisterTransport(name string, f transportFactory) {
	regMu.Lock()
	defer regMu.Unlock()
	registry[name] = f
}

func newTransport(cfg TransportConfig) (Transport, error) {
	regMu.RLock()
	f, ok := registry[cfg.Type]
	regMu.RUnlock()
	if ok {
		return f(cfg)
	}
	switch cfg.Type {
	case "sercom":
		return newSercomTransport(cfg)
	case "uart":
		return newUARTTransport(cfg)
	default:
		return nil, fmt.Errorf("unknown transport type: %q", cfg.Type)
	}
}

// DeviceOpen is injected by platform code; it must return a probed device the
// sercom transport can own for the lifetime of the link.
var DeviceOpen func(ctx context.Context) (*seesaw.Device, error)

// UARTDial is injected by platform code (eg. in main or a tinygo_uart.go).
// It must open and return an io.ReadWriteCloser over the configured UART.
var UARTDial func(ctx context.Context, u UARTConfig) (io.ReadWriteCloser, error)

type sercomTransport struct {
	cfg TransportConfig
}

func newSercomTransport(cfg TransportConfig) (Transport, error) {
	if cfg.Sercom == nil {
		return nil, errors.New("sercom transport requires sercom config")
	}
	return &sercomTransport{cfg: cfg}, nil
}

func (t *sercomTransport) Open(ctx context.Context) (io.ReadWriteCloser, error) {
	if DeviceOpen == nil {
		return nil, errNoDeviceOpen
	}
	dev, err := DeviceOpen(ctx)
	if err != nil {
		return nil, err
	}
	if t.cfg.Sercom.Baud > 0 {
		if err := dev.UARTSetBaud(t.cfg.Sercom.Baud); err != nil {
			return nil, err
		}
	}
	poll := time.Duration(t.cfg.Sercom.PollMS) * time.Millisecond
	if poll <= 0 {
		poll = 2 * time.Millisecond
	}
	return NewSercomRWC(dev, poll), nil
}

func (t *sercomTransport) String() string { return "sercom" }

type uartTransport struct {
	cfg TransportConfig
}

func newUARTTransport(cfg TransportConfig) (Transport, error) {
	if cfg.UART == nil {
		return nil, errors.New("uart transport requires uart config")
	}
	return &uartTransport{cfg: cfg}, nil
}

func (u *uartTransport) Open(ctx context.Context) (io.ReadWriteCloser, error) {
	if UARTDial == nil {
		return nil, errNoUARTDial
	}
	return UARTDial(ctx, *u.cfg.UART)
}

func (u *uartTransport) String() string { return "uart" }

// -----------------------------------------------------------------------------
// Utilities
// -----------------------------------------------------------------------------

func decodeConfig(p any) (Config, error) {
	var cfg Config
	switch v := p.(type) {
	case []byte:
		if err := json.Unmarshal(v, &cfg); err != nil {
			return cfg, err
		}
	case string:
		if err := json.Unmarshal([]byte(v), &cfg); err != nil {
			return cfg, err
		}
	case map[string]any:
		// Already a decoded object (e.g. if provided internally); re-marshal for simplicity.
		b, err := json.Marshal(v)
		if err != nil {
			return cfg, err
		}
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config payload type: %T", p)
	}
	return cfg, nil
}

func (s *Service) publishState(level, status string, err error) {
	payload := map[string]any{
		"level":  level,  // "up", "degraded", "error", "idle"
		"status": status, // short machine string
		"ts_ms":  time.Now().UnixMilli(),
	}
	if err != nil {
		payload["error"] = err.Error()
	}
	msg := s.conn.NewMessage(s.stateTopic, payload, true)
	s.conn.Publish(msg)
}

func backoffSeq(min, max time.Duration) func() time.Duration {
	if min <= 0 {
		min = 100 * time.Millisecond
	}
	if max < min {
		max = min
	}
	var cur = min
	return func() time.Duration {
		d := cur
		cur *= 2
		if cur > max {
			cur = max
		}
		return d
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
