// services/hal/hal.go
package hal

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"seesaw-go/bus"
	"seesaw-go/drivers/seesaw"
	"seesaw-go/errcode"
	"seesaw-go/x/mathx"
)

// -----------------------------------------------------------------------------
// Entry point
// -----------------------------------------------------------------------------

func Run(ctx context.Context, conn *bus.Connection, i2cFactory I2CBusFactory) {
	h := &service{
		conn:        conn,
		i2cFactory:  i2cFactory,
		workers:     map[string]*measureWorker{},
		devices:     map[string]devEntry{},
		capToDev:    map[capKey]string{},
		nextCapID:   map[string]int{},
		devPeriodMS: map[string]int{},
		devNextDue:  map[string]time.Time{},
		results:     make(chan Result, 32),
	}
	h.loop(ctx)
}

// -----------------------------------------------------------------------------
// Types
// -----------------------------------------------------------------------------

type devEntry struct {
	adaptor Adaptor
	caps    map[string]int // kind -> numeric capability id
	busID   string
}

type capKey struct {
	kind string
	id   int
}

type service struct {
	conn       *bus.Connection
	i2cFactory I2CBusFactory

	workers map[string]*measureWorker
	devices map[string]devEntry

	capToDev  map[capKey]string
	nextCapID map[string]int

	devPeriodMS map[string]int
	devNextDue  map[string]time.Time

	timer *time.Timer

	// Results fan-in from all bus workers.
	results chan Result
}

// -----------------------------------------------------------------------------
// Main loop
// -----------------------------------------------------------------------------

func (s *service) loop(ctx context.Context) {
	cfgSub := s.conn.Subscribe(bus.Topic{"config", "hal"})
	ctrlSub := s.conn.Subscribe(bus.Topic{"hal", "capability", "+", "+", "control", "+"})
	defer s.conn.Unsubscribe(cfgSub)
	defer s.conn.Unsubscribe(ctrlSub)

	s.publishState("idle", "awaiting_config", nil)

	s.timer = time.NewTimer(time.Hour)
	if !s.timer.Stop() {
		drainTimer(s.timer)
	}

	for {
		if next := s.earliestDevDue(); next.IsZero() {
			resetTimer(s.timer, time.Hour)
		} else {
			resetTimer(s.timer, time.Until(next))
		}

		select {
		case <-ctx.Done():
			s.publishState("stopped", "context_cancelled", nil)
			return

		case msg, ok := <-cfgSub.Channel():
			if !ok {
				s.publishState("error", "config_subscription_closed", nil)
				return
			}
			var cfg HALConfig
			if err := decodeJSON(msg.Payload, &cfg); err != nil {
				s.publishState("error", "config_decode_failed", err)
				continue
			}
			if err := s.applyConfig(ctx, cfg); err != nil {
				s.publishState("error", "apply_config_failed", err)
				continue
			}
			s.publishState("ready", "configured", nil)

		case msg, ok := <-ctrlSub.Channel():
			if !ok {
				s.publishState("error", "control_subscription_closed", nil)
				return
			}
			// hal/capability/<kind>/<id:int>/control/<method>
			if len(msg.Topic) < 6 {
				continue
			}
			kind, _ := msg.Topic[2].(string)
			idNum, ok := asInt(msg.Topic[3])
			if !ok || kind == "" {
				s.replyErr(msg, errcode.InvalidTopic, "invalid capability address")
				continue
			}
			devID, ok := s.capToDev[capKey{kind: kind, id: idNum}]
			if !ok {
				s.replyErr(msg, errcode.UnknownCapability, "unknown capability")
				continue
			}
			method, _ := msg.Topic[5].(string)
			s.handleControl(msg, devID, kind, method)

		case <-s.timer.C:
			now := time.Now()
			for devID, due := range s.devNextDue {
				if !now.Before(due) {
					s.submitMeasure(devID, false)
					s.bumpDevNext(devID, now)
				}
			}

		case r := <-s.results:
			s.handleResult(r)
		}
	}
}

func (s *service) handleControl(msg *bus.Message, devID, kind, method string) {
	switch method {
	case "read_now":
		if s.submitMeasure(devID, true) {
			s.bumpDevNext(devID, time.Now())
			s.replyOK(msg, nil)
		} else {
			s.replyErr(msg, errcode.Busy, "busy")
		}
	case "set_rate":
		ms := parsePeriodMS(msg.Payload)
		if ms <= 0 {
			s.replyErr(msg, errcode.InvalidParams, "invalid period")
			return
		}
		s.devPeriodMS[devID] = mathx.Clamp(ms, 200, 3_600_000)
		s.bumpDevNext(devID, time.Now())
		s.replyOK(msg, map[string]any{"period_ms": s.devPeriodMS[devID]})
	default:
		ent := s.devices[devID]
		if ent.adaptor == nil {
			s.replyErr(msg, errcode.HALNotReady, "no adaptor")
			return
		}
		res, err := ent.adaptor.Control(kind, method, msg.Payload)
		if err != nil {
			s.replyErr(msg, errcode.Of(err), err.Error())
			return
		}
		s.replyOK(msg, map[string]any{"result": res})
	}
}

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

func (s *service) applyConfig(ctx context.Context, cfg HALConfig) error {
	seen := map[string]struct{}{}

	for i := range cfg.Devices {
		d := &cfg.Devices[i]
		seen[d.ID] = struct{}{}

		// Skip if already present (simple idempotence for now)
		if _, exists := s.devices[d.ID]; exists {
			continue
		}
		if d.Type != "seesaw" {
			continue
		}
		if d.BusRef.Type != "i2c" || d.BusRef.ID == "" {
			continue
		}
		port, ok := s.i2cFactory.ByID(d.BusRef.ID)
		if !ok {
			continue
		}
		// Ensure a worker for this bus; one worker serialises the
		// measurement cycles of all devices sharing the physical bus.
		// Control and probe traffic is serialised against it by the
		// device handle's own bus lock.
		if _, ok := s.workers[d.BusRef.ID]; !ok {
			w := NewWorker(WorkerConfig{})
			w.Start(ctx)
			s.workers[d.BusRef.ID] = w
			go s.forwardResults(ctx, w)
		}

		var p SeesawParams
		_ = decodeJSON(d.Params, &p)
		if p.Addr == 0 {
			p.Addr = int(seesaw.AddressDefault)
		}
		ad := NewSeesawAdaptor(d.ID, port, uint16(p.Addr), p.ADCPins)

		degraded := false
		if probe, ok := ad.(interface{ Begin() error }); ok {
			if err := probe.Begin(); err != nil {
				// Keep the entry so a later read_now can retry, but flag it.
				degraded = true
				if errors.Is(err, seesaw.ErrWrongDevice) {
					s.publishState("error", "identity_mismatch", err)
				} else {
					s.publishState("error", "probe_failed", err)
				}
			}
		}

		entry := devEntry{adaptor: ad, busID: d.BusRef.ID, caps: map[string]int{}}
		for _, ci := range ad.Capabilities() {
			id := s.nextCapID[ci.Kind]
			s.nextCapID[ci.Kind]++

			entry.caps[ci.Kind] = id
			s.capToDev[capKey{kind: ci.Kind, id: id}] = d.ID

			link := "up"
			if degraded {
				link = "degraded"
			}
			s.pubRet(capTopic(ci.Kind, id, "info"), ci.Info)
			s.pubRet(capTopic(ci.Kind, id, "state"),
				map[string]any{"link": link, "ts_ms": time.Now().UnixMilli()})
		}
		s.devices[d.ID] = entry

		// Schedule periodic sampling only when the device produces readings.
		if len(p.ADCPins) > 0 {
			ms := p.PollMS
			if ms == 0 {
				ms = 2000
			}
			s.devPeriodMS[d.ID] = mathx.Clamp(ms, 200, 3_600_000)
			s.devNextDue[d.ID] = time.Now().Add(200 * time.Millisecond)
		}
	}

	// Tidy-up: remove devices not in config
	for devID, ent := range s.devices {
		if _, ok := seen[devID]; ok {
			continue
		}
		for kind, id := range ent.caps {
			s.pubRet(capTopic(kind, id, "info"), nil)
			s.pubRet(capTopic(kind, id, "state"),
				map[string]any{"link": "down", "ts_ms": time.Now().UnixMilli()})
			delete(s.capToDev, capKey{kind: kind, id: id})
		}
		delete(s.devices, devID)
		delete(s.devPeriodMS, devID)
		delete(s.devNextDue, devID)
	}

	return nil
}

func (s *service) forwardResults(ctx context.Context, w *measureWorker) {
	for {
		select {
		case <-ctx.Done():
			return
		case r := <-w.Results():
			select {
			case s.results <- r:
			case <-ctx.Done():
				return
			}
		}
	}
}

// -----------------------------------------------------------------------------
// Results and helpers
// -----------------------------------------------------------------------------

func (s *service) submitMeasure(devID string, prio bool) bool {
	ent, ok := s.devices[devID]
	if !ok {
		return false
	}
	w := s.workers[ent.busID]
	if w == nil {
		return false
	}
	return w.Submit(MeasureReq{ID: devID, Adaptor: ent.adaptor, Prio: prio})
}

func (s *service) bumpDevNext(devID string, from time.Time) {
	period := time.Duration(mathx.Clamp(s.devPeriodMS[devID], 200, 3_600_000)) * time.Millisecond
	s.devNextDue[devID] = from.Add(period)
}

func (s *service) earliestDevDue() time.Time {
	var min time.Time
	for _, t := range s.devNextDue {
		if !t.IsZero() && (min.IsZero() || t.Before(min)) {
			min = t
		}
	}
	return min
}

func (s *service) handleResult(r Result) {
	ent, ok := s.devices[r.ID]
	if !ok {
		return
	}
	now := time.Now().UnixMilli()

	if r.Err != nil {
		for kind, id := range ent.caps {
			s.pubRet(capTopic(kind, id, "state"),
				map[string]any{"link": "degraded", "error": r.Err.Error(), "ts_ms": now})
		}
		return
	}
	// Publish each reading to its mapped capability id.
	for _, rd := range r.Sample {
		id, ok := ent.caps[rd.Kind]
		if !ok {
			continue
		}
		s.conn.Publish(s.conn.NewMessage(capTopic(rd.Kind, id, "value"), rd.Payload, false))
		s.pubRet(capTopic(rd.Kind, id, "state"), map[string]any{"link": "up", "ts_ms": now})
	}
}

func (s *service) publishState(level, status string, err error) {
	payload := map[string]any{"level": level, "status": status, "ts_ms": time.Now().UnixMilli()}
	if err != nil {
		payload["error"] = err.Error()
		payload["code"] = string(errcode.Of(err))
	}
	s.conn.Publish(s.conn.NewMessage(bus.Topic{"hal", "state"}, payload, true))
}

func (s *service) replyOK(req *bus.Message, extra map[string]any) {
	if len(req.ReplyTo) == 0 {
		return
	}
	m := map[string]any{"ok": true}
	for k, v := range extra {
		m[k] = v
	}
	s.conn.Reply(req, m, false)
}

func (s *service) replyErr(req *bus.Message, code errcode.Code, e string) {
	if len(req.ReplyTo) == 0 {
		return
	}
	s.conn.Reply(req, map[string]any{"ok": false, "code": string(code), "error": e}, false)
}

func capTopic(kind string, id int, rest ...any) bus.Topic {
	base := bus.Topic{"hal", "capability", kind, id}
	return append(base, rest...)
}

func (s *service) pubRet(t bus.Topic, p any) {
	s.conn.Publish(s.conn.NewMessage(t, p, true))
}

func parsePeriodMS(p any) int {
	if m, ok := p.(map[string]any); ok {
		if v, ok := asInt(m["period_ms"]); ok {
			return v
		}
	}
	return 0
}

func decodeJSON[T any](src any, dst *T) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		// Accept maps, structs, numbers… by marshaling then decoding to T.
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return json.Unmarshal(b, dst)
	}
}

func asInt(t any) (int, bool) {
	switch v := t.(type) {
	case int:
		return v, true
	case int8:
		return int(v), true
	case int16:
		return int(v), true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint:
		return int(v), true
	case uint8:
		return int(v), true
	case uint16:
		return int(v), true
	case uint32:
		return int(v), true
	case uint64:
		return int(v), true
	case float32:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
