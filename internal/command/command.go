// Package command implements the external command surface from spec.md
// §6 as plain functions over the core's three services (Registry,
// Datalog Writer, Query Surface). It has no dependency on any shell or
// UI; adapters for a specific frontend live outside this module.
package command

import (
	"context"
	"net"

	"github.com/fieldtrace/telemetry-bridge/internal/nt4"
	"github.com/fieldtrace/telemetry-bridge/internal/query"
	"github.com/fieldtrace/telemetry-bridge/internal/registry"
	"github.com/fieldtrace/telemetry-bridge/pkg/datalog"
	"github.com/fieldtrace/telemetry-bridge/pkg/timesync"
	"github.com/fieldtrace/telemetry-bridge/pkg/value"
)

// Surface bundles the three core services a command-surface adapter
// needs to implement the full §6 table.
type Surface struct {
	Registry *registry.Registry
	Datalog  *datalog.Writer
	Query    *query.Surface
}

func New(reg *registry.Registry, dl *datalog.Writer, q *query.Surface) *Surface {
	return &Surface{Registry: reg, Datalog: dl, Query: q}
}

// StartClient begins a client connection, replacing any existing client
// with the same identity.
func (s *Surface) StartClient(ctx context.Context, ip net.IP, port uint16, identity string, cfg nt4.Config) (nt4.ClientID, error) {
	id, err := nt4.NewClientID(ip, port, identity)
	if err != nil {
		return nt4.ClientID{}, err
	}
	if _, err := s.Registry.Start(ctx, id, cfg, s.Datalog.Sender()); err != nil {
		return nt4.ClientID{}, err
	}
	return id, nil
}

func (s *Surface) StopClient(id nt4.ClientID) {
	s.Registry.Stop(id)
}

func (s *Surface) ClientExists(id nt4.ClientID) bool {
	return s.Registry.Exists(id)
}

func (s *Surface) Subscribe(id nt4.ClientID, topics []string, opts nt4.SubscriptionPackage) bool {
	engine, ok := s.Registry.Get(id)
	if !ok {
		return false
	}
	return engine.Subscribe(nt4.SubCommand{Topics: topics, Options: opts})
}

func (s *Surface) Unsubscribe(id nt4.ClientID, topics []string) bool {
	engine, ok := s.Registry.Get(id)
	if !ok {
		return false
	}
	return engine.Unsubscribe(nt4.UnsubCommand{Topics: topics})
}

func (s *Surface) SetBooleanTopic(id nt4.ClientID, name string, v bool) bool {
	return s.publishAndSend(id, name, "boolean", value.Bool(v))
}

func (s *Surface) SetIntTopic(id nt4.ClientID, name string, v int64) bool {
	return s.publishAndSend(id, name, "int", value.I64(v))
}

func (s *Surface) SetFloatTopic(id nt4.ClientID, name string, v float32) bool {
	return s.publishAndSend(id, name, "float", value.F32(v))
}

func (s *Surface) SetDoubleTopic(id nt4.ClientID, name string, v float64) bool {
	return s.publishAndSend(id, name, "double", value.F64(v))
}

func (s *Surface) SetStringTopic(id nt4.ClientID, name string, v string) bool {
	return s.publishAndSend(id, name, "string", value.Str(v))
}

func (s *Surface) publishAndSend(id nt4.ClientID, name, nt4Type string, v value.Value) bool {
	engine, ok := s.Registry.Get(id)
	if !ok {
		return false
	}
	return engine.Publish(nt4.PubCommand{Name: name, NT4Type: nt4Type, Value: &v})
}

// SendMark is the supplemented frontend-write command (see SPEC_FULL.md
// §11, grounded on original_source's datalog/tauri_cmds.rs send_mark):
// it auto-declares name as a frontend-sourced entry on first use, then
// always appends at the caller-supplied timestamp.
func (s *Surface) SendMark(name, entryType string, micros int64, v value.Value) error {
	sender := s.Datalog.Sender()
	if _, exists := s.Datalog.Summary(name); !exists {
		if err := sender.StartEntry(name, entryType, `{"source":"frontend"}`); err != nil {
			return err
		}
	}
	payload, err := value.ToDatalog(v)
	if err != nil {
		return err
	}
	return sender.AppendAt(name, micros, payload)
}

// NowMicros exposes the shared clock unit command adapters need when the
// caller does not supply its own timestamp.
func NowMicros() int64 { return timesync.NowMicros() }
