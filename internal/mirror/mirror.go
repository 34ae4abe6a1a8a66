// Package mirror implements an optional activity mirror over NATS: when
// configured with an address, the process publishes a small notification
// to the configured subject for each topic announce and unannounce its
// engines observe, so other processes on the same bus can observe bridge
// activity without polling the datalog file. Off by default. Publishing
// is called from the engine goroutine's announce handling.
//
// Adapted from the teacher's pkg/nats/client.go connection-wrapper idiom
// (DisconnectErrHandler/ReconnectHandler/ErrorHandler wiring), with the
// subscribe-side API removed: telemetry-bridge only ever publishes here.
package mirror

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/fieldtrace/telemetry-bridge/internal/bridgelog"
)

type Config struct {
	Address string `json:"address"`
	Subject string `json:"subject"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Mirror wraps a NATS connection used solely for outbound activity
// notifications.
type Mirror struct {
	conn    *nats.Conn
	subject string
}

// Connect dials cfg.Address and returns a Mirror, or nil if cfg.Address
// is empty (mirroring is opt-in).
func Connect(cfg Config) (*Mirror, error) {
	if cfg.Address == "" {
		return nil, nil
	}

	var opts []nats.Option
	if cfg.Username != "" && cfg.Password != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}
	opts = append(opts, nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
		if err != nil {
			bridgelog.Warnf("MIRROR", "disconnected: %v", err)
		}
	}))
	opts = append(opts, nats.ReconnectHandler(func(nc *nats.Conn) {
		bridgelog.Infof("MIRROR", "reconnected to %s", nc.ConnectedUrl())
	}))
	opts = append(opts, nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
		bridgelog.Errorf("MIRROR", "error: %v", err)
	}))

	nc, err := nats.Connect(cfg.Address, opts...)
	if err != nil {
		return nil, fmt.Errorf("mirror: connect to %s: %w", cfg.Address, err)
	}
	bridgelog.Infof("MIRROR", "connected to %s", cfg.Address)
	return &Mirror{conn: nc, subject: cfg.Subject}, nil
}

type activity struct {
	Entry    string `json:"entry"`
	Type     string `json:"type"`
	NumMarks int    `json:"num_marks"`
	Event    string `json:"event"`
}

// NotifyStarted publishes an activity event for a newly declared entry.
func (m *Mirror) NotifyStarted(entry, entryType string) {
	m.publish(activity{Entry: entry, Type: entryType, Event: "started"})
}

// NotifyFinished publishes an activity event for a closed entry.
func (m *Mirror) NotifyFinished(entry string, numMarks int) {
	m.publish(activity{Entry: entry, NumMarks: numMarks, Event: "finished"})
}

func (m *Mirror) publish(a activity) {
	if m == nil || m.conn == nil {
		return
	}
	data, err := json.Marshal(a)
	if err != nil {
		return
	}
	if err := m.conn.Publish(m.subject, data); err != nil {
		bridgelog.Warnf("MIRROR", "publish failed: %v", err)
	}
}

func (m *Mirror) Close() {
	if m == nil || m.conn == nil {
		return
	}
	m.conn.Close()
}
