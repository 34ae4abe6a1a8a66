package nt4

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fieldtrace/telemetry-bridge/internal/bridgelog"
	"github.com/fieldtrace/telemetry-bridge/pkg/datalog"
	"github.com/fieldtrace/telemetry-bridge/pkg/timesync"
	"github.com/fieldtrace/telemetry-bridge/pkg/value"
)

const subprotocol = "v4.networktables.first.wpi.edu"

const cmdQueueDepth = 255

// rttTopicID is NT4's reserved topic ID for the time-sync ping/pong
// exchange: the client sends its local clock as the value, the server
// echoes it back tagged with its own clock in the frame's timestamp
// field.
const rttTopicID = -1

const rttProbeInterval = 1 * time.Second

// SubCommand and PubCommand are the engine's external command surface;
// the Registry/command package enqueue these without touching engine
// internals directly.
type SubCommand struct {
	Topics  []string
	Options SubscriptionPackage
}

type UnsubCommand struct {
	Topics []string
}

type PubCommand struct {
	Name    string
	NT4Type string
	// Value, when non-nil, is sent as the topic's initial data frame
	// immediately after the publish control frame.
	Value *value.Value
}

type UnpubCommand struct {
	Name string
}

type topic struct {
	id      int64
	name    string
	nt4Type string
}

type publication struct {
	pubuid  int64
	name    string
	nt4Type string
}

// latestSlot is the single-slot projection output channel described in
// spec.md §5: a mutex-guarded holder a reader can poll without blocking
// the engine.
type latestSlot struct {
	mu   sync.RWMutex
	vals map[string]value.Timestamped
}

func newLatestSlot() *latestSlot {
	return &latestSlot{vals: make(map[string]value.Timestamped)}
}

func (s *latestSlot) set(topic string, tv value.Timestamped) {
	s.mu.Lock()
	s.vals[topic] = tv
	s.mu.Unlock()
}

func (s *latestSlot) get(topic string) (value.Timestamped, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tv, ok := s.vals[topic]
	return tv, ok
}

func (s *latestSlot) snapshot() map[string]value.Timestamped {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]value.Timestamped, len(s.vals))
	for k, v := range s.vals {
		out[k] = v
	}
	return out
}

// Engine is one client's long-lived connection state machine. Every
// field below is owned exclusively by the goroutine running Run; callers
// interact only through the channels and the latest-value slot.
type Engine struct {
	id     ClientID
	cfg    Config
	sender datalog.Sender
	bridge *timesync.Bridge

	subCmds chan interface{} // SubCommand | UnsubCommand
	pubCmds chan interface{} // PubCommand | UnpubCommand
	latest  *latestSlot

	conn  *websocket.Conn
	inbox chan []byte // inbound binary data frames

	state        connState
	topicsByID   map[int64]*topic
	topicsByName map[string]*topic
	pubsByName   map[string]*publication
	nextPubUID   int64
	nextSubUID   int64
	nextProbe    time.Time
	activeSubs   []SubCommand
}

func NewEngine(id ClientID, cfg Config, sender datalog.Sender) *Engine {
	return &Engine{
		id:           id,
		cfg:          cfg,
		sender:       sender,
		bridge:       timesync.New(),
		subCmds:      make(chan interface{}, cmdQueueDepth),
		pubCmds:      make(chan interface{}, cmdQueueDepth),
		latest:       newLatestSlot(),
		inbox:        make(chan []byte, cmdQueueDepth),
		state:        stateDialing,
		topicsByID:   make(map[int64]*topic),
		topicsByName: make(map[string]*topic),
		pubsByName:   make(map[string]*publication),
	}
}

func (e *Engine) Identity() ClientID { return e.id }

// entryName returns the datalog entry name for an NT4 topic name, under
// the identity-prefixed convention the query surface reads from
// (internal/query.PollTopicWithHistory).
func (e *Engine) entryName(topicName string) string {
	return e.id.Identity + "/" + topicName
}

func (e *Engine) Subscribe(cmd SubCommand) bool   { return trySend(e.subCmds, cmd) }
func (e *Engine) Unsubscribe(cmd UnsubCommand) bool { return trySend(e.subCmds, cmd) }
func (e *Engine) Publish(cmd PubCommand) bool     { return trySend(e.pubCmds, cmd) }
func (e *Engine) Unpublish(cmd UnpubCommand) bool { return trySend(e.pubCmds, cmd) }

func trySend(ch chan interface{}, v interface{}) bool {
	select {
	case ch <- v:
		return true
	default:
		return false
	}
}

// Latest returns the most recently observed value for topic, if any.
func (e *Engine) Latest(topicName string) (value.Timestamped, bool) {
	return e.latest.get(topicName)
}

// Snapshot returns every known topic's latest value.
func (e *Engine) Snapshot() map[string]value.Timestamped {
	return e.latest.snapshot()
}

// Run drives the engine until ctx is cancelled: dial, stream, and
// reconnect-with-backoff on loss, forever, exiting only on cancellation.
func (e *Engine) Run(ctx context.Context) {
	component := fmt.Sprintf("NT4:%s", e.id)
	for {
		if ctx.Err() != nil {
			e.state = stateStopped
			return
		}

		if err := e.dial(ctx); err != nil {
			bridgelog.Warnf(component, "dial failed: %v", err)
			e.state = stateDisconnected
			if !sleepCtx(ctx, e.cfg.DisconnectRetryInterval) {
				return
			}
			e.state = stateReconnecting
			if e.cfg.OnReconnect != nil {
				e.cfg.OnReconnect()
			}
			continue
		}

		e.bridge.Reset()
		e.nextProbe = time.Time{}
		e.state = stateConnected
		bridgelog.Infof(component, "connected to %s", e.id.Addr())

		// Publish-side handles are invalidated on every (re)connect; the
		// next explicit Publish call recreates them. Subscriptions are
		// re-issued immediately so subscription resumption is at-least-once,
		// not dependent on the caller noticing the reconnect.
		e.pubsByName = make(map[string]*publication)
		e.resumeSubscriptions(component)

		e.streamUntilDisconnect(ctx, component)

		if e.cfg.OnDisconnect != nil {
			e.cfg.OnDisconnect()
		}
		e.closeConn()

		if ctx.Err() != nil {
			e.state = stateStopped
			return
		}

		e.state = stateDisconnected
		bridgelog.Warnf(component, "disconnected, retrying in %s", e.cfg.DisconnectRetryInterval)
		if !sleepCtx(ctx, e.cfg.DisconnectRetryInterval) {
			return
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (e *Engine) dial(ctx context.Context) error {
	u := url.URL{Scheme: "ws", Host: e.id.Addr(), Path: "/nt/" + e.id.Identity}
	dialer := websocket.Dialer{
		Subprotocols:     []string{subprotocol},
		HandshakeTimeout: e.cfg.ConnectTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	e.conn = conn
	e.inbox = make(chan []byte, cmdQueueDepth)
	go e.readPump()
	return nil
}

func (e *Engine) closeConn() {
	if e.conn != nil {
		e.conn.Close()
		e.conn = nil
	}
}

// readPump is the one goroutine allowed to call conn.ReadMessage; it
// never touches engine state directly, only forwards frames for the
// tick loop to fold in (keeping all topic-table mutation on one
// goroutine, as spec.md requires).
func (e *Engine) readPump() {
	conn := e.conn
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			close(e.inbox)
			return
		}
		if kind == websocket.TextMessage {
			msgs, err := parseControlFrame(data)
			if err != nil {
				continue
			}
			for _, m := range msgs {
				encoded, _ := encodeControlAsFrame(m)
				select {
				case e.inbox <- encoded:
				default:
				}
			}
		} else {
			select {
			case e.inbox <- data:
			default:
				// Drop on backpressure rather than block the read pump;
				// the engine favors liveness over completeness under load.
			}
		}
	}
}

// encodeControlAsFrame re-wraps one decoded control message with a
// one-byte tag so the tick loop's single inbox channel can carry both
// control and data frames without a second channel.
func encodeControlAsFrame(m controlMessage) ([]byte, error) {
	raw, err := encodeControlFrame([]controlMessage{m})
	if err != nil {
		return nil, err
	}
	return append([]byte{0xFF}, raw...), nil
}

func (e *Engine) streamUntilDisconnect(ctx context.Context, component string) {
	e.state = stateStreaming
	for {
		start := time.Now()

		e.drainPubCmds(component)
		e.drainSubCmds(component)
		e.maybeSendRTTProbe(component)
		if !e.pumpInbound(component) {
			return
		}

		elapsed := time.Since(start)
		if remaining := e.cfg.TickBudget - elapsed; remaining > 0 {
			if !sleepCtx(ctx, remaining) {
				return
			}
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func (e *Engine) drainPubCmds(component string) {
	for {
		select {
		case raw := <-e.pubCmds:
			switch cmd := raw.(type) {
			case PubCommand:
				e.handlePublish(component, cmd)
			case UnpubCommand:
				e.handleUnpublish(component, cmd)
			}
		default:
			return
		}
	}
}

func (e *Engine) drainSubCmds(component string) {
	for {
		select {
		case raw := <-e.subCmds:
			switch cmd := raw.(type) {
			case SubCommand:
				e.handleSubscribe(component, cmd)
			case UnsubCommand:
				e.handleUnsubscribe(component, cmd)
			}
		default:
			return
		}
	}
}

func (e *Engine) handlePublish(component string, cmd PubCommand) {
	if _, exists := e.pubsByName[cmd.Name]; exists {
		return
	}
	e.nextPubUID++
	pub := &publication{pubuid: e.nextPubUID, name: cmd.Name, nt4Type: cmd.NT4Type}
	e.pubsByName[cmd.Name] = pub
	frame, err := buildPublish(cmd.Name, pub.pubuid, cmd.NT4Type)
	if err != nil {
		bridgelog.Errorf(component, "encode publish for %s: %v", cmd.Name, err)
		return
	}
	e.writeText(component, frame)

	if cmd.Value == nil {
		return
	}
	data, err := encodeDataFrame(pub.pubuid, timesync.NowMicros(), defaultTypeID, *cmd.Value)
	if err != nil {
		bridgelog.Errorf(component, "encode data frame for %s: %v", cmd.Name, err)
		return
	}
	e.writeBinary(component, data)
}

func (e *Engine) handleUnpublish(component string, cmd UnpubCommand) {
	pub, ok := e.pubsByName[cmd.Name]
	if !ok {
		return
	}
	delete(e.pubsByName, cmd.Name)
	frame, err := buildUnpublish(pub.pubuid)
	if err != nil {
		return
	}
	e.writeText(component, frame)
}

func (e *Engine) handleSubscribe(component string, cmd SubCommand) {
	e.activeSubs = append(e.activeSubs, cmd)
	e.sendSubscribe(component, cmd)
}

// resumeSubscriptions re-issues every subscription recorded since the
// engine started, called on every successful (re)connect. Resumption is
// at-least-once: the server may deliver values already seen before the
// drop, and the datalog's non-decreasing-µs clamp absorbs the overlap.
func (e *Engine) resumeSubscriptions(component string) {
	for _, cmd := range e.activeSubs {
		e.sendSubscribe(component, cmd)
	}
}

func (e *Engine) sendSubscribe(component string, cmd SubCommand) {
	e.nextSubUID++
	frame, err := buildSubscribe(cmd.Topics, e.nextSubUID, cmd.Options)
	if err != nil {
		bridgelog.Errorf(component, "encode subscribe: %v", err)
		return
	}
	e.writeText(component, frame)
}

func (e *Engine) handleUnsubscribe(component string, cmd UnsubCommand) {
	// Unsubscribe commands are accepted and discarded: the engine keeps
	// no subuid per subscription, so no unsubscribe frame is sent, and
	// the subscription stays in activeSubs and is re-issued on reconnect.
	_ = cmd
}

// maybeSendRTTProbe issues a time-sync probe on rttTopicID if the
// previous one is due, seeding/refreshing the Time Bridge's offset
// estimate on every reply.
func (e *Engine) maybeSendRTTProbe(component string) {
	now := time.Now()
	if now.Before(e.nextProbe) {
		return
	}
	e.nextProbe = now.Add(rttProbeInterval)

	clientSend := timesync.NowMicros()
	data, err := encodeDataFrame(rttTopicID, clientSend, defaultTypeID, value.I64(clientSend))
	if err != nil {
		bridgelog.Errorf(component, "encode rtt probe: %v", err)
		return
	}
	e.writeBinary(component, data)
}

func (e *Engine) writeText(component string, data []byte) {
	if e.conn == nil {
		return
	}
	if err := e.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		bridgelog.Warnf(component, "write failed: %v", err)
	}
}

func (e *Engine) writeBinary(component string, data []byte) {
	if e.conn == nil {
		return
	}
	if err := e.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		bridgelog.Warnf(component, "write failed: %v", err)
	}
}

// pumpInbound drains every frame currently buffered in inbox (never
// blocking), applying announce/unannounce/data updates. Returns false
// if the connection has closed.
func (e *Engine) pumpInbound(component string) bool {
	for {
		select {
		case data, ok := <-e.inbox:
			if !ok {
				return false
			}
			e.applyInbound(component, data)
		default:
			return true
		}
	}
}

func (e *Engine) applyInbound(component string, data []byte) {
	if len(data) > 0 && data[0] == 0xFF {
		msgs, err := parseControlFrame(data[1:])
		if err != nil {
			return
		}
		for _, m := range msgs {
			e.applyControl(component, m)
		}
		return
	}

	frame, err := decodeDataFrame(data)
	if err != nil {
		bridgelog.Warnf(component, "bad data frame: %v", err)
		return
	}
	if frame.TopicID == rttTopicID {
		e.applyRTTReply(component, frame)
		return
	}
	t, ok := e.topicsByID[frame.TopicID]
	if !ok {
		return
	}

	raw, err := nativeToWireBytes(frame.Raw)
	if err != nil {
		return
	}
	v, err := value.FromWire(t.nt4Type, raw)
	if err != nil {
		bridgelog.Warnf(component, "topic %s: %v", t.name, err)
		return
	}

	micros := e.bridge.ToClientTime(frame.Timestamp)
	tv := value.Timestamped{Value: v, Micros: micros}

	if _, err := DatalogTypeOf(t.nt4Type); err == nil {
		if payload, err := value.ToDatalog(v); err == nil {
			// write-before-publish: the datalog append happens before the
			// snapshot becomes visible to readers.
			if err := e.sender.AppendAt(e.entryName(t.name), micros, payload); err != nil {
				bridgelog.Warnf(component, "append %s: %v", t.name, err)
			}
		}
	}

	e.latest.set(t.name, tv)
}

// applyRTTReply folds a server's echoed time-sync probe into the Time
// Bridge: frame.Raw carries the client's original send time, and
// frame.Timestamp carries the server's clock at the moment it replied.
func (e *Engine) applyRTTReply(component string, frame dataFrame) {
	raw, err := nativeToWireBytes(frame.Raw)
	if err != nil {
		return
	}
	v, err := value.FromWire("int", raw)
	if err != nil {
		bridgelog.Warnf(component, "rtt reply: %v", err)
		return
	}
	clientSend, err := v.AsI64()
	if err != nil {
		return
	}
	e.bridge.Update(clientSend, frame.Timestamp, timesync.NowMicros())
}

func (e *Engine) applyControl(component string, m controlMessage) {
	switch m.Method {
	case "announce":
		var p announceParams
		if err := unmarshalParams(m.Params, &p); err != nil {
			return
		}
		t := &topic{id: p.ID, name: p.Name, nt4Type: p.Type}
		e.topicsByID[p.ID] = t
		e.topicsByName[p.Name] = t

		entryType, err := DatalogTypeOf(p.Type)
		if err != nil {
			bridgelog.Warnf(component, "announce %s: %v", p.Name, err)
			return
		}
		if _, exists := e.sender.Writer().Summary(e.entryName(p.Name)); !exists {
			if err := e.sender.StartEntry(e.entryName(p.Name), entryType, ""); err != nil {
				bridgelog.Warnf(component, "start entry %s: %v", p.Name, err)
			}
		}
		if e.cfg.OnAnnounce != nil {
			e.cfg.OnAnnounce(p.Name, p.Type)
		}

	case "unannounce":
		var p unannounceParams
		if err := unmarshalParams(m.Params, &p); err != nil {
			return
		}
		if t, ok := e.topicsByID[p.ID]; ok {
			delete(e.topicsByID, p.ID)
			delete(e.topicsByName, t.name)
			if err := e.sender.Finish(e.entryName(t.name)); err != nil {
				bridgelog.Warnf(component, "finish entry %s: %v", t.name, err)
			}
		}
		if e.cfg.OnUnannounce != nil {
			e.cfg.OnUnannounce(p.Name)
		}
	}
}

func unmarshalParams(raw []byte, v interface{}) error {
	return jsonUnmarshal(raw, v)
}
