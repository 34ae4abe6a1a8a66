package nt4

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/fieldtrace/telemetry-bridge/pkg/datalog"
	"github.com/fieldtrace/telemetry-bridge/pkg/value"
)

// fakeServer is a minimal in-process NT4 server: it accepts one websocket
// connection at a time, announces a single topic and an initial value the
// instant it sees a subscribe frame, and echoes rttTopicID probes back with
// its own clock so the engine's time bridge has something to synchronize
// against. It counts every subscribe frame it receives so tests can assert
// resubscription after a drop.
type fakeServer struct {
	upgrader websocket.Upgrader

	mu           sync.Mutex
	conns        []*websocket.Conn
	subscribeHit int
}

func newFakeServer() *fakeServer {
	return &fakeServer{upgrader: websocket.Upgrader{Subprotocols: []string{subprotocol}}}
}

func (s *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.conns = append(s.conns, conn)
	s.mu.Unlock()
	go s.serve(conn)
}

func (s *fakeServer) subscribeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscribeHit
}

func (s *fakeServer) closeAll() {
	s.mu.Lock()
	conns := append([]*websocket.Conn(nil), s.conns...)
	s.mu.Unlock()
	for _, c := range conns {
		c.Close()
	}
}

func (s *fakeServer) serve(conn *websocket.Conn) {
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		switch kind {
		case websocket.TextMessage:
			msgs, err := parseControlFrame(data)
			if err != nil {
				continue
			}
			for _, m := range msgs {
				if m.Method == "subscribe" {
					s.mu.Lock()
					s.subscribeHit++
					s.mu.Unlock()
					s.announceAndSend(conn)
				}
			}
		case websocket.BinaryMessage:
			frame, err := decodeDataFrame(data)
			if err != nil {
				continue
			}
			if frame.TopicID == rttTopicID {
				s.echoProbe(conn, frame)
			}
		}
	}
}

func (s *fakeServer) announceAndSend(conn *websocket.Conn) {
	params, err := json.Marshal(announceParams{Name: "/x", ID: 1, Type: "double"})
	if err != nil {
		return
	}
	announce, err := encodeControlFrame([]controlMessage{{Method: "announce", Params: params}})
	if err != nil {
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, announce); err != nil {
		return
	}

	data, err := encodeDataFrame(1, time.Now().UnixMicro(), defaultTypeID, value.F64(7.5))
	if err != nil {
		return
	}
	conn.WriteMessage(websocket.BinaryMessage, data)
}

func (s *fakeServer) echoProbe(conn *websocket.Conn, frame dataFrame) {
	clientSend, err := toInt64(frame.Raw)
	if err != nil {
		return
	}
	reply, err := encodeDataFrame(rttTopicID, time.Now().UnixMicro(), defaultTypeID, value.I64(clientSend))
	if err != nil {
		return
	}
	conn.WriteMessage(websocket.BinaryMessage, reply)
}

func newTestEngine(t *testing.T, serverURL string) (*Engine, *datalog.Writer) {
	t.Helper()

	u, err := url.Parse(serverURL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	id, err := NewClientID(net.ParseIP(host), uint16(port), "A")
	require.NoError(t, err)

	w, err := datalog.Create(filepath.Join(t.TempDir(), "engine.wpilog"))
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	cfg := DefaultConfig()
	cfg.ConnectTimeout = 2 * time.Second
	cfg.DisconnectRetryInterval = 30 * time.Millisecond
	cfg.TickBudget = 5 * time.Millisecond

	return NewEngine(id, cfg, w.Sender()), w
}

// Covers the publish/echo roundtrip (announce -> subscribe -> value
// delivery), the identity-prefixed datalog entry name the query surface
// reads under, and the write-before-publish ordering between the datalog
// and the latest-value snapshot.
func TestEngineSubscribeReceivesAnnouncedValue(t *testing.T) {
	server := newFakeServer()
	httpServer := httptest.NewServer(server)
	defer httpServer.Close()

	engine, w := newTestEngine(t, httpServer.URL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go engine.Run(ctx)

	require.True(t, engine.Subscribe(SubCommand{Topics: []string{"/x"}}))

	require.Eventually(t, func() bool {
		tv, ok := engine.Latest("/x")
		return ok && tv.Value.Equal(value.F64(7.5))
	}, 2*time.Second, 10*time.Millisecond, "latest snapshot should reflect the announced value")

	// By the time Latest observes the value, AppendAt has already
	// completed synchronously on the same goroutine that set it.
	marks, err := w.Marks("A//x")
	require.NoError(t, err)
	require.Len(t, marks, 1)

	got, err := value.FromDatalog("double", marks[0].Payload)
	require.NoError(t, err)
	require.True(t, got.Equal(value.F64(7.5)))
}

// Covers reconnect behavior: after the transport drops, the engine
// reconnects and re-issues its subscriptions without the caller having to
// notice the drop or resubscribe itself.
func TestEngineResubscribesAfterReconnect(t *testing.T) {
	server := newFakeServer()
	httpServer := httptest.NewServer(server)
	defer httpServer.Close()

	engine, _ := newTestEngine(t, httpServer.URL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go engine.Run(ctx)

	require.True(t, engine.Subscribe(SubCommand{Topics: []string{"/x"}}))

	require.Eventually(t, func() bool {
		return server.subscribeCount() >= 1
	}, 2*time.Second, 10*time.Millisecond, "initial subscribe should reach the server")

	server.closeAll()

	require.Eventually(t, func() bool {
		return server.subscribeCount() >= 2
	}, 3*time.Second, 10*time.Millisecond, "reconnect should re-issue the subscription without a new Subscribe call")
}
