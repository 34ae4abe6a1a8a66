package registry

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fieldtrace/telemetry-bridge/internal/nt4"
	"github.com/fieldtrace/telemetry-bridge/pkg/datalog"
)

func testConfig() nt4.Config {
	cfg := nt4.DefaultConfig()
	cfg.ConnectTimeout = 50 * time.Millisecond
	cfg.DisconnectRetryInterval = 20 * time.Millisecond
	return cfg
}

func testSender(t *testing.T) datalog.Sender {
	t.Helper()
	w, err := datalog.Create(filepath.Join(t.TempDir(), "reg.wpilog"))
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return w.Sender()
}

func TestStartThenExists(t *testing.T) {
	reg := New()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	id, err := nt4.NewClientID(net.ParseIP("127.0.0.1"), 5810, "roboRIO")
	require.NoError(t, err)

	_, err = reg.Start(ctx, id, testConfig(), testSender(t))
	require.NoError(t, err)
	require.True(t, reg.Exists(id))
	require.True(t, reg.IdentityInUse("roboRIO"))

	reg.Stop(id)
	require.False(t, reg.Exists(id))
	require.False(t, reg.IdentityInUse("roboRIO"))
}

func TestStartIsIdempotentReplace(t *testing.T) {
	reg := New()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	id, err := nt4.NewClientID(net.ParseIP("127.0.0.1"), 5810, "roboRIO")
	require.NoError(t, err)

	first, err := reg.Start(ctx, id, testConfig(), testSender(t))
	require.NoError(t, err)

	second, err := reg.Start(ctx, id, testConfig(), testSender(t))
	require.NoError(t, err)

	require.NotSame(t, first, second)
	require.True(t, reg.Exists(id))
	require.Len(t, reg.List(), 1)
}

func TestStopAllClearsEverything(t *testing.T) {
	reg := New()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	for i, name := range []string{"a", "b", "c"} {
		id, err := nt4.NewClientID(net.ParseIP("127.0.0.1"), uint16(5810+i), name)
		require.NoError(t, err)
		_, err = reg.Start(ctx, id, testConfig(), testSender(t))
		require.NoError(t, err)
	}
	require.Len(t, reg.List(), 3)

	reg.StopAll()
	require.Empty(t, reg.List())
}
