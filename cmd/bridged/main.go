// Command bridged is the telemetry-bridge process entrypoint: flag
// parsing, config load, component wiring, and signal-based graceful
// shutdown, modeled on the teacher's cmd/cc-backend/main.go sequence.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"sync"
	"syscall"
	"time"

	"github.com/fieldtrace/telemetry-bridge/internal/bridgelog"
	"github.com/fieldtrace/telemetry-bridge/internal/command"
	"github.com/fieldtrace/telemetry-bridge/internal/config"
	"github.com/fieldtrace/telemetry-bridge/internal/mirror"
	"github.com/fieldtrace/telemetry-bridge/internal/nt4"
	"github.com/fieldtrace/telemetry-bridge/internal/query"
	"github.com/fieldtrace/telemetry-bridge/internal/registry"
	"github.com/fieldtrace/telemetry-bridge/pkg/datalog"
)

func main() {
	configPath := flag.String("config", "./config.json", "path to the bridge's JSON config file")
	logDate := flag.Bool("logdate", false, "prefix log lines with date/time (systemd adds this for you otherwise)")
	flag.Parse()

	debug.SetGCPercent(50)

	cfg, err := config.Load(*configPath)
	if err != nil {
		bridgelog.Fatalf("MAIN", "loading config: %v", err)
	}
	bridgelog.SetLevel(cfg.LogLevel)
	bridgelog.SetLogDateTime(*logDate)

	datalogPath, err := resolveDatalogPath(cfg.DatalogDir)
	if err != nil {
		bridgelog.Fatalf("MAIN", "resolving datalog path: %v", err)
	}
	writer, err := datalog.Create(datalogPath)
	if err != nil {
		bridgelog.Fatalf("MAIN", "creating datalog: %v", err)
	}
	defer writer.Close()

	mir, err := mirror.Connect(cfg.Mirror)
	if err != nil {
		bridgelog.Warnf("MAIN", "mirror connect failed, continuing without it: %v", err)
	}
	defer mir.Close()

	reg := registry.New()
	qsurface := query.NewSurface(reg)
	surface := command.New(reg, writer, qsurface)

	ctx, cancel := context.WithCancel(context.Background())

	for _, c := range cfg.Clients {
		ip := net.ParseIP(c.Address)
		if ip == nil {
			bridgelog.Errorf("MAIN", "client %s: invalid address %q, skipping", c.Identity, c.Address)
			continue
		}
		engineCfg := nt4.DefaultConfig()
		if c.ConnectTimeoutMs > 0 {
			engineCfg.ConnectTimeout = time.Duration(c.ConnectTimeoutMs) * time.Millisecond
		}
		if c.DisconnectRetryIntervalMs > 0 {
			engineCfg.DisconnectRetryInterval = time.Duration(c.DisconnectRetryIntervalMs) * time.Millisecond
		}
		engineCfg.OnAnnounce = func(topic, nt4Type string) { mir.NotifyStarted(c.Identity+"/"+topic, nt4Type) }
		engineCfg.OnUnannounce = func(topic string) { mir.NotifyFinished(c.Identity+"/"+topic, 0) }
		if _, err := surface.StartClient(ctx, ip, c.Port, c.Identity, engineCfg); err != nil {
			bridgelog.Errorf("MAIN", "starting client %s: %v", c.Identity, err)
		}
	}

	bridgelog.Infof("MAIN", "telemetry-bridge running, datalog at %s", datalogPath)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	bridgelog.Info("MAIN", "shutting down")
	cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		reg.StopAll()
	}()
	wg.Wait()
}

// resolveDatalogPath builds <documents>/Enoki/Datalogs/YYYY-MM-DD_HH-MM-SS.wpilog
// per spec.md §6, unless override is set, creating the directory if needed.
func resolveDatalogPath(override string) (string, error) {
	dir := override
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		dir = filepath.Join(home, "Documents", "Enoki", "Datalogs")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}
	name := time.Now().Format("2006-01-02_15-04-05") + ".wpilog"
	return filepath.Join(dir, name), nil
}
