//go:build linux

// sparkd is a Spark2 neighbor discovery daemon with an embedded FIB
// programming facade. Linux-only: internal/netio's multicast/unicast
// sockets use Linux-specific control-message plumbing (IP_PKTINFO).
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"os"
	"os/signal"
	"runtime/trace"
	"syscall"
	"time"

	"connectrpc.com/grpchealth"
	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/openr-go/sparkd/internal/config"
	"github.com/openr-go/sparkd/internal/fib"
	"github.com/openr-go/sparkd/internal/gobgp"
	"github.com/openr-go/sparkd/internal/ifcache"
	sparkmetrics "github.com/openr-go/sparkd/internal/metrics"
	"github.com/openr-go/sparkd/internal/netio"
	"github.com/openr-go/sparkd/internal/spark2"
	"github.com/openr-go/sparkd/internal/spark2msg"
	appversion "github.com/openr-go/sparkd/internal/version"
)

// shutdownTimeout is the maximum time to wait for HTTP servers to drain
// active connections during graceful shutdown.
const shutdownTimeout = 10 * time.Second

// flightRecorderMinAge is the minimum window age for the flight recorder.
const flightRecorderMinAge = 500 * time.Millisecond

// flightRecorderMaxBytes is the upper bound on flight recorder window size.
const flightRecorderMaxBytes = 2 * 1024 * 1024 // 2 MiB

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to configuration file (YAML)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("failed to load configuration",
			slog.String("error", err.Error()),
		)
		return 1
	}

	logLevel := new(slog.LevelVar)
	logLevel.Set(config.ParseLogLevel(cfg.Log.Level))
	logger := newLoggerWithLevel(cfg.Log, logLevel)

	logger.Info("sparkd starting",
		slog.String("version", appversion.Version),
		slog.String("grpc_addr", cfg.GRPC.Addr),
		slog.String("metrics_addr", cfg.Metrics.Addr),
	)

	fr := startFlightRecorder(logger)

	reg := prometheus.NewRegistry()
	collector := sparkmetrics.NewCollector(reg)

	ifaces := ifcache.New(stdlibLinkProvider{})
	facade := fib.NewFacade(nullTransport{stdlibLinkProvider{}}, ifaces, logger)

	helloSender := netio.NewHelloSender(logger)

	engine, err := newEngine(cfg, logger, collector, helloSender)
	if err != nil {
		logger.Error("failed to construct spark2 engine", slog.String("error", err.Error()))
		return 1
	}
	defer engine.Close()

	if err := runServers(cfg, engine, facade, helloSender, reg, collector, logger, *configPath, logLevel, fr); err != nil {
		logger.Error("sparkd exited with error", slog.String("error", err.Error()))
		return 1
	}

	logger.Info("sparkd stopped")
	return 0
}

// newEngine builds a spark2.Engine from the daemon config, wiring the
// Prometheus collector in as its Metrics sink.
func newEngine(cfg *config.Config, logger *slog.Logger, collector *sparkmetrics.Collector, sender *netio.HelloSender) (*spark2.Engine, error) {
	sc := spark2.Config{
		NodeName:              cfg.Node.NodeName,
		DomainName:            cfg.Node.DomainName,
		EnableV4:              cfg.Node.EnableV4,
		EnableSpark2:          cfg.Node.EnableSpark2,
		IncreaseHelloInterval: cfg.Node.IncreaseHelloInterval,
		HelloTime:             cfg.Spark2.HelloTime,
		KeepAliveTime:         cfg.Spark2.KeepAliveTime,
		FastInitKeepAliveTime: cfg.Spark2.FastInitKeepAliveTime,
		HandshakeTime:         cfg.Spark2.HandshakeTime,
		HeartbeatTime:         cfg.Spark2.HeartbeatTime,
		NegotiateHoldTime:     cfg.Spark2.NegotiateHoldTime,
		HeartbeatHoldTime:     cfg.Spark2.HeartbeatHoldTime,
		GRHoldTime:            cfg.Spark2.GRHoldTime,
		Version:               cfg.Spark2.Version,
		SupportedVersion:      cfg.Spark2.SupportedVersion,
		RTTChangeTolerance:    cfg.Spark2.RTTChangeTolerance,
		Areas:                 areaEntries(cfg.Areas),
	}

	engine, err := spark2.NewEngine(sc, logger,
		spark2.WithSender(sender),
		spark2.WithEngineMetrics(collector),
	)
	if err != nil {
		return nil, fmt.Errorf("new spark2 engine: %w", err)
	}
	return engine, nil
}

func areaEntries(areas []config.AreaConfig) []spark2msg.AreaEntry {
	out := make([]spark2msg.AreaEntry, 0, len(areas))
	for _, a := range areas {
		out = append(out, spark2msg.AreaEntry{
			AreaID:           a.AreaID,
			NeighborRegexes:  a.NeighborRegexes,
			InterfaceRegexes: a.InterfaceRegexes,
		})
	}
	return out
}

// runServers sets up and runs the gRPC, debug, and metrics HTTP servers
// using an errgroup with signal-aware context for graceful shutdown.
func runServers(
	cfg *config.Config,
	engine *spark2.Engine,
	facade *fib.Facade,
	helloSender *netio.HelloSender,
	reg *prometheus.Registry,
	collector *sparkmetrics.Collector,
	logger *slog.Logger,
	configPath string,
	logLevel *slog.LevelVar,
	fr *trace.FlightRecorder,
) error {
	metricsSrv := newMetricsServer(cfg.Metrics, reg)
	grpcSrv := newGRPCServer(cfg.GRPC, facade, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	listeners, bindings, closeNetio, err := setupNetio(gCtx, helloSender, logger)
	if err != nil {
		return fmt.Errorf("setup netio: %w", err)
	}
	defer closeNetio()

	if err := engine.UpdateInterfaceDb(bindings); err != nil {
		return fmt.Errorf("update interface db: %w", err)
	}

	recv := netio.NewReceiver(engine, logger)
	g.Go(func() error {
		if len(listeners) == 0 {
			logger.Warn("no Spark2-eligible interfaces found; receiver idle")
			<-gCtx.Done()
			return nil
		}
		return recv.Run(gCtx, listeners...)
	})

	startHTTPServers(gCtx, g, cfg, grpcSrv, metricsSrv, logger)
	startDaemonGoroutines(gCtx, g, configPath, logLevel, logger)
	g.Go(func() error {
		return forwardNeighborEvents(gCtx, engine, facade, collector)
	})

	bgpCloser, err := startGoBGPHandler(cfg.BGP, facade, logger)
	if err != nil {
		return fmt.Errorf("start gobgp handler: %w", err)
	}
	defer closeGoBGPClient(bgpCloser, logger)

	notifyReady(logger)

	g.Go(func() error {
		<-gCtx.Done()
		return gracefulShutdown(gCtx, engine, logger, fr, grpcSrv, metricsSrv)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run servers: %w", err)
	}
	return nil
}

// forwardNeighborEvents relays engine lifecycle events into the FIB
// facade's observer fanout and keeps the route-count gauge current
// (spec.md §2 "Neighbor lifecycle events -> both the FIB facade's
// observer registry and the daemon's own metrics").
func forwardNeighborEvents(ctx context.Context, engine *spark2.Engine, facade *fib.Facade, collector *sparkmetrics.Collector) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-engine.Events():
			if !ok {
				return nil
			}
			kind := fib.NeighborAdded
			if ev.Kind == spark2.EventDown {
				kind = fib.NeighborRemoved
			}
			facade.NotifyNeighborChanged(fib.NeighborChange{
				Kind:           kind,
				IfName:         ev.Key.IfName,
				RemoteNodeName: ev.Key.RemoteNodeName,
				Area:           ev.Area,
				TransportV4:    ev.TransportV4,
			})
			collector.SetNumRoutes(facade.GetCounters()["fibagent.num_of_routes"])
		}
	}
}

func startHTTPServers(ctx context.Context, g *errgroup.Group, cfg *config.Config, grpcSrv, metricsSrv *http.Server, logger *slog.Logger) {
	lc := net.ListenConfig{}

	g.Go(func() error {
		logger.Info("gRPC server listening", slog.String("addr", cfg.GRPC.Addr))
		return listenAndServe(ctx, &lc, grpcSrv, cfg.GRPC.Addr)
	})

	g.Go(func() error {
		logger.Info("metrics server listening",
			slog.String("addr", cfg.Metrics.Addr),
			slog.String("path", cfg.Metrics.Path),
		)
		return listenAndServe(ctx, &lc, metricsSrv, cfg.Metrics.Addr)
	})
}

func startDaemonGoroutines(ctx context.Context, g *errgroup.Group, configPath string, logLevel *slog.LevelVar, logger *slog.Logger) {
	g.Go(func() error {
		return runWatchdog(ctx, logger)
	})

	sigHUP := make(chan os.Signal, 1)
	signal.Notify(sigHUP, syscall.SIGHUP)
	g.Go(func() error {
		defer signal.Stop(sigHUP)
		handleSIGHUP(ctx, sigHUP, configPath, logLevel, logger)
		return nil
	})
}

func closeGoBGPClient(client gobgp.Client, logger *slog.Logger) {
	if client == nil {
		return
	}
	if err := client.Close(); err != nil {
		logger.Warn("failed to close gobgp client", slog.String("error", err.Error()))
	}
}

// -------------------------------------------------------------------------
// Systemd Integration — sd_notify + watchdog
// -------------------------------------------------------------------------

func notifyReady(logger *slog.Logger) {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		logger.Warn("failed to notify systemd readiness", slog.String("error", err.Error()))
		return
	}
	if sent {
		logger.Info("notified systemd: READY")
	}
}

func notifyStopping(logger *slog.Logger) {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyStopping)
	if err != nil {
		logger.Warn("failed to notify systemd stopping", slog.String("error", err.Error()))
		return
	}
	if sent {
		logger.Info("notified systemd: STOPPING")
	}
}

func runWatchdog(ctx context.Context, logger *slog.Logger) error {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		logger.Warn("failed to check systemd watchdog", slog.String("error", err.Error()))
		return nil
	}
	if interval == 0 {
		logger.Debug("systemd watchdog not configured, skipping keepalive")
		return nil
	}

	tickInterval := interval / 2
	logger.Info("systemd watchdog enabled",
		slog.Duration("watchdog_sec", interval),
		slog.Duration("keepalive_interval", tickInterval),
	)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, wdErr := daemon.SdNotify(false, daemon.SdNotifyWatchdog); wdErr != nil {
				logger.Warn("failed to send watchdog keepalive", slog.String("error", wdErr.Error()))
			}
		}
	}
}

// -------------------------------------------------------------------------
// SIGHUP Reload — log level only; Spark2 interface bindings are set once at
// startup via UpdateInterfaceDb and are not reconciled afterwards.
// -------------------------------------------------------------------------

func handleSIGHUP(ctx context.Context, sigHUP <-chan os.Signal, configPath string, logLevel *slog.LevelVar, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sigHUP:
			logger.Info("received SIGHUP, reloading configuration")
			reloadConfig(configPath, logLevel, logger)
		}
	}
}

func reloadConfig(configPath string, logLevel *slog.LevelVar, logger *slog.Logger) {
	newCfg, err := loadConfig(configPath)
	if err != nil {
		logger.Error("failed to reload configuration, keeping current settings", slog.String("error", err.Error()))
		return
	}

	oldLevel := logLevel.Level()
	newLevel := config.ParseLogLevel(newCfg.Log.Level)
	logLevel.Set(newLevel)

	logger.Info("configuration reloaded",
		slog.String("old_log_level", oldLevel.String()),
		slog.String("new_log_level", newLevel.String()),
	)
}

// -------------------------------------------------------------------------
// Graceful Shutdown
// -------------------------------------------------------------------------

func gracefulShutdown(ctx context.Context, engine *spark2.Engine, logger *slog.Logger, fr *trace.FlightRecorder, servers ...*http.Server) error {
	logger.Info("initiating graceful shutdown")
	notifyStopping(logger)

	if err := engine.Close(); err != nil {
		logger.Warn("error closing spark2 engine", slog.String("error", err.Error()))
	}

	if fr != nil {
		fr.Stop()
		logger.Debug("flight recorder stopped")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	var shutdownErr error
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			shutdownErr = errors.Join(shutdownErr, fmt.Errorf("shutdown server: %w", err))
		}
	}
	return shutdownErr
}

// -------------------------------------------------------------------------
// Flight Recorder — Go 1.26 runtime/trace
// -------------------------------------------------------------------------

func startFlightRecorder(logger *slog.Logger) *trace.FlightRecorder {
	fr := trace.NewFlightRecorder(trace.FlightRecorderConfig{
		MinAge:   flightRecorderMinAge,
		MaxBytes: flightRecorderMaxBytes,
	})

	if err := fr.Start(); err != nil {
		logger.Warn("failed to start flight recorder", slog.String("error", err.Error()))
		return nil
	}

	logger.Info("flight recorder started",
		slog.Duration("min_age", flightRecorderMinAge),
		slog.Uint64("max_bytes", flightRecorderMaxBytes),
	)

	return fr
}

// -------------------------------------------------------------------------
// Server Setup
// -------------------------------------------------------------------------

func listenAndServe(ctx context.Context, lc *net.ListenConfig, srv *http.Server, addr string) error {
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve on %s: %w", addr, err)
	}
	return nil
}

func newMetricsServer(cfg config.MetricsConfig, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// newGRPCServer creates an HTTP server exposing the gRPC health check
// surface (grpc.health.v1) and a plain JSON debug endpoint over the FIB
// facade. A generated ConnectRPC service (as the teacher's BFD daemon
// exposes) is not built here: no .proto schema for sparkd's RPCs exists in
// this repo, and fabricating generated stubs is out of scope; operators
// instead introspect state through /debug/* and Prometheus.
func newGRPCServer(cfg config.GRPCConfig, facade *fib.Facade, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()

	mux.Handle("/debug/", newDebugHandler(facade, logger))

	checker := grpchealth.NewStaticChecker(grpchealth.HealthV1ServiceName)
	mux.Handle(grpchealth.NewHandler(checker))

	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// newDebugHandler serves a small JSON snapshot of the FIB facade's
// counters and alive-since timestamp, the closest thing this daemon has
// to the teacher's ConnectRPC introspection surface absent a generated
// service schema.
func newDebugHandler(facade *fib.Facade, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/debug/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		status := struct {
			Status     int              `json:"status"`
			AliveSince int64            `json:"alive_since"`
			RunState   int              `json:"run_state"`
			Counters   map[string]int64 `json:"counters"`
		}{
			Status:     int(facade.GetStatus()),
			AliveSince: facade.AliveSince(),
			RunState:   int(facade.GetSwitchRunState()),
			Counters:   facade.GetCounters(),
		}
		if err := json.NewEncoder(w).Encode(status); err != nil {
			logger.Warn("failed to encode debug status", slog.String("error", err.Error()))
		}
	})

	return mux
}

// -------------------------------------------------------------------------
// GoBGP Integration
// -------------------------------------------------------------------------

func startGoBGPHandler(cfg config.BGPConfig, facade *fib.Facade, logger *slog.Logger) (gobgp.Client, error) {
	if !cfg.Enabled {
		logger.Info("gobgp integration disabled")
		return nil, nil
	}

	client, err := gobgp.NewGRPCClient(gobgp.GRPCClientConfig{Addr: cfg.Addr}, logger)
	if err != nil {
		return nil, fmt.Errorf("create gobgp client: %w", err)
	}

	dampener := gobgp.NewDampener(gobgp.DampeningConfig{
		Enabled:           cfg.DampeningEnabled,
		SuppressThreshold: cfg.DampeningSuppressThreshold,
		ReuseThreshold:    cfg.DampeningReuseThreshold,
		MaxSuppressTime:   cfg.DampeningMaxSuppressTime,
		HalfLife:          cfg.DampeningHalfLife,
	}, logger)

	notifier := fib.NewBGPNotifier(client, dampener, logger)
	facade.RegisterForNeighborChanged(notifier.Callback)

	logger.Info("gobgp integration enabled",
		slog.String("addr", cfg.Addr),
		slog.Bool("dampening", cfg.DampeningEnabled),
	)

	return client, nil
}

// -------------------------------------------------------------------------
// Config & Logging
// -------------------------------------------------------------------------

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load config from %s: %w", path, err)
		}
		return cfg, nil
	}
	return config.DefaultConfig(), nil
}

func newLoggerWithLevel(cfg config.LogConfig, level *slog.LevelVar) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// -------------------------------------------------------------------------
// Network Setup — per-interface multicast listener + unicast sender
// -------------------------------------------------------------------------

// setupNetio enumerates the host's non-loopback, up, IPv4-addressed
// interfaces and, for each, opens a Spark2 multicast listener plus a
// unicast sender registered into helloSender, returning the resulting
// listeners, the InterfaceBinding set to hand to Engine.UpdateInterfaceDb,
// and a cleanup func that closes every opened socket.
func setupNetio(ctx context.Context, helloSender *netio.HelloSender, logger *slog.Logger) ([]*netio.Listener, []spark2msg.InterfaceBinding, func() error, error) {
	ifs, err := net.Interfaces()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("enumerate interfaces: %w", err)
	}

	var (
		listeners []*netio.Listener
		bindings  []spark2msg.InterfaceBinding
		closers   []func() error
	)

	for _, ifi := range ifs {
		if ifi.Flags&net.FlagUp == 0 || ifi.Flags&net.FlagLoopback != 0 || ifi.Flags&net.FlagMulticast == 0 {
			continue
		}

		v4, v4net, ok := firstIPv4(ifi)
		if !ok {
			continue
		}

		mcastConn, err := netio.NewMulticastListener(ctx, ifi.Index, ifi.Name)
		if err != nil {
			logger.Warn("failed to open multicast listener, skipping interface",
				slog.String("interface", ifi.Name), slog.String("error", err.Error()))
			continue
		}
		closers = append(closers, mcastConn.Close)
		listeners = append(listeners, netio.NewListener(mcastConn))

		sender, err := netio.NewUDPSender(v4, netio.UnicastPort, logger)
		if err != nil {
			logger.Warn("failed to open unicast sender, skipping interface",
				slog.String("interface", ifi.Name), slog.String("error", err.Error()))
			continue
		}
		closers = append(closers, sender.Close)
		helloSender.Register(ifi.Name, sender)

		bindings = append(bindings, spark2msg.InterfaceBinding{
			IfName:   ifi.Name,
			IfIndex:  ifi.Index,
			IPv4CIDR: v4net,
		})
	}

	cleanup := func() error {
		var joined error
		for _, name := range bindingNames(bindings) {
			helloSender.Unregister(name)
		}
		for _, c := range closers {
			if err := c(); err != nil {
				joined = errors.Join(joined, err)
			}
		}
		return joined
	}

	return listeners, bindings, cleanup, nil
}

func bindingNames(bindings []spark2msg.InterfaceBinding) []string {
	names := make([]string, 0, len(bindings))
	for _, b := range bindings {
		names = append(names, b.IfName)
	}
	return names
}

// firstIPv4 returns the first usable IPv4 address configured on ifi,
// as both a bare address (for the sender's local bind) and a prefix
// (for the InterfaceBinding).
func firstIPv4(ifi net.Interface) (netip.Addr, netip.Prefix, bool) {
	addrs, err := ifi.Addrs()
	if err != nil {
		return netip.Addr{}, netip.Prefix{}, false
	}

	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		v4 := ipnet.IP.To4()
		if v4 == nil {
			continue
		}
		addr, ok := netip.AddrFromSlice(v4)
		if !ok {
			continue
		}
		ones, _ := ipnet.Mask.Size()
		return addr, netip.PrefixFrom(addr, ones), true
	}
	return netip.Addr{}, netip.Prefix{}, false
}

// -------------------------------------------------------------------------
// stdlib-backed interface cache provider
// -------------------------------------------------------------------------

// stdlibLinkProvider implements ifcache.LinkProvider using net.Interfaces,
// giving the Interface Cache a real, non-fabricated source of name/index
// pairs without requiring a netlink client dependency.
type stdlibLinkProvider struct{}

func (stdlibLinkProvider) GetAllLinks(_ context.Context) ([]ifcache.Link, error) {
	ifs, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("enumerate interfaces: %w", err)
	}

	out := make([]ifcache.Link, 0, len(ifs))
	for _, ifi := range ifs {
		out = append(out, ifcache.Link{
			Index:    ifi.Index,
			Name:     ifi.Name,
			Loopback: ifi.Flags&net.FlagLoopback != 0,
		})
	}
	return out, nil
}

// nullTransport satisfies fib.Transport's read-side (name/index resolution)
// for real, via the embedded LinkProvider, but refuses route-programming
// calls: the kernel netlink transport itself is an explicit non-goal of
// this repo (internal/fib/transport.go), and no netlink client library is
// present anywhere in the example pack this daemon was grounded on.
// A production deployment swaps this for a genuine netlink-backed
// fib.Transport.
type nullTransport struct {
	ifcache.LinkProvider
}

var errNoTransport = errors.New("fib: no kernel netlink transport wired into this build")

func (nullTransport) AddRoute(context.Context, fib.KernelRoute) error { return errNoTransport }
func (nullTransport) DeleteRoute(context.Context, int, netip.Prefix) error {
	return errNoTransport
}
func (nullTransport) DeleteMplsRoute(context.Context, int, uint32) error { return errNoTransport }
func (nullTransport) SyncRoutes(context.Context, int, []fib.KernelRoute) error {
	return errNoTransport
}
func (nullTransport) SyncMplsRoutes(context.Context, int, []fib.KernelRoute) error {
	return errNoTransport
}
func (nullTransport) GetRoutes(context.Context, int) ([]fib.KernelRoute, error) {
	return nil, errNoTransport
}
func (nullTransport) GetMplsRoutes(context.Context, int) ([]fib.KernelRoute, error) {
	return nil, errNoTransport
}
