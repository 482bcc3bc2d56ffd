package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/OCAP2/drivetrain/internal/api"
	"github.com/OCAP2/drivetrain/internal/cache"
	"github.com/OCAP2/drivetrain/internal/config"
	"github.com/OCAP2/drivetrain/internal/dispatcher"
	"github.com/OCAP2/drivetrain/internal/handlers"
	"github.com/OCAP2/drivetrain/internal/influx"
	"github.com/OCAP2/drivetrain/internal/logging"
	"github.com/OCAP2/drivetrain/internal/monitor"
	intOtel "github.com/OCAP2/drivetrain/internal/otel"
	"github.com/OCAP2/drivetrain/internal/parser"
	"github.com/OCAP2/drivetrain/internal/presentation"
	"github.com/OCAP2/drivetrain/internal/runner"
	"github.com/OCAP2/drivetrain/internal/storage"
	"github.com/OCAP2/drivetrain/internal/worker"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.1.0"
	BuildDate      string = "unknown"

	ServiceName string = "drivetrain"
)

var (
	// ConfigDir holds drivetrain.cfg.json. DRIVETRAIN_CONFIG_DIR overrides it.
	ConfigDir string = "."

	LogFilePath string
	LogFile     *os.File

	SessionStartTime time.Time = time.Now()
)

var (
	SlogManager  *logging.SlogManager
	Logger       *slog.Logger
	ZeroLogger   zerolog.Logger
	OTelProvider *intOtel.Provider

	CarCache *cache.CarCache = cache.NewCarCache()

	eventDispatcher *dispatcher.Dispatcher
	storageBackend  storage.Backend
	influxManager   *influx.Manager
	workerManager   *worker.Manager
	handlerService  *handlers.Service
	monitorService  *monitor.Service
	apiClient       *api.Client
)

func usage() {
	fmt.Fprintf(os.Stderr, `drivetrain %s (%s)

Usage:
  drivetrain replay <script.json> [out.json]   replay a scripted drive, write the tick log
  drivetrain live                              read commands from stdin, tick in real time
  drivetrain setupdb                           create the recording tables
  drivetrain migratebackups                    copy SQLite dumps into Postgres
  drivetrain version
`, CurrentVersion, BuildDate)
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}
	if dir := os.Getenv("DRIVETRAIN_CONFIG_DIR"); dir != "" {
		ConfigDir = dir
	}

	var err error
	switch strings.ToLower(args[0]) {
	case "version":
		fmt.Println(CurrentVersion, BuildDate)
		return
	case "replay":
		if len(args) < 2 {
			usage()
			os.Exit(2)
		}
		setupLogging()
		err = runReplay(args[1:])
	case "live":
		setupLogging()
		err = runLive()
	case "setupdb":
		setupLogging()
		err = setupDB()
	case "migratebackups":
		setupLogging()
		err = migrateBackupsSqlite()
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		Logger.Error("Command failed", "command", args[0], "error", err)
	}
	shutdown()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupLogging loads the config and wires file, GELF and OTel log outputs.
func setupLogging() {
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(nil, "info", nil)
	Logger = SlogManager.Logger()

	if err := config.Load(ConfigDir); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config", "dir", ConfigDir)
	}

	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		Logger.Error("Failed to create logs directory", "error", err, "path", logsDir)
	}

	LogFilePath = logging.LogFilePath(logsDir, ServiceName, SessionStartTime)
	if _, err := os.Stat(LogFilePath); err == nil {
		_ = os.Rename(LogFilePath, LogFilePath+".old")
	}
	var err error
	LogFile, err = os.OpenFile(LogFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "path", LogFilePath)
		LogFile = nil
	}

	var logOut io.Writer = os.Stdout
	if LogFile != nil {
		logOut = LogFile
	}
	ZeroLogger = zerolog.New(logOut).With().Timestamp().Str("service", ServiceName).Logger()

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		OTelProvider, err = intOtel.New(intOtel.Config{
			Enabled:      otelCfg.Enabled,
			ServiceName:  otelCfg.ServiceName,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    logOut,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		})
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
			OTelProvider = nil
		} else {
			Logger.Info("OTel provider initialized", "endpoint", otelCfg.Endpoint)
		}
	}

	opts := []logging.Option{
		logging.WithServiceName(otelCfg.ServiceName),
		logging.WithContext(func() []slog.Attr {
			return []slog.Attr{slog.Int("cars", CarCache.Len())}
		}),
	}
	if gc := config.GetGraylogConfig(); gc.Enabled {
		w, err := logging.NewGraylogWriter(gc.Address)
		if err != nil {
			Logger.Error("Failed to connect to Graylog", "error", err, "address", gc.Address)
		} else {
			opts = append(opts, logging.WithGraylog(w))
		}
	}

	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}
	var fileOut io.Writer
	if LogFile != nil {
		fileOut = LogFile
	}
	SlogManager.Setup(fileOut, viper.GetString("logLevel"), otelLogProvider, opts...)
	Logger = SlogManager.Logger()
	slog.SetDefault(Logger)
	Logger.Info("Logging to file", "path", LogFilePath, "version", CurrentVersion)
}

// startServices builds the dispatcher, recording pipeline, input handlers
// and monitor. sink, when set, becomes every car's display.
func startServices(now func() time.Time, sink func(carID string) presentation.Sink) error {
	var err error

	eventDispatcher, err = dispatcher.New(logging.NewDispatcherLogger(Logger))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}
	registerLifecycleHandlers(eventDispatcher)

	if err := initStorage(); err != nil {
		return err
	}

	workerManager = worker.NewManager(worker.Dependencies{
		Backend: storageBackend,
		Logger:  Logger.With("component", "worker"),
	})
	workerManager.RegisterHandlers(eventDispatcher)
	Logger.Info("Worker handlers registered with dispatcher")

	dtCfg, err := config.GetDrivetrainConfig()
	if err != nil {
		return fmt.Errorf("invalid drivetrain config: %w", err)
	}

	deps := handlers.Dependencies{
		Cars:       CarCache,
		Parser:     parser.NewParser(Logger),
		Drivetrain: dtCfg,
		Backend:    storageBackend,
		Recorder:   workerManager,
		Logger:     Logger,
		Sink:       sink,
		Now:        now,
	}
	if apiCfg := config.GetAPIConfig(); apiCfg.ServerURL != "" {
		apiClient = api.New(apiCfg.ServerURL, apiCfg.APIKey, apiCfg.Timeout)
		checkServerStatus()
		deps.Uploader = apiClient
	}
	if influxManager != nil {
		deps.Metrics = influxManager
	}
	handlerService = handlers.NewService(deps)
	handlerService.RegisterHandlers(eventDispatcher)
	Logger.Info("Input handlers registered", "commands", len(eventDispatcher.Commands()))

	if mc := config.GetMonitorConfig(); mc.Enabled {
		statusFile := mc.StatusFile
		if !filepath.IsAbs(statusFile) {
			statusFile = filepath.Join(viper.GetString("logsDir"), statusFile)
		}
		mdeps := monitor.Dependencies{
			Cars:       CarCache,
			Recorder:   workerManager,
			Logger:     Logger.With("component", "monitor"),
			StatusFile: statusFile,
			Interval:   mc.Interval,
		}
		if influxManager != nil {
			mdeps.Influx = influxManager
		}
		monitorService = monitor.NewService(mdeps)
		if err := monitorService.Start(); err != nil {
			Logger.Warn("Failed to start status monitor", "error", err)
		}
	}
	return nil
}

func checkServerStatus() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiClient.Healthcheck(ctx); err != nil {
		Logger.Info("Telemetry server is offline", "error", err)
	} else {
		Logger.Info("Telemetry server is online")
	}
}

// runReplay replays a script file and writes the tick log to out, or stdout.
func runReplay(args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}
	script, err := runner.ParseScript(data)
	if err != nil {
		return err
	}

	dtCfg, err := config.GetDrivetrainConfig()
	if err != nil {
		return fmt.Errorf("invalid drivetrain config: %w", err)
	}
	clock := runner.NewStepClock(SessionStartTime, dtCfg.TickRate)
	if err := startServices(clock.Now, nil); err != nil {
		return err
	}

	r := runner.New(eventDispatcher, CarCache, runner.Config{
		TickRate: dtCfg.TickRate,
		Logger:   Logger,
		Clock:    clock,
	})
	start := time.Now()
	records, err := r.Replay(script)
	if err != nil {
		return err
	}
	Logger.Info("Replay finished", "steps", script.Steps, "records", len(records), "duration", time.Since(start))

	out, err := runner.MarshalRecords(records)
	if err != nil {
		return err
	}
	if len(args) > 1 {
		return os.WriteFile(args[1], out, 0644)
	}
	_, err = os.Stdout.Write(append(out, '\n'))
	return err
}

// runLive ticks every car in real time and feeds stdin lines to the
// dispatcher until stdin closes or the process is interrupted.
func runLive() error {
	dtCfg, err := config.GetDrivetrainConfig()
	if err != nil {
		return fmt.Errorf("invalid drivetrain config: %w", err)
	}
	hud := presentation.NewHUD(os.Stderr)
	if err := startServices(time.Now, func(string) presentation.Sink { return hud }); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := runner.New(eventDispatcher, CarCache, runner.Config{TickRate: dtCfg.TickRate, Logger: Logger})
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	// stdin reads do not observe ctx.
	fed := make(chan struct{})
	go func() {
		defer close(fed)
		if err := r.Feed(ctx, os.Stdin); err != nil {
			Logger.Error("Reading input failed", "error", err)
		}
	}()

	select {
	case <-fed:
	case <-ctx.Done():
	}
	stop()
	return <-done
}

// shutdown removes remaining cars so their sessions are closed, then drains
// and closes everything in reverse start order.
func shutdown() {
	if Logger == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if eventDispatcher != nil && handlerService != nil {
		for _, id := range CarCache.IDs() {
			if _, err := eventDispatcher.Dispatch(dispatcher.Event{Command: handlers.CmdRemoveCar, Args: []string{id}}); err != nil {
				Logger.Warn("Failed to close car session", "car", id, "error", err)
			}
		}
	}
	if monitorService != nil {
		monitorService.Stop()
	}
	if eventDispatcher != nil {
		if err := eventDispatcher.Close(ctx); err != nil {
			Logger.Warn("Dispatcher did not drain", "error", err)
		}
	}
	if storageBackend != nil {
		if err := storageBackend.Close(); err != nil {
			Logger.Error("Failed to close storage backend", "error", err)
		}
	}
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(ctx); err != nil {
			Logger.Warn("Failed to shut down OTel provider", "error", err)
		}
	}
	if SlogManager != nil {
		_ = SlogManager.Flush(ctx)
	}
	if LogFile != nil {
		_ = LogFile.Close()
	}
}
