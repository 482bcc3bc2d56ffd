package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/OCAP2/drivetrain/internal/config"
	"github.com/OCAP2/drivetrain/internal/influx"
	"github.com/OCAP2/drivetrain/internal/storage"
	influxstorage "github.com/OCAP2/drivetrain/internal/storage/influx"
	"github.com/OCAP2/drivetrain/internal/storage/memory"
	pgstorage "github.com/OCAP2/drivetrain/internal/storage/postgres"
	sqlitestorage "github.com/OCAP2/drivetrain/internal/storage/sqlite"
	wsstorage "github.com/OCAP2/drivetrain/internal/storage/websocket"
	"github.com/OCAP2/drivetrain/internal/util"
	"github.com/spf13/viper"
)

// initStorage creates the configured backend, adds the InfluxDB mirror when
// enabled and initializes both.
func initStorage() error {
	storageCfg := config.GetStorageConfig()

	backend, err := createStorageBackend(storageCfg)
	if err != nil {
		Logger.Error("Failed to create storage backend", "error", err)
		return err
	}

	if ic := config.GetInfluxConfig(); ic.Enabled {
		backupPath := filepath.Join(viper.GetString("logsDir"), "influx_backup.log.gz")
		influxManager = influx.NewManager(ic, ZeroLogger.With().Str("component", "influx").Logger(), backupPath)
		backend = storage.Multi{backend, influxstorage.New(influxManager)}
		Logger.Info("InfluxDB mirror enabled", "url", influxManager.ServerURL(), "bucket", ic.Bucket)
	}

	storageBackend = backend
	if err := storageBackend.Init(); err != nil {
		Logger.Error("Failed to initialize storage backend", "error", err)
		return err
	}
	Logger.Info("Storage backend ready", "type", storageCfg.Type)
	return nil
}

var storageTypes = []string{"memory", "sqlite", "postgres", "websocket"}

func createStorageBackend(storageCfg config.StorageConfig) (storage.Backend, error) {
	if storageCfg.Type != "" && !util.Contains(storageTypes, storageCfg.Type) {
		Logger.Warn("Unknown storage type, falling back to memory", "type", storageCfg.Type)
	}

	switch storageCfg.Type {
	case "postgres":
		Logger.Info("Postgres storage backend initialized")
		return pgstorage.New(pgstorage.Dependencies{
			Config: config.GetDBConfig(),
			Logger: Logger.With("component", "postgres"),
		}), nil

	case "sqlite":
		dumpPath := storageCfg.SQLite.DumpPath
		if dumpPath == "" {
			dumpPath = filepath.Join(viper.GetString("logsDir"), fmt.Sprintf("%s_%s.db", ServiceName, SessionStartTime.Format("20060102_150405")))
		}
		backend, err := sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: storageCfg.SQLite.DumpInterval,
			DumpPath:     dumpPath,
		}, Logger.With("component", "sqlite"))
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		Logger.Info("SQLite storage backend initialized", "dumpPath", dumpPath)
		return backend, nil

	case "websocket":
		serverURL := viper.GetString("api.serverUrl")
		if serverURL == "" {
			return nil, fmt.Errorf("websocket storage requires api.serverUrl")
		}
		wsURL := httpToWS(serverURL) + storageCfg.WebSocket.Path
		Logger.Info("WebSocket storage backend initialized", "url", wsURL)
		return wsstorage.New(wsstorage.Config{
			URL:    wsURL,
			Secret: viper.GetString("api.apiKey"),
		}, Logger.With("component", "websocket")), nil

	default:
		Logger.Info("Memory storage backend initialized", "outputDir", storageCfg.Memory.OutputDir)
		return memory.New(storageCfg.Memory), nil
	}
}

// httpToWS converts an HTTP(S) URL to a WebSocket URL.
func httpToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}
