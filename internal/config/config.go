package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/OCAP2/drivetrain/internal/drivetrain"
	"github.com/OCAP2/drivetrain/internal/geartable"
	"github.com/OCAP2/drivetrain/pkg/core"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "drivetrain.cfg.json"

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds the in-memory SQLite backend settings.
type SQLiteConfig struct {
	DumpInterval time.Duration
	DumpPath     string
}

// WebSocketConfig holds the streaming backend settings.
type WebSocketConfig struct {
	Path string
}

// StorageConfig selects and configures the recording backend.
type StorageConfig struct {
	Type      string
	Memory    MemoryConfig
	SQLite    SQLiteConfig
	WebSocket WebSocketConfig
}

// DBConfig holds Postgres connection settings.
type DBConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// InfluxConfig holds InfluxDB settings.
type InfluxConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Protocol string
	Token    string
	Org      string
	Bucket   string
}

// APIConfig holds the upload server settings. An empty ServerURL disables uploads.
type APIConfig struct {
	ServerURL string
	APIKey    string
	Timeout   time.Duration
}

// GraylogConfig holds GELF log shipping settings.
type GraylogConfig struct {
	Enabled bool
	Address string
}

// MonitorConfig holds the status file writer settings.
type MonitorConfig struct {
	Enabled    bool
	Interval   time.Duration
	StatusFile string
}

// SteeringConfig holds steering tuning.
type SteeringConfig struct {
	Policy     string
	Rate       float64
	Min        float64
	Max        float64
	MaxAngle   float64
	WheelRatio float64
}

// DrivetrainConfig holds controller tuning and the gear table.
type DrivetrainConfig struct {
	MaxMotorTorque      float64
	HandBrakeLockTorque float64
	AcceleratorUnit     float64
	BrakeUnit           float64
	Steering            SteeringConfig
	GearTable           geartable.Config
	InitialMode         string
	TickRate            time.Duration
	Axles               []core.Axle
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./drivetrainlogs")

	viper.SetDefault("drivetrain.maxMotorTorque", 500.0)
	viper.SetDefault("drivetrain.handBrakeLockTorque", 100000.0)
	viper.SetDefault("drivetrain.acceleratorUnit", 100.0)
	viper.SetDefault("drivetrain.brakeUnit", 1000.0)
	viper.SetDefault("drivetrain.steering.policy", string(drivetrain.SteeringIntegrate))
	viper.SetDefault("drivetrain.steering.rate", 0.5)
	viper.SetDefault("drivetrain.steering.min", -90.0)
	viper.SetDefault("drivetrain.steering.max", 90.0)
	viper.SetDefault("drivetrain.steering.maxAngle", 30.0)
	viper.SetDefault("drivetrain.steering.wheelRatio", 6.0)
	viper.SetDefault("drivetrain.gearTable.scale", geartable.Standard)
	viper.SetDefault("drivetrain.initialMode", "manual")
	viper.SetDefault("drivetrain.tickRate", "20ms")
	viper.SetDefault("drivetrain.axles", []map[string]any{
		{"name": "front", "motor": false, "steering": true},
		{"name": "rear", "motor": true, "steering": false},
	})

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./recordings")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.sqlite.dumpPath", "./recordings/drivetrain.db")
	viper.SetDefault("storage.websocket.path", "/api/telemetry")

	viper.SetDefault("api.serverUrl", "")
	viper.SetDefault("api.apiKey", "")
	viper.SetDefault("api.timeout", "30s")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "drivetrain")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "drivetrain")
	viper.SetDefault("influx.bucket", "drivetrain")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("monitor.enabled", true)
	viper.SetDefault("monitor.interval", "10s")
	viper.SetDefault("monitor.statusFile", "status.txt")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "drivetrain")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetStorageConfig returns the recording backend settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: strings.ToLower(viper.GetString("storage.type")),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
		},
		WebSocket: WebSocketConfig{
			Path: viper.GetString("storage.websocket.path"),
		},
	}
}

// GetDBConfig returns the Postgres connection settings.
func GetDBConfig() DBConfig {
	return DBConfig{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetInfluxConfig returns the InfluxDB settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}

// GetAPIConfig returns the upload server settings.
func GetAPIConfig() APIConfig {
	return APIConfig{
		ServerURL: strings.TrimRight(viper.GetString("api.serverUrl"), "/"),
		APIKey:    viper.GetString("api.apiKey"),
		Timeout:   viper.GetDuration("api.timeout"),
	}
}

// GetGraylogConfig returns the GELF settings.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetMonitorConfig returns the status file settings.
func GetMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Enabled:    viper.GetBool("monitor.enabled"),
		Interval:   viper.GetDuration("monitor.interval"),
		StatusFile: viper.GetString("monitor.statusFile"),
	}
}

// GetDrivetrainConfig returns controller tuning and the gear table settings.
func GetDrivetrainConfig() (DrivetrainConfig, error) {
	dc := DrivetrainConfig{
		MaxMotorTorque:      viper.GetFloat64("drivetrain.maxMotorTorque"),
		HandBrakeLockTorque: viper.GetFloat64("drivetrain.handBrakeLockTorque"),
		AcceleratorUnit:     viper.GetFloat64("drivetrain.acceleratorUnit"),
		BrakeUnit:           viper.GetFloat64("drivetrain.brakeUnit"),
		Steering: SteeringConfig{
			Policy:     viper.GetString("drivetrain.steering.policy"),
			Rate:       viper.GetFloat64("drivetrain.steering.rate"),
			Min:        viper.GetFloat64("drivetrain.steering.min"),
			Max:        viper.GetFloat64("drivetrain.steering.max"),
			MaxAngle:   viper.GetFloat64("drivetrain.steering.maxAngle"),
			WheelRatio: viper.GetFloat64("drivetrain.steering.wheelRatio"),
		},
		InitialMode: viper.GetString("drivetrain.initialMode"),
		TickRate:    viper.GetDuration("drivetrain.tickRate"),
	}

	if err := viper.UnmarshalKey("drivetrain.gearTable", &dc.GearTable); err != nil {
		return dc, fmt.Errorf("error decoding gear table: %w", err)
	}
	if err := viper.UnmarshalKey("drivetrain.axles", &dc.Axles); err != nil {
		return dc, fmt.Errorf("error decoding axles: %w", err)
	}
	if dc.TickRate <= 0 {
		return dc, fmt.Errorf("drivetrain.tickRate must be positive, got %v", dc.TickRate)
	}

	return dc, nil
}

// Controller converts the settings into a validated controller config.
func (dc DrivetrainConfig) Controller() (drivetrain.Config, error) {
	cfg := drivetrain.DefaultConfig()

	policy, err := drivetrain.ParseSteeringPolicy(dc.Steering.Policy)
	if err != nil {
		return cfg, err
	}
	mode, err := core.ParseTransmissionMode(dc.InitialMode)
	if err != nil {
		return cfg, err
	}

	cfg.MaxMotorTorque = dc.MaxMotorTorque
	cfg.HandBrakeLockTorque = dc.HandBrakeLockTorque
	cfg.AcceleratorUnit = dc.AcceleratorUnit
	cfg.BrakeUnit = dc.BrakeUnit
	cfg.Steering = policy
	cfg.SteeringRate = dc.Steering.Rate
	cfg.MinSteer = dc.Steering.Min
	cfg.MaxSteer = dc.Steering.Max
	cfg.MaxSteeringAngle = dc.Steering.MaxAngle
	cfg.SteeringWheelRatio = dc.Steering.WheelRatio
	cfg.Initial.Mode = mode
	if len(dc.Axles) > 0 {
		cfg.Axles = dc.Axles
	}

	return cfg, cfg.Validate()
}

// Table builds the gear table. A positive scale replaces the configured one.
func (dc DrivetrainConfig) Table(scale float64) (*geartable.Table, error) {
	tc := dc.GearTable
	if scale > 0 {
		tc.Scale = scale
	}
	return geartable.New(tc)
}
