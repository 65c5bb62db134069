package config

import (
	"encoding/json"
	"os"
	"strconv"

	"github.com/c360/linewatch/errors"
)

// Loader builds a Config by layering defaults, an optional JSON file and
// LINEWATCH_* environment overrides, then validating the result.
type Loader struct {
	validate bool
}

// NewLoader returns a loader with validation enabled.
func NewLoader() *Loader {
	return &Loader{validate: true}
}

// EnableValidation toggles final validation; tests use this to build
// deliberately broken configs.
func (l *Loader) EnableValidation(enable bool) {
	l.validate = enable
}

// Defaults returns the built-in configuration: the reference production-line
// sensor set with scalar limits, the temp-diff pair and the FTIR channel.
func Defaults() *Config {
	return &Config{
		Transport: TransportConfig{
			TCPClient: TCPClientConfig{
				Host:         "127.0.0.1",
				Port:         9000,
				TimeoutS:     5.0,
				MaxLineBytes: 1 << 20,
				ReconnectBackoff: BackoffConfig{
					InitMs: 500,
					CapMs:  30000,
				},
			},
		},
		Sensors: SensorsConfig{
			ScalarConfigs: []ScalarSensorConfig{
				{Name: "TempLowerMSP", Units: "C", LowLimit: -5.0, HighLimit: 55.0},
				{Name: "TempUpperMSP", Units: "C", LowLimit: -5.0, HighLimit: 55.0},
				{Name: "Pressure", Units: "bar", LowLimit: 1.0, HighLimit: 2.0},
				{Name: "Vibration", Units: "mm/s", LowLimit: 0.0, HighLimit: 8.0},
			},
			SpectralConfigs: []SpectralSensorConfig{
				{Name: "FTIR", Length: 256, ReferencePeakIndex: intPtr(100)},
			},
		},
		Alarms: AlarmsConfig{
			ValueEps:           0.0,
			EnableScalarLimits: true,
			TempDiff: TempDiffConfig{
				Enabled:  true,
				Pair:     [2]string{"TempLowerMSP", "TempUpperMSP"},
				Delta:    3.0,
				Severity: "WARNING",
			},
			FTIRPeakShift: PeakShiftConfig{
				Enabled:       true,
				Channel:       "FTIR",
				ToleranceBins: 5,
				Severity:      "WARNING",
			},
			StaleTimeoutS: 0,
			DrainLimit:    256,
			EventHistory:  1024,
		},
		Notifications: NotificationsConfig{
			Webhook: WebhookConfig{
				URL:             "",
				VerifyTLS:       true,
				ConnectTimeoutS: 5.0,
				TotalTimeoutS:   10.0,
				Retries:         3,
				Requeue:         false,
			},
		},
		Bridge: BridgeConfig{
			NATS: NATSBridgeConfig{
				URL:     "",
				Subject: "linewatch.alarms",
			},
		},
		Queues: QueuesConfig{
			ReadingsCapacity:      1024,
			NotificationsCapacity: 512,
		},
		API: APIConfig{
			Addr:    ":9090",
			Enabled: true,
		},
	}
}

func intPtr(i int) *int { return &i }

// Load builds the configuration without a file: defaults plus env overrides.
func (l *Loader) Load() (*Config, error) {
	cfg := Defaults()
	applyEnvOverrides(cfg)
	return l.finish(cfg)
}

// LoadFile builds the configuration from defaults, the given JSON file, and
// env overrides, in that order of precedence (later layers win).
func (l *Loader) LoadFile(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapFatal(err, "Loader", "LoadFile", "config file read")
	}

	// Unmarshal over the defaults so absent fields keep their default
	// values. Sensor lists replace rather than merge: declaring any sensor
	// in the file replaces the built-in set.
	var probe struct {
		Sensors *json.RawMessage `json:"sensors"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, errors.WrapFatal(err, "Loader", "LoadFile", "config file parsing")
	}
	if probe.Sensors != nil {
		cfg.Sensors = SensorsConfig{}
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.WrapFatal(err, "Loader", "LoadFile", "config file parsing")
	}

	applyEnvOverrides(cfg)
	return l.finish(cfg)
}

func (l *Loader) finish(cfg *Config) (*Config, error) {
	if l.validate {
		if err := cfg.Validate(); err != nil {
			return nil, errors.WrapFatal(err, "Loader", "finish", "config validation")
		}
	}
	return cfg, nil
}

// applyEnvOverrides maps LINEWATCH_* variables onto their config fields.
// Environment wins over both defaults and file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LINEWATCH_TCP_HOST"); v != "" {
		cfg.Transport.TCPClient.Host = v
	}
	if v := os.Getenv("LINEWATCH_TCP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Transport.TCPClient.Port = port
		}
	}
	if v := os.Getenv("LINEWATCH_WEBHOOK_URL"); v != "" {
		cfg.Notifications.Webhook.URL = v
	}
	if v := os.Getenv("LINEWATCH_WEBHOOK_TOKEN"); v != "" {
		cfg.Notifications.Webhook.BearerToken = v
	}
	if v := os.Getenv("LINEWATCH_NATS_URL"); v != "" {
		cfg.Bridge.NATS.URL = v
	}
	if v := os.Getenv("LINEWATCH_NATS_SUBJECT"); v != "" {
		cfg.Bridge.NATS.Subject = v
	}
	if v := os.Getenv("LINEWATCH_API_ADDR"); v != "" {
		cfg.API.Addr = v
	}
}
