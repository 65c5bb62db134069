// Package config defines the typed configuration tree for linewatch and a
// loader that layers defaults, a JSON file and LINEWATCH_* environment
// overrides. Components never read files or env themselves; the runtime hands
// them validated sections.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/c360/linewatch/domain"
	"github.com/c360/linewatch/errors"
)

// Config is the complete application configuration.
type Config struct {
	Transport     TransportConfig     `json:"transport"`
	Sensors       SensorsConfig       `json:"sensors"`
	Alarms        AlarmsConfig        `json:"alarms"`
	Notifications NotificationsConfig `json:"notifications"`
	Bridge        BridgeConfig        `json:"bridge"`
	Queues        QueuesConfig        `json:"queues"`
	API           APIConfig           `json:"api"`
}

// Validate checks every section. Configuration failures are the only fatal
// errors in the system, and only at startup.
func (c *Config) Validate() error {
	if err := c.Transport.Validate(); err != nil {
		return err
	}
	if err := c.Sensors.Validate(); err != nil {
		return err
	}
	if err := c.Alarms.Validate(&c.Sensors); err != nil {
		return err
	}
	if err := c.Notifications.Validate(); err != nil {
		return err
	}
	if err := c.Queues.Validate(); err != nil {
		return err
	}
	return c.API.Validate()
}

// TransportConfig wraps the inbound transport settings.
type TransportConfig struct {
	TCPClient TCPClientConfig `json:"tcp_client"`
}

// Validate checks the transport section.
func (t *TransportConfig) Validate() error {
	return t.TCPClient.Validate()
}

// BackoffConfig shapes a reconnect backoff ramp.
type BackoffConfig struct {
	InitMs int `json:"init_ms"`
	CapMs  int `json:"cap_ms"`
}

// Init returns the initial delay as a duration.
func (b BackoffConfig) Init() time.Duration { return time.Duration(b.InitMs) * time.Millisecond }

// Cap returns the maximum delay as a duration.
func (b BackoffConfig) Cap() time.Duration { return time.Duration(b.CapMs) * time.Millisecond }

// TCPClientConfig configures the NDJSON feed connection.
type TCPClientConfig struct {
	Host             string        `json:"host"`
	Port             int           `json:"port"`
	TimeoutS         float64       `json:"timeout_s"`
	MaxLineBytes     int           `json:"max_line_bytes"`
	ReconnectBackoff BackoffConfig `json:"reconnect_backoff"`
}

// Timeout returns the dial and read timeout as a duration.
func (t TCPClientConfig) Timeout() time.Duration {
	return time.Duration(t.TimeoutS * float64(time.Second))
}

// Addr returns the host:port dial target.
func (t TCPClientConfig) Addr() string {
	return fmt.Sprintf("%s:%d", t.Host, t.Port)
}

// Validate checks the TCP client section.
func (t *TCPClientConfig) Validate() error {
	if t.Host == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "TCPClientConfig", "Validate", "host check")
	}
	if t.Port < 1 || t.Port > 65535 {
		return errors.WrapInvalid(fmt.Errorf("port %d out of range", t.Port),
			"TCPClientConfig", "Validate", "port check")
	}
	if t.TimeoutS <= 0 {
		return errors.WrapInvalid(fmt.Errorf("timeout_s %g must be positive", t.TimeoutS),
			"TCPClientConfig", "Validate", "timeout check")
	}
	if t.MaxLineBytes < 1 {
		return errors.WrapInvalid(fmt.Errorf("max_line_bytes %d must be positive", t.MaxLineBytes),
			"TCPClientConfig", "Validate", "line length check")
	}
	if t.ReconnectBackoff.InitMs < 1 || t.ReconnectBackoff.CapMs < t.ReconnectBackoff.InitMs {
		return errors.WrapInvalid(
			fmt.Errorf("reconnect_backoff init_ms=%d cap_ms=%d", t.ReconnectBackoff.InitMs, t.ReconnectBackoff.CapMs),
			"TCPClientConfig", "Validate", "backoff check")
	}
	return nil
}

// ScalarSensorConfig declares one scalar sensor and its alarm limits.
type ScalarSensorConfig struct {
	Name      string  `json:"name"`
	Units     string  `json:"units"`
	LowLimit  float64 `json:"low_limit"`
	HighLimit float64 `json:"high_limit"`
}

// SpectralSensorConfig declares one spectral channel. ReferencePeakIndex, if
// set, pins the expected argmax bin; otherwise a captured reference spectrum
// supplies it.
type SpectralSensorConfig struct {
	Name               string `json:"name"`
	Length             int    `json:"length"`
	ReferencePeakIndex *int   `json:"reference_peak_index,omitempty"`
}

// SensorsConfig declares the known sensor set.
type SensorsConfig struct {
	ScalarConfigs   []ScalarSensorConfig   `json:"scalar_configs"`
	SpectralConfigs []SpectralSensorConfig `json:"spectral_configs"`
}

// Scalar looks up a scalar sensor by name.
func (s *SensorsConfig) Scalar(name string) (ScalarSensorConfig, bool) {
	for _, sc := range s.ScalarConfigs {
		if sc.Name == name {
			return sc, true
		}
	}
	return ScalarSensorConfig{}, false
}

// Spectral looks up a spectral channel by name.
func (s *SensorsConfig) Spectral(name string) (SpectralSensorConfig, bool) {
	for _, sc := range s.SpectralConfigs {
		if sc.Name == name {
			return sc, true
		}
	}
	return SpectralSensorConfig{}, false
}

// SpectralLengths returns the declared bin count per channel, the shape the
// decoder validates incoming spectra against.
func (s *SensorsConfig) SpectralLengths() map[string]int {
	out := make(map[string]int, len(s.SpectralConfigs))
	for _, sc := range s.SpectralConfigs {
		out[sc.Name] = sc.Length
	}
	return out
}

// Validate checks the sensor declarations.
func (s *SensorsConfig) Validate() error {
	seen := make(map[string]bool)
	for _, sc := range s.ScalarConfigs {
		if sc.Name == "" {
			return errors.WrapInvalid(errors.ErrMissingConfig, "SensorsConfig", "Validate",
				"scalar sensor name check")
		}
		if seen[sc.Name] {
			return errors.WrapInvalid(fmt.Errorf("duplicate sensor %q", sc.Name),
				"SensorsConfig", "Validate", "sensor uniqueness check")
		}
		seen[sc.Name] = true
		if sc.LowLimit >= sc.HighLimit {
			return errors.WrapInvalid(
				fmt.Errorf("sensor %q low_limit %g >= high_limit %g", sc.Name, sc.LowLimit, sc.HighLimit),
				"SensorsConfig", "Validate", "limit ordering check")
		}
	}
	for _, sc := range s.SpectralConfigs {
		if sc.Name == "" {
			return errors.WrapInvalid(errors.ErrMissingConfig, "SensorsConfig", "Validate",
				"spectral channel name check")
		}
		if seen[sc.Name] {
			return errors.WrapInvalid(fmt.Errorf("duplicate sensor %q", sc.Name),
				"SensorsConfig", "Validate", "sensor uniqueness check")
		}
		seen[sc.Name] = true
		if sc.Length < 1 {
			return errors.WrapInvalid(fmt.Errorf("channel %q length %d", sc.Name, sc.Length),
				"SensorsConfig", "Validate", "spectrum length check")
		}
		if sc.ReferencePeakIndex != nil &&
			(*sc.ReferencePeakIndex < 0 || *sc.ReferencePeakIndex >= sc.Length) {
			return errors.WrapInvalid(
				fmt.Errorf("channel %q reference_peak_index %d outside [0,%d)",
					sc.Name, *sc.ReferencePeakIndex, sc.Length),
				"SensorsConfig", "Validate", "reference peak check")
		}
	}
	return nil
}

// TempDiffConfig configures the temperature differential criterion.
type TempDiffConfig struct {
	Enabled  bool      `json:"enabled"`
	Pair     [2]string `json:"pair"`
	Delta    float64   `json:"delta"`
	Severity string    `json:"severity"`
}

// PeakShiftConfig configures the FTIR peak shift criterion.
type PeakShiftConfig struct {
	Enabled       bool    `json:"enabled"`
	Channel       string  `json:"channel"`
	ToleranceBins int     `json:"tolerance_bins"`
	Severity      string  `json:"severity"`
}

// AlarmsConfig configures the criteria set and engine behavior.
type AlarmsConfig struct {
	ValueEps           float64         `json:"value_eps"`
	EnableScalarLimits bool            `json:"enable_scalar_limits"`
	TempDiff           TempDiffConfig  `json:"temp_diff"`
	FTIRPeakShift      PeakShiftConfig `json:"ftir_peak_shift"`
	StaleTimeoutS      float64         `json:"stale_timeout_s"`
	DrainLimit         int             `json:"drain_limit"`
	EventHistory       int             `json:"event_history"`
}

// StaleTimeout returns the staleness auto-clear window, zero when disabled.
func (a AlarmsConfig) StaleTimeout() time.Duration {
	return time.Duration(a.StaleTimeoutS * float64(time.Second))
}

// Validate checks the alarms section against the declared sensors.
func (a *AlarmsConfig) Validate(sensors *SensorsConfig) error {
	if a.ValueEps < 0 {
		return errors.WrapInvalid(fmt.Errorf("value_eps %g is negative", a.ValueEps),
			"AlarmsConfig", "Validate", "value_eps check")
	}
	if a.StaleTimeoutS < 0 {
		return errors.WrapInvalid(fmt.Errorf("stale_timeout_s %g is negative", a.StaleTimeoutS),
			"AlarmsConfig", "Validate", "stale timeout check")
	}
	if a.DrainLimit < 0 {
		return errors.WrapInvalid(fmt.Errorf("drain_limit %d is negative", a.DrainLimit),
			"AlarmsConfig", "Validate", "drain limit check")
	}
	if a.EventHistory < 1 {
		return errors.WrapInvalid(fmt.Errorf("event_history %d must be positive", a.EventHistory),
			"AlarmsConfig", "Validate", "event history check")
	}
	if a.TempDiff.Enabled {
		if _, err := domain.ParseSeverity(a.TempDiff.Severity); err != nil {
			return err
		}
		if a.TempDiff.Delta <= 0 {
			return errors.WrapInvalid(fmt.Errorf("temp_diff delta %g must be positive", a.TempDiff.Delta),
				"AlarmsConfig", "Validate", "temp_diff delta check")
		}
		for _, name := range a.TempDiff.Pair {
			if _, ok := sensors.Scalar(name); !ok {
				return errors.WrapInvalid(fmt.Errorf("temp_diff pair sensor %q not configured", name),
					"AlarmsConfig", "Validate", "temp_diff pair check")
			}
		}
	}
	if a.FTIRPeakShift.Enabled {
		if _, err := domain.ParseSeverity(a.FTIRPeakShift.Severity); err != nil {
			return err
		}
		if a.FTIRPeakShift.ToleranceBins < 0 {
			return errors.WrapInvalid(
				fmt.Errorf("ftir_peak_shift tolerance_bins %d is negative", a.FTIRPeakShift.ToleranceBins),
				"AlarmsConfig", "Validate", "tolerance check")
		}
		if _, ok := sensors.Spectral(a.FTIRPeakShift.Channel); !ok {
			return errors.WrapInvalid(
				fmt.Errorf("ftir_peak_shift channel %q not configured", a.FTIRPeakShift.Channel),
				"AlarmsConfig", "Validate", "channel check")
		}
	}
	return nil
}

// WebhookConfig configures outbound notification delivery. An empty URL
// disables the notification pipeline entirely.
type WebhookConfig struct {
	URL             string  `json:"url"`
	BearerToken     string  `json:"bearer_token,omitempty"`
	VerifyTLS       bool    `json:"verify_tls"`
	ConnectTimeoutS float64 `json:"connect_timeout_s"`
	TotalTimeoutS   float64 `json:"total_timeout_s"`
	Retries         int     `json:"retries"`
	Requeue         bool    `json:"requeue"`
}

// Enabled reports whether a delivery target is configured.
func (w WebhookConfig) Enabled() bool { return w.URL != "" }

// ConnectTimeout returns the dial timeout as a duration.
func (w WebhookConfig) ConnectTimeout() time.Duration {
	return time.Duration(w.ConnectTimeoutS * float64(time.Second))
}

// TotalTimeout returns the per-request timeout as a duration.
func (w WebhookConfig) TotalTimeout() time.Duration {
	return time.Duration(w.TotalTimeoutS * float64(time.Second))
}

// NotificationsConfig wraps outbound notification settings.
type NotificationsConfig struct {
	Webhook WebhookConfig `json:"webhook"`
}

// Validate checks the notifications section.
func (n *NotificationsConfig) Validate() error {
	w := &n.Webhook
	if !w.Enabled() {
		return nil
	}
	u, err := url.Parse(w.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.WrapInvalid(fmt.Errorf("webhook url %q", w.URL),
			"NotificationsConfig", "Validate", "url check")
	}
	if w.ConnectTimeoutS <= 0 || w.TotalTimeoutS <= 0 {
		return errors.WrapInvalid(
			fmt.Errorf("connect_timeout_s=%g total_timeout_s=%g must be positive",
				w.ConnectTimeoutS, w.TotalTimeoutS),
			"NotificationsConfig", "Validate", "timeout check")
	}
	if w.Retries < 0 {
		return errors.WrapInvalid(fmt.Errorf("retries %d is negative", w.Retries),
			"NotificationsConfig", "Validate", "retries check")
	}
	return nil
}

// NATSBridgeConfig configures the optional NATS event bridge. An empty URL
// disables it.
type NATSBridgeConfig struct {
	URL     string `json:"url"`
	Subject string `json:"subject"`
}

// Enabled reports whether the bridge should run.
func (n NATSBridgeConfig) Enabled() bool { return n.URL != "" }

// BridgeConfig wraps event bridge settings.
type BridgeConfig struct {
	NATS NATSBridgeConfig `json:"nats"`
}

// QueuesConfig sizes the bounded pipeline queues.
type QueuesConfig struct {
	ReadingsCapacity      int `json:"readings_capacity"`
	NotificationsCapacity int `json:"notifications_capacity"`
}

// Validate checks the queues section.
func (q *QueuesConfig) Validate() error {
	if q.ReadingsCapacity < 1 {
		return errors.WrapInvalid(fmt.Errorf("readings_capacity %d must be positive", q.ReadingsCapacity),
			"QueuesConfig", "Validate", "readings capacity check")
	}
	if q.NotificationsCapacity < 1 {
		return errors.WrapInvalid(
			fmt.Errorf("notifications_capacity %d must be positive", q.NotificationsCapacity),
			"QueuesConfig", "Validate", "notifications capacity check")
	}
	return nil
}

// APIConfig configures the HTTP API and metrics listener.
type APIConfig struct {
	Addr    string `json:"addr"`
	Enabled bool   `json:"enabled"`
}

// Validate checks the API section.
func (a *APIConfig) Validate() error {
	if a.Enabled && a.Addr == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "APIConfig", "Validate", "addr check")
	}
	return nil
}
