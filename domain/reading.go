package domain

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/c360/linewatch/errors"
	"github.com/c360/linewatch/pkg/timestamp"
)

// Wire discriminator values in the feed's type field.
const (
	WireTypeReading  = "sensor_reading"
	WireTypeSpectrum = "ftir_spectrum"
)

// Measurement is the uniform view of a decoded scalar reading or spectrum,
// used where the pipeline handles both without caring which it has.
type Measurement interface {
	SensorName() string
	At() int64 // Unix milliseconds
	Usable() bool
}

// Reading is a single scalar sensor measurement.
type Reading struct {
	Sensor string
	Value  float64
	TS     int64 // Unix milliseconds
	Status Status

	// Synthesized marks readings whose timestamp was stamped by the decoder
	// because the frame carried none. Never serialized.
	Synthesized bool
}

// SensorName returns the originating sensor.
func (r Reading) SensorName() string { return r.Sensor }

// At returns the measurement time in Unix milliseconds.
func (r Reading) At() int64 { return r.TS }

// Usable reports whether criteria may evaluate this reading.
func (r Reading) Usable() bool {
	return r.Status.OK() && !math.IsNaN(r.Value) && !math.IsInf(r.Value, 0)
}

// Validate checks the invariants a decoded reading must satisfy.
func (r Reading) Validate() error {
	if r.Sensor == "" {
		return errors.WrapInvalid(errors.ErrMissingField, "Reading", "Validate", "sensor name check")
	}
	return nil
}

type readingWire struct {
	Type      string  `json:"type"`
	Sensor    string  `json:"sensor"`
	Value     float64 `json:"value"`
	Timestamp string  `json:"timestamp,omitempty"`
	Status    Status  `json:"status,omitempty"`
}

// MarshalJSON renders the wire form the feed speaks, with an RFC3339 UTC
// timestamp.
func (r Reading) MarshalJSON() ([]byte, error) {
	return json.Marshal(readingWire{
		Type:      WireTypeReading,
		Sensor:    r.Sensor,
		Value:     r.Value,
		Timestamp: timestamp.Format(r.TS),
		Status:    r.Status,
	})
}

// UnmarshalJSON parses the wire form. A missing or unparseable timestamp
// leaves TS at zero; the decoder stamps those with the wall clock and flags
// them as synthesized. Extra fields are ignored.
func (r *Reading) UnmarshalJSON(data []byte) error {
	var w readingWire
	if err := json.Unmarshal(data, &w); err != nil {
		return errors.WrapInvalid(err, "Reading", "UnmarshalJSON", "frame parsing")
	}
	r.Sensor = w.Sensor
	r.Value = w.Value
	r.TS = timestamp.Parse(w.Timestamp)
	r.Status = w.Status
	r.Synthesized = false
	return nil
}

// Spectrum is a single spectral measurement: one intensity per bin of a
// fixed-length channel.
type Spectrum struct {
	Sensor string
	Values []float64
	TS     int64 // Unix milliseconds
	Status Status

	// Synthesized marks spectra whose timestamp was stamped by the decoder.
	Synthesized bool
}

// SensorName returns the originating spectral channel.
func (s Spectrum) SensorName() string { return s.Sensor }

// At returns the measurement time in Unix milliseconds.
func (s Spectrum) At() int64 { return s.TS }

// Usable reports whether criteria may evaluate this spectrum. Any non-finite
// bin poisons the whole spectrum.
func (s Spectrum) Usable() bool {
	if !s.Status.OK() || len(s.Values) == 0 {
		return false
	}
	for _, v := range s.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Validate checks the invariants a decoded spectrum must satisfy against the
// channel's configured bin count. A wantLen of zero skips the length check.
func (s Spectrum) Validate(wantLen int) error {
	if s.Sensor == "" {
		return errors.WrapInvalid(errors.ErrMissingField, "Spectrum", "Validate", "sensor name check")
	}
	if len(s.Values) == 0 {
		return errors.WrapInvalid(errors.ErrMissingField, "Spectrum", "Validate", "values check")
	}
	if wantLen > 0 && len(s.Values) != wantLen {
		return errors.WrapInvalid(
			fmt.Errorf("got %d bins, channel declares %d", len(s.Values), wantLen),
			"Spectrum", "Validate", "length check")
	}
	return nil
}

// ArgMax returns the index of the largest bin, or -1 for an empty spectrum.
// Ties resolve to the lowest index.
func (s Spectrum) ArgMax() int {
	best := -1
	bestV := math.Inf(-1)
	for i, v := range s.Values {
		if v > bestV {
			best, bestV = i, v
		}
	}
	return best
}

type spectrumWire struct {
	Type      string    `json:"type"`
	Sensor    string    `json:"sensor"`
	Values    []float64 `json:"values"`
	Timestamp string    `json:"timestamp,omitempty"`
	Status    Status    `json:"status,omitempty"`
}

// MarshalJSON renders the wire form the feed speaks.
func (s Spectrum) MarshalJSON() ([]byte, error) {
	return json.Marshal(spectrumWire{
		Type:      WireTypeSpectrum,
		Sensor:    s.Sensor,
		Values:    s.Values,
		Timestamp: timestamp.Format(s.TS),
		Status:    s.Status,
	})
}

// UnmarshalJSON parses the wire form, leaving TS zero when the timestamp is
// missing or unparseable.
func (s *Spectrum) UnmarshalJSON(data []byte) error {
	var w spectrumWire
	if err := json.Unmarshal(data, &w); err != nil {
		return errors.WrapInvalid(err, "Spectrum", "UnmarshalJSON", "frame parsing")
	}
	s.Sensor = w.Sensor
	s.Values = w.Values
	s.TS = timestamp.Parse(w.Timestamp)
	s.Status = w.Status
	s.Synthesized = false
	return nil
}
