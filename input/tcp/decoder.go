package tcp

import (
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/c360/linewatch/domain"
	"github.com/c360/linewatch/errors"
	"github.com/c360/linewatch/pkg/timestamp"
)

// Decoder turns one NDJSON feed line into a domain measurement. It is
// stateless apart from the declared spectral lengths and the clock used to
// stamp synthesized timestamps.
type Decoder struct {
	lengths map[string]int
	now     func() int64
}

// NewDecoder creates a decoder validating spectra against the declared bin
// count per channel. Channels not in lengths skip the length check.
func NewDecoder(lengths map[string]int) *Decoder {
	return &Decoder{lengths: lengths, now: timestamp.Now}
}

// typeProbe extracts just the discriminator so the full unmarshal only runs
// for shapes we know.
type typeProbe struct {
	Type string `json:"type"`
}

// Decode parses one feed line. Errors wrap the classification sentinels
// (ErrParsingFailed, ErrUnknownType, ErrMissingField, ErrSpectrumLength) so
// the caller can label its reject counters. Measurements with a missing or
// unparseable timestamp come back stamped with the wall clock and flagged
// Synthesized.
func (d *Decoder) Decode(line []byte) (domain.Measurement, error) {
	var probe typeProbe
	if err := json.Unmarshal(line, &probe); err != nil {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: %v", errors.ErrParsingFailed, err),
			"decoder", "Decode", "frame parsing")
	}

	switch probe.Type {
	case domain.WireTypeReading:
		return d.decodeReading(line)
	case domain.WireTypeSpectrum:
		return d.decodeSpectrum(line)
	default:
		return nil, errors.WrapInvalid(fmt.Errorf("%w: %q", errors.ErrUnknownType, probe.Type),
			"decoder", "Decode", "type discrimination")
	}
}

func (d *Decoder) decodeReading(line []byte) (domain.Measurement, error) {
	var r domain.Reading
	if err := json.Unmarshal(line, &r); err != nil {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: %v", errors.ErrParsingFailed, err),
			"decoder", "decodeReading", "reading parsing")
	}
	if r.Sensor == "" {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: sensor", errors.ErrMissingField),
			"decoder", "decodeReading", "sensor check")
	}
	if r.TS == 0 {
		r.TS = d.now()
		r.Synthesized = true
	}
	return r, nil
}

func (d *Decoder) decodeSpectrum(line []byte) (domain.Measurement, error) {
	var sp domain.Spectrum
	if err := json.Unmarshal(line, &sp); err != nil {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: %v", errors.ErrParsingFailed, err),
			"decoder", "decodeSpectrum", "spectrum parsing")
	}
	if sp.Sensor == "" {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: sensor", errors.ErrMissingField),
			"decoder", "decodeSpectrum", "sensor check")
	}
	if len(sp.Values) == 0 {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: values", errors.ErrMissingField),
			"decoder", "decodeSpectrum", "values check")
	}
	if want := d.lengths[sp.Sensor]; want > 0 && len(sp.Values) != want {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: channel %q got %d bins, declares %d",
				errors.ErrSpectrumLength, sp.Sensor, len(sp.Values), want),
			"decoder", "decodeSpectrum", "length check")
	}
	if sp.TS == 0 {
		sp.TS = d.now()
		sp.Synthesized = true
	}
	return sp, nil
}

// rejectReason maps a decode error to the label used on the rejected-readings
// counter.
func rejectReason(err error) string {
	switch {
	case stderrors.Is(err, errors.ErrUnknownType):
		return "unknown_type"
	case stderrors.Is(err, errors.ErrSpectrumLength):
		return "spectrum_length"
	case stderrors.Is(err, errors.ErrMissingField):
		return "missing_field"
	default:
		return "decode_error"
	}
}
