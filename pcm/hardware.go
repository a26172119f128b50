// SPDX-License-Identifier: EPL-2.0

package pcm

import (
	"errors"
	"fmt"
	"slices"
)

// Hardware lists what the controller and its transfer engine can do.
type Hardware struct {
	Formats        []SampleFormat `yaml:"formats"`
	RateMin        int            `yaml:"rate_min"`
	RateMax        int            `yaml:"rate_max"`
	ChannelsMin    int            `yaml:"channels_min"`
	ChannelsMax    int            `yaml:"channels_max"`
	BufferBytesMax int            `yaml:"buffer_bytes_max"`
	PeriodBytesMin int            `yaml:"period_bytes_min"`
	PeriodBytesMax int            `yaml:"period_bytes_max"`
	PeriodsMin     int            `yaml:"periods_min"`
	PeriodsMax     int            `yaml:"periods_max"`
	FIFOSize       int            `yaml:"fifo_size"`
}

// DefaultHardware is the I2S controller table: up to 128 KiB of buffer split
// into 4 to 8 periods of 16 to 32 KiB.
func DefaultHardware() Hardware {
	return Hardware{
		Formats:        []SampleFormat{FormatS16LE, FormatS20_3LE, FormatS24LE},
		RateMin:        8000,
		RateMax:        192000,
		ChannelsMin:    1,
		ChannelsMax:    2,
		BufferBytesMax: 128 * 1024,
		PeriodBytesMin: 16 * 1024,
		PeriodBytesMax: 32 * 1024,
		PeriodsMin:     4,
		PeriodsMax:     8,
		FIFOSize:       128,
	}
}

// Supports reports whether f is in the format list.
func (h Hardware) Supports(f SampleFormat) bool {
	return slices.Contains(h.Formats, f)
}

// Check verifies the table itself is coherent.
func (h Hardware) Check() error {
	var errs []error
	if len(h.Formats) == 0 {
		errs = append(errs, errors.New("no sample formats"))
	}
	for _, f := range h.Formats {
		if f.Width() == 0 {
			errs = append(errs, fmt.Errorf("unknown sample format %d", int(f)))
		}
	}
	if h.RateMin <= 0 || h.RateMax < h.RateMin {
		errs = append(errs, fmt.Errorf("rate range %d-%d", h.RateMin, h.RateMax))
	}
	if h.ChannelsMin <= 0 || h.ChannelsMax < h.ChannelsMin {
		errs = append(errs, fmt.Errorf("channel range %d-%d", h.ChannelsMin, h.ChannelsMax))
	}
	if h.PeriodBytesMin <= 0 || h.PeriodBytesMax < h.PeriodBytesMin {
		errs = append(errs, fmt.Errorf("period bytes range %d-%d", h.PeriodBytesMin, h.PeriodBytesMax))
	}
	if h.PeriodsMin <= 0 || h.PeriodsMax < h.PeriodsMin {
		errs = append(errs, fmt.Errorf("periods range %d-%d", h.PeriodsMin, h.PeriodsMax))
	}
	if h.BufferBytesMax < h.PeriodBytesMin*h.PeriodsMin {
		errs = append(errs, fmt.Errorf("buffer_bytes_max %d below smallest buffer %d",
			h.BufferBytesMax, h.PeriodBytesMin*h.PeriodsMin))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: hardware: %w", ErrInvalidParameter, errors.Join(errs...))
	}
	return nil
}

// Validate checks p against the table and returns every violation found.
func (h Hardware) Validate(p HwParams) error {
	var errs []error

	if p.Format.Width() == 0 || !h.Supports(p.Format) {
		errs = append(errs, fmt.Errorf("format %s not supported", p.Format))
	}
	if p.Rate < h.RateMin || p.Rate > h.RateMax {
		errs = append(errs, fmt.Errorf("rate %d outside %d-%d", p.Rate, h.RateMin, h.RateMax))
	}
	if p.Channels < h.ChannelsMin || p.Channels > h.ChannelsMax {
		errs = append(errs, fmt.Errorf("channels %d outside %d-%d", p.Channels, h.ChannelsMin, h.ChannelsMax))
	}
	if p.PeriodBytes < h.PeriodBytesMin || p.PeriodBytes > h.PeriodBytesMax {
		errs = append(errs, fmt.Errorf("period %d bytes outside %d-%d", p.PeriodBytes, h.PeriodBytesMin, h.PeriodBytesMax))
	}
	if p.BufferBytes <= 0 || p.BufferBytes > h.BufferBytesMax {
		errs = append(errs, fmt.Errorf("buffer %d bytes outside 1-%d", p.BufferBytes, h.BufferBytesMax))
	}
	if p.PeriodBytes > 0 {
		if p.BufferBytes%p.PeriodBytes != 0 {
			errs = append(errs, fmt.Errorf("buffer %d bytes is not a whole number of %d byte periods", p.BufferBytes, p.PeriodBytes))
		} else if n := p.Periods(); n < h.PeriodsMin || n > h.PeriodsMax {
			errs = append(errs, fmt.Errorf("%d periods outside %d-%d", n, h.PeriodsMin, h.PeriodsMax))
		}
		if fb := p.FrameBytes(); fb > 0 && p.PeriodBytes%fb != 0 {
			errs = append(errs, fmt.Errorf("period %d bytes is not a whole number of %d byte frames", p.PeriodBytes, fb))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidParameter, errors.Join(errs...))
	}
	return nil
}
