// SPDX-License-Identifier: EPL-2.0

// Package config loads the YAML description of the controller, the stream
// geometry and the simulator used by the command line tool.
package config

import "github.com/ik5/pcmring/pcm"

// LogLevel is the minimum level that is logged.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root of the configuration file.
type Config struct {
	Log      LogConfig     `yaml:"log"`
	Metrics  MetricsConfig `yaml:"metrics"`
	Hardware pcm.Hardware  `yaml:"hardware"`
	Stream   StreamConfig  `yaml:"stream"`
	Sim      SimConfig     `yaml:"sim"`
}

type LogConfig struct {
	Level LogLevel `yaml:"level"`
	JSON  bool     `yaml:"json"`
}

type MetricsConfig struct {
	// Listen serves Prometheus metrics on /metrics when set, e.g. ":9464".
	Listen string `yaml:"listen"`
}

// StreamConfig is the geometry requested for every stream.
type StreamConfig struct {
	Format      pcm.SampleFormat `yaml:"format"`
	Rate        int              `yaml:"rate"`
	Channels    int              `yaml:"channels"`
	PeriodBytes int              `yaml:"period_bytes"`
	BufferBytes int              `yaml:"buffer_bytes"`
	// InFlight is the number of transfers kept queued. Zero means the
	// hardware's minimum period count.
	InFlight int `yaml:"in_flight"`
	// Endpoint is the bus address of the device FIFO.
	Endpoint uint64 `yaml:"endpoint"`
}

// Params returns the hardware parameters the stream is configured with.
func (s StreamConfig) Params() pcm.HwParams {
	return pcm.HwParams{
		Format:      s.Format,
		Rate:        s.Rate,
		Channels:    s.Channels,
		PeriodBytes: s.PeriodBytes,
		BufferBytes: s.BufferBytes,
	}
}

// SimConfig sizes the software transfer engine and its memory.
type SimConfig struct {
	MemoryBase  uint64 `yaml:"memory_base"`
	MemoryLimit int    `yaml:"memory_limit"`
	Channels    int    `yaml:"channels"`
	QueueDepth  int    `yaml:"queue_depth"`
	// Speed scales the device clock; 0 runs unpaced.
	Speed float64 `yaml:"speed"`
}

// Default returns the configuration used when no file is given: the I2S
// controller table and a 48 kHz stereo stream of eight 16 KiB periods.
func Default() *Config {
	return &Config{
		Log:      LogConfig{Level: LogInfo},
		Hardware: pcm.DefaultHardware(),
		Stream: StreamConfig{
			Format:      pcm.FormatS16LE,
			Rate:        48000,
			Channels:    2,
			PeriodBytes: 16 * 1024,
			BufferBytes: 128 * 1024,
			InFlight:    4,
			Endpoint:    0x01c2_2410,
		},
		Sim: SimConfig{
			MemoryBase: 0x4000_0000,
			Channels:   2,
			QueueDepth: 8,
			Speed:      1,
		},
	}
}
