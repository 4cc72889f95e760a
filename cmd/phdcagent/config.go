// Copyright 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	phdc "github.com/ZaparooProject/go-phdc"
	"github.com/ZaparooProject/go-phdc/llcp"
	"github.com/ZaparooProject/go-phdc/scenario"
	"github.com/ZaparooProject/go-phdc/transport/uart"
	"github.com/pion/logging"
)

// Run modes
const (
	modeLLCP    = "llcp"
	modeTag     = "tag"
	modeManager = "manager"
)

var errUsage = errors.New("invalid usage")

type config struct {
	configPath   string
	mode         string
	device       string
	scenarioPath string
	logDir       string
	agentOpts    []phdc.Option
	timing       scenario.Timing
	hold         time.Duration
	test         int
	miu          int
	baudRate     int
	listPorts    bool
	debug        bool
}

func defaultConfig() *config {
	return &config{
		mode:         modeLLCP,
		scenarioPath: scenario.DefaultScenarioFile,
		timing:       scenario.DefaultTiming(),
		hold:         15 * time.Second,
		miu:          llcp.DefaultMIU,
		baudRate:     115200,
	}
}

type fileConfig struct {
	Mode     string       `toml:"mode"`
	Device   string       `toml:"device"`
	Scenario string       `toml:"scenario"`
	LogDir   string       `toml:"log_dir"`
	Hold     string       `toml:"hold"`
	Timing   timingConfig `toml:"timing"`
	Agent    agentConfig  `toml:"agent"`
	Test     int          `toml:"test"`
	MIU      int          `toml:"miu"`
	BaudRate int          `toml:"baud_rate"`
	Debug    bool         `toml:"debug"`
}

type timingConfig struct {
	Receive       string `toml:"receive"`
	BeforeRelease string `toml:"before_release"`
	BeforeLeave   string `toml:"before_leave"`
	Join          string `toml:"join"`
}

type agentConfig struct {
	CommandTimeout  string `toml:"command_timeout"`
	ResponseTimeout string `toml:"response_timeout"`
	Capacity        int    `toml:"capacity"`
	Nbr             int    `toml:"nbr"`
	Nbw             int    `toml:"nbw"`
}

func parseDuration(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

// loadFileConfig applies the keys present in a TOML file over cfg.
func loadFileConfig(path string, cfg *config) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("mode") {
		cfg.mode = strings.TrimSpace(raw.Mode)
	}
	if meta.IsDefined("device") {
		cfg.device = strings.TrimSpace(raw.Device)
	}
	if meta.IsDefined("scenario") {
		cfg.scenarioPath = strings.TrimSpace(raw.Scenario)
	}
	if meta.IsDefined("log_dir") {
		cfg.logDir = strings.TrimSpace(raw.LogDir)
	}
	if meta.IsDefined("test") {
		cfg.test = raw.Test
	}
	if meta.IsDefined("miu") {
		cfg.miu = raw.MIU
	}
	if meta.IsDefined("baud_rate") {
		cfg.baudRate = raw.BaudRate
	}
	if meta.IsDefined("debug") {
		cfg.debug = raw.Debug
	}
	if meta.IsDefined("hold") {
		if cfg.hold, err = parseDuration("hold", raw.Hold); err != nil {
			return err
		}
	}

	durations := []struct {
		dst   *time.Duration
		key   string
		value string
	}{
		{&cfg.timing.Receive, "receive", raw.Timing.Receive},
		{&cfg.timing.BeforeRelease, "before_release", raw.Timing.BeforeRelease},
		{&cfg.timing.BeforeLeave, "before_leave", raw.Timing.BeforeLeave},
		{&cfg.timing.Join, "join", raw.Timing.Join},
	}
	for _, d := range durations {
		if !meta.IsDefined("timing", d.key) {
			continue
		}
		if *d.dst, err = parseDuration("timing."+d.key, d.value); err != nil {
			return err
		}
	}

	return loadAgentConfig(meta, raw.Agent, cfg)
}

func loadAgentConfig(meta toml.MetaData, raw agentConfig, cfg *config) error {
	if meta.IsDefined("agent", "capacity") {
		cfg.agentOpts = append(cfg.agentOpts, phdc.WithCapacity(raw.Capacity))
	}
	if meta.IsDefined("agent", "nbr") || meta.IsDefined("agent", "nbw") {
		def := phdc.DefaultConfig()
		nbr, nbw := int(def.Nbr), int(def.Nbw)
		if meta.IsDefined("agent", "nbr") {
			nbr = raw.Nbr
		}
		if meta.IsDefined("agent", "nbw") {
			nbw = raw.Nbw
		}
		if nbr < 1 || nbr > 255 || nbw < 1 || nbw > 255 {
			return fmt.Errorf("agent block limits must be between 1 and 255, got nbr=%d nbw=%d", nbr, nbw)
		}
		cfg.agentOpts = append(cfg.agentOpts, phdc.WithBlockLimits(uint8(nbr), uint8(nbw)))
	}
	if meta.IsDefined("agent", "command_timeout") {
		d, err := parseDuration("agent.command_timeout", raw.CommandTimeout)
		if err != nil {
			return err
		}
		cfg.agentOpts = append(cfg.agentOpts, phdc.WithCommandTimeout(d))
	}
	if meta.IsDefined("agent", "response_timeout") {
		d, err := parseDuration("agent.response_timeout", raw.ResponseTimeout)
		if err != nil {
			return err
		}
		cfg.agentOpts = append(cfg.agentOpts, phdc.WithResponseTimeout(d))
	}
	return nil
}

// parseArgs builds the configuration from defaults, then the TOML file
// named by -config, then the flags given on the command line.
func parseArgs(args []string) (*config, error) {
	def := defaultConfig()
	fs := flag.NewFlagSet("phdcagent", flag.ContinueOnError)

	configPath := fs.String("config", "", "TOML configuration file")
	mode := fs.String("mode", def.mode, "Run mode: llcp, tag or manager")
	test := fs.Int("test", def.test, "Test number to run")
	device := fs.String("device", "", "Serial port of the LLCP peer (in-process loopback if empty)")
	scenarioPath := fs.String("scenario", def.scenarioPath, "Scenario file replayed by test 0")
	miu := fs.Int("miu", def.miu, "LLCP maximum information unit")
	baudRate := fs.Int("baud", def.baudRate, "Serial baud rate")
	hold := fs.Duration("hold", def.hold, "How long the simulated manager stays in the field (tag mode)")
	logDir := fs.String("log-dir", "", "Write a session log to this directory")
	listPorts := fs.Bool("list-ports", false, "List serial ports and exit")
	debug := fs.Bool("debug", false, "Enable debug output")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %w", errUsage, err)
	}

	cfg := def
	if *configPath != "" {
		cfg.configPath = *configPath
		if err := loadFileConfig(*configPath, cfg); err != nil {
			return nil, err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "mode":
			cfg.mode = *mode
		case "test":
			cfg.test = *test
		case "device":
			cfg.device = *device
		case "scenario":
			cfg.scenarioPath = *scenarioPath
		case "miu":
			cfg.miu = *miu
		case "baud":
			cfg.baudRate = *baudRate
		case "hold":
			cfg.hold = *hold
		case "log-dir":
			cfg.logDir = *logDir
		case "list-ports":
			cfg.listPorts = *listPorts
		case "debug":
			cfg.debug = *debug
		}
	})

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *config) validate() error {
	if c.listPorts {
		return nil
	}
	switch c.mode {
	case modeLLCP:
		if c.test < 0 || c.test >= len(scenario.LinkTests) {
			return fmt.Errorf("%w: llcp test must be between 0 and %d, got %d",
				errUsage, len(scenario.LinkTests)-1, c.test)
		}
	case modeTag:
		if c.test < 0 || c.test >= len(scenario.TagTests) {
			return fmt.Errorf("%w: tag test must be between 0 and %d, got %d",
				errUsage, len(scenario.TagTests)-1, c.test)
		}
	case modeManager:
		if c.device == "" {
			return fmt.Errorf("%w: manager mode needs -device", errUsage)
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", errUsage, c.mode)
	}
	if c.miu <= 0 {
		return fmt.Errorf("%w: miu must be positive, got %d", errUsage, c.miu)
	}
	return nil
}

func (c *config) loggerFactory() logging.LoggerFactory {
	f := logging.NewDefaultLoggerFactory()
	if c.debug {
		f.DefaultLogLevel = logging.LogLevelDebug
	}
	return f
}

func (c *config) uartConfig() uart.Config {
	u := uart.DefaultConfig()
	u.MIU = c.miu
	u.BaudRate = c.baudRate
	u.LoggerFactory = c.loggerFactory()
	return u
}
