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

// Command phdcagent runs the PHDC agent validation tests. LLCP tests run
// against a manager on a serial link or an in-process loopback; tag tests
// run the Type 3 Tag agent against an in-process simulated manager.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	phdc "github.com/ZaparooProject/go-phdc"
	testutil "github.com/ZaparooProject/go-phdc/internal/testing"
	"github.com/ZaparooProject/go-phdc/llcp"
	"github.com/ZaparooProject/go-phdc/scenario"
	"github.com/ZaparooProject/go-phdc/transport/uart"
)

func main() {
	os.Exit(mainWithExitCode(os.Args[1:]))
}

func mainWithExitCode(args []string) int {
	cfg, err := parseArgs(args)
	if err != nil {
		if !isHelp(err) {
			_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 2
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		_, _ = fmt.Print("\nShutting down gracefully...\n")
		cancel()
	}()

	if err := run(ctx, cfg, os.Stdout); err != nil {
		if errors.Is(err, context.Canceled) {
			return 0
		}
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, cfg *config, out io.Writer) (err error) {
	if cfg.listPorts {
		return listPorts(out)
	}
	if cfg.debug {
		phdc.SetDebugEnabled(true)
	} else {
		phdc.SetLogLevel(slog.LevelInfo)
	}
	if cfg.logDir != "" {
		info := phdc.SessionInfo{Mode: cfg.mode, Device: cfg.device, Test: cfg.test}
		path, logErr := phdc.InitSessionLog(cfg.logDir, info)
		if logErr != nil {
			return logErr
		}
		defer func() { _ = phdc.CloseSessionLog(err) }()
		_, _ = fmt.Fprintf(out, "Session log: %s\n", path)
	}

	switch cfg.mode {
	case modeTag:
		err = runTag(ctx, cfg)
	case modeManager:
		return runManager(ctx, cfg)
	default:
		err = runLink(ctx, cfg)
	}
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "%s test %d passed\n", cfg.mode, cfg.test)
	return nil
}

func listPorts(out io.Writer) error {
	ports, err := uart.ListPorts()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		_, _ = fmt.Fprintln(out, "No serial ports found")
		return nil
	}
	for _, p := range ports {
		_, _ = fmt.Fprintln(out, p)
	}
	return nil
}

// loadScenario reads the scenario file for test 0. Other tests don't use it.
func loadScenario(cfg *config) ([][]byte, error) {
	if cfg.test != 0 {
		return nil, nil
	}
	apdus, err := scenario.LoadScenarioFile(cfg.scenarioPath)
	if err != nil {
		return nil, fmt.Errorf("test 0 needs a scenario file: %w", err)
	}
	return apdus, nil
}

func runLink(ctx context.Context, cfg *config) error {
	apdus, err := loadScenario(cfg)
	if err != nil {
		return err
	}
	lcfg := scenario.DefaultLinkConfig()
	lcfg.Timing = cfg.timing
	lcfg.Scenario = apdus
	lcfg.Agent.LoggerFactory = cfg.loggerFactory()

	var dialer llcp.Dialer
	if cfg.device == "" {
		lb := llcp.NewLoopback(cfg.miu)
		scenario.RegisterValidationServices(lb)
		dialer = lb
	} else {
		link, err := uart.Open(cfg.device, cfg.uartConfig())
		if err != nil {
			return err
		}
		defer func() { _ = link.Close() }()
		dialer = link
	}
	return scenario.RunLinkTest(ctx, cfg.test, dialer, lcfg)
}

func runTag(ctx context.Context, cfg *config) error {
	apdus, err := loadScenario(cfg)
	if err != nil {
		return err
	}
	tcfg := scenario.DefaultConfig()
	tcfg.Timing = cfg.timing
	tcfg.Scenario = apdus
	tcfg.AgentOptions = cfg.agentOpts

	m := testutil.NewVirtualManager()
	mctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := scenario.NewTagManager(m, scenario.ThermometerManager).Run(mctx); err != nil {
			phdc.Debugf("simulated manager stopped: %v", err)
		}
	}()
	// The manager leaves the field after hold, ending the tag session
	leave := time.AfterFunc(cfg.hold, m.Release)
	defer func() {
		leave.Stop()
		cancel()
		m.Release()
		<-done
	}()

	return scenario.RunTagTest(ctx, cfg.test, m, testutil.ActivationCommand(), tcfg)
}

// runManager serves the PHDC manager and the validation service on a
// serial link until interrupted.
func runManager(ctx context.Context, cfg *config) error {
	link, err := uart.Open(cfg.device, cfg.uartConfig())
	if err != nil {
		return err
	}
	defer func() { _ = link.Close() }()

	scenario.RegisterValidationServices(link)
	phdc.Infof("serving %s and %s on %s", llcp.ServicePHDC, llcp.ServiceValidation, link.PortName())
	return link.Serve(ctx)
}

func isHelp(err error) bool {
	return errors.Is(err, flag.ErrHelp)
}
