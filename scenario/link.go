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

package scenario

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"slices"

	phdc "github.com/ZaparooProject/go-phdc"
	"github.com/ZaparooProject/go-phdc/llcp"
)

// LinkTests lists the link test numbers and their descriptions
var LinkTests = []string{
	"send data read from scenario file",
	"connect, associate and release",
	"association after release",
	"fragmentation and reassembly",
}

// FragmentationSize is the APDU size link test 3 sends
const FragmentationSize = 2176

// LinkConfig extends Config for link tests.
type LinkConfig struct {
	Config
	Agent llcp.AgentConfig
}

// DefaultLinkConfig returns the validation timing and default agent settings.
func DefaultLinkConfig() LinkConfig {
	return LinkConfig{Config: DefaultConfig(), Agent: llcp.DefaultAgentConfig()}
}

// RunLinkTest runs one link test against the manager reachable through dialer.
func RunLinkTest(ctx context.Context, test int, dialer llcp.Dialer, cfg LinkConfig) error {
	if test < 0 || test >= len(LinkTests) {
		return fmt.Errorf("%w: llcp test %d", ErrUnknownTest, test)
	}
	phdc.Infof("llcp test %d: %s", test, LinkTests[test])

	var err error
	switch test {
	case 0:
		err = linkReplay(ctx, dialer, cfg)
	case 1:
		err = linkAssociateAndRelease(ctx, dialer, cfg)
	case 2:
		err = linkReassociate(ctx, dialer, cfg)
	case 3:
		err = linkFragmentation(ctx, dialer, cfg)
	}
	if err != nil {
		var te *TestError
		if errors.As(err, &te) {
			te.Test = test
			return te
		}
		return testError("llcp", test, err)
	}
	return nil
}

// connect dials service and reports a refusal as a test failure.
func connect(ctx context.Context, dialer llcp.Dialer, service string, cfg LinkConfig) (*llcp.Agent, error) {
	agent, err := llcp.Connect(ctx, dialer, service, cfg.Agent)
	if err != nil {
		if errors.Is(err, llcp.ErrConnectRefused) {
			return nil, &TestError{
				Kind:   "llcp",
				Reason: fmt.Sprintf("could not connect to %q", service),
				Err:    err,
			}
		}
		return nil, err
	}
	phdc.Infof("connected with phdc manager at %s", service)
	return agent, nil
}

func linkReplay(ctx context.Context, dialer llcp.Dialer, cfg LinkConfig) error {
	agent, err := connect(ctx, dialer, llcp.ServicePHDC, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = agent.Close() }()

	phdc.Infof("entering ieee agent")
	defer phdc.Infof("leaving ieee agent")
	return replay(ctx, agent, cfg.Timing, cfg.Scenario)
}

func linkAssociateAndRelease(ctx context.Context, dialer llcp.Dialer, cfg LinkConfig) error {
	agent, err := connect(ctx, dialer, llcp.ServicePHDC, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = agent.Close() }()

	return associateAndRelease(ctx, agent, cfg.Timing)
}

func linkReassociate(ctx context.Context, dialer llcp.Dialer, cfg LinkConfig) error {
	agent, err := connect(ctx, dialer, llcp.ServicePHDC, cfg)
	if err != nil {
		return err
	}

	phdc.Infof("entering ieee agent")
	err = exchange(ctx, agent, cfg.Timing, "thermometer association request",
		ThermometerAssocRequest, prefixAssocResponse)
	_ = agent.Close()
	if err != nil {
		return err
	}

	agent, err = connect(ctx, dialer, llcp.ServicePHDC, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = agent.Close() }()

	return associateAndRelease(ctx, agent, cfg.Timing)
}

func linkFragmentation(ctx context.Context, dialer llcp.Dialer, cfg LinkConfig) error {
	agent, err := connect(ctx, dialer, llcp.ServiceValidation, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = agent.Close() }()

	apdu := make([]byte, FragmentationSize)
	if _, err := rand.Read(apdu); err != nil {
		return fmt.Errorf("failed to generate APDU: %w", err)
	}

	phdc.Infof("send ieee apdu of size %d byte", len(apdu))
	if err := agent.Send(ctx, apdu); err != nil {
		return err
	}

	rcvd, err := agent.Receive(ctx, cfg.Timing.Receive)
	if err != nil {
		return err
	}
	phdc.Infof("rcvd %d byte apdu", len(rcvd))

	slices.Reverse(rcvd)
	if !bytes.Equal(rcvd, apdu) {
		return &TestError{Kind: "llcp", Reason: "received data does not equal sent data"}
	}
	return nil
}
