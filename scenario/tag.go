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
	"context"
	"errors"
	"fmt"

	phdc "github.com/ZaparooProject/go-phdc"
	"github.com/ZaparooProject/go-phdc/llcp"
	"github.com/ZaparooProject/go-phdc/t3t"
)

// TagTests lists the tag test numbers and their descriptions
var TagTests = []string{
	"send data read from scenario file",
	"associate and release",
	"association after release",
	"sending with non-zero message counter",
	"sending with non-zero reserved field",
}

// Config holds what a test needs besides its link.
type Config struct {
	// Scenario is replayed by test 0
	Scenario [][]byte
	// AgentOptions are applied to the tag agent before the test's own
	AgentOptions []phdc.Option
	Timing       Timing
}

// DefaultConfig returns a configuration with the validation timing and no
// scenario.
func DefaultConfig() Config {
	return Config{Timing: DefaultTiming()}
}

// RunTagTest runs one tag test on an activated tag emulation. cmd is the
// first command the reader sent.
func RunTagTest(ctx context.Context, test int, tag t3t.Emulation, cmd []byte, cfg Config) error {
	if test < 0 || test >= len(TagTests) {
		return fmt.Errorf("%w: tag test %d", ErrUnknownTest, test)
	}
	phdc.Infof("tag test %d: %s", test, TagTests[test])

	opts := append([]phdc.Option(nil), cfg.AgentOptions...)
	switch test {
	case 3:
		opts = append(opts, phdc.WithInitialMessage(nil, phdc.FlagAlternate))
	case 4:
		opts = append(opts, phdc.WithInitialMessage(nil, phdc.FlagReserved))
	}

	agent, err := phdc.NewTagAgent(tag, cmd, opts...)
	if err != nil {
		return fmt.Errorf("failed to create tag agent: %w", err)
	}
	if err := agent.Start(ctx); err != nil {
		return fmt.Errorf("failed to start tag agent: %w", err)
	}
	defer func() { _ = agent.Stop() }()

	peer := TagPeer{Agent: agent}
	timing := cfg.Timing

	var body error
	switch test {
	case 0:
		phdc.Infof("entering ieee agent")
		body = replay(ctx, peer, timing, cfg.Scenario)
		phdc.Infof("leaving ieee agent")
	case 1:
		body = associateAndRelease(ctx, peer, timing)
	case 2:
		body = reassociate(ctx, peer, timing)
		if body == nil {
			body = waitSession(ctx, agent, timing)
		}
	case 3:
		body = waitSession(ctx, agent, timing)
	case 4:
		phdc.Infof("entering ieee agent")
		body = sleep(ctx, timing.BeforeRelease)
		phdc.Infof("leaving ieee agent")
		if body == nil {
			body = waitSession(ctx, agent, timing)
		}
	}
	if body != nil {
		return testError("tag", test, body)
	}
	return nil
}

func associateAndRelease(ctx context.Context, peer Peer, timing Timing) error {
	phdc.Infof("entering ieee agent")
	defer phdc.Infof("leaving ieee agent")

	err := exchange(ctx, peer, timing, "thermometer association request",
		ThermometerAssocRequest, prefixAssocResponse)
	if err != nil {
		return err
	}
	phdc.Infof("rcvd association response")

	if err := sleep(ctx, timing.BeforeRelease); err != nil {
		return err
	}

	err = exchange(ctx, peer, timing, "association release request",
		AssocReleaseRequest, prefixReleaseResponse)
	if err != nil {
		return err
	}
	phdc.Infof("rcvd association release response")
	return nil
}

// reassociate associates, releases and associates again, then leaves the
// association open for the devices to be moved apart.
func reassociate(ctx context.Context, peer Peer, timing Timing) error {
	phdc.Infof("entering ieee agent")
	err := exchange(ctx, peer, timing, "thermometer association request",
		ThermometerAssocRequest, prefixAssocResponse)
	if err != nil {
		return err
	}
	err = exchange(ctx, peer, timing, "association release request",
		AssocReleaseRequest, prefixReleaseResponse)
	if err != nil {
		return err
	}
	phdc.Infof("leaving ieee agent")

	if err := sleep(ctx, timing.BeforeRelease); err != nil {
		return err
	}

	phdc.Infof("entering ieee agent")
	err = exchange(ctx, peer, timing, "thermometer association request",
		ThermometerAssocRequest, prefixAssocResponse)
	if err != nil {
		return err
	}
	if err := sleep(ctx, timing.BeforeLeave); err != nil {
		return err
	}
	phdc.Infof("now move devices out of communication range")
	phdc.Infof("leaving ieee agent")
	return nil
}

// waitSession waits up to the join timeout for the tag session to end. A
// session ended by the link is the expected outcome, not a failure.
func waitSession(ctx context.Context, agent *phdc.TagAgent, timing Timing) error {
	ctx, cancel := context.WithTimeout(ctx, timing.Join)
	defer cancel()

	err := agent.Wait(ctx)
	switch {
	case err == nil, phdc.IsTransportError(err):
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		phdc.Infof("tag session still active after %s", timing.Join)
		return nil
	default:
		return err
	}
}

func testError(kind string, test int, err error) error {
	te := &TestError{Kind: kind, Test: test, Err: err}
	var unexpected *unexpectedResponse
	switch {
	case errors.As(err, &unexpected):
		te.Reason = "unexpected response"
	case errors.Is(err, ErrNoResponse), errors.Is(err, llcp.ErrTimeout):
		te.Reason = "no response"
	default:
		te.Reason = "exchange failed"
	}
	return te
}
