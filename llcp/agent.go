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

package llcp

import (
	"context"
	"fmt"
	"time"

	"github.com/pion/logging"
)

// AgentConfig configures an Agent.
type AgentConfig struct {
	// LoggerFactory creates the agent's logger. Nil uses pion's default
	// factory, which logs errors only.
	LoggerFactory logging.LoggerFactory

	// ReceiveTimeout bounds Receive when the caller passes no timeout.
	ReceiveTimeout time.Duration
}

// DefaultAgentConfig returns the default LLCP agent configuration.
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{ReceiveTimeout: 5 * time.Second}
}

// Agent exchanges whole APDUs with a PHDC manager over one connection.
type Agent struct {
	conn    Conn
	log     logging.LeveledLogger
	reasm   Reassembler
	timeout time.Duration
	service string
}

// Connect dials service and returns an agent on the new connection.
func Connect(ctx context.Context, dialer Dialer, service string, config AgentConfig) (*Agent, error) {
	conn, err := dialer.Dial(ctx, service)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", service, err)
	}
	return NewAgent(conn, service, config), nil
}

// NewAgent wraps an established connection.
func NewAgent(conn Conn, service string, config AgentConfig) *Agent {
	factory := config.LoggerFactory
	if factory == nil {
		factory = logging.NewDefaultLoggerFactory()
	}
	timeout := config.ReceiveTimeout
	if timeout <= 0 {
		timeout = DefaultAgentConfig().ReceiveTimeout
	}

	return &Agent{
		conn:    conn,
		log:     factory.NewLogger("llcp"),
		timeout: timeout,
		service: service,
	}
}

// Service returns the service name the agent is connected to.
func (a *Agent) Service() string {
	return a.service
}

// MIU returns the connection MIU.
func (a *Agent) MIU() int {
	return a.conn.MIU()
}

// Send transmits one APDU.
func (a *Agent) Send(ctx context.Context, apdu []byte) error {
	a.log.Debugf("[phdc] >>> %x", apdu)
	return WriteMessage(ctx, a.conn, apdu)
}

// Receive waits up to timeout for the next APDU. A zero timeout uses the
// configured default.
func (a *Agent) Receive(ctx context.Context, timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		timeout = a.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	apdu, err := a.reasm.Read(ctx, a.conn)
	if err != nil {
		a.log.Tracef("receive on %s failed: %v", a.service, err)
		return nil, err
	}
	a.log.Debugf("[phdc] <<< %x", apdu)
	return apdu, nil
}

// Close closes the connection.
func (a *Agent) Close() error {
	return a.conn.Close()
}
