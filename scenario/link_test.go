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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZaparooProject/go-phdc/llcp"
)

func fastLinkConfig() LinkConfig {
	cfg := DefaultLinkConfig()
	cfg.Timing = Timing{
		Receive:       2 * time.Second,
		BeforeRelease: 10 * time.Millisecond,
		BeforeLeave:   10 * time.Millisecond,
		Join:          time.Second,
	}
	return cfg
}

func validationLoopback() *llcp.Loopback {
	l := llcp.NewLoopback(llcp.DefaultMIU)
	RegisterValidationServices(l)
	return l
}

func TestRunLinkTest_All(t *testing.T) {
	t.Parallel()

	cfg := fastLinkConfig()
	cfg.Scenario = [][]byte{ThermometerAssocRequest, AssocReleaseRequest}

	for test := range LinkTests {
		l := validationLoopback()
		require.NoError(t, RunLinkTest(context.Background(), test, l, cfg), "llcp test %d", test)
		l.Wait()
	}
}

func TestRunLinkTest_ConnectRefused(t *testing.T) {
	t.Parallel()

	err := RunLinkTest(context.Background(), 3, llcp.NewLoopback(llcp.DefaultMIU), fastLinkConfig())
	require.ErrorIs(t, err, ErrTestFailed)
	require.ErrorIs(t, err, llcp.ErrConnectRefused)

	var te *TestError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 3, te.Test)
	assert.Contains(t, te.Error(), llcp.ServiceValidation)
}

func TestRunLinkTest_UnexpectedResponse(t *testing.T) {
	t.Parallel()

	l := llcp.NewLoopback(llcp.DefaultMIU)
	l.Handle(llcp.ServicePHDC, func(conn llcp.Conn) {
		ServeLink(conn, Reverse)
	})

	err := RunLinkTest(context.Background(), 1, l, fastLinkConfig())
	require.ErrorIs(t, err, ErrTestFailed)
	assert.Contains(t, err.Error(), "unexpected response")
}

func TestRunLinkTest_FragmentationMismatch(t *testing.T) {
	t.Parallel()

	l := llcp.NewLoopback(llcp.DefaultMIU)
	l.Handle(llcp.ServiceValidation, func(conn llcp.Conn) {
		ServeLink(conn, func(apdu []byte) []byte { return apdu })
	})

	err := RunLinkTest(context.Background(), 3, l, fastLinkConfig())
	require.ErrorIs(t, err, ErrTestFailed)
	assert.Contains(t, err.Error(), "received data does not equal sent data")
}

func TestRunLinkTest_NoResponse(t *testing.T) {
	t.Parallel()

	l := llcp.NewLoopback(llcp.DefaultMIU)
	l.Handle(llcp.ServicePHDC, func(conn llcp.Conn) {
		ServeLink(conn, func([]byte) []byte { return nil })
	})

	cfg := fastLinkConfig()
	cfg.Timing.Receive = 30 * time.Millisecond

	err := RunLinkTest(context.Background(), 1, l, cfg)
	require.ErrorIs(t, err, ErrTestFailed)
	require.ErrorIs(t, err, llcp.ErrTimeout)
}

func TestRunLinkTest_Unknown(t *testing.T) {
	t.Parallel()

	err := RunLinkTest(context.Background(), 4, validationLoopback(), fastLinkConfig())
	require.ErrorIs(t, err, ErrUnknownTest)
}

func TestReverse(t *testing.T) {
	t.Parallel()

	in := []byte{1, 2, 3}
	assert.Equal(t, []byte{3, 2, 1}, Reverse(in))
	assert.Equal(t, []byte{1, 2, 3}, in)
}

func TestThermometerManager(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ThermometerAssocResponse, ThermometerManager(ThermometerAssocRequest))
	assert.Equal(t, AssocReleaseResponse, ThermometerManager(AssocReleaseRequest))
	assert.Nil(t, ThermometerManager([]byte{0xE7, 0x00}))
}
