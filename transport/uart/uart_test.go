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

package uart

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/ZaparooProject/go-phdc/internal/frame"
	virt "github.com/ZaparooProject/go-phdc/internal/testing"
	"github.com/ZaparooProject/go-phdc/llcp"
	"github.com/pion/transport/v3/packetio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

var errPortClosed = errors.New("port is closed")

// MockSerialPort is one end of an in-memory serial cable.
type MockSerialPort struct {
	rx          *packetio.Buffer
	tx          *packetio.Buffer
	readTimeout time.Duration
	mu          sync.Mutex
}

func NewMockSerialPair() (*MockSerialPort, *MockSerialPort) {
	ab := packetio.NewBuffer()
	ba := packetio.NewBuffer()
	return &MockSerialPort{rx: ba, tx: ab, readTimeout: 100 * time.Millisecond},
		&MockSerialPort{rx: ab, tx: ba, readTimeout: 100 * time.Millisecond}
}

func (*MockSerialPort) SetMode(_ *serial.Mode) error {
	return nil
}

func (m *MockSerialPort) Read(p []byte) (int, error) {
	m.mu.Lock()
	timeout := m.readTimeout
	m.mu.Unlock()
	_ = m.rx.SetReadDeadline(time.Now().Add(timeout))
	n, err := m.rx.Read(p)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return 0, nil
		}
		if errors.Is(err, io.EOF) {
			return 0, errPortClosed
		}
		return 0, err
	}
	return n, nil
}

func (m *MockSerialPort) Write(p []byte) (int, error) {
	n, err := m.tx.Write(p)
	if errors.Is(err, io.ErrClosedPipe) {
		return 0, errPortClosed
	}
	return n, err
}

func (*MockSerialPort) Drain() error {
	return nil
}

func (*MockSerialPort) ResetInputBuffer() error {
	return nil
}

func (*MockSerialPort) ResetOutputBuffer() error {
	return nil
}

func (*MockSerialPort) SetDTR(_ bool) error {
	return nil
}

func (*MockSerialPort) SetRTS(_ bool) error {
	return nil
}

func (*MockSerialPort) GetModemStatusBits() (*serial.ModemStatusBits, error) {
	return &serial.ModemStatusBits{}, nil
}

func (m *MockSerialPort) SetReadTimeout(t time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readTimeout = t
	return nil
}

func (m *MockSerialPort) Close() error {
	_ = m.tx.Close()
	_ = m.rx.Close()
	return nil
}

func (*MockSerialPort) Break(_ time.Duration) error {
	return nil
}

var _ serial.Port = (*MockSerialPort)(nil)

// JitteryMockSerialPort delivers its reads late and in fragments.
type JitteryMockSerialPort struct {
	*MockSerialPort
	jittery *virt.JitteryReader
}

func NewJitteryMockSerialPort(port *MockSerialPort, config virt.JitterConfig) *JitteryMockSerialPort {
	return &JitteryMockSerialPort{
		MockSerialPort: port,
		jittery:        virt.NewJitteryReader(port, config),
	}
}

func (j *JitteryMockSerialPort) Read(p []byte) (int, error) {
	return j.jittery.Read(p) //nolint:wrapcheck // Pass-through wrapper
}

var _ serial.Port = (*JitteryMockSerialPort)(nil)

func newLinkPair(t *testing.T) (*Link, *Link) {
	t.Helper()
	a, b := NewMockSerialPair()
	cfg := DefaultConfig()
	cfg.ReadTimeout = 10 * time.Millisecond

	client, err := NewLink(a, "mock-a", cfg)
	require.NoError(t, err)
	server, err := NewLink(b, "mock-b", cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.Close()
		_ = server.Close()
	})
	return client, server
}

func serve(t *testing.T, l *Link) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Serve(ctx) }()
	t.Cleanup(cancel)
	return cancel, errCh
}

func echo(c llcp.Conn) {
	ctx := context.Background()
	for {
		seg, err := c.Recv(ctx)
		if err != nil {
			return
		}
		if err := c.Send(ctx, seg); err != nil {
			return
		}
	}
}

func TestLinkDialAndEcho(t *testing.T) {
	t.Parallel()
	client, server := newLinkPair(t)
	server.Handle(llcp.ServiceValidation, echo)
	serve(t, server)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := client.Dial(ctx, llcp.ServiceValidation)
	require.NoError(t, err)
	assert.Equal(t, llcp.DefaultMIU, c.MIU())

	require.NoError(t, c.Send(ctx, []byte{0x01, 0x02, 0x03}))
	seg, err := c.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, seg)

	require.NoError(t, c.Close())
	require.ErrorIs(t, c.Send(ctx, []byte{0x01}), llcp.ErrClosed)
}

func TestLinkMessageRoundTrip(t *testing.T) {
	t.Parallel()
	client, server := newLinkPair(t)
	server.Handle(llcp.ServicePHDC, func(c llcp.Conn) {
		ctx := context.Background()
		msg, err := llcp.ReadMessage(ctx, c)
		if err != nil {
			return
		}
		_ = llcp.WriteMessage(ctx, c, msg)
	})
	serve(t, server)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := client.Dial(ctx, llcp.ServicePHDC)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	msg := make([]byte, 1000)
	for i := range msg {
		msg[i] = byte(i)
	}
	require.NoError(t, llcp.WriteMessage(ctx, c, msg))
	got, err := llcp.ReadMessage(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, msg, got)
}

func TestLinkRefusesUnknownService(t *testing.T) {
	t.Parallel()
	client, server := newLinkPair(t)
	serve(t, server)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := client.Dial(ctx, "urn:nfc:sn:unknown")
	require.ErrorIs(t, err, llcp.ErrConnectRefused)
	assert.Contains(t, err.Error(), "urn:nfc:sn:unknown")

	// The link is free again after a refusal
	server.Handle(llcp.ServiceValidation, echo)
	c, err := client.Dial(ctx, llcp.ServiceValidation)
	require.NoError(t, err)
	require.NoError(t, c.Close())
}

func TestLinkPeerDisconnect(t *testing.T) {
	t.Parallel()
	client, server := newLinkPair(t)
	server.Handle(llcp.ServicePHDC, func(llcp.Conn) {})
	serve(t, server)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := client.Dial(ctx, llcp.ServicePHDC)
	require.NoError(t, err)

	_, err = c.Recv(ctx)
	require.ErrorIs(t, err, llcp.ErrClosed)
	require.NoError(t, c.Close())
}

func TestLinkBusy(t *testing.T) {
	t.Parallel()
	client, server := newLinkPair(t)
	server.Handle(llcp.ServiceValidation, echo)
	serve(t, server)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := client.Dial(ctx, llcp.ServiceValidation)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	_, err = client.Dial(ctx, llcp.ServiceValidation)
	require.ErrorIs(t, err, ErrLinkBusy)
}

func TestLinkRecvTimeout(t *testing.T) {
	t.Parallel()
	client, server := newLinkPair(t)
	server.Handle(llcp.ServiceValidation, echo)
	serve(t, server)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := client.Dial(ctx, llcp.ServiceValidation)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	short, cancelShort := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancelShort()
	_, err = c.Recv(short)
	require.ErrorIs(t, err, llcp.ErrTimeout)
}

func TestLinkMIUExceeded(t *testing.T) {
	t.Parallel()
	client, server := newLinkPair(t)
	server.Handle(llcp.ServiceValidation, echo)
	serve(t, server)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := client.Dial(ctx, llcp.ServiceValidation)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	err = c.Send(ctx, make([]byte, c.MIU()+1))
	require.ErrorIs(t, err, llcp.ErrMIUExceeded)
}

func TestLinkSkipsCorruptFrames(t *testing.T) {
	t.Parallel()
	a, b := NewMockSerialPair()
	cfg := DefaultConfig()
	cfg.ReadTimeout = 10 * time.Millisecond
	link, err := NewLink(b, "mock-b", cfg)
	require.NoError(t, err)
	defer func() { _ = link.Close() }()
	defer func() { _ = a.Close() }()

	good, err := frame.Encode(frame.TypeDM, []byte{reasonNoService})
	require.NoError(t, err)
	bad := append([]byte(nil), good...)
	bad[len(bad)-2]++

	// Dial writes CONNECT to a, then reads the corrupt frame and the good DM
	go func() {
		buf := make([]byte, 512)
		for {
			n, err := a.Read(buf)
			if err != nil {
				return
			}
			if n > 0 {
				_, _ = a.Write(append([]byte{0x55, 0x55}, bad...))
				_, _ = a.Write(good)
				return
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = link.Dial(ctx, llcp.ServicePHDC)
	require.ErrorIs(t, err, llcp.ErrConnectRefused)
}

func TestLinkClose(t *testing.T) {
	t.Parallel()
	client, server := newLinkPair(t)
	_, errCh := serve(t, server)

	require.NoError(t, server.Close())
	select {
	case err := <-errCh:
		require.ErrorIs(t, err, llcp.ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after Close")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_, err := client.Dial(ctx, llcp.ServicePHDC)
	require.Error(t, err)
	require.NoError(t, server.Close())
}

func TestLinkJitteryLine(t *testing.T) {
	t.Parallel()
	a, b := NewMockSerialPair()
	cfg := DefaultConfig()
	cfg.ReadTimeout = 10 * time.Millisecond

	jitter := virt.DefaultJitterConfig()
	jitter.MaxLatency = time.Millisecond
	jitter.USBBoundaryStress = true
	jitter.Seed = 99

	client, err := NewLink(NewJitteryMockSerialPort(a, jitter), "mock-a", cfg)
	require.NoError(t, err)
	server, err := NewLink(NewJitteryMockSerialPort(b, jitter), "mock-b", cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.Close()
		_ = server.Close()
	})
	server.Handle(llcp.ServiceValidation, echo)
	serve(t, server)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	c, err := client.Dial(ctx, llcp.ServiceValidation)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	msg := make([]byte, 600)
	for i := range msg {
		msg[i] = byte(i * 7)
	}
	require.NoError(t, llcp.WriteMessage(ctx, c, msg))
	got, err := llcp.ReadMessage(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, msg, got)
}
