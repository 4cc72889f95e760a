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
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/pion/transport/v3/packetio"
	"github.com/puzpuzpuz/xsync/v3"
)

// pipeConn is one end of an in-memory data link. Each direction is a
// packetio.Buffer, which keeps PDU boundaries and supports read deadlines.
type pipeConn struct {
	rx        *packetio.Buffer
	tx        *packetio.Buffer
	miu       int
	closeOnce sync.Once
}

// Pipe returns the two ends of an in-memory data link whose PDUs are
// limited to miu bytes.
func Pipe(miu int) (Conn, Conn) {
	if miu <= 0 {
		miu = DefaultMIU
	}
	ab := packetio.NewBuffer()
	ba := packetio.NewBuffer()
	return &pipeConn{rx: ba, tx: ab, miu: miu}, &pipeConn{rx: ab, tx: ba, miu: miu}
}

func (c *pipeConn) MIU() int {
	return c.miu
}

func (c *pipeConn) Send(ctx context.Context, segment []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(segment) > c.miu {
		return fmt.Errorf("%w: %d bytes, MIU %d", ErrMIUExceeded, len(segment), c.miu)
	}
	if _, err := c.tx.Write(segment); err != nil {
		if errors.Is(err, io.ErrClosedPipe) {
			return ErrClosed
		}
		return fmt.Errorf("failed to write segment: %w", err)
	}
	return nil
}

func (c *pipeConn) Recv(ctx context.Context) ([]byte, error) {
	deadline, hasDeadline := ctx.Deadline()
	if err := c.rx.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("failed to set read deadline: %w", err)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = c.rx.SetReadDeadline(time.Now())
	})
	defer stop()

	buf := make([]byte, c.miu)
	n, err := c.rx.Read(buf)
	if err == nil {
		return buf[:n], nil
	}

	switch {
	case errors.Is(err, io.EOF):
		return nil, ErrClosed
	case errors.Is(ctx.Err(), context.DeadlineExceeded) || (hasDeadline && isTimeout(err)):
		return nil, ErrTimeout
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		return nil, fmt.Errorf("failed to read segment: %w", err)
	}
}

// Close ends both directions. The peer still reads what was already sent.
func (c *pipeConn) Close() error {
	c.closeOnce.Do(func() {
		_ = c.tx.Close()
		_ = c.rx.Close()
	})
	return nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Handler serves one accepted connection. The connection is closed when
// the handler returns.
type Handler func(conn Conn)

// Loopback is an in-process Dialer. Each Dial creates a Pipe and runs the
// service's handler on the far end.
type Loopback struct {
	services *xsync.MapOf[string, Handler]
	wg       sync.WaitGroup
	miu      int
}

// NewLoopback creates a loopback link with the given MIU.
func NewLoopback(miu int) *Loopback {
	return &Loopback{
		services: xsync.NewMapOf[string, Handler](),
		miu:      miu,
	}
}

// Handle registers a handler for a service name.
func (l *Loopback) Handle(service string, h Handler) {
	l.services.Store(service, h)
}

// Dial connects to a registered service.
func (l *Loopback) Dial(ctx context.Context, service string) (Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h, ok := l.services.Load(service)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConnectRefused, service)
	}

	client, server := Pipe(l.miu)
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer func() { _ = server.Close() }()
		h(server)
	}()
	return client, nil
}

// Wait blocks until every handler has returned.
func (l *Loopback) Wait() {
	l.wg.Wait()
}
