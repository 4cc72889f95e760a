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

// Package uart carries the LLCP data link over a serial line, for bench
// setups where the peer is a reader bridge rather than an NFC controller
// in the same process. Each PDU travels in its own checksummed frame.
package uart

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ZaparooProject/go-phdc/internal/frame"
	"github.com/ZaparooProject/go-phdc/llcp"
	"github.com/pion/logging"
	"github.com/puzpuzpuz/xsync/v3"
	"go.bug.st/serial"
)

// Serial link errors
var (
	ErrLinkBusy    = errors.New("uart: a connection is already open")
	ErrLinkClosed  = errors.New("uart: link closed")
	ErrShortWrite  = errors.New("uart: short write")
	ErrServiceName = errors.New("uart: service name too long")
)

// reasonNoService is the DM reason sent when no handler is bound to the
// requested service name.
const reasonNoService = 0x02

// Config holds serial link settings.
type Config struct {
	LoggerFactory logging.LoggerFactory
	MIU           int
	BaudRate      int
	ReadTimeout   time.Duration
}

// DefaultConfig returns 115200 8N1 with the default MIU.
func DefaultConfig() Config {
	return Config{
		MIU:         llcp.DefaultMIU,
		BaudRate:    115200,
		ReadTimeout: defaultReadTimeout(),
	}
}

// defaultReadTimeout returns the port poll interval. Windows serial
// drivers need a longer one.
func defaultReadTimeout() time.Duration {
	if runtime.GOOS == "windows" {
		return 100 * time.Millisecond
	}
	return 50 * time.Millisecond
}

// Link is a point-to-point data link over a serial port. It carries one
// connection at a time, in either direction: Dial opens one to the peer,
// Serve accepts the peer's.
type Link struct {
	port     serial.Port
	log      logging.LeveledLogger
	services *xsync.MapOf[string, llcp.Handler]
	incoming chan frame.PDU
	done     chan struct{}
	portName string
	wg       sync.WaitGroup
	miu      int
	writeMu  sync.Mutex
	busy     atomic.Bool
	closed   sync.Once
	readErr  atomic.Pointer[error]
}

// Open opens a serial port and starts a link on it.
func Open(portName string, cfg Config) (*Link, error) {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 115200
	}
	port, err := serial.Open(portName, &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open UART port %s: %w", portName, err)
	}
	link, err := NewLink(port, portName, cfg)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	return link, nil
}

// NewLink starts a link on an already opened port. The link owns the port
// and closes it on Close.
func NewLink(port serial.Port, portName string, cfg Config) (*Link, error) {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout()
	}
	if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
		return nil, fmt.Errorf("failed to set UART read timeout: %w", err)
	}
	miu := cfg.MIU
	if miu <= 0 {
		miu = llcp.DefaultMIU
	}
	if miu > frame.MaxPayload {
		miu = frame.MaxPayload
	}
	factory := cfg.LoggerFactory
	if factory == nil {
		factory = logging.NewDefaultLoggerFactory()
	}

	l := &Link{
		port:     port,
		portName: portName,
		miu:      miu,
		log:      factory.NewLogger("uart"),
		services: xsync.NewMapOf[string, llcp.Handler](),
		incoming: make(chan frame.PDU, 32),
		done:     make(chan struct{}),
	}
	l.wg.Add(1)
	go l.readLoop()
	return l, nil
}

// PortName returns the name the link was opened with.
func (l *Link) PortName() string {
	return l.portName
}

// MIU returns the largest information PDU the link carries.
func (l *Link) MIU() int {
	return l.miu
}

// Err returns the error that stopped the reader, if any.
func (l *Link) Err() error {
	if p := l.readErr.Load(); p != nil {
		return *p
	}
	return nil
}

// Close stops the reader and closes the port.
func (l *Link) Close() error {
	var err error
	l.closed.Do(func() {
		close(l.done)
		if cerr := l.port.Close(); cerr != nil {
			err = fmt.Errorf("UART close failed: %w", cerr)
		}
		l.wg.Wait()
	})
	return err
}

// isInterruptedSystemCall checks if an error is caused by an interrupted system call
func isInterruptedSystemCall(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "interrupted system call") ||
		strings.Contains(errStr, "eintr")
}

// drainWithRetry waits for the output buffer to flush, retrying when a
// signal interrupts the call.
func (l *Link) drainWithRetry() error {
	const maxRetries = 3
	baseDelay := 2 * time.Millisecond

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := l.port.Drain()
		if err == nil {
			return nil
		}
		if isInterruptedSystemCall(err) && attempt < maxRetries-1 {
			time.Sleep(baseDelay * time.Duration(1<<attempt))
			continue
		}
		return fmt.Errorf("UART drain failed: %w", err)
	}
	return fmt.Errorf("UART drain failed after %d retries", maxRetries)
}

func (l *Link) writePDU(ptype byte, payload []byte) error {
	frm, err := frame.Encode(ptype, payload)
	if err != nil {
		return err
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	select {
	case <-l.done:
		return ErrLinkClosed
	default:
	}
	n, err := l.port.Write(frm)
	if err != nil {
		return fmt.Errorf("UART write failed: %w", err)
	} else if n != len(frm) {
		return fmt.Errorf("%w: %d of %d bytes", ErrShortWrite, n, len(frm))
	}
	l.log.Tracef("%s >>> %s", l.portName, frame.TypeName(ptype))
	return l.drainWithRetry()
}

// readLoop turns the byte stream into PDUs. It is the only sender on
// incoming and closes it on exit.
func (l *Link) readLoop() {
	defer l.wg.Done()
	defer close(l.incoming)

	buf := make([]byte, 512)
	var pending []byte
	for {
		select {
		case <-l.done:
			return
		default:
		}

		n, err := l.port.Read(buf)
		if err != nil {
			if isInterruptedSystemCall(err) {
				continue
			}
			select {
			case <-l.done:
			default:
				l.log.Debugf("%s read stopped: %v", l.portName, err)
				wrapped := fmt.Errorf("UART read failed: %w", err)
				l.readErr.Store(&wrapped)
			}
			return
		}
		if n == 0 {
			continue
		}

		pending = append(pending, buf[:n]...)
		for len(pending) > 0 {
			pdu, consumed, err := frame.Extract(pending)
			pending = pending[consumed:]
			if errors.Is(err, frame.ErrIncomplete) {
				break
			}
			if err != nil {
				l.log.Debugf("%s dropped frame: %v", l.portName, err)
				continue
			}
			l.log.Tracef("%s <<< %s", l.portName, pdu)
			select {
			case l.incoming <- pdu:
			case <-l.done:
				return
			}
		}
	}
}

// next returns the next PDU, or llcp.ErrClosed once the reader has stopped.
func (l *Link) next(ctx context.Context) (frame.PDU, error) {
	select {
	case pdu, ok := <-l.incoming:
		if !ok {
			return frame.PDU{}, llcp.ErrClosed
		}
		return pdu, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return frame.PDU{}, llcp.ErrTimeout
		}
		return frame.PDU{}, ctx.Err()
	}
}

// Dial connects to a service on the peer.
func (l *Link) Dial(ctx context.Context, service string) (llcp.Conn, error) {
	if len(service) > frame.MaxPayload {
		return nil, fmt.Errorf("%w: %d bytes", ErrServiceName, len(service))
	}
	if !l.busy.CompareAndSwap(false, true) {
		return nil, ErrLinkBusy
	}
	if err := l.writePDU(frame.TypeConnect, []byte(service)); err != nil {
		l.busy.Store(false)
		return nil, err
	}

	for {
		pdu, err := l.next(ctx)
		if err != nil {
			l.busy.Store(false)
			return nil, err
		}
		switch pdu.Type {
		case frame.TypeCC:
			return &conn{link: l}, nil
		case frame.TypeDM:
			l.busy.Store(false)
			return nil, fmt.Errorf("%w: %s", llcp.ErrConnectRefused, service)
		default:
			l.log.Debugf("%s ignoring %s while connecting", l.portName, pdu)
		}
	}
}

// Handle registers a handler for connections the peer opens with Serve.
func (l *Link) Handle(service string, h llcp.Handler) {
	l.services.Store(service, h)
}

// Serve accepts the peer's connections until ctx ends or the link closes.
// Each accepted connection runs its handler to completion before the next
// CONNECT is read. Unknown services are refused with DM.
func (l *Link) Serve(ctx context.Context) error {
	for {
		pdu, err := l.next(ctx)
		if err != nil {
			if errors.Is(err, llcp.ErrTimeout) {
				return ctx.Err()
			}
			return err
		}
		if pdu.Type != frame.TypeConnect {
			l.log.Debugf("%s ignoring %s with no connection", l.portName, pdu)
			continue
		}

		service := string(pdu.Payload)
		h, ok := l.services.Load(service)
		if !ok || !l.busy.CompareAndSwap(false, true) {
			l.log.Debugf("%s refusing %q", l.portName, service)
			if err := l.writePDU(frame.TypeDM, []byte{reasonNoService}); err != nil {
				return err
			}
			continue
		}
		if err := l.writePDU(frame.TypeCC, nil); err != nil {
			l.busy.Store(false)
			return err
		}

		c := &conn{link: l}
		h(c)
		_ = c.Close()
	}
}

// conn is the link's single open connection.
type conn struct {
	link       *Link
	closeOnce  sync.Once
	peerClosed atomic.Bool
	closed     atomic.Bool
}

func (c *conn) MIU() int {
	return c.link.miu
}

func (c *conn) Send(ctx context.Context, segment []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.closed.Load() || c.peerClosed.Load() {
		return llcp.ErrClosed
	}
	if len(segment) > c.link.miu {
		return fmt.Errorf("%w: %d bytes, MIU %d", llcp.ErrMIUExceeded, len(segment), c.link.miu)
	}
	if err := c.link.writePDU(frame.TypeI, segment); err != nil {
		if errors.Is(err, ErrLinkClosed) {
			return llcp.ErrClosed
		}
		return err
	}
	return nil
}

func (c *conn) Recv(ctx context.Context) ([]byte, error) {
	if c.closed.Load() || c.peerClosed.Load() {
		return nil, llcp.ErrClosed
	}
	for {
		pdu, err := c.link.next(ctx)
		if err != nil {
			return nil, err
		}
		switch pdu.Type {
		case frame.TypeI:
			return pdu.Payload, nil
		case frame.TypeDisconnect:
			c.peerClosed.Store(true)
			return nil, llcp.ErrClosed
		case frame.TypeConnect:
			// The peer cannot open a second connection
			_ = c.link.writePDU(frame.TypeDM, []byte{reasonNoService})
		default:
			c.link.log.Debugf("%s ignoring %s on open connection", c.link.portName, pdu)
		}
	}
}

// Close sends DISC unless the peer already disconnected, and frees the
// link for the next connection.
func (c *conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		if !c.peerClosed.Load() {
			err = c.link.writePDU(frame.TypeDisconnect, nil)
			if errors.Is(err, ErrLinkClosed) {
				err = nil
			}
		}
		c.link.busy.Store(false)
	})
	return err
}

// ListPorts returns the names of the serial ports on this machine.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}
