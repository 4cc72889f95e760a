//go:build !deadlock

// Package syncutil provides the lock types used around the shared NDEF data
// area. By default the standard sync types are used. Build with
// -tags=deadlock to route them through github.com/sasha-s/go-deadlock, which
// reports transaction locks that are never released by the peer.
package syncutil

import "sync"

// Mutex wraps sync.Mutex. Build with -tags=deadlock for deadlock detection.
//
//nolint:gocritic // Intentionally embedding sync.Mutex to expose its interface
type Mutex struct {
	sync.Mutex
}

// RWMutex wraps sync.RWMutex. Build with -tags=deadlock for deadlock detection.
//
//nolint:gocritic // Intentionally embedding sync.RWMutex to expose its interface
type RWMutex struct {
	sync.RWMutex
}
