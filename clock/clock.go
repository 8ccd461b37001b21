// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package clock

import (
	"sync"
	"time"
)

// Clock allows injecting time into the controller and the CLI.
type Clock interface {
	Now() time.Time
}

// NowMilli returns the current unix time of [c] in milliseconds.
func NowMilli(c Clock) int64 {
	return c.Now().UnixMilli()
}

type systemClock struct{}

// NewSystem returns a clock backed by time.Now.
func NewSystem() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

type fixedClock struct {
	now time.Time
}

// NewFixed returns a clock that always returns the same instant.
func NewFixed(t time.Time) Clock {
	return fixedClock{now: t.UTC()}
}

func (f fixedClock) Now() time.Time {
	return f.now
}

// Manual is a clock that only moves when told to.
type Manual struct {
	l   sync.Mutex
	now time.Time
}

func NewManual(t time.Time) *Manual {
	return &Manual{now: t.UTC()}
}

// NewManualMilli starts a manual clock at [ms] unix milliseconds.
func NewManualMilli(ms int64) *Manual {
	return NewManual(time.UnixMilli(ms))
}

func (m *Manual) Now() time.Time {
	m.l.Lock()
	defer m.l.Unlock()

	return m.now
}

func (m *Manual) Set(t time.Time) {
	m.l.Lock()
	defer m.l.Unlock()

	m.now = t.UTC()
}

func (m *Manual) Advance(d time.Duration) {
	m.l.Lock()
	defer m.l.Unlock()

	m.now = m.now.Add(d)
}
