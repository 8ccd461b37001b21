// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package auth

import (
	"fmt"
	"sync"
	"time"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/heap"
)

// ReplayGuard executes each signed request at most once. A request that was
// checked but never recorded, because it was rejected, may be sent again. Requests must be
// signed within [window] of the time they are checked.
type ReplayGuard struct {
	window int64

	l    sync.Mutex
	seen heap.Map[ids.ID, int64]
}

func NewReplayGuard(window time.Duration) *ReplayGuard {
	return &ReplayGuard{
		window: window.Milliseconds(),
		seen: heap.NewMap[ids.ID, int64](func(a, b int64) bool {
			return a < b
		}),
	}
}

// Check returns nil if [id] signed at [timestamp] has not executed yet and
// [timestamp] is within the window around [now]. Check does not remember
// [id]; call [ReplayGuard.Record] once the request has executed.
func (r *ReplayGuard) Check(id ids.ID, timestamp int64, now int64) error {
	r.l.Lock()
	defer r.l.Unlock()

	minTimestamp := now - r.window
	r.evict(minTimestamp)

	if timestamp < minTimestamp {
		return fmt.Errorf("%w: %d < %d", ErrStaleRequest, timestamp, minTimestamp)
	}
	if timestamp > now+r.window {
		return fmt.Errorf("%w: %d > %d", ErrFutureRequest, timestamp, now+r.window)
	}
	if r.seen.Contains(id) {
		return fmt.Errorf("%w: %s", ErrDuplicateRequest, id)
	}
	return nil
}

// Record remembers [id] until [timestamp] leaves the window.
func (r *ReplayGuard) Record(id ids.ID, timestamp int64) {
	r.l.Lock()
	defer r.l.Unlock()

	if !r.seen.Contains(id) {
		r.seen.Push(id, timestamp)
	}
}

// Len returns the number of requests currently remembered.
func (r *ReplayGuard) Len() int {
	r.l.Lock()
	defer r.l.Unlock()

	return r.seen.Len()
}

// evict forgets requests that could no longer pass the window check.
func (r *ReplayGuard) evict(minTimestamp int64) {
	for {
		_, t, ok := r.seen.Peek()
		if !ok || t >= minTimestamp {
			return
		}
		r.seen.Pop()
	}
}
