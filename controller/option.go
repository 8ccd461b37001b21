// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package controller

import (
	"time"

	"github.com/ava-labs/dutchvm/archive"
	"github.com/ava-labs/dutchvm/auction"
	"github.com/ava-labs/dutchvm/event"
)

type Option func(*Controller)

// WithArchive stores every purchase record in [a] and serves [Controller.Records]
// from it.
func WithArchive(a *archive.Archive) Option {
	return func(c *Controller) {
		c.archive = a
		c.subscriptions = append(c.subscriptions, a)
	}
}

// WithSubscriptions adds purchase record sinks. Sinks are notified in the
// order they are added, after the archive.
func WithSubscriptions(subs ...event.Subscription[*auction.PurchaseRecord]) Option {
	return func(c *Controller) {
		c.subscriptions = append(c.subscriptions, subs...)
	}
}

func WithReplayWindow(window time.Duration) Option {
	return func(c *Controller) {
		c.replayWindow = window
	}
}

// WithMaxRecords caps the number of records returned by a single
// [Controller.Records] call.
func WithMaxRecords(limit int) Option {
	return func(c *Controller) {
		c.maxRecords = limit
	}
}
