// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package event

import (
	"context"
	"errors"
	"sync"
)

var (
	_ Subscription[struct{}] = (*SubscriptionFunc[struct{}])(nil)

	ErrClosed = errors.New("bus closed")
)

// Subscription defines how to consume events
type Subscription[T any] interface {
	// Accept returns fatal errors
	Accept(ctx context.Context, t T) error
	// Close returns fatal errors
	Close() error
}

type SubscriptionFunc[T any] struct {
	AcceptF func(ctx context.Context, t T) error
}

func (s SubscriptionFunc[T]) Accept(ctx context.Context, t T) error {
	return s.AcceptF(ctx, t)
}

func (SubscriptionFunc[_]) Close() error {
	return nil
}

// NotifyAll delivers [e] to every subscription, even if an earlier one
// fails, and returns the joined errors.
func NotifyAll[T any](ctx context.Context, e T, subs ...Subscription[T]) error {
	var errs []error
	for _, sub := range subs {
		if err := sub.Accept(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Bus fans events out to a dynamic set of subscriptions.
type Bus[T any] struct {
	l      sync.RWMutex
	subs   []Subscription[T]
	closed bool
}

func NewBus[T any](subs ...Subscription[T]) *Bus[T] {
	return &Bus[T]{subs: subs}
}

// Subscribe adds [sub] to the bus. Events published before Subscribe returns
// are not delivered to [sub].
func (b *Bus[T]) Subscribe(sub Subscription[T]) error {
	b.l.Lock()
	defer b.l.Unlock()

	if b.closed {
		return ErrClosed
	}
	b.subs = append(b.subs, sub)
	return nil
}

func (b *Bus[T]) Len() int {
	b.l.RLock()
	defer b.l.RUnlock()

	return len(b.subs)
}

// Notify delivers [e] to every subscription in the order they subscribed.
func (b *Bus[T]) Notify(ctx context.Context, e T) error {
	b.l.RLock()
	defer b.l.RUnlock()

	if b.closed {
		return ErrClosed
	}
	return NotifyAll(ctx, e, b.subs...)
}

// Close closes every subscription. Later calls are no-ops.
func (b *Bus[T]) Close() error {
	b.l.Lock()
	defer b.l.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	var errs []error
	for _, sub := range b.subs {
		if err := sub.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	b.subs = nil
	return errors.Join(errs...)
}
