// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package auction

import (
	"context"
	"fmt"

	"go.uber.org/atomic"

	"github.com/ava-labs/dutchvm/codec"
	"github.com/ava-labs/dutchvm/pricing"
	"github.com/ava-labs/dutchvm/state"
	"github.com/ava-labs/dutchvm/storage"
)

// Engine executes purchases and owner controls for a single auction.
//
// Engine does not serialize callers. It rejects calls that arrive while
// another call is executing with [ErrReentrantCall].
type Engine struct {
	config     *Config
	model      pricing.Model
	escrow     codec.Address
	transferer Transferer

	executing atomic.Bool
}

// Status is a point-in-time view of the auction.
type Status struct {
	Price     uint64 `json:"price"`
	Remaining uint64 `json:"remaining"`
	Halted    bool   `json:"halted"`
	Ended     bool   `json:"ended"`
	SoldOut   bool   `json:"soldOut"`
	Terminal  bool   `json:"terminal"`
}

func NewEngine(config *Config, transferer Transferer) (*Engine, error) {
	if err := config.Verify(); err != nil {
		return nil, err
	}
	model, err := config.Model()
	if err != nil {
		return nil, err
	}
	escrow, err := config.Escrow()
	if err != nil {
		return nil, err
	}
	return &Engine{
		config:     config,
		model:      model,
		escrow:     escrow,
		transferer: transferer,
	}, nil
}

// Load returns the engine for the auction stored in [im].
func Load(ctx context.Context, im state.Immutable, transferer Transferer) (*Engine, error) {
	b, exists, err := storage.GetConfig(ctx, im)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotInitialized
	}
	config, err := UnmarshalConfig(b)
	if err != nil {
		return nil, err
	}
	return NewEngine(config, transferer)
}

func (e *Engine) Config() *Config {
	return e.config
}

func (e *Engine) Escrow() codec.Address {
	return e.escrow
}

// Initialize stores the config and the initial supply. It fails without
// writing anything if [mu] already holds an auction.
func (e *Engine) Initialize(ctx context.Context, mu state.Mutable) error {
	_, exists, err := storage.GetConfig(ctx, mu)
	if err != nil {
		return err
	}
	if exists {
		return ErrAlreadyInitialized
	}
	b, err := e.config.Marshal()
	if err != nil {
		return err
	}
	if err := storage.SetConfig(ctx, mu, b); err != nil {
		return err
	}
	return storage.SetRemaining(ctx, mu, e.config.TotalSupply)
}

// Price returns the unit price at [now].
func (e *Engine) Price(now int64) uint64 {
	return e.model.Price(now)
}

func (*Engine) Remaining(ctx context.Context, im state.Immutable) (uint64, error) {
	return storage.GetRemaining(ctx, im)
}

func (*Engine) Halted(ctx context.Context, im state.Immutable) (bool, error) {
	return storage.GetHalted(ctx, im)
}

// Terminal reports whether no purchase can ever succeed again.
func (e *Engine) Terminal(ctx context.Context, im state.Immutable, now int64) (bool, error) {
	s, err := e.Status(ctx, im, now)
	if err != nil {
		return false, err
	}
	return s.Terminal, nil
}

func (e *Engine) Status(ctx context.Context, im state.Immutable, now int64) (*Status, error) {
	remaining, err := storage.GetRemaining(ctx, im)
	if err != nil {
		return nil, err
	}
	halted, err := storage.GetHalted(ctx, im)
	if err != nil {
		return nil, err
	}
	s := &Status{
		Price:     e.model.Price(now),
		Remaining: remaining,
		Halted:    halted,
		Ended:     now >= e.config.EndTime,
		SoldOut:   remaining == 0,
	}
	s.Terminal = s.Halted || s.Ended || s.SoldOut
	return s, nil
}

// Buy sells [quantity] asset base units to [buyer] at the price at [now].
// If [maxTotal] is non-zero the purchase is rejected when the total exceeds
// it.
//
// The remaining supply is decremented before either transfer is issued. Any
// failure rolls [mu] back to the state it had when Buy was called.
func (e *Engine) Buy(
	ctx context.Context,
	mu state.Journaled,
	buyer codec.Address,
	quantity uint64,
	maxTotal uint64,
	now int64,
) (*PurchaseRecord, error) {
	if !e.executing.CompareAndSwap(false, true) {
		return nil, ErrReentrantCall
	}
	defer e.executing.Store(false)

	halted, err := storage.GetHalted(ctx, mu)
	if err != nil {
		return nil, err
	}
	if halted {
		return nil, ErrAuctionHalted
	}
	if now >= e.config.EndTime {
		return nil, fmt.Errorf("%w: now=%d end=%d", ErrAuctionEnded, now, e.config.EndTime)
	}
	if quantity == 0 {
		return nil, ErrZeroQuantity
	}
	remaining, err := storage.GetRemaining(ctx, mu)
	if err != nil {
		return nil, err
	}
	if quantity > remaining {
		return nil, fmt.Errorf("%w: requested %d but %d remain", ErrInsufficientSupply, quantity, remaining)
	}
	price := e.model.Price(now)
	total, err := e.model.Total(price, quantity)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPaymentOverflow, err)
	}
	if maxTotal > 0 && total > maxTotal {
		return nil, fmt.Errorf("%w: total=%d max=%d", ErrMaxPriceExceeded, total, maxTotal)
	}
	seq, err := storage.GetSequence(ctx, mu)
	if err != nil {
		return nil, err
	}

	restorePoint := mu.OpIndex()
	if err := e.execute(ctx, mu, buyer, quantity, total, remaining, seq); err != nil {
		mu.Rollback(ctx, restorePoint)
		return nil, err
	}
	return &PurchaseRecord{
		Sequence:  seq + 1,
		Buyer:     buyer,
		Quantity:  quantity,
		UnitPrice: price,
		Total:     total,
		Timestamp: now,
	}, nil
}

func (e *Engine) execute(
	ctx context.Context,
	mu state.Mutable,
	buyer codec.Address,
	quantity uint64,
	total uint64,
	remaining uint64,
	seq uint64,
) error {
	if err := storage.SetRemaining(ctx, mu, remaining-quantity); err != nil {
		return err
	}
	if err := e.transferer.Transfer(ctx, mu, e.config.PaymentToken, buyer, e.config.Owner, total); err != nil {
		return fmt.Errorf("%w: %w", ErrPaymentTransferFailed, err)
	}
	if err := e.transferer.Transfer(ctx, mu, e.config.AssetToken, e.escrow, buyer, quantity); err != nil {
		return fmt.Errorf("%w: %w", ErrAssetTransferFailed, err)
	}
	return storage.SetSequence(ctx, mu, seq+1)
}

// Halt permanently disables purchases. Only the owner may halt. Halting an
// already halted auction succeeds without changing state; the returned bool
// is true only for the call that performed the transition.
func (e *Engine) Halt(ctx context.Context, mu state.Mutable, caller codec.Address) (bool, error) {
	if !e.executing.CompareAndSwap(false, true) {
		return false, ErrReentrantCall
	}
	defer e.executing.Store(false)

	if caller != e.config.Owner {
		return false, fmt.Errorf("%w: halt denied for %s", ErrNotOwner, caller)
	}
	halted, err := storage.GetHalted(ctx, mu)
	if err != nil {
		return false, err
	}
	if halted {
		return false, nil
	}
	return true, storage.SetHalted(ctx, mu, true)
}
