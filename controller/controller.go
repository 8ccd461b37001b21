// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/trace"
	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ava-labs/dutchvm/archive"
	"github.com/ava-labs/dutchvm/auction"
	"github.com/ava-labs/dutchvm/auth"
	"github.com/ava-labs/dutchvm/clock"
	"github.com/ava-labs/dutchvm/codec"
	"github.com/ava-labs/dutchvm/consts"
	"github.com/ava-labs/dutchvm/event"
	"github.com/ava-labs/dutchvm/genesis"
	"github.com/ava-labs/dutchvm/state"
	"github.com/ava-labs/dutchvm/storage"
	"github.com/ava-labs/dutchvm/token"
	"github.com/ava-labs/dutchvm/tstate"
)

const (
	defaultReplayWindow = time.Minute
	defaultMaxRecords   = 1_024
	tstateChangedSize   = 16
)

// Controller runs a single auction on top of [db]. Mutating calls are
// serialized and each executes in its own [tstate] view that is flushed to
// [db] only on success.
type Controller struct {
	log     logging.Logger
	tracer  trace.Tracer
	clock   clock.Clock
	metrics *metrics

	db        state.Mutable
	ts        *tstate.TState
	engine    *auction.Engine
	ledger    *token.Ledger
	auctionID ids.ID
	replay    *auth.ReplayGuard

	archive       *archive.Archive
	subscriptions []event.Subscription[*auction.PurchaseRecord]
	bus           *event.Bus[*auction.PurchaseRecord]

	replayWindow time.Duration
	maxRecords   int

	l sync.RWMutex
}

// New loads the auction stored in [db]. If [db] holds no auction, one is
// created from [g] using the current time as the default start time.
func New(
	ctx context.Context,
	log logging.Logger,
	tracer trace.Tracer,
	clk clock.Clock,
	registerer prometheus.Registerer,
	db state.Mutable,
	g *genesis.Genesis,
	opts ...Option,
) (*Controller, error) {
	c := &Controller{
		log:          log,
		tracer:       tracer,
		clock:        clk,
		db:           db,
		ts:           tstate.New(tstateChangedSize),
		replayWindow: defaultReplayWindow,
		maxRecords:   defaultMaxRecords,
	}
	for _, opt := range opts {
		opt(c)
	}

	var err error
	c.metrics, err = newMetrics(registerer)
	if err != nil {
		return nil, err
	}
	c.replay = auth.NewReplayGuard(c.replayWindow)
	c.bus = event.NewBus(c.subscriptions...)

	if err := c.loadOrCreate(ctx, g); err != nil {
		return nil, err
	}
	c.auctionID, err = c.engine.Config().ID()
	if err != nil {
		return nil, err
	}
	remaining, err := c.engine.Remaining(ctx, c.db)
	if err != nil {
		return nil, err
	}
	c.metrics.remaining.Set(float64(remaining))

	config := c.engine.Config()
	log.Info("loaded auction",
		zap.Stringer("auctionID", c.auctionID),
		zap.Stringer("owner", config.Owner),
		zap.Stringer("escrow", c.engine.Escrow()),
		zap.Uint64("startPrice", config.StartPrice),
		zap.Uint64("minPrice", config.MinPrice),
		zap.Int64("startTime", config.StartTime),
		zap.Int64("endTime", config.EndTime),
		zap.Uint64("remaining", remaining),
	)
	return c, nil
}

func (c *Controller) loadOrCreate(ctx context.Context, g *genesis.Genesis) error {
	b, exists, err := storage.GetConfig(ctx, c.db)
	if err != nil {
		return err
	}
	if exists {
		if g != nil {
			c.log.Debug("auction already initialized, ignoring genesis")
		}
		config, err := auction.UnmarshalConfig(b)
		if err != nil {
			return err
		}
		escrow, err := config.Escrow()
		if err != nil {
			return err
		}
		c.ledger = token.New(escrow)
		c.engine, err = auction.Load(ctx, c.db, c.ledger)
		return err
	}
	if g == nil {
		return ErrMissingGenesis
	}

	config, err := g.Config(clock.NowMilli(c.clock))
	if err != nil {
		return err
	}
	escrow, err := config.Escrow()
	if err != nil {
		return err
	}
	c.ledger = token.New(escrow)
	c.engine, err = auction.NewEngine(config, c.ledger)
	if err != nil {
		return err
	}
	view := c.ts.NewView(c.db)
	if err := g.InitializeState(ctx, c.tracer, view, c.engine, c.ledger); err != nil {
		return fmt.Errorf("unable to initialize state: %w", err)
	}
	view.Commit()
	return c.ts.Flush(ctx, c.db)
}

func (c *Controller) Logger() logging.Logger {
	return c.log
}

func (c *Controller) Tracer() trace.Tracer {
	return c.tracer
}

func (c *Controller) AuctionID() ids.ID {
	return c.auctionID
}

func (c *Controller) Config() *auction.Config {
	return c.engine.Config()
}

func (c *Controller) Escrow() codec.Address {
	return c.engine.Escrow()
}

// Subscribe adds a purchase record sink.
func (c *Controller) Subscribe(sub event.Subscription[*auction.PurchaseRecord]) error {
	return c.bus.Subscribe(sub)
}

// Price returns the unit price at the current time.
func (c *Controller) Price() uint64 {
	return c.engine.Price(clock.NowMilli(c.clock))
}

func (c *Controller) Status(ctx context.Context) (*auction.Status, error) {
	ctx, span := c.tracer.Start(ctx, "Controller.Status")
	defer span.End()

	c.l.RLock()
	defer c.l.RUnlock()

	return c.engine.Status(ctx, c.db, clock.NowMilli(c.clock))
}

func (c *Controller) Balance(ctx context.Context, tkn codec.Address, owner codec.Address) (uint64, error) {
	c.l.RLock()
	defer c.l.RUnlock()

	return c.ledger.Balance(ctx, c.db, tkn, owner)
}

func (c *Controller) Allowance(
	ctx context.Context,
	tkn codec.Address,
	owner codec.Address,
	spender codec.Address,
) (uint64, error) {
	c.l.RLock()
	defer c.l.RUnlock()

	return c.ledger.Allowance(ctx, c.db, tkn, owner, spender)
}

// Records returns up to [limit] archived purchases starting at sequence
// [from].
func (c *Controller) Records(ctx context.Context, from uint64, limit int) ([]*auction.PurchaseRecord, error) {
	if c.archive == nil {
		return nil, ErrArchiveDisabled
	}
	if limit <= 0 || limit > c.maxRecords {
		return nil, fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidLimit, limit, c.maxRecords)
	}
	return c.archive.Range(ctx, from, limit)
}

// Buy purchases [quantity] for [buyer] at the current price.
func (c *Controller) Buy(
	ctx context.Context,
	buyer codec.Address,
	quantity uint64,
	maxTotal uint64,
) (*auction.PurchaseRecord, error) {
	ctx, span := c.tracer.Start(ctx, "Controller.Buy")
	defer span.End()

	c.l.Lock()
	defer c.l.Unlock()

	return c.buy(ctx, buyer, quantity, maxTotal, clock.NowMilli(c.clock))
}

// BuySigned authenticates [req] and executes it as a purchase by its
// signer.
func (c *Controller) BuySigned(ctx context.Context, req *auth.SignedRequest) (*auction.PurchaseRecord, error) {
	ctx, span := c.tracer.Start(ctx, "Controller.BuySigned")
	defer span.End()

	c.l.Lock()
	defer c.l.Unlock()

	now := clock.NowMilli(c.clock)
	buyer, id, err := c.authorize(ctx, req, consts.BuyID, now)
	if err != nil {
		c.metrics.rejected.WithLabelValues(rejectReason(err)).Inc()
		return nil, err
	}
	record, err := c.buy(ctx, buyer, req.Quantity, req.MaxTotal, now)
	if err != nil {
		return nil, err
	}
	c.replay.Record(id, req.Timestamp)
	return record, nil
}

func (c *Controller) buy(
	ctx context.Context,
	buyer codec.Address,
	quantity uint64,
	maxTotal uint64,
	now int64,
) (*auction.PurchaseRecord, error) {
	start := time.Now()
	view := c.ts.NewView(c.db)
	record, err := c.engine.Buy(ctx, view, buyer, quantity, maxTotal, now)
	if err != nil {
		c.metrics.rejected.WithLabelValues(rejectReason(err)).Inc()
		c.log.Debug("purchase rejected",
			zap.Stringer("buyer", buyer),
			zap.Uint64("quantity", quantity),
			zap.Uint64("maxTotal", maxTotal),
			zap.Error(err),
		)
		return nil, err
	}
	view.Commit()
	// A failed flush discards the purchase, so nothing is left pending for
	// the next call to observe.
	if err := c.ts.Flush(ctx, c.db); err != nil {
		c.log.Error("unable to persist purchase",
			zap.Uint64("sequence", record.Sequence),
			zap.Error(err),
		)
		return nil, err
	}
	c.metrics.buyLatency.Observe(float64(time.Since(start)))
	c.metrics.purchases.Inc()
	c.metrics.unitsSold.Add(float64(record.Quantity))
	c.metrics.revenue.Add(float64(record.Total))
	c.metrics.price.Set(float64(record.UnitPrice))
	c.metrics.remaining.Sub(float64(record.Quantity))
	c.log.Info("purchase executed",
		zap.Uint64("sequence", record.Sequence),
		zap.Stringer("buyer", buyer),
		zap.Uint64("quantity", record.Quantity),
		zap.Uint64("unitPrice", record.UnitPrice),
		zap.Uint64("total", record.Total),
	)

	// The purchase is final once flushed, so sink failures are not returned.
	if err := c.bus.Notify(ctx, record); err != nil {
		c.metrics.sinkErrors.Inc()
		c.log.Warn("unable to deliver purchase record",
			zap.Uint64("sequence", record.Sequence),
			zap.Error(err),
		)
	}
	return record, nil
}

// Halt stops the auction if [caller] is the owner. It returns true if this
// call halted the auction.
func (c *Controller) Halt(ctx context.Context, caller codec.Address) (bool, error) {
	ctx, span := c.tracer.Start(ctx, "Controller.Halt")
	defer span.End()

	c.l.Lock()
	defer c.l.Unlock()

	return c.halt(ctx, caller)
}

func (c *Controller) HaltSigned(ctx context.Context, req *auth.SignedRequest) (bool, error) {
	ctx, span := c.tracer.Start(ctx, "Controller.HaltSigned")
	defer span.End()

	c.l.Lock()
	defer c.l.Unlock()

	caller, id, err := c.authorize(ctx, req, consts.HaltID, clock.NowMilli(c.clock))
	if err != nil {
		return false, err
	}
	halted, err := c.halt(ctx, caller)
	if err != nil {
		return false, err
	}
	c.replay.Record(id, req.Timestamp)
	return halted, nil
}

func (c *Controller) halt(ctx context.Context, caller codec.Address) (bool, error) {
	view := c.ts.NewView(c.db)
	halted, err := c.engine.Halt(ctx, view, caller)
	if err != nil {
		c.log.Debug("halt rejected", zap.Stringer("caller", caller), zap.Error(err))
		return false, err
	}
	if !halted {
		return false, nil
	}
	view.Commit()
	if err := c.ts.Flush(ctx, c.db); err != nil {
		c.log.Error("unable to persist halt", zap.Error(err))
		return false, err
	}
	c.metrics.halts.Inc()
	c.log.Info("auction halted", zap.Stringer("caller", caller))
	return true, nil
}

// authorize returns the signer of [req] and its replay ID. The ID is
// recorded by the caller only once the request executes, so a rejected
// request can be sent again.
func (c *Controller) authorize(
	ctx context.Context,
	req *auth.SignedRequest,
	action uint8,
	now int64,
) (codec.Address, ids.ID, error) {
	actor, err := req.Verify(ctx, c.auctionID, action)
	if err != nil {
		return codec.EmptyAddress, ids.Empty, err
	}
	id, err := req.ID()
	if err != nil {
		return codec.EmptyAddress, ids.Empty, err
	}
	if err := c.replay.Check(id, req.Timestamp, now); err != nil {
		return codec.EmptyAddress, ids.Empty, err
	}
	return actor, id, nil
}

// Close closes every purchase record sink.
func (c *Controller) Close() error {
	return c.bus.Close()
}
