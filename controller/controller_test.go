// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package controller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/dutchvm/archive"
	"github.com/ava-labs/dutchvm/auction"
	"github.com/ava-labs/dutchvm/auth"
	"github.com/ava-labs/dutchvm/clock"
	"github.com/ava-labs/dutchvm/codec"
	"github.com/ava-labs/dutchvm/consts"
	"github.com/ava-labs/dutchvm/crypto/ed25519"
	"github.com/ava-labs/dutchvm/event"
	"github.com/ava-labs/dutchvm/genesis"
	"github.com/ava-labs/dutchvm/state/statetest"
	"github.com/ava-labs/dutchvm/trace"
)

const buyerFunds = 10_000

var (
	asset   = codec.CreateAddress(consts.TokenID, ids.ID{1})
	payment = codec.CreateAddress(consts.TokenID, ids.ID{2})
)

type testEnv struct {
	controller *Controller
	clock      *clock.Manual
	db         *statetest.InMemoryStore
	owner      *auth.ED25519Factory
	buyer      *auth.ED25519Factory
	records    []*auction.PurchaseRecord
}

func newFactory(t *testing.T) *auth.ED25519Factory {
	priv, err := ed25519.GeneratePrivateKey()
	require.NoError(t, err)
	return auth.NewED25519Factory(priv)
}

// testGenesis sells 50 units from 100 down to 20 between t=0 and t=100.
func testGenesis(owner, buyer codec.Address) *genesis.Genesis {
	g := genesis.Default(owner, 0)
	g.Auction.AssetToken = asset
	g.Auction.PaymentToken = payment
	g.Auction.StartPrice = 100
	g.Auction.MinPrice = 20
	g.Auction.StartTime = 0
	g.Auction.EndTime = 100
	g.Auction.TotalSupply = 50
	g.Allocations = []*genesis.Allocation{{Token: payment, Address: buyer, Balance: buyerFunds}}
	g.Approvals = []*genesis.Approval{{Token: payment, Owner: buyer, Amount: buyerFunds}}
	return g
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	require := require.New(t)

	env := &testEnv{
		clock: clock.NewManualMilli(0),
		db:    statetest.NewInMemoryStore(),
		owner: newFactory(t),
		buyer: newFactory(t),
	}
	sink := event.SubscriptionFunc[*auction.PurchaseRecord]{
		AcceptF: func(_ context.Context, r *auction.PurchaseRecord) error {
			env.records = append(env.records, r)
			return nil
		},
	}
	opts = append(opts, WithSubscriptions(sink))
	c, err := New(
		context.Background(),
		logging.NoLog{},
		trace.Noop(),
		env.clock,
		prometheus.NewRegistry(),
		env.db,
		testGenesis(env.owner.Address(), env.buyer.Address()),
		opts...,
	)
	require.NoError(err)
	env.controller = c
	return env
}

func TestBuyExample(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	env := newTestEnv(t)
	c := env.controller
	buyer := env.buyer.Address()

	env.clock.Set(time.UnixMilli(50))
	require.Equal(uint64(60), c.Price())

	record, err := c.Buy(ctx, buyer, 10, 0)
	require.NoError(err)
	require.Equal(uint64(1), record.Sequence)
	require.Equal(uint64(600), record.Total)
	require.Equal([]*auction.PurchaseRecord{record}, env.records)

	status, err := c.Status(ctx)
	require.NoError(err)
	require.Equal(uint64(40), status.Remaining)
	require.False(status.Terminal)

	bal, err := c.Balance(ctx, payment, env.owner.Address())
	require.NoError(err)
	require.Equal(uint64(600), bal)
	bal, err = c.Balance(ctx, asset, buyer)
	require.NoError(err)
	require.Equal(uint64(10), bal)
	allowance, err := c.Allowance(ctx, payment, buyer, c.Escrow())
	require.NoError(err)
	require.Equal(uint64(buyerFunds-600), allowance)

	_, err = c.Buy(ctx, buyer, 45, 0)
	require.ErrorIs(err, auction.ErrInsufficientSupply)
	require.Len(env.records, 1)

	require.Equal(float64(1), testutil.ToFloat64(c.metrics.purchases))
	require.Equal(float64(40), testutil.ToFloat64(c.metrics.remaining))
	require.Equal(float64(1), testutil.ToFloat64(c.metrics.rejected.WithLabelValues("insufficient_supply")))
}

func TestBuyPersists(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	env := newTestEnv(t)

	env.clock.Set(time.UnixMilli(50))
	_, err := env.controller.Buy(ctx, env.buyer.Address(), 10, 0)
	require.NoError(err)

	// A controller over the same database resumes the auction without a
	// genesis.
	reloaded, err := New(ctx, logging.NoLog{}, trace.Noop(), env.clock, prometheus.NewRegistry(), env.db, nil)
	require.NoError(err)
	require.Equal(env.controller.AuctionID(), reloaded.AuctionID())
	status, err := reloaded.Status(ctx)
	require.NoError(err)
	require.Equal(uint64(40), status.Remaining)

	record, err := reloaded.Buy(ctx, env.buyer.Address(), 1, 0)
	require.NoError(err)
	require.Equal(uint64(2), record.Sequence)
}

func TestMissingGenesis(t *testing.T) {
	_, err := New(
		context.Background(),
		logging.NoLog{},
		trace.Noop(),
		clock.NewManualMilli(0),
		prometheus.NewRegistry(),
		statetest.NewInMemoryStore(),
		nil,
	)
	require.ErrorIs(t, err, ErrMissingGenesis)
}

func TestInvalidGenesisWritesNothing(t *testing.T) {
	require := require.New(t)

	owner := newFactory(t).Address()
	g := testGenesis(owner, owner)
	g.Auction.MinPrice = 200
	db := statetest.NewInMemoryStore()
	_, err := New(context.Background(), logging.NoLog{}, trace.Noop(), clock.NewManualMilli(0), prometheus.NewRegistry(), db, g)
	require.ErrorIs(err, auction.ErrInvalidConfig)
	require.Empty(db.Storage)
}

func TestHaltSigned(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	env := newTestEnv(t)
	c := env.controller

	env.clock.Set(time.UnixMilli(10))
	req, err := env.buyer.SignRequest(auth.NewHaltRequest(c.AuctionID(), 10))
	require.NoError(err)
	_, err = c.HaltSigned(ctx, req)
	require.ErrorIs(err, auction.ErrNotOwner)

	// Identical contents from a different signer are not a replay
	req, err = env.owner.SignRequest(auth.NewHaltRequest(c.AuctionID(), 10))
	require.NoError(err)
	halted, err := c.HaltSigned(ctx, req)
	require.NoError(err)
	require.True(halted)

	_, err = c.HaltSigned(ctx, req)
	require.ErrorIs(err, auth.ErrDuplicateRequest)

	// Halting again is a no-op
	halted, err = c.Halt(ctx, env.owner.Address())
	require.NoError(err)
	require.False(halted)
	require.Equal(float64(1), testutil.ToFloat64(c.metrics.halts))

	env.clock.Set(time.UnixMilli(20))
	buy, err := env.buyer.SignRequest(auth.NewBuyRequest(c.AuctionID(), 1, 0, 20))
	require.NoError(err)
	_, err = c.BuySigned(ctx, buy)
	require.ErrorIs(err, auction.ErrAuctionHalted)
	require.Empty(env.records)
}

func TestBuySigned(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	env := newTestEnv(t, WithReplayWindow(10*time.Millisecond))
	c := env.controller

	env.clock.Set(time.UnixMilli(50))
	req, err := env.buyer.SignRequest(auth.NewBuyRequest(c.AuctionID(), 2, 120, 45))
	require.NoError(err)
	record, err := c.BuySigned(ctx, req)
	require.NoError(err)
	require.Equal(env.buyer.Address(), record.Buyer)
	require.Equal(uint64(120), record.Total)

	_, err = c.BuySigned(ctx, req)
	require.ErrorIs(err, auth.ErrDuplicateRequest)

	stale, err := env.buyer.SignRequest(auth.NewBuyRequest(c.AuctionID(), 2, 0, 30))
	require.NoError(err)
	_, err = c.BuySigned(ctx, stale)
	require.ErrorIs(err, auth.ErrStaleRequest)

	other, err := env.buyer.SignRequest(auth.NewBuyRequest(ids.GenerateTestID(), 2, 0, 50))
	require.NoError(err)
	_, err = c.BuySigned(ctx, other)
	require.ErrorIs(err, auth.ErrWrongAuction)

	// Slippage limit below the current total
	limited, err := env.buyer.SignRequest(auth.NewBuyRequest(c.AuctionID(), 2, 119, 50))
	require.NoError(err)
	_, err = c.BuySigned(ctx, limited)
	require.ErrorIs(err, auction.ErrMaxPriceExceeded)

	require.Equal(float64(1), testutil.ToFloat64(c.metrics.rejected.WithLabelValues("duplicate_request")))
	require.Equal(float64(1), testutil.ToFloat64(c.metrics.rejected.WithLabelValues("max_price_exceeded")))
}

func TestSinkFailureKeepsPurchase(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	env := newTestEnv(t)
	c := env.controller

	require.NoError(c.Subscribe(event.SubscriptionFunc[*auction.PurchaseRecord]{
		AcceptF: func(context.Context, *auction.PurchaseRecord) error {
			return errors.New("sink unavailable")
		},
	}))

	record, err := c.Buy(ctx, env.buyer.Address(), 1, 0)
	require.NoError(err)
	require.Equal([]*auction.PurchaseRecord{record}, env.records)
	require.Equal(float64(1), testutil.ToFloat64(c.metrics.sinkErrors))

	status, err := c.Status(ctx)
	require.NoError(err)
	require.Equal(uint64(49), status.Remaining)
}

func TestRecords(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	a, err := archive.New(ctx, statetest.NewInMemoryStore(), archive.NewDefaultConfig())
	require.NoError(err)
	env := newTestEnv(t, WithArchive(a), WithMaxRecords(8))
	c := env.controller

	for i := 0; i < 3; i++ {
		env.clock.Set(time.UnixMilli(int64(10 * i)))
		_, err := c.Buy(ctx, env.buyer.Address(), 1, 0)
		require.NoError(err)
	}

	records, err := c.Records(ctx, 2, 8)
	require.NoError(err)
	require.Len(records, 2)
	require.Equal(uint64(2), records[0].Sequence)
	require.Equal(uint64(92), records[0].UnitPrice)
	require.Equal(uint64(84), records[1].UnitPrice)

	_, err = c.Records(ctx, 1, 9)
	require.ErrorIs(err, ErrInvalidLimit)

	_, err = newTestEnv(t).controller.Records(ctx, 1, 1)
	require.ErrorIs(err, ErrArchiveDisabled)

	require.NoError(c.Close())
}

// flakyStore fails the next [failures] inserts.
type flakyStore struct {
	*statetest.InMemoryStore
	failures int
}

var errDiskFull = errors.New("disk full")

func (f *flakyStore) Insert(ctx context.Context, key []byte, value []byte) error {
	if f.failures > 0 {
		f.failures--
		return errDiskFull
	}
	return f.InMemoryStore.Insert(ctx, key, value)
}

func TestFailedFlushDiscardsPurchase(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	owner := newFactory(t).Address()
	buyer := newFactory(t).Address()
	clk := clock.NewManualMilli(0)
	db := &flakyStore{InMemoryStore: statetest.NewInMemoryStore()}
	var records []*auction.PurchaseRecord
	sink := event.SubscriptionFunc[*auction.PurchaseRecord]{
		AcceptF: func(_ context.Context, r *auction.PurchaseRecord) error {
			records = append(records, r)
			return nil
		},
	}
	c, err := New(ctx, logging.NoLog{}, trace.Noop(), clk, prometheus.NewRegistry(), db, testGenesis(owner, buyer), WithSubscriptions(sink))
	require.NoError(err)

	clk.Set(time.UnixMilli(50))
	db.failures = 1
	_, err = c.Buy(ctx, buyer, 10, 0)
	require.ErrorIs(err, errDiskFull)
	require.Empty(records)

	record, err := c.Buy(ctx, buyer, 1, 0)
	require.NoError(err)
	require.Equal(uint64(1), record.Sequence)
	require.Len(records, 1)

	status, err := c.Status(ctx)
	require.NoError(err)
	require.Equal(uint64(49), status.Remaining)
	bal, err := c.Balance(ctx, payment, buyer)
	require.NoError(err)
	require.Equal(uint64(buyerFunds-60), bal)
	bal, err = c.Balance(ctx, asset, buyer)
	require.NoError(err)
	require.Equal(uint64(1), bal)

	// A halt that cannot be persisted leaves the auction running
	db.failures = 1
	_, err = c.Halt(ctx, owner)
	require.ErrorIs(err, errDiskFull)
	status, err = c.Status(ctx)
	require.NoError(err)
	require.False(status.Halted)
}

func TestRejectedSignedBuyCanBeResent(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	env := newTestEnv(t)
	c := env.controller

	// 2 units cost 184 at t=10, above the limit of 120
	env.clock.Set(time.UnixMilli(10))
	req, err := env.buyer.SignRequest(auth.NewBuyRequest(c.AuctionID(), 2, 120, 10))
	require.NoError(err)
	_, err = c.BuySigned(ctx, req)
	require.ErrorIs(err, auction.ErrMaxPriceExceeded)

	env.clock.Set(time.UnixMilli(50))
	record, err := c.BuySigned(ctx, req)
	require.NoError(err)
	require.Equal(uint64(120), record.Total)

	_, err = c.BuySigned(ctx, req)
	require.ErrorIs(err, auth.ErrDuplicateRequest)
	require.Len(env.records, 1)
}
