// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package auction

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ava-labs/dutchvm/codec"
	"github.com/ava-labs/dutchvm/consts"
	"github.com/ava-labs/dutchvm/pricing"
	"github.com/ava-labs/dutchvm/state"
	"github.com/ava-labs/dutchvm/state/statetest"
	"github.com/ava-labs/dutchvm/token"
	"github.com/ava-labs/dutchvm/tstate"
)

const buyerFunds = 10_000

var (
	asset   = codec.CreateAddress(consts.TokenID, ids.ID{1})
	payment = codec.CreateAddress(consts.TokenID, ids.ID{2})
	owner   = codec.CreateAddress(consts.ED25519ID, ids.ID{3})
	buyer   = codec.CreateAddress(consts.ED25519ID, ids.ID{4})

	_ Transferer = (*token.Ledger)(nil)
)

func testConfig() *Config {
	return &Config{
		AssetToken:   asset,
		PaymentToken: payment,
		Owner:        owner,
		PricingModel: pricing.LinearDecayID,
		StartPrice:   100,
		MinPrice:     20,
		StartTime:    0,
		EndTime:      100,
		TotalSupply:  50,
	}
}

type testEnv struct {
	engine *Engine
	ledger *token.Ledger
	db     *statetest.InMemoryStore
	ts     *tstate.TState
}

// newTestEnv creates an initialized auction whose escrow holds the full
// supply and whose buyer has approved the escrow for all of its funds.
func newTestEnv(t *testing.T, config *Config) *testEnv {
	require := require.New(t)
	ctx := context.Background()

	escrow, err := config.Escrow()
	require.NoError(err)
	ledger := token.New(escrow)
	engine, err := NewEngine(config, ledger)
	require.NoError(err)

	db := statetest.NewInMemoryStore()
	require.NoError(engine.Initialize(ctx, db))
	require.NoError(ledger.Mint(ctx, db, asset, escrow, config.TotalSupply))
	require.NoError(ledger.Mint(ctx, db, payment, buyer, buyerFunds))
	require.NoError(ledger.Approve(ctx, db, payment, buyer, escrow, buyerFunds))
	return &testEnv{
		engine: engine,
		ledger: ledger,
		db:     db,
		ts:     tstate.New(16),
	}
}

// buy runs a purchase in a fresh view and flushes whatever the view holds
// afterwards, so a failed purchase that left anything behind would be
// visible in the database.
func (e *testEnv) buy(t *testing.T, who codec.Address, quantity uint64, maxTotal uint64, now int64) (*PurchaseRecord, error) {
	ctx := context.Background()
	view := e.ts.NewView(e.db)
	r, err := e.engine.Buy(ctx, view, who, quantity, maxTotal, now)
	view.Commit()
	require.NoError(t, e.ts.Flush(ctx, e.db))
	return r, err
}

func (e *testEnv) balance(t *testing.T, tok codec.Address, who codec.Address) uint64 {
	bal, err := e.ledger.Balance(context.Background(), e.db, tok, who)
	require.NoError(t, err)
	return bal
}

func (e *testEnv) remaining(t *testing.T) uint64 {
	r, err := e.engine.Remaining(context.Background(), e.db)
	require.NoError(t, err)
	return r
}

func TestPriceExample(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, testConfig())

	r, err := env.buy(t, buyer, 10, 0, 50)
	require.NoError(err)
	require.Equal(&PurchaseRecord{
		Sequence:  1,
		Buyer:     buyer,
		Quantity:  10,
		UnitPrice: 60,
		Total:     600,
		Timestamp: 50,
	}, r)
	require.Equal(uint64(40), env.remaining(t))
	require.Equal(uint64(buyerFunds-600), env.balance(t, payment, buyer))
	require.Equal(uint64(600), env.balance(t, payment, owner))
	require.Equal(uint64(10), env.balance(t, asset, buyer))
	require.Equal(uint64(40), env.balance(t, asset, env.engine.Escrow()))

	before := env.db.Snapshot()
	_, err = env.buy(t, buyer, 45, 0, 50)
	require.ErrorIs(err, ErrInsufficientSupply)
	require.Equal(before, env.db.Storage)
	require.Equal(uint64(40), env.remaining(t))
}

func TestHaltThenBuy(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	env := newTestEnv(t, testConfig())

	// Non-owners are denied and nothing changes
	before := env.db.Snapshot()
	transitioned, err := env.engine.Halt(ctx, env.db, buyer)
	require.ErrorIs(err, ErrNotOwner)
	require.False(transitioned)
	require.Equal(before, env.db.Storage)

	transitioned, err = env.engine.Halt(ctx, env.db, owner)
	require.NoError(err)
	require.True(transitioned)

	before = env.db.Snapshot()
	_, err = env.buy(t, buyer, 1, 0, 20)
	require.ErrorIs(err, ErrAuctionHalted)
	require.Equal(before, env.db.Storage)

	// Halting again is a successful no-op
	transitioned, err = env.engine.Halt(ctx, env.db, owner)
	require.NoError(err)
	require.False(transitioned)
	require.Equal(before, env.db.Storage)

	terminal, err := env.engine.Terminal(ctx, env.db, 20)
	require.NoError(err)
	require.True(terminal)
}

func TestBuyRejected(t *testing.T) {
	tests := []struct {
		name     string
		config   func(*Config)
		setup    func(*testing.T, *testEnv)
		quantity uint64
		maxTotal uint64
		now      int64
		wantErr  error
	}{
		{
			name:     "ended at end time",
			quantity: 1,
			now:      100,
			wantErr:  ErrAuctionEnded,
		},
		{
			name:     "ended after end time",
			quantity: 1,
			now:      math.MaxInt64,
			wantErr:  ErrAuctionEnded,
		},
		{
			name:    "zero quantity",
			now:     10,
			wantErr: ErrZeroQuantity,
		},
		{
			name:     "oversell",
			quantity: 51,
			now:      10,
			wantErr:  ErrInsufficientSupply,
		},
		{
			name:     "max total exceeded",
			quantity: 10,
			maxTotal: 599,
			now:      50,
			wantErr:  ErrMaxPriceExceeded,
		},
		{
			name: "payment overflow",
			config: func(c *Config) {
				c.StartPrice = math.MaxUint64
			},
			quantity: 2,
			now:      0,
			wantErr:  ErrPaymentOverflow,
		},
		{
			name:     "overflow is checked before max total",
			config:   func(c *Config) { c.StartPrice = math.MaxUint64 },
			quantity: 2,
			maxTotal: 1,
			now:      0,
			wantErr:  ErrPaymentOverflow,
		},
		{
			name: "halted is checked first",
			setup: func(t *testing.T, env *testEnv) {
				_, err := env.engine.Halt(context.Background(), env.db, owner)
				require.NoError(t, err)
			},
			now:     200,
			wantErr: ErrAuctionHalted,
		},
		{
			name:    "ended is checked before quantity",
			now:     200,
			wantErr: ErrAuctionEnded,
		},
		{
			name:     "zero quantity is checked before supply",
			quantity: 0,
			setup: func(t *testing.T, env *testEnv) {
				_, err := env.buy(t, buyer, 50, 0, 99)
				require.NoError(t, err)
			},
			now:     99,
			wantErr: ErrZeroQuantity,
		},
		{
			name:     "sold out",
			quantity: 1,
			setup: func(t *testing.T, env *testEnv) {
				_, err := env.buy(t, buyer, 50, 0, 99)
				require.NoError(t, err)
			},
			now:     99,
			wantErr: ErrInsufficientSupply,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)

			config := testConfig()
			if tt.config != nil {
				tt.config(config)
			}
			env := newTestEnv(t, config)
			if tt.setup != nil {
				tt.setup(t, env)
			}

			before := env.db.Snapshot()
			r, err := env.buy(t, buyer, tt.quantity, tt.maxTotal, tt.now)
			require.ErrorIs(err, tt.wantErr)
			require.Nil(r)
			require.Equal(before, env.db.Storage)
		})
	}
}

func TestPaymentLegFails(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*testing.T, *testEnv)
		wantErr error
	}{
		{
			name: "no allowance",
			setup: func(t *testing.T, env *testEnv) {
				require.NoError(t, env.ledger.Approve(context.Background(), env.db, payment, buyer, env.engine.Escrow(), 0))
			},
			wantErr: token.ErrInsufficientAllowance,
		},
		{
			name: "insufficient balance",
			setup: func(t *testing.T, env *testEnv) {
				require.NoError(t, env.ledger.Transfer(context.Background(), env.db, payment, buyer, owner, buyerFunds-1))
			},
			wantErr: token.ErrInsufficientBalance,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			env := newTestEnv(t, testConfig())
			tt.setup(t, env)

			before := env.db.Snapshot()
			_, err := env.buy(t, buyer, 10, 0, 50)
			require.ErrorIs(err, ErrPaymentTransferFailed)
			require.ErrorIs(err, tt.wantErr)
			require.NotErrorIs(err, ErrAssetTransferFailed)
			require.Equal(before, env.db.Storage)
		})
	}
}

func TestAssetLegFails(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	env := newTestEnv(t, testConfig())

	// Drain the escrow so the asset leg cannot be paid out
	escrow := env.engine.Escrow()
	require.NoError(env.ledger.Transfer(ctx, env.db, asset, escrow, owner, 45))

	before := env.db.Snapshot()
	_, err := env.buy(t, buyer, 10, 0, 50)
	require.ErrorIs(err, ErrAssetTransferFailed)
	require.ErrorIs(err, token.ErrInsufficientBalance)
	require.Equal(before, env.db.Storage)
	require.Equal(uint64(buyerFunds), env.balance(t, payment, buyer))
	require.Equal(uint64(50), env.remaining(t))
}

func TestRollbackAfterPaymentLeg(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)

	config := testConfig()
	escrow, err := config.Escrow()
	require.NoError(err)
	transferer := NewMockTransferer(ctrl)
	engine, err := NewEngine(config, transferer)
	require.NoError(err)

	db := statetest.NewInMemoryStore()
	require.NoError(engine.Initialize(ctx, db))

	paidKey := []byte("paid")
	gomock.InOrder(
		transferer.EXPECT().Transfer(gomock.Any(), gomock.Any(), payment, buyer, owner, uint64(600)).DoAndReturn(
			func(ctx context.Context, mu state.Mutable, _, _, _ codec.Address, _ uint64) error {
				return mu.Insert(ctx, paidKey, []byte{1})
			},
		),
		transferer.EXPECT().Transfer(gomock.Any(), gomock.Any(), asset, escrow, buyer, uint64(10)).Return(errors.New("ledger unavailable")),
	)

	view := tstate.New(4).NewView(db)
	_, err = engine.Buy(ctx, view, buyer, 10, 0, 50)
	require.ErrorIs(err, ErrAssetTransferFailed)
	require.Zero(view.OpIndex())
	require.Zero(view.PendingChanges())

	_, err = view.GetValue(ctx, paidKey)
	require.ErrorIs(err, database.ErrNotFound)
	remaining, err := engine.Remaining(ctx, view)
	require.NoError(err)
	require.Equal(uint64(50), remaining)
}

func TestSupplyConservation(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	env := newTestEnv(t, testConfig())

	var (
		purchases = []struct {
			quantity uint64
			now      int64
		}{
			{quantity: 1, now: 0},
			{quantity: 5, now: 25},
			{quantity: 10, now: 60},
			{quantity: 34, now: 99},
		}
		sold  uint64
		spent uint64
	)
	for i, p := range purchases {
		r, err := env.buy(t, buyer, p.quantity, 0, p.now)
		require.NoError(err)
		require.Equal(uint64(i+1), r.Sequence)
		require.Equal(env.engine.Price(p.now), r.UnitPrice)
		sold += p.quantity
		spent += r.Total
		require.Equal(testConfig().TotalSupply-sold, env.remaining(t))
	}

	require.Equal(sold, env.balance(t, asset, buyer))
	require.Zero(env.balance(t, asset, env.engine.Escrow()))
	require.Equal(spent, env.balance(t, payment, owner))
	require.Equal(uint64(buyerFunds)-spent, env.balance(t, payment, buyer))

	status, err := env.engine.Status(ctx, env.db, 99)
	require.NoError(err)
	require.True(status.SoldOut)
	require.False(status.Ended)
	require.True(status.Terminal)
}

func TestReentrantCalls(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)

	config := testConfig()
	transferer := NewMockTransferer(ctrl)
	engine, err := NewEngine(config, transferer)
	require.NoError(err)

	db := statetest.NewInMemoryStore()
	require.NoError(engine.Initialize(ctx, db))
	view := tstate.New(4).NewView(db)

	var innerBuyErr, innerHaltErr error
	transferer.EXPECT().Transfer(gomock.Any(), gomock.Any(), payment, buyer, owner, gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ state.Mutable, _, _, _ codec.Address, _ uint64) error {
			_, innerBuyErr = engine.Buy(ctx, view, buyer, 40, 0, 50)
			_, innerHaltErr = engine.Halt(ctx, view, owner)
			return nil
		},
	)
	transferer.EXPECT().Transfer(gomock.Any(), gomock.Any(), asset, gomock.Any(), buyer, uint64(10)).Return(nil)

	r, err := engine.Buy(ctx, view, buyer, 10, 0, 50)
	require.NoError(err)
	require.Equal(uint64(600), r.Total)
	require.ErrorIs(innerBuyErr, ErrReentrantCall)
	require.ErrorIs(innerHaltErr, ErrReentrantCall)

	remaining, err := engine.Remaining(ctx, view)
	require.NoError(err)
	require.Equal(uint64(40), remaining)
	halted, err := engine.Halted(ctx, view)
	require.NoError(err)
	require.False(halted)

	// The guard is released once the call returns
	_, err = engine.Halt(ctx, view, owner)
	require.NoError(err)
}

func TestInitializeAndLoad(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	env := newTestEnv(t, testConfig())

	before := env.db.Snapshot()
	require.ErrorIs(env.engine.Initialize(ctx, env.db), ErrAlreadyInitialized)
	require.Equal(before, env.db.Storage)

	loaded, err := Load(ctx, env.db, env.ledger)
	require.NoError(err)
	require.Equal(env.engine.Config(), loaded.Config())
	require.Equal(env.engine.Escrow(), loaded.Escrow())

	_, err = Load(ctx, statetest.NewInMemoryStore(), env.ledger)
	require.ErrorIs(err, ErrNotInitialized)
}

func TestNewEngineInvalidConfig(t *testing.T) {
	c := testConfig()
	c.TotalSupply = 0
	_, err := NewEngine(c, token.New(owner))
	require.ErrorIs(t, err, ErrInvalidConfig)
	require.ErrorIs(t, err, ErrZeroSupply)
}

func TestStatus(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	env := newTestEnv(t, testConfig())

	status, err := env.engine.Status(ctx, env.db, -1)
	require.NoError(err)
	require.Equal(&Status{Price: 100, Remaining: 50}, status)

	status, err = env.engine.Status(ctx, env.db, 100)
	require.NoError(err)
	require.Equal(&Status{Price: 20, Remaining: 50, Ended: true, Terminal: true}, status)
}
