// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package token

import (
	"context"
	"fmt"

	smath "github.com/ava-labs/avalanchego/utils/math"

	"github.com/ava-labs/dutchvm/codec"
	"github.com/ava-labs/dutchvm/state"
	"github.com/ava-labs/dutchvm/storage"
)

// Ledger is a fungible token ledger keyed by token address. Every account
// other than [spender] must approve [spender] before it can move funds on
// the account's behalf.
type Ledger struct {
	spender codec.Address
}

func New(spender codec.Address) *Ledger {
	return &Ledger{spender: spender}
}

// Spender is the account that transfers are executed as.
func (l *Ledger) Spender() codec.Address {
	return l.spender
}

// Transfer moves [amount] of [token] from [from] to [to]. Nothing is written
// unless every check passes. A zero amount is a no-op.
func (l *Ledger) Transfer(
	ctx context.Context,
	mu state.Mutable,
	token codec.Address,
	from codec.Address,
	to codec.Address,
	amount uint64,
) error {
	if amount == 0 {
		return nil
	}

	fromBal, err := storage.GetBalance(ctx, mu, token, from)
	if err != nil {
		return err
	}
	if fromBal < amount {
		return fmt.Errorf("%w: account %s has %d but needs %d", ErrInsufficientBalance, from, fromBal, amount)
	}

	var allowance uint64
	delegated := from != l.spender
	if delegated {
		allowance, err = storage.GetAllowance(ctx, mu, token, from, l.spender)
		if err != nil {
			return err
		}
		if allowance < amount {
			return fmt.Errorf("%w: %s approved %d but needs %d", ErrInsufficientAllowance, from, allowance, amount)
		}
	}

	if from != to {
		toBal, err := storage.GetBalance(ctx, mu, token, to)
		if err != nil {
			return err
		}
		if _, err := smath.Add(toBal, amount); err != nil {
			return fmt.Errorf("%w: account %s", ErrBalanceOverflow, to)
		}
	}

	if delegated {
		if err := storage.SetAllowance(ctx, mu, token, from, l.spender, allowance-amount); err != nil {
			return err
		}
	}
	if from == to {
		return nil
	}
	if _, err := storage.SubBalance(ctx, mu, token, from, amount); err != nil {
		return err
	}
	_, err = storage.AddBalance(ctx, mu, token, to, amount)
	return err
}

// Mint credits [amount] of [token] to [to].
func (*Ledger) Mint(
	ctx context.Context,
	mu state.Mutable,
	token codec.Address,
	to codec.Address,
	amount uint64,
) error {
	if _, err := storage.AddBalance(ctx, mu, token, to, amount); err != nil {
		return fmt.Errorf("%w: %w", ErrBalanceOverflow, err)
	}
	return nil
}

// Approve sets the amount of [token] that [spender] may move out of [owner].
func (*Ledger) Approve(
	ctx context.Context,
	mu state.Mutable,
	token codec.Address,
	owner codec.Address,
	spender codec.Address,
	amount uint64,
) error {
	return storage.SetAllowance(ctx, mu, token, owner, spender, amount)
}

func (*Ledger) Balance(
	ctx context.Context,
	im state.Immutable,
	token codec.Address,
	owner codec.Address,
) (uint64, error) {
	return storage.GetBalance(ctx, im, token, owner)
}

func (*Ledger) Allowance(
	ctx context.Context,
	im state.Immutable,
	token codec.Address,
	owner codec.Address,
	spender codec.Address,
) (uint64, error) {
	return storage.GetAllowance(ctx, im, token, owner, spender)
}
