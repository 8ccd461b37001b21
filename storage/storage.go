// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package storage

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ava-labs/avalanchego/database"

	smath "github.com/ava-labs/avalanchego/utils/math"

	"github.com/ava-labs/dutchvm/codec"
	"github.com/ava-labs/dutchvm/consts"
	"github.com/ava-labs/dutchvm/state"
)

// State
// 0x0/ (balance)
//   -> [token|owner] => balance
// 0x1/ (allowance)
//   -> [token|owner|spender] => allowance
// 0x2/ (auction config)
//   -> [] => borsh(config)
// 0x3/ (remaining supply)
//   -> [] => remaining
// 0x4/ (halted)
//   -> [] => 0x0|0x1
// 0x5/ (purchase sequence)
//   -> [] => last sequence

const (
	balancePrefix   = 0x0
	allowancePrefix = 0x1
	configPrefix    = 0x2
	remainingPrefix = 0x3
	haltedPrefix    = 0x4
	sequencePrefix  = 0x5
)

var (
	configKey    = []byte{configPrefix}
	remainingKey = []byte{remainingPrefix}
	haltedKey    = []byte{haltedPrefix}
	sequenceKey  = []byte{sequencePrefix}

	falseByte = byte(0x0)
	trueByte  = byte(0x1)
)

// [balancePrefix] + [token] + [owner]
func BalanceKey(token codec.Address, owner codec.Address) (k []byte) {
	k = make([]byte, 1+codec.AddressLen*2)
	k[0] = balancePrefix
	copy(k[1:], token[:])
	copy(k[1+codec.AddressLen:], owner[:])
	return
}

// [allowancePrefix] + [token] + [owner] + [spender]
func AllowanceKey(token codec.Address, owner codec.Address, spender codec.Address) (k []byte) {
	k = make([]byte, 1+codec.AddressLen*3)
	k[0] = allowancePrefix
	copy(k[1:], token[:])
	copy(k[1+codec.AddressLen:], owner[:])
	copy(k[1+codec.AddressLen*2:], spender[:])
	return
}

func GetBalance(
	ctx context.Context,
	im state.Immutable,
	token codec.Address,
	owner codec.Address,
) (uint64, error) {
	return getUint64(ctx, im, BalanceKey(token, owner))
}

// SetBalance writes [balance], deleting the record when it reaches zero.
func SetBalance(
	ctx context.Context,
	mu state.Mutable,
	token codec.Address,
	owner codec.Address,
	balance uint64,
) error {
	return setUint64(ctx, mu, BalanceKey(token, owner), balance)
}

func AddBalance(
	ctx context.Context,
	mu state.Mutable,
	token codec.Address,
	owner codec.Address,
	amount uint64,
) (uint64, error) {
	bal, err := GetBalance(ctx, mu, token, owner)
	if err != nil {
		return 0, err
	}
	nbal, err := smath.Add(bal, amount)
	if err != nil {
		return 0, fmt.Errorf(
			"%w: could not add balance (token=%s, bal=%d, addr=%s, amount=%d)",
			ErrInvalidBalance,
			token,
			bal,
			owner,
			amount,
		)
	}
	return nbal, SetBalance(ctx, mu, token, owner, nbal)
}

func SubBalance(
	ctx context.Context,
	mu state.Mutable,
	token codec.Address,
	owner codec.Address,
	amount uint64,
) (uint64, error) {
	bal, err := GetBalance(ctx, mu, token, owner)
	if err != nil {
		return 0, err
	}
	nbal, err := smath.Sub(bal, amount)
	if err != nil {
		return 0, fmt.Errorf(
			"%w: could not subtract balance (token=%s, bal=%d, addr=%s, amount=%d)",
			ErrInvalidBalance,
			token,
			bal,
			owner,
			amount,
		)
	}
	return nbal, SetBalance(ctx, mu, token, owner, nbal)
}

func GetAllowance(
	ctx context.Context,
	im state.Immutable,
	token codec.Address,
	owner codec.Address,
	spender codec.Address,
) (uint64, error) {
	return getUint64(ctx, im, AllowanceKey(token, owner, spender))
}

func SetAllowance(
	ctx context.Context,
	mu state.Mutable,
	token codec.Address,
	owner codec.Address,
	spender codec.Address,
	amount uint64,
) error {
	return setUint64(ctx, mu, AllowanceKey(token, owner, spender), amount)
}

// GetConfig returns the stored auction config bytes, if any.
func GetConfig(ctx context.Context, im state.Immutable) ([]byte, bool, error) {
	v, err := im.GetValue(ctx, configKey)
	if errors.Is(err, database.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func SetConfig(ctx context.Context, mu state.Mutable, config []byte) error {
	return mu.Insert(ctx, configKey, config)
}

func GetRemaining(ctx context.Context, im state.Immutable) (uint64, error) {
	return getUint64(ctx, im, remainingKey)
}

func SetRemaining(ctx context.Context, mu state.Mutable, remaining uint64) error {
	return mu.Insert(ctx, remainingKey, binary.BigEndian.AppendUint64(nil, remaining))
}

func GetHalted(ctx context.Context, im state.Immutable) (bool, error) {
	v, err := im.GetValue(ctx, haltedKey)
	if errors.Is(err, database.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(v) != consts.BoolLen {
		return false, fmt.Errorf("%w: halted flag has %d bytes", ErrCorruptValue, len(v))
	}
	return v[0] == trueByte, nil
}

func SetHalted(ctx context.Context, mu state.Mutable, halted bool) error {
	b := falseByte
	if halted {
		b = trueByte
	}
	return mu.Insert(ctx, haltedKey, []byte{b})
}

func GetSequence(ctx context.Context, im state.Immutable) (uint64, error) {
	return getUint64(ctx, im, sequenceKey)
}

func SetSequence(ctx context.Context, mu state.Mutable, seq uint64) error {
	return mu.Insert(ctx, sequenceKey, binary.BigEndian.AppendUint64(nil, seq))
}

// getUint64 treats a missing key as zero.
func getUint64(ctx context.Context, im state.Immutable, key []byte) (uint64, error) {
	v, err := im.GetValue(ctx, key)
	if errors.Is(err, database.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(v) != consts.Uint64Len {
		return 0, fmt.Errorf("%w: expected %d bytes but found %d", ErrCorruptValue, consts.Uint64Len, len(v))
	}
	return binary.BigEndian.Uint64(v), nil
}

func setUint64(ctx context.Context, mu state.Mutable, key []byte, v uint64) error {
	if v == 0 {
		// If there is nothing left, we should delete the record instead of
		// setting it to 0.
		return mu.Remove(ctx, key)
	}
	return mu.Insert(ctx, key, binary.BigEndian.AppendUint64(nil, v))
}
