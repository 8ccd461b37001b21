// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pricing

import (
	"fmt"

	"github.com/holiman/uint256"
)

var _ Model = (*LinearDecay)(nil)

// LinearDecay moves the price in a straight line from [startPrice] at
// [startTime] to [minPrice] at [endTime] and holds it at the floor after.
//
// The decay is rounded up, so the price is rounded down and a buyer is never
// charged more than the exact curve.
type LinearDecay struct {
	startPrice uint64
	minPrice   uint64
	startTime  int64
	endTime    int64
}

func NewLinearDecay(startPrice uint64, minPrice uint64, startTime int64, endTime int64) (Model, error) {
	if minPrice > startPrice {
		return nil, fmt.Errorf("%w: min=%d start=%d", ErrFloorAboveStart, minPrice, startPrice)
	}
	if endTime <= startTime {
		return nil, fmt.Errorf("%w: start=%d end=%d", ErrInvalidDuration, startTime, endTime)
	}
	return &LinearDecay{
		startPrice: startPrice,
		minPrice:   minPrice,
		startTime:  startTime,
		endTime:    endTime,
	}, nil
}

func (l *LinearDecay) Price(now int64) uint64 {
	if now <= l.startTime {
		return l.startPrice
	}
	if now >= l.endTime {
		return l.minPrice
	}

	// Unsigned subtraction is exact even when the signed difference would
	// overflow int64.
	var (
		elapsed  = uint256.NewInt(uint64(now) - uint64(l.startTime))
		duration = uint256.NewInt(uint64(l.endTime) - uint64(l.startTime))
		span     = uint256.NewInt(l.startPrice - l.minPrice)
	)
	product := new(uint256.Int).Mul(elapsed, span)
	decay := new(uint256.Int).Div(product, duration)
	if !new(uint256.Int).Mod(product, duration).IsZero() {
		decay.AddUint64(decay, 1)
	}

	// elapsed < duration so decay <= span
	return l.startPrice - decay.Uint64()
}

func (*LinearDecay) Total(price uint64, quantity uint64) (uint64, error) {
	return total(price, quantity)
}
