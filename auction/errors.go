// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package auction

import "errors"

var (
	// Configuration
	ErrInvalidConfig    = errors.New("invalid auction config")
	ErrPriceBelowFloor  = errors.New("start price is below min price")
	ErrInvalidTimeRange = errors.New("end time must be after start time")
	ErrNegativeStart    = errors.New("start time is negative")
	ErrZeroSupply       = errors.New("total supply is zero")
	ErrIdenticalTokens  = errors.New("asset and payment token are identical")
	ErrMissingOwner     = errors.New("owner is empty")

	ErrAlreadyInitialized = errors.New("auction already initialized")
	ErrNotInitialized     = errors.New("auction not initialized")

	// Authorization
	ErrNotOwner = errors.New("caller is not the auction owner")

	// Lifecycle
	ErrAuctionHalted      = errors.New("auction halted")
	ErrAuctionEnded       = errors.New("auction ended")
	ErrZeroQuantity       = errors.New("quantity is zero")
	ErrInsufficientSupply = errors.New("insufficient supply")
	ErrPaymentOverflow    = errors.New("payment overflows")
	ErrMaxPriceExceeded   = errors.New("total exceeds max")

	// Transfer
	ErrPaymentTransferFailed = errors.New("payment transfer failed")
	ErrAssetTransferFailed   = errors.New("asset transfer failed")

	ErrReentrantCall = errors.New("reentrant call")
)
