// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pricing

import "errors"

var (
	ErrModelDoesNotExist = errors.New("pricing model does not exist")

	ErrFloorAboveStart = errors.New("min price is above start price")
	ErrInvalidDuration = errors.New("end time must be after start time")

	ErrOverflow = errors.New("total overflows uint64")
)
