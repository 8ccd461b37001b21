// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package controller

import "errors"

var (
	ErrMissingGenesis  = errors.New("missing genesis")
	ErrArchiveDisabled = errors.New("archive disabled")
	ErrInvalidLimit    = errors.New("invalid limit")
)
