// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package auth

import "errors"

var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrMissingAuth      = errors.New("missing auth")
	ErrWrongAction      = errors.New("signed for a different action")
	ErrWrongAuction     = errors.New("signed for a different auction")

	ErrStaleRequest     = errors.New("request timestamp is too old")
	ErrFutureRequest    = errors.New("request timestamp is too far in the future")
	ErrDuplicateRequest = errors.New("duplicate request")
)
