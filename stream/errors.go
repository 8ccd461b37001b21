// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package stream

import "errors"

var ErrClosed = errors.New("closed")
