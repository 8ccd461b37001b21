// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package stream

import (
	"time"

	"github.com/ava-labs/avalanchego/utils/units"
)

const (
	Endpoint = "/ext/stream"

	readBufferSize     = units.KiB
	writeBufferSize    = units.KiB
	writeWait          = 10 * time.Second
	pongWait           = 60 * time.Second
	maxReadMessageSize = units.KiB // bytes
	maxPendingMessages = 1_024
)
