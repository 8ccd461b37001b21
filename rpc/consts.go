// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import "github.com/ava-labs/dutchvm/consts"

const (
	Name            = consts.Name
	JSONRPCEndpoint = "/ext/" + consts.Name
)
