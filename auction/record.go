// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package auction

import (
	"github.com/near/borsh-go"

	"github.com/ava-labs/dutchvm/codec"
)

// PurchaseRecord is emitted exactly once for every successful purchase.
type PurchaseRecord struct {
	// Sequence starts at 1 and increments with every purchase.
	Sequence  uint64        `json:"sequence"`
	Buyer     codec.Address `json:"buyer"`
	Quantity  uint64        `json:"quantity"`
	UnitPrice uint64        `json:"unitPrice"`
	Total     uint64        `json:"total"`
	Timestamp int64         `json:"timestamp"`
}

func (r *PurchaseRecord) Marshal() ([]byte, error) {
	return borsh.Serialize(*r)
}

func UnmarshalPurchaseRecord(b []byte) (*PurchaseRecord, error) {
	var r PurchaseRecord
	if err := borsh.Deserialize(&r, b); err != nil {
		return nil, err
	}
	return &r, nil
}
