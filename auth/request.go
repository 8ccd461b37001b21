// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package auth

import (
	"context"
	"fmt"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/hashing"
	"github.com/ava-labs/avalanchego/utils/wrappers"

	"github.com/ava-labs/dutchvm/codec"
	"github.com/ava-labs/dutchvm/consts"
)

const digestSize = 1 + consts.IDLen + consts.Uint64Len*2 + consts.Int64Len

// Request is an auction action that must be signed by the account
// performing it.
type Request struct {
	Action    uint8  `json:"action"`
	AuctionID ids.ID `json:"auctionID"`
	Quantity  uint64 `json:"quantity"`
	MaxTotal  uint64 `json:"maxTotal"`
	// Timestamp is when the request was signed, in unix milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// Digest is the message that is signed.
func (r *Request) Digest() ([]byte, error) {
	p := wrappers.Packer{
		Bytes:   make([]byte, digestSize),
		MaxSize: digestSize,
	}
	p.PackByte(r.Action)
	p.PackFixedBytes(r.AuctionID[:])
	p.PackLong(r.Quantity)
	p.PackLong(r.MaxTotal)
	p.PackLong(uint64(r.Timestamp))
	return p.Bytes, p.Err
}

// ID uniquely identifies the request contents.
func (r *Request) ID() (ids.ID, error) {
	d, err := r.Digest()
	if err != nil {
		return ids.Empty, err
	}
	return hashing.ComputeHash256Array(d), nil
}

type SignedRequest struct {
	Request
	Auth *ED25519 `json:"auth"`
}

func NewBuyRequest(auctionID ids.ID, quantity uint64, maxTotal uint64, timestamp int64) *Request {
	return &Request{
		Action:    consts.BuyID,
		AuctionID: auctionID,
		Quantity:  quantity,
		MaxTotal:  maxTotal,
		Timestamp: timestamp,
	}
}

func NewHaltRequest(auctionID ids.ID, timestamp int64) *Request {
	return &Request{
		Action:    consts.HaltID,
		AuctionID: auctionID,
		Timestamp: timestamp,
	}
}

func (d *ED25519Factory) SignRequest(r *Request) (*SignedRequest, error) {
	digest, err := r.Digest()
	if err != nil {
		return nil, err
	}
	return &SignedRequest{
		Request: *r,
		Auth:    d.Sign(digest),
	}, nil
}

// ID identifies the request as signed by its signer. Identical requests
// from different signers have different IDs.
func (s *SignedRequest) ID() (ids.ID, error) {
	if s.Auth == nil {
		return ids.Empty, ErrMissingAuth
	}
	d, err := s.Digest()
	if err != nil {
		return ids.Empty, err
	}
	return hashing.ComputeHash256Array(append(d, s.Auth.Signer[:]...)), nil
}

// Verify checks that [s] was signed for [action] on [auctionID] and returns
// the signing account.
func (s *SignedRequest) Verify(ctx context.Context, auctionID ids.ID, action uint8) (codec.Address, error) {
	if s.Auth == nil {
		return codec.EmptyAddress, ErrMissingAuth
	}
	if s.Action != action {
		return codec.EmptyAddress, fmt.Errorf("%w: expected %d but got %d", ErrWrongAction, action, s.Action)
	}
	if s.AuctionID != auctionID {
		return codec.EmptyAddress, fmt.Errorf("%w: %s", ErrWrongAuction, s.AuctionID)
	}
	digest, err := s.Digest()
	if err != nil {
		return codec.EmptyAddress, err
	}
	if err := s.Auth.Verify(ctx, digest); err != nil {
		return codec.EmptyAddress, err
	}
	return s.Auth.Actor(), nil
}
