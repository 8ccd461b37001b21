// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"net/http"

	"github.com/ava-labs/avalanchego/ids"
	"go.uber.org/zap"

	"github.com/ava-labs/dutchvm/auction"
	"github.com/ava-labs/dutchvm/auth"
	"github.com/ava-labs/dutchvm/codec"
)

type JSONRPCServer struct {
	c Controller
}

func NewJSONRPCServer(c Controller) *JSONRPCServer {
	return &JSONRPCServer{c}
}

type GenesisReply struct {
	AuctionID ids.ID          `json:"auctionId"`
	Escrow    codec.Address   `json:"escrow"`
	Config    *auction.Config `json:"config"`
}

func (j *JSONRPCServer) Genesis(_ *http.Request, _ *struct{}, reply *GenesisReply) (err error) {
	reply.AuctionID = j.c.AuctionID()
	reply.Escrow = j.c.Escrow()
	reply.Config = j.c.Config()
	return nil
}

type PriceReply struct {
	Price uint64 `json:"price"`
}

func (j *JSONRPCServer) Price(_ *http.Request, _ *struct{}, reply *PriceReply) (err error) {
	reply.Price = j.c.Price()
	return nil
}

type StatusReply struct {
	auction.Status
}

func (j *JSONRPCServer) Status(req *http.Request, _ *struct{}, reply *StatusReply) error {
	ctx, span := j.c.Tracer().Start(req.Context(), "JSONRPCServer.Status")
	defer span.End()

	status, err := j.c.Status(ctx)
	if err != nil {
		return err
	}
	reply.Status = *status
	return nil
}

type BalanceArgs struct {
	Token   codec.Address `json:"token"`
	Address codec.Address `json:"address"`
}

type BalanceReply struct {
	Amount uint64 `json:"amount"`
}

func (j *JSONRPCServer) Balance(req *http.Request, args *BalanceArgs, reply *BalanceReply) error {
	ctx, span := j.c.Tracer().Start(req.Context(), "JSONRPCServer.Balance")
	defer span.End()

	balance, err := j.c.Balance(ctx, args.Token, args.Address)
	if err != nil {
		return err
	}
	reply.Amount = balance
	return nil
}

type AllowanceArgs struct {
	Token   codec.Address `json:"token"`
	Owner   codec.Address `json:"owner"`
	Spender codec.Address `json:"spender"`
}

func (j *JSONRPCServer) Allowance(req *http.Request, args *AllowanceArgs, reply *BalanceReply) error {
	ctx, span := j.c.Tracer().Start(req.Context(), "JSONRPCServer.Allowance")
	defer span.End()

	allowance, err := j.c.Allowance(ctx, args.Token, args.Owner, args.Spender)
	if err != nil {
		return err
	}
	reply.Amount = allowance
	return nil
}

type RecordsArgs struct {
	From  uint64 `json:"from"`
	Limit int    `json:"limit"`
}

type RecordsReply struct {
	Records []*auction.PurchaseRecord `json:"records"`
}

func (j *JSONRPCServer) Records(req *http.Request, args *RecordsArgs, reply *RecordsReply) error {
	ctx, span := j.c.Tracer().Start(req.Context(), "JSONRPCServer.Records")
	defer span.End()

	records, err := j.c.Records(ctx, args.From, args.Limit)
	if err != nil {
		return err
	}
	reply.Records = records
	return nil
}

type SignedArgs struct {
	Request *auth.SignedRequest `json:"request"`
}

type BuyReply struct {
	Record *auction.PurchaseRecord `json:"record"`
}

func (j *JSONRPCServer) Buy(req *http.Request, args *SignedArgs, reply *BuyReply) error {
	ctx, span := j.c.Tracer().Start(req.Context(), "JSONRPCServer.Buy")
	defer span.End()

	if args.Request == nil {
		return ErrMissingRequest
	}
	record, err := j.c.BuySigned(ctx, args.Request)
	if err != nil {
		return err
	}
	reply.Record = record
	return nil
}

type HaltReply struct {
	Halted bool `json:"halted"`
}

func (j *JSONRPCServer) Halt(req *http.Request, args *SignedArgs, reply *HaltReply) error {
	ctx, span := j.c.Tracer().Start(req.Context(), "JSONRPCServer.Halt")
	defer span.End()

	if args.Request == nil {
		return ErrMissingRequest
	}
	halted, err := j.c.HaltSigned(ctx, args.Request)
	if err != nil {
		j.c.Logger().Debug("halt request failed", zap.Error(err))
		return err
	}
	reply.Halted = halted
	return nil
}
