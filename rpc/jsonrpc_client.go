// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"context"
	"strings"

	"github.com/ava-labs/avalanchego/ids"

	"github.com/ava-labs/dutchvm/auction"
	"github.com/ava-labs/dutchvm/auth"
	"github.com/ava-labs/dutchvm/codec"

	arpc "github.com/ava-labs/avalanchego/utils/rpc"
)

type JSONRPCClient struct {
	requester arpc.EndpointRequester

	// cached after the first genesis call
	genesis *GenesisReply
}

func NewJSONRPCClient(uri string) *JSONRPCClient {
	uri = strings.TrimSuffix(uri, "/")
	uri += JSONRPCEndpoint
	return &JSONRPCClient{requester: arpc.NewEndpointRequester(uri)}
}

func (cli *JSONRPCClient) send(ctx context.Context, method string, params interface{}, reply interface{}) error {
	if params == nil {
		params = struct{}{}
	}
	return cli.requester.SendRequest(ctx, Name+"."+method, params, reply)
}

func (cli *JSONRPCClient) Genesis(ctx context.Context) (ids.ID, codec.Address, *auction.Config, error) {
	if cli.genesis != nil {
		return cli.genesis.AuctionID, cli.genesis.Escrow, cli.genesis.Config, nil
	}
	resp := new(GenesisReply)
	if err := cli.send(ctx, "genesis", nil, resp); err != nil {
		return ids.Empty, codec.EmptyAddress, nil, err
	}
	cli.genesis = resp
	return resp.AuctionID, resp.Escrow, resp.Config, nil
}

func (cli *JSONRPCClient) Price(ctx context.Context) (uint64, error) {
	resp := new(PriceReply)
	err := cli.send(ctx, "price", nil, resp)
	return resp.Price, err
}

func (cli *JSONRPCClient) Status(ctx context.Context) (*auction.Status, error) {
	resp := new(StatusReply)
	if err := cli.send(ctx, "status", nil, resp); err != nil {
		return nil, err
	}
	return &resp.Status, nil
}

func (cli *JSONRPCClient) Balance(ctx context.Context, token codec.Address, addr codec.Address) (uint64, error) {
	resp := new(BalanceReply)
	err := cli.send(ctx, "balance", &BalanceArgs{Token: token, Address: addr}, resp)
	return resp.Amount, err
}

func (cli *JSONRPCClient) Allowance(
	ctx context.Context,
	token codec.Address,
	owner codec.Address,
	spender codec.Address,
) (uint64, error) {
	resp := new(BalanceReply)
	err := cli.send(ctx, "allowance", &AllowanceArgs{Token: token, Owner: owner, Spender: spender}, resp)
	return resp.Amount, err
}

func (cli *JSONRPCClient) Records(ctx context.Context, from uint64, limit int) ([]*auction.PurchaseRecord, error) {
	resp := new(RecordsReply)
	err := cli.send(ctx, "records", &RecordsArgs{From: from, Limit: limit}, resp)
	return resp.Records, err
}

func (cli *JSONRPCClient) Buy(ctx context.Context, req *auth.SignedRequest) (*auction.PurchaseRecord, error) {
	resp := new(BuyReply)
	if err := cli.send(ctx, "buy", &SignedArgs{Request: req}, resp); err != nil {
		return nil, err
	}
	return resp.Record, nil
}

func (cli *JSONRPCClient) Halt(ctx context.Context, req *auth.SignedRequest) (bool, error) {
	resp := new(HaltReply)
	err := cli.send(ctx, "halt", &SignedArgs{Request: req}, resp)
	return resp.Halted, err
}

// IsError reports whether an error returned by the client was caused by
// [target] on the server. Error identity does not survive JSON-RPC, so
// errors are matched by message.
func IsError(err error, target error) bool {
	return err != nil && strings.Contains(err.Error(), target.Error())
}
