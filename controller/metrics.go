// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package controller

import (
	"errors"

	"github.com/ava-labs/avalanchego/utils/metric"
	"github.com/ava-labs/avalanchego/utils/wrappers"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ava-labs/dutchvm/auction"
	"github.com/ava-labs/dutchvm/auth"
)

const reasonLabel = "reason"

type metrics struct {
	purchases  prometheus.Counter
	rejected   *prometheus.CounterVec
	unitsSold  prometheus.Counter
	revenue    prometheus.Counter
	halts      prometheus.Counter
	sinkErrors prometheus.Counter

	price     prometheus.Gauge
	remaining prometheus.Gauge

	buyLatency metric.Averager
}

func newMetrics(r prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		purchases: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "auction",
			Name:      "purchases",
			Help:      "number of successful purchases",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auction",
			Name:      "rejected_purchases",
			Help:      "number of rejected purchases by reason",
		}, []string{reasonLabel}),
		unitsSold: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "auction",
			Name:      "units_sold",
			Help:      "asset base units sold",
		}),
		revenue: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "auction",
			Name:      "revenue",
			Help:      "payment base units paid to the owner",
		}),
		halts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "auction",
			Name:      "halts",
			Help:      "number of halt transitions",
		}),
		sinkErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "auction",
			Name:      "sink_errors",
			Help:      "number of failed purchase record deliveries",
		}),
		price: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "auction",
			Name:      "last_price",
			Help:      "unit price of the last purchase",
		}),
		remaining: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "auction",
			Name:      "remaining_supply",
			Help:      "asset base units left for sale",
		}),
	}
	var (
		errs = wrappers.Errs{}
		err  error
	)
	m.buyLatency, err = metric.NewAverager(
		"auction_buy_latency",
		"time spent executing a purchase (ns)",
		r,
	)
	errs.Add(err)
	errs.Add(
		r.Register(m.purchases),
		r.Register(m.rejected),
		r.Register(m.unitsSold),
		r.Register(m.revenue),
		r.Register(m.halts),
		r.Register(m.sinkErrors),
		r.Register(m.price),
		r.Register(m.remaining),
	)
	return m, errs.Err
}

var reasons = []struct {
	err    error
	reason string
}{
	// Transfer failures wrap the ledger error so they are checked first.
	{auction.ErrPaymentTransferFailed, "payment_transfer_failed"},
	{auction.ErrAssetTransferFailed, "asset_transfer_failed"},
	{auction.ErrAuctionHalted, "halted"},
	{auction.ErrAuctionEnded, "ended"},
	{auction.ErrZeroQuantity, "zero_quantity"},
	{auction.ErrInsufficientSupply, "insufficient_supply"},
	{auction.ErrPaymentOverflow, "payment_overflow"},
	{auction.ErrMaxPriceExceeded, "max_price_exceeded"},
	{auction.ErrReentrantCall, "reentrant_call"},
	{auth.ErrInvalidSignature, "invalid_signature"},
	{auth.ErrStaleRequest, "stale_request"},
	{auth.ErrFutureRequest, "future_request"},
	{auth.ErrDuplicateRequest, "duplicate_request"},
}

func rejectReason(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return "other"
}
