package arpay

import (
	"github.com/vitwit/arpay/lifecycle"
	"github.com/vitwit/arpay/logger"
	"github.com/vitwit/arpay/metrics"
	"github.com/vitwit/arpay/networks"
	"github.com/vitwit/arpay/routing"
)

type Option func(*ARPay)

func WithLogger(l logger.Logger) Option {
	return func(a *ARPay) {
		if l != nil {
			a.logger = l
		}
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(a *ARPay) {
		if r != nil {
			a.metrics = r
		}
	}
}

// WithClock drives QR expiry from c instead of the wall clock.
func WithClock(c lifecycle.Clock) Option {
	return func(a *ARPay) {
		a.clock = c
	}
}

func WithIDGenerator(f func() string) Option {
	return func(a *ARPay) {
		a.newID = f
	}
}

func WithFeeEstimator(f routing.FeeEstimator) Option {
	return func(a *ARPay) {
		a.feeEstimator = f
	}
}

// WithRegistry replaces the default testnet catalog.
func WithRegistry(r *networks.Registry) Option {
	return func(a *ARPay) {
		a.registry = r
	}
}
