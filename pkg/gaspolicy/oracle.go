// Copyright 2025 Interlayer Labs

package gaspolicy

import (
	"context"
	"fmt"
	"sync"

	"github.com/interlayer-labs/relayer-core/pkg/types"
)

// StaticOracle serves a fixed, operator-configured exchange rate per lane --
// the supplemented gas-oracle abstraction, simplified from a live price
// feed down to the static rate table most deployments actually run with.
type StaticOracle struct {
	mu    sync.RWMutex
	rates map[[2]types.Domain][2]uint64 // (origin,destination) -> (numerator, denominator)
}

func NewStaticOracle() *StaticOracle {
	return &StaticOracle{rates: make(map[[2]types.Domain][2]uint64)}
}

func (o *StaticOracle) SetRate(origin, destination types.Domain, numerator, denominator uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rates[[2]types.Domain{origin, destination}] = [2]uint64{numerator, denominator}
}

func (o *StaticOracle) ExchangeRate(ctx context.Context, origin, destination types.Domain) (uint64, uint64, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	rate, ok := o.rates[[2]types.Domain{origin, destination}]
	if !ok {
		return 0, 0, fmt.Errorf("gaspolicy: no exchange rate configured for %d->%d", origin, destination)
	}
	return rate[0], rate[1], nil
}
