// Copyright 2025 Interlayer Labs
//
// Package gaspolicy implements the gas-payment policy the Pending Operation
// Scheduler consults before submitting a message for delivery: compare the
// gas IGP payments already observed against the destination process
// estimate, and decide whether the payment covers it.
package gaspolicy

import (
	"context"
	"fmt"

	"github.com/interlayer-labs/relayer-core/pkg/types"
)

// Kind selects one of the four payment policies the spec names.
type Kind string

const (
	KindNone      Kind = "none"
	KindMinimum   Kind = "minimum"
	KindOnChainFee Kind = "on_chain_fee"
	KindGasless   Kind = "gasless"
)

// Rule is one configured gas-payment rule, matched by origin/destination
// domain pair -- the admin server's /igp_rules surface manages these.
type Rule struct {
	Index       int
	Origin      types.Domain
	Destination types.Domain
	Kind        Kind
	MinimumPayment uint64 // only meaningful for KindMinimum
}

// Oracle supplies the native-token exchange rate the OnChainFee policy
// needs to convert an estimated destination gas cost into an equivalent
// origin-token payment requirement.
type Oracle interface {
	ExchangeRate(ctx context.Context, origin, destination types.Domain) (numerator, denominator uint64, err error)
}

// Policy evaluates rules against observed IGP payments.
type Policy struct {
	rules  []Rule
	oracle Oracle
}

func New(oracle Oracle) *Policy {
	return &Policy{oracle: oracle}
}

func (p *Policy) SetRules(rules []Rule) { p.rules = rules }

func (p *Policy) Rules() []Rule { return append([]Rule(nil), p.rules...) }

func (p *Policy) AddRule(r Rule) {
	r.Index = len(p.rules)
	p.rules = append(p.rules, r)
}

func (p *Policy) RemoveRule(index int) bool {
	for i, r := range p.rules {
		if r.Index == index {
			p.rules = append(p.rules[:i], p.rules[i+1:]...)
			return true
		}
	}
	return false
}

func (p *Policy) ruleFor(origin, destination types.Domain) Rule {
	for _, r := range p.rules {
		if r.Origin == origin && r.Destination == destination {
			return r
		}
	}
	return Rule{Kind: KindNone}
}

// Evaluate decides whether the observed IGP payment (in origin-chain native
// token smallest units) suffices to cover estimatedDestinationGasCost units
// of destination gas, given the configured rule for this lane.
func (p *Policy) Evaluate(ctx context.Context, origin, destination types.Domain, observedPayment uint64, estimatedDestinationGasCost uint64) (bool, error) {
	rule := p.ruleFor(origin, destination)
	switch rule.Kind {
	case KindNone:
		return true, nil
	case KindGasless:
		return true, nil
	case KindMinimum:
		return observedPayment >= rule.MinimumPayment, nil
	case KindOnChainFee:
		if p.oracle == nil {
			return false, fmt.Errorf("gaspolicy: on_chain_fee rule for %d->%d requires a gas oracle", origin, destination)
		}
		num, den, err := p.oracle.ExchangeRate(ctx, origin, destination)
		if err != nil {
			return false, fmt.Errorf("gaspolicy: exchange rate %d->%d: %w", origin, destination, err)
		}
		if den == 0 {
			return false, fmt.Errorf("gaspolicy: exchange rate denominator is zero for %d->%d", origin, destination)
		}
		required := estimatedDestinationGasCost * num / den
		return observedPayment >= required, nil
	default:
		return false, fmt.Errorf("gaspolicy: unknown rule kind %q", rule.Kind)
	}
}
