// Copyright 2025 Interlayer Labs
//
// Package processor implements the per-origin Message Processor: it walks
// dispatched messages in nonce order, applies whitelist/blacklist filters,
// and hands surviving messages to the destination-specific pending-op queue.
package processor

import (
	"bytes"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/interlayer-labs/relayer-core/pkg/types"
)

// Predicate matches one field of a message against a fixed grammar: an
// exact address/domain match, or a wildcard (a nil field, or an empty
// BodyPrefixHex), or (for body) a hex prefix.
type Predicate struct {
	SenderAddress      *common.Address
	RecipientAddress   *common.Address
	OriginDomain       *types.Domain
	DestinationDomain  *types.Domain
	BodyPrefixHex      string
}

func (p Predicate) matches(m *types.HyperlaneMessage) bool {
	if p.SenderAddress != nil && m.SenderAddress() != *p.SenderAddress {
		return false
	}
	if p.RecipientAddress != nil && m.RecipientAddress() != *p.RecipientAddress {
		return false
	}
	if p.OriginDomain != nil && m.Origin != *p.OriginDomain {
		return false
	}
	if p.DestinationDomain != nil && m.Destination != *p.DestinationDomain {
		return false
	}
	if p.BodyPrefixHex != "" {
		prefix := strings.TrimPrefix(p.BodyPrefixHex, "0x")
		want := common.FromHex("0x" + prefix)
		if !bytes.HasPrefix(m.Body, want) {
			return false
		}
	}
	return true
}

// FilterSet is the whitelist/blacklist pair applied to every dispatched
// message before it is eligible for relay. An empty Whitelist means "allow
// all"; any Blacklist match always wins.
type FilterSet struct {
	Whitelist []Predicate
	Blacklist []Predicate
}

func (f FilterSet) Allows(m *types.HyperlaneMessage) bool {
	for _, p := range f.Blacklist {
		if p.matches(m) {
			return false
		}
	}
	if len(f.Whitelist) == 0 {
		return true
	}
	for _, p := range f.Whitelist {
		if p.matches(m) {
			return true
		}
	}
	return false
}
