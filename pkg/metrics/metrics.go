// Copyright 2025 Interlayer Labs
//
// Package metrics exposes the relayer's Prometheus surface: counters for
// retries and drops, and gauges for queue depth, so an operator can see a
// stuck destination before it shows up as missed messages.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RetriesTotal counts every prepare-step retry, labeled by destination
	// domain -- a steadily climbing rate on one destination usually means
	// its RPC endpoint or validator set is unhealthy.
	RetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relayer",
		Name:      "retries_total",
		Help:      "Number of pending-operation prepare retries.",
	}, []string{"destination"})

	// DroppedTotal counts operations that left the pipeline permanently,
	// labeled by the DropReason that caused it.
	DroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relayer",
		Name:      "dropped_total",
		Help:      "Number of pending operations dropped, by reason.",
	}, []string{"destination", "reason"})

	// PrepareQueueDepth is the number of operations waiting in a
	// destination's prepare heap (first_prepare_attempt + prepare_retry).
	PrepareQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "relayer",
		Name:      "prepare_queue_depth",
		Help:      "Operations currently queued for the prepare step.",
	}, []string{"destination"})

	// SubmitQueueDepth is the number of operations waiting in a
	// destination's FIFO submit channel for the Building Stage.
	SubmitQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "relayer",
		Name:      "submit_queue_depth",
		Help:      "Operations ready to submit, awaiting the building stage.",
	}, []string{"destination"})

	// InFlightTransactions is the number of Lander transactions not yet
	// finalized, per destination.
	InFlightTransactions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "relayer",
		Name:      "in_flight_transactions",
		Help:      "Submitted transactions awaiting inclusion or finality.",
	}, []string{"destination"})

	// OriginTipLag is labeled as the lag between an origin's chain head and
	// the Contract Sync cursor's committed position, in blocks. Contract
	// Sync sets it to 0 after every tick that commits at least one event;
	// the distance to the chain head is not measured.
	OriginTipLag = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "relayer",
		Name:      "origin_tip_lag_blocks",
		Help:      "Blocks between chain tip and the committed contract-sync cursor.",
	}, []string{"origin", "stream"})
)
