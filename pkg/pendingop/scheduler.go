// Copyright 2025 Interlayer Labs

package pendingop

import (
	"container/heap"
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/interlayer-labs/relayer-core/pkg/chain"
	"github.com/interlayer-labs/relayer-core/pkg/gaspolicy"
	"github.com/interlayer-labs/relayer-core/pkg/logging"
	"github.com/interlayer-labs/relayer-core/pkg/metadata"
	"github.com/interlayer-labs/relayer-core/pkg/metrics"
	"github.com/interlayer-labs/relayer-core/pkg/origindb"
	"github.com/interlayer-labs/relayer-core/pkg/types"
)

// prepareHeap orders priority operations first, then by NextAttemptAfter,
// tiebreaking on nonce.
type prepareHeap []*PendingOperation

func (h prepareHeap) Len() int { return len(h) }
func (h prepareHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority // priority ops sort first
	}
	if !h[i].NextAttemptAfter.Equal(h[j].NextAttemptAfter) {
		return h[i].NextAttemptAfter.Before(h[j].NextAttemptAfter)
	}
	return h[i].Nonce < h[j].Nonce
}
func (h prepareHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *prepareHeap) Push(x interface{}) { *h = append(*h, x.(*PendingOperation)) }
func (h *prepareHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Deps bundles everything the prepare step needs to evaluate one operation.
// A single destination's Scheduler fields operations dispatched from many
// origins, so every origin-scoped dependency (the database, the metadata
// builder carrying that origin's merkle snapshot and validator announce,
// the reorg-safe leaf count) is a resolver keyed by op.Origin rather than
// a fixed instance.
type Deps struct {
	DestinationMailbox chain.Mailbox
	MetadataBuilderFor func(origin types.Domain) *metadata.Builder
	MetadataParams     metadata.Params
	GasPolicy          *gaspolicy.Policy
	OriginDBFor        func(origin types.Domain) *origindb.DB
	OriginSafeCount    func(ctx context.Context, origin types.Domain) (uint64, error) // origin merkle tree hook leaf count
	MaxRetryInterval   time.Duration
	Log                *logging.Logger
}

// Scheduler is the single-writer loop for one destination domain.
type Scheduler struct {
	destination types.Domain
	deps        Deps

	mu    sync.Mutex
	queue prepareHeap
	index map[common.Hash]*PendingOperation

	submit chan *PendingOperation
	wake   chan struct{}
}

func New(destination types.Domain, deps Deps, submitQueueDepth int) *Scheduler {
	s := &Scheduler{
		destination: destination,
		deps:        deps,
		index:       make(map[common.Hash]*PendingOperation),
		submit:      make(chan *PendingOperation, submitQueueDepth),
		wake:        make(chan struct{}, 1),
	}
	heap.Init(&s.queue)
	return s
}

// SubmitQueue is the FIFO channel the Lander's Building Stage drains.
func (s *Scheduler) SubmitQueue() <-chan *PendingOperation { return s.submit }

// Enqueue adds a freshly-constructed operation to the prepare queue.
func (s *Scheduler) Enqueue(op *PendingOperation) {
	s.mu.Lock()
	s.index[op.MessageID] = op
	heap.Push(&s.queue, op)
	s.mu.Unlock()
	s.notify()
}

// Retry requeues an existing operation with elevated priority -- the admin
// channel's message_retry endpoint.
func (s *Scheduler) Retry(messageID common.Hash) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	op, ok := s.index[messageID]
	if !ok {
		return false
	}
	op.Priority = true
	op.NextAttemptAfter = time.Time{}
	heap.Fix(&s.queue, s.indexOfLocked(op))
	s.notify()
	return true
}

func (s *Scheduler) indexOfLocked(target *PendingOperation) int {
	for i, op := range s.queue {
		if op == target {
			return i
		}
	}
	return -1
}

func (s *Scheduler) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// MarkReorged transitions every op in the prepare queue from origin whose
// nonce is in [fromNonce, math.MaxUint32] to Reorged, called when that origin's
// contractsync cursor backtracks.
func (s *Scheduler) MarkReorged(origin types.Domain, fromNonce uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, op := range s.queue {
		if op.Origin == origin && op.Nonce >= fromNonce {
			op.Status = Reorged
		}
	}
}

// Run pops ready operations and prepares them until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		s.mu.Lock()
		var next *PendingOperation
		if s.queue.Len() > 0 {
			top := s.queue[0]
			if top.Priority || !top.NextAttemptAfter.After(time.Now()) {
				next = heap.Pop(&s.queue).(*PendingOperation)
			}
		}
		depth := s.queue.Len()
		s.mu.Unlock()
		metrics.PrepareQueueDepth.WithLabelValues(strconv.FormatUint(uint64(s.destination), 10)).Set(float64(depth))
		metrics.SubmitQueueDepth.WithLabelValues(strconv.FormatUint(uint64(s.destination), 10)).Set(float64(len(s.submit)))

		if next == nil {
			select {
			case <-ctx.Done():
				return
			case <-s.wake:
			case <-time.After(time.Second):
			}
			continue
		}

		s.prepare(ctx, next)
	}
}

func (s *Scheduler) prepare(ctx context.Context, op *PendingOperation) {
	delivered, err := s.deps.DestinationMailbox.Delivered(ctx, op.MessageID)
	if err == nil && delivered {
		op.Status = Done
		s.persist(op)
		s.mu.Lock()
		delete(s.index, op.MessageID)
		s.mu.Unlock()
		return
	}

	originDB := s.deps.OriginDBFor(op.Origin)
	if originDB == nil {
		s.reschedule(op)
		return
	}

	if s.deps.OriginSafeCount != nil {
		safeCount, err := s.deps.OriginSafeCount(ctx, op.Origin)
		if err == nil && uint64(op.Nonce) >= safeCount {
			s.reschedule(op)
			return
		}
	}

	if op.ISMAddress == nil {
		ism, err := s.resolveISM(ctx, originDB, op)
		if err != nil {
			s.reschedule(op)
			return
		}
		op.ISMAddress = &ism
	}

	message, err := originDB.GetMessageByNonce(op.Nonce)
	if err != nil || message == nil {
		s.reschedule(op)
		return
	}

	builder := s.deps.MetadataBuilderFor(op.Origin)
	if builder == nil {
		s.reschedule(op)
		return
	}
	blob, err := builder.Build(ctx, *op.ISMAddress, message, s.deps.MetadataParams)
	if err != nil {
		s.reschedule(op)
		return
	}
	op.Metadata = blob

	gasPayment, err := originDB.GetGasPayment(op.Nonce)
	if err != nil {
		s.reschedule(op)
		return
	}
	var observedPayment uint64
	if gasPayment != nil {
		observedPayment = gasPayment.Payment
	}
	estimate, err := s.deps.DestinationMailbox.EstimateProcessCost(ctx, message, blob)
	if err != nil {
		s.reschedule(op)
		return
	}
	covered, err := s.deps.GasPolicy.Evaluate(ctx, op.Origin, op.Destination, observedPayment, estimate)
	if err != nil || !covered {
		s.reschedule(op)
		return
	}

	op.Status = ReadyToSubmit
	op.Priority = false
	s.persist(op)
	select {
	case s.submit <- op:
	case <-ctx.Done():
	}
}

func (s *Scheduler) resolveISM(ctx context.Context, originDB *origindb.DB, op *PendingOperation) (common.Address, error) {
	message, err := originDB.GetMessageByNonce(op.Nonce)
	if err != nil || message == nil {
		return common.Address{}, err
	}
	ism, err := s.deps.DestinationMailbox.RecipientISM(ctx, message.RecipientAddress())
	if err == nil && ism != (common.Address{}) {
		return ism, nil
	}
	return s.deps.DestinationMailbox.DefaultISM(ctx)
}

func (s *Scheduler) reschedule(op *PendingOperation) {
	op.Attempts++
	op.Status = PrepareRetry
	op.NextAttemptAfter = time.Now().Add(NextBackoff(op.Attempts, time.Second, s.deps.MaxRetryInterval))
	s.persist(op)
	s.mu.Lock()
	heap.Push(&s.queue, op)
	s.mu.Unlock()
	metrics.RetriesTotal.WithLabelValues(strconv.FormatUint(uint64(s.destination), 10)).Inc()
}

func (s *Scheduler) persist(op *PendingOperation) {
	originDB := s.deps.OriginDBFor(op.Origin)
	if originDB == nil {
		return
	}
	buf, err := op.Encode()
	if err != nil {
		return
	}
	_ = originDB.PutPendingOpStatus(op.MessageID, buf)
}

// Restore reloads every non-terminal op for one origin from that origin's
// database after a restart.
func (s *Scheduler) Restore(origin types.Domain, messageIDs []common.Hash) {
	originDB := s.deps.OriginDBFor(origin)
	if originDB == nil {
		return
	}
	for _, id := range messageIDs {
		buf, err := originDB.GetPendingOpStatus(id)
		if err != nil || buf == nil {
			continue
		}
		op, err := Decode(buf)
		if err != nil {
			continue
		}
		if op.Status == Done || op.Status == Dropped {
			continue
		}
		s.Enqueue(op)
	}
}
