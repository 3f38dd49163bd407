// Copyright 2025 Interlayer Labs
//
// Package chain defines the Chain Adapter trait: every supported chain
// family is exposed behind this single uniform capability set, so the rest
// of the relayer is polymorphic over it and no per-chain branching leaks
// above this boundary.
package chain

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/interlayer-labs/relayer-core/pkg/types"
)

// EventKind distinguishes the log event streams a chain emits.
type EventKind string

const (
	EventDispatchedMessage     EventKind = "dispatched_message"
	EventDeliveredMessage      EventKind = "delivered_message"
	EventInterchainGasPayment  EventKind = "interchain_gas_payment"
	EventMerkleTreeInsertion   EventKind = "merkle_tree_insertion"
	EventAnnouncement          EventKind = "announcement"
)

// LogMeta is attached to every observed event.
type LogMeta struct {
	TxHash      common.Hash
	BlockNumber uint64
	BlockHash   common.Hash
	LogIndex    uint32
}

// LogEvent pairs a decoded event payload with its LogMeta. Payload is one
// of *types.HyperlaneMessage, common.Hash (delivered message id),
// *types.InterchainGasPayment, *types.MerkleTreeInsertion, or
// *types.SignedAnnouncement depending on Kind.
type LogEvent struct {
	Kind    EventKind
	Payload interface{}
	Meta    LogMeta
}

// BlockRange is an inclusive [From, To] range of block heights to scan.
type BlockRange struct {
	From uint64
	To   uint64
}

// CommunicationError wraps any chain RPC failure so callers can distinguish
// transient network/throttling conditions from a fatal chain misconfiguration.
type CommunicationError struct {
	Transient bool
	Err       error
}

func (e *CommunicationError) Error() string { return e.Err.Error() }
func (e *CommunicationError) Unwrap() error  { return e.Err }

// IsTransient reports whether err is (or wraps) a CommunicationError marked
// transient -- retryable without advancing any cursor.
func IsTransient(err error) bool {
	var ce *CommunicationError
	if ok := asCommunicationError(err, &ce); ok {
		return ce.Transient
	}
	return false
}

func asCommunicationError(err error, target **CommunicationError) bool {
	for err != nil {
		if ce, ok := err.(*CommunicationError); ok {
			*target = ce
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// ISMModuleType identifies an ISM's verification strategy; behavior fans
// out at Metadata Builder dispatch sites by this tag, never by inheritance.
type ISMModuleType uint8

const (
	ISMUnused ISMModuleType = iota
	ISMRouting
	ISMAggregation
	ISMLegacyMultisig
	ISMMerkleRootMultisig
	ISMMessageIDMultisig
	ISMNull
	ISMCcipRead
)

// Indexer is the read side of Contract Sync: it turns a chain's raw logs
// into the event stream the database ingests.
type Indexer interface {
	// GetFinalizedBlockNumber returns the latest block the cursor may treat
	// as irreversible: the chain head minus the adapter's reorg period.
	GetFinalizedBlockNumber(ctx context.Context) (uint64, error)

	// FetchLogs returns events of the given kind observed in range, in
	// ascending (block_number, log_index) order.
	FetchLogs(ctx context.Context, kind EventKind, r BlockRange) ([]LogEvent, error)

	// LatestSequence supports sequence-aware cursor mode for event kinds
	// that have a cheap monotonic counter (nonce-indexed streams). Returns
	// an error for event kinds this chain only supports in block-range mode.
	LatestSequence(ctx context.Context, kind EventKind) (uint64, error)

	// BlockHash returns the canonical block hash at height, used by the
	// cursor to detect reorgs between ticks.
	BlockHash(ctx context.Context, height uint64) (common.Hash, error)
}

// Mailbox is the destination-side contract accepting process(message, metadata).
type Mailbox interface {
	Address() common.Address
	Count(ctx context.Context) (uint32, error)
	Delivered(ctx context.Context, id common.Hash) (bool, error)
	DefaultISM(ctx context.Context) (common.Address, error)
	RecipientISM(ctx context.Context, recipient common.Address) (common.Address, error)

	// ProcessCalldata packs message+metadata into the destination-chain
	// calldata for process(); the Lander's Building Stage produces a
	// Transaction precursor from this without signing or submitting it.
	ProcessCalldata(ctx context.Context, message *types.HyperlaneMessage, metadata []byte) ([]byte, error)

	// EstimateProcessCost estimates the destination-side gas cost of process().
	EstimateProcessCost(ctx context.Context, message *types.HyperlaneMessage, metadata []byte) (uint64, error)
}

// MerkleTreeHook reads a destination (or origin, when used for IGP
// accounting) chain's on-chain incremental tree state.
type MerkleTreeHook interface {
	Tree(ctx context.Context, reorgPeriod uint64) (count uint64, root common.Hash, err error)
	Count(ctx context.Context) (uint64, error)
	LatestCheckpoint(ctx context.Context, reorgPeriod uint64) (types.Checkpoint, error)
}

// RoutingResult is returned by ISM.Route.
type RoutingResult struct {
	ChildISM common.Address
}

// AggregationResult is returned by ISM.ModulesAndThreshold.
type AggregationResult struct {
	Modules   []common.Address
	Threshold int
}

// MultisigConfig is returned by ISM.ValidatorsAndThreshold.
type MultisigConfig struct {
	Validators []common.Address
	Threshold  int
}

// CcipReadConfig is returned by ISM.CcipReadConfig.
type CcipReadConfig struct {
	URLs              []string
	CallData          []byte
	CallbackSelector  [4]byte
	ExtraData         []byte
}

// ISM is the verification-contract read surface the Metadata Builder needs.
type ISM interface {
	ModuleType(ctx context.Context, ism common.Address) (ISMModuleType, error)
	Route(ctx context.Context, ism common.Address, message *types.HyperlaneMessage) (RoutingResult, error)
	ModulesAndThreshold(ctx context.Context, ism common.Address, message *types.HyperlaneMessage) (AggregationResult, error)
	ValidatorsAndThreshold(ctx context.Context, ism common.Address, message *types.HyperlaneMessage) (MultisigConfig, error)
	CcipReadConfig(ctx context.Context, ism common.Address, message *types.HyperlaneMessage) (CcipReadConfig, error)
	Verify(ctx context.Context, ism common.Address, metadata []byte, message *types.HyperlaneMessage) (bool, error)
}

// ValidatorAnnounce is the origin-side registry of validator storage locations.
type ValidatorAnnounce interface {
	GetAnnouncedStorageLocations(ctx context.Context, validators []common.Address) (map[common.Address][]string, error)
}

// Signer signs raw transactions for this chain's signature scheme. The
// Inclusion Stage calls BuildTransaction to get a chain-native precursor
// and SignTransaction just before submission, on every submission, so gas
// escalation on resubmission can rebuild and re-sign at a higher fee.
type Signer interface {
	Address() common.Address
	BuildTransaction(ctx context.Context, to common.Address, data []byte, nonce uint64, gasLimit, gasFeeCapWei uint64) (unsigned interface{}, err error)
	SignTransaction(ctx context.Context, unsigned interface{}) (signed interface{}, err error)
}

// Provider is the low-level submit/poll surface used by the Lander.
type Provider interface {
	Send(ctx context.Context, signedTx interface{}) (common.Hash, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*TxReceipt, error)
	CurrentBlock(ctx context.Context) (uint64, error)
	NonceAt(ctx context.Context, addr common.Address, finalized bool) (uint64, error)
	SuggestGasPrice(ctx context.Context) (uint64, error)
}

// TxReceipt is the chain-agnostic view of a landed transaction.
type TxReceipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	BlockHash   common.Hash
	Success     bool
	GasUsed     uint64
}

// Adapter bundles every capability for one chain instance. The Relayer is
// polymorphic over it; construction of a concrete Adapter (go-ethereum
// client, Cosmos SDK client, ...) is the only place chain family matters.
type Adapter interface {
	Domain() types.Domain
	Name() string
	ReorgPeriod() uint64
	EstimatedBlockTime() time.Duration

	Indexer() Indexer
	Mailbox() Mailbox
	MerkleTreeHook() MerkleTreeHook
	ISM() ISM
	ValidatorAnnounce() ValidatorAnnounce
	Signer() Signer
	Provider() Provider
}
