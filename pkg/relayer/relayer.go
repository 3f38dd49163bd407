// Copyright 2025 Interlayer Labs
//
// Package relayer wires every per-chain and per-lane component -- contract
// sync, the message processor, the pending-operation scheduler, the Lander
// pipeline, the nonce manager, and the admin HTTP surface -- into one
// running process. It is the composition root; no other package reaches
// into more than one chain's state.
package relayer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/interlayer-labs/relayer-core/pkg/cache"
	"github.com/interlayer-labs/relayer-core/pkg/chain"
	"github.com/interlayer-labs/relayer-core/pkg/chain/evm"
	"github.com/interlayer-labs/relayer-core/pkg/config"
	"github.com/interlayer-labs/relayer-core/pkg/contractsync"
	"github.com/interlayer-labs/relayer-core/pkg/cursor"
	"github.com/interlayer-labs/relayer-core/pkg/gaspolicy"
	"github.com/interlayer-labs/relayer-core/pkg/kvstore"
	"github.com/interlayer-labs/relayer-core/pkg/lander"
	"github.com/interlayer-labs/relayer-core/pkg/lander/noncemgr"
	"github.com/interlayer-labs/relayer-core/pkg/logging"
	"github.com/interlayer-labs/relayer-core/pkg/merkle"
	"github.com/interlayer-labs/relayer-core/pkg/metadata"
	"github.com/interlayer-labs/relayer-core/pkg/origindb"
	"github.com/interlayer-labs/relayer-core/pkg/pendingop"
	"github.com/interlayer-labs/relayer-core/pkg/processor"
	"github.com/interlayer-labs/relayer-core/pkg/types"
)

// chainRuntime bundles everything wired for one configured chain, acting
// simultaneously as a message origin and, for messages addressed to it, a
// delivery destination.
type chainRuntime struct {
	cfg     config.ChainConfig
	adapter chain.Adapter
	db      *origindb.DB
	logger  *logging.Logger

	syncer    *contractsync.Syncer
	processor *processor.Processor

	scheduler *pendingop.Scheduler
	registry  *lander.Registry
	building  *lander.BuildingStage
	inclusion *lander.InclusionStage
	finality  *lander.FinalityStage
	nonces    *noncemgr.Manager

	toLander chan *lander.Transaction
}

// Relayer owns every chain's runtime and the shared gas policy that spans
// all of them.
type Relayer struct {
	cfg       *config.Config
	log       *logging.Logger
	gasPolicy *gaspolicy.Policy
	cache     *cache.Cache

	mu     sync.RWMutex
	chains map[types.Domain]*chainRuntime
}

// New dials every configured chain's adapter, opens its database, and
// wires its scheduler, Lander pipeline and nonce manager. It does not start
// any background loop -- call Run for that.
func New(ctx context.Context, cfg *config.Config, log *logging.Logger) (*Relayer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &Relayer{
		cfg:       cfg,
		log:       log,
		gasPolicy: gaspolicy.New(gaspolicy.NewStaticOracle()),
		cache:     cache.New(5*time.Minute, 4096),
		chains:    make(map[types.Domain]*chainRuntime),
	}
	r.gasPolicy.SetRules(ruleConfigsToRules(cfg.GasPolicyRules))

	for _, cc := range cfg.Chains {
		rt, err := r.dialChain(ctx, cc)
		if err != nil {
			return nil, fmt.Errorf("relayer: dial %s: %w", cc.Name, err)
		}
		r.chains[cc.Domain] = rt
	}

	for _, rt := range r.chains {
		r.wireDestination(rt)
	}

	return r, nil
}

func ruleConfigsToRules(rcs []config.GasRuleConfig) []gaspolicy.Rule {
	rules := make([]gaspolicy.Rule, len(rcs))
	for i, rc := range rcs {
		rules[i] = gaspolicy.Rule{
			Index:          i,
			Origin:         rc.Origin,
			Destination:    rc.Destination,
			Kind:           rc.Kind,
			MinimumPayment: rc.MinimumPayment,
		}
	}
	return rules
}

func (r *Relayer) dialChain(ctx context.Context, cc config.ChainConfig) (*chainRuntime, error) {
	signerKey := ""
	if cc.SignerPrivateKeyEnv != "" {
		signerKey = envOrEmpty(cc.SignerPrivateKeyEnv)
	}

	adapter, err := evm.Dial(ctx, evm.Config{
		Name:                  cc.Name,
		Domain:                cc.Domain,
		RPCURL:                cc.RPCURL,
		MailboxAddress:        parseAddress(cc.MailboxAddress),
		MerkleTreeHookAddr:    parseAddress(cc.MerkleTreeHookAddress),
		ValidatorAnnounceAddr: parseAddress(cc.ValidatorAnnounceAddr),
		ReorgPeriod:           cc.ReorgPeriod,
		EstimatedBlockTime:    cc.EstimatedBlockTime,
		SignerPrivateKeyHex:   signerKey,
	})
	if err != nil {
		return nil, err
	}

	store, err := kvstore.Open(cc.Name, r.cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("relayer: open store for %s: %w", cc.Name, err)
	}
	db := origindb.New(cc.Domain, store)

	log := r.log.WithDomain(uint32(cc.Domain)).WithComponent(cc.Name)

	rt := &chainRuntime{
		cfg:      cc,
		adapter:  adapter,
		db:       db,
		logger:   log,
		toLander: make(chan *lander.Transaction, r.cfg.SubmitQueueDepth),
		registry: lander.NewRegistry(),
	}

	rt.syncer = contractsync.New(contractsync.Config{
		Domain:       cc.Domain,
		ChunkSize:    r.cfg.ContractSyncChunkSize,
		ReorgPeriod:  cc.ReorgPeriod,
		SafetyMargin: r.cfg.ContractSyncSafetyMargin,
		RPCRateLimit: rate.Limit(cc.RPCRequestsPerSecond),
		RPCRateBurst: cc.RPCBurst,
	}, adapter.Indexer(), db, log, func(e cursor.ReorgEvent) {
		r.handleOriginReorg(cc.Domain, e)
	})

	rt.processor = &processor.Processor{
		Origin:       cc.Domain,
		DB:           db,
		SchedulerFor: r.schedulerFor,
		Log:          log,
	}

	rt.nonces = noncemgr.New(adapter.Provider(), adapter.Signer().Address())

	return rt, nil
}

// wireDestination builds the scheduler and Lander pipeline a chain needs
// to act as a delivery destination, once every chain has a db and adapter
// -- the scheduler's per-origin resolvers close over the full chain map.
func (r *Relayer) wireDestination(rt *chainRuntime) {
	destination := rt.cfg.Domain
	log := r.log.WithDomain(uint32(destination)).WithComponent("scheduler")

	rt.scheduler = pendingop.New(destination, pendingop.Deps{
		DestinationMailbox: rt.adapter.Mailbox(),
		MetadataBuilderFor: func(origin types.Domain) *metadata.Builder {
			return r.metadataBuilderFor(origin, rt.adapter)
		},
		MetadataParams: metadata.Params{
			MaxDepth:    r.cfg.MetadataMaxDepth,
			MaxIsmCount: r.cfg.MetadataMaxISMCount,
		},
		GasPolicy:        r.gasPolicy,
		OriginDBFor:      r.originDBFor,
		OriginSafeCount:  r.originSafeCount,
		MaxRetryInterval: r.cfg.PrepareMaxRetryInterval,
		Log:              log,
	}, r.cfg.SubmitQueueDepth)

	rt.building = &lander.BuildingStage{
		Mailbox:      rt.adapter.Mailbox(),
		OriginDBFor:  r.originDBFor,
		MaxBatchSize: r.cfg.LanderMaxBatchSize,
		Registry:     rt.registry,
		Out:          rt.toLander,
	}
	rt.inclusion = &lander.InclusionStage{
		Mailbox:           rt.adapter.Mailbox(),
		Signer:            rt.adapter.Signer(),
		Provider:          rt.adapter.Provider(),
		Nonces:            rt.nonces,
		OriginDBFor:       r.originDBFor,
		Registry:          rt.registry,
		ResubmissionDelay: r.cfg.ResubmissionDelay,
		Log:               r.log.WithDomain(uint32(destination)).WithComponent("inclusion"),
	}
	rt.finality = &lander.FinalityStage{
		Provider:    rt.adapter.Provider(),
		ReorgPeriod: rt.cfg.ReorgPeriod,
		OriginDBFor: r.originDBFor,
		Registry:    rt.registry,
		Nonces:      rt.nonces,
		Log:         r.log.WithDomain(uint32(destination)).WithComponent("finality"),
	}
}

// metadataBuilderFor returns a Builder configured for messages flowing
// from origin to the given destination adapter. The merkle snapshot is
// replayed fresh from the origin's database every call: this implementation
// favors correctness over caching an incremental tree across Builds, since
// a stale snapshot could prove into a checkpoint the destination ISM has
// not observed yet.
func (r *Relayer) metadataBuilderFor(origin types.Domain, destination chain.Adapter) *metadata.Builder {
	originRT := r.chainByDomain(origin)
	if originRT == nil {
		return nil
	}
	count, err := originRT.adapter.MerkleTreeHook().Count(context.Background())
	if err != nil {
		return nil
	}
	snapshot, err := merkle.ReplaySnapshot(originRT.db, uint32(count))
	if err != nil {
		if r.log != nil {
			r.log.Warn("replay merkle snapshot failed",
				logging.Field{Key: "origin", Value: origin},
				logging.Field{Key: "error", Value: err.Error()},
			)
		}
		return nil
	}
	return metadata.New(metadata.Deps{
		DestinationISM:          destination.ISM(),
		OriginValidatorAnnounce: originRT.adapter.ValidatorAnnounce(),
		MerkleSnapshot:          snapshot,
		Cache:                   r.cache,
	})
}

func (r *Relayer) originDBFor(origin types.Domain) *origindb.DB {
	rt := r.chainByDomain(origin)
	if rt == nil {
		return nil
	}
	return rt.db
}

func (r *Relayer) schedulerFor(destination types.Domain) *pendingop.Scheduler {
	rt := r.chainByDomain(destination)
	if rt == nil {
		return nil
	}
	return rt.scheduler
}

func (r *Relayer) registryFor(domain types.Domain) *lander.Registry {
	rt := r.chainByDomain(domain)
	if rt == nil {
		return nil
	}
	return rt.registry
}

func (r *Relayer) inclusionFor(domain types.Domain) *lander.InclusionStage {
	rt := r.chainByDomain(domain)
	if rt == nil {
		return nil
	}
	return rt.inclusion
}

func (r *Relayer) nonceManagerFor(domain types.Domain) *noncemgr.Manager {
	rt := r.chainByDomain(domain)
	if rt == nil {
		return nil
	}
	return rt.nonces
}

// originSafeCount returns the number of leaves an origin's merkle tree hook
// reports, used by the scheduler to withhold messages whose nonce is not
// yet below that count. The EVM hook's Tree reads the count at the latest
// block and does not apply the reorg period it is passed, so this count is
// not held back by the origin's reorg period.
func (r *Relayer) originSafeCount(ctx context.Context, origin types.Domain) (uint64, error) {
	rt := r.chainByDomain(origin)
	if rt == nil {
		return 0, fmt.Errorf("relayer: no chain for origin %d", origin)
	}
	count, _, err := rt.adapter.MerkleTreeHook().Tree(ctx, rt.cfg.ReorgPeriod)
	return count, err
}

func (r *Relayer) chainByDomain(domain types.Domain) *chainRuntime {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.chains[domain]
}

// handleOriginReorg marks every operation from this origin that is waiting
// in a destination scheduler's prepare queue as Reorged. Contract Sync
// only reports the block height the mismatch was found at, not which
// message nonce it affects, so this marks every queued operation from the
// origin. Operations already handed to the submit queue or the Lander are
// not touched.
func (r *Relayer) handleOriginReorg(origin types.Domain, _ cursor.ReorgEvent) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rt := range r.chains {
		rt.scheduler.MarkReorged(origin, 0)
	}
}

// GasPolicy exposes the shared policy for the admin server to manage.
func (r *Relayer) GasPolicy() *gaspolicy.Policy { return r.gasPolicy }
