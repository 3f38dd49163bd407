// Copyright 2025 Interlayer Labs
//
// Package metadata implements the recursive Metadata Builder: it dispatches
// on an ISM's module type and produces the bit-exact metadata blob the
// destination ISM's verify() expects.
package metadata

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/interlayer-labs/relayer-core/pkg/cache"
	"github.com/interlayer-labs/relayer-core/pkg/chain"
	"github.com/interlayer-labs/relayer-core/pkg/merkle"
	"github.com/interlayer-labs/relayer-core/pkg/metadata/multisig"
	"github.com/interlayer-labs/relayer-core/pkg/types"
)

// Params bounds one Build call's recursion.
type Params struct {
	MaxDepth    int
	MaxIsmCount int
}

// Deps bundles the chain reads the builder and its sub-builders need.
type Deps struct {
	DestinationISM    chain.ISM
	OriginValidatorAnnounce chain.ValidatorAnnounce
	MerkleSnapshot    *merkle.Snapshot
	Cache             *cache.Cache
	HTTPClient        *http.Client
}

// Builder recursively resolves an ISM chain down to leaf verification
// metadata, honoring the caller's depth/ISM-count budget.
type Builder struct {
	deps Deps
}

func New(deps Deps) *Builder {
	if deps.HTTPClient == nil {
		deps.HTTPClient = http.DefaultClient
	}
	return &Builder{deps: deps}
}

// Build produces the metadata blob for ism at moduleAddress, verifying message.
func (b *Builder) Build(ctx context.Context, moduleAddress common.Address, message *types.HyperlaneMessage, params Params) ([]byte, error) {
	ismCount := 0
	return b.build(ctx, moduleAddress, message, params.MaxDepth, params.MaxIsmCount, &ismCount)
}

func (b *Builder) build(ctx context.Context, moduleAddress common.Address, message *types.HyperlaneMessage, depthBudget, ismBudget int, ismCount *int) ([]byte, error) {
	if depthBudget < 0 {
		return nil, newBuildError(MaxDepthExceeded, nil)
	}
	*ismCount++
	if *ismCount > ismBudget {
		return nil, newBuildError(MaxIsmCountExceeded, nil)
	}

	moduleType, err := b.cachedModuleType(ctx, moduleAddress)
	if err != nil {
		return nil, newBuildError(CouldNotFetchMetadata, err)
	}

	switch moduleType {
	case chain.ISMMessageIDMultisig, chain.ISMLegacyMultisig:
		return b.buildMultisig(ctx, moduleAddress, message, multisig.MessageIDKind)
	case chain.ISMMerkleRootMultisig:
		return b.buildMultisig(ctx, moduleAddress, message, multisig.MerkleRootKind)
	case chain.ISMRouting:
		return b.buildRouting(ctx, moduleAddress, message, depthBudget, ismBudget, ismCount)
	case chain.ISMAggregation:
		return b.buildAggregation(ctx, moduleAddress, message, depthBudget, ismBudget, ismCount)
	case chain.ISMCcipRead:
		return b.buildCcipRead(ctx, moduleAddress, message)
	case chain.ISMNull, chain.ISMUnused:
		return []byte{}, nil
	default:
		return nil, newBuildError(UnsupportedModuleType, fmt.Errorf("module type %d", moduleType))
	}
}

func (b *Builder) cachedModuleType(ctx context.Context, moduleAddress common.Address) (chain.ISMModuleType, error) {
	key := fmt.Sprintf("ism_module_type:%s", moduleAddress.Hex())
	v, err := b.deps.Cache.GetOrLoad(key, func() (interface{}, error) {
		return b.deps.DestinationISM.ModuleType(ctx, moduleAddress)
	})
	if err != nil {
		return chain.ISMUnused, err
	}
	return v.(chain.ISMModuleType), nil
}

func (b *Builder) buildRouting(ctx context.Context, moduleAddress common.Address, message *types.HyperlaneMessage, depthBudget, ismBudget int, ismCount *int) ([]byte, error) {
	result, err := b.deps.DestinationISM.Route(ctx, moduleAddress, message)
	if err != nil {
		return nil, newBuildError(CouldNotFetchMetadata, err)
	}
	return b.build(ctx, result.ChildISM, message, depthBudget-1, ismBudget, ismCount)
}

func (b *Builder) buildAggregation(ctx context.Context, moduleAddress common.Address, message *types.HyperlaneMessage, depthBudget, ismBudget int, ismCount *int) ([]byte, error) {
	agg, err := b.deps.DestinationISM.ModulesAndThreshold(ctx, moduleAddress, message)
	if err != nil {
		return nil, newBuildError(CouldNotFetchMetadata, err)
	}

	results := make([][]byte, len(agg.Modules))
	g, gctx := errgroup.WithContext(ctx)
	for i, child := range agg.Modules {
		i, child := i, child
		g.Go(func() error {
			blob, err := b.build(gctx, child, message, depthBudget-1, ismBudget, ismCount)
			if err != nil {
				return nil // a failing child just doesn't contribute; threshold check happens below
			}
			results[i] = blob
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, newBuildError(CouldNotFetchMetadata, err)
	}

	successes := 0
	for _, r := range results {
		if r != nil {
			successes++
		}
	}
	if successes < agg.Threshold {
		return nil, newBuildError(InsufficientValidators, fmt.Errorf("aggregation: %d/%d sub-modules succeeded", successes, agg.Threshold))
	}
	return encodeAggregation(results), nil
}

// encodeAggregation lays out an (offset,length) pair per module -- including
// modules that contributed no metadata (a Null ISM, or a failed child the
// threshold check above already tolerated) -- followed by the concatenated
// sub-metadata in module order. Every entry in results gets a slot in the
// offsets table; a nil or empty blob simply records length 0 in place.
func encodeAggregation(results [][]byte) []byte {
	var offsets bytes.Buffer
	var payload bytes.Buffer
	runningOffset := uint32(len(results) * 8)
	for _, blob := range results {
		binary.Write(&offsets, binary.BigEndian, runningOffset)
		binary.Write(&offsets, binary.BigEndian, uint32(len(blob)))
		payload.Write(blob)
		runningOffset += uint32(len(blob))
	}
	return append(offsets.Bytes(), payload.Bytes()...)
}

func (b *Builder) buildMultisig(ctx context.Context, moduleAddress common.Address, message *types.HyperlaneMessage, kind multisig.Kind) ([]byte, error) {
	config, err := b.deps.DestinationISM.ValidatorsAndThreshold(ctx, moduleAddress, message)
	if err != nil {
		return nil, newBuildError(CouldNotFetchMetadata, err)
	}
	blob, err := multisig.Build(ctx, kind, multisig.Deps{
		ValidatorAnnounce: b.deps.OriginValidatorAnnounce,
		Snapshot:          b.deps.MerkleSnapshot,
		Cache:             b.deps.Cache,
	}, moduleAddress, message, config.Validators, config.Threshold)
	if err != nil {
		if err == multisig.ErrInsufficientValidators {
			return nil, newBuildError(InsufficientValidators, err)
		}
		return nil, newBuildError(CouldNotFetchMetadata, err)
	}
	return blob, nil
}

func (b *Builder) buildCcipRead(ctx context.Context, moduleAddress common.Address, message *types.HyperlaneMessage) ([]byte, error) {
	cfg, err := b.deps.DestinationISM.CcipReadConfig(ctx, moduleAddress, message)
	if err != nil {
		return nil, newBuildError(CouldNotFetchMetadata, err)
	}

	var lastErr error
	for _, u := range cfg.URLs {
		resp, err := b.deps.HTTPClient.Post(u, "application/octet-stream", bytes.NewReader(cfg.CallData))
		if err != nil {
			lastErr = err
			continue
		}
		body := make([]byte, 0)
		buf := make([]byte, 4096)
		for {
			n, rerr := resp.Body.Read(buf)
			body = append(body, buf[:n]...)
			if rerr != nil {
				break
			}
		}
		resp.Body.Close()

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("ccip-read %s: server error %d", u, resp.StatusCode)
			continue
		}
		if resp.StatusCode >= 400 {
			lastErr = fmt.Errorf("ccip-read %s: client error %d", u, resp.StatusCode)
			continue // try next URL
		}
		out := append(append([]byte{}, cfg.CallbackSelector[:]...), body...)
		out = append(out, cfg.ExtraData...)
		return out, nil
	}
	return nil, newBuildError(CouldNotFetchMetadata, lastErr)
}
