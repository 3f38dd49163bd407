// Copyright 2025 Interlayer Labs

package relayer

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/interlayer-labs/relayer-core/pkg/lander"
	"github.com/interlayer-labs/relayer-core/pkg/logging"
	"github.com/interlayer-labs/relayer-core/pkg/metrics"
	"github.com/interlayer-labs/relayer-core/pkg/server"
)

func parseAddress(hex string) common.Address {
	return common.HexToAddress(hex)
}

func envOrEmpty(name string) string {
	return os.Getenv(name)
}

// Run starts every chain's Contract Sync, Message Processor, Scheduler and
// Lander loops, plus the admin HTTP server, and blocks until ctx is
// cancelled or one of them returns a fatal error.
func (r *Relayer) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, rt := range r.chains {
		rt := rt
		g.Go(func() error { return r.runContractSync(ctx, rt) })
		g.Go(func() error { return rt.processor.Run(ctx) })
		g.Go(func() error { rt.scheduler.Run(ctx); return nil })
		g.Go(func() error { return r.runBuilding(ctx, rt) })
		g.Go(func() error { return r.runInclusionAndFinality(ctx, rt) })
	}

	if r.cfg.ListenAddr != "" {
		g.Go(func() error { return r.runAdminServer(ctx) })
	}

	return g.Wait()
}

func (r *Relayer) runContractSync(ctx context.Context, rt *chainRuntime) error {
	ticker := time.NewTicker(rt.cfg.EstimatedBlockTime)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := rt.syncer.TickAll(ctx)
			if err != nil {
				rt.log().Error("contract sync tick failed", logging.Field{Key: "error", Value: err.Error()})
				continue
			}
			if n > 0 {
				metrics.OriginTipLag.WithLabelValues(rt.cfg.Name, "dispatched_message").Set(0)
			}
		}
	}
}

func (r *Relayer) runBuilding(ctx context.Context, rt *chainRuntime) error {
	for {
		if err := rt.building.Drain(ctx, rt.scheduler.SubmitQueue()); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

func (r *Relayer) runInclusionAndFinality(ctx context.Context, rt *chainRuntime) error {
	inFlight := make(map[string]*lander.Transaction)
	ticker := time.NewTicker(rt.cfg.EstimatedBlockTime)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case tx := <-rt.toLander:
			if err := rt.inclusion.Submit(ctx, tx); err != nil {
				rt.log().Error("submit transaction failed",
					logging.Field{Key: "tx_uuid", Value: tx.UUID},
					logging.Field{Key: "error", Value: err.Error()},
				)
				continue
			}
			inFlight[tx.UUID] = tx
		case <-ticker.C:
			if err := rt.nonces.Refresh(ctx); err != nil {
				rt.log().Error("nonce refresh failed", logging.Field{Key: "error", Value: err.Error()})
			}
			metrics.InFlightTransactions.WithLabelValues(rt.cfg.Name).Set(float64(len(inFlight)))
			for uuid, tx := range inFlight {
				mined := tx.Status == lander.TxIncluded
				if !mined {
					var err error
					if mined, err = rt.inclusion.PollOnce(ctx, tx); err != nil {
						rt.log().Error("poll inclusion failed", logging.Field{Key: "error", Value: err.Error()})
						continue
					}
				}
				if !mined {
					if rt.inclusion.CheckNonceReuse(tx) {
						delete(inFlight, uuid)
						continue
					}
					if err := rt.inclusion.MaybeResubmit(ctx, tx); err != nil {
						rt.log().Error("resubmit failed", logging.Field{Key: "error", Value: err.Error()})
					}
					continue
				}
				if tx.Status == lander.TxDropped {
					if tx.NonceAssigned {
						rt.nonces.MarkFreed(tx.Nonce)
					}
					delete(inFlight, uuid)
					continue
				}
				result, err := rt.finality.Check(ctx, tx)
				if err != nil {
					rt.log().Error("finality check failed", logging.Field{Key: "error", Value: err.Error()})
					continue
				}
				switch result {
				case lander.Finalized:
					delete(inFlight, uuid)
				case lander.ReorgedOut:
					rt.finality.Revert(tx)
				}
			}
		}
	}
}

func (r *Relayer) runAdminServer(ctx context.Context) error {
	admin := &server.AdminServer{
		SchedulerFor: r.schedulerFor,
		NonceManager: r.nonceManagerFor,
		Registry:     r.registryFor,
		Inclusion:    r.inclusionFor,
		OriginDBFor:  r.originDBFor,
		GasPolicy:    r.gasPolicy,
		Log:          r.log,
	}
	srv := &http.Server{Addr: r.cfg.ListenAddr, Handler: admin.Router()}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (rt *chainRuntime) log() *logging.Logger {
	return rt.logger
}
