// Copyright 2025 Interlayer Labs
//
// Package server implements the relayer's admin HTTP surface: operator
// endpoints for retrying stuck messages, recovering a wedged nonce manager,
// inspecting and resubmitting reorg-captured transactions, and managing
// the gas-payment policy's rules, all on a single control port.
package server

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"

	"github.com/interlayer-labs/relayer-core/pkg/gaspolicy"
	"github.com/interlayer-labs/relayer-core/pkg/lander"
	"github.com/interlayer-labs/relayer-core/pkg/lander/noncemgr"
	"github.com/interlayer-labs/relayer-core/pkg/logging"
	"github.com/interlayer-labs/relayer-core/pkg/origindb"
	"github.com/interlayer-labs/relayer-core/pkg/pendingop"
	"github.com/interlayer-labs/relayer-core/pkg/types"
)

// AdminServer wires the control-port handlers to the running relayer's
// per-destination and per-origin components, resolved by domain id so one
// process serving many chains can be administered through one port.
type AdminServer struct {
	SchedulerFor  func(destination types.Domain) *pendingop.Scheduler
	NonceManager  func(domain types.Domain) *noncemgr.Manager
	Registry      func(domain types.Domain) *lander.Registry
	Inclusion     func(domain types.Domain) *lander.InclusionStage
	OriginDBFor   func(origin types.Domain) *origindb.DB
	GasPolicy     *gaspolicy.Policy
	Log           *logging.Logger
}

// Router builds the mux.Router carrying every admin endpoint, wrapped in
// the shared request-logging middleware.
func (a *AdminServer) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/message_retry", a.handleMessageRetry).Methods(http.MethodPost)
	r.HandleFunc("/evm/overwrite_upper_nonce", a.handleOverwriteUpperNonce).Methods(http.MethodPost)
	r.HandleFunc("/evm/inspect_reorged_transactions", a.handleInspectReorged).Methods(http.MethodPost)
	r.HandleFunc("/evm/reprocess_reorged_transactions", a.handleReprocessReorged).Methods(http.MethodPost)
	r.HandleFunc("/igp_rules", a.handleListRules).Methods(http.MethodGet)
	r.HandleFunc("/igp_rules", a.handleAddRule).Methods(http.MethodPost)
	r.HandleFunc("/igp_rules/{index}", a.handleRemoveRule).Methods(http.MethodDelete)
	r.HandleFunc("/merkle_tree_insertions", a.handleListInsertions).Methods(http.MethodGet)
	r.HandleFunc("/merkle_tree_insertions", a.handleSeedInsertion).Methods(http.MethodPost)
	// /kaspa/* and /eigen/* name chain-specific surfaces this deployment has
	// no adapter for (no Kaspa chain, no EigenLayer validator server) --
	// left as explicit 501s rather than silently 404ing.
	r.HandleFunc("/kaspa/deposit", a.handleNotImplemented).Methods(http.MethodGet)
	r.HandleFunc("/kaspa/withdrawal", a.handleNotImplemented).Methods(http.MethodGet)
	r.PathPrefix("/eigen/").HandlerFunc(a.handleNotImplemented)

	if a.Log != nil {
		return logging.NewRequestLogger(a.Log).MiddlewareFunc()(r)
	}
	return r
}

type messageRetryRequest struct {
	MessageIDs []string `json:"message_ids"`
}

func (a *AdminServer) handleMessageRetry(w http.ResponseWriter, r *http.Request) {
	var req messageRetryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	results := make(map[string]bool, len(req.MessageIDs))
	for _, raw := range req.MessageIDs {
		decoded, err := hex.DecodeString(trimHexPrefix(raw))
		if err != nil || len(decoded) != 32 {
			writeError(w, http.StatusBadRequest, errInvalidHex(raw))
			return
		}
		id := common.BytesToHash(decoded)
		results[raw] = a.retryAcrossDestinations(id)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"requeued": results})
}

// retryAcrossDestinations tries every known destination scheduler since the
// admin channel is not told which lane a message id belongs to.
func (a *AdminServer) retryAcrossDestinations(id common.Hash) bool {
	if a.SchedulerFor == nil {
		return false
	}
	for domain := types.Domain(0); domain < maxProbedDomains; domain++ {
		sched := a.SchedulerFor(domain)
		if sched == nil {
			continue
		}
		if sched.Retry(id) {
			return true
		}
	}
	return false
}

// maxProbedDomains bounds the linear scan retryAcrossDestinations does over
// domain ids when the caller doesn't know which destination owns a message;
// real deployments run a handful of chains, so this is generous headroom,
// not a real address space.
const maxProbedDomains = 1 << 16

type overwriteUpperNonceRequest struct {
	DomainID      types.Domain `json:"domain_id"`
	NewUpperNonce *uint64      `json:"new_upper_nonce"`
}

func (a *AdminServer) handleOverwriteUpperNonce(w http.ResponseWriter, r *http.Request) {
	var req overwriteUpperNonceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	mgr := a.NonceManager(req.DomainID)
	if mgr == nil {
		writeError(w, http.StatusNotFound, errUnknownDomain(req.DomainID))
		return
	}
	mgr.Override(req.NewUpperNonce)
	writeJSON(w, http.StatusOK, map[string]interface{}{"upper_nonce": mgr.UpperNonce()})
}

type domainRequest struct {
	DomainID types.Domain `json:"domain_id"`
}

func (a *AdminServer) handleInspectReorged(w http.ResponseWriter, r *http.Request) {
	var req domainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	reg := a.Registry(req.DomainID)
	if reg == nil {
		writeError(w, http.StatusNotFound, errUnknownDomain(req.DomainID))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"transactions": reg.Reorged()})
}

func (a *AdminServer) handleReprocessReorged(w http.ResponseWriter, r *http.Request) {
	var req domainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	reg := a.Registry(req.DomainID)
	inclusion := a.Inclusion(req.DomainID)
	if reg == nil || inclusion == nil {
		writeError(w, http.StatusNotFound, errUnknownDomain(req.DomainID))
		return
	}

	ctx := r.Context()
	reprocessed := 0
	for _, tx := range reg.Reorged() {
		if err := inclusion.Reprocess(ctx, tx); err != nil {
			if a.Log != nil {
				a.Log.Error("reprocess reorged transaction failed",
					logging.Field{Key: "tx_uuid", Value: tx.UUID},
					logging.Field{Key: "error", Value: err.Error()},
				)
			}
			continue
		}
		reprocessed++
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reprocessed": reprocessed})
}

func (a *AdminServer) handleListRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"rules": a.GasPolicy.Rules()})
}

func (a *AdminServer) handleAddRule(w http.ResponseWriter, r *http.Request) {
	var rule gaspolicy.Rule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	a.GasPolicy.AddRule(rule)
	writeJSON(w, http.StatusCreated, map[string]interface{}{"rules": a.GasPolicy.Rules()})
}

func (a *AdminServer) handleRemoveRule(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if !a.GasPolicy.RemoveRule(index) {
		writeError(w, http.StatusNotFound, errRuleNotFound(index))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *AdminServer) handleListInsertions(w http.ResponseWriter, r *http.Request) {
	domain, from, to, err := parseInsertionRangeQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	db := a.OriginDBFor(domain)
	if db == nil {
		writeError(w, http.StatusNotFound, errUnknownDomain(domain))
		return
	}
	insertions, err := db.MerkleInsertionsInRange(from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"insertions": insertions})
}

type seedInsertionRequest struct {
	DomainID types.Domain             `json:"domain_id"`
	Index    uint32                   `json:"index"`
	MessageID string                  `json:"message_id"`
}

// handleSeedInsertion writes a merkle insertion record directly -- a debug
// affordance for backfilling a fresh deployment's tree from a trusted
// out-of-band source, never used in the steady-state ingestion path.
func (a *AdminServer) handleSeedInsertion(w http.ResponseWriter, r *http.Request) {
	var req seedInsertionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	decoded, err := hex.DecodeString(trimHexPrefix(req.MessageID))
	if err != nil || len(decoded) != 32 {
		writeError(w, http.StatusBadRequest, errInvalidHex(req.MessageID))
		return
	}
	db := a.OriginDBFor(req.DomainID)
	if db == nil {
		writeError(w, http.StatusNotFound, errUnknownDomain(req.DomainID))
		return
	}
	insertion := &types.MerkleTreeInsertion{LeafIndex: req.Index, MessageID: common.BytesToHash(decoded)}
	if err := db.PutMerkleInsertion(req.Index, insertion); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (a *AdminServer) handleNotImplemented(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "no adapter configured for this surface"})
}
