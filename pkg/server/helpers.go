// Copyright 2025 Interlayer Labs

package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/interlayer-labs/relayer-core/pkg/types"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func trimHexPrefix(s string) string {
	return strings.TrimPrefix(s, "0x")
}

func errInvalidHex(s string) error {
	return fmt.Errorf("invalid hex value %q", s)
}

func errUnknownDomain(domain types.Domain) error {
	return fmt.Errorf("no chain configured for domain %d", domain)
}

func errRuleNotFound(index int) error {
	return fmt.Errorf("no gas policy rule at index %d", index)
}

func parseInsertionRangeQuery(r *http.Request) (domain types.Domain, from, to uint32, err error) {
	q := r.URL.Query()
	domainRaw := q.Get("domain_id")
	d, err := strconv.ParseUint(domainRaw, 10, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid or missing domain_id: %w", err)
	}
	f, err := strconv.ParseUint(q.Get("from"), 10, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid or missing from: %w", err)
	}
	t, err := strconv.ParseUint(q.Get("to"), 10, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid or missing to: %w", err)
	}
	return types.Domain(d), uint32(f), uint32(t), nil
}
