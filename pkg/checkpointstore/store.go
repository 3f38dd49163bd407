// Copyright 2025 Interlayer Labs
//
// Package checkpointstore reads the checkpoint files validators publish --
// latest_index.json, checkpoint_{index}.json, announcement.json -- from
// file://, s3:// and gs:// storage locations.
package checkpointstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Store is the read surface the multisig metadata sub-builder uses to poll
// a validator's published checkpoints.
type Store interface {
	LatestIndex(ctx context.Context) (uint32, error)
	Checkpoint(ctx context.Context, index uint32) ([]byte, error)
	Announcement(ctx context.Context) ([]byte, error)
}

type latestIndexDoc struct {
	Value uint32 `json:"value"`
}

// Open dispatches on the storage location's URI scheme to the matching
// backend -- file://, s3://bucket/region/prefix, gs://bucket/prefix.
func Open(ctx context.Context, storageLocation string) (Store, error) {
	u, err := url.Parse(storageLocation)
	if err != nil {
		return nil, fmt.Errorf("checkpointstore: parse storage location %q: %w", storageLocation, err)
	}
	switch u.Scheme {
	case "file":
		return newFileStore(u.Path), nil
	case "s3":
		return newS3Store(ctx, u)
	case "gs":
		return newGCSStore(ctx, u)
	default:
		return nil, fmt.Errorf("checkpointstore: unsupported scheme %q in %q", u.Scheme, storageLocation)
	}
}

func parseLatestIndex(raw []byte) (uint32, error) {
	var doc latestIndexDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return 0, fmt.Errorf("checkpointstore: parse latest_index.json: %w", err)
	}
	return doc.Value, nil
}

func checkpointObjectName(index uint32) string {
	return fmt.Sprintf("checkpoint_%d.json", index)
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "not found") || strings.Contains(err.Error(), "NoSuchKey") || strings.Contains(err.Error(), "no such file")
}
