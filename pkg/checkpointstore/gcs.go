// Copyright 2025 Interlayer Labs

package checkpointstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"cloud.google.com/go/storage"
)

// gcsStore reads checkpoint objects from gs://bucket/prefix.
type gcsStore struct {
	client *storage.Client
	bucket string
	prefix string
}

func newGCSStore(ctx context.Context, u *url.URL) (*gcsStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("checkpointstore: new gcs client: %w", err)
	}
	return &gcsStore{
		client: client,
		bucket: u.Host,
		prefix: strings.TrimPrefix(u.Path, "/"),
	}, nil
}

func (g *gcsStore) getObject(ctx context.Context, name string) ([]byte, error) {
	key := name
	if g.prefix != "" {
		key = g.prefix + "/" + name
	}
	reader, err := g.client.Bucket(g.bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("checkpointstore: gcs get %s/%s: %w", g.bucket, key, err)
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

func (g *gcsStore) LatestIndex(ctx context.Context) (uint32, error) {
	raw, err := g.getObject(ctx, "latest_index.json")
	if err != nil {
		return 0, err
	}
	return parseLatestIndex(raw)
}

func (g *gcsStore) Checkpoint(ctx context.Context, index uint32) ([]byte, error) {
	return g.getObject(ctx, checkpointObjectName(index))
}

func (g *gcsStore) Announcement(ctx context.Context) ([]byte, error) {
	return g.getObject(ctx, "announcement.json")
}
