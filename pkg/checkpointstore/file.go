// Copyright 2025 Interlayer Labs

package checkpointstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

type fileStore struct {
	dir string
}

func newFileStore(dir string) *fileStore {
	return &fileStore{dir: dir}
}

func (f *fileStore) read(name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(f.dir, name))
	if err != nil {
		return nil, fmt.Errorf("checkpointstore: read %s: %w", name, err)
	}
	return data, nil
}

func (f *fileStore) LatestIndex(ctx context.Context) (uint32, error) {
	raw, err := f.read("latest_index.json")
	if err != nil {
		return 0, err
	}
	return parseLatestIndex(raw)
}

func (f *fileStore) Checkpoint(ctx context.Context, index uint32) ([]byte, error) {
	return f.read(checkpointObjectName(index))
}

func (f *fileStore) Announcement(ctx context.Context) ([]byte, error) {
	return f.read("announcement.json")
}
