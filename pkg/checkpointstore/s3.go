// Copyright 2025 Interlayer Labs

package checkpointstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// s3Store reads checkpoint objects from s3://bucket/region/prefix, the
// layout the spec names for validator-published checkpoints.
type s3Store struct {
	client *s3.S3
	bucket string
	prefix string
}

func newS3Store(ctx context.Context, u *url.URL) (*s3Store, error) {
	bucket := u.Host
	parts := strings.SplitN(strings.TrimPrefix(u.Path, "/"), "/", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("checkpointstore: s3 location must be s3://bucket/region/prefix, got %q", u.String())
	}
	region, prefix := parts[0], parts[1]

	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, fmt.Errorf("checkpointstore: new aws session: %w", err)
	}
	return &s3Store{client: s3.New(sess), bucket: bucket, prefix: prefix}, nil
}

func (s *s3Store) getObject(key string) ([]byte, error) {
	out, err := s.client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + "/" + key),
	})
	if err != nil {
		return nil, fmt.Errorf("checkpointstore: s3 get %s/%s/%s: %w", s.bucket, s.prefix, key, err)
	}
	defer out.Body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, out.Body); err != nil {
		return nil, fmt.Errorf("checkpointstore: s3 read body: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *s3Store) LatestIndex(ctx context.Context) (uint32, error) {
	raw, err := s.getObject("latest_index.json")
	if err != nil {
		return 0, err
	}
	return parseLatestIndex(raw)
}

func (s *s3Store) Checkpoint(ctx context.Context, index uint32) ([]byte, error) {
	return s.getObject(checkpointObjectName(index))
}

func (s *s3Store) Announcement(ctx context.Context) ([]byte, error) {
	return s.getObject("announcement.json")
}
