// Copyright 2026 The ClaimGate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package content reads source passages from the content-addressed object
// store. Citations carry the CID of the document they came from; when the
// indexed chunk text is missing, the snippet is hydrated from here.
package content

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// maxSnippetBytes bounds how much of an object is read for one snippet.
const maxSnippetBytes = 4096

// Store reads objects by CID from one bucket.
type Store struct {
	client *minio.Client
	bucket string
}

// NewStore connects to the object store.
func NewStore(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Store, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("content store: %w", err)
	}
	return &Store{client: client, bucket: bucket}, nil
}

// Snippet reads the opening of the object stored under cid, trimmed to a
// display-sized excerpt.
func (s *Store) Snippet(ctx context.Context, cid string) (string, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, cid, minio.GetObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("content store get %s: %w", cid, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(io.LimitReader(obj, maxSnippetBytes))
	if err != nil {
		return "", fmt.Errorf("content store read %s: %w", cid, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Ping verifies the bucket is reachable.
func (s *Store) Ping(ctx context.Context) error {
	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("content store bucket %q does not exist", s.bucket)
	}
	return nil
}
