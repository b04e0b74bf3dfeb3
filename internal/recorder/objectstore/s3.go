// Package objectstore is the recorder's write path to durable storage: a
// thin wrapper over S3's PutObject, addressed by a date-partitioned key so
// a directory listing in the console reads the same way the exported
// conversation-history tree would on a local filesystem.
package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Putter is the subset of *s3.Client this package needs, mirrored as an
// interface so tests can substitute a fake instead of a real bucket.
type Putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store writes conversation-export artifacts to a single S3 bucket.
type Store struct {
	client Putter
	bucket string
}

// New wraps client as a Store addressing bucket.
func New(client Putter, bucket string) *Store {
	return &Store{client: client, bucket: bucket}
}

// Put uploads body at key with the given content type and metadata,
// overwriting any existing object at that key — exports are deterministic
// by conversation id and timestamp, so a retried export after a transient
// failure is expected to land on the same key.
func (s *Store) Put(ctx context.Context, key, contentType string, body []byte, metadata map[string]string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
		Metadata:    metadata,
	})
	if err != nil {
		return fmt.Errorf("objectstore: put %s: %w", key, err)
	}
	return nil
}
