package objectstore

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	lastInput *s3.PutObjectInput
	err       error
}

func (f *fakePutter) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastInput = params
	return &s3.PutObjectOutput{}, nil
}

func TestPut_SendsBucketKeyAndMetadata(t *testing.T) {
	fake := &fakePutter{}
	store := New(fake, "conversation-history")

	err := store.Put(context.Background(), "2026/06/01/abc/conversation.json", "application/json",
		[]byte(`{"ok":true}`), map[string]string{"conversation-id": "abc"})

	require.NoError(t, err)
	require.NotNil(t, fake.lastInput)
	assert.Equal(t, "conversation-history", *fake.lastInput.Bucket)
	assert.Equal(t, "2026/06/01/abc/conversation.json", *fake.lastInput.Key)
	assert.Equal(t, "abc", fake.lastInput.Metadata["conversation-id"])
}

func TestPut_WrapsUnderlyingError(t *testing.T) {
	fake := &fakePutter{err: assert.AnError}
	store := New(fake, "bucket")

	err := store.Put(context.Background(), "key", "application/json", []byte("{}"), nil)

	assert.Error(t, err)
}
