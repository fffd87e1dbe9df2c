package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  string
	err   error
}

func (f *fakePutter) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	if params.Body != nil {
		b, _ := io.ReadAll(params.Body)
		f.body = string(b)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3AvatarStore_PutAvatar(t *testing.T) {
	putter := &fakePutter{}
	store := NewS3AvatarStoreWithClient(putter, S3Config{
		Endpoint: "http://minio:9000/",
		Bucket:   "avatars-bucket",
	})

	url, err := store.PutAvatar(context.Background(), "avatars/u1/a.png", strings.NewReader("png"), 3, "image/png")
	require.NoError(t, err)

	assert.Equal(t, "http://minio:9000/avatars-bucket/avatars/u1/a.png", url)
	assert.Equal(t, "avatars-bucket", aws.ToString(putter.input.Bucket))
	assert.Equal(t, "avatars/u1/a.png", aws.ToString(putter.input.Key))
	assert.Equal(t, "image/png", aws.ToString(putter.input.ContentType))
	assert.Equal(t, int64(3), aws.ToInt64(putter.input.ContentLength))
	assert.Equal(t, "png", putter.body)
}

func TestS3AvatarStore_PublicBaseURL(t *testing.T) {
	store := NewS3AvatarStoreWithClient(&fakePutter{}, S3Config{
		Bucket:        "b",
		PublicBaseURL: "https://cdn.example.com/",
	})

	url, err := store.PutAvatar(context.Background(), "k.jpg", strings.NewReader("x"), 1, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/k.jpg", url)
}

func TestS3AvatarStore_PutFailure(t *testing.T) {
	store := NewS3AvatarStoreWithClient(&fakePutter{err: errors.New("boom")}, S3Config{Bucket: "b", Region: "us-east-1"})

	_, err := store.PutAvatar(context.Background(), "k.png", strings.NewReader("x"), 1, "image/png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "k.png")
}
