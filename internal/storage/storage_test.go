package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestComputeKey(t *testing.T) {
	hash := "abcdef1234567890"

	assert.Equal(t, "users_images/ab/cd/abcdef1234567890.png", AvatarKey(hash, ".png"))
	assert.Equal(t, "x/ab", ComputeKey(DefaultPathConfig("x"), "ab", ""))
	assert.Equal(t, "x/abc/abcdef", ComputeKey(PathConfig{Prefix: "x", ShardLevels: 1, ShardWidth: 3}, "abcdef", ""))
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key     string
		wantErr bool
	}{
		{"users_images/ab/cd/x.png", false},
		{"", true},
		{"/etc/passwd", true},
		{"../secret", true},
		{"a/../../b", true},
		{"a//b", true},
		{`a\b`, true},
	}
	for _, tt := range tests {
		err := ValidateKey(tt.key)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidKey, tt.key)
		} else {
			assert.NoError(t, err, tt.key)
		}
	}
}

func TestFilesystemBackend(t *testing.T) {
	root := t.TempDir()
	backend, err := NewFilesystemBackend(root, "/media", zerolog.Nop())
	require.NoError(t, err)
	ctx := context.Background()

	key := AvatarKey("0123456789abcdef", ".png")
	data := []byte("png-bytes")
	require.NoError(t, backend.Put(ctx, key, bytes.NewReader(data), int64(len(data)), "image/png"))

	stored, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(key)))
	require.NoError(t, err)
	assert.Equal(t, data, stored)
	assert.Equal(t, "/media/"+key, backend.URL(key))

	err = backend.Put(ctx, "users_images/short.png", bytes.NewReader(data), 100, "image/png")
	assert.ErrorContains(t, err, "size mismatch")
	_, statErr := os.Stat(filepath.Join(root, "users_images", "short.png"))
	assert.True(t, os.IsNotExist(statErr))

	require.NoError(t, backend.Delete(ctx, key))
	require.NoError(t, backend.Delete(ctx, key))

	assert.ErrorIs(t, backend.Put(ctx, "../escape", bytes.NewReader(nil), 0, ""), ErrInvalidKey)
}

type mockS3 struct {
	mock.Mock
}

func (m *mockS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.PutObjectOutput), args.Error(1)
}

func (m *mockS3) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.DeleteObjectOutput), args.Error(1)
}

func TestS3Backend_PutAndDelete(t *testing.T) {
	client := new(mockS3)
	backend := NewS3Backend(client, S3Config{Bucket: "media", Region: "us-east-1"}, zerolog.Nop())
	ctx := context.Background()
	key := AvatarKey("0123456789abcdef", ".jpg")

	client.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		body, _ := io.ReadAll(in.Body)
		return aws.ToString(in.Bucket) == "media" &&
			aws.ToString(in.Key) == key &&
			aws.ToString(in.ContentType) == "image/jpeg" &&
			aws.ToInt64(in.ContentLength) == 4 &&
			string(body) == "jpeg"
	})).Return(&s3.PutObjectOutput{}, nil)
	client.On("DeleteObject", mock.Anything, mock.Anything).Return(nil, errors.New("denied"))

	require.NoError(t, backend.Put(ctx, key, bytes.NewReader([]byte("jpeg")), 4, "image/jpeg"))
	assert.ErrorContains(t, backend.Delete(ctx, key), "denied")
	client.AssertExpectations(t)
}

func TestS3Backend_URL(t *testing.T) {
	tests := []struct {
		name string
		cfg  S3Config
		want string
	}{
		{"public url", S3Config{Bucket: "b", PublicURL: "https://cdn.example.com/"}, "https://cdn.example.com/k.png"},
		{"custom endpoint", S3Config{Bucket: "b", Endpoint: "http://localhost:9000"}, "http://localhost:9000/b/k.png"},
		{"aws", S3Config{Bucket: "b", Region: "eu-west-1"}, "https://b.s3.eu-west-1.amazonaws.com/k.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := NewS3Backend(new(mockS3), tt.cfg, zerolog.Nop())
			assert.Equal(t, tt.want, backend.URL("k.png"))
		})
	}
}
