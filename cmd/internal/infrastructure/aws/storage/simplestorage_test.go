package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = params
	f.body, _ = io.ReadAll(params.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Archive_Store(t *testing.T) {
	client := &fakeS3{}
	archive := NewS3ArchiveWithClient("company-uploads", client)

	key, err := archive.Store(context.Background(), []byte("CIN,Name\n"), "Companies.CSV")
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(key, PathUploads))
	require.True(t, strings.HasSuffix(key, ".csv"))
	require.Equal(t, "company-uploads", *client.input.Bucket)
	require.Equal(t, key, *client.input.Key)
	require.Equal(t, "Companies.CSV", client.input.Metadata["original-name"])
	require.Equal(t, "CIN,Name\n", string(client.body))
}

func TestS3Archive_StoreErrors(t *testing.T) {
	archive := NewS3ArchiveWithClient("company-uploads", &fakeS3{err: errors.New("access denied")})

	_, err := archive.Store(context.Background(), []byte("x"), "a.xlsx")
	require.EqualError(t, err, "access denied")

	_, err = archive.Store(context.Background(), []byte("x"), " ")
	require.Error(t, err)
}

func TestNewS3Archive_DisabledWithoutBucket(t *testing.T) {
	archive, err := NewS3Archive(context.Background(), "", "")
	require.NoError(t, err)

	key, err := archive.Store(context.Background(), []byte("x"), "a.xlsx")
	require.NoError(t, err)
	require.Empty(t, key)
}
