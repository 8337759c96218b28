package storage

import (
	"bytes"
	"context"
	"errors"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const PathUploads = "uploads/"

// Archive keeps a copy of every uploaded spreadsheet.
type Archive interface {
	// Store saves data and returns the object key, empty if nothing was stored.
	Store(ctx context.Context, data []byte, fileName string) (string, error)
}

// PutObjectAPI is the part of the S3 client the archive uses.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Archive struct {
	bucket string
	client PutObjectAPI
}

// NewS3Archive builds the archive for bucket. With an empty bucket name
// archiving is disabled and a NopArchive is returned.
func NewS3Archive(ctx context.Context, bucket, region string) (Archive, error) {
	if bucket == "" {
		return NopArchive{}, nil
	}

	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return NewS3ArchiveWithClient(bucket, s3.NewFromConfig(cfg)), nil
}

func NewS3ArchiveWithClient(bucket string, client PutObjectAPI) *S3Archive {
	return &S3Archive{bucket: bucket, client: client}
}

func (s *S3Archive) Store(ctx context.Context, data []byte, fileName string) (string, error) {
	if strings.TrimSpace(fileName) == "" {
		return "", errors.New("filename is empty")
	}

	key := ObjectKey(fileName)
	mimeType := mime.TypeByExtension(filepath.Ext(fileName))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: &mimeType,
		Metadata:    map[string]string{"original-name": filepath.Base(fileName)},
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", err
	}
	return key, nil
}

// ObjectKey names the object by a random UUID, keeping the extension.
func ObjectKey(fileName string) string {
	return PathUploads + uuid.NewString() + strings.ToLower(filepath.Ext(fileName))
}

type NopArchive struct{}

func (NopArchive) Store(context.Context, []byte, string) (string, error) {
	return "", nil
}
