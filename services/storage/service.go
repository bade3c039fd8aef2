package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/kotsworld/mailsync/interfaces"
	mailsync_errors "github.com/kotsworld/mailsync/internal/errors"
	"github.com/kotsworld/mailsync/internal/tracing"
	"github.com/kotsworld/mailsync/services/storage/aws_client"
)

// ObjectStorageService implements StorageService using S3Client
type ObjectStorageService struct {
	client     aws_client.S3Client
	bucketName string
	region     string
	cdnDomain  string
	endpoint   string
}

type StorageConfig struct {
	BucketName string
	Region     string
	CDNDomain  string // Optional CDN domain for public URLs
	Endpoint   string
}

var _ interfaces.StorageService = (*ObjectStorageService)(nil)

func NewStorageService(client aws_client.S3Client, config StorageConfig) *ObjectStorageService {
	return &ObjectStorageService{
		client:     client,
		bucketName: config.BucketName,
		region:     config.Region,
		cdnDomain:  config.CDNDomain,
		endpoint:   strings.TrimSuffix(config.Endpoint, "/"),
	}
}

// Put stores data under key and returns the object URL.
func (s *ObjectStorageService) Put(ctx context.Context, data []byte, key, contentType string) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ObjectStorageService.Put")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("object.key", key)
	span.SetTag("object.size", len(data))

	if s.bucketName == "" {
		tracing.TraceErr(span, mailsync_errors.ErrStorageNotConfigured)
		return "", mailsync_errors.ErrStorageNotConfigured
	}

	uploadInput := s3manager.UploadInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	}

	if err := s.client.Upload(ctx, uploadInput); err != nil {
		tracing.TraceErr(span, err)
		return "", errors.Wrapf(err, "failed to upload %s", key)
	}

	return s.ObjectURL(key), nil
}

func (s *ObjectStorageService) Presign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ObjectStorageService.Presign")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("object.key", key)

	if s.bucketName == "" {
		tracing.TraceErr(span, mailsync_errors.ErrStorageNotConfigured)
		return "", mailsync_errors.ErrStorageNotConfigured
	}

	url, err := s.client.PresignGet(ctx, s.bucketName, key, ttl)
	if err != nil {
		tracing.TraceErr(span, err)
		return "", errors.Wrapf(err, "failed to presign %s", key)
	}
	return url, nil
}

// ObjectURL returns the public URL for the object
func (s *ObjectStorageService) ObjectURL(key string) string {
	if s.cdnDomain != "" {
		return "https://" + s.cdnDomain + "/" + key
	}
	if s.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucketName, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucketName, s.region, key)
}
