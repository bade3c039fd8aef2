package aws_client

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/opentracing/opentracing-go"

	"github.com/kotsworld/mailsync/internal/tracing"
)

type S3Client interface {
	Upload(ctx context.Context, uploadContainer s3manager.UploadInput) error
	PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

type s3Client struct {
	Uploader *s3manager.Uploader
	Service  *s3.S3
	Config   *aws.Config
	Session  *session.Session
}

func NewS3Client(config *aws.Config) S3Client {
	s := session.Must(session.NewSession(config))
	return &s3Client{
		Uploader: s3manager.NewUploader(s),
		Service:  s3.New(s),
		Config:   config,
		Session:  s,
	}
}

func (s *s3Client) Upload(ctx context.Context, uploadContainer s3manager.UploadInput) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "s3Client.Upload")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	_, err := s.Uploader.UploadWithContext(ctx, &uploadContainer)
	if err != nil {
		tracing.TraceErr(span, err)
	}
	return err
}

func (s *s3Client) PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "s3Client.PresignGet")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	req, _ := s.Service.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	url, err := req.Presign(ttl)
	if err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}
	return url, nil
}
