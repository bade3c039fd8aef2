package storage

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"

	"github.com/kotsworld/mailsync/config"
	"github.com/kotsworld/mailsync/services/storage/aws_client"
)

// NewS3StorageService creates an ObjectStorageService for AWS S3 or, when an endpoint is
// configured, an S3-compatible store such as Cloudflare R2.
func NewS3StorageService(cfg *config.S3StorageConfig) *ObjectStorageService {
	awsCfg := &aws.Config{
		Region:      aws.String(cfg.Region),
		Credentials: credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.AccessKeySecret, ""),
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}

	return NewStorageService(aws_client.NewS3Client(awsCfg), StorageConfig{
		BucketName: cfg.Bucket,
		Region:     cfg.Region,
		CDNDomain:  cfg.CDNDomain,
		Endpoint:   cfg.Endpoint,
	})
}
