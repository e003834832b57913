// Package storage archives exported CV documents in S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/jonathan/spanisami/internal/config"
)

// ObjectPutter is the subset of the S3 client used by the archive.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archive uploads CV PDFs under {prefix}/{profileID}/{timestamp}-{filename}.
type Archive struct {
	client ObjectPutter
	bucket string
	prefix string
	now    func() time.Time
}

// NewArchive wraps an existing client.
func NewArchive(client ObjectPutter, bucket, prefix string) *Archive {
	return &Archive{client: client, bucket: bucket, prefix: prefix, now: time.Now}
}

// NewS3Archive builds an S3 client from cfg. A custom endpoint (such as
// Cloudflare R2) uses path-style addressing.
func NewS3Archive(ctx context.Context, cfg config.S3Config) (*Archive, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("s3 archive: bucket is not configured")
	}

	region := cfg.Region
	if region == "" {
		region = "auto"
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3 archive: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewArchive(client, cfg.Bucket, cfg.Prefix), nil
}

// Key returns the object key for a CV upload.
func (a *Archive) Key(profileID, filename string) string {
	if profileID == "" {
		profileID = "anonymous"
	}
	stamp := a.now().UTC().Format("20060102T150405Z")
	return path.Join(a.prefix, "cvs", profileID, stamp+"-"+filename)
}

// StoreCV uploads a rendered PDF and returns its object key.
func (a *Archive) StoreCV(ctx context.Context, profileID, filename string, pdf []byte) (string, error) {
	key := a.Key(profileID, filename)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(pdf),
		ContentType: aws.String("application/pdf"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to put object %s: %w", key, err)
	}
	log.Printf("[storage] archived %s (%d bytes)", key, len(pdf))
	return key, nil
}
