// Package storage archives the raw PDF statement blobs this system ingests
// (spec.md §3's BankStatement.ObjectKey) to S3-compatible object storage, so
// a statement can be re-parsed or manually audited after the email that
// carried it is gone.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/sebascrugu/finanzas-tracker-go/internal/config"
)

// PDFArchive persists and retrieves the raw PDF blobs a BankStatement points
// at via ObjectKey.
type PDFArchive interface {
	Upload(ctx context.Context, objectKey string, data io.Reader, size int64) error
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)
	Delete(ctx context.Context, objectKey string) error
	PresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error)
}

// S3PDFArchive implements PDFArchive using AWS S3 (or a MinIO/LocalStack
// endpoint override), adapted from the teacher's S3ImageRepository for raw
// statement PDFs instead of user avatar images.
type S3PDFArchive struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
}

// NewS3PDFArchive creates an archive client and verifies bucket access.
func NewS3PDFArchive(ctx context.Context, cfg config.StorageConfig) (*S3PDFArchive, error) {
	opts := []func(*awsconfig.LoadOptions) error{}

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var client *s3.Client
	if cfg.Endpoint != "" {
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(schemeFor(cfg) + cfg.Endpoint)
			o.UsePathStyle = true // required for MinIO
		})
	} else {
		client = s3.NewFromConfig(awsCfg)
	}

	archive := &S3PDFArchive{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.BucketName,
	}

	if err := archive.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return archive, nil
}

func schemeFor(cfg config.StorageConfig) string {
	if cfg.UseSSL {
		return "https://"
	}
	return "http://"
}

func (r *S3PDFArchive) ensureBucket(ctx context.Context) error {
	_, err := r.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(r.bucket)})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket (may be permission denied): %w", err)
	}

	_, err = r.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(r.bucket)})
	if err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

func (r *S3PDFArchive) Upload(ctx context.Context, objectKey string, data io.Reader, size int64) error {
	var body io.Reader = data
	if size < 0 {
		buf, err := io.ReadAll(data)
		if err != nil {
			return fmt.Errorf("failed to read pdf data: %w", err)
		}
		size = int64(len(buf))
		body = bytes.NewReader(buf)
	}

	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.bucket),
		Key:           aws.String(objectKey),
		Body:          body,
		ContentType:   aws.String("application/pdf"),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return fmt.Errorf("failed to upload statement pdf: %w", err)
	}
	return nil
}

func (r *S3PDFArchive) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download statement pdf: %w", err)
	}
	return out.Body, nil
}

func (r *S3PDFArchive) Delete(ctx context.Context, objectKey string) error {
	_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return fmt.Errorf("failed to delete statement pdf: %w", err)
	}
	return nil
}

func (r *S3PDFArchive) PresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	req, err := r.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(objectKey),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return req.URL, nil
}
