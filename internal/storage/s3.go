// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package storage publishes export archives to S3-compatible object storage.
// It wraps the AWS SDK v2 and uses path-style access (required by CEPH/Hetzner).
package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Config configures the export bucket.
type Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	URLExpiry time.Duration

	// HTTPClient overrides the SDK transport, mostly for tests.
	HTTPClient *http.Client
}

// Client stores archives in one private bucket and hands out pre-signed
// download links.
type Client struct {
	s3        *s3.Client
	presigner *s3.PresignClient
	bucket    string
	expiry    time.Duration
}

// New creates a storage client. Returns (nil, nil) if the endpoint or
// credentials are empty, allowing the app to start without storage.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, nil
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage: bucket name is required")
	}
	if cfg.URLExpiry <= 0 {
		cfg.URLExpiry = time.Hour
	}

	opts := s3.Options{
		Region:       cfg.Region,
		BaseEndpoint: aws.String(strings.TrimRight(cfg.Endpoint, "/")),
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.HTTPClient != nil {
		opts.HTTPClient = cfg.HTTPClient
	}
	s3Client := s3.New(opts)

	return &Client{
		s3:        s3Client,
		presigner: s3.NewPresignClient(s3Client),
		bucket:    cfg.Bucket,
		expiry:    cfg.URLExpiry,
	}, nil
}

// Bucket returns the export bucket name.
func (c *Client) Bucket() string { return c.bucket }

// ArchiveKey returns the object key for a user's archive. Keys are
// namespaced per user and unique per upload.
func ArchiveKey(userID uuid.UUID, fileName string) string {
	return path.Join("exports", userID.String(), uuid.NewString(), path.Base(fileName))
}

// Upload stores data under key with the given content type. The file name
// is set as the attachment name for browsers following the download link.
func (c *Client) Upload(ctx context.Context, key, contentType string, data []byte) error {
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(c.bucket),
		Key:                aws.String(key),
		Body:               bytes.NewReader(data),
		ContentLength:      aws.Int64(int64(len(data))),
		ContentType:        aws.String(contentType),
		ContentDisposition: aws.String(fmt.Sprintf("attachment; filename=%q", path.Base(key))),
	})
	if err != nil {
		return fmt.Errorf("s3 upload %s/%s: %w", c.bucket, key, err)
	}
	return nil
}

// Delete removes an object from the export bucket.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s/%s: %w", c.bucket, key, err)
	}
	return nil
}

// PresignedURL generates a pre-signed GET URL for key, valid for the
// configured expiry (S3 caps this at 7 days).
func (c *Client) PresignedURL(ctx context.Context, key string) (string, error) {
	req, err := c.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(c.expiry))
	if err != nil {
		return "", fmt.Errorf("s3 presign %s/%s: %w", c.bucket, key, err)
	}
	return req.URL, nil
}
