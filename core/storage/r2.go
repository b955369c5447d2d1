package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// R2Config holds configuration for Cloudflare R2 storage
type R2Config struct {
	AccessKeyID     string
	AccessKeySecret string
	AccountID       string
	Bucket          string
	BaseURL         string
	CDN             string
}

type r2Provider struct {
	client   *s3.Client
	bucket   string
	endpoint string
	baseURL  string
	cdn      string
}

func NewR2Provider(config R2Config) (Provider, error) {
	if config.AccountID == "" || config.Bucket == "" {
		return nil, fmt.Errorf("r2 account id and bucket are required")
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", config.AccountID)

	cfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			config.AccessKeyID,
			config.AccessKeySecret,
			"",
		)),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create R2 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String(endpoint)
	})

	return &r2Provider{
		client:   client,
		bucket:   config.Bucket,
		endpoint: endpoint,
		baseURL:  config.BaseURL,
		cdn:      config.CDN,
	}, nil
}

func (p *r2Provider) UploadBytes(ctx context.Context, data []byte, filename string, config UploadConfig) (*UploadResult, error) {
	uniqueFilename := generateUniqueFilename(filename)
	key := path.Join(config.UploadPath, uniqueFilename)

	// R2 has no ACLs; access is configured on the bucket
	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentTypeFor(filename, config.ContentType)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to R2: %w", err)
	}

	return &UploadResult{
		Filename: uniqueFilename,
		Path:     key,
		Size:     int64(len(data)),
	}, nil
}

func (p *r2Provider) Delete(ctx context.Context, path string) error {
	_, err := p.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(path),
	})
	return err
}

// GetURL prefers the CDN, then the public base URL, then the bucket endpoint
func (p *r2Provider) GetURL(path string) string {
	if p.cdn != "" {
		return joinURL(p.cdn, path)
	}
	if p.baseURL != "" {
		return joinURL(p.baseURL, path)
	}
	return fmt.Sprintf("%s/%s/%s", p.endpoint, p.bucket, path)
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
