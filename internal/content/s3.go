package content

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// S3Store stores content in an S3-compatible bucket (R2, minio), keyed by the
// content reference so the addressing stays content-derived like the IPFS
// backend.
type S3Store struct {
	client  *s3.Client
	bucket  string
	baseURL string
	log     *zap.Logger
}

func NewS3Store(ctx context.Context, endpoint, bucket, accessKeyID, secretKey, baseURL string, log *zap.Logger) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, secretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load s3 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	if baseURL == "" {
		baseURL = fmt.Sprintf("%s/%s", endpoint, bucket)
	}

	return &S3Store{client: client, bucket: bucket, baseURL: baseURL, log: log}, nil
}

func (s *S3Store) Upload(ctx context.Context, data []byte, meta Meta) (string, error) {
	ref, err := ComputeRef(data)
	if err != nil {
		return "", fmt.Errorf("compute ref: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(ref),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(meta.ContentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload: %w", err)
	}

	s.log.Debug("stored object", zap.String("ref", ref), zap.Int("size", len(data)))
	return ref, nil
}

func (s *S3Store) ResolveURL(ref string) string {
	if ref == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s", s.baseURL, ref)
}
