package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/OFFIS-RIT/threatmap/internal/util"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("object not found")

// S3Params configures the S3 client and the bucket artifacts go to.
// Endpoint selects an S3 compatible store such as MinIO and switches the
// client to path style addressing.
type S3Params struct {
	Bucket    string
	Prefix    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

// S3ParamsFromEnv reads the AWS_* variables.
func S3ParamsFromEnv() S3Params {
	return S3Params{
		Bucket:    util.GetEnvString("AWS_BUCKET", "threatmap"),
		Prefix:    util.GetEnvString("AWS_PREFIX", ""),
		Endpoint:  util.GetEnvString("AWS_ENDPOINT", ""),
		Region:    util.GetEnvString("AWS_REGION", "us-east-1"),
		AccessKey: util.GetEnvString("AWS_ACCESS_KEY", ""),
		SecretKey: util.GetEnvString("AWS_SECRET_KEY", ""),
	}
}

func NewS3Client(ctx context.Context, params S3Params) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(params.Region),
	}
	if params.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			params.AccessKey,
			params.SecretKey,
			"",
		)))
	}
	if params.Endpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(params.Endpoint))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if params.Endpoint != "" {
			o.UsePathStyle = true
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		}
	})
	return client, nil
}

// Publisher uploads pipeline artifacts to a bucket under a key prefix.
type Publisher struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewPublisher(client *s3.Client, bucket, prefix string) *Publisher {
	return &Publisher{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// Key returns the object key for name.
func (p *Publisher) Key(name string) string {
	name = strings.TrimPrefix(name, "/")
	if p.prefix == "" {
		return name
	}
	return p.prefix + "/" + name
}

// PutFile uploads the local file at path as name and returns its object key.
func (p *Publisher) PutFile(ctx context.Context, path, name string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	key := p.Key(name)
	input := &s3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
		Body:   f,
	}
	if mimeType := mime.TypeByExtension(filepath.Ext(name)); mimeType != "" {
		input.ContentType = aws.String(mimeType)
	}
	if _, err := p.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload file to S3: %w", err)
	}

	return key, nil
}

// GetFile downloads the object stored as name.
func (p *Publisher) GetFile(ctx context.Context, name string) ([]byte, error) {
	key := p.Key(name)
	result, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%w: s3://%s/%s", ErrNotFound, p.bucket, key)
		}
		return nil, fmt.Errorf("failed to get file from S3: %w", err)
	}
	defer result.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, result.Body); err != nil {
		return nil, fmt.Errorf("failed to read file contents: %w", err)
	}
	return buf.Bytes(), nil
}

// ListFiles returns every key below the publisher prefix.
func (p *Publisher) ListFiles(ctx context.Context) ([]string, error) {
	var keys []string
	listInput := &s3.ListObjectsV2Input{
		Bucket: aws.String(p.bucket),
	}
	if p.prefix != "" {
		listInput.Prefix = aws.String(p.prefix + "/")
	}

	for {
		listOutput, err := p.client.ListObjectsV2(ctx, listInput)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects with prefix %s: %w", p.prefix, err)
		}

		for _, obj := range listOutput.Contents {
			if obj.Key != nil {
				keys = append(keys, *obj.Key)
			}
		}

		if listOutput.IsTruncated != nil && *listOutput.IsTruncated {
			listInput.ContinuationToken = listOutput.NextContinuationToken
		} else {
			break
		}
	}

	return keys, nil
}
