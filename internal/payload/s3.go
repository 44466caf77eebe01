package payload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"kv-go/internal/config"
	"kv-go/internal/kv"
)

// S3Store keeps imported files as objects under <prefix><storedName> in a
// bucket. Uploads and downloads go through the transfer manager so large
// files are split into parts.
type S3Store struct {
	client     *s3.Client
	uploader   *manager.Uploader
	downloader *manager.Downloader
	bucket     string
	prefix     string
}

// NewS3Store creates a store from the payload config. Credentials come from
// the config when an access key is set, otherwise from the default AWS chain.
func NewS3Store(ctx context.Context, cfg config.PayloadConfig) (*S3Store, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 payload store requires s3_bucket to be set")
	}

	client, err := NewS3Client(ctx, cfg.S3Region, cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey)
	if err != nil {
		return nil, err
	}

	return &S3Store{
		client:     client,
		uploader:   manager.NewUploader(client),
		downloader: manager.NewDownloader(client),
		bucket:     cfg.S3Bucket,
		prefix:     cfg.S3Prefix,
	}, nil
}

// NewS3Client builds an S3 client. endpoint, accessKey and secretKey are
// optional.
func NewS3Client(ctx context.Context, region, endpoint, accessKey, secretKey string) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if accessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func (s *S3Store) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// Put uploads the payload. It fails with kv.ErrPayloadExists if an object
// with the same key is already present.
func (s *S3Store) Put(name string, r io.Reader, size int64) error {
	if err := validateName(name); err != nil {
		return err
	}
	ctx := context.Background()
	key := s.key(name)

	exists, err := s.exists(ctx, key)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%s: %w", name, kv.ErrPayloadExists)
	}

	counter := &countingReader{r: r}
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        counter,
		IfNoneMatch: aws.String("*"),
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	if counter.n != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, counter.n)
	}
	return nil
}

// Get downloads the payload stored under name and writes it to w.
func (s *S3Store) Get(name string, w io.Writer) error {
	if err := validateName(name); err != nil {
		return err
	}
	key := s.key(name)

	buf := manager.NewWriteAtBuffer(nil)
	_, err := s.downloader.Download(context.Background(), buf, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return fmt.Errorf("payload not found: %s", name)
		}
		return fmt.Errorf("downloading %s: %w", key, err)
	}

	if _, err := io.Copy(w, bytes.NewReader(buf.Bytes())); err != nil {
		return fmt.Errorf("failed to write payload: %w", err)
	}
	return nil
}

// Delete removes the object stored under name. S3 treats deleting a missing
// key as success.
func (s *S3Store) Delete(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	key := s.key(name)

	_, err := s.client.DeleteObject(context.Background(), &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// ValidateSetup verifies that the bucket is reachable with the configured
// credentials.
func (s *S3Store) ValidateSetup() error {
	_, err := s.client.HeadBucket(context.Background(), &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("s3 bucket %s not accessible: %w", s.bucket, err)
	}
	return nil
}

func (s *S3Store) exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return false, nil
	}
	return false, fmt.Errorf("checking %s: %w", key, err)
}

// countingReader records how many bytes the uploader consumed.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// Compile-time check that S3Store implements kv.PayloadStore.
var _ kv.PayloadStore = (*S3Store)(nil)
