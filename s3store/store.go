// Package s3store keeps reports in a version-enabled S3 bucket.
//
// Each report is one object key and every PutObject creates a new S3
// version, so revisions are the object's version history. Report metadata
// is stored as user metadata on each version.
package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/sagarc03/cannedreports"
)

// Config describes the bucket and how to reach it.
type Config struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"` // MinIO, LocalStack
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// API is the subset of *s3.Client the store uses.
type API interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutBucketVersioning(ctx context.Context, params *s3.PutBucketVersioningInput, optFns ...func(*s3.Options)) (*s3.PutBucketVersioningOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	ListObjectVersions(ctx context.Context, params *s3.ListObjectVersionsInput, optFns ...func(*s3.Options)) (*s3.ListObjectVersionsOutput, error)
}

// Store implements cannedreports.ReportStore on S3.
type Store struct {
	client API
	bucket string
	region string
}

var _ cannedreports.ReportStore = (*Store)(nil)

// New builds an S3 client from cfg. SDK retries are disabled: a failed call
// is reported to the caller as is.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 store: bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRetryMaxAttempts(1),
	}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3 store: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle || cfg.Endpoint != ""
	})

	return NewWithClient(client, cfg.Bucket, awsCfg.Region), nil
}

// NewWithClient returns a store using an existing client.
func NewWithClient(client API, bucket, region string) *Store {
	return &Store{client: client, bucket: bucket, region: region}
}

// EnsureCollection creates the bucket when it is missing and turns on
// versioning.
func (s *Store) EnsureCollection(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	switch {
	case err == nil:
	case isNotFound(err):
		slog.InfoContext(ctx, "creating bucket", "bucket", s.bucket, "region", s.region)
		input := &s3.CreateBucketInput{Bucket: aws.String(s.bucket)}
		if s.region != "" && s.region != "us-east-1" {
			input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
				LocationConstraint: types.BucketLocationConstraint(s.region),
			}
		}
		if _, err := s.client.CreateBucket(ctx, input); err != nil {
			return fmt.Errorf("ensure collection: create bucket: %w", err)
		}
	default:
		return fmt.Errorf("ensure collection: head bucket: %w", err)
	}

	_, err = s.client.PutBucketVersioning(ctx, &s3.PutBucketVersioningInput{
		Bucket: aws.String(s.bucket),
		VersioningConfiguration: &types.VersioningConfiguration{
			Status: types.BucketVersioningStatusEnabled,
		},
	})
	if err != nil {
		return fmt.Errorf("ensure collection: enable versioning: %w", err)
	}
	return nil
}

// PutObject uploads a new version. A body of unknown length is buffered
// first, since S3 needs the size up front.
func (s *Store) PutObject(ctx context.Context, key string, body io.Reader, meta cannedreports.ObjectMetadata) (cannedreports.PutResult, error) {
	size := meta.ContentLength
	if size <= 0 {
		data, err := io.ReadAll(body)
		if err != nil {
			return cannedreports.PutResult{}, fmt.Errorf("put object: read body: %w", err)
		}
		body = bytes.NewReader(data)
		size = int64(len(data))
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		Metadata:      encodeUserMetadata(meta.User),
	}
	if meta.ContentType != "" {
		input.ContentType = aws.String(meta.ContentType)
	}

	out, err := s.client.PutObject(ctx, input)
	if err != nil {
		return cannedreports.PutResult{}, fmt.Errorf("put object: %w", err)
	}

	return cannedreports.PutResult{VersionID: aws.ToString(out.VersionId), Size: size}, nil
}

func (s *Store) GetObjectMetadata(ctx context.Context, key, version string) (cannedreports.ObjectMetadata, error) {
	input := &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)}
	if version != "" {
		input.VersionId = aws.String(version)
	}

	out, err := s.client.HeadObject(ctx, input)
	if err != nil {
		return cannedreports.ObjectMetadata{}, wrapNotFound("get object metadata", err)
	}

	return cannedreports.ObjectMetadata{
		ContentType:   aws.ToString(out.ContentType),
		ContentLength: aws.ToInt64(out.ContentLength),
		User:          decodeUserMetadata(out.Metadata),
	}, nil
}

func (s *Store) GetObject(ctx context.Context, key, version string) (cannedreports.Object, error) {
	input := &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)}
	if version != "" {
		input.VersionId = aws.String(version)
	}

	out, err := s.client.GetObject(ctx, input)
	if err != nil {
		return cannedreports.Object{}, wrapNotFound("get object", err)
	}

	return cannedreports.Object{
		Metadata: cannedreports.ObjectMetadata{
			ContentType:   aws.ToString(out.ContentType),
			ContentLength: aws.ToInt64(out.ContentLength),
			User:          decodeUserMetadata(out.Metadata),
		},
		VersionID: aws.ToString(out.VersionId),
		Body:      out.Body,
	}, nil
}

// DeleteObject removes one version for good, or hides the whole object
// behind a delete marker when version is empty.
func (s *Store) DeleteObject(ctx context.Context, key, version string) error {
	input := &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)}
	if version != "" {
		input.VersionId = aws.String(version)
	}

	if _, err := s.client.DeleteObject(ctx, input); err != nil {
		return wrapNotFound("delete object", err)
	}
	return nil
}

// ListKeys lists every live object with its current metadata. User
// metadata is not part of a listing, so each key costs one HeadObject.
func (s *Store) ListKeys(ctx context.Context) ([]cannedreports.KeyMetadata, error) {
	keys := []cannedreports.KeyMetadata{}

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{Bucket: aws.String(s.bucket)})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list keys: %w", err)
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			meta, err := s.GetObjectMetadata(ctx, key, "")
			if errors.Is(err, cannedreports.ErrNotFound) {
				// Deleted between the listing and the head.
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("list keys: %w", err)
			}
			keys = append(keys, cannedreports.KeyMetadata{Key: key, Metadata: meta})
		}
	}

	return keys, nil
}

// ListVersions returns up to MaxVersionListing of the newest versions of
// key, oldest first. Versions of other keys sharing the prefix and delete
// markers are skipped.
func (s *Store) ListVersions(ctx context.Context, key string) ([]string, error) {
	input := &s3.ListObjectVersionsInput{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(key),
		MaxKeys: aws.Int32(cannedreports.MaxVersionListing),
	}

	versions := []string{}
	for {
		out, err := s.client.ListObjectVersions(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("list versions: %w", err)
		}

		for _, v := range out.Versions {
			if aws.ToString(v.Key) != key {
				continue
			}
			versions = append(versions, aws.ToString(v.VersionId))
			if len(versions) == cannedreports.MaxVersionListing {
				break
			}
		}

		if len(versions) == cannedreports.MaxVersionListing || !aws.ToBool(out.IsTruncated) ||
			aws.ToString(out.NextKeyMarker) != key {
			break
		}
		input.KeyMarker = out.NextKeyMarker
		input.VersionIdMarker = out.NextVersionIdMarker
	}

	slices.Reverse(versions)
	return versions, nil
}

var notFoundCodes = []string{"NotFound", "NoSuchKey", "NoSuchVersion"}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return true
	}

	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && slices.Contains(notFoundCodes, apiErr.ErrorCode())
}

func wrapNotFound(op string, err error) error {
	if isNotFound(err) {
		return fmt.Errorf("%s: %w", op, cannedreports.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// S3 user metadata travels in HTTP headers, so values are escaped to stay
// ASCII.
func encodeUserMetadata(user map[string]string) map[string]string {
	if len(user) == 0 {
		return nil
	}
	out := make(map[string]string, len(user))
	for k, v := range user {
		out[k] = url.QueryEscape(v)
	}
	return out
}

func decodeUserMetadata(meta map[string]string) map[string]string {
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		if decoded, err := url.QueryUnescape(v); err == nil {
			v = decoded
		}
		out[k] = v
	}
	return out
}
