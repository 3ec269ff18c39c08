package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/cenkalti/backoff/v4"

	"github.com/brainydb/brainy/errs"
)

// S3Client is the subset of the AWS SDK's S3 client this adapter calls,
// narrowed so tests can supply a fake without standing up a real bucket.
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	PutBucketLifecycleConfiguration(ctx context.Context, params *s3.PutBucketLifecycleConfigurationInput, optFns ...func(*s3.Options)) (*s3.PutBucketLifecycleConfigurationOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
}

// S3Adapter stores blobs in an S3 (or S3-compatible, e.g. Cloudflare R2)
// bucket. Retries transient failures with exponential backoff (spec §4.1,
// §6 batch concurrency caps).
type S3Adapter struct {
	client      S3Client
	uploader    *manager.Uploader
	bucket      string
	concurrency int
}

// NewS3Adapter builds an S3-backed adapter. endpoint is empty for AWS S3
// itself, or set to an R2/MinIO-compatible custom endpoint.
func NewS3Adapter(ctx context.Context, region, endpoint, accessKeyID, secretAccessKey, bucket string, concurrency int) (*S3Adapter, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, "")),
		awsconfig.WithRetryer(func() aws.Retryer {
			return retry.AddWithMaxAttempts(retry.NewStandard(), 5)
		}),
	)
	if err != nil {
		return nil, errs.Storagef(true, err, "load AWS config")
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	if concurrency <= 0 {
		concurrency = 150
	}

	return &S3Adapter{
		client:      client,
		uploader:    manager.NewUploader(client),
		bucket:      bucket,
		concurrency: concurrency,
	}, nil
}

// NewS3AdapterWithClient injects a preconstructed client, for tests and for
// reusing a client across adapters (e.g. R2 sharing config with S3).
func NewS3AdapterWithClient(client S3Client, bucket string, concurrency int) *S3Adapter {
	if concurrency <= 0 {
		concurrency = 150
	}
	return &S3Adapter{client: client, bucket: bucket, concurrency: concurrency}
}

func isNoSuchKey(err error) bool {
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	return strings.Contains(err.Error(), "NoSuchKey") || strings.Contains(err.Error(), "NotFound")
}

func (a *S3Adapter) Read(ctx context.Context, path string) ([]byte, error) {
	if path == "" {
		return nil, errNilAdapterPath
	}
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(a.bucket), Key: aws.String(path)})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, errs.NotFoundf("no object at %q", path)
		}
		return nil, errs.Storagef(true, err, "get object %q", path)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errs.Storagef(true, err, "read body %q", path)
	}
	return data, nil
}

func (a *S3Adapter) Write(ctx context.Context, path string, data []byte) error {
	if path == "" {
		return errNilAdapterPath
	}
	op := func() error {
		_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(a.bucket),
			Key:    aws.String(path),
			Body:   bytes.NewReader(data),
		})
		return err
	}
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4), ctx)); err != nil {
		return errs.Storagef(true, err, "put object %q", path)
	}
	return nil
}

func (a *S3Adapter) Delete(ctx context.Context, path string) error {
	_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(a.bucket), Key: aws.String(path)})
	if err != nil && !isNoSuchKey(err) {
		return errs.Storagef(true, err, "delete object %q", path)
	}
	return nil
}

func (a *S3Adapter) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var out []ObjectInfo
	var token *string
	for {
		resp, err := a.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(a.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, errs.Storagef(true, err, "list %q", prefix)
		}
		for _, obj := range resp.Contents {
			out = append(out, ObjectInfo{Path: aws.ToString(obj.Key), Size: aws.ToInt64(obj.Size)})
		}
		if !aws.ToBool(resp.IsTruncated) {
			break
		}
		token = resp.NextContinuationToken
	}
	return out, nil
}

func (a *S3Adapter) ReadBatch(ctx context.Context, paths []string) (map[string][]byte, error) {
	return boundedEach(ctx, paths, a.Concurrency(), func(ctx context.Context, path string) ([]byte, bool, error) {
		data, err := a.Read(ctx, path)
		if err == nil {
			return data, true, nil
		}
		if errs.IsTransientStorage(err) {
			return nil, false, err
		}
		return nil, false, nil
	})
}

func (a *S3Adapter) DeleteBatch(ctx context.Context, paths []string) error {
	_, err := boundedEach(ctx, paths, a.Concurrency(), func(ctx context.Context, path string) ([]byte, bool, error) {
		return nil, false, a.Delete(ctx, path)
	})
	return err
}

func (a *S3Adapter) Concurrency() int { return a.concurrency }

// SetLifecyclePolicy configures an age-based transition to tier for objects
// under prefix (spec §12 tiered storage for cold shards).
func (a *S3Adapter) SetLifecyclePolicy(ctx context.Context, prefix string, transitionAfterDays int, tier string) error {
	_, err := a.client.PutBucketLifecycleConfiguration(ctx, &s3.PutBucketLifecycleConfigurationInput{
		Bucket: aws.String(a.bucket),
		LifecycleConfiguration: &s3types.BucketLifecycleConfiguration{
			Rules: []s3types.LifecycleRule{
				{
					ID:     aws.String("brainy-cold-tier-" + prefix),
					Status: s3types.ExpirationStatusEnabled,
					Filter: &s3types.LifecycleRuleFilter{Prefix: aws.String(prefix)},
					Transitions: []s3types.Transition{
						{Days: aws.Int32(int32(transitionAfterDays)), StorageClass: s3types.TransitionStorageClass(tier)},
					},
				},
			},
		},
	})
	if err != nil {
		return errs.Storagef(true, err, "set lifecycle policy for %q", prefix)
	}
	return nil
}

// ChangeTier re-copies path onto itself with a new storage class, the
// standard S3 idiom for an immediate tier change.
func (a *S3Adapter) ChangeTier(ctx context.Context, path string, tier string) error {
	_, err := a.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:       aws.String(a.bucket),
		Key:          aws.String(path),
		CopySource:   aws.String(a.bucket + "/" + path),
		StorageClass: s3types.StorageClass(tier),
	})
	if err != nil {
		return errs.Storagef(true, err, "change tier for %q", path)
	}
	return nil
}
