package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"mdvault/internal/config"
	"mdvault/internal/mdv"
)

// S3Vault stores records as objects under <prefix><set key>/<record key>.
type S3Vault struct {
	name     string
	bucket   string
	prefix   string
	client   *s3.Client
	uploader *manager.Uploader
}

// NewS3Vault builds an S3 client from cfg. Static credentials are used when
// both keys are set; otherwise the default AWS credential chain applies.
func NewS3Vault(ctx context.Context, cfg config.VaultConfig) (*S3Vault, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 vault requires s3_bucket to be set")
	}

	region := cfg.S3Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if cfg.S3AccessKeyID != "" && cfg.S3SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKeyID,
			cfg.S3SecretAccessKey,
			"",
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if cfg.S3Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, clientOpts...)
	return &S3Vault{
		name:     cfg.Name,
		bucket:   cfg.S3Bucket,
		prefix:   normalizePrefix(cfg.S3Prefix),
		client:   client,
		uploader: manager.NewUploader(client),
	}, nil
}

// PutRecord uploads a record. S3 object writes are atomic.
func (v *S3Vault) PutRecord(ctx context.Context, setKey, recordKey string, r io.Reader, size int64) error {
	if err := validateKeys(setKey, recordKey); err != nil {
		return err
	}
	_, err := v.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(v.bucket),
		Key:           aws.String(v.objectKey(setKey, recordKey)),
		Body:          r,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("uploading record: %w", err)
	}
	return nil
}

// GetRecord downloads a record into w.
func (v *S3Vault) GetRecord(ctx context.Context, setKey, recordKey string, w io.Writer) error {
	if err := validateKeys(setKey, recordKey); err != nil {
		return err
	}
	out, err := v.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(v.objectKey(setKey, recordKey)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return fmt.Errorf("record %s/%s: %w", setKey, recordKey, mdv.ErrNotFound)
		}
		return fmt.Errorf("downloading record: %w", err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("reading record body: %w", err)
	}
	return nil
}

// DeleteRecord removes a record. S3 deletes are idempotent, so existence is
// checked first to report missing records.
func (v *S3Vault) DeleteRecord(ctx context.Context, setKey, recordKey string) error {
	if err := validateKeys(setKey, recordKey); err != nil {
		return err
	}
	key := v.objectKey(setKey, recordKey)

	_, err := v.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return fmt.Errorf("record %s/%s: %w", setKey, recordKey, mdv.ErrNotFound)
		}
		return fmt.Errorf("checking record: %w", err)
	}

	if _, err := v.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}
	return nil
}

// ListRecords lists the record keys of a set in ascending order.
func (v *S3Vault) ListRecords(ctx context.Context, setKey string) ([]string, error) {
	if err := validateKeys(setKey); err != nil {
		return nil, err
	}
	setPrefix := v.prefix + setKey + "/"

	keys := []string{}
	paginator := s3.NewListObjectsV2Paginator(v.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(v.bucket),
		Prefix: aws.String(setPrefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing records: %w", err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), setPrefix)
			if name != "" && !strings.Contains(name, "/") {
				keys = append(keys, name)
			}
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// ListSets lists set keys using the "/" delimiter.
func (v *S3Vault) ListSets(ctx context.Context) ([]string, error) {
	sets := []string{}
	paginator := s3.NewListObjectsV2Paginator(v.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(v.bucket),
		Prefix:    aws.String(v.prefix),
		Delimiter: aws.String("/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing sets: %w", err)
		}
		for _, cp := range page.CommonPrefixes {
			set := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), v.prefix), "/")
			if set != "" {
				sets = append(sets, set)
			}
		}
	}
	sort.Strings(sets)
	return sets, nil
}

// ValidateSetup verifies that the bucket is reachable with the configured credentials.
func (v *S3Vault) ValidateSetup(ctx context.Context) error {
	if _, err := v.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(v.bucket),
	}); err != nil {
		return fmt.Errorf("s3 vault: failed to access bucket %s: %w", v.bucket, err)
	}
	return nil
}

func (v *S3Vault) objectKey(setKey, recordKey string) string {
	return v.prefix + setKey + "/" + recordKey
}

// normalizePrefix makes a non-empty prefix end with exactly one "/".
func normalizePrefix(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

// Compile-time check that S3Vault implements mdv.Vault interface
var _ mdv.Vault = (*S3Vault)(nil)
