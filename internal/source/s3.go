package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/GabrielNunesIT/blob-ingestor/internal/config"
	"github.com/GabrielNunesIT/blob-ingestor/internal/model"
	"github.com/GabrielNunesIT/go-libs/logger"
)

// S3Source reads a bucket of AWS S3 or an S3-compatible store such as MinIO.
// S3 keeps no creation time; LastModified is used since objects are written once.
type S3Source struct {
	client *s3.Client
	bucket string
	logger logger.ILogger
}

// NewS3Source creates an S3-backed Source.
func NewS3Source(ctx context.Context, cfg config.S3Config, bucket string, log logger.ILogger) (*S3Source, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return &S3Source{
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		bucket: bucket,
		logger: log.SubLogger("Source[s3]"),
	}, nil
}

// Name returns the source identifier.
func (s *S3Source) Name() string {
	return "s3:" + s.bucket
}

// List yields the objects and common prefixes directly under dir.
func (s *S3Source) List(ctx context.Context, dir string) iter.Seq2[model.Entry, error] {
	prefix := dirPrefix(dir)

	return func(yield func(model.Entry, error) bool) {
		paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
			Bucket:    aws.String(s.bucket),
			Prefix:    aws.String(prefix),
			Delimiter: aws.String("/"),
		})

		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				yield(model.Entry{}, fmt.Errorf("s3 list %s/%s: %w", s.bucket, prefix, err))
				return
			}
			s.logger.Debugf("listed page: bucket=%s, prefix=%s, objects=%d", s.bucket, prefix, len(page.Contents))

			for _, p := range page.CommonPrefixes {
				if !yield(model.Entry{Name: aws.ToString(p.Prefix), IsDir: true}, nil) {
					return
				}
			}

			for _, obj := range page.Contents {
				key := aws.ToString(obj.Key)
				// Folder marker objects created by consoles and sync tools.
				if key == prefix {
					continue
				}
				entry := model.Entry{
					Name:      key,
					CreatedAt: aws.ToTime(obj.LastModified),
					Size:      aws.ToInt64(obj.Size),
				}
				if !yield(entry, nil) {
					return
				}
			}
		}
	}
}

// Open streams the named object.
func (s *S3Source) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("s3 get %s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("s3 get %s: %w", name, err)
	}
	return out.Body, nil
}

// Delete removes the named object. S3 reports success for missing keys.
func (s *S3Source) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s: %w", name, err)
	}
	return nil
}

// Close is a no-op.
func (s *S3Source) Close() error {
	return nil
}
