package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/GabrielNunesIT/blob-ingestor/internal/model"
	"github.com/GabrielNunesIT/go-libs/logger"
)

// GCSSource reads a Google Cloud Storage bucket.
type GCSSource struct {
	client *gcs.Client
	bucket string
	logger logger.ILogger
}

// NewGCSSource creates a GCS-backed Source.
// It uses Application Default Credentials (works with Workload Identity, SA keys, gcloud auth)
// unless opts say otherwise.
func NewGCSSource(ctx context.Context, bucket string, log logger.ILogger, opts ...option.ClientOption) (*GCSSource, error) {
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GCSSource{
		client: client,
		bucket: bucket,
		logger: log.SubLogger("Source[gcs]"),
	}, nil
}

// Name returns the source identifier.
func (s *GCSSource) Name() string {
	return "gcs:" + s.bucket
}

// List yields the objects and prefixes directly under dir.
func (s *GCSSource) List(ctx context.Context, dir string) iter.Seq2[model.Entry, error] {
	prefix := dirPrefix(dir)

	return func(yield func(model.Entry, error) bool) {
		it := s.client.Bucket(s.bucket).Objects(ctx, &gcs.Query{
			Prefix:    prefix,
			Delimiter: "/",
		})

		for {
			attrs, err := it.Next()
			if errors.Is(err, iterator.Done) {
				return
			}
			if err != nil {
				yield(model.Entry{}, fmt.Errorf("gcs list %s/%s: %w", s.bucket, prefix, err))
				return
			}

			var entry model.Entry
			switch {
			case attrs.Prefix != "":
				entry = model.Entry{Name: attrs.Prefix, IsDir: true}
			case attrs.Name == prefix:
				// Folder placeholder object.
				continue
			default:
				entry = model.Entry{
					Name:      attrs.Name,
					CreatedAt: attrs.Created,
					Size:      attrs.Size,
				}
			}

			if !yield(entry, nil) {
				return
			}
		}
	}
}

// Open streams the named object.
func (s *GCSSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	r, err := s.client.Bucket(s.bucket).Object(name).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, fmt.Errorf("gcs read %s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("gcs read %s: %w", name, err)
	}
	return r, nil
}

// Delete removes the named object.
func (s *GCSSource) Delete(ctx context.Context, name string) error {
	if err := s.client.Bucket(s.bucket).Object(name).Delete(ctx); err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return fmt.Errorf("gcs delete %s: %w", name, ErrNotFound)
		}
		return fmt.Errorf("gcs delete %s: %w", name, err)
	}
	return nil
}

// Close releases the GCS client.
func (s *GCSSource) Close() error {
	return s.client.Close()
}
