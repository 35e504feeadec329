// Package source defines the directory listing and object access contracts the
// poller depends on, and their implementations for each storage backend.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"

	"github.com/GabrielNunesIT/blob-ingestor/internal/config"
	"github.com/GabrielNunesIT/blob-ingestor/internal/model"
	"github.com/GabrielNunesIT/go-libs/logger"
)

// ErrNotFound is returned when an object vanished between listing and access.
// A missing directory is never an error: its listing is simply empty.
var ErrNotFound = errors.New("object not found")

// Lister enumerates a directory.
type Lister interface {
	// List returns a lazy, finite sequence of the direct children of dir.
	// Sub-directories are yielded with IsDir set and are not descended into.
	// A missing directory yields nothing. Any other failure is yielded once as
	// an error, after which the sequence ends. The sequence must not be
	// iterated twice.
	List(ctx context.Context, dir string) iter.Seq2[model.Entry, error]
}

// ObjectStore reads and deletes objects within one container.
type ObjectStore interface {
	// Open returns a read stream for name. The caller closes it.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// Delete removes name.
	Delete(ctx context.Context, name string) error
}

// Source is one storage location: a lister and object access scoped to a
// single container.
type Source interface {
	Lister
	ObjectStore

	// Name returns a human readable identifier for log lines.
	Name() string

	// Close releases the underlying client.
	Close() error
}

// Deps carries the credentials and shared settings sources are built from.
// They are created by the bootstrap layer and never by a source itself.
type Deps struct {
	AzureCredential azcore.TokenCredential
	S3              config.S3Config
}

// New builds the Source described by cfg.
func New(ctx context.Context, cfg config.SourceConfig, deps Deps, log logger.ILogger) (Source, error) {
	switch cfg.Type {
	case config.SourceAzureBlob:
		if deps.AzureCredential == nil {
			return nil, errors.New("azblob source requires an azure credential")
		}
		return NewAzureBlobSource(cfg.Account, cfg.Container, deps.AzureCredential, log)
	case config.SourceS3:
		return NewS3Source(ctx, deps.S3, cfg.Container, log)
	case config.SourceGCS:
		return NewGCSSource(ctx, cfg.Container, log)
	case config.SourceLocal:
		return NewLocalSource(cfg.Container, log), nil
	default:
		return nil, fmt.Errorf("unknown source type: %s", cfg.Type)
	}
}

// dirPrefix turns a configured directory into an object name prefix:
// no leading slash, exactly one trailing slash, empty for the container root.
func dirPrefix(dir string) string {
	dir = strings.Trim(dir, "/")
	if dir == "" {
		return ""
	}
	return dir + "/"
}
