package source

import (
	"context"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"

	"github.com/GabrielNunesIT/blob-ingestor/internal/model"
	"github.com/GabrielNunesIT/go-libs/logger"
)

// hdiFolderKey marks directory placeholders on hierarchical namespace (ADLS Gen2) accounts.
const hdiFolderKey = "hdi_isfolder"

// AzureBlobSource reads a container of an Azure Storage account.
// It works against both flat and hierarchical namespace (Data Lake) accounts.
type AzureBlobSource struct {
	client    *azblob.Client
	account   string
	container string
	logger    logger.ILogger
}

// NewAzureBlobSource creates a source for https://<account>.blob.core.windows.net/<container>.
func NewAzureBlobSource(account, containerName string, cred azcore.TokenCredential, log logger.ILogger) (*AzureBlobSource, error) {
	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", account)

	client, err := azblob.NewClient(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("creating blob client for %s: %w", account, err)
	}

	return NewAzureBlobSourceFromClient(client, account, containerName, log), nil
}

// NewAzureBlobSourceFromClient creates a source on an existing client, such as
// one pointed at Azurite or built from a connection string.
func NewAzureBlobSourceFromClient(client *azblob.Client, account, containerName string, log logger.ILogger) *AzureBlobSource {
	return &AzureBlobSource{
		client:    client,
		account:   account,
		container: containerName,
		logger:    log.SubLogger("Source[azblob]"),
	}
}

// Name returns the source identifier.
func (s *AzureBlobSource) Name() string {
	return fmt.Sprintf("azblob:%s/%s", s.account, s.container)
}

// List yields the blobs and virtual directories directly under dir,
// one listing page at a time.
func (s *AzureBlobSource) List(ctx context.Context, dir string) iter.Seq2[model.Entry, error] {
	prefix := dirPrefix(dir)
	opts := &container.ListBlobsHierarchyOptions{
		Include: container.ListBlobsInclude{Metadata: true},
	}
	if prefix != "" {
		opts.Prefix = &prefix
	}

	return func(yield func(model.Entry, error) bool) {
		pager := s.client.ServiceClient().NewContainerClient(s.container).NewListBlobsHierarchyPager("/", opts)

		for pager.More() {
			resp, err := pager.NextPage(ctx)
			if err != nil {
				yield(model.Entry{}, fmt.Errorf("listing %s/%s: %w", s.container, prefix, err))
				return
			}
			if resp.Segment == nil {
				continue
			}
			s.logger.Debugf("listed page: container=%s, prefix=%s, blobs=%d, prefixes=%d",
				s.container, prefix, len(resp.Segment.BlobItems), len(resp.Segment.BlobPrefixes))

			for _, p := range resp.Segment.BlobPrefixes {
				if p == nil || p.Name == nil {
					continue
				}
				if !yield(model.Entry{Name: *p.Name, IsDir: true}, nil) {
					return
				}
			}

			for _, item := range resp.Segment.BlobItems {
				if item == nil || item.Name == nil {
					continue
				}
				if !yield(blobEntry(item), nil) {
					return
				}
			}
		}
	}
}

func blobEntry(item *container.BlobItem) model.Entry {
	entry := model.Entry{Name: *item.Name}

	if v, ok := item.Metadata[hdiFolderKey]; ok && v != nil && strings.EqualFold(*v, "true") {
		entry.IsDir = true
	}

	if props := item.Properties; props != nil {
		switch {
		case props.CreationTime != nil:
			entry.CreatedAt = *props.CreationTime
		case props.LastModified != nil:
			entry.CreatedAt = *props.LastModified
		}
		if props.ContentLength != nil {
			entry.Size = *props.ContentLength
		}
	}

	return entry
}

// Open streams the named blob.
func (s *AzureBlobSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	resp, err := s.client.DownloadStream(ctx, s.container, name, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, fmt.Errorf("download %s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("download %s: %w", name, err)
	}
	return resp.Body, nil
}

// Delete removes the named blob.
func (s *AzureBlobSource) Delete(ctx context.Context, name string) error {
	if _, err := s.client.DeleteBlob(ctx, s.container, name, nil); err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return fmt.Errorf("delete %s: %w", name, ErrNotFound)
		}
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

// Close is a no-op; the blob client holds no resources that need releasing.
func (s *AzureBlobSource) Close() error {
	return nil
}
