package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"path"
	"path/filepath"

	"github.com/GabrielNunesIT/blob-ingestor/internal/model"
	"github.com/GabrielNunesIT/go-libs/logger"
)

// LocalSource serves a directory tree on the local filesystem as a container.
// Object names are slash-separated paths relative to the root.
// Modification time stands in for creation time.
type LocalSource struct {
	root   string
	logger logger.ILogger
}

// NewLocalSource creates a source rooted at root.
func NewLocalSource(root string, log logger.ILogger) *LocalSource {
	return &LocalSource{
		root:   root,
		logger: log.SubLogger("Source[local]"),
	}
}

// Name returns the source identifier.
func (s *LocalSource) Name() string {
	return "local:" + s.root
}

// List yields the children of dir in lexical order.
func (s *LocalSource) List(ctx context.Context, dir string) iter.Seq2[model.Entry, error] {
	prefix := dirPrefix(dir)
	abs := filepath.Join(s.root, filepath.FromSlash(prefix))

	return func(yield func(model.Entry, error) bool) {
		dirEntries, err := os.ReadDir(abs)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				s.logger.Debugf("directory does not exist: %s", abs)
				return
			}
			yield(model.Entry{}, fmt.Errorf("reading directory %s: %w", abs, err))
			return
		}

		for _, de := range dirEntries {
			if err := ctx.Err(); err != nil {
				yield(model.Entry{}, err)
				return
			}

			info, err := de.Info()
			if err != nil {
				// Removed since the directory was read.
				if errors.Is(err, fs.ErrNotExist) {
					continue
				}
				yield(model.Entry{}, fmt.Errorf("stat %s: %w", de.Name(), err))
				return
			}

			entry := model.Entry{
				Name:      path.Join(prefix, de.Name()),
				IsDir:     de.IsDir(),
				CreatedAt: info.ModTime(),
				Size:      info.Size(),
			}
			if !yield(entry, nil) {
				return
			}
		}
	}
}

// Open opens the named file for reading.
func (s *LocalSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(s.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("open %s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return f, nil
}

// Delete removes the named file.
func (s *LocalSource) Delete(ctx context.Context, name string) error {
	if err := os.Remove(s.path(name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("delete %s: %w", name, ErrNotFound)
		}
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

// Close is a no-op.
func (s *LocalSource) Close() error {
	return nil
}

func (s *LocalSource) path(name string) string {
	return filepath.Join(s.root, filepath.FromSlash(name))
}
