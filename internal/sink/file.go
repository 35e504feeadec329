package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/natefinch/lumberjack"

	"github.com/GabrielNunesIT/blob-ingestor/internal/config"
	"github.com/GabrielNunesIT/blob-ingestor/internal/model"
	"github.com/GabrielNunesIT/go-libs/logger"
)

// WriterFactory creates a new WriteCloser.
type WriterFactory func(cfg config.FileSinkConfig) (io.WriteCloser, error)

// FileOption configures the FileSink.
type FileOption func(*FileSink)

// WithWriterFactory sets a custom factory for creating the writer.
func WithWriterFactory(f WriterFactory) FileOption {
	return func(s *FileSink) {
		s.factory = f
	}
}

// FileSink appends ingested streams to a rotating file.
// Streams are written whole and newline-terminated, one after another.
type FileSink struct {
	cfg     config.FileSinkConfig
	factory WriterFactory
	writer  io.WriteCloser
	mu      sync.Mutex
	logger  logger.ILogger
}

// NewFileSink creates a new file sink.
func NewFileSink(cfg config.FileSinkConfig, log logger.ILogger, opts ...FileOption) *FileSink {
	s := &FileSink{
		cfg:    cfg,
		logger: log.SubLogger("FileSink"),
	}

	// Default factory creates lumberjack logger
	s.factory = func(cfg config.FileSinkConfig) (io.WriteCloser, error) {
		return &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}, nil
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the sink identifier.
func (s *FileSink) Name() string {
	return config.SinkFile
}

// Start initializes the rotating file writer.
func (s *FileSink) Start(ctx context.Context) error {
	w, err := s.factory(s.cfg)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.writer = w
	s.mu.Unlock()

	s.logger.Debugf("file sink started: path=%s", s.cfg.Path)
	return nil
}

// Stop closes the file writer.
func (s *FileSink) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writer != nil {
		err := s.writer.Close()
		s.writer = nil
		return err
	}
	return nil
}

// Ingest appends the stream to the file.
func (s *FileSink) Ingest(ctx context.Context, r io.ReadCloser, dest model.Destination) error {
	defer r.Close()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writer == nil {
		return errors.New("file sink not started")
	}

	n, err := copyLine(s.writer, r)
	if err != nil {
		return fmt.Errorf("writing to %s: %w", s.cfg.Path, err)
	}

	s.logger.Debugf("stream archived: path=%s, bytes=%d", s.cfg.Path, n)
	return nil
}
