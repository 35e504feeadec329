package sink

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/GabrielNunesIT/blob-ingestor/internal/config"
	"github.com/GabrielNunesIT/blob-ingestor/internal/model"
	"github.com/GabrielNunesIT/go-libs/logger"
)

// StdoutSink writes ingested streams to standard output.
type StdoutSink struct {
	writer io.Writer
	mu     sync.Mutex
	logger logger.ILogger
}

// NewStdoutSink creates a new stdout sink.
func NewStdoutSink(log logger.ILogger) *StdoutSink {
	return NewStdoutSinkWithWriter(os.Stdout, log)
}

// NewStdoutSinkWithWriter creates a stdout sink with a custom writer (for testing).
func NewStdoutSinkWithWriter(w io.Writer, log logger.ILogger) *StdoutSink {
	return &StdoutSink{
		writer: w,
		logger: log.SubLogger("StdoutSink"),
	}
}

// Name returns the sink identifier.
func (s *StdoutSink) Name() string {
	return config.SinkStdout
}

// Start initializes the sink (no-op for stdout).
func (s *StdoutSink) Start(ctx context.Context) error {
	s.logger.Debug("stdout sink started")
	return nil
}

// Stop gracefully shuts down the sink (no-op for stdout).
func (s *StdoutSink) Stop(ctx context.Context) error {
	s.logger.Debug("stdout sink stopped")
	return nil
}

// Ingest copies the stream to stdout, newline-terminated.
func (s *StdoutSink) Ingest(ctx context.Context, r io.ReadCloser, dest model.Destination) error {
	defer r.Close()

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := copyLine(s.writer, r)
	return err
}
