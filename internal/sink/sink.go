// Package sink defines the interface and implementations for ingestion destinations.
package sink

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"

	"github.com/GabrielNunesIT/blob-ingestor/internal/config"
	"github.com/GabrielNunesIT/blob-ingestor/internal/model"
	"github.com/GabrielNunesIT/go-libs/logger"
)

// Sink defines the contract for ingestion destinations.
type Sink interface {
	// Start initializes the sink (connections, clients, etc.).
	// Called once before Ingest is called.
	Start(ctx context.Context) error

	// Ingest consumes r exactly once and delivers its bytes to dest.
	// It always closes r, whatever the outcome. A nil error means the sink has
	// accepted responsibility for delivery; the data may not be queryable yet.
	// Must be safe to call concurrently.
	Ingest(ctx context.Context, r io.ReadCloser, dest model.Destination) error

	// Stop gracefully shuts down the sink.
	// Should flush any buffered data before returning.
	Stop(ctx context.Context) error

	// Name returns a unique identifier for this sink.
	Name() string
}

// Deps carries credentials created by the bootstrap layer.
type Deps struct {
	AzureCredential azcore.TokenCredential
}

// New builds the sink of the given kind.
func New(kind string, cfg config.SinkConfig, deps Deps, log logger.ILogger) (Sink, error) {
	switch kind {
	case config.SinkKusto:
		return NewKustoSink(cfg.Kusto, deps.AzureCredential, log), nil
	case config.SinkElasticsearch:
		return NewElasticsearchSink(cfg.Elasticsearch, log), nil
	case config.SinkFile:
		if cfg.File.Path == "" {
			return nil, fmt.Errorf("sinks.file.path is required")
		}
		return NewFileSink(cfg.File, log), nil
	case config.SinkStdout:
		return NewStdoutSink(log), nil
	default:
		return nil, fmt.Errorf("unknown sink: %s", kind)
	}
}

// newlineWriter remembers the last byte written so a stream can be terminated
// with a newline when it did not end with one.
type newlineWriter struct {
	w    io.Writer
	last byte
	n    int64
}

func (nw *newlineWriter) Write(p []byte) (int, error) {
	n, err := nw.w.Write(p)
	if n > 0 {
		nw.last = p[n-1]
		nw.n += int64(n)
	}
	return n, err
}

// copyLine copies r to w and appends a newline if the copied bytes did not end with one.
func copyLine(w io.Writer, r io.Reader) (int64, error) {
	nw := &newlineWriter{w: w}
	if _, err := io.Copy(nw, r); err != nil {
		return nw.n, err
	}
	if nw.n > 0 && nw.last != '\n' {
		if _, err := w.Write([]byte{'\n'}); err != nil {
			return nw.n, err
		}
	}
	return nw.n, nil
}
