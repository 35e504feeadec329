package sink

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"

	"github.com/GabrielNunesIT/blob-ingestor/internal/config"
	"github.com/GabrielNunesIT/blob-ingestor/internal/model"
	"github.com/GabrielNunesIT/go-libs/logger"
)

// maxDocumentSize bounds a single NDJSON line.
const maxDocumentSize = 16 << 20

// IndexerFactory creates a new BulkIndexer for one index and optional ingest pipeline.
type IndexerFactory func(index, pipeline string) (esutil.BulkIndexer, error)

// ElasticsearchOption configures the ElasticsearchSink.
type ElasticsearchOption func(*ElasticsearchSink)

// WithIndexerFactory sets a custom factory for creating the BulkIndexer.
// This is primarily used for testing to inject a mock indexer.
func WithIndexerFactory(f IndexerFactory) ElasticsearchOption {
	return func(e *ElasticsearchSink) {
		e.factory = f
	}
}

// ElasticsearchSink indexes newline-delimited JSON documents.
// Each Ingest call uses its own bulk indexer and waits for it to flush, so a
// nil error means every document was accepted.
type ElasticsearchSink struct {
	cfg     config.ElasticsearchSinkConfig
	client  *elasticsearch.Client
	factory IndexerFactory
	logger  logger.ILogger
}

// NewElasticsearchSink creates a new Elasticsearch sink.
func NewElasticsearchSink(cfg config.ElasticsearchSinkConfig, log logger.ILogger, opts ...ElasticsearchOption) *ElasticsearchSink {
	e := &ElasticsearchSink{
		cfg:    cfg,
		logger: log.SubLogger("ElasticsearchSink"),
	}

	// Default factory builds an indexer on the client created by Start
	e.factory = func(index, pipeline string) (esutil.BulkIndexer, error) {
		if e.client == nil {
			return nil, errors.New("elasticsearch sink not started")
		}
		return esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
			Client:        e.client,
			Index:         index,
			Pipeline:      pipeline,
			NumWorkers:    e.cfg.NumWorkers,
			FlushBytes:    5e+6, // 5MB
			FlushInterval: e.cfg.FlushInterval,
		})
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Name returns the sink identifier.
func (e *ElasticsearchSink) Name() string {
	return config.SinkElasticsearch
}

// Start creates the Elasticsearch client.
func (e *ElasticsearchSink) Start(ctx context.Context) error {
	esCfg := elasticsearch.Config{
		Addresses: e.cfg.Addresses,
	}

	if e.cfg.Username != "" {
		esCfg.Username = e.cfg.Username
		esCfg.Password = e.cfg.Password
	}

	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return fmt.Errorf("creating elasticsearch client: %w", err)
	}
	e.client = client

	e.logger.Debugf("elasticsearch sink started: addresses=%v", e.cfg.Addresses)
	return nil
}

// Stop is a no-op; indexers are closed by the Ingest call that created them.
func (e *ElasticsearchSink) Stop(ctx context.Context) error {
	return nil
}

// Ingest indexes each non-empty line of r as a document in dest.Table.
// dest.Mapping, when set, names the ingest pipeline.
func (e *ElasticsearchSink) Ingest(ctx context.Context, r io.ReadCloser, dest model.Destination) error {
	defer r.Close()

	if dest.Format != "" && dest.Format != model.FormatJSON {
		return fmt.Errorf("elasticsearch sink only accepts newline-delimited json, got %s", dest.Format)
	}

	indexer, err := e.factory(dest.Table, dest.Mapping)
	if err != nil {
		return err
	}

	var failed atomic.Uint64
	onFailure := func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
		failed.Add(1)
		if err != nil {
			e.logger.Debugf("document rejected: index=%s, error=%v", dest.Table, err)
			return
		}
		e.logger.Debugf("document rejected: index=%s, status=%d, reason=%s", dest.Table, res.Status, res.Error.Reason)
	}

	var docs int
	var addErr error
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxDocumentSize)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		// The scanner reuses its buffer; the indexer reads the body later.
		doc := bytes.Clone(line)
		if addErr = indexer.Add(ctx, esutil.BulkIndexerItem{
			Action:    "index",
			Body:      bytes.NewReader(doc),
			OnFailure: onFailure,
		}); addErr != nil {
			break
		}
		docs++
	}

	// Close flushes and waits for outstanding requests.
	closeErr := indexer.Close(ctx)

	if err := errors.Join(scanner.Err(), addErr, closeErr); err != nil {
		return fmt.Errorf("indexing into %s: %w", dest.Table, err)
	}

	stats := indexer.Stats()
	if n := max(stats.NumFailed, failed.Load()); n > 0 {
		return fmt.Errorf("indexing into %s: %d of %d documents failed", dest.Table, n, docs)
	}

	e.logger.Debugf("indexed documents: index=%s, count=%d", dest.Table, docs)
	return nil
}
