package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/Azure/azure-kusto-go/azkustodata"
	"github.com/Azure/azure-kusto-go/azkustoingest"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"

	"github.com/GabrielNunesIT/blob-ingestor/internal/config"
	"github.com/GabrielNunesIT/blob-ingestor/internal/model"
	"github.com/GabrielNunesIT/go-libs/logger"
)

// KustoIngestor is the part of the queued ingestion client the sink uses.
type KustoIngestor interface {
	FromReader(ctx context.Context, reader io.Reader, options ...azkustoingest.FileOption) (*azkustoingest.Result, error)
	Close() error
}

// IngestorFactory creates a queued ingestion client for one cluster and table.
type IngestorFactory func(endpoint, database, table string) (KustoIngestor, error)

// KustoOption configures the KustoSink.
type KustoOption func(*KustoSink)

// WithIngestorFactory sets a custom factory for creating ingestion clients.
// This is primarily used for testing to inject a mock ingestor.
func WithIngestorFactory(f IngestorFactory) KustoOption {
	return func(k *KustoSink) {
		k.factory = f
	}
}

type kustoTarget struct {
	endpoint string
	database string
	table    string
}

// KustoSink queues streams for ingestion into Azure Data Explorer.
// Queued ingestion returns once the data is staged; Kusto loads it asynchronously.
type KustoSink struct {
	cfg       config.KustoSinkConfig
	factory   IngestorFactory
	ingestors map[kustoTarget]KustoIngestor
	mu        sync.Mutex
	logger    logger.ILogger
}

// NewKustoSink creates a new Kusto sink. cred may be nil, in which case the
// default Azure credential chain is used.
func NewKustoSink(cfg config.KustoSinkConfig, cred azcore.TokenCredential, log logger.ILogger, opts ...KustoOption) *KustoSink {
	k := &KustoSink{
		cfg:       cfg,
		ingestors: make(map[kustoTarget]KustoIngestor),
		logger:    log.SubLogger("KustoSink"),
	}

	// Default factory creates a queued ingestion client
	k.factory = func(endpoint, database, table string) (KustoIngestor, error) {
		kcsb := azkustodata.NewConnectionStringBuilder(endpoint)
		if cred != nil {
			kcsb = kcsb.WithTokenCredential(cred)
		} else {
			kcsb = kcsb.WithDefaultAzureCredential()
		}

		in, err := azkustoingest.New(kcsb,
			azkustoingest.WithDefaultDatabase(database),
			azkustoingest.WithDefaultTable(table),
		)
		if err != nil {
			return nil, fmt.Errorf("creating kusto ingestor for %s: %w", endpoint, err)
		}
		return in, nil
	}

	for _, opt := range opts {
		opt(k)
	}

	return k
}

// Name returns the sink identifier.
func (k *KustoSink) Name() string {
	return config.SinkKusto
}

// Start is a no-op; ingestion clients are created on first use per table.
func (k *KustoSink) Start(ctx context.Context) error {
	k.logger.Debugf("kusto sink started: endpoint=%s", k.cfg.IngestEndpoint)
	return nil
}

// Stop closes every ingestion client.
func (k *KustoSink) Stop(ctx context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	var errs []error
	for target, in := range k.ingestors {
		if err := in.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing ingestor %s/%s: %w", target.database, target.table, err))
		}
		delete(k.ingestors, target)
	}
	return errors.Join(errs...)
}

// Ingest queues the stream for ingestion into dest.Database/dest.Table.
func (k *KustoSink) Ingest(ctx context.Context, r io.ReadCloser, dest model.Destination) error {
	defer r.Close()

	endpoint := dest.Endpoint
	if endpoint == "" {
		endpoint = k.cfg.IngestEndpoint
	}
	if endpoint == "" {
		return errors.New("no kusto ingest endpoint configured")
	}

	in, err := k.ingestor(kustoTarget{endpoint: endpoint, database: dest.Database, table: dest.Table})
	if err != nil {
		return err
	}

	format := kustoFormat(dest.Format)
	opts := []azkustoingest.FileOption{azkustoingest.FileFormat(format)}
	if dest.Mapping != "" {
		opts = append(opts, azkustoingest.IngestionMappingRef(dest.Mapping, format))
	}

	if _, err := in.FromReader(ctx, r, opts...); err != nil {
		return fmt.Errorf("kusto ingest into %s.%s: %w", dest.Database, dest.Table, err)
	}
	return nil
}

// ingestor returns the cached client for target, creating it on first use.
func (k *KustoSink) ingestor(target kustoTarget) (KustoIngestor, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if in, ok := k.ingestors[target]; ok {
		return in, nil
	}

	in, err := k.factory(target.endpoint, target.database, target.table)
	if err != nil {
		return nil, err
	}
	k.ingestors[target] = in
	k.logger.Infof("kusto ingestor created: endpoint=%s, database=%s, table=%s",
		target.endpoint, target.database, target.table)
	return in, nil
}

func kustoFormat(f model.Format) azkustoingest.DataFormat {
	switch f {
	case model.FormatMultiJSON:
		return azkustoingest.MultiJSON
	case model.FormatCSV:
		return azkustoingest.CSV
	case model.FormatTSV:
		return azkustoingest.TSV
	case model.FormatParquet:
		return azkustoingest.Parquet
	case model.FormatAvro:
		return azkustoingest.AVRO
	case model.FormatText:
		return azkustoingest.TXT
	default:
		return azkustoingest.JSON
	}
}
