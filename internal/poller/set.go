package poller

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/GabrielNunesIT/blob-ingestor/internal/config"
	"github.com/GabrielNunesIT/blob-ingestor/internal/model"
	"github.com/GabrielNunesIT/blob-ingestor/internal/sink"
	"github.com/GabrielNunesIT/blob-ingestor/internal/source"
	"github.com/GabrielNunesIT/go-libs/logger"
)

// IngestionSet binds one source directory to one destination.
// It is built once at startup and never mutated.
type IngestionSet struct {
	Name        string
	Directory   string
	Exclude     []string
	Source      source.Source
	Sink        sink.Sink
	Destination model.Destination
}

// excluded reports whether name matches one of the exclude patterns, either as
// a full object name or as a base name within the directory.
func (s *IngestionSet) excluded(name string) bool {
	base := path.Base(name)
	for _, pattern := range s.Exclude {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// Factory creates the storage and sink handles ingestion sets are built from.
type Factory interface {
	NewSource(ctx context.Context, cfg config.SourceConfig) (source.Source, error)
	NewSink(kind string) (sink.Sink, error)
}

// ClientFactory builds real SDK-backed sources and sinks from shared credentials.
type ClientFactory struct {
	Sinks      config.SinkConfig
	SourceDeps source.Deps
	SinkDeps   sink.Deps
	Logger     logger.ILogger
}

// NewSource implements Factory.
func (f ClientFactory) NewSource(ctx context.Context, cfg config.SourceConfig) (source.Source, error) {
	return source.New(ctx, cfg, f.SourceDeps, f.Logger)
}

// NewSink implements Factory.
func (f ClientFactory) NewSink(kind string) (sink.Sink, error) {
	return sink.New(kind, f.Sinks, f.SinkDeps, f.Logger)
}

// BuildSets constructs every configured ingestion set independently. A set that
// fails validation or construction is logged and skipped; its error is returned
// alongside the sets that were built. Sinks are shared: one instance per kind.
func BuildSets(ctx context.Context, cfg *config.Config, factory Factory, log logger.ILogger) ([]*IngestionSet, []error) {
	var (
		sets  []*IngestionSet
		errs  []error
		seen  = make(map[string]bool)
		sinks = make(map[string]sink.Sink)
	)

	for i, sc := range cfg.Sets {
		label := sc.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i)
		}

		set, err := buildSet(ctx, sc, seen, sinks, factory)
		if err != nil {
			err = fmt.Errorf("ingestion set %s: %w", label, err)
			log.Errorf("ingestion set skipped: set=%s, error=%v", label, err)
			errs = append(errs, err)
			continue
		}

		seen[set.Name] = true
		sets = append(sets, set)
		log.Infof("ingestion set ready: set=%s, source=%s, directory=%s, destination=%s",
			set.Name, set.Source.Name(), set.Directory, set.Destination)
	}

	return sets, errs
}

func buildSet(ctx context.Context, sc config.SetConfig, seen map[string]bool, sinks map[string]sink.Sink, factory Factory) (*IngestionSet, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	if seen[sc.Name] {
		return nil, errors.New("duplicate set name")
	}
	for _, pattern := range sc.Source.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern %q", pattern)
		}
	}

	format, err := model.ParseFormat(sc.Destination.Format)
	if err != nil {
		return nil, err
	}

	src, err := factory.NewSource(ctx, sc.Source)
	if err != nil {
		return nil, fmt.Errorf("creating source: %w", err)
	}

	snk, ok := sinks[sc.Destination.Sink]
	if !ok {
		snk, err = factory.NewSink(sc.Destination.Sink)
		if err != nil {
			_ = src.Close()
			return nil, fmt.Errorf("creating sink: %w", err)
		}
		sinks[sc.Destination.Sink] = snk
	}

	return &IngestionSet{
		Name:      sc.Name,
		Directory: sc.Source.Directory,
		Exclude:   sc.Source.Exclude,
		Source:    src,
		Sink:      snk,
		Destination: model.Destination{
			Sink:     sc.Destination.Sink,
			Endpoint: sc.Destination.Endpoint,
			Database: sc.Destination.Database,
			Table:    sc.Destination.Table,
			Mapping:  sc.Destination.Mapping,
			Format:   format,
		},
	}, nil
}
