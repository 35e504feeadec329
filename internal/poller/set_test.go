package poller

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GabrielNunesIT/blob-ingestor/internal/config"
	"github.com/GabrielNunesIT/blob-ingestor/internal/model"
	"github.com/GabrielNunesIT/blob-ingestor/internal/sink"
	"github.com/GabrielNunesIT/blob-ingestor/internal/source"
	"github.com/GabrielNunesIT/blob-ingestor/internal/testutil"
)

type fakeFactory struct {
	sources   map[string]*fakeSource
	sourceErr map[string]error
	sinkErr   map[string]error
	sinks     []string
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{
		sources:   make(map[string]*fakeSource),
		sourceErr: make(map[string]error),
		sinkErr:   make(map[string]error),
	}
}

func (f *fakeFactory) NewSource(ctx context.Context, cfg config.SourceConfig) (source.Source, error) {
	if err := f.sourceErr[cfg.Container]; err != nil {
		return nil, err
	}
	src := newFakeSource()
	src.name = cfg.Container
	f.sources[cfg.Container] = src
	return src, nil
}

func (f *fakeFactory) NewSink(kind string) (sink.Sink, error) {
	if err := f.sinkErr[kind]; err != nil {
		return nil, err
	}
	f.sinks = append(f.sinks, kind)
	s := newFakeSink()
	s.name = kind
	return s, nil
}

func setConfig(name, container, sinkKind string) config.SetConfig {
	return config.SetConfig{
		Name: name,
		Source: config.SourceConfig{
			Type:      config.SourceLocal,
			Container: container,
			Directory: "incoming",
		},
		Destination: config.DestinationConfig{
			Sink:     sinkKind,
			Database: "telemetry",
			Table:    "Events",
		},
	}
}

func TestBuildSets(t *testing.T) {
	orders := setConfig("orders", "c1", config.SinkKusto)
	orders.Source.Exclude = []string{"*.tmp"}
	orders.Destination.Format = "CSV"
	orders.Destination.Mapping = "OrdersMapping"

	badFormat := setConfig("bad-format", "c4", config.SinkKusto)
	badFormat.Destination.Format = "xml"

	badPattern := setConfig("bad-pattern", "c5", config.SinkKusto)
	badPattern.Source.Exclude = []string{"[a-"}

	cfg := &config.Config{
		Sets: []config.SetConfig{
			orders,
			setConfig("", "c2", config.SinkKusto),
			setConfig("orders", "c3", config.SinkKusto),
			badFormat,
			badPattern,
			setConfig("source-down", "broken", config.SinkKusto),
			setConfig("events", "c6", config.SinkKusto),
			setConfig("archive", "c7", config.SinkFile),
		},
	}

	factory := newFakeFactory()
	factory.sourceErr["broken"] = errors.New("account not found")
	factory.sinkErr[config.SinkFile] = errors.New("sinks.file.path is required")

	sets, errs := BuildSets(context.Background(), cfg, factory, testutil.NewTestLogger())

	require.Len(t, sets, 2)
	assert.Equal(t, "orders", sets[0].Name)
	assert.Equal(t, "events", sets[1].Name)

	require.Len(t, errs, 6)
	wantErrs := []string{
		"name is required",
		"duplicate set name",
		"unsupported format",
		"invalid exclude pattern",
		"account not found",
		"sinks.file.path is required",
	}
	for i, want := range wantErrs {
		assert.ErrorContains(t, errs[i], want)
	}
	assert.ErrorContains(t, errs[0], "#1")
	assert.ErrorContains(t, errs[4], "source-down")

	// One sink instance per kind.
	assert.Same(t, sets[0].Sink, sets[1].Sink)
	assert.Equal(t, []string{config.SinkKusto}, factory.sinks)

	// The source built for a set whose sink failed is released.
	assert.True(t, factory.sources["c7"].closed)

	assert.Equal(t, "incoming", sets[0].Directory)
	assert.Equal(t, []string{"*.tmp"}, sets[0].Exclude)
	assert.Equal(t, model.Destination{
		Sink:     config.SinkKusto,
		Database: "telemetry",
		Table:    "Events",
		Mapping:  "OrdersMapping",
		Format:   model.FormatCSV,
	}, sets[0].Destination)
	assert.Equal(t, model.FormatJSON, sets[1].Destination.Format)
}

func TestBuildSets_NothingConfigured(t *testing.T) {
	sets, errs := BuildSets(context.Background(), &config.Config{}, newFakeFactory(), testutil.NewTestLogger())
	assert.Empty(t, sets)
	assert.Empty(t, errs)
}

func TestIngestionSet_Excluded(t *testing.T) {
	set := &IngestionSet{Exclude: []string{"*.tmp", "_*", "**/staging/**", "{a,b}.csv"}}

	tests := []struct {
		name string
		want bool
	}{
		{name: "incoming/a.json", want: false},
		{name: "incoming/a.json.tmp", want: true},
		{name: "incoming/_SUCCESS", want: true},
		{name: "incoming/staging/x.json", want: true},
		{name: "incoming/a.csv", want: true},
		{name: "incoming/c.csv", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, set.excluded(tt.name))
		})
	}

	assert.False(t, (&IngestionSet{}).excluded("anything"))
}

func TestClientFactory(t *testing.T) {
	root := t.TempDir()
	f := ClientFactory{
		Sinks:  config.SinkConfig{File: config.FileSinkConfig{Path: root + "/out.ndjson"}},
		Logger: testutil.NewTestLogger(),
	}

	src, err := f.NewSource(context.Background(), config.SourceConfig{Type: config.SourceLocal, Container: root})
	require.NoError(t, err)
	assert.NotEmpty(t, src.Name())
	assert.NoError(t, src.Close())

	s, err := f.NewSink(config.SinkFile)
	require.NoError(t, err)
	assert.Equal(t, config.SinkFile, s.Name())

	_, err = f.NewSource(context.Background(), config.SourceConfig{Type: "ftp", Container: root})
	assert.Error(t, err)
}
