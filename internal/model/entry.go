// Package model defines the core data structures shared by sources, sinks and the poller.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Entry is a single item yielded by a directory listing.
// It is transient: nothing holds on to it beyond the iteration that produced it.
type Entry struct {
	// Name is the full object name as the backend addresses it, so it can be
	// passed straight back to Open and Delete.
	Name string

	// IsDir reports whether the entry is a sub-directory (or common prefix).
	IsDir bool

	// CreatedAt is the creation time reported by the backend. Backends without a
	// creation time report the last modification time instead.
	CreatedAt time.Time

	// Size is the object size in bytes, zero when unknown.
	Size int64
}

// Age returns how long ago the entry was created, relative to now.
func (e Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.CreatedAt)
}

// Format is the encoding of the bytes forwarded to a sink.
type Format string

const (
	FormatJSON      Format = "json"
	FormatMultiJSON Format = "multijson"
	FormatCSV       Format = "csv"
	FormatTSV       Format = "tsv"
	FormatParquet   Format = "parquet"
	FormatAvro      Format = "avro"
	FormatText      Format = "txt"
)

// ParseFormat normalizes a configured format name. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatMultiJSON, FormatCSV, FormatTSV, FormatParquet, FormatAvro, FormatText:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format %q", s)
	}
}

// Destination describes where a sink delivers the bytes of one ingestion set.
type Destination struct {
	// Sink names the sink kind (kusto, elasticsearch, file, stdout).
	Sink string

	// Endpoint optionally overrides the sink's default endpoint
	// (for Kusto, the cluster ingestion URI).
	Endpoint string

	Database string
	Table    string

	// Mapping is the sink-specific mapping reference: an ingestion mapping name
	// for Kusto, an ingest pipeline for Elasticsearch.
	Mapping string

	Format Format
}

// String renders the destination for log lines.
func (d Destination) String() string {
	var b strings.Builder
	b.WriteString(d.Sink)
	if d.Database != "" || d.Table != "" {
		b.WriteString(":")
		if d.Database != "" {
			b.WriteString(d.Database)
			b.WriteString(".")
		}
		b.WriteString(d.Table)
	}
	return b.String()
}
