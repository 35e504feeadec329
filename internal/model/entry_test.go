package model

import (
	"testing"
	"time"
)

func TestEntryAge(t *testing.T) {
	now := time.Date(2026, 1, 18, 12, 0, 0, 0, time.UTC)
	entry := Entry{Name: "a.json", CreatedAt: now.Add(-2 * time.Minute)}

	if got := entry.Age(now); got != 2*time.Minute {
		t.Errorf("expected age 2m, got %v", got)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: FormatJSON},
		{in: "json", want: FormatJSON},
		{in: " MultiJSON ", want: FormatMultiJSON},
		{in: "csv", want: FormatCSV},
		{in: "parquet", want: FormatParquet},
		{in: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFormat(%q) failed: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestDestinationString(t *testing.T) {
	tests := []struct {
		name string
		dest Destination
		want string
	}{
		{"full", Destination{Sink: "kusto", Database: "telemetry", Table: "Events"}, "kusto:telemetry.Events"},
		{"table only", Destination{Sink: "elasticsearch", Table: "logs"}, "elasticsearch:logs"},
		{"sink only", Destination{Sink: "stdout"}, "stdout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dest.String(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
