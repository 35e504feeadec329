package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/GabrielNunesIT/blob-ingestor/internal/config"
	"github.com/GabrielNunesIT/blob-ingestor/internal/poller"
	"github.com/GabrielNunesIT/blob-ingestor/internal/sink"
	"github.com/GabrielNunesIT/blob-ingestor/internal/source"
	"github.com/GabrielNunesIT/go-libs/logger"
)

// NewValidateCmd creates the validate command.
func NewValidateCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgFile)
			if err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}

			// Create a silent logger for validation (discards output)
			log := logger.NewConsoleLogger(io.Discard)

			// Building a credential or client does not contact the service.
			cred, err := newAzureCredential(cfg.Azure)
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "  warning: %v\n", err)
			}

			factory := poller.ClientFactory{
				Sinks:      cfg.Sinks,
				SourceDeps: source.Deps{AzureCredential: cred, S3: cfg.S3},
				SinkDeps:   sink.Deps{AzureCredential: cred},
				Logger:     log,
			}

			sets, errs := poller.BuildSets(context.Background(), cfg, factory, log)
			for _, set := range sets {
				_ = set.Source.Close()
			}

			out := cmd.OutOrStdout()
			for _, err := range errs {
				fmt.Fprintf(out, "  %v\n", err)
			}
			if len(errs) > 0 {
				return fmt.Errorf("%d of %d ingestion sets invalid: %w", len(errs), len(cfg.Sets), errors.Join(errs...))
			}

			fmt.Fprintf(out, "Configuration valid:\n")
			fmt.Fprintf(out, "  Sets: %d\n", len(sets))
			for _, set := range sets {
				fmt.Fprintf(out, "    %s: %s/%s -> %s\n", set.Name, set.Source.Name(), set.Directory, set.Destination)
			}
			return nil
		},
	}
}
