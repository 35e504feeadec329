package cli

import (
	"github.com/spf13/cobra"
)

// Execute builds and runs the CLI.
func Execute() error {
	var (
		cfgFile  string
		logLevel string
	)

	rootCmd := &cobra.Command{
		Use:   "blob-ingestor",
		Short: "Drains object storage directories into analytics sinks",
		Long: `blob-ingestor polls a list of ingestion sets. Each set pairs a source
directory (Azure Blob Storage, S3, GCS or a local path) with a destination
(Azure Data Explorer, Elasticsearch, a rotating file or stdout).

Files are forwarded once they are older than the rollover delay and deleted
after the sink accepts them. A failed file is kept and retried once its
dedupe cache entry expires.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error); overrides the config file")

	rootCmd.AddCommand(
		NewRunCmd(&cfgFile, &logLevel),
		NewValidateCmd(&cfgFile),
		NewVersionCmd(),
	)

	return rootCmd.Execute()
}
