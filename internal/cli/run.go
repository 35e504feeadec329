package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"

	"github.com/GabrielNunesIT/blob-ingestor/internal/config"
	"github.com/GabrielNunesIT/blob-ingestor/internal/poller"
	"github.com/GabrielNunesIT/blob-ingestor/internal/sink"
	"github.com/GabrielNunesIT/blob-ingestor/internal/source"
	"github.com/GabrielNunesIT/go-libs/logger"
)

// NewRunCmd creates the run command.
func NewRunCmd(cfgFile, logLevel *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start polling the configured ingestion sets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngestor(cmd, cfgFile, logLevel)
		},
	}

	cmd.Flags().Bool("once", false, "run a single cycle over every set, then exit")
	cmd.Flags().Int("concurrency", 0, "number of sets processed in parallel (overrides poller.concurrency)")
	cmd.Flags().Int("max-files", 0, "files attempted per set per cycle (overrides poller.maxfilesperrun)")

	return cmd
}

func runIngestor(cmd *cobra.Command, cfgFile, logLevel *string) error {
	cfg, err := config.Load(*cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	applyCLIOverrides(cmd, cfg)

	log := SetupLogging(effectiveLogLevel(*logLevel, cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cred, err := newAzureCredential(cfg.Azure)
	if err != nil {
		log.Warningf("azure credential unavailable, azure sets will be skipped: error=%v", err)
	}

	factory := poller.ClientFactory{
		Sinks:      cfg.Sinks,
		SourceDeps: source.Deps{AzureCredential: cred, S3: cfg.S3},
		SinkDeps:   sink.Deps{AzureCredential: cred},
		Logger:     log,
	}

	sets, errs := poller.BuildSets(ctx, cfg, factory, log)
	if len(sets) == 0 {
		return fmt.Errorf("no usable ingestion sets: %w", errors.Join(errs...))
	}

	heartbeat := watchdogHeartbeat(log)
	if once, _ := cmd.Flags().GetBool("once"); once {
		pet := heartbeat
		heartbeat = func() {
			if pet != nil {
				pet()
			}
			cancel()
		}
	}

	var opts []poller.Option
	if heartbeat != nil {
		opts = append(opts, poller.WithHeartbeat(heartbeat))
	}
	p := poller.New(cfg.Poller, sets, log, opts...)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go handleSignals(ctx, cancel, sigChan, log)

	log.Infof("starting blob ingestor: sets=%d, skipped=%d", len(sets), len(errs))
	notifySystemd(log, daemon.SdNotifyReady)

	if err := p.Run(ctx); err != nil {
		return fmt.Errorf("poller error: %w", err)
	}

	log.Info("blob ingestor stopped")
	return nil
}

// newAzureCredential builds the credential shared by blob sources and the
// Kusto sink: a user-assigned managed identity when configured, otherwise the
// default credential chain.
func newAzureCredential(cfg config.AzureConfig) (azcore.TokenCredential, error) {
	if cfg.ManagedIdentityClientID != "" {
		cred, err := azidentity.NewManagedIdentityCredential(&azidentity.ManagedIdentityCredentialOptions{
			ID: azidentity.ClientID(cfg.ManagedIdentityClientID),
		})
		if err != nil {
			return nil, fmt.Errorf("creating managed identity credential: %w", err)
		}
		return cred, nil
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("creating default azure credential: %w", err)
	}
	return cred, nil
}

func handleSignals(ctx context.Context, cancel context.CancelFunc, sigChan <-chan os.Signal, log logger.ILogger) {
	select {
	case sig := <-sigChan:
		log.Infof("received shutdown signal: %v", sig)
		notifySystemd(log, daemon.SdNotifyStopping)
		cancel()
	case <-ctx.Done():
	}
}

func applyCLIOverrides(cmd *cobra.Command, cfg *config.Config) {
	if n, _ := cmd.Flags().GetInt("concurrency"); n > 0 {
		cfg.Poller.Concurrency = n
	}
	if n, _ := cmd.Flags().GetInt("max-files"); n > 0 {
		cfg.Poller.MaxFilesPerRun = n
	}
}
