package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/matlukowski/readTube-sub000/pkg/config"
	"github.com/matlukowski/readTube-sub000/pkg/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// runtimeState is filled by the root pre-run hook and shared by subcommands
type runtimeState struct {
	cfg       *config.Config
	logger    *logrus.Logger
	logCloser io.Closer
}

// skipsConfig lists commands that run without loading configuration
var skipsConfig = map[string]bool{
	"version":    true,
	"help":       true,
	"completion": true,
}

// Execute builds the command tree and runs it. Called by main.main().
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCmd creates a fresh command tree (exported for testing)
func NewRootCmd() *cobra.Command {
	state := &runtimeState{}

	rootCmd := &cobra.Command{
		Use:   "readtube-api",
		Short: "readTube transcript API server",
		Long: `readTube API - turns YouTube videos into plain-text transcripts

Each request runs a cascade of strategies until one produces text:
  • Published captions (manual first, then auto-generated)
  • Audio download with remote speech-to-text
  • Audio download with a local whisper.cpp engine
  • A transcript supplied by the client

Results are cached per video and transcription minutes are charged
against a per-caller quota.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if skipsConfig[cmd.Name()] {
				return nil
			}
			return state.load(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if state.logCloser != nil {
				return state.logCloser.Close()
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "enable JSON formatted logs")

	rootCmd.AddCommand(
		newServeCmd(state),
		newTranscribeCmd(state),
		newMigrateCmd(state),
		newQuotaCmd(state),
		newVersionCmd(),
	)
	return rootCmd
}

// load initializes configuration, applies flag overrides and configures the
// standard logger
func (s *runtimeState) load(cmd *cobra.Command) error {
	if err := config.Init(); err != nil {
		return fmt.Errorf("error initializing config: %w", err)
	}

	if cmd.Flags().Changed("log-level") {
		level, _ := cmd.Flags().GetString("log-level")
		config.Set("logging.level", level)
	}
	if jsonLogs, _ := cmd.Flags().GetBool("json-logs"); jsonLogs {
		config.Set("logging.format", "json")
	}

	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}

	closer, err := logging.Setup(cfg.Logging)
	if err != nil {
		return err
	}

	s.cfg = cfg
	s.logger = logrus.StandardLogger()
	s.logCloser = closer
	return nil
}
