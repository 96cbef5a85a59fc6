package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/formaudit/backend/config"
	"github.com/formaudit/backend/internal/usecase"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cliOptions holds the persistent flags shared by every subcommand
type cliOptions struct {
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:           "formaudit",
		Short:         "Audit web forms against a fundamental-fields checklist",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log matcher and classifier decisions to stderr")

	root.AddCommand(newAuditCmd(opts))
	root.AddCommand(newChecklistCmd(opts))
	root.AddCommand(newNormalizeCmd())

	return root
}

// loadConfig reads the service configuration so the CLI shares its tables
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func newNormalizer(cfg *config.Config) *usecase.TextNormalizer {
	return usecase.NewTextNormalizer(usecase.NormalizerConfig{
		Stopwords:     cfg.Normalizer.Stopwords,
		Abbreviations: cfg.Normalizer.Abbreviations,
	})
}

// newLogger writes to stderr so stdout stays reserved for reports
func newLogger(cmd *cobra.Command, verbose bool) *zap.Logger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	encoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	core := zapcore.NewCore(encoder, zapcore.AddSync(cmd.ErrOrStderr()), level)
	return zap.New(core)
}
