package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/formaudit/backend/config"
	"github.com/formaudit/backend/internal/infrastructure/checklist"
	"github.com/formaudit/backend/internal/infrastructure/report"
	"github.com/formaudit/backend/internal/infrastructure/snapshot"
	"github.com/formaudit/backend/internal/usecase"
)

type auditOptions struct {
	snapshot  string
	checklist string
	threshold float64
	format    string
	out       string
}

func newAuditCmd(root *cliOptions) *cobra.Command {
	opts := &auditOptions{}

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Reconcile a field snapshot against the checklist and report",
		Long: "Reads a JSON or YAML field snapshot produced by the extractor, matches it " +
			"against the checklist, infers which fields are mandatory and writes the report.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runAudit(cmd, cfg, opts, root.verbose)
		},
	}

	cmd.Flags().StringVarP(&opts.snapshot, "snapshot", "s", "", "field snapshot file (.json, .yaml)")
	cmd.Flags().StringVarP(&opts.checklist, "checklist", "c", "", "checklist file (default from configuration)")
	cmd.Flags().Float64VarP(&opts.threshold, "threshold", "t", 0, "similarity threshold in (0, 1] (default from configuration)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", string(report.FormatMarkdown), "report format: json, markdown or terminal")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "write the report to this file instead of stdout")
	_ = cmd.MarkFlagRequired("snapshot")

	return cmd
}

func runAudit(cmd *cobra.Command, cfg *config.Config, opts *auditOptions, verbose bool) error {
	format, err := report.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	threshold := cfg.Matching.Threshold
	if cmd.Flags().Changed("threshold") {
		if opts.threshold <= 0 || opts.threshold > 1 {
			return fmt.Errorf("threshold must be in (0, 1], got %v", opts.threshold)
		}
		threshold = opts.threshold
	}
	checklistPath := cfg.Checklist.Path
	if opts.checklist != "" {
		checklistPath = opts.checklist
	}

	snap, err := snapshot.LoadFile(opts.snapshot)
	if err != nil {
		return err
	}
	fields, signals := snapshot.ToDomain(snap)

	logger := newLogger(cmd, verbose)
	defer logger.Sync() //nolint:errcheck

	normalizer := newNormalizer(cfg)
	synonyms, err := usecase.NewSynonymIndex(normalizer, usecase.WithDefaultSynonyms(cfg.Matching.Synonyms))
	if err != nil {
		return fmt.Errorf("invalid synonym configuration: %w", err)
	}

	svc := usecase.NewAuditService(
		checklist.NewFileRepository(checklistPath, logger.Named("checklist")),
		usecase.NewMatchingService(usecase.MatchConfig{
			Threshold:  threshold,
			Normalizer: normalizer,
			Synonyms:   synonyms,
			Logger:     logger.Named("matcher"),
		}),
		usecase.NewRequirednessClassifier(usecase.ClassifierConfig{
			RequiredKeywords: cfg.Classifier.RequiredKeywords,
			SkipNonEditable:  cfg.Classifier.SkipNonEditable,
			Normalizer:       normalizer,
			Logger:           logger.Named("classifier"),
		}),
		nil,
		usecase.AuditServiceConfig{Logger: logger.Named("audit")},
	)

	result, err := svc.Audit(cmd.Context(), usecase.AuditRequest{Fields: fields, Signals: signals})
	if err != nil {
		return err
	}

	out, err := report.Render(result, format)
	if err != nil {
		return err
	}

	if opts.out == "" {
		_, err = cmd.OutOrStdout().Write(out)
		return err
	}
	if err := os.WriteFile(opts.out, out, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "report written to %s (coverage %.1f%%)\n",
		opts.out, result.Statistics.CoveragePercentage)
	return nil
}
