package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/formaudit/backend/internal/infrastructure/checklist"
)

func newChecklistCmd(root *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checklist",
		Short: "Manage the fundamental-fields checklist file",
	}
	cmd.AddCommand(newChecklistInitCmd(root))
	return cmd
}

func newChecklistInitCmd(root *cliOptions) *cobra.Command {
	var (
		path  string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the sample checklist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				path = cfg.Checklist.Path
			}

			repo := checklist.NewFileRepository(path, newLogger(cmd, root.verbose))
			if err := repo.Init(force); err != nil {
				if errors.Is(err, checklist.ErrChecklistExists) {
					return fmt.Errorf("%s already exists, use --force to overwrite", repo.Path())
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote sample checklist with %d entries to %s\n",
				len(checklist.DefaultEntries()), repo.Path())
			return nil
		},
	}

	cmd.Flags().StringVarP(&path, "path", "p", "", "checklist file (default from configuration)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	return cmd
}
