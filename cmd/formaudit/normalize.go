package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newNormalizeCmd() *cobra.Command {
	var keepStopwords bool

	cmd := &cobra.Command{
		Use:   "normalize TEXT...",
		Short: "Print the normalized text and canonical key of each argument",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			normalizer := newNormalizer(cfg)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "INPUT\tNORMALIZED\tCANONICAL KEY")
			for _, text := range args {
				fmt.Fprintf(w, "%s\t%s\t%s\n",
					text,
					normalizer.Normalize(text, !keepStopwords),
					normalizer.CanonicalKey(text),
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&keepStopwords, "keep-stopwords", false, "keep stopwords in the normalized column")

	return cmd
}
