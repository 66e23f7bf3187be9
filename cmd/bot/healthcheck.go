package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthcheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "healthcheck",
		Short: "Validate configuration and response generation",
		Long: `Load the configuration and response catalog, draw one verdict and
print OK. Exits with a non-zero status if anything fails. Telegram is not
contacted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if err := runHealthcheck(opts); err != nil {
				fmt.Fprintf(out, "ERROR: %v\n", err)
				return err
			}
			fmt.Fprintln(out, "OK")
			return nil
		},
	}
}

func runHealthcheck(opts *rootOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	selector, err := buildSelector(cfg)
	if err != nil {
		return err
	}

	if err := selector.Check(); err != nil {
		return err
	}
	if text, category := selector.Select(); text == "" || !category.Valid() {
		return fmt.Errorf("selector returned an empty response")
	}
	return nil
}
