package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newReviewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Export or import clinician overrides and evidence feedback",
	}
	cmd.AddCommand(newReviewExportCommand(), newReviewImportCommand())
	return cmd
}

func newReviewExportCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every stored review record as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			store, err := a.requireStore()
			if err != nil {
				return err
			}

			writer := cmd.OutOrStdout()
			if output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create export file: %w", err)
				}
				defer f.Close()
				writer = f
			}
			return store.ExportJSON(cmd.Context(), writer)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "-", `export file ("-" writes stdout)`)
	return cmd
}

func newReviewImportCommand() *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load review records from a JSON export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			store, err := a.requireStore()
			if err != nil {
				return err
			}

			reader := cmd.InOrStdin()
			if input != "-" {
				f, err := os.Open(input)
				if err != nil {
					return fmt.Errorf("failed to open import file: %w", err)
				}
				defer f.Close()
				reader = f
			}

			imported, skipped, err := store.ImportJSON(cmd.Context(), reader)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d record(s), skipped %d\n", imported, skipped)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "-", `export file to load ("-" reads stdin)`)
	return cmd
}
