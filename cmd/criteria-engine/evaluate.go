package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mindstorm-criteria-engine/internal/service"
)

func newEvaluateCommand() *cobra.Command {
	var (
		file    string
		compact bool
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a case file and print the clinical status as JSON",
		Long: `evaluate reads an evaluation request (entries, optional window settings, overrides,
rejected evidence keys and node ids) from a JSON file, or from stdin when --file is "-".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}

			var req service.EvaluateRequest
			if err := json.Unmarshal(data, &req); err != nil {
				return fmt.Errorf("invalid case file: %w", err)
			}
			req.Origin = service.OriginCLI

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			resp, err := a.service.Evaluate(cmd.Context(), &req)
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			if !compact {
				encoder.SetIndent("", "  ")
			}
			return encoder.Encode(resp)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "-", `case file to evaluate ("-" reads stdin)`)
	cmd.Flags().BoolVar(&compact, "compact", false, "print single-line JSON")
	return cmd
}

func readInput(stdin io.Reader, file string) ([]byte, error) {
	if file == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read case file: %w", err)
	}
	return data, nil
}
