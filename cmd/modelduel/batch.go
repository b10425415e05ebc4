package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rushteam/modelduel/feature"
)

var (
	flagIn  string
	flagOut string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Compare the selected adapters on every row of a CSV file",
	Long: `Read a CSV file with a header row, compare the selected adapters on each row
and write the table back with one Prediction_<adapter> column per adapter.

Rows that fail validation keep their place with empty prediction cells;
the row count of the output always equals the input.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var in io.Reader = cmd.InOrStdin()
		if flagIn != "-" {
			f, err := os.Open(flagIn)
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		table, err := feature.ReadCSV(in)
		if err != nil {
			return fmt.Errorf("%s: %w", flagIn, err)
		}

		a, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close(cmd.Context())

		out, report, err := a.engine.CompareBatch(cmd.Context(), flagAdapters, table)
		if err != nil {
			return err
		}

		var w io.Writer = cmd.OutOrStdout()
		if flagOut != "-" {
			f, err := os.Create(flagOut)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		if err := out.WriteCSV(w); err != nil {
			return fmt.Errorf("write %s: %w", flagOut, err)
		}
		fmt.Fprint(cmd.ErrOrStderr(), renderReport(report))
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&flagIn, "in", "-", "input CSV file (- for stdin)")
	batchCmd.Flags().StringVar(&flagOut, "out", "predictions.csv", "output CSV file (- for stdout)")
	rootCmd.AddCommand(batchCmd)
}
