package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rushteam/modelduel/core"
)

var (
	flagText     string
	flagValues   []float64
	flagFeatures map[string]string
	flagJSON     bool
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare the selected adapters on one input",
	Long: `Compare the selected adapters on exactly one input:

  --text      a review text (tokenized by each text adapter)
  --values    numeric features in the configured order, e.g. 1,0,3,1
  --features  named numeric features, e.g. feature1=1,feature2=0

An empty text is rejected before any model is called.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := compareInput(cmd)
		if err != nil {
			return err
		}

		a, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close(cmd.Context())

		v, err := a.engine.Compare(cmd.Context(), flagAdapters, in)
		if err != nil {
			if core.IsEmptyInput(err) {
				return fmt.Errorf("no prediction: %w", err)
			}
			return err
		}
		if flagJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(v)
		}
		fmt.Fprint(cmd.OutOrStdout(), renderVerdict(v, scalesOf(a.registry.List())))
		return nil
	},
}

// compareInput 根据 flag 构造输入；三种输入必须恰好给出一种。
func compareInput(cmd *cobra.Command) (core.Input, error) {
	var (
		in    core.Input
		count int
	)
	if cmd.Flags().Changed("text") {
		in, count = core.TextInput(flagText), count+1
	}
	if cmd.Flags().Changed("values") {
		in, count = core.VectorInput(flagValues...), count+1
	}
	if cmd.Flags().Changed("features") {
		in, count = core.RowInput(flagFeatures), count+1
	}
	if count != 1 {
		return core.Input{}, fmt.Errorf("exactly one of --text, --values or --features is required")
	}
	return in, nil
}

func init() {
	compareCmd.Flags().StringVar(&flagText, "text", "", "review text")
	compareCmd.Flags().Float64SliceVar(&flagValues, "values", nil, "numeric features in configured order")
	compareCmd.Flags().StringToStringVar(&flagFeatures, "features", nil, "named numeric features (name=value,...)")
	compareCmd.Flags().BoolVar(&flagJSON, "json", false, "print the verdict as JSON")
	rootCmd.AddCommand(compareCmd)
}
