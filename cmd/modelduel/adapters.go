package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var flagLoad bool

var adaptersCmd = &cobra.Command{
	Use:   "adapters",
	Short: "List the configured adapters and their status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close(cmd.Context())

		if flagLoad {
			a.registry.LoadAll(cmd.Context())
		}
		infos := a.registry.List()
		if flagJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(infos)
		}
		fmt.Fprint(cmd.OutOrStdout(), renderAdapters(infos))
		return nil
	},
}

func init() {
	adaptersCmd.Flags().BoolVar(&flagLoad, "load", false, "load every adapter before listing")
	adaptersCmd.Flags().BoolVar(&flagJSON, "json", false, "print as JSON")
	rootCmd.AddCommand(adaptersCmd)
}
