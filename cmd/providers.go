package main

import (
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/sells-group/geo-enrich/pkg/geocode"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List the available geocoding providers",
	RunE: func(cmd *cobra.Command, args []string) error {
		renderProviders(cmd.OutOrStdout(), cfg.Geocode.Provider)
		return nil
	},
}

func renderProviders(w io.Writer, configured string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Provider", "API Key", "Default"})
	for _, name := range geocode.Names() {
		key, def := "none", ""
		if geocode.RequiresKey(name) {
			key = "required"
		}
		if name == configured {
			def = "*"
		}
		table.Append([]string{name, key, def})
	}
	table.Render()
}

func init() {
	rootCmd.AddCommand(providersCmd)
}
