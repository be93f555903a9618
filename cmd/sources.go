package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the configured source catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := buildCatalog()
		if err != nil {
			return err
		}

		type sourceInfo struct {
			ID            string   `json:"id"`
			Category      string   `json:"category"`
			Scope         string   `json:"scope"`
			TimeoutSecs   float64  `json:"timeout_secs"`
			Jurisdictions []string `json:"jurisdictions,omitempty"`
		}

		var out []sourceInfo
		for _, src := range reg.All() {
			out = append(out, sourceInfo{
				ID:            src.ID(),
				Category:      src.Category(),
				Scope:         string(src.Scope()),
				TimeoutSecs:   src.Timeout().Seconds(),
				Jurisdictions: src.Jurisdictions(),
			})
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
