package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/profile-cli/internal/model"
)

var (
	profileName    string
	profileLEI     string
	profileCountry string
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Build a profile for a single institution",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Engine.Run(ctx, model.ProfileRequest{
			Name:     profileName,
			StrongID: profileLEI,
			Country:  profileCountry,
		})
		if err != nil {
			return eris.Wrap(err, "profile run")
		}

		zap.L().Info("profile complete",
			zap.String("job_id", result.JobID),
			zap.String("state", string(result.State)),
			zap.Int("entities", len(result.Family.AllEntities)),
			zap.Int("findings", len(result.Summary.Findings)),
			zap.Duration("duration", result.Duration),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	profileCmd.Flags().StringVar(&profileName, "name", "", "institution name (required)")
	profileCmd.Flags().StringVar(&profileLEI, "lei", "", "LEI of the institution, skips name disambiguation")
	profileCmd.Flags().StringVar(&profileCountry, "country", "", "expected country code, improves name disambiguation")
	_ = profileCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(profileCmd)
}
