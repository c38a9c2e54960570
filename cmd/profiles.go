package cmd

import (
	"context"
	"fmt"

	"github.com/bedasa/dataport/sdk"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/pinpt/go-common/v10/log"
	"github.com/spf13/cobra"
)

// profilesCmd represents the profiles command
var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "list the configured export profiles",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		logger := log.NewCommandLogger(cmd)
		defer logger.Close()
		_ = godotenv.Load()
		ctx := context.Background()
		profiles, err := openProfiles(ctx, cmd, logger)
		if err != nil {
			log.Fatal(logger, "error opening profile store", "err", err)
		}
		defer profiles.Close()
		list, err := profiles.List()
		if err != nil {
			log.Fatal(logger, "error listing profiles", "err", err)
		}
		if len(list) == 0 {
			fmt.Println("no profiles")
			return
		}
		for _, p := range list {
			state := color.GreenString("enabled")
			if !p.Enabled {
				state = color.RedString("disabled")
			}
			fmt.Printf("%4d  %-30s %-20s %s\n", p.ID, p.Name, p.ProviderSystemName, state)
			if p.ResultInfo != "" {
				if r, err := sdk.ParseExportResult(p.ResultInfo); err == nil {
					if r.Succeeded() {
						fmt.Printf("      last run: %d files\n", len(r.Files))
					} else {
						fmt.Printf("      last run: %s\n", color.RedString(r.LastError))
					}
				}
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(profilesCmd)
	profilesCmd.Flags().String("profiles", "profiles.json", "path to the profile store file")
	profilesCmd.Flags().String("redis", "", "redis host:port for the profile store, overrides --profiles")
	profilesCmd.Flags().Int("redisDB", 0, "redis db number")
}
