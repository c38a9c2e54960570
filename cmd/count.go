package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pinpt/go-common/v10/log"
	"github.com/spf13/cobra"
)

// countCmd represents the count command
var countCmd = &cobra.Command{
	Use:   "count <profile-id>",
	Short: "print the number of records an export run would read",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		logger := log.NewCommandLogger(cmd)
		defer logger.Close()
		_ = godotenv.Load()
		profileID, err := strconv.Atoi(args[0])
		if err != nil {
			log.Fatal(logger, "invalid profile id", "arg", args[0])
		}
		ctx := context.Background()
		source, err := openSource(cmd)
		if err != nil {
			log.Fatal(logger, "error opening data source", "err", err)
		}
		defer source.Close()
		profiles, err := openProfiles(ctx, cmd, logger)
		if err != nil {
			log.Fatal(logger, "error opening profile store", "err", err)
		}
		defer profiles.Close()
		request, err := loadRequest(cmd, profiles, newRegistry(), profileID)
		if err != nil {
			log.Fatal(logger, "error building request", "err", err)
		}
		e := newExporter(ctx, cmd, logger, source, profiles)
		count, err := e.DataCount(ctx, request)
		if err != nil {
			log.Fatal(logger, "count failed", "err", err)
		}
		fmt.Println(count)
	},
}

func init() {
	rootCmd.AddCommand(countCmd)
	addStoreFlags(countCmd)
}
