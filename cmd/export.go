package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/pinpt/go-common/v10/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export <profile-id>",
	Short: "run an export for a profile",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cmdLogger := log.NewCommandLogger(cmd)
		defer cmdLogger.Close()
		_ = godotenv.Load()
		profileID, err := strconv.Atoi(args[0])
		if err != nil {
			log.Fatal(cmdLogger, "invalid profile id", "arg", args[0])
		}
		logger := log.With(cmdLogger, "run", uuid.New().String())
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

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

		var bar *progressbar.ProgressBar
		if noProgress, _ := cmd.Flags().GetBool("no-progress"); !noProgress {
			request.Progress = func(done, total int, msg string) {
				if msg != "" {
					if bar != nil {
						bar.Describe(msg)
					}
					return
				}
				if bar == nil {
					bar = progressbar.NewOptions64(
						int64(total),
						progressbar.OptionSetDescription("exporting"),
						progressbar.OptionSetWidth(50),
						progressbar.OptionThrottle(100*time.Millisecond),
						progressbar.OptionShowCount(),
					)
				}
				bar.ChangeMax64(int64(total))
				bar.Set64(int64(done))
			}
		}

		e := newExporter(ctx, cmd, logger, source, profiles)
		started := time.Now()
		result, err := e.Export(ctx, request)
		if bar != nil {
			bar.Finish()
			fmt.Println()
		}
		if err != nil {
			log.Fatal(logger, "export failed", "err", err, "duration", time.Since(started))
		}
		if result.Succeeded() {
			fmt.Println(color.GreenString("export succeeded"), "in", time.Since(started).Round(time.Millisecond))
		} else {
			fmt.Println(color.RedString("export finished with errors:"), result.LastError)
		}
		for _, f := range result.Files {
			fmt.Printf("  %s (store %d)\n", f.FileName, f.StoreID)
		}
		if result.DownloadFileName != "" {
			fmt.Println("download:", color.HiBlueString(result.DownloadFileName))
		}
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	addStoreFlags(exportCmd)
	exportCmd.Flags().String("out", "exports", "folder the export folders live under")
	exportCmd.Flags().Bool("no-progress", false, "disable the progress bar")
}
