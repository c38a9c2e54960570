package cmd

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/pinpt/go-common/v10/log"
	"github.com/spf13/cobra"
)

const previewCellWidth = 24

func previewCell(v interface{}) string {
	s := fmt.Sprintf("%v", v)
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > previewCellWidth {
		s = s[:previewCellWidth-1] + "…"
	}
	return s
}

// previewCmd represents the preview command
var previewCmd = &cobra.Command{
	Use:   "preview <profile-id>",
	Short: "render one page of converted records without invoking the provider",
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
		page, _ := cmd.Flags().GetInt("page")
		hint, _ := cmd.Flags().GetInt("total")

		e := newExporter(ctx, cmd, logger, source, profiles)
		records, err := e.Preview(ctx, request, page, hint)
		if err != nil {
			log.Fatal(logger, "preview failed", "err", err)
		}
		if len(records) == 0 {
			fmt.Println("no records")
			return
		}
		var cols []string
		for k := range records[0] {
			cols = append(cols, k)
		}
		sort.Strings(cols)
		header := color.New(color.FgHiBlue, color.Bold)
		for _, c := range cols {
			header.Printf("%-*s", previewCellWidth+1, previewCell(c))
		}
		fmt.Println()
		for _, r := range records {
			for _, c := range cols {
				fmt.Printf("%-*s", previewCellWidth+1, previewCell(r[c]))
			}
			fmt.Println()
		}
		fmt.Println(color.GreenString("%d records", len(records)), "on page", page)
	},
}

func init() {
	rootCmd.AddCommand(previewCmd)
	addStoreFlags(previewCmd)
	previewCmd.Flags().Int("page", 0, "zero based page index")
	previewCmd.Flags().Int("total", -1, "total record hint to skip the count query, negative runs the count")
}
