// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paperscout/internal/pipeline"
	"github.com/pdiddy/paperscout/internal/store"
	"github.com/pdiddy/paperscout/pkg/types"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect the local run history",
	Long: `Runs lists and shows past retrieval runs recorded in the local SQLite
history. Use show with a run ID for the full paper selection, or with
--file to display a saved run YAML instead.`,
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded retrieval runs, newest first",
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Show one recorded run with its paper selection",
	RunE:  runRunsShow,
}

func init() {
	runsListCmd.Flags().Int("limit", 20, "maximum runs to list (0 = all)")
	runsListCmd.Flags().Bool("json", false, "output as JSON")

	runsShowCmd.Flags().String("file", "", "show a saved run YAML file instead of a history entry")
	runsShowCmd.Flags().Bool("json", false, "output as JSON")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

func openStore(cmd *cobra.Command) (*store.Store, error) {
	return store.Open(types.StoreConfig{DataDir: dataDir(cmd)})
}

func runRunsList(cmd *cobra.Command, args []string) error {
	s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := s.ListRuns(context.Background(), limit)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	fmt.Printf("%-6s  %-20s  %-44s  %-14s  %s\n", "ID", "When", "Query", "Source", "Papers")
	fmt.Println(strings.Repeat("-", 96))
	for _, r := range runs {
		fmt.Printf("%-6d  %-20s  %-44s  %-14s  %d\n",
			r.ID, r.CreatedAt.Local().Format(time.DateTime),
			pipeline.Truncate(r.Query, 44), r.FetchSource, r.SelectedCount)
	}
	fmt.Printf("\n%d runs\n", len(runs))
	return nil
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	// Saved run file mode.
	if path, _ := cmd.Flags().GetString("file"); path != "" {
		rf, err := pipeline.ReadRunFile(path)
		if err != nil {
			return err
		}
		res := rf.ToResult()
		if jsonOutput {
			return pipeline.FormatJSON(res, os.Stdout)
		}
		pipeline.FormatTable(res, os.Stdout)
		return nil
	}

	if len(args) != 1 {
		return fmt.Errorf("provide a run ID or --file")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid run ID %q", args[0])
	}

	s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	detail, err := s.GetRun(context.Background(), id)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(detail)
	}

	fmt.Printf("Run %d  (%s)\n", detail.ID, detail.CreatedAt.Local().Format(time.DateTime))
	fmt.Printf("Query:      %s\n", detail.Query)
	fmt.Printf("Categories: %s\n", strings.Join(detail.Categories, ", "))
	fmt.Printf("Keywords:   %s\n", strings.Join(detail.Keywords, ", "))
	fmt.Printf("Source:     %s\n", detail.FetchSource)
	fmt.Printf("Ranking:    %s\n", detail.Backend)
	fmt.Println()

	res := pipeline.Result{
		Papers:        detail.Papers,
		SelectedCount: detail.SelectedCount,
		TotalFetched:  detail.TotalFetched,
		FilteredCount: detail.FilteredCount,
		Metadata:      pipeline.Metadata{FetchSource: detail.FetchSource},
	}
	pipeline.FormatTable(res, os.Stdout)
	return nil
}
