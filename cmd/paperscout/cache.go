// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paperscout/internal/arxiv"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the arXiv fallback cache",
	Long: `Cache manages the local fallback cache that serves candidate papers when
arXiv is unreachable. Entries expire after 24 hours by default.`,
}

var cacheShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List the cached candidate papers",
	RunE:  runCacheShow,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the fallback cache file",
	RunE:  runCacheClear,
}

func init() {
	cacheShowCmd.Flags().Bool("all", false, "include expired entries")

	cacheCmd.AddCommand(cacheShowCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheShow(cmd *cobra.Command, args []string) error {
	cache := arxiv.FetchCache{Dir: dataDir(cmd)}

	maxAge := arxiv.DefaultCacheMaxAge
	if all, _ := cmd.Flags().GetBool("all"); all {
		// A generous window that keeps even stale entries visible.
		maxAge = arxiv.DefaultCacheMaxAge * 365
	}

	papers := cache.Load(maxAge)
	if len(papers) == 0 {
		fmt.Println("Cache is empty or expired.")
		return nil
	}

	for i, p := range papers {
		fmt.Printf("%-4d  %s\n", i+1, p.Title)
	}
	fmt.Printf("\n%d cached papers\n", len(papers))
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	cache := arxiv.FetchCache{Dir: dataDir(cmd)}
	removed, err := cache.Clear()
	if err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	if !removed {
		fmt.Println("Cache is already empty.")
		return nil
	}
	fmt.Println("Cache cleared.")
	return nil
}
