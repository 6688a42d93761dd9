// Package cmd implements the cache commands for bindgen.
package cmd

import (
	"fmt"
	"os"

	"github.com/hargabyte/bindgen/internal/cache"
	"github.com/hargabyte/bindgen/internal/config"
	"github.com/spf13/cobra"
)

// cacheCmd represents the cache command group
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the output cache",
}

var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cache location and contents",
	Args:  cobra.NoArgs,
	RunE:  runCacheStatus,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached runs and outputs",
	Args:  cobra.NoArgs,
	RunE:  runCacheClear,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

func openCacheStrict() (*cache.Cache, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	dir, err := config.FindConfigDir(wd)
	if err != nil {
		return nil, fmt.Errorf("no %s directory found; run generate first", config.ConfigDirName)
	}
	return cache.Open(dir)
}

func runCacheStatus(cmd *cobra.Command, args []string) error {
	store, err := openCacheStrict()
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.GetStats()
	if err != nil {
		return err
	}

	fmt.Printf("cache: %s\n", store.Path())
	fmt.Printf("runs: %d\n", stats.RunCount)
	fmt.Printf("outputs: %d\n", stats.OutputCount)
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	store, err := openCacheStrict()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Clear(); err != nil {
		return err
	}
	fmt.Println("cache cleared")
	return nil
}
