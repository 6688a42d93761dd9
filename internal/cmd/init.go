// Package cmd implements the init command for bindgen.
package cmd

import (
	"fmt"
	"os"

	"github.com/hargabyte/bindgen/internal/config"
	"github.com/spf13/cobra"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default .bindgen/config.yaml",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}

	path, err := config.SaveDefault(wd)
	if err != nil {
		return err
	}

	fmt.Printf("wrote %s\n", path)
	return nil
}
