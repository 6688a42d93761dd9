// Package cmd contains all CLI commands for bindgen.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version is the current version of bindgen
	Version = "0.1.0"

	// Global flags
	verbose    bool
	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bindgen",
	Short: "P/Invoke bindings generator for C headers",
	Long: `bindgen parses C header files and generates C# interop source.

It reads an XML policy file describing which headers belong to which native
libraries, plus rename, removal, and enum-flag rules, and emits LibraryImport
declarations, struct layouts, and merged enums for the managed side.

Main capabilities:
  - Parse C headers with tree-sitter, following transitive includes
  - Map C types to interop-safe C# types, with opaque handle detection
  - Merge partial enum declarations across headers into one per name
  - Collect object-like macros into generated constant enums
  - Emit one file per library or a single merged file

Examples:
  bindgen generate -c bindings.xml -o out/        # Generate from a policy
  bindgen generate -i sdl.h -l SDL2 -o out/       # Single header, no policy
  bindgen cache status                            # Inspect the output cache

See 'bindgen <command> --help' for command-specific options.`,
	Version: Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: .bindgen/config.yaml)")
}
