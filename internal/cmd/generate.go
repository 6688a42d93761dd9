// Package cmd implements the generate command for bindgen.
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hargabyte/bindgen/internal/cache"
	"github.com/hargabyte/bindgen/internal/config"
	"github.com/hargabyte/bindgen/internal/cparse"
	"github.com/hargabyte/bindgen/internal/gen"
	"github.com/hargabyte/bindgen/internal/policy"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate C# interop source from C headers",
	Long: `Generate parses the headers named by a policy file (or passed directly),
follows their transitive includes, and writes C# interop source.

The generation process:
  1. Parses each root header and everything it includes
  2. Computes include depths and filters out-of-depth files
  3. Maps C declarations to LibraryImport, struct, and enum blocks
  4. Merges partial enums and macro constant groups across headers
  5. Writes one file per library, or a single merged file

Examples:
  bindgen generate -c bindings.xml -o out/
  bindgen generate -c bindings.xml --multi-file -o out/
  bindgen generate -i sdl.h -l SDL2 -n SDL.Interop -o out/
  bindgen generate -c bindings.xml --tolerate --include-depth 1`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

// Command-line flags
var (
	genPolicyPath   string
	genHeaders      []string
	genLibrary      string
	genNamespace    string
	genIncludeDirs  []string
	genIncludeDepth int
	genMultiFile    bool
	genTolerate     bool
	genNoCache      bool
	genOutDir       string
)

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVarP(&genPolicyPath, "policy", "c", "", "Path to the XML policy file")
	generateCmd.Flags().StringSliceVarP(&genHeaders, "header", "i", nil, "Header to process directly (repeatable; alternative to --policy)")
	generateCmd.Flags().StringVarP(&genLibrary, "library", "l", "", "Native library name for directly passed headers")
	generateCmd.Flags().StringVarP(&genNamespace, "namespace", "n", "", "Namespace for the generated source")
	generateCmd.Flags().StringSliceVarP(&genIncludeDirs, "include-directory", "I", nil, "Additional include search directory (repeatable)")
	generateCmd.Flags().IntVar(&genIncludeDepth, "include-depth", gen.UnboundedDepth, "Max include hops that still emit declarations (-1 = unbounded)")
	generateCmd.Flags().BoolVar(&genMultiFile, "multi-file", false, "Emit one file per library instead of one merged file")
	generateCmd.Flags().BoolVar(&genTolerate, "tolerate", false, "Skip failing headers instead of aborting")
	generateCmd.Flags().BoolVar(&genNoCache, "no-cache", false, "Bypass the output cache")
	generateCmd.Flags().StringVarP(&genOutDir, "output", "o", ".", "Output directory")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	pol, err := loadPolicy()
	if err != nil {
		return err
	}

	opts := buildOptions(cmd.Flags(), cfg, pol)

	// A policy file is the cache key's anchor; direct headers skip caching.
	useCache := cfg.Cache.Enabled && !genNoCache && genPolicyPath != ""
	var store *cache.Cache
	if useCache {
		store = openCache()
	}
	if store != nil {
		defer store.Close()
		if done, err := tryCached(store); err == nil && done {
			return nil
		}
	}

	result, err := gen.New(pol, opts).Generate()
	if err != nil {
		return err
	}

	for _, warning := range result.Warnings {
		fmt.Fprintln(os.Stderr, "warning:", warning)
	}

	written, err := writeOutputs(result, opts)
	if err != nil {
		return err
	}

	if store != nil {
		storeOutputs(store, result, written)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "parsed %d files\n", len(result.InputFiles))
	}
	for _, name := range written {
		fmt.Println(name)
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromPath(configPath)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return config.Load(wd)
}

// loadPolicy builds the effective policy: the XML file when given, or a
// minimal single-library policy from the direct-header flags.
func loadPolicy() (*policy.Policy, error) {
	if genPolicyPath != "" {
		if len(genHeaders) > 0 {
			return nil, fmt.Errorf("--policy and --header are mutually exclusive")
		}
		return policy.Load(genPolicyPath)
	}

	if len(genHeaders) == 0 {
		return nil, fmt.Errorf("either --policy or --header is required")
	}
	if genLibrary == "" {
		return nil, fmt.Errorf("--library is required with --header")
	}

	rules, err := policy.CompileRules(nil, nil, nil)
	if err != nil {
		return nil, err
	}
	return &policy.Policy{
		Visibility: "public",
		Libraries: []policy.Library{{
			Name:      genLibrary,
			ClassName: policy.DefaultClassName,
			Headers:   genHeaders,
		}},
		Rules: rules,
	}, nil
}

func buildOptions(flags *pflag.FlagSet, cfg *config.Config, pol *policy.Policy) gen.Options {
	systemDirs := cfg.Compiler.SystemIncludeDirs
	if len(systemDirs) == 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		systemDirs = cparse.DiscoverSystemIncludeDirs(ctx, cfg.Compiler.Command)
	}

	depth := genIncludeDepth
	if !flags.Changed("include-depth") {
		depth = cfg.Generate.IncludeDepth
	}

	namespace := genNamespace
	if namespace == "" {
		namespace = cfg.Generate.Namespace
	}

	return gen.Options{
		IncludeDirs:       append(append([]string{}, pol.IncludeDirs...), genIncludeDirs...),
		SystemIncludeDirs: systemDirs,
		IncludeDepth:      depth,
		MultiUnit:         genMultiFile || cfg.Generate.MultiFile,
		Tolerate:          genTolerate || cfg.Generate.Tolerate,
		Namespace:         namespace,
	}
}

func openCache() *cache.Cache {
	wd, err := os.Getwd()
	if err != nil {
		return nil
	}
	dir, err := config.EnsureConfigDir(wd)
	if err != nil {
		return nil
	}
	store, err := cache.Open(dir)
	if err != nil {
		if verbose {
			fmt.Fprintln(os.Stderr, "cache unavailable:", err)
		}
		return nil
	}
	return store
}

// tryCached re-fingerprints the previous run's inputs and replays its
// outputs when nothing changed. Any cache failure falls through to a
// normal generation.
func tryCached(store *cache.Cache) (bool, error) {
	fingerprint, inputs, err := store.Latest()
	if err != nil || fingerprint == "" {
		return false, err
	}

	current, err := cache.Fingerprint(genPolicyPath, inputs)
	if err != nil || current != fingerprint {
		return false, err
	}

	outputs, err := store.Lookup(fingerprint)
	if err != nil || outputs == nil {
		return false, err
	}

	if err := os.MkdirAll(genOutDir, 0755); err != nil {
		return false, err
	}
	for _, out := range outputs {
		path := filepath.Join(genOutDir, out.Name)
		if err := os.WriteFile(path, []byte(out.Content), 0644); err != nil {
			return false, err
		}
		fmt.Println(path)
	}
	if verbose {
		fmt.Fprintln(os.Stderr, "outputs replayed from cache")
	}
	return true, nil
}

// writeOutputs writes the generated files and returns their paths in
// emission order.
func writeOutputs(result *gen.Result, opts gen.Options) ([]string, error) {
	if err := os.MkdirAll(genOutDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	if !opts.MultiUnit {
		name := mergedFileName(opts.Namespace)
		path := filepath.Join(genOutDir, name)
		if err := os.WriteFile(path, []byte(result.Merged), 0644); err != nil {
			return nil, fmt.Errorf("writing %s: %w", path, err)
		}
		return []string{path}, nil
	}

	var written []string
	for _, name := range result.UnitOrder {
		path := filepath.Join(genOutDir, name)
		if err := os.WriteFile(path, []byte(result.Units[name]), 0644); err != nil {
			return nil, fmt.Errorf("writing %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}

func mergedFileName(namespace string) string {
	if namespace == "" {
		namespace = policy.DefaultNamespace
	}
	return namespace + ".cs"
}

func storeOutputs(store *cache.Cache, result *gen.Result, written []string) {
	fingerprint, err := cache.Fingerprint(genPolicyPath, result.InputFiles)
	if err != nil {
		return
	}

	outputs := make([]cache.Output, 0, len(written))
	for _, path := range written {
		name := filepath.Base(path)
		content := result.Merged
		if content == "" {
			content = result.Units[name]
		}
		outputs = append(outputs, cache.Output{Name: name, Content: content})
	}

	if err := store.Store(fingerprint, result.InputFiles, outputs); err != nil && verbose {
		fmt.Fprintln(os.Stderr, "cache store failed:", err)
	}
}
