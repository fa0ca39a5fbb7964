// Package cli implements the command-line interface of pyscan.
package cli

import (
	"fmt"
	"os"
	"runtime"

	"github.com/replit/pyscan/internal/config"
	"github.com/replit/pyscan/internal/trace"
	"github.com/replit/pyscan/internal/util"
	"github.com/spf13/cobra"
)

// defaultPython is the CPython version whose suffix table is used
// when neither --suffixes nor --interpreter is given.
const defaultPython = "3.12"

// parseOutputFormat takes "table", "json" or "yaml" and returns an
// outputFormat enum value.
func parseOutputFormat(formatStr string) (outputFormat, error) {
	for f, name := range outputFormatNames {
		if name == formatStr {
			return outputFormat(f), nil
		}
	}
	return 0, fmt.Errorf(`invalid format %#v (must be "table", "json" or "yaml")`, formatStr)
}

// version is set at build time to a Git tag or the string
// "development version" when not tagging a release.
var version = "unknown version"

// getVersion returns a string that can be printed when calling
// 'pyscan --version'.
func getVersion() string {
	return "pyscan " + version
}

// DoCLI reads the command-line arguments and runs the appropriate
// code, then exits the process (or returns to indicate normal exit).
func DoCLI() {
	stopTracing := trace.MaybeTrace(version)

	var suffixOpts suffixOptions
	var formatStr string
	var outputFile string
	var kinds []string
	var dbFile string
	var force bool

	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:     "pyscan",
		Short:   "Discover modules and resources in installed Python packages",
		Version: getVersion(),
	}
	rootCmd.SetVersionTemplate(`{{.Version}}` + "\n")
	// Errors are reported by DoCLI once tracing has been flushed.
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	rootCmd.PersistentFlags().StringVar(
		&suffixOpts.file, "suffixes", "", "read the suffix table from a TOML, YAML or JSON file",
	)
	rootCmd.PersistentFlags().StringVar(
		&suffixOpts.interpreter, "interpreter", "", "ask this Python interpreter for its suffix table",
	)
	rootCmd.PersistentFlags().StringVar(
		&suffixOpts.python, "python", defaultPython, "CPython version of the default suffix table",
	)
	rootCmd.PersistentFlags().StringVar(
		&suffixOpts.platform, "platform", runtime.GOOS+"/"+runtime.GOARCH,
		"platform of the default suffix table, as GOOS/GOARCH",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&config.Quiet, "quiet", "q", false, "don't show what commands are being run",
	)
	rootCmd.PersistentFlags().BoolVar(
		&config.Verbose, "verbose", false, "report skipped and unowned files",
	)
	rootCmd.PersistentFlags().BoolP(
		"help", "h", false, "display command-line usage",
	)
	rootCmd.PersistentFlags().BoolP(
		"version", "v", false, "display command version",
	)

	cmdScan := &cobra.Command{
		Use:   "scan ROOT",
		Short: "List every resource under a package root",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, err := parseOutputFormat(formatStr)
			if err != nil {
				return err
			}
			return runScan(suffixOpts, args[0], outputFormat, outputFile, kinds)
		},
	}
	cmdScan.Flags().SortFlags = false
	cmdScan.Flags().StringVarP(
		&formatStr, "format", "f", "table", `output format ("table", "json" or "yaml")`,
	)
	cmdScan.Flags().StringVarP(
		&outputFile, "output", "o", "", "write a json or yaml manifest to this file",
	)
	cmdScan.Flags().StringSliceVarP(
		&kinds, "kind", "k", []string{},
		"only list resources of these kinds (comma-separated)",
	)
	rootCmd.AddCommand(cmdScan)

	cmdModules := &cobra.Command{
		Use:   "modules ROOT",
		Short: "List source modules and their sizes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModules(suffixOpts, args[0])
		},
	}
	rootCmd.AddCommand(cmdModules)

	cmdIndex := &cobra.Command{
		Use:   "index ROOT",
		Short: "Write the resources under a package root to a sqlite database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(suffixOpts, args[0], dbFile, force)
		},
	}
	cmdIndex.Flags().SortFlags = false
	cmdIndex.Flags().StringVar(
		&dbFile, "db", "", "database to write",
	)
	cmdIndex.MarkFlagRequired("db")
	cmdIndex.Flags().BoolVarP(
		&force, "force", "f", false, "rebuild the index even if up to date",
	)
	rootCmd.AddCommand(cmdIndex)

	cmdLookup := &cobra.Command{
		Use:   "lookup NAME...",
		Short: "Find resources by name in an index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLookup(dbFile, args)
		},
	}
	cmdLookup.Flags().StringVar(
		&dbFile, "db", "", "database to read",
	)
	cmdLookup.MarkFlagRequired("db")
	rootCmd.AddCommand(cmdLookup)

	cmdStats := &cobra.Command{
		Use:   "stats",
		Short: "Count the resources of each kind in an index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(dbFile)
		},
	}
	cmdStats.Flags().StringVar(
		&dbFile, "db", "", "database to read",
	)
	cmdStats.MarkFlagRequired("db")
	rootCmd.AddCommand(cmdStats)

	cmdPackages := &cobra.Command{
		Use:   "packages [ROOT]",
		Short: "List the packages under a package root, or in an index",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := ""
			if len(args) == 1 {
				root = args[0]
			}
			return runPackages(suffixOpts, root, dbFile)
		},
	}
	cmdPackages.Flags().StringVar(
		&dbFile, "db", "", "read packages from this database instead of scanning",
	)
	rootCmd.AddCommand(cmdPackages)

	cmdSuffixes := &cobra.Command{
		Use:   "suffixes",
		Short: "Print the suffix table in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, err := parseOutputFormat(formatStr)
			if err != nil {
				return err
			}
			return runSuffixes(suffixOpts, outputFormat)
		},
	}
	cmdSuffixes.Flags().StringVarP(
		&formatStr, "format", "f", "table", `output format ("table", "json" or "yaml")`,
	)
	rootCmd.AddCommand(cmdSuffixes)

	specialArgs := map[string](func()){}
	for _, helpFlag := range []string{"-help", "-?"} {
		specialArgs[helpFlag] = func() {
			rootCmd.Usage()
			os.Exit(0)
		}
	}
	for _, versionFlag := range []string{"-version", "-V"} {
		specialArgs[versionFlag] = func() {
			fmt.Println(getVersion())
			os.Exit(0)
		}
	}

	if len(os.Args) >= 2 {
		fn, ok := specialArgs[os.Args[1]]
		if ok {
			fn()
		}
	}

	err := rootCmd.Execute()
	if stopTracing != nil {
		stopTracing()
	}
	if err != nil {
		util.Die("%s", err)
	}
}
