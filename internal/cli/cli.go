// Package cli implements the mtgateway command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
)

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mtgateway",
		Short: "Machine translation gateway",
		Long: `mtgateway fronts a machine translation backend (LibreTranslate, DeepL,
or local OPUS-MT / NLLB-200 models) with caching, batching, segmentation,
quality checks and XLIFF round-tripping.

Configuration is read from the environment, optionally layered over the
YAML file named by CONFIG_FILE.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCmd(),
		newSegmentCmd(),
		newCheckCmd(),
		newDetectCmd(),
		newTokenCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mtgateway %s (%s)\n", version, commit)
		},
	}
}

// readInput returns the named file, or stdin when name is empty or "-".
func readInput(cmd *cobra.Command, name string) (string, error) {
	if name == "" || name == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return string(b), nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
