// Command git-cascade propagates a change from one branch through the
// configured graph of downstream branches without checking them out.
package main

import (
	"errors"
	goflag "flag"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

var (
	jsonOutput bool
	noColor    bool
)

// errRunFailed marks a run whose failures are already visible in the
// summary; main exits 1 without printing a second error line.
var errRunFailed = errors.New("one or more destinations did not succeed")

var rootCmd = &cobra.Command{
	Use:   "git-cascade",
	Short: "Cascade changes through a graph of git branches",
	Long: `git-cascade propagates a change from one branch to the branches declared
downstream of it, picking the cheapest safe strategy per destination:
fast-forward when possible, an isolated sandbox merge when histories have
diverged, and a normal in-place merge only for the branch that is currently
checked out. The working tree is never touched for any other branch.

Chains are declared in .git-cascade.yaml files or the cascade.chain git
config key, e.g. "development > staging > master".`,
	SilenceUsage: true,
	// Errors are printed once, in main, so a partial failure that the
	// summary table already showed is not echoed a second time.
	SilenceErrors: true,
}

func init() {
	fs := goflag.NewFlagSet("", goflag.PanicOnError)
	klog.InitFlags(fs)
	rootCmd.PersistentFlags().AddGoFlagSet(fs)

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit results as a JSON array")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

func main() {
	err := rootCmd.Execute()
	klog.Flush()
	if err != nil {
		if !errors.Is(err, errRunFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
