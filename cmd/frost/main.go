package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"frost/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "frost",
	Short: "Frost lazy runtime toolbox",
	Long:  `Frost is a lazy-value runtime core with heap inspection and stress tools`,
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(stressCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
