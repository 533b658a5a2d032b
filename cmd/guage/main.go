// Command guage is the reference CLI over the interpreter core: it reads
// one or more s-expressions, De Bruijn-converts and evaluates them, and
// reports results or diagnostics to the terminal or as JSON.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	flagFormat       string
	flagNoColor      bool
	flagJITThreshold uint32
	flagTrace        bool

	logger = log.NewWithOptions(os.Stderr, log.Options{Level: log.WarnLevel})
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "guage",
		Short:         "guage runs and evaluates Guage programs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagTrace {
				logger.SetLevel(log.DebugLevel)
			}
			if flagNoColor {
				os.Setenv("NO_COLOR", "1")
			}
		},
	}
	root.PersistentFlags().StringVar(&flagFormat, "format", "text", "diagnostic output format: text|json")
	root.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable colored terminal output")
	root.PersistentFlags().Uint32Var(&flagJITThreshold, "jit-threshold", 0, "call count before a lambda body is JIT-compiled (0 = default)")
	root.PersistentFlags().BoolVar(&flagTrace, "trace", false, "log conversion, hot-counter, and JIT events to stderr")

	root.AddCommand(newRunCmd())
	root.AddCommand(newEvalCmd())
	return root
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
