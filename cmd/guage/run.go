package main

import (
	"os"

	"github.com/guage-run/guage/atom"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <file>",
		Short: "Evaluate every top-level form in a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			src, err := os.ReadFile(path)
			if err != nil {
				fatalf("guage: %v", err)
			}

			s := newSession()
			defer s.Close()

			result, err := s.evalSource(path, string(src))
			if err != nil {
				fatalf("guage: %v", err)
			}
			if result != nil && result.Tag() == atom.ErrorTag {
				os.Exit(reportError(s.sm, result))
			}
			return nil
		},
	}
}
