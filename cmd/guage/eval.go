package main

import (
	"fmt"
	"os"

	"github.com/guage-run/guage/atom"
	"github.com/spf13/cobra"
)

func newEvalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "eval <expr>",
		Short: "Evaluate a single expression and print its result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := newSession()
			defer s.Close()

			result, err := s.evalSource("<eval>", args[0])
			if err != nil {
				fatalf("guage: %v", err)
			}
			if result.Tag() == atom.ErrorTag {
				os.Exit(reportError(s.sm, result))
			}
			fmt.Println(atom.Print(result))
			return nil
		},
	}
}
