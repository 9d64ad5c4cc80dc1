package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ai-den/jsongrammar/gbnf"
)

func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate GRAMMAR...",
		Short: "Check that GBNF grammar files parse and define every rule they use",
		Args:  cobra.MinimumNArgs(1),
		RunE:  ValidateHandler,
	}
}

func ValidateHandler(cmd *cobra.Command, args []string) error {
	var errs []error
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		if err := gbnf.ValidateGrammar(string(data)); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", path)
	}
	return errors.Join(errs...)
}
