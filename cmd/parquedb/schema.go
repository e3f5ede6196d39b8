package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/parquedb/parquedb/schema"
)

func newSchemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema <file>",
		Short: "parse and validate a schema definition file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			g, err := schema.ParseSchema(string(src))
			if err != nil {
				return err
			}
			if errs := schema.Validate(g); len(errs) > 0 {
				for _, e := range errs {
					fmt.Fprintln(cmd.OutOrStderr(), e)
				}
				return fmt.Errorf("schema: %d validation error(s)", len(errs))
			}
			for name, t := range g.Types {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d field(s), abstract=%v\n", name, len(t.ShredFields()), t.Abstract)
			}
			return nil
		},
	}
	return cmd
}
