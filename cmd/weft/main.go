// Command weft renders DDL for a declarative YAML schema.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/weftdb/weft/dialect"
	"github.com/weftdb/weft/schema"
)

var version = "dev"

func main() {
	cmd := &cobra.Command{
		Use:          "weft",
		Short:        "weft schema tooling",
		SilenceUsage: true,
	}
	cmd.AddCommand(ddlCmd(), versionCmd())
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func ddlCmd() *cobra.Command {
	var d string
	cmd := &cobra.Command{
		Use:   "ddl [flags] <schema.yaml>",
		Short: "print CREATE TABLE statements for a YAML schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch d {
			case dialect.Postgres, dialect.MySQL, dialect.SQLite:
			default:
				return fmt.Errorf("unsupported dialect %q", d)
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			reg, err := schema.LoadYAML(data)
			if err != nil {
				return err
			}
			stmts, err := reg.EmitDDL(d)
			if err != nil {
				return err
			}
			for _, stmt := range stmts {
				fmt.Fprintf(cmd.OutOrStdout(), "%s;\n", stmt)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&d, "dialect", dialect.SQLite, "target dialect (postgres, mysql, sqlite)")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the weft version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "weft", version)
		},
	}
}
