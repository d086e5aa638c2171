package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/liamcoop/ilrvalidation/config"
	"github.com/liamcoop/ilrvalidation/ruleset"
)

var rulesFlags struct {
	catalogVersion string
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the rules of a catalog version",
	Long: `List every rule of a catalog version with the severity it reports at.

Go-coded rules are listed first in catalog order, followed by the active
expression rules of the version when reference data is configured.`,
	Args: cobra.NoArgs,
	RunE: listRules,
}

func init() {
	rootCmd.AddCommand(rulesCmd)

	rulesCmd.Flags().StringVar(&rulesFlags.catalogVersion, "catalog-version", "", "catalog version (defaults to catalog.default_version)")
}

func listRules(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithEnvOverrides(cfgFile)
	if err != nil {
		return err
	}
	version := cfg.Catalog.DefaultVersion
	if rulesFlags.catalogVersion != "" {
		version = rulesFlags.catalogVersion
	}
	severities, err := cfg.SeverityMap()
	if err != nil {
		return err
	}

	names := ruleset.Names()
	if _, store, closeDB, err := openReference(cfg); err == nil {
		defer closeDB()
		defs, err := store.ListActive(version)
		if err != nil {
			return err
		}
		for _, def := range defs {
			names = append(names, def.Name)
		}
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "CATALOG %s\n", version)
	for _, name := range names {
		fmt.Fprintf(tw, "%s\t%s\n", name, severities.Severity(name))
	}
	return tw.Flush()
}
