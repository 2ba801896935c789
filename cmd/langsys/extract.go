package main

import (
	"fmt"

	"github.com/ZaguanLabs/langsys/processor"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newExtractCommand(a *app) *cobra.Command {
	var (
		category  string
		selectors string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "extract [FILE]",
		Short: "List the phrases and content blocks of a page",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			markup, name, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			rules, err := a.rules(selectors)
			if err != nil {
				return err
			}

			inventory, err := processor.NewPageTranslator(nil, nil, nil).Inspect(markup, a.category(category), rules)
			if err != nil {
				return err
			}
			items := inventory.Items()

			if asJSON {
				return writeJSON(a.stdout, toItemJSON(items))
			}

			fmt.Fprintf(a.stdout, "%s: %d phrases, %d content blocks\n",
				name, len(inventory.AllPhrases()), len(inventory.Blocks()))
			tw := newTable(a.stdout)
			tw.AppendHeader(table.Row{"#", "Kind", "Category", "Text"})
			for _, it := range items {
				tw.AppendRow(table.Row{it.Position + 1, it.Kind, it.Category, itemLabel(it)})
			}
			tw.Render()
			return nil
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "default category (overrides default_category)")
	cmd.Flags().StringVar(&selectors, "selectors", "", "selector rules file (YAML or JSON)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the items as JSON")
	return cmd
}
