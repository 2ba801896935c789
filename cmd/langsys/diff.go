package main

import (
	"fmt"
	"os"

	"github.com/ZaguanLabs/langsys"
	"github.com/ZaguanLabs/langsys/processor"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// diffJSON is the JSON output of the diff command.
type diffJSON struct {
	Stats struct {
		Added     int `json:"added"`
		Removed   int `json:"removed"`
		Modified  int `json:"modified"`
		Unchanged int `json:"unchanged"`
	} `json:"stats"`
	NeedsRegistration []itemJSON `json:"needs_registration"`
	Added             []itemJSON `json:"added,omitempty"`
	Removed           []itemJSON `json:"removed,omitempty"`
	Modified          []struct {
		Old itemJSON `json:"old"`
		New itemJSON `json:"new"`
	} `json:"modified,omitempty"`
}

func newDiffCommand(a *app) *cobra.Command {
	var (
		category  string
		selectors string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "diff OLD NEW",
		Short: "Show which phrases and content blocks changed between two versions of a page",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := a.rules(selectors)
			if err != nil {
				return err
			}
			pages := processor.NewPageTranslator(nil, nil, nil)

			var versions [2][]langsys.Item
			for i, path := range args {
				data, err := os.ReadFile(path) // #nosec G304 - CLI tool reads user-specified files
				if err != nil {
					return fmt.Errorf("reading %s: %w", path, err)
				}
				inventory, err := pages.Inspect(string(data), a.category(category), rules)
				if err != nil {
					return err
				}
				versions[i] = inventory.Items()
			}

			diff := langsys.DiffItems(versions[0], versions[1])
			if asJSON {
				return writeJSON(a.stdout, toDiffJSON(diff))
			}
			printDiff(a, args[0], args[1], diff)
			return nil
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "default category (overrides default_category)")
	cmd.Flags().StringVar(&selectors, "selectors", "", "selector rules file (YAML or JSON)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the diff as JSON")
	return cmd
}

func toDiffJSON(diff *langsys.DiffResult) diffJSON {
	stats := diff.Stats()
	var out diffJSON
	out.Stats.Added = stats.Added
	out.Stats.Removed = stats.Removed
	out.Stats.Modified = stats.Modified
	out.Stats.Unchanged = stats.Unchanged
	out.NeedsRegistration = toItemJSON(diff.NeedsRegistration())
	if len(diff.Added) > 0 {
		out.Added = toItemJSON(diff.Added)
	}
	if len(diff.Removed) > 0 {
		out.Removed = toItemJSON(diff.Removed)
	}
	for _, m := range diff.Modified {
		pair := toItemJSON([]langsys.Item{m.Old, m.New})
		out.Modified = append(out.Modified, struct {
			Old itemJSON `json:"old"`
			New itemJSON `json:"new"`
		}{Old: pair[0], New: pair[1]})
	}
	return out
}

func printDiff(a *app, oldPath, newPath string, diff *langsys.DiffResult) {
	stats := diff.Stats()
	fmt.Fprintf(a.stdout, "Diff: %s -> %s\n", oldPath, newPath)

	tw := newTable(a.stdout)
	tw.AppendHeader(table.Row{"Unchanged", "Added", "Removed", "Modified"})
	tw.AppendRow(table.Row{stats.Unchanged, stats.Added, stats.Removed, stats.Modified})
	tw.Render()

	if !diff.HasChanges() {
		fmt.Fprintln(a.stdout, "No changes detected.")
		return
	}

	changes := newTable(a.stdout)
	changes.AppendHeader(table.Row{"", "Kind", "Category", "Text"})
	for _, it := range diff.Added {
		changes.AppendRow(table.Row{"+", it.Kind, it.Category, itemLabel(it)})
	}
	for _, m := range diff.Modified {
		changes.AppendRow(table.Row{"~", m.New.Kind, m.New.Category, itemLabel(m.Old) + " -> " + itemLabel(m.New)})
	}
	for _, it := range diff.Removed {
		changes.AppendRow(table.Row{"-", it.Kind, it.Category, itemLabel(it)})
	}
	changes.Render()

	fmt.Fprintf(a.stdout, "Needs registration: %d items\n", len(diff.NeedsRegistration()))
}
