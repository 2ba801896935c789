package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/ZaguanLabs/langsys"
	"github.com/ZaguanLabs/langsys/cache"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newCacheCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Export, import or clear the configured translation cache",
	}
	cmd.AddCommand(newCacheExportCommand(a), newCacheImportCommand(a), newCacheClearCommand(a))
	return cmd
}

// openCache opens the configured cache. The returned func releases it.
func (a *app) openCache() (cache.Cache, func(), error) {
	store, err := cache.New(a.cfg.Cache.Driver, a.cfg.CacheOptions())
	if err != nil {
		return nil, nil, err
	}
	release := func() {}
	if c, ok := store.(io.Closer); ok {
		release = func() { _ = c.Close() }
	}
	return store, release, nil
}

func newCacheExportCommand(a *app) *cobra.Command {
	var (
		output string
		prefix string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the cache entries as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, release, err := a.openCache()
			if err != nil {
				return err
			}
			defer release()

			enumerable, ok := store.(cache.Enumerable)
			if !ok {
				return fmt.Errorf("the %q cache cannot be exported", a.cfg.Cache.Driver)
			}

			exporter := cache.NewExporter(enumerable).WithPrefix(prefix)
			metadata := map[string]string{"driver": a.cfg.Cache.Driver}
			if a.cfg.ProjectID != "" {
				metadata["project_id"] = a.cfg.ProjectID
			}
			if output != "" {
				return exporter.ExportToFile(output, metadata)
			}
			return exporter.Export(a.stdout, metadata)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "only export keys with this prefix, e.g. translations_")
	return cmd
}

func newCacheImportCommand(a *app) *cobra.Command {
	var keepExisting bool

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Load cache entries from an export file (- for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, release, err := a.openCache()
			if err != nil {
				return err
			}
			defer release()

			importer := cache.NewImporter(store)
			if keepExisting {
				importer.KeepExisting()
			}
			var result *cache.ImportResult
			if args[0] == "-" {
				result, err = importer.Import(cmd.InOrStdin())
			} else {
				result, err = importer.ImportFromFile(args[0])
			}
			if err != nil {
				return err
			}

			tw := newTable(a.stdout)
			tw.AppendHeader(table.Row{"Version", "Imported", "Skipped", "Failed"})
			tw.AppendRow(table.Row{result.Version, result.Imported, result.Skipped, result.Failed})
			tw.Render()
			if result.Failed > 0 {
				return fmt.Errorf("%d entries could not be imported", result.Failed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&keepExisting, "keep-existing", false, "do not replace entries the cache already holds")
	return cmd
}

func newCacheClearCommand(a *app) *cobra.Command {
	var locale string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove cached entries: one locale's translations, or everything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, release, err := a.openCache()
			if err != nil {
				return err
			}
			defer release()

			if locale == "" {
				if err := store.Clear(); err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, "Cache cleared.")
				return nil
			}

			if a.cfg.ProjectID == "" {
				return errors.New("clearing one locale needs project_id (LANGSYS_PROJECT_ID)")
			}
			key := langsys.TranslationsCacheKey(a.cfg.ProjectID, langsys.NormalizeLocale(locale))
			if err := store.Delete(key); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Removed %s.\n", key)
			return nil
		},
	}

	cmd.Flags().StringVarP(&locale, "locale", "l", "", "only clear the translations of this locale")
	return cmd
}
