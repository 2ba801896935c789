package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZaguanLabs/langsys"
	"github.com/ZaguanLabs/langsys/client"
	"github.com/ZaguanLabs/langsys/processor"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type pageFunc func(ctx context.Context, markup, locale string) (string, error)

func newTranslateCommand(a *app) *cobra.Command {
	var (
		locales   []string
		category  string
		selectors string
		mapPath   string
		sync      bool
		output    string
		quiet     bool
	)

	cmd := &cobra.Command{
		Use:   "translate [FILE]",
		Short: "Translate a page into one or more locales",
		Long: `Translate a page into one or more locales.

With --map the page is translated offline against a local translation map
(JSON, as returned by the service). Otherwise the translation service is used
and unknown phrases and content blocks are registered with it.

With several locales, --output names a directory and each translation is
written as <name>.<locale><ext> inside it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if len(locales) == 0 {
				return errors.New("--locale is required")
			}
			if len(locales) > 1 && output == "" && !sync {
				return errors.New("--output is required with several locales")
			}
			if sync && mapPath != "" {
				return errors.New("--sync needs the translation service and cannot be used with --map")
			}

			markup, name, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			rules, err := a.rules(selectors)
			if err != nil {
				return err
			}
			defaultCategory := a.category(category)
			ctx := cmd.Context()

			var translate pageFunc
			if mapPath != "" {
				src, err := client.LoadStaticSource(mapPath)
				if err != nil {
					return err
				}
				pages := processor.NewPageTranslator(src, nil, nil, processor.WithLogger(a.logger))
				translate = func(ctx context.Context, markup, locale string) (string, error) {
					return pages.Translate(ctx, markup, locale, defaultCategory, rules)
				}
			} else {
				c, err := client.New(a.cfg, client.WithLogger(a.logger))
				if err != nil {
					return err
				}
				defer func() {
					err = errors.Join(err, c.Close(context.WithoutCancel(ctx)))
				}()

				opts := []client.PageOption{client.WithCategory(defaultCategory), client.WithSelectors(rules)}
				if sync {
					return syncPage(ctx, a, c, markup, locales, opts)
				}
				translate = func(ctx context.Context, markup, locale string) (string, error) {
					return c.TranslatePage(ctx, markup, locale, opts...)
				}
			}

			start := time.Now()
			results, err := translateAll(ctx, translate, markup, locales)
			if err != nil {
				return err
			}

			if len(locales) == 1 {
				if err := writeOutput(a.stdout, output, results[0]); err != nil {
					return err
				}
			} else {
				for i, locale := range locales {
					if err := writeOutput(a.stdout, filepath.Join(output, localizedName(name, locale)), results[i]); err != nil {
						return err
					}
				}
			}

			if !quiet {
				fmt.Fprintf(a.stderr, "Translated %s into %s in %v\n",
					name, strings.Join(locales, ", "), time.Since(start).Round(time.Millisecond))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringSliceVarP(&locales, "locale", "l", nil, "target locale, repeatable (e.g. es-mx)")
	f.StringVarP(&category, "category", "c", "", "default category (overrides default_category)")
	f.StringVar(&selectors, "selectors", "", "selector rules file (YAML or JSON)")
	f.StringVar(&mapPath, "map", "", "translate offline against this translation map JSON file")
	f.BoolVar(&sync, "sync", false, "register the page's phrases and content blocks without translating")
	f.StringVarP(&output, "output", "o", "", "output file, or directory with several locales (default: stdout)")
	f.BoolVarP(&quiet, "quiet", "q", false, "suppress progress output")
	return cmd
}

// translateAll translates markup into every locale concurrently. Results are
// in locale order.
func translateAll(ctx context.Context, translate pageFunc, markup string, locales []string) ([]string, error) {
	results := make([]string, len(locales))
	g, gctx := errgroup.WithContext(ctx)
	for i, locale := range locales {
		g.Go(func() error {
			out, err := translate(gctx, markup, locale)
			if err != nil {
				return fmt.Errorf("translating into %s: %w", locale, err)
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func syncPage(ctx context.Context, a *app, c *client.Client, markup string, locales []string, opts []client.PageOption) error {
	for _, locale := range locales {
		result, err := c.Sync(ctx, markup, locale, opts...)
		if err != nil {
			return fmt.Errorf("syncing %s: %w", locale, err)
		}
		status := "registered"
		if !result.Synced {
			status = "not registered"
		}
		if len(result.NewPhrases) == 0 && len(result.NewBlocks) == 0 {
			status = "up to date"
		}
		a.logger.Info("synced page", zap.String("locale", locale),
			zap.Int("phrases", len(result.NewPhrases)), zap.Int("blocks", len(result.NewBlocks)))
		fmt.Fprintf(a.stdout, "%s: %d new phrases, %d new content blocks (%s)\n",
			locale, len(result.NewPhrases), len(result.NewBlocks), status)
	}
	return nil
}

// localizedName inserts locale before the extension: page.html → page.es-mx.html.
func localizedName(name, locale string) string {
	if name == "" || name == "stdin" {
		name = "page.html"
	}
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + "." + langsys.NormalizeLocale(locale) + ext
}
