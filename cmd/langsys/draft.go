package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ZaguanLabs/langsys"
	"github.com/ZaguanLabs/langsys/client"
	"github.com/ZaguanLabs/langsys/processor"
	"github.com/ZaguanLabs/langsys/provider"
	"github.com/spf13/cobra"
)

func newDraftCommand(a *app) *cobra.Command {
	var (
		locale    string
		category  string
		selectors string
		mapPath   string
		output    string
		siteDesc  string
		style     string
		exclude   []string
		batchSize int
	)

	cmd := &cobra.Command{
		Use:   "draft [FILE]",
		Short: "Draft missing translations of a page with AI",
		Long: `Draft missing translations of a page with AI.

The existing translations come from --map, or from the translation service
when it is configured. Entries that already carry a translation are kept;
the result is written as a translation map JSON file that translate --map
accepts.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if locale == "" {
				return errors.New("--locale is required")
			}
			if a.cfg.OpenAI.APIKey == "" {
				return errors.New("OpenAI API key required (openai.api_key or OPENAI_API_KEY)")
			}

			markup, _, err := readInput(cmd, args)
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

			ctx := cmd.Context()
			existing := langsys.TranslationMap{}
			switch {
			case mapPath != "":
				src, err := client.LoadStaticSource(mapPath)
				if err != nil {
					return err
				}
				existing = src.Fallback
			case a.cfg.APIKey != "" && a.cfg.ProjectID != "":
				c, err := client.New(a.cfg, client.WithLogger(a.logger))
				if err != nil {
					return err
				}
				existing, err = c.Fetch(ctx, locale)
				closeErr := c.Close(ctx)
				if err != nil {
					return fmt.Errorf("fetching translations: %w", err)
				}
				if closeErr != nil {
					return closeErr
				}
			}

			var ai langsys.AIProvider = provider.NewOpenAIProvider(provider.OpenAIConfig{
				APIKey:  a.cfg.OpenAI.APIKey,
				Model:   a.cfg.OpenAI.Model,
				BaseURL: a.cfg.OpenAI.BaseURL,
			})
			ai = langsys.NewRateLimitedProvider(ai, langsys.RateLimitConfig{RequestsPerMinute: a.cfg.RateLimit})
			ai = langsys.NewRetryableProvider(ai, langsys.DefaultRetryConfig())

			drafter := provider.NewDrafter(ai,
				provider.WithBatchSize(batchSize),
				provider.WithContext(siteDesc),
				provider.WithStyle(langsys.TranslationStyle(strings.ToLower(style))),
				provider.WithExcludedTerms(exclude),
				provider.WithDrafterLogger(a.logger),
			)
			drafted, err := drafter.Draft(ctx, inventory.Items(), existing, locale)
			if err != nil {
				return err
			}

			var buf strings.Builder
			if err := writeJSON(&buf, drafted); err != nil {
				return err
			}
			return writeOutput(a.stdout, output, buf.String())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&locale, "locale", "l", "", "target locale (e.g. es-mx)")
	f.StringVarP(&category, "category", "c", "", "default category (overrides default_category)")
	f.StringVar(&selectors, "selectors", "", "selector rules file (YAML or JSON)")
	f.StringVar(&mapPath, "map", "", "existing translation map JSON file")
	f.StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	f.StringVar(&siteDesc, "context", "", "what the site is, e.g. 'an online shoe store'")
	f.StringVar(&style, "style", string(langsys.StyleNeutral), "formal, neutral, casual, marketing or technical")
	f.StringSliceVar(&exclude, "exclude", nil, "terms to keep untranslated")
	f.IntVar(&batchSize, "batch-size", provider.DefaultBatchSize, "texts per AI request")
	return cmd
}
