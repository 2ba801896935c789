package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ZaguanLabs/langsys/client"
	"github.com/ZaguanLabs/langsys/logging"
	"github.com/ZaguanLabs/langsys/processor"
	"github.com/ZaguanLabs/langsys/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

type serveOptions struct {
	dir          string
	addr         string
	mapPath      string
	sourceLocale string
	locales      []string
	category     string
	selectors    string
	logViewer    bool
}

func newServeCommand(a *app) *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a static site, localizing HTML pages per request",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			ctx := cmd.Context()
			handler, cleanup, err := a.serveHandler(ctx, opts)
			if err != nil {
				return err
			}
			defer func() {
				err = errors.Join(err, cleanup(context.WithoutCancel(ctx)))
			}()

			srv := &http.Server{
				Addr:              opts.addr,
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.ListenAndServe()
			}()
			a.logger.Info("serving", zap.String("addr", opts.addr), zap.String("dir", opts.dir))
			fmt.Fprintf(a.stderr, "Serving %s on %s\n", opts.dir, opts.addr)

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.dir, "dir", "d", ".", "static site root")
	f.StringVarP(&opts.addr, "addr", "a", ":8080", "listen address")
	f.StringVar(&opts.mapPath, "map", "", "serve translations from this translation map JSON file instead of the service")
	f.StringVar(&opts.sourceLocale, "source-locale", "en", "locale the pages are written in")
	f.StringSliceVar(&opts.locales, "locale", nil, "supported locales (default: locales from the config)")
	f.StringVarP(&opts.category, "category", "c", "", "default category (overrides default_category)")
	f.StringVar(&opts.selectors, "selectors", "", "selector rules file (YAML or JSON)")
	f.BoolVar(&opts.logViewer, "log-viewer", false, "serve the log file at "+server.LogsPath)
	return cmd
}

// serveHandler builds the router. The returned cleanup flushes pending
// registrations and releases the client.
func (a *app) serveHandler(ctx context.Context, opts serveOptions) (http.Handler, func(context.Context) error, error) {
	rules, err := a.rules(opts.selectors)
	if err != nil {
		return nil, nil, err
	}
	locales := opts.locales
	if len(locales) == 0 {
		locales = a.cfg.Locales
	}
	category := a.category(opts.category)

	var logs *logging.Viewer
	if opts.logViewer {
		if a.cfg.Log.Path == "" {
			return nil, nil, errors.New("--log-viewer needs log.path")
		}
		logs = logging.NewViewer(a.cfg.Log.Path, logging.DefaultMaxEntries)
	}

	var translate server.TranslateFunc
	cleanup := func(context.Context) error { return nil }

	if opts.mapPath != "" {
		src, err := client.LoadStaticSource(opts.mapPath)
		if err != nil {
			return nil, nil, err
		}
		pages := processor.NewPageTranslator(src, nil, nil, processor.WithLogger(a.logger))
		translate = func(ctx context.Context, markup, locale string) (string, error) {
			return pages.Translate(ctx, markup, locale, category, rules)
		}
	} else {
		c, err := client.New(a.cfg, client.WithLogger(a.logger))
		if err != nil {
			return nil, nil, err
		}
		if err := c.Prefetch(ctx, locales...); err != nil {
			a.logger.Warn("prefetching translations failed", zap.Error(err))
		}
		pageOpts := []client.PageOption{client.WithCategory(category), client.WithSelectors(rules)}
		translate = func(ctx context.Context, markup, locale string) (string, error) {
			return c.TranslatePage(ctx, markup, locale, pageOpts...)
		}
		cleanup = c.Close
	}

	handler := server.NewRouter(server.RouterConfig{
		Dir:       opts.dir,
		Translate: translate,
		Options: server.Options{
			Locales:      locales,
			SourceLocale: opts.sourceLocale,
			Logger:       a.logger,
		},
		Logs: logs,
	})
	return handler, cleanup, nil
}
