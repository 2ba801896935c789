package main

import (
	"errors"
	"fmt"

	"github.com/ZaguanLabs/langsys/logging"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

func newLogsCommand(a *app) *cobra.Command {
	var (
		file   string
		level  string
		limit  int
		asJSON bool
		reset  bool
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show or clear the log file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file == "" {
				file = a.cfg.Log.Path
			}
			if file == "" {
				return errors.New("no log file: set log.path or pass --file")
			}
			v := logging.NewViewer(file, limit)

			if reset {
				if err := v.Clear(); err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "Cleared %s\n", file)
				return nil
			}

			minLevel, err := logging.ParseLevel(level)
			if err != nil {
				return fmt.Errorf("invalid --level: %w", err)
			}
			report, err := v.Report(minLevel)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(a.stdout, report)
			}

			s := report.Stats
			fmt.Fprintf(a.stdout, "%s: %d entries (%d debug, %d info, %d warn, %d error)\n",
				file, s.Total, s.Debug, s.Info, s.Warn, s.Error)
			tw := newTable(a.stdout)
			tw.AppendHeader(table.Row{"Time", "Level", "Message"})
			for _, e := range report.Entries {
				stamp := ""
				if !e.Time.IsZero() {
					stamp = e.Time.UTC().Format("2006-01-02 15:04:05")
				}
				tw.AppendRow(table.Row{stamp, e.Level, text.Snip(e.Message, 80, "...")})
			}
			tw.Render()
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&file, "file", "", "log file (default: log.path from the config)")
	f.StringVarP(&level, "level", "l", "debug", "minimum level: debug, info, warn, error")
	f.IntVarP(&limit, "limit", "n", logging.DefaultMaxEntries, "most recent entries to show, 0 for all")
	f.BoolVar(&asJSON, "json", false, "print entries and stats as JSON")
	f.BoolVar(&reset, "clear", false, "truncate the log file")
	return cmd
}
