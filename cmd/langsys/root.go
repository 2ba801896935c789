package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZaguanLabs/langsys"
	"github.com/ZaguanLabs/langsys/config"
	"github.com/ZaguanLabs/langsys/logging"
	"github.com/ZaguanLabs/langsys/processor"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// app carries what every command shares: output streams, configuration and
// the logger.
type app struct {
	stdout  io.Writer
	stderr  io.Writer
	v       *viper.Viper
	cfgPath string
	cfg     *config.Config
	logger  *zap.Logger
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout: stdout,
		stderr: stderr,
		v:      config.NewViper(),
		logger: zap.NewNop(),
	}
}

func (a *app) load() error {
	cfg, err := config.LoadViper(a.v, a.cfgPath)
	if err != nil {
		return err
	}
	if err := cfg.ValidateLocal(); err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}

// rules loads the selector rules file named by path, or by the configuration.
func (a *app) rules(path string) (processor.SelectorRules, error) {
	if path == "" {
		path = a.cfg.Selectors
	}
	if path == "" {
		return nil, nil
	}
	return processor.LoadSelectorRules(path)
}

func (a *app) category(flag string) string {
	if flag != "" {
		return flag
	}
	return a.cfg.DefaultCategory
}

func newRootCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "langsys",
		Short:         langsys.Description,
		Version:       langsys.FullVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
	}
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.cfgPath, "config", "", "config file (default ./langsys.yaml or $HOME/langsys.yaml)")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	_ = a.v.BindPFlag("log.level", pf.Lookup("log-level"))

	cmd.AddCommand(
		newExtractCommand(a),
		newTranslateCommand(a),
		newDiffCommand(a),
		newDraftCommand(a),
		newServeCommand(a),
		newCacheCommand(a),
		newLogsCommand(a),
		newVersionCommand(a),
	)
	return cmd
}

func newVersionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(a.stdout, "%s %s\n", langsys.Name, langsys.Version)
			if commit := langsys.Commit(); commit != "" {
				fmt.Fprintf(a.stdout, "  commit:  %s\n", commit)
			}
			if langsys.BuildDate != "" {
				fmt.Fprintf(a.stdout, "  built:   %s\n", langsys.BuildDate)
			}
			return nil
		},
	}
}

// readInput reads the file named by args, or stdin when there is none or it
// is "-". The second result names the input for messages and output files.
func readInput(cmd *cobra.Command, args []string) (string, string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), "stdin", nil
	}
	data, err := os.ReadFile(args[0]) // #nosec G304 - CLI tool reads user-specified files
	if err != nil {
		return "", "", fmt.Errorf("reading file: %w", err)
	}
	return string(data), filepath.Base(args[0]), nil
}

// writeOutput writes content to path, or to w when path is empty.
func writeOutput(w io.Writer, path, content string) error {
	if path == "" {
		_, err := io.WriteString(w, content)
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// itemJSON is the JSON view of a page item.
type itemJSON struct {
	Kind     langsys.ItemKind `json:"kind"`
	Category string           `json:"category"`
	Key      string           `json:"key"`
	Phrases  []string         `json:"phrases,omitempty"`
	Position int              `json:"position"`
	Context  string           `json:"context,omitempty"`
}

func toItemJSON(items []langsys.Item) []itemJSON {
	out := make([]itemJSON, len(items))
	for i, it := range items {
		out[i] = itemJSON{
			Kind:     it.Kind,
			Category: it.Category,
			Key:      it.Key,
			Phrases:  it.Phrases,
			Position: it.Position,
			Context:  it.Context,
		}
	}
	return out
}

func newTable(w io.Writer) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	return tw
}

// itemLabel is the human readable form of an item: the phrase text, or the
// block id followed by its first phrases.
func itemLabel(it langsys.Item) string {
	if it.Kind == langsys.ItemPhrase {
		return text.Snip(it.Key, 60, "...")
	}
	return text.Snip(it.Key[:min(8, len(it.Key))]+": "+strings.Join(it.Phrases, " | "), 60, "...")
}
