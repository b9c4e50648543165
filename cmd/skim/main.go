package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/skimreader/skim/internal/config"
	"github.com/skimreader/skim/internal/debuglog"
	"github.com/skimreader/skim/internal/opml"
	"github.com/skimreader/skim/internal/search"
	"github.com/skimreader/skim/internal/storage"
	"github.com/skimreader/skim/internal/tui"
)

// Version is set at build time.
var Version = "dev"

var (
	flagConfig    string
	flagDB        string
	flagLogLevel  string
	flagImport    string
	flagExport    string
	flagResetDB   bool
	flagGenConfig bool
)

func main() {
	root := &cobra.Command{
		Use:          "skim",
		Short:        "A terminal feed reader",
		Long:         "skim is a keyboard-driven RSS/Atom reader for the terminal.",
		SilenceUsage: true,
		RunE:         run,
	}

	root.Flags().StringVar(&flagConfig, "config", "", "path to configuration file")
	root.Flags().StringVar(&flagDB, "db", "", "path to database file (overrides config)")
	root.Flags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")
	root.Flags().StringVar(&flagImport, "import", "", "import subscriptions from an OPML file and exit")
	root.Flags().StringVar(&flagExport, "export", "", "export subscriptions to an OPML file and exit")
	root.Flags().BoolVar(&flagResetDB, "reset-db", false, "delete the database and search index before starting")
	root.Flags().BoolVar(&flagGenConfig, "generate-config", false, "write a default config file and exit")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("skim %s\n", Version)
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if flagGenConfig {
		path := config.DefaultConfigPath()
		if err := config.GenerateDefaultConfig(path); err != nil {
			return fmt.Errorf("generating config: %w", err)
		}
		fmt.Printf("Wrote default configuration to %s\n", path)
		return nil
	}

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if flagDB != "" {
		cfg.Database.Path = flagDB
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}

	if err := debuglog.Setup(debuglog.ParseLevel(cfg.Log.Level), cfg.Log.Path); err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	defer debuglog.Close()

	if flagResetDB {
		if err := os.Remove(cfg.Database.Path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing database: %w", err)
		}
		if cfg.Database.SearchIndex != "" {
			if err := os.RemoveAll(cfg.Database.SearchIndex); err != nil {
				return fmt.Errorf("removing search index: %w", err)
			}
		}
		debuglog.Info("database reset")
	}

	store, err := storage.NewStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer store.Close()

	if flagImport != "" {
		return runImport(store, flagImport)
	}
	if flagExport != "" {
		return runExport(store, flagExport)
	}

	engine, err := search.NewEngine(cfg.Database.SearchIndex)
	if err != nil {
		return fmt.Errorf("opening search index: %w", err)
	}
	defer engine.Close()

	app := tui.NewApp(store, cfg, engine)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running ui: %w", err)
	}
	return nil
}

func runImport(store *storage.Store, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	tree, err := opml.Decode(data)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	added, err := opml.Import(store, tree)
	if err != nil {
		return fmt.Errorf("importing: %w", err)
	}
	fmt.Printf("Imported %d feeds from %s\n", added, path)
	return nil
}

func runExport(store *storage.Store, path string) error {
	tree, err := opml.Export(store)
	if err != nil {
		return fmt.Errorf("exporting: %w", err)
	}
	data, err := opml.Encode(tree)
	if err != nil {
		return fmt.Errorf("encoding: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Printf("Exported subscriptions to %s\n", path)
	return nil
}
