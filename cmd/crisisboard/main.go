package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/TobiSchelling/crisisboard/internal/config"
	"github.com/TobiSchelling/crisisboard/internal/corpus"
	"github.com/TobiSchelling/crisisboard/internal/database"
	"github.com/TobiSchelling/crisisboard/internal/ingest"
	"github.com/TobiSchelling/crisisboard/internal/logging"
	"github.com/TobiSchelling/crisisboard/internal/metrics"
	"github.com/TobiSchelling/crisisboard/internal/pipeline"
	"github.com/TobiSchelling/crisisboard/internal/report"
	"github.com/TobiSchelling/crisisboard/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "crisisboard",
	Short:   "Interactive filter-and-aggregate dashboard for crisis messages",
	Long:    "crisisboard imports an annotated crisis message corpus and serves linked, filterable word, topic and location views over it.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		switch {
		case err == nil:
			if cfg, err = config.Load(path); err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
		case configPath != "":
			return err
		default:
			cfg = config.Default()
		}

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		logging.Init(logging.Config{
			Level:        level,
			Format:       cfg.Logging.Format,
			Output:       os.Stderr,
			EnableCaller: verbose,
		})
		if path == "" {
			logging.Logger.Debug().Msg("no config file found, using defaults")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(blocklistCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("crisisboard", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/crisisboard/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to point at your corpus files, then run 'crisisboard import'.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and dataset status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}
		last, err := db.GetLastImport()
		if err != nil {
			return fmt.Errorf("getting last import: %w", err)
		}

		fmt.Printf("Database: %s\n\n", db.Path())
		if last == nil {
			fmt.Println("No dataset imported yet. Run 'crisisboard import'.")
			return nil
		}
		fmt.Printf("Last import: %s (%s)\n\n", last.Source, humanize.Time(last.ImportedAt))

		fmt.Println("Messages:")
		fmt.Printf("  Total: %s\n", humanize.Comma(int64(stats.Messages)))
		fmt.Printf("  Locations: %d\n", stats.Locations)
		fmt.Printf("  Topics: %d\n", stats.Topics)
		if stats.FirstTime != nil && stats.LastTime != nil {
			fmt.Printf("  Span: %s to %s\n", stats.FirstTime.Format(time.DateTime), stats.LastTime.Format(time.DateTime))
		}
		fmt.Println("\nIndexes:")
		fmt.Printf("  Lexicon words: %s\n", humanize.Comma(int64(stats.Words)))
		fmt.Printf("  Graph: %d nodes, %s links\n", stats.GraphNodes, humanize.Comma(int64(stats.GraphEdges)))
		fmt.Printf("  Blocked words: %d\n", stats.Blocked)
		fmt.Printf("\nImports: %d\n", stats.Imports)
		return nil
	},
}

// --- import command ---

var (
	dryRun      bool
	importFiles corpus.Files
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load, index and store the corpus: load -> index -> store",
	RunE: func(cmd *cobra.Command, args []string) error {
		files := mergeFiles(importFiles)

		var result *ingest.Result
		if dryRun {
			// a dry run must not create or migrate the database file
			db, err := database.OpenReadOnly(cfg.DBPath())
			switch {
			case errors.Is(err, os.ErrNotExist):
				db = nil
			case err != nil:
				return err
			default:
				defer db.Close()
			}
			result = ingest.New(db, corpus.IndexOptions{}).DryRun(files)
		} else {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			result = ingest.New(db, corpus.IndexOptions{}).Run(cmd.Context(), files)
		}

		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/3: %s\n", i+1, step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}

		if result.Failed() {
			return fmt.Errorf("import of %s failed", result.Source)
		}
		if !dryRun {
			fmt.Println("\nImport complete! Run 'crisisboard serve' to open the dashboard.")
		}
		return nil
	},
}

func init() {
	importCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Load and index without writing to the database")
	importCmd.Flags().StringVar(&importFiles.Corpus, "corpus", "", "Corpus JSON file (overrides config)")
	importCmd.Flags().StringVar(&importFiles.Lexicon, "lexicon", "", "Lexicon JSON file (overrides config)")
	importCmd.Flags().StringVar(&importFiles.Graph, "graph", "", "Word graph JSON file (overrides config)")
	importCmd.Flags().StringVar(&importFiles.BlockList, "blocklist", "", "Block list JSON file (overrides config)")
}

// --- index command ---

var indexOpts corpus.IndexOptions

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild the lexicon and word graph from the stored messages",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		step := ingest.New(db, indexOpts).Reindex()
		if step.Err != nil {
			return step.Err
		}
		fmt.Println(step.Summary)
		return nil
	},
}

func init() {
	indexCmd.Flags().IntVar(&indexOpts.MinDocFreq, "min-doc-freq", corpus.DefaultMinDocFreq, "Minimum messages a word must occur in")
	indexCmd.Flags().IntVar(&indexOpts.GraphNodes, "graph-nodes", corpus.DefaultGraphNodes, "Words kept as graph nodes")
	indexCmd.Flags().IntVar(&indexOpts.MinCooccurrence, "min-cooccurrence", corpus.DefaultMinCooccurrence, "Shared messages needed for a graph link")
}

// --- serve command ---

var (
	servePort  int
	serveFiles bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard server",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := cfg.PipelineOptions()
		if err != nil {
			return err
		}

		var store server.BlockListStore
		var ds *corpus.Dataset
		if serveFiles {
			if ds, err = loadFromFiles(); err != nil {
				return err
			}
		} else {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			if ds, err = db.LoadDataset(); err != nil {
				return fmt.Errorf("loading dataset: %w", err)
			}
			store = db
		}
		if len(ds.Messages) == 0 {
			return fmt.Errorf("no messages to serve; run 'crisisboard import' or pass --files")
		}

		collector := metrics.NewCollector("crisisboard")
		session := pipeline.NewSession(ds, opts, collector)
		srv, err := server.New(server.Options{
			Session:        session,
			Metrics:        collector,
			BlockList:      store,
			AllowedOrigins: cfg.Server.AllowedOrigins,
		})
		if err != nil {
			return err
		}

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Starting dashboard at http://%s:%d (%s variant)\n", cfg.Server.Host, port, opts.Variant)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(ctx, srv, cfg.Server.Host, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on")
	serveCmd.Flags().BoolVar(&serveFiles, "files", false, "Serve the configured JSON files instead of the database")
}

// --- report command ---

var (
	reportFiles  bool
	reportTopN   int
	reportFilter struct {
		start, end                     string
		keyword, location, word, topic string
	}
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print a Markdown report of the filtered corpus",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := cfg.PipelineOptions()
		if err != nil {
			return err
		}

		var ds *corpus.Dataset
		if reportFiles {
			ds, err = loadFromFiles()
		} else {
			ds, err = loadFromDB()
		}
		if err != nil {
			return err
		}

		session := pipeline.NewSession(ds, opts)
		session.Reset()

		f := reportFilter
		if f.start != "" || f.end != "" {
			start, end, _ := ds.Span()
			if f.start != "" {
				if start, err = corpus.ParseTime(f.start); err != nil {
					return fmt.Errorf("--start: %w", err)
				}
			}
			if f.end != "" {
				if end, err = corpus.ParseTime(f.end); err != nil {
					return fmt.Errorf("--end: %w", err)
				}
			}
			session.SetTimeRange(&start, &end)
		}
		if f.keyword != "" {
			session.SetKeyword(f.keyword)
		}
		if f.location != "" {
			session.SetLocation(f.location)
		}
		if f.word != "" {
			session.SelectWord(f.word)
		}
		if f.topic != "" {
			session.SelectTopic(f.topic)
		}

		fmt.Print(report.Render(session.Snapshot(), report.Options{TopN: reportTopN}))
		return nil
	},
}

func init() {
	reportCmd.Flags().BoolVar(&reportFiles, "files", false, "Read the configured JSON files instead of the database")
	reportCmd.Flags().IntVarP(&reportTopN, "top", "n", report.DefaultTopN, "Rows per ranked section")
	reportCmd.Flags().StringVar(&reportFilter.start, "start", "", "Start of the time range (default: first message)")
	reportCmd.Flags().StringVar(&reportFilter.end, "end", "", "End of the time range (default: last message)")
	reportCmd.Flags().StringVar(&reportFilter.keyword, "keyword", "", "Keep messages containing this keyword")
	reportCmd.Flags().StringVar(&reportFilter.location, "location", "", "Keep messages from this location")
	reportCmd.Flags().StringVar(&reportFilter.word, "word", "", "Keep messages containing this word")
	reportCmd.Flags().StringVar(&reportFilter.topic, "topic", "", "Keep messages of this topic")
}

// --- blocklist command ---

var blocklistCmd = &cobra.Command{
	Use:   "blocklist",
	Short: "Manage words hidden from the word charts",
}

var blocklistListCmd = &cobra.Command{
	Use:   "list",
	Short: "List blocked words",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		words, err := db.GetBlockList()
		if err != nil {
			return err
		}
		if len(words) == 0 {
			fmt.Println("No blocked words. Add some with: crisisboard blocklist add")
			return nil
		}
		for _, w := range words {
			fmt.Printf("  %s\n", w)
		}
		return nil
	},
}

var blocklistAddCmd = &cobra.Command{
	Use:   "add [word...]",
	Short: "Block one or more words",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		words, err := db.GetBlockList()
		if err != nil {
			return err
		}
		if err := db.SaveBlockList(append(words, args...)); err != nil {
			return err
		}
		fmt.Printf("Blocked: %s\n", strings.Join(args, ", "))
		return nil
	},
}

var blocklistRemoveCmd = &cobra.Command{
	Use:   "remove [word...]",
	Short: "Unblock one or more words",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		words, err := db.GetBlockList()
		if err != nil {
			return err
		}
		drop := make(map[string]bool, len(args))
		for _, a := range args {
			drop[strings.ToLower(strings.TrimSpace(a))] = true
		}
		kept := words[:0]
		removed := 0
		for _, w := range words {
			if drop[strings.ToLower(w)] {
				removed++
				continue
			}
			kept = append(kept, w)
		}
		if removed == 0 {
			return fmt.Errorf("none of %s is blocked", strings.Join(args, ", "))
		}
		if err := db.SaveBlockList(kept); err != nil {
			return err
		}
		fmt.Printf("Unblocked %d word(s)\n", removed)
		return nil
	},
}

func init() {
	blocklistCmd.AddCommand(blocklistListCmd)
	blocklistCmd.AddCommand(blocklistAddCmd)
	blocklistCmd.AddCommand(blocklistRemoveCmd)
}

func openDB() (*database.DB, error) {
	return database.Open(cfg.DBPath())
}

func loadFromDB() (*corpus.Dataset, error) {
	db, err := openDB()
	if err != nil {
		return nil, err
	}
	defer db.Close()
	ds, err := db.LoadDataset()
	if err != nil {
		return nil, fmt.Errorf("loading dataset: %w", err)
	}
	return ds, nil
}

// loadFromFiles reads the configured JSON files and builds whichever word
// index they do not provide.
func loadFromFiles() (*corpus.Dataset, error) {
	ds, err := corpus.LoadFiles(mergeFiles(corpus.Files{}))
	if err != nil {
		return nil, err
	}
	if len(ds.Lexicon) == 0 {
		ds.Lexicon = corpus.BuildLexicon(ds.Messages, corpus.IndexOptions{})
	}
	if len(ds.Graph.Nodes) == 0 {
		ds.Graph = corpus.BuildWordGraph(ds.Lexicon, corpus.IndexOptions{})
	}
	return ds, nil
}

// mergeFiles fills unset paths from the config.
func mergeFiles(f corpus.Files) corpus.Files {
	if f.Corpus == "" {
		f.Corpus = cfg.Data.Corpus
	}
	if f.Lexicon == "" {
		f.Lexicon = cfg.Data.Lexicon
	}
	if f.Graph == "" {
		f.Graph = cfg.Data.Graph
	}
	if f.BlockList == "" {
		f.BlockList = cfg.Data.BlockList
	}
	return f
}

