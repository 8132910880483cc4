package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"versecull/internal/api"
	"versecull/internal/bulk"
	"versecull/internal/config"
	"versecull/internal/evaluator"
	"versecull/internal/history"
	"versecull/internal/library"
	"versecull/internal/store"
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
	Use:     "versecull",
	Short:   "Curate a poem collection with LLM-assisted evaluation",
	Long:    "versecull imports a poem library from JSON, marks poems accepted or deleted by hand or through rate-limited bulk LLM evaluation, and exports the curated JSON.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statusCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("versecull", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/versecull/",
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
		fmt.Println("Edit it to set the library path and scoring provider.")
		return nil
	},
}

// --- serve command ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the curation HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := loadLibrary()
		if err != nil {
			return err
		}

		hist, err := history.Open(cfg.HistoryDB)
		if err != nil {
			return fmt.Errorf("opening history db: %w", err)
		}
		defer hist.Close()

		ctrl := buildController(st, hist)
		srv := api.New(st, ctrl,
			api.WithCORSOrigin(cfg.Server.CORSOrigin),
			api.WithRunHistory(hist),
		)

		httpServer := &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
			Handler: srv.Handler(),
		}

		// Graceful shutdown: stop the server, then write the library back.
		go func() {
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh
			slog.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			httpServer.Shutdown(shutdownCtx)
		}()

		fmt.Printf("versecull listening on http://localhost:%d (library: %s)\n", cfg.Server.Port, cfg.Library)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

		if err := library.Save(cfg.Library, st.Snapshot()); err != nil {
			return fmt.Errorf("saving library: %w", err)
		}
		slog.Info("library saved", "path", cfg.Library, "poems", st.Len())
		return nil
	},
}

// --- evaluate command ---

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Run one bulk evaluation over the library and save the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := loadLibrary()
		if err != nil {
			return err
		}
		if st.Len() == 0 {
			fmt.Println("Library is empty, nothing to evaluate.")
			return nil
		}

		hist, err := history.Open(cfg.HistoryDB)
		if err != nil {
			return fmt.Errorf("opening history db: %w", err)
		}
		defer hist.Close()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ctrl := buildController(st, hist)
		run, ok := ctrl.Run(ctx, st.Snapshot())
		if !ok {
			return fmt.Errorf("bulk evaluation already in progress")
		}

		if err := library.Save(cfg.Library, st.Snapshot()); err != nil {
			return fmt.Errorf("saving library: %w", err)
		}

		fmt.Printf("Run %s: %d poems in %d batches\n", run.ID, run.Items, run.Batches)
		fmt.Printf("  accepted:  %d\n", run.Tally.Accepted)
		fmt.Printf("  deleted:   %d\n", run.Tally.Deleted)
		fmt.Printf("  ambiguous: %d\n", run.Tally.Ambiguous)
		fmt.Printf("  failed:    %d\n", run.Tally.Failed)
		return nil
	},
}

// --- list command ---

var (
	listStatus string
	listQuery  string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List poems in the library",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := loadLibrary()
		if err != nil {
			return err
		}

		poems := st.List(store.Filter{Query: listQuery, Status: listStatus})
		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.AppendHeader(table.Row{"ID", "Status", "Edited", "Title", "Body"})
		for _, p := range poems {
			edited := ""
			if p.Edited {
				edited = "yes"
			}
			tw.AppendRow(table.Row{p.ID, p.Status(), edited, excerpt(p.Title, 32), excerpt(p.Body, 48)})
		}
		tw.Render()
		fmt.Printf("%d poems\n", len(poems))
		return nil
	},
}

// --- status command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show collection counts and recent evaluation runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := loadLibrary()
		if err != nil {
			return err
		}

		c := st.Counts()
		fmt.Printf("Library: %s\n\n", cfg.Library)
		fmt.Println("Poems:")
		fmt.Printf("  Total:    %d\n", c.Total)
		fmt.Printf("  Accepted: %d\n", c.Accepted)
		fmt.Printf("  Deleted:  %d\n", c.Deleted)
		fmt.Printf("  Pending:  %d\n", c.Pending)
		fmt.Printf("  Edited:   %d\n", c.Edited)

		hist, err := history.Open(cfg.HistoryDB)
		if err != nil {
			return fmt.Errorf("opening history db: %w", err)
		}
		defer hist.Close()

		runs, err := hist.List(cmd.Context(), 10)
		if err != nil {
			return fmt.Errorf("listing runs: %w", err)
		}
		if len(runs) == 0 {
			fmt.Println("\nNo evaluation runs recorded yet.")
			return nil
		}

		fmt.Println("\nRecent runs:")
		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.AppendHeader(table.Row{"Started", "Items", "Batches", "Accepted", "Deleted", "Ambiguous", "Failed"})
		for _, r := range runs {
			tw.AppendRow(table.Row{
				r.StartedAt.Local().Format("2006-01-02 15:04"),
				r.Items, r.Batches,
				r.Tally.Accepted, r.Tally.Deleted, r.Tally.Ambiguous, r.Tally.Failed,
			})
		}
		tw.Render()
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&listStatus, "status", "", "Filter by status: accepted, deleted, pending")
	listCmd.Flags().StringVar(&listQuery, "query", "", "Substring match on title or body")
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func loadLibrary() (*store.Store, error) {
	poems, err := library.Load(cfg.Library)
	if err != nil {
		return nil, err
	}
	st := store.New()
	st.Load(poems)
	slog.Info("library loaded", "path", cfg.Library, "poems", st.Len())
	return st, nil
}

func buildController(st *store.Store, recorder bulk.RunRecorder) *bulk.Controller {
	client := evaluator.NewClient(buildProvider())
	batch := bulk.NewBatchEvaluator(st, client)
	return bulk.NewController(batch,
		bulk.WithMaxBatchSize(cfg.Pipeline.MaxBatchSize),
		bulk.WithCooldown(cfg.Pipeline.Cooldown.Std()),
		bulk.WithRecorder(recorder),
	)
}

// buildProvider selects the scoring backend from config, falling back
// to the stub when the configured provider's API key is missing.
func buildProvider() evaluator.Provider {
	ev := cfg.Evaluator
	timeout := ev.HTTPTimeout.Std()

	switch ev.Provider {
	case "openai":
		key := os.Getenv(ev.OpenAI.APIKeyEnv)
		if key == "" {
			slog.Warn("api key not set, using stub provider", "env", ev.OpenAI.APIKeyEnv)
			return evaluator.StubProvider{}
		}
		opts := []evaluator.OpenAIOption{
			evaluator.WithModel(ev.OpenAI.Model),
			evaluator.WithTimeout(timeout),
		}
		if ev.OpenAI.BaseURL != "" {
			opts = append(opts, evaluator.WithBaseURL(ev.OpenAI.BaseURL))
		}
		return evaluator.NewOpenAIProvider(key, opts...)
	case "claude":
		key := os.Getenv(ev.Claude.APIKeyEnv)
		if key == "" {
			slog.Warn("api key not set, using stub provider", "env", ev.Claude.APIKeyEnv)
			return evaluator.StubProvider{}
		}
		return evaluator.NewClaudeProvider(key,
			evaluator.WithClaudeModel(ev.Claude.Model),
			evaluator.WithClaudeTimeout(timeout),
		)
	case "ollama":
		return evaluator.NewOllamaProvider(ev.Ollama.URL,
			evaluator.WithOllamaModel(ev.Ollama.Model),
			evaluator.WithOllamaTimeout(timeout),
		)
	default:
		return evaluator.StubProvider{}
	}
}

func excerpt(s string, maxRunes int) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), "\n", " / ")
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes]) + "…"
}
