package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/AnchitSingh/AI-Study-Coach/internal/handler"
	"github.com/AnchitSingh/AI-Study-Coach/internal/llm"
	"github.com/AnchitSingh/AI-Study-Coach/internal/source"
	"github.com/AnchitSingh/AI-Study-Coach/internal/store"
	"github.com/AnchitSingh/AI-Study-Coach/internal/summarize"
	"github.com/AnchitSingh/AI-Study-Coach/internal/textprep"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "studycoach",
		Short: "AI study coach backend: quiz generation from study material",
	}

	serve := serveCmd()
	root.AddCommand(serve, cleanCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `studycoach --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "studycoach.db", "SQLite database path")
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.Int("summarize-concurrency", 1, "Chunks summarized in parallel (1 = sequential)")
	f.Duration("summarize-timeout", 60*time.Second, "Per-chunk summarization timeout")
	f.Int("max-chunks", textprep.DefaultMaxChunks, "Maximum chunks per source")
	f.Int("max-source-length", textprep.DefaultMaxLength, "Maximum cleaned source length in characters")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func cleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean [file]",
		Short: "Run the text cleaner over a file and print the result",
		Args:  cobra.ExactArgs(1),
		RunE:  runClean,
	}
	f := cmd.Flags()
	f.Bool("preserve-equations", false, "Keep mathematical notation instead of normalizing it")
	f.Bool("aggressive", false, "Strip all non-ASCII characters")
	f.Bool("stats", false, "Print cleaning stats to stderr")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("STUDYCOACH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("studycoach")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/studycoach")
	v.AddConfigPath("/etc/studycoach")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	llmClient := llm.New(
		v.GetString("llm-url"),
		v.GetString("llm-key"),
		v.GetString("llm-model"),
	)

	finalizer := &source.Finalizer{
		Summaries: &llm.SummarizerFactory{Client: llmClient},
		Clean: textprep.CleanOptions{
			MaxLength: v.GetInt("max-source-length"),
		},
		Chunking: textprep.ChunkOptions{
			MaxChunks: v.GetInt("max-chunks"),
		},
		Summarize: summarize.Options{
			PerChunkTimeout: v.GetDuration("summarize-timeout"),
			Concurrency:     v.GetInt("summarize-concurrency"),
		},
	}

	h := handler.New(db, llmClient, finalizer)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"model", v.GetString("llm-model"),
		"llm_url", v.GetString("llm-url"),
		"summarize_concurrency", v.GetInt("summarize-concurrency"),
		"max_chunks", v.GetInt("max-chunks"),
	)
	return http.ListenAndServe(addr, r)
}

func runClean(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	opts := textprep.CleanOptions{
		PreserveEquations: v.GetBool("preserve-equations"),
		AggressiveUnicode: v.GetBool("aggressive"),
	}
	cleaned, stats := textprep.CleanWithStats(string(data), opts)

	if v.GetBool("stats") {
		fmt.Fprintf(os.Stderr, "original: %d chars, cleaned: %d chars, reduction: %.2f, fallback: %v\n",
			stats.OriginalLength, stats.CleanedLength, stats.ReductionRatio, stats.UsedFallback)
		for _, warning := range stats.Warnings {
			fmt.Fprintln(os.Stderr, "warning:", warning)
		}
	}

	fmt.Println(cleaned)
	return nil
}
