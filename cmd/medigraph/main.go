package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/medigraph/medigraph/internal/config"
	"github.com/medigraph/medigraph/internal/guideline"
	"github.com/medigraph/medigraph/internal/platform/graph"
	"github.com/medigraph/medigraph/internal/platform/source"
	"github.com/medigraph/medigraph/internal/qa"
	"github.com/medigraph/medigraph/internal/server"
	syncpkg "github.com/medigraph/medigraph/internal/sync"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "medigraph",
		Short: "Clinical graph sync and question answering",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(seedGuidelinesCmd())
	rootCmd.AddCommand(healthCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger
}

func connectGraph(ctx context.Context, cfg *config.Config) (*graph.Neo4j, error) {
	if err := cfg.ValidateGraph(); err != nil {
		return nil, err
	}
	return graph.Connect(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword, cfg.Neo4jDatabase)
}

// connectSource opens the configured relational source. The Snowflake path
// prompts on stdin for a one-time MFA passcode before dialing.
func connectSource(ctx context.Context, cfg *config.Config) (source.Conn, error) {
	if err := cfg.ValidateSource(); err != nil {
		return nil, err
	}

	switch cfg.SourceDriver {
	case "snowflake":
		fmt.Print("Enter Snowflake MFA passcode (TOTP): ")
		reader := bufio.NewReader(os.Stdin)
		passcode, err := reader.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("read passcode: %w", err)
		}
		return source.ConnectSnowflake(ctx, source.SnowflakeParams{
			User:      cfg.SnowflakeUser,
			Password:  cfg.SnowflakePass,
			Account:   cfg.SnowflakeAcct,
			Warehouse: cfg.SnowflakeWH,
			Database:  cfg.SnowflakeDB,
			Schema:    cfg.SnowflakeSchema,
			Role:      cfg.SnowflakeRole,
		}, strings.TrimSpace(passcode))
	default:
		return source.ConnectPostgres(ctx, cfg.SourceURL)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the question-answering HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			if err := cfg.ValidateLLM(); err != nil {
				return err
			}

			ctx := context.Background()
			store, err := connectGraph(ctx, cfg)
			if err != nil {
				logger.Error().Err(err).Msg("failed to connect to graph store")
				return err
			}
			defer store.Close(ctx)
			logger.Info().Str("uri", cfg.Neo4jURI).Msg("connected to graph store")

			var translator qa.Translator
			if cfg.LLMEnabled {
				translator, err = qa.NewLLMTranslator(cfg.OpenAIAPIKey, cfg.OpenAIModel)
				if err != nil {
					return err
				}
				logger.Info().Str("model", cfg.OpenAIModel).Msg("query translation enabled")
			}

			router := qa.NewRouter(store, translator, logger)
			srv := server.New(router, store, logger)

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start(":" + cfg.Port)
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case <-quit:
				logger.Info().Msg("shutting down")
				shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			}
		},
	}
}

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Load the relational source views into the graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			ctx := context.Background()
			store, err := connectGraph(ctx, cfg)
			if err != nil {
				logger.Error().Err(err).Msg("failed to connect to graph store")
				return err
			}
			defer store.Close(ctx)

			conn, err := connectSource(ctx, cfg)
			if err != nil {
				logger.Error().Err(err).Msg("failed to connect to source")
				return err
			}
			defer conn.Close(ctx)
			logger.Info().Str("driver", cfg.SourceDriver).Msg("connected to source")

			if err := store.EnsureSchema(ctx); err != nil {
				logger.Error().Err(err).Msg("failed to ensure graph schema")
				return err
			}

			pipeline := syncpkg.NewPipeline(syncpkg.NewExtractor(conn), store, cfg.MaxRowsPerEntity, logger)
			counts, err := pipeline.Run(ctx)
			for entity, n := range counts {
				logger.Info().Str("entity", string(entity)).Int("rows", n).Msg("entity loaded")
			}
			if err != nil {
				logger.Error().Err(err).Msg("sync failed")
				return err
			}

			stats, err := store.Stats(ctx)
			if err != nil {
				return err
			}
			for label, n := range stats.Nodes {
				logger.Info().Str("label", label).Int64("count", n).Msg("graph nodes")
			}
			logger.Info().Msg("sync complete")
			return nil
		},
	}
}

func askCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question against the graph",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			useLLM, _ := cmd.Flags().GetBool("llm")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			ctx := context.Background()
			store, err := connectGraph(ctx, cfg)
			if err != nil {
				logger.Error().Err(err).Msg("failed to connect to graph store")
				return err
			}
			defer store.Close(ctx)

			var translator qa.Translator
			if useLLM {
				if err := cfg.ValidateLLM(); err != nil {
					return err
				}
				if !cfg.LLMEnabled {
					return fmt.Errorf("--llm requires LLM_ENABLED=true")
				}
				translator, err = qa.NewLLMTranslator(cfg.OpenAIAPIKey, cfg.OpenAIModel)
				if err != nil {
					return err
				}
			}

			router := qa.NewRouter(store, translator, logger)
			question := strings.Join(args, " ")

			var resp qa.Response
			if useLLM {
				resp = router.AnswerTranslated(ctx, question)
			} else {
				resp = router.Answer(ctx, question)
			}

			fmt.Println(resp.Message)
			if resp.Table != nil {
				printTable(resp.Table)
			}
			return nil
		},
	}
	cmd.Flags().Bool("llm", false, "Translate the question with the configured language model")
	return cmd
}

func printTable(t *qa.Table) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(t.Columns, "\t"))
	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			if v == nil {
				cells[i] = ""
				continue
			}
			cells[i] = fmt.Sprint(v)
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	w.Flush()
}

func seedGuidelinesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-guidelines",
		Short: "Seed clinical guideline nodes and link them to existing conditions and medications",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			ctx := context.Background()
			store, err := connectGraph(ctx, cfg)
			if err != nil {
				logger.Error().Err(err).Msg("failed to connect to graph store")
				return err
			}
			defer store.Close(ctx)

			if err := guideline.NewSeeder(store, logger).Seed(ctx); err != nil {
				logger.Error().Err(err).Msg("guideline seeding failed")
				return err
			}
			logger.Info().Msg("guidelines seeded")
			return nil
		},
	}
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check source and graph connectivity, and apply graph constraints",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			ctx := context.Background()
			store, err := connectGraph(ctx, cfg)
			if err != nil {
				logger.Error().Err(err).Msg("graph store unreachable")
				return err
			}
			defer store.Close(ctx)
			logger.Info().Str("uri", cfg.Neo4jURI).Msg("graph store reachable")

			if err := store.EnsureSchema(ctx); err != nil {
				logger.Error().Err(err).Msg("failed to apply graph constraints")
				return err
			}
			logger.Info().Msg("graph constraints in place")

			stats, err := store.Stats(ctx)
			if err != nil {
				return err
			}
			for label, n := range stats.Nodes {
				logger.Info().Str("label", label).Int64("count", n).Msg("graph nodes")
			}

			conn, err := connectSource(ctx, cfg)
			if err != nil {
				logger.Error().Err(err).Msg("source unreachable")
				return err
			}
			defer conn.Close(ctx)
			logger.Info().Str("driver", cfg.SourceDriver).Msg("source reachable")
			return nil
		},
	}
}
