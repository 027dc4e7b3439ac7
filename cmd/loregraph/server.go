package loregraph

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/soundprediction/loregraph/pkg/config"
	"github.com/soundprediction/loregraph/pkg/server"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the Loregraph HTTP server",
	Long: `Start the Loregraph HTTP server to provide REST access to ingestion and
world lookups.

The server provides endpoints for:
- Ingesting text with chosen or model-selected kinds
- Looking up locations, exits, items, characters and nodes
- Listing registered kinds
- Health checks

Configuration can be provided through config files, environment variables, or command-line flags.`,
	RunE: runServer,
}

var (
	serverHost string
	serverPort int
	serverMode string
)

func init() {
	rootCmd.AddCommand(serverCmd)

	// Server-specific flags
	serverCmd.Flags().StringVar(&serverHost, "host", "localhost", "Server host")
	serverCmd.Flags().IntVar(&serverPort, "port", 8080, "Server port")
	serverCmd.Flags().StringVar(&serverMode, "mode", "debug", "Server mode (debug, release, test)")

	addStackFlags(serverCmd)
}

// addStackFlags registers the database, NLP and telemetry flags shared by
// commands that build a client.
func addStackFlags(cmd *cobra.Command) {
	// Database flags
	cmd.Flags().String("db-driver", "neo4j", "Database driver (neo4j, memory)")
	cmd.Flags().String("db-uri", "bolt://localhost:7687", "Database URI")
	cmd.Flags().String("db-username", "", "Database username")
	cmd.Flags().String("db-password", "", "Database password")
	cmd.Flags().String("db-database", "", "Database name")
	cmd.Flags().Bool("db-failover", true, "Fall back to an in-memory store when the database is unreachable")

	// NLP flags
	cmd.Flags().String("nlp-provider", "openai", "NLP provider (openai, openai-compatible)")
	cmd.Flags().String("nlp-model", "gpt-4o-mini", "NLP model")
	cmd.Flags().String("nlp-api-key", "", "NLP API key")
	cmd.Flags().String("nlp-base-url", "", "NLP base URL")
	cmd.Flags().Float32("nlp-temperature", 0.2, "NLP temperature")
	cmd.Flags().Int("nlp-max-tokens", 2048, "NLP max tokens")

	// Ingest flags
	cmd.Flags().Int("max-concurrency", 0, "Concurrent kind extractions (0 uses SEMAPHORE_LIMIT)")

	// Telemetry flags
	cmd.Flags().String("telemetry-parquet-path", "", "Path to directory for telemetry (errors and token usage)")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	overrideConfigWithFlags(cmd, cfg)
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serverHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = serverPort
	}
	if cmd.Flags().Changed("mode") {
		cfg.Server.Mode = serverMode
	}

	if err := validateServerConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	srv := server.New(cfg, a.client, a.logger)
	srv.Setup()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- err
		}
	}()

	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		a.logger.Info("Received signal", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		a.logger.Info("Server stopped gracefully")
		return nil
	}
}

func overrideConfigWithFlags(cmd *cobra.Command, cfg *config.Config) {
	// Database flags
	if cmd.Flags().Changed("db-driver") {
		cfg.Database.Driver, _ = cmd.Flags().GetString("db-driver")
	}
	if cmd.Flags().Changed("db-uri") {
		cfg.Database.URI, _ = cmd.Flags().GetString("db-uri")
	}
	if cmd.Flags().Changed("db-username") {
		cfg.Database.Username, _ = cmd.Flags().GetString("db-username")
	}
	if cmd.Flags().Changed("db-password") {
		cfg.Database.Password, _ = cmd.Flags().GetString("db-password")
	}
	if cmd.Flags().Changed("db-database") {
		cfg.Database.Database, _ = cmd.Flags().GetString("db-database")
	}
	if cmd.Flags().Changed("db-failover") {
		cfg.Database.Failover, _ = cmd.Flags().GetBool("db-failover")
	}

	// NLP flags
	if cfg.NLP.Models == nil {
		cfg.NLP.Models = map[string]config.NLPModelConfig{}
	}
	m := cfg.NLP.Models["default"]
	if cmd.Flags().Changed("nlp-provider") {
		m.Provider, _ = cmd.Flags().GetString("nlp-provider")
	}
	if cmd.Flags().Changed("nlp-model") {
		m.Model, _ = cmd.Flags().GetString("nlp-model")
	}
	if cmd.Flags().Changed("nlp-api-key") {
		m.APIKey, _ = cmd.Flags().GetString("nlp-api-key")
	}
	if cmd.Flags().Changed("nlp-base-url") {
		m.BaseURL, _ = cmd.Flags().GetString("nlp-base-url")
	}
	if cmd.Flags().Changed("nlp-temperature") {
		m.Temperature, _ = cmd.Flags().GetFloat32("nlp-temperature")
	}
	if cmd.Flags().Changed("nlp-max-tokens") {
		m.MaxTokens, _ = cmd.Flags().GetInt("nlp-max-tokens")
	}
	cfg.NLP.Models["default"] = m

	if cmd.Flags().Changed("max-concurrency") {
		cfg.Ingest.MaxConcurrency, _ = cmd.Flags().GetInt("max-concurrency")
	}

	// Telemetry flags
	if cmd.Flags().Changed("telemetry-parquet-path") {
		cfg.Telemetry.ParquetPath, _ = cmd.Flags().GetString("telemetry-parquet-path")
	}
}

func validateServerConfig(cfg *config.Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Server.Port)
	}
	return validateStackConfig(cfg)
}

func validateStackConfig(cfg *config.Config) error {
	switch cfg.Database.Driver {
	case "memory":
	case "", "neo4j":
		if cfg.Database.URI == "" {
			return fmt.Errorf("database URI is required")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}
	if cfg.NLP.Models["default"].APIKey == "" && cfg.NLP.Models["default"].BaseURL == "" {
		return fmt.Errorf("an NLP API key or base URL is required")
	}
	return nil
}
