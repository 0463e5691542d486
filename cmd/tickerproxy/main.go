// tickerproxy serves market data, news sentiment and an LLM trading
// assistant over HTTP.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/seenimoa/tickerproxy/api"
	"github.com/seenimoa/tickerproxy/internal/analysis/sentiment"
	"github.com/seenimoa/tickerproxy/internal/config"
	"github.com/seenimoa/tickerproxy/internal/datasource"
	"github.com/seenimoa/tickerproxy/internal/llm"
	"github.com/seenimoa/tickerproxy/internal/logging"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config and logger, populated before every command.
var (
	cfg *config.Config
	log zerolog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tickerproxy",
	Short: "tickerproxy: stock quotes, news sentiment and a trading chat assistant",
	Long: `tickerproxy is a stateless HTTP proxy in front of public market-data
endpoints and a language model. It serves quotes, price history, company
info, fundamentals, news and a chat assistant that can request buy, sell
and portfolio actions from the client.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Logging.Level = lvl
		}
		log = logging.New(cfg.Logging)
		api.Version = version
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(quoteCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tickerproxy %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.Server.Port = port
		}
		srv, err := api.NewServer(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		return srv.ListenAndServe(cmd.Context(), cfg.Addr())
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port override")
}

// --- Quote Command ---

var quoteCmd = &cobra.Command{
	Use:   "quote [symbol]",
	Short: "Fetch a quote and headline sentiment without starting the server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(cfg.Upstream.TimeoutSec)*time.Second)
		defer cancel()

		agg := datasource.NewAggregator(cfg)
		q, err := agg.GetQuote(ctx, args[0])
		if err != nil {
			return err
		}
		q.Sentiment = sentiment.NewAnalyzer(agg, cfg.News.HeadlineLimit, log).Sentiment(ctx, q.Symbol)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(q)
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration summary, API keys and provider reachability",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  tickerproxy - System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Println()

		fmt.Println("  Configuration:")
		fmt.Printf("    LLM Provider:  %s (model: %s)\n", cfg.LLM.Provider, cfg.LLM.Model)
		fmt.Printf("    News Source:   %s\n", cfg.News.Source)
		fmt.Printf("    API Server:    %s\n", cfg.Addr())
		fmt.Printf("    Upstream:      %ds timeout, %.1f req/s\n", cfg.Upstream.TimeoutSec, cfg.Upstream.RateLimitPerSec)
		fmt.Println()

		fmt.Println("  API Keys:")
		for _, k := range config.CheckAPIKeys(cfg) {
			status := "❌ not set"
			if k.IsSet {
				status = fmt.Sprintf("✅ set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Printf("    %-25s %s\n", k.Name+":", status)
		}
		fmt.Println()

		fmt.Printf("  %-27s %s\n", "LLM reachable:", pingProvider(cmd.Context()))
		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}

func pingProvider(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	provider, err := llm.NewProviderFromConfig(ctx, cfg)
	if err != nil {
		return "❌ " + err.Error()
	}
	if err := provider.Ping(ctx); err != nil {
		return "❌ " + err.Error()
	}
	return "✅ " + provider.Name()
}

// --- Config Command ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration with secrets masked",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := yaml.Marshal(cfg.Redacted())
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		_, err = os.Stdout.Write(out)
		return err
	},
}
