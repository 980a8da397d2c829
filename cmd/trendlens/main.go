// TrendLens — keyword trend detection and alerting.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/trendlens/trendlens/api"
	"github.com/trendlens/trendlens/internal/config"
	"github.com/trendlens/trendlens/internal/expander"
	"github.com/trendlens/trendlens/internal/llm"
	"github.com/trendlens/trendlens/internal/notify"
	"github.com/trendlens/trendlens/internal/pipeline"
	"github.com/trendlens/trendlens/internal/report"
	"github.com/trendlens/trendlens/internal/settings"
	"github.com/trendlens/trendlens/internal/store"
	"github.com/trendlens/trendlens/internal/trend"
	"github.com/trendlens/trendlens/pkg/logger"
	"github.com/trendlens/trendlens/pkg/models"
	"github.com/trendlens/trendlens/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config
var cfg *config.Config

func main() {
	// .env is optional; real deployments use the environment directly.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "trendlens",
	Short: "TrendLens — keyword trend detection and alerting",
	Long: `TrendLens watches search interest for tracked keywords: it fetches
monthly search volume histories, forecasts next-month and next-quarter
movement from seasonal patterns, and raises alerts when a keyword's
trajectory crosses your thresholds.`,
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

		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			cfg.Logging.Level = level
		}
		logger.Set(logger.New(cfg.Logging))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(expandCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(notifyCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("TrendLens %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Analyze Command ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze [keyword...]",
	Short: "Forecast trends for keywords and flag alerts",
	Long: `Fetch volume histories for the given keywords (or a --file with one
keyword per line), forecast their trajectory, and print the report.
Alerts are delivered to the configured Slack webhook unless --dry-run
is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		keywords := args
		if file, _ := cmd.Flags().GetString("file"); file != "" {
			fromFile, err := readKeywordFile(file)
			if err != nil {
				return err
			}
			keywords = append(keywords, fromFile...)
		}
		if len(keywords) == 0 {
			return fmt.Errorf("provide keywords as arguments or via --file")
		}

		th := trend.Thresholds{
			MinIncreasePct: cfg.Alerts.MinIncreasePct,
			MaxDecreasePct: cfg.Alerts.MaxDecreasePct,
			MinHits:        int(cfg.Alerts.MinHits),
		}
		if v, _ := cmd.Flags().GetFloat64("min-increase"); cmd.Flags().Changed("min-increase") {
			th.MinIncreasePct = v
		}
		if v, _ := cmd.Flags().GetFloat64("max-decrease"); cmd.Flags().Changed("max-decrease") {
			th.MaxDecreasePct = v
		}
		if v, _ := cmd.Flags().GetInt("min-hits"); cmd.Flags().Changed("min-hits") {
			th.MinHits = v
		}

		opts := []pipeline.Option{}
		if noExpand, _ := cmd.Flags().GetBool("no-expand"); noExpand {
			opts = append(opts, pipeline.WithExpander(nil))
		}
		pipe, err := pipeline.FromConfig(cfg, opts...)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		results, alerts, err := pipe.AnalyzeAlerts(ctx, keywords, th)
		if err != nil {
			return err
		}

		fmt.Print(report.GenerateText(report.WrapKeywords(results), alerts, report.DefaultReportConfig()))

		dryRun, _ := cmd.Flags().GetBool("dry-run")
		if len(alerts) > 0 && (cfg.Notify.SlackWebhookURL != "" || dryRun) {
			n := notify.New(cfg.Notify.SlackWebhookURL, notify.WithDryRun(dryRun || cfg.Notify.DryRun))
			if err := n.SendAlerts(ctx, alerts); err != nil {
				return fmt.Errorf("deliver alerts: %w", err)
			}
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().String("file", "", "file with one keyword per line")
	analyzeCmd.Flags().Bool("dry-run", false, "log alerts instead of delivering them")
	analyzeCmd.Flags().Bool("no-expand", false, "skip LLM keyword expansion")
	analyzeCmd.Flags().Float64("min-increase", 0, "alert when monthly change rises at least this percent")
	analyzeCmd.Flags().Float64("max-decrease", 0, "alert when monthly change falls to this percent (negative)")
	analyzeCmd.Flags().Int("min-hits", 0, "historical average volume floor for alerts")
}

// --- Expand Command ---

var expandCmd = &cobra.Command{
	Use:   "expand [keyword...]",
	Short: "Generate similar search queries for keywords",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		router, err := llm.NewRouterFromConfig(cfg)
		if err != nil {
			return err
		}
		exp := expander.New(router, expander.WithPerSeed(cfg.Pipeline.SimilarPerKeyword))

		expanded, err := exp.ExpandBatch(cmd.Context(), args)
		if err != nil {
			return err
		}

		for _, kw := range expanded {
			fmt.Printf("%s\n", kw.Text)
			for _, similar := range kw.SimilarKeywords {
				fmt.Printf("  · %s\n", similar)
			}
		}
		return nil
	},
}

// --- Scan Command ---

var scanCmd = &cobra.Command{
	Use:   "scan [url]",
	Short: "Extract a keyword campaign structure from a website",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pipe, err := pipeline.FromConfig(cfg)
		if err != nil {
			return err
		}

		tree, err := pipe.ScanWebsite(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if save, _ := cmd.Flags().GetBool("save"); save {
			st, err := store.Open(cfg.Database)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.ReplaceTree(cmd.Context(), tree); err != nil {
				return err
			}
			fmt.Printf("Saved %d categories to the keyword store.\n", len(tree))
		}

		return printJSON(tree)
	},
}

func init() {
	scanCmd.Flags().Bool("save", false, "replace the stored category tree with the result")
}

// --- Notify Command ---

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Run the scheduled alert check for tracked keywords",
	Long: `Read the tracked keyword list and thresholds from the settings store,
forecast every keyword, and deliver alerts to the configured Slack
webhook. Intended to run from cron once a month.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		set := settings.New(cfg.Redis)
		if err := set.Initialize(ctx, false); err != nil {
			return fmt.Errorf("settings store: %w", err)
		}

		current, err := set.Get(ctx)
		if err != nil {
			return err
		}
		keywords, err := set.Keywords(ctx)
		if err != nil {
			return err
		}
		if len(keywords) == 0 {
			logger.Info("no tracked keywords; nothing to check")
			return nil
		}

		pipe, err := pipeline.FromConfig(cfg)
		if err != nil {
			return err
		}

		th := trend.Thresholds{
			MinIncreasePct: current.NotificationThreshold,
			MaxDecreasePct: -current.NotificationThreshold,
			MinHits:        current.MinHitsThreshold,
		}
		results, alerts, err := pipe.AnalyzeAlerts(ctx, keywords, th)
		if err != nil {
			return err
		}

		logger.WithField("keywords", len(results)).
			WithField("alerts", len(alerts)).
			Info("alert check complete")

		if len(alerts) == 0 {
			return nil
		}

		webhook := current.SlackWebhookURL
		if webhook == "" {
			webhook = cfg.Notify.SlackWebhookURL
		}
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		n := notify.New(webhook, notify.WithDryRun(dryRun || cfg.Notify.DryRun))
		return n.SendAlerts(ctx, alerts)
	},
}

func init() {
	notifyCmd.Flags().Bool("dry-run", false, "log alerts instead of delivering them")
}

// --- Export Command ---

var exportCmd = &cobra.Command{
	Use:   "export [output-file]",
	Short: "Analyze the stored category tree and export a report",
	Long: `Load the tracked category tree from the keyword store, run the full
analysis, and write the report. The format follows the file extension:
.xlsx for a workbook, .html for the dashboard report, anything else
for plain text.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := args[0]
		ctx := cmd.Context()

		st, err := store.Open(cfg.Database)
		if err != nil {
			return err
		}
		defer st.Close()

		tree, err := st.LoadTree(ctx)
		if err != nil {
			return err
		}
		if len(tree) == 0 {
			return fmt.Errorf("the keyword store has no tracked categories")
		}

		pipe, err := pipeline.FromConfig(cfg)
		if err != nil {
			return err
		}
		analyzed, err := pipe.AnalyzeTree(ctx, tree)
		if err != nil {
			return err
		}

		var forecasts []models.KeywordForecast
		for _, cat := range analyzed {
			for _, group := range cat.AdGroups {
				forecasts = append(forecasts, group.Keywords...)
			}
		}
		alerts := trend.ExtractAlerts(forecasts, trend.Thresholds{
			MinIncreasePct: cfg.Alerts.MinIncreasePct,
			MaxDecreasePct: cfg.Alerts.MaxDecreasePct,
			MinHits:        int(cfg.Alerts.MinHits),
		})

		switch {
		case strings.HasSuffix(out, ".xlsx"):
			err = report.WriteTree(out, analyzed)
		case strings.HasSuffix(out, ".html"):
			var html string
			html, err = report.GenerateHTML(analyzed, alerts, report.DefaultReportConfig())
			if err == nil {
				err = os.WriteFile(out, []byte(html), 0o644)
			}
		default:
			err = os.WriteFile(out, []byte(report.GenerateText(analyzed, alerts, report.DefaultReportConfig())), 0o644)
		}
		if err != nil {
			return err
		}

		fmt.Printf("Report written to %s (%d categories, %d alerts)\n", out, len(analyzed), len(alerts))
		return nil
	},
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server and dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, err := api.NewServer(cfg)
		if err != nil {
			return err
		}
		if noUI, _ := cmd.Flags().GetBool("no-ui"); noUI {
			srv.SetServeUI(false)
		}

		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		logger.WithField("addr", addr).Info("starting TrendLens API server")
		return srv.ListenAndServe(addr)
	},
}

func init() {
	serveCmd.Flags().Bool("no-ui", false, "serve the API only, without the embedded dashboard")
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  TrendLens — System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Println()

		fmt.Println("  Configuration:")
		fmt.Printf("    LLM Provider:    %s (model: %s)\n", cfg.LLM.Primary, cfg.LLM.Model)
		fmt.Printf("    Volume Provider: %s\n", cfg.Ads.Provider)
		fmt.Printf("    API Server:      %s:%d\n", cfg.API.Host, cfg.API.Port)
		fmt.Printf("    Alert Floor:     %s hits, %s / %s\n",
			utils.FormatVolume(int(cfg.Alerts.MinHits)),
			utils.FormatPct(cfg.Alerts.MinIncreasePct),
			utils.FormatPct(cfg.Alerts.MaxDecreasePct))
		fmt.Println()

		fmt.Println("  Stores:")
		fmt.Printf("    MySQL:  %s\n", checkStore(ctx))
		fmt.Printf("    Redis:  %s\n", checkSettings(ctx))
		fmt.Println()

		fmt.Println("  Credentials:")
		for _, k := range config.CheckAPIKeys(cfg) {
			status := "❌ not set"
			if k.IsSet {
				status = fmt.Sprintf("✅ set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Printf("    %-28s %s\n", k.Name+":", status)
		}

		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}

func checkStore(ctx context.Context) string {
	st, err := store.Open(cfg.Database)
	if err != nil {
		return fmt.Sprintf("❌ %v", err)
	}
	defer st.Close()

	count, err := st.CountKeywords(ctx)
	if err != nil {
		return fmt.Sprintf("❌ %v", err)
	}
	return fmt.Sprintf("✅ connected (%d tracked keywords)", count)
}

func checkSettings(ctx context.Context) string {
	set := settings.New(cfg.Redis)
	if err := set.Ping(ctx); err != nil {
		return fmt.Sprintf("❌ %v", err)
	}

	keywords, err := set.Keywords(ctx)
	if err != nil {
		return fmt.Sprintf("❌ %v", err)
	}
	return fmt.Sprintf("✅ connected (%d watched keywords)", len(keywords))
}

// --- Helpers ---

// readKeywordFile reads one keyword per line, skipping blanks and
// comments.
func readKeywordFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keyword file: %w", err)
	}

	var keywords []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		keywords = append(keywords, line)
	}
	return keywords, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
