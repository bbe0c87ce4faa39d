// Package commands implements the olx-scraper CLI.
package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"olx-scraper/config"
	"olx-scraper/utils"
)

var (
	cfg     *config.Config
	logger  *utils.Logger
	logFile *os.File
)

var rootCmd = &cobra.Command{
	Use:   "olx-scraper",
	Short: "Scrape OLX Indonesia used-car listings into a database",
	Long: `olx-scraper runs an ETL pipeline over OLX used-car search results.

Each keyword goes through four stages, each reading the previous stage's
file under DATA_DIR:

  scrape     search page        -> raw_html/<slug>.html
  parse      raw HTML           -> parsed/<slug>.csv
  transform  parsed CSV         -> transformed/<slug>_transformed.csv
  load       transformed CSV    -> database + inserted/<slug>_inserted.json

Examples:
  # Full pipeline for one keyword
  olx-scraper run "Toyota Calya"

  # Several keywords concurrently, skipping stages already done
  olx-scraper run "BMW 3 Series" "Honda Jazz" --resume

  # Re-run only the transform stage
  olx-scraper transform "Toyota Calya"`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.Bool("debug", false, "enable debug logging")
	flags.Bool("json-logs", false, "emit logs as JSON")
	flags.String("log-file", "", "also write logs to this file (overrides LOG_FILE)")
	flags.String("data-dir", "", "root directory for stage files (overrides DATA_DIR)")
	flags.String("location", "", "location filter for the search (overrides SEARCH_LOCATION)")
	flags.String("db-driver", "", "postgres or sqlite (overrides DB_DRIVER)")
	flags.String("audit-format", "", "json or yaml (overrides AUDIT_FORMAT)")
	flags.Bool("resume", false, "skip stages whose output file already exists")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func setup(cmd *cobra.Command, _ []string) error {
	cfg = config.Load()
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0755); err != nil {
			return fmt.Errorf("log: create dir: %w", err)
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("log: open %q: %w", cfg.LogFile, err)
		}
		logFile = f
		out = io.MultiWriter(os.Stdout, f)
	}

	jsonLogs, _ := cmd.Flags().GetBool("json-logs")
	logger = utils.NewLoggerWithOptions(utils.LoggerOptions{
		Level:  cfg.LogLevel,
		JSON:   jsonLogs,
		Output: out,
	})
	logger.Debug("[config] driver=%s dsn=%s data_dir=%s concurrency=%d rate=%dms",
		cfg.DBDriver, cfg.SafeDSN(), cfg.DataDir, cfg.MaxConcurrency, cfg.RateLimitMs)
	return nil
}

func teardown(*cobra.Command, []string) error {
	if logFile != nil {
		return logFile.Close()
	}
	return nil
}

func applyFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if debug, _ := flags.GetBool("debug"); debug {
		c.LogLevel = "debug"
	}
	if v, _ := flags.GetString("log-file"); v != "" {
		c.LogFile = v
	}
	if v, _ := flags.GetString("data-dir"); v != "" {
		c.DataDir = v
	}
	if v, _ := flags.GetString("location"); v != "" {
		c.SearchLocation = v
	}
	if v, _ := flags.GetString("db-driver"); v != "" {
		c.DBDriver = v
	}
	if v, _ := flags.GetString("audit-format"); v != "" {
		c.AuditFormat = v
	}
}
