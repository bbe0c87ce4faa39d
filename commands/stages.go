package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"olx-scraper/pipeline"
	"olx-scraper/scraper/olx"
	"olx-scraper/services"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape <keyword>...",
	Short: "Fetch search result pages and save their HTML",
	Args:  cobra.MinimumNArgs(1),
	RunE: forEachKeyword(func(ctx context.Context, p *pipeline.Pipeline, kw string) error {
		return p.Scrape(ctx, kw)
	}),
}

var parseCmd = &cobra.Command{
	Use:   "parse <keyword>...",
	Short: "Extract raw listings from saved HTML into CSV",
	Args:  cobra.MinimumNArgs(1),
	RunE: forEachKeyword(func(ctx context.Context, p *pipeline.Pipeline, kw string) error {
		return p.Parse(ctx, kw)
	}),
}

var transformCmd = &cobra.Command{
	Use:   "transform <keyword>...",
	Short: "Clean parsed listings and impute missing installments",
	Args:  cobra.MinimumNArgs(1),
	RunE: forEachKeyword(func(ctx context.Context, p *pipeline.Pipeline, kw string) error {
		_, err := p.Transform(ctx, kw)
		return err
	}),
}

var loadCmd = &cobra.Command{
	Use:   "load <keyword>...",
	Short: "Insert transformed listings into the database and write the audit file",
	Args:  cobra.MinimumNArgs(1),
	RunE: forEachKeyword(func(ctx context.Context, p *pipeline.Pipeline, kw string) error {
		_, err := p.Load(ctx, kw)
		return err
	}),
}

var runCmd = &cobra.Command{
	Use:   "run <keyword>...",
	Short: "Run all stages for each keyword and print a summary",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAll,
}

func init() {
	for _, c := range []*cobra.Command{scrapeCmd, runCmd} {
		c.Flags().String("fetcher", "browser", "page source: browser, static or file")
		c.Flags().String("html", "", "saved search page used by --fetcher=file")
		c.Flags().Duration("timeout", 30*time.Second, "request timeout for --fetcher=static")
	}
	runCmd.Flags().Bool("no-insights", false, "do not print the summary report")

	rootCmd.AddCommand(scrapeCmd, parseCmd, transformCmd, loadCmd, runCmd)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newPipeline(cmd *cobra.Command) (*pipeline.Pipeline, error) {
	opts := []pipeline.Option{}
	if resume, _ := cmd.Flags().GetBool("resume"); resume {
		opts = append(opts, pipeline.WithResume(true))
	}

	if cmd.Flags().Lookup("fetcher") != nil {
		fetcher, err := newFetcher(cmd)
		if err != nil {
			return nil, err
		}
		if fetcher != nil {
			opts = append(opts, pipeline.WithFetcher(fetcher))
		}
	}
	return pipeline.New(cfg, logger, opts...), nil
}

// newFetcher returns nil for the default browser fetcher.
func newFetcher(cmd *cobra.Command) (olx.Fetcher, error) {
	mode, _ := cmd.Flags().GetString("fetcher")
	switch strings.ToLower(mode) {
	case "", "browser":
		return nil, nil
	case "static":
		timeout, _ := cmd.Flags().GetDuration("timeout")
		return olx.NewStaticFetcher(cfg.BaseURL, timeout, logger), nil
	case "file":
		path, _ := cmd.Flags().GetString("html")
		if path == "" {
			return nil, fmt.Errorf("--fetcher=file requires --html")
		}
		return olx.FileFetcher{Path: path}, nil
	default:
		return nil, fmt.Errorf("unknown fetcher %q (want browser, static or file)", mode)
	}
}

func forEachKeyword(stage func(ctx context.Context, p *pipeline.Pipeline, kw string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		p, err := newPipeline(cmd)
		if err != nil {
			return err
		}

		failed := 0
		for _, kw := range args {
			if err := stage(ctx, p, kw); err != nil {
				logger.Error("[%s] keyword %q: %v", cmd.Name(), kw, err)
				failed++
			}
			if ctx.Err() != nil {
				break
			}
		}
		if failed > 0 {
			return fmt.Errorf("%s failed for %d of %d keywords", cmd.Name(), failed, len(args))
		}
		return nil
	}
}

func runAll(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	p, err := newPipeline(cmd)
	if err != nil {
		return err
	}

	start := time.Now()
	results, errs := p.RunAll(ctx, args)

	if noInsights, _ := cmd.Flags().GetBool("no-insights"); !noInsights {
		insights := services.NewInsightService(logger)
		for _, kw := range args {
			kw = strings.TrimSpace(kw)
			res, ok := results[kw]
			if !ok || errs[kw] != nil || res == nil {
				continue
			}
			insights.Print(os.Stdout, kw, insights.Generate(res.Listings))
		}
	}

	logger.Info("[engine] Done in %v: %d succeeded, %d failed",
		time.Since(start).Round(time.Second), len(results)-len(errs), len(errs))
	if len(errs) > 0 {
		return fmt.Errorf("run failed for %d keywords", len(errs))
	}
	return nil
}
