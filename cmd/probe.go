package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/brogergvhs/comicgrab/internal/browser"
	"github.com/brogergvhs/comicgrab/internal/config"
	"github.com/brogergvhs/comicgrab/internal/extract"
	"github.com/brogergvhs/comicgrab/internal/pipeline"
	"github.com/brogergvhs/comicgrab/internal/ui"
	"github.com/brogergvhs/comicgrab/internal/util"

	"github.com/spf13/cobra"
)

var (
	probeBrowser     string
	probeExcludeGIFs bool
	probeAggressive  bool
)

func init() {
	probeCmd := &cobra.Command{
		Use:   "probe <url>",
		Short: "Render a chapter page and list the image URLs it would download",
		Args:  cobra.ExactArgs(1),
		RunE:  runProbe,
	}

	probeCmd.Flags().StringVar(&probeBrowser, "browser", "", "headless browser use: auto, always or never")
	probeCmd.Flags().BoolVar(&probeExcludeGIFs, "exclude-gifs", false, "drop .gif candidates")
	probeCmd.Flags().BoolVar(&probeAggressive, "aggressive", false, "also filter comment/social widget images")

	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	url := args[0]

	cfg, _, err := config.LoadMerged(config.Options{
		IgnoreConfig: flagIgnoreConfig,
		Debug:        flagDebug,
		Browser:      probeBrowser,
		ExcludeGIFs:  probeExcludeGIFs,
		Aggressive:   probeAggressive,
	})
	if err != nil {
		return err
	}

	logSvc := ui.NewLogger(cfg.Debug)
	ua := util.PickUserAgent(cfg.UserAgent)

	client, err := util.NewHTTPClient(util.HTTPClientOptions{
		Timeout:     30 * time.Second,
		UserAgent:   ua,
		Cookie:      cfg.Cookie,
		CookieFile:  cfg.CookieFile,
		DebugLogger: logSvc,
	})
	if err != nil {
		return err
	}

	caps := pipeline.NewCapabilities(cfg.Browser != "never", false, browser.Config{UserAgent: ua}, logSvc)
	worker := pipeline.New(client, caps, pipeline.Options{
		BrowserMode: cfg.Browser,
		Extract: extract.Options{
			ExcludeGIFs: cfg.ExcludeGIFs,
			Aggressive:  cfg.Aggressive,
		},
	}, logSvc, nil)

	ctx, stop := util.InterruptContext(context.Background())
	defer stop()

	report, err := worker.Probe(ctx, url)
	if err != nil {
		return err
	}

	fmt.Printf("Title:   %s\n", report.Target.ComicTitle)
	fmt.Printf("Chapter: %s\n", report.Target.ChapterTitle)
	fmt.Printf("Images:  %d\n\n", len(report.Candidates))

	shown := len(report.Candidates)
	if shown > 10 {
		shown = 10
	}
	for i := 0; i < shown; i++ {
		fmt.Printf("%3d) %s\n", i+1, report.Candidates[i].URL)
	}
	if rest := len(report.Candidates) - shown; rest > 0 {
		fmt.Printf("     ... and %d more\n", rest)
	}

	return nil
}
