package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/brogergvhs/comicgrab/internal/browser"
	"github.com/brogergvhs/comicgrab/internal/config"
	"github.com/brogergvhs/comicgrab/internal/extract"
	"github.com/brogergvhs/comicgrab/internal/pipeline"
	"github.com/brogergvhs/comicgrab/internal/ui"
	"github.com/brogergvhs/comicgrab/internal/util"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var (
	// target
	flagURL string

	// runtime
	flagOutput       string
	flagBrowser      string
	flagExcludeGIFs  bool
	flagKeepTiny     bool
	flagAggressive   bool
	flagBatchCapture bool
	flagTranscode    bool
	flagYes          bool

	// output formats
	flagCBZ  bool
	flagPDF  bool
	flagEPUB bool

	// headers/auth
	flagCookie     string
	flagCookieFile string
	flagUserAgent  string
)

func init() {
	downloadCmd := &cobra.Command{
		Use:   "download",
		Short: "Download one chapter's images and bundle them. Uses the defaults from the config file, overwritten by CLI flags",
		RunE:  runDownload,
	}

	// target
	downloadCmd.Flags().StringVar(&flagURL, "url", "", "chapter page URL")

	// runtime
	downloadCmd.Flags().StringVar(&flagOutput, "output", "", "base output folder")
	downloadCmd.Flags().StringVar(&flagBrowser, "browser", "", "headless browser use: auto, always or never")
	downloadCmd.Flags().BoolVar(&flagExcludeGIFs, "exclude-gifs", false, "drop .gif candidates (usually ads and spinners)")
	downloadCmd.Flags().BoolVar(&flagKeepTiny, "keep-tiny", false, "keep images under 15 KB instead of rejecting them")
	downloadCmd.Flags().BoolVar(&flagAggressive, "aggressive", false, "also filter comment/social widget images")
	downloadCmd.Flags().BoolVar(&flagBatchCapture, "batch-capture", false, "export all images from one browser render pass first")
	downloadCmd.Flags().BoolVar(&flagTranscode, "transcode", false, "re-encode accepted images as JPEG")
	downloadCmd.Flags().BoolVarP(&flagYes, "yes", "y", false, "never prompt; overwrite existing chapter folders")

	// output formats
	downloadCmd.Flags().BoolVar(&flagCBZ, "cbz", false, "build a CBZ archive (config default: on)")
	downloadCmd.Flags().BoolVar(&flagPDF, "pdf", false, "build a PDF")
	downloadCmd.Flags().BoolVar(&flagEPUB, "epub", false, "build an EPUB")

	// headers/auth
	downloadCmd.Flags().StringVar(&flagCookie, "cookie", "", "cookie string, e.g. \"key=value; other=123\"")
	downloadCmd.Flags().StringVar(&flagCookieFile, "cookie-file", "", "path to a text file with cookies (one header line)")
	downloadCmd.Flags().StringVar(&flagUserAgent, "user-agent", "", "override User-Agent")

	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, _ []string) error {
	cfg, usedPath, err := config.LoadMerged(config.Options{
		IgnoreConfig: flagIgnoreConfig,
		Debug:        flagDebug,
		Output:       flagOutput,
		Browser:      flagBrowser,
		ExcludeGIFs:  flagExcludeGIFs,
		KeepTiny:     flagKeepTiny,
		Aggressive:   flagAggressive,
		BatchCapture: flagBatchCapture,
		Transcode:    flagTranscode,
		CBZ:          flagCBZ,
		PDF:          flagPDF,
		EPUB:         flagEPUB,
		Cookie:       flagCookie,
		CookieFile:   flagCookieFile,
		UserAgent:    flagUserAgent,
	})
	if err != nil {
		return err
	}

	logSvc := ui.NewLogger(cfg.Debug)
	if usedPath != "" {
		fmt.Printf("Config file: %s\n", usedPath)
	}

	fmt.Println("Full config:")
	cfg.Print()
	fmt.Println()

	if flagURL == "" {
		return fmt.Errorf("missing --url")
	}

	if err := os.MkdirAll(cfg.Output, 0755); err != nil {
		return fmt.Errorf("cannot create output folder: %w", err)
	}

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

	// The PDF builder needs the transcoder for WebP pages even when
	// per-image transcoding is off.
	caps := pipeline.NewCapabilities(
		cfg.Browser != "never",
		cfg.Transcode || cfg.PDF,
		browser.Config{UserAgent: ua},
		logSvc,
	)

	opts := pipeline.Options{
		OutputDir:   cfg.Output,
		BrowserMode: cfg.Browser,
		Extract: extract.Options{
			ExcludeGIFs: cfg.ExcludeGIFs,
			Aggressive:  cfg.Aggressive,
		},
		SkipTiny:     cfg.SkipTiny,
		BatchCapture: cfg.BatchCapture,
		Transcode:    cfg.Transcode,
		Formats: pipeline.Formats{
			CBZ:  cfg.CBZ,
			PDF:  cfg.PDF,
			EPUB: cfg.EPUB,
		},
	}
	if !flagYes {
		opts.OnExistingDir = promptExistingDir
	}

	ctx, stop := util.InterruptContext(context.Background())
	defer stop()

	pm := ui.NewProgressManager()
	worker := pipeline.New(client, caps, opts, logSvc, pm)

	sum, err := worker.Run(ctx, flagURL)
	pm.Close()
	if err != nil {
		if errors.Is(err, pipeline.ErrAborted) {
			fmt.Println("Aborted.")
			return nil
		}
		util.RemoveIfEmpty(cfg.Output)
		return err
	}

	fmt.Println()
	fmt.Println("Download Summary:")
	fmt.Printf("Chapter:     %s / %s\n", sum.Target.ComicTitle, sum.Target.ChapterTitle)
	fmt.Printf("Pages:       %d/%d saved\n", sum.Accepted, sum.Candidates)
	if sum.Quarantined > 0 {
		fmt.Printf("Quarantined: %d (see %s)\n", sum.Quarantined, pipeline.QuarantineDir)
	}
	if sum.Rejected > 0 {
		fmt.Printf("Rejected:    %d\n", sum.Rejected)
	}
	if sum.Failed > 0 {
		fmt.Printf("Failed:      %d\n", sum.Failed)
	}
	fmt.Printf("Data:        %s\n", util.Human(sum.Bytes))
	fmt.Printf("Time:        %s\n", sum.Elapsed.Round(time.Second))
	fmt.Printf("Saved to:    %s\n", sum.Dir)

	for _, a := range sum.Archives {
		if a.Err != nil {
			fmt.Printf("%-4s failed: %v\n", a.Format, a.Err)
		} else {
			fmt.Printf("%-4s written: %s\n", a.Format, a.Path)
		}
	}

	if sum.Cancelled {
		fmt.Println("\nInterrupted. Partial results kept.")
	} else {
		fmt.Println("\nAll done.")
	}

	return nil
}

func promptExistingDir(dir string) pipeline.Decision {
	prompt := promptui.Select{
		Label: fmt.Sprintf("%s already exists", dir),
		Items: []string{"Overwrite", "Keep existing files and continue", "Abort"},
	}

	idx, _, err := prompt.Run()
	if err != nil {
		// no usable terminal; behave like --yes
		return pipeline.Overwrite
	}

	switch idx {
	case 1:
		return pipeline.Merge
	case 2:
		return pipeline.Abort
	default:
		return pipeline.Overwrite
	}
}
