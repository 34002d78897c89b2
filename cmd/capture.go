package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ziadkadry99/deckviz/internal/capture"
	"github.com/ziadkadry99/deckviz/internal/progress"
	"github.com/ziadkadry99/deckviz/internal/server"
	"github.com/ziadkadry99/deckviz/internal/site"
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Screenshot every slide as a PNG for PowerPoint import",
	Long: `Drives a headless Chrome through the deck, revealing each slide's
fragments before taking its screenshot. Images are written as slide_01.png,
slide_02.png, ... together with powerpoint_instructions.md.

Without --url a private live server is started for the duration of the run.`,
	RunE: runCapture,
}

func init() {
	captureCmd.Flags().String("url", "", "capture an already running deck instead of starting one")
	captureCmd.Flags().String("dir", "", "override output directory")
	captureCmd.Flags().Bool("headed", false, "show the browser window")
	rootCmd.AddCommand(captureCmd)
}

func runCapture(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	d, err := loadDeck(cfg, logger)
	if err != nil {
		return err
	}

	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		dir = cfg.Capture.Dir
	}
	headed, _ := cmd.Flags().GetBool("headed")
	url, _ := cmd.Flags().GetString("url")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	// Without --url, serve the deck privately until the capture finishes.
	var srv *server.Server
	if url == "" {
		port, err := site.FreePort(cfg.Server.Host, cfg.Server.Port, cfg.Server.PortRange+1)
		if err != nil {
			return err
		}
		srv, err = server.New(server.Config{
			Host:            cfg.Server.Host,
			Port:            port,
			AssetRoot:       ".",
			EventsPerSecond: cfg.Server.EventsPerSecond,
			GateInterval:    cfg.GateInterval(),
			GateAttempts:    cfg.Gate.MaxAttempts,
			Stagger:         cfg.Stagger(),
		}, d, logger)
		if err != nil {
			return err
		}
		g.Go(srv.Start)
		url = fmt.Sprintf("http://%s:%d/", displayHost(cfg.Server.Host), port)
	}

	driver := &capture.RodDriver{
		BrowserPath: cfg.Capture.BrowserPath,
		Headless:    cfg.Capture.Headless && !headed,
	}
	c := capture.New(driver, capture.Options{
		URL:      url,
		Dir:      dir,
		Width:    cfg.Capture.Width,
		Height:   cfg.Capture.Height,
		Load:     time.Duration(cfg.Capture.LoadMs) * time.Millisecond,
		Settle:   time.Duration(cfg.Capture.SettleMs) * time.Millisecond,
		Fragment: time.Duration(cfg.Capture.FragmentMs) * time.Millisecond,
	}, capture.WithReporter(progress.NewReporter("Capturing slides")), capture.WithLogger(logger))

	var paths []string
	g.Go(func() error {
		if srv != nil {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(shutdownCtx)
			}()
		}
		var err error
		paths, err = c.Run(ctx, d)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("capturing slides: %w", err)
	}

	fmt.Printf("Captured %d slides into %s\n", len(paths), dir)
	fmt.Printf("PowerPoint import instructions: %s/%s\n", dir, capture.InstructionsFile)
	return nil
}
