package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ziadkadry99/deckviz/internal/server"
	"github.com/ziadkadry99/deckviz/internal/site"
	"github.com/ziadkadry99/deckviz/internal/watch"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Present the deck from a local live server",
	Long: `Starts the presentation server. Slides are rendered on the server as
they are shown and pushed to the browser over a websocket. With --watch the
deck file is reloaded on save and open browsers refresh.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "port to listen on (overrides the config)")
	serveCmd.Flags().Bool("open", false, "open the browser (overrides the config)")
	serveCmd.Flags().Bool("no-open", false, "do not open the browser")
	serveCmd.Flags().Bool("watch", false, "reload the deck when its file changes")
	serveCmd.Flags().Bool("cors-all", false, "allow all CORS origins")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.Server.Port = port
	}
	if open, _ := cmd.Flags().GetBool("open"); open {
		cfg.Server.Open = true
	}
	if noOpen, _ := cmd.Flags().GetBool("no-open"); noOpen {
		cfg.Server.Open = false
	}
	watchDeck := cfg.Watch
	if w, _ := cmd.Flags().GetBool("watch"); w {
		watchDeck = true
	}
	allowAll, _ := cmd.Flags().GetBool("cors-all")

	d, err := loadDeck(cfg, logger)
	if err != nil {
		return err
	}

	port, err := site.FreePort(cfg.Server.Host, cfg.Server.Port, cfg.Server.PortRange+1)
	if err != nil {
		return err
	}
	if port != cfg.Server.Port {
		logger.Info("port in use, using next free port", zap.Int("wanted", cfg.Server.Port), zap.Int("port", port))
	}

	srv, err := server.New(server.Config{
		Host:            cfg.Server.Host,
		Port:            port,
		AllowAll:        allowAll,
		AssetRoot:       ".",
		EventsPerSecond: cfg.Server.EventsPerSecond,
		GateInterval:    cfg.GateInterval(),
		GateAttempts:    cfg.Gate.MaxAttempts,
		Stagger:         cfg.Stagger(),
	}, d, logger)
	if err != nil {
		return err
	}

	// Graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		fmt.Fprintln(os.Stderr, "\nShutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if watchDeck {
		w, err := watch.New(cfg.Deck, watch.DeckReloader(srv, logger), watch.WithLogger(logger))
		if err != nil {
			return err
		}
		g.Go(func() error { return w.Run(ctx) })
	}

	url := fmt.Sprintf("http://%s:%d/", displayHost(cfg.Server.Host), port)
	fmt.Fprintf(os.Stderr, "deckviz %s presenting %q (%d slides)\n", Version, d.Title, len(d.Slides))
	fmt.Fprintf(os.Stderr, "  Deck: %s\n", cfg.Deck)
	fmt.Fprintf(os.Stderr, "  URL:  %s\n", url)
	fmt.Fprintln(os.Stderr, "Press Ctrl+C to stop")

	if cfg.Server.Open {
		go func() {
			time.Sleep(300 * time.Millisecond)
			if err := site.OpenBrowser(url); err != nil {
				logger.Warn("could not open browser", zap.Error(err))
			}
		}()
	}

	return g.Wait()
}

// displayHost turns a wildcard listen host into something a browser can open.
func displayHost(host string) string {
	switch host {
	case "", "0.0.0.0", "::":
		return "localhost"
	}
	return host
}
