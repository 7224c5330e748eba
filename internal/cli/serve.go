package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ppiankov/thermobook/internal/api"
	"github.com/ppiankov/thermobook/internal/store"
	"github.com/spf13/cobra"
)

var (
	serveFetch     fetchFlags
	serveAddr      string
	serveDB        string
	serveNoExtract bool
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve stored substance records over HTTP",
	Long: `Serve exposes the document store as a JSON API:
  GET /health                 liveness
  GET /substances             paged summaries (?page=1&per_page=20)
  GET /substances/{cas}       full record

A lookup of a CAS number that is not stored yet walks the substance on
demand and stores it when it qualifies, unless --no-extract is set.

Example:
  thermobook serve --addr :8080 --db ./webbook.db`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().StringVar(&serveDB, "db", "", "document store path (default from config)")
	serveCmd.Flags().BoolVar(&serveNoExtract, "no-extract", false, "serve stored records only")
	serveFetch.register(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	serveFetch.apply(cfg)
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if serveDB != "" {
		cfg.Store.Path = serveDB
	}
	logger := newLogger(cfg)

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	var srv *api.Server
	if serveNoExtract {
		srv = api.NewServer(cfg.Server.Addr, st, nil, logger)
	} else {
		srv = api.NewServer(cfg.Server.Addr, st, newPipeline(cfg, st, logger), logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "✓ Serving %s on %s\n", cfg.Store.Path, cfg.Server.Addr)
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
