package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/gridbook/internal/httpapi"
	"github.com/mesh-intelligence/gridbook/internal/transfer"
)

// previewMaxAge bounds how long an unconfirmed import preview is kept.
const previewMaxAge = 24 * time.Hour

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.settings.ListenAddr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: listen_addr from config)")
	return cmd
}

func (a *app) serve(ctx context.Context, addr string) error {
	s, err := a.openStore()
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Detach(); err != nil {
			a.logger.Warn("detach store", "error", err)
		}
	}()

	svc := a.newService(s)
	created, err := svc.EnsureDefaultSheet(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap default sheet: %w", err)
	}
	if created {
		a.logger.Info("default sheet created", "name", a.settings.DefaultSheet.Name)
	}

	previews := transfer.NewPreviewStore(a.settings.PreviewDir())
	if n, err := previews.Prune(previewMaxAge, time.Now()); err != nil {
		a.logger.Warn("prune import previews", "dir", previews.Dir(), "error", err)
	} else if n > 0 {
		a.logger.Info("pruned import previews", "count", n)
	}

	srv := httpapi.NewServer(httpapi.Config{
		Addr:   addr,
		Limits: a.settings.Import,
	}, svc, previews, a.logger)

	a.logger.Info("gridbook starting", "backend", a.settings.Store.Backend,
		"data_dir", a.settings.Store.DataDir, "config", a.settings.ConfigFile)
	return srv.ListenAndServe(ctx)
}
