package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"tailscale.com/tsweb"

	"github.com/banshee-data/lasrun/internal/monitoring"
	"github.com/banshee-data/lasrun/internal/remote"
	"github.com/banshee-data/lasrun/internal/report"
)

func (a *app) serveCmd() *cobra.Command {
	var listen, adminListen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gRPC runner service and the admin HTTP pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if listen == "" {
				listen = a.settings.Remote.Listen
			}
			if adminListen == "" {
				adminListen = a.settings.Remote.AdminListen
			}
			env, err := a.env()
			if err != nil {
				return err
			}
			if len(a.settings.Remote.AllowedDirs) == 0 {
				monitoring.Logf("remote.allowed_dirs is empty: requests naming any file or folder will be refused")
			}
			srv := remote.NewServer(a.registry, env, a.defaults(), a.settings.Remote.AllowedDirs)

			lis, err := net.Listen("tcp", listen)
			if err != nil {
				return err
			}
			return a.serve(cmd.Context(), lis, adminListen, srv)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "gRPC listen address (default remote.listen)")
	cmd.Flags().StringVar(&adminListen, "admin-listen", "", "admin HTTP listen address (default remote.admin_listen)")
	return cmd
}

func (a *app) serve(ctx context.Context, lis net.Listener, adminListen string, srv *remote.Server) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		serveErr error
	)
	fail := func(err error) {
		mu.Lock()
		if serveErr == nil {
			serveErr = err
		}
		mu.Unlock()
		cancel()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := remote.Serve(ctx, lis, srv); err != nil {
			fail(err)
		}
		monitoring.Logf("runner service stopped")
	}()

	mux := http.NewServeMux()
	// mount the admin debugging routes (accessible only locally or over Tailscale)
	tsweb.Debugger(mux)
	store, err := a.history(false)
	if err != nil {
		cancel()
		wg.Wait()
		return err
	}
	if store != nil {
		store.AttachAdminRoutes(mux)
		report.AttachAdminRoutes(mux, store)
	}
	server := &http.Server{
		Addr:              adminListen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		go func() {
			monitoring.Logf("admin pages on http://%s/debug/", adminListen)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				fail(err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			monitoring.Logf("admin HTTP server shutdown error: %v", err)
		}
	}()

	wg.Wait()
	monitoring.Logf("graceful shutdown complete")
	return serveErr
}
