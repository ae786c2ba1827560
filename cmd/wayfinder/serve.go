package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-go-golems/wayfinder/pkg/toolserver"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the weather tools over HTTP JSON-RPC",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				s.Server.Addr, _ = cmd.Flags().GetString("addr")
			}
			ctx := cmd.Context()

			// always serve the in-process tools
			local := *s
			local.Providers.ToolServer = ""
			reg, err := newWeatherRegistry(ctx, &local)
			if err != nil {
				return err
			}

			ts := toolserver.NewServer(reg,
				toolserver.WithInvoker(newInvoker(s)),
				toolserver.WithToolConfig(s.Tools),
			)
			srv := &http.Server{
				Addr:              s.Server.Addr,
				Handler:           ts.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
				IdleTimeout:       120 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("addr", srv.Addr).Str("path", toolserver.RPCPath).Msg("tool server listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return errors.Wrap(err, "tool server failed")
			case <-ctx.Done():
			}

			log.Info().Msg("shutting down tool server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errors.Wrap(err, "tool server forced to shut down")
			}
			return nil
		},
	}
	cmd.Flags().String("addr", "", "Listen address (default :8000)")
	return cmd
}
