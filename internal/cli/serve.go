package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"modelrun/internal/httpapi"
	"modelrun/internal/metrics"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(st *state) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only planning API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := st.setup(true, metrics.New(true))
			if err != nil {
				return err
			}
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			httpapi.SetLogger(a.log)
			httpapi.SetBaseContext(st.ctx)
			httpapi.SetPlanTimeout(a.cfg.PlanTimeout())
			httpapi.SetCORSOptions(a.cfg.Server.CORSEnabled, a.cfg.Server.CORSOrigins, nil, nil)

			srv := &http.Server{
				Addr:              addr,
				Handler:           httpapi.NewMux(a, a.metrics),
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				a.log.Info().Str("addr", addr).Str("catalog", a.catalog.URL()).Msg("modelrun listening")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-st.ctx.Done():
			}
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				a.log.Warn().Err(err).Msg("graceful shutdown error")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (defaults server.addr or MODELRUN_ADDR)")
	return cmd
}
