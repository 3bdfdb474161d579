package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/rohmanhakim/linkmeta/internal/server"
)

const defaultAddr = "127.0.0.1:8089"

var (
	addr      string
	rateLimit float64
)

func newServeCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "serve",
		Short: "Serve the resolver over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return withApp(ctx, func(a *app) error {
				opts := []server.Option{server.WithLogger(a.logger)}
				if rateLimit > 0 {
					opts = append(opts, server.WithRateLimit(rate.Limit(rateLimit), max(1, int(rateLimit))))
				}
				srv := server.New(a.service, a.cfg.Resolution(), opts...)
				return srv.ListenAndServe(ctx, addr)
			})
		},
	}
	c.Flags().StringVar(&addr, "addr", defaultAddr, "listen address")
	c.Flags().Float64Var(&rateLimit, "rate-limit", 0, "resolve requests per second (0 for unlimited)")
	return c
}
