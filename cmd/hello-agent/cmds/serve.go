package cmds

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-go-golems/hello-agent/pkg/events"
	"github.com/go-go-golems/hello-agent/pkg/server"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const chatEventsTopic = "chat-events"

func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings()
			if err != nil {
				return err
			}
			loop, err := buildLoop(s)
			if err != nil {
				return err
			}

			router, err := events.NewEventRouter(events.WithLogger(events.NewWatermillLogger(log.Logger)))
			if err != nil {
				return err
			}
			defer func() {
				_ = router.Close()
			}()
			router.AddHandler("log-chat-events", chatEventsTopic, events.LogEventHandler)

			srv := server.New(loop,
				server.WithRateLimit(s.Server.RateLimit, s.Server.RateBurst),
				server.WithRequestTimeout(s.Server.RequestTimeout),
				server.WithEventSinks(router.Sink(chatEventsTopic)),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Info().
				Str("provider", string(s.API.Provider)).
				Str("model", s.API.Model).
				Int("max_iterations", s.Loop.MaxIterations).
				Msg("Starting hello-agent")

			eg, ctx := errgroup.WithContext(ctx)
			eg.Go(func() error {
				return router.Run(ctx)
			})
			eg.Go(func() error {
				select {
				case <-router.Running():
				case <-ctx.Done():
					return nil
				}
				return srv.ListenAndServe(ctx, s.Server.Address)
			})
			err = eg.Wait()
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().String("address", ":8000", "Address to listen on")
	cmd.Flags().Float64("rate-limit", 5, "Requests per second allowed on /chat (0 disables limiting)")
	cmd.Flags().Int("rate-burst", 10, "Burst size of the /chat rate limiter")
	cmd.Flags().Duration("request-timeout", 2*time.Minute, "Upper bound for one /chat request")
	bindFlags(cmd, map[string]string{
		"server.address":         "address",
		"server.rate-limit":      "rate-limit",
		"server.rate-burst":      "rate-burst",
		"server.request-timeout": "request-timeout",
	})

	return cmd
}
