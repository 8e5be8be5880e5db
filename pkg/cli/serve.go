package cli

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oncall-lab/rota/pkg/cli/config"
	server "github.com/oncall-lab/rota/pkg/controller/http"
	"github.com/oncall-lab/rota/pkg/domain/interfaces"
	"github.com/oncall-lab/rota/pkg/domain/model/errs"
	"github.com/oncall-lab/rota/pkg/repository/memory"
	"github.com/oncall-lab/rota/pkg/usecase"
	"github.com/oncall-lab/rota/pkg/utils/logging"
	"github.com/oncall-lab/rota/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var (
		addr          string
		tickInterval  time.Duration
		sentryCfg     config.Sentry
		firestoreCfg  config.Firestore
		dispatcherCfg config.Dispatcher
	)

	flags := joinFlags(
		[]cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Aliases:     []string{"a"},
				Sources:     cli.EnvVars("ROTA_ADDR"),
				Usage:       "Listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "tick-interval",
				Sources:     cli.EnvVars("ROTA_TICK_INTERVAL"),
				Usage:       "Interval of the escalation timeout sweep",
				Value:       time.Minute,
				Destination: &tickInterval,
			},
		},
		sentryCfg.Flags(),
		firestoreCfg.Flags(),
		dispatcherCfg.Flags(),
	)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Run the HTTP server and the escalation ticker",
		Flags:   flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			logging.Default().Info("starting server",
				"addr", addr,
				"tick_interval", tickInterval,
				"sentry", sentryCfg,
				"firestore", firestoreCfg,
				"dispatcher", dispatcherCfg,
			)

			if err := sentryCfg.Configure(); err != nil {
				return err
			}

			var repo interfaces.Repository
			if firestoreCfg.IsConfigured() {
				fs, err := firestoreCfg.Configure(ctx)
				if err != nil {
					return err
				}
				defer safe.Close(ctx, fs)
				repo = fs
			} else {
				logging.From(ctx).Warn("Firestore is not configured, using in-memory store (data is lost on restart)")
				repo = memory.New()
			}

			uc := usecase.New(
				usecase.WithRepository(repo),
				usecase.WithDispatcher(dispatcherCfg.Configure(repo)),
			)

			httpServer := http.Server{
				Addr:              addr,
				Handler:           server.New(uc),
				ReadTimeout:       30 * time.Second,
				ReadHeaderTimeout: 10 * time.Second,
				BaseContext: func(l net.Listener) context.Context {
					return ctx
				},
			}

			// Timeout sweep loop. Every instance runs one; the run CAS makes
			// concurrent sweeps safe.
			tickCtx, stopTicker := context.WithCancel(ctx)
			defer stopTicker()
			go func() {
				ticker := time.NewTicker(tickInterval)
				defer ticker.Stop()
				for {
					select {
					case <-tickCtx.Done():
						return
					case <-ticker.C:
						if err := uc.TickEscalations(tickCtx); err != nil {
							errs.Handle(tickCtx, err)
						}
					}
				}
			}()

			errCh := make(chan error, 1)
			go func() {
				defer close(errCh)
				if err := httpServer.ListenAndServe(); err != nil {
					errCh <- err
				}
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logging.From(ctx).Info("shutting down", "signal", sig.String())
				stopTicker()

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return httpServer.Shutdown(shutdownCtx)
			}
		},
	}
}
