package cli

import (
	"context"

	"github.com/oncall-lab/rota/pkg/cli/config"
	"github.com/oncall-lab/rota/pkg/usecase"
	"github.com/oncall-lab/rota/pkg/utils/logging"
	"github.com/oncall-lab/rota/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

// cmdTick runs one escalation sweep and exits. Meant for scheduler-driven
// deployments (Cloud Scheduler, cron) where no long-lived server runs.
func cmdTick() *cli.Command {
	var (
		sentryCfg     config.Sentry
		firestoreCfg  config.Firestore
		dispatcherCfg config.Dispatcher
	)

	return &cli.Command{
		Name:  "tick",
		Usage: "Run a single escalation timeout sweep",
		Flags: joinFlags(sentryCfg.Flags(), firestoreCfg.Flags(), dispatcherCfg.Flags()),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := sentryCfg.Configure(); err != nil {
				return err
			}

			fs, err := firestoreCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer safe.Close(ctx, fs)

			uc := usecase.New(
				usecase.WithRepository(fs),
				usecase.WithDispatcher(dispatcherCfg.Configure(fs)),
			)

			if err := uc.TickEscalations(ctx); err != nil {
				return err
			}
			logging.From(ctx).Info("tick completed")
			return nil
		},
	}
}
