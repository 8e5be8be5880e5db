package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/oncall-lab/rota/pkg/cli/config"
	"github.com/oncall-lab/rota/pkg/domain/model/errs"
	"github.com/oncall-lab/rota/pkg/domain/types"
	"github.com/oncall-lab/rota/pkg/usecase"
	"github.com/oncall-lab/rota/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

// cmdCalendar prints the effective on-call assignments of a schedule.
func cmdCalendar() *cli.Command {
	var (
		scheduleID   string
		fromStr      string
		days         int
		firestoreCfg config.Firestore
	)

	flags := joinFlags(
		[]cli.Flag{
			&cli.StringFlag{
				Name:        "schedule-id",
				Usage:       "Schedule to expand",
				Required:    true,
				Destination: &scheduleID,
			},
			&cli.StringFlag{
				Name:        "from",
				Usage:       "First day (YYYY-MM-DD, default: today)",
				Destination: &fromStr,
			},
			&cli.IntFlag{
				Name:        "days",
				Usage:       "Number of days to expand",
				Value:       14,
				Destination: &days,
			},
		},
		firestoreCfg.Flags(),
	)

	return &cli.Command{
		Name:  "calendar",
		Usage: "Show who is on call for the coming days",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			fs, err := firestoreCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer safe.Close(ctx, fs)

			from := time.Now().UTC()
			if fromStr != "" {
				parsed, err := time.Parse("2006-01-02", fromStr)
				if err != nil {
					return goerr.Wrap(err, "invalid from date",
						goerr.V("from", fromStr), goerr.T(errs.TagInvalidRequest))
				}
				from = parsed
			}
			if days < 1 {
				return goerr.New("days must be at least 1", goerr.V("days", days))
			}

			uc := usecase.New(usecase.WithRepository(fs))
			assignments, err := uc.Calendar(ctx, types.ScheduleID(scheduleID), from, from.AddDate(0, 0, days-1))
			if err != nil {
				return err
			}

			overrideMark := color.New(color.FgYellow).SprintFunc()
			memberName := color.New(color.FgHiWhite, color.Bold).SprintFunc()
			for _, a := range assignments {
				name := "(nobody)"
				if a.Member != nil {
					name = a.Member.Name
				}
				line := fmt.Sprintf("%s  %s", a.Date.Format("2006-01-02 Mon"), memberName(name))
				if a.IsOverride {
					detail := "override"
					if a.Reason != "" {
						detail += ": " + a.Reason
					}
					if a.NominalMember != nil {
						detail += " (was " + a.NominalMember.Name + ")"
					}
					line += "  " + overrideMark("["+detail+"]")
				}
				safe.Write(ctx, os.Stdout, []byte(line+"\n"))
			}
			return nil
		},
	}
}
