package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/oncall-lab/rota/pkg/cli/config"
	"github.com/oncall-lab/rota/pkg/usecase"
	"github.com/oncall-lab/rota/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

// cmdDeliveries prints the recent delivery ledger of an owner.
func cmdDeliveries() *cli.Command {
	var (
		owner        string
		limit        int
		firestoreCfg config.Firestore
	)

	flags := joinFlags(
		[]cli.Flag{
			&cli.StringFlag{
				Name:        "owner",
				Usage:       "Owner whose deliveries to list",
				Required:    true,
				Destination: &owner,
			},
			&cli.IntFlag{
				Name:        "limit",
				Usage:       "Max rows to print",
				Value:       20,
				Destination: &limit,
			},
		},
		firestoreCfg.Flags(),
	)

	return &cli.Command{
		Name:  "deliveries",
		Usage: "Show recent webhook delivery attempts",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			fs, err := firestoreCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer safe.Close(ctx, fs)

			uc := usecase.New(usecase.WithRepository(fs))
			rows, total, err := uc.ListDeliveries(ctx, owner, 0, limit)
			if err != nil {
				return err
			}

			okMark := color.New(color.FgGreen).SprintFunc()
			failMark := color.New(color.FgRed).SprintFunc()
			for _, a := range rows {
				status := failMark("FAIL")
				if a.Success {
					status = okMark("OK")
				}
				code := "-"
				if a.StatusCode != nil {
					code = fmt.Sprintf("%d", *a.StatusCode)
				}
				line := fmt.Sprintf("%s  %-4s  http=%-3s  attempt=%d  delivery=%s  %s",
					humanize.Time(a.CreatedAt), status, code, a.AttemptNumber,
					a.DeliveryID.String(), a.EventType.String())
				if a.Error != "" {
					line += "  error=" + a.Error
				}
				safe.Write(ctx, os.Stdout, []byte(line+"\n"))
			}
			safe.Write(ctx, os.Stdout, fmt.Appendf(nil, "%d of %d attempts\n", len(rows), total))
			return nil
		},
	}
}
