package cli_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/oncall-lab/rota/pkg/cli"
)

func TestInvalidLogLevel(t *testing.T) {
	err := cli.Run(context.Background(), []string{"rota", "--log-level", "bogus", "tick"})
	gt.Error(t, err)
}

func TestInvalidLogFormat(t *testing.T) {
	err := cli.Run(context.Background(), []string{"rota", "--log-format", "xml", "tick"})
	gt.Error(t, err)
}
