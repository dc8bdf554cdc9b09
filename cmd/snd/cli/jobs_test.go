package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/snd-erp/snd-erp/jobs"
)

func TestTriggerUnsupportedJob(t *testing.T) {
	cli, err := NewJobsCLI("localhost:6379")
	require.NoError(t, err)
	defer cli.Close()

	_, err = cli.Trigger(context.Background(), "payroll:run")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported job")
}

func TestTriggerNotConfigured(t *testing.T) {
	var cli *JobsCLI
	_, err := cli.Trigger(context.Background(), jobs.TaskSessionPrune)
	require.Error(t, err)
}

func TestInspectQueueNotConfigured(t *testing.T) {
	cli := &JobsCLI{}
	_, err := cli.InspectQueue(context.Background())
	require.Error(t, err)

	_, err = cli.ListScheduled(context.Background(), 0)
	require.Error(t, err)
}
