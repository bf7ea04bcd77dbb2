package setup

import (
	"context"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/ngageoint/scale/scheduler/job"
	"github.com/ngageoint/scale/scheduler/store"
	"github.com/ngageoint/scale/scheduler/store/memory"
)

func TestSeedDemoWork(t *testing.T) {
	ctx := context.Background()
	st := memory.New(clock.NewMock())
	require.NoError(t, SeedDemoWork(ctx, st, "scale:1", 7))
	require.Equal(t, 7, st.QueueLen())

	limits, err := st.LoadWorkTypeLimitsAndCounts(ctx)
	require.NoError(t, err)
	require.Len(t, limits.Types, 3)
	require.Equal(t, map[string]int{"scale-export": 5}, limits.Slots())

	// Ingest work comes first.
	first := ""
	require.NoError(t, st.LoadQueuedWork(ctx, store.QueueFilter{}, func(q *job.QueuedExecution) bool {
		first = q.JobType
		return false
	}))
	require.Equal(t, "scale-ingest", first)
}
