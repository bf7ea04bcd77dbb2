package node

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/ngageoint/scale/scheduler/store"
	"github.com/ngageoint/scale/scheduler/task"
)

func TestSyncCreatesNodesForNewAgents(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()
	st := store.NewMockStore(mockCtrl)
	ctx := context.Background()

	r := NewRegistry()
	r.RegisterAgents([]Agent{{"agent1", "host1"}, {"agent2", "host2"}})
	require.True(t, r.HasNewAgents())

	st.EXPECT().LoadActiveNodes(ctx, []string{"host1", "host2"}).Return([]store.NodeRecord{
		{ID: 1, Hostname: "host1", IsActive: true},
		{ID: 3, Hostname: "host3", IsActive: true},
	}, nil)
	st.EXPECT().CreateNodes(ctx, []string{"host2"}, []string{"agent2"}).Return([]store.NodeRecord{
		{ID: 2, Hostname: "host2", AgentID: "agent2", IsActive: true},
	}, nil)
	require.NoError(t, r.SyncWithStore(ctx, st, "scale:1"))
	require.False(t, r.HasNewAgents())

	nodes := r.GetNodes()
	require.Len(t, nodes, 3)
	n1, ok := r.GetNode("agent1")
	require.True(t, ok)
	require.Equal(t, 1, n1.ID())
	require.Equal(t, InitialCleanup, n1.State())
	n2, ok := r.GetNode("agent2")
	require.True(t, ok)
	require.Equal(t, 2, n2.ID())
	// host3 is active but has no agent yet.
	require.Equal(t, "host3", nodes[2].Hostname())
	require.Equal(t, Offline, nodes[2].State())
	require.Equal(t, map[State]int{InitialCleanup: 2, Offline: 1}, r.Counts())
}

func TestSyncReplacesAgentAndRemovesDeadNodes(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()
	st := store.NewMockStore(mockCtrl)
	ctx := context.Background()

	r := NewRegistry()
	r.RegisterAgents([]Agent{{"agent1", "host1"}, {"agent2", "host2"}})
	st.EXPECT().LoadActiveNodes(ctx, gomock.Any()).Return([]store.NodeRecord{
		{ID: 1, Hostname: "host1", IsActive: true},
		{ID: 2, Hostname: "host2", IsActive: true},
	}, nil)
	require.NoError(t, r.SyncWithStore(ctx, st, "scale:1"))

	// host1 restarts with a new agent ID, host2 is lost and deactivated.
	r.RegisterAgents([]Agent{{"agent1b", "host1"}})
	require.NotNil(t, r.LostNode("agent2"))
	st.EXPECT().LoadActiveNodes(ctx, []string{"host1", "host2"}).Return([]store.NodeRecord{
		{ID: 1, Hostname: "host1", IsActive: true},
		{ID: 2, Hostname: "host2", IsActive: false},
	}, nil)
	require.NoError(t, r.SyncWithStore(ctx, st, "scale:1"))

	_, ok := r.GetNode("agent1")
	require.False(t, ok)
	n1, ok := r.GetNode("agent1b")
	require.True(t, ok)
	require.Equal(t, "host1", n1.Hostname())
	_, ok = r.GetNode("agent2")
	require.False(t, ok)
	require.Len(t, r.GetNodes(), 1)
}

func TestAgentLostDuringSyncStaysOffline(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()
	st := store.NewMockStore(mockCtrl)
	ctx := context.Background()

	r := NewRegistry()
	r.RegisterAgents([]Agent{{"agent1", "host1"}, {"agent2", "host2"}})
	st.EXPECT().LoadActiveNodes(ctx, []string{"host1", "host2"}).DoAndReturn(
		func(context.Context, []string) ([]store.NodeRecord, error) {
			require.Nil(t, r.LostNode("agent1"))
			return []store.NodeRecord{
				{ID: 1, Hostname: "host1", IsActive: true},
				{ID: 2, Hostname: "host2", IsActive: true},
			}, nil
		})
	require.NoError(t, r.SyncWithStore(ctx, st, "scale:1"))
	require.False(t, r.HasNewAgents())

	_, ok := r.GetNode("agent1")
	require.False(t, ok)
	n2, ok := r.GetNode("agent2")
	require.True(t, ok)
	require.Equal(t, InitialCleanup, n2.State())
	require.Equal(t, map[State]int{InitialCleanup: 1, Offline: 1}, r.Counts())
	for _, n := range r.GetNodes() {
		if n.Hostname() == "host1" {
			require.False(t, n.IsOnline())
			require.Empty(t, n.NextTasks(t0))
		}
	}
}

func TestSyncStoreErrorLeavesAgentsPending(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()
	st := store.NewMockStore(mockCtrl)
	ctx := context.Background()

	r := NewRegistry()
	r.RegisterAgents([]Agent{{"agent1", "host1"}})
	st.EXPECT().LoadActiveNodes(ctx, gomock.Any()).Return(nil, errors.New("db down"))
	require.Error(t, r.SyncWithStore(ctx, st, "scale:1"))
	require.Empty(t, r.GetNodes())

	st.EXPECT().LoadActiveNodes(ctx, []string{"host1"}).Return([]store.NodeRecord{{ID: 1, Hostname: "host1", IsActive: true}}, nil)
	require.NoError(t, r.SyncWithStore(ctx, st, "scale:1"))
	_, ok := r.GetNode("agent1")
	require.True(t, ok)
}

func TestPauseAndResume(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()
	st := store.NewMockStore(mockCtrl)
	ctx := context.Background()
	records := []store.NodeRecord{{ID: 1, Hostname: "host1", IsActive: true}}

	r := NewRegistry()
	r.RegisterAgents([]Agent{{"agent1", "host1"}})
	st.EXPECT().LoadActiveNodes(ctx, gomock.Any()).Return(records, nil)
	require.NoError(t, r.SyncWithStore(ctx, st, "scale:1"))

	_, ok := r.PauseNode("unknown", "bad")
	require.False(t, ok)

	// The node is paused while the sync reads records that predate the pause.
	var n *Node
	st.EXPECT().LoadActiveNodes(ctx, gomock.Any()).DoAndReturn(
		func(context.Context, []string) ([]store.NodeRecord, error) {
			n, ok = r.PauseNode("agent1", "system failures")
			return records, nil
		})
	require.NoError(t, r.SyncWithStore(ctx, st, "scale:1"))
	require.True(t, ok)
	require.Equal(t, Paused, n.State())
	require.Equal(t, "system failures", n.Status().PauseReason)

	_, ok = r.ResumeNode("agent1")
	require.True(t, ok)
	require.False(t, n.IsPaused())

	// Later syncs apply the persisted pause flag again.
	st.EXPECT().LoadActiveNodes(ctx, gomock.Any()).Return([]store.NodeRecord{
		{ID: 1, Hostname: "host1", IsActive: true, IsPaused: true, PauseReason: "operator"},
	}, nil)
	require.NoError(t, r.SyncWithStore(ctx, st, "scale:1"))
	require.True(t, n.IsPaused())
}

func TestScaleImageAppliedOnSync(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()
	st := store.NewMockStore(mockCtrl)
	ctx := context.Background()

	r := NewRegistry()
	r.RegisterAgents([]Agent{{"agent1", "host1"}})
	st.EXPECT().LoadActiveNodes(ctx, gomock.Any()).Return([]store.NodeRecord{{ID: 1, Hostname: "host1", IsActive: true}}, nil).Times(2)
	require.NoError(t, r.SyncWithStore(ctx, st, "scale:1"))
	n, _ := r.GetNode("agent1")
	n.InitialCleanupCompleted()
	n.mu.Lock()
	n.pulledImage = "scale:1"
	n.mu.Unlock()
	require.Equal(t, Ready, n.State())

	require.NoError(t, r.SyncWithStore(ctx, st, "scale:2"))
	require.Equal(t, ImagePull, n.State())
}

func TestRegistryRoutesTaskUpdates(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()
	st := store.NewMockStore(mockCtrl)
	ctx := context.Background()

	r := NewRegistry()
	r.RegisterAgents([]Agent{{"agent1", "host1"}})
	st.EXPECT().LoadActiveNodes(ctx, gomock.Any()).Return([]store.NodeRecord{{ID: 1, Hostname: "host1", IsActive: true}}, nil)
	require.NoError(t, r.SyncWithStore(ctx, st, "scale:1"))

	tasks := r.NextTasks(t0)
	require.Len(t, tasks, 2)
	cleanup := tasks[1]
	require.Equal(t, task.KindCleanup, cleanup.Kind())
	cleanup.Launch(t0)
	cleanup.Update(&task.Update{TaskID: cleanup.ID(), Status: task.Finished, Timestamp: t0, ExitCode: task.ExitCode(0)})
	require.True(t, r.HandleTaskUpdate(cleanup))

	n, _ := r.GetNode("agent1")
	require.Equal(t, ImagePull, n.State())

	other := task.New(task.KindCleanup, "cleanup", "agent9", "img", "cmd", maintenanceResources)
	require.False(t, r.HandleTaskUpdate(other))
}
