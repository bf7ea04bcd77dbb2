package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/ngageoint/scale/scheduler/store/bolt"
	"github.com/ngageoint/scale/scheduler/store/memory"
)

var tests = []string{"default", "local.memory", "local.bolt"}

// Tests to ensure config is properly specified
// and that they parse correctly
func TestGettingConfigurations(t *testing.T) {
	for _, configSelector := range tests {
		configs, err := GetSchedulerConfigs(configSelector)
		assert.Nil(t, err, fmt.Sprintf("error getting scheduler config %s: %s", configSelector, err))
		_, err = configs.Scheduler.CreateSchedulerConfig()
		assert.Nil(t, err, fmt.Sprintf("error creating scheduler config %s: %s", configSelector, err))
	}

	selector := "invalid.selector"
	configs, err := GetSchedulerConfigs(selector)
	assert.NotNil(t, err, fmt.Sprintf("configuration returned for %s: %s", selector, configs))
}

// TestCreatingConfigStruct test overriding default structure values with values from
// the selected named configuration.
func TestCreatingConfigStruct(t *testing.T) {
	configs, err := GetSchedulerConfigs("local.bolt")
	require.NoError(t, err)
	assert.Equal(t, "bolt", configs.Store.Type)
	assert.Equal(t, ".scaledata", configs.Store.Directory)

	// Cluster and Status come from the default config.
	assert.Equal(t, "sim", configs.Cluster.Type)
	assert.Equal(t, 3, configs.Cluster.Count)
	assert.Equal(t, "localhost:9890", configs.Status.Addr)
	assert.Equal(t, DefaultMaxConns, configs.Status.MaxConns)

	sc, err := configs.Scheduler.CreateSchedulerConfig()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, sc.IdleDelay)
	assert.Equal(t, 30*time.Minute, sc.RunningTimeout)
	assert.Equal(t, 3, sc.StoreRetry.Attempts)
	assert.Equal(t, 250*time.Millisecond, sc.StoreRetry.InitialInterval)
	assert.Equal(t, "scale:latest", sc.ScaleImage)
	// Unset fields keep the scheduler defaults.
	assert.Equal(t, 500, sc.MaxNewWorkPerIteration)
	assert.Equal(t, rate.Limit(1), sc.ReconcileRate)
}

func TestBadDuration(t *testing.T) {
	jc := SchedulerJSONConfig{Type: "cluster", IdleDelay: "soon"}
	_, err := jc.CreateSchedulerConfig()
	assert.Error(t, err)

	_, _, err = ClusterJSONConfig{Type: "sim", TaskDuration: "1s", OfferInterval: "0s"}.Create(clock.NewMock())
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scheduler.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"Cluster": {"Type": "sim", "Count": 2, "Cpus": 1, "Mem": 512,
		"TaskDuration": "1s", "OfferInterval": "100ms"}}`), 0644))

	configs, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "memory", configs.Store.Type)

	sim, interval, err := configs.Cluster.Create(clock.NewMock())
	require.NoError(t, err)
	assert.NotNil(t, sim)
	assert.Equal(t, 100*time.Millisecond, interval)

	agents := configs.Cluster.Agents()
	require.Len(t, agents, 2)
	assert.Equal(t, "agent-1", agents[1].AgentID)
	assert.Equal(t, "host1", agents[1].Hostname)
	assert.Equal(t, 512.0, agents[1].Resources.Mem)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestCreateStore(t *testing.T) {
	clk := clock.NewMock()
	st, closer, err := StoreJSONConfig{Type: "memory"}.Create(clk)
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, st)
	assert.NoError(t, closer())

	st, closer, err = StoreJSONConfig{Type: "bolt", Directory: filepath.Join(t.TempDir(), "data")}.Create(clk)
	require.NoError(t, err)
	assert.IsType(t, &bolt.Store{}, st)
	assert.NoError(t, closer())

	_, _, err = StoreJSONConfig{Type: "postgres"}.Create(clk)
	assert.Error(t, err)
}
