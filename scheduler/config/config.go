// Package config selects and parses the named JSON configurations of the scheduler binary and
// builds the cluster driver, the store and the scheduler settings from them.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/ngageoint/scale/common/retry"
	"github.com/ngageoint/scale/scheduler/driver"
	"github.com/ngageoint/scale/scheduler/resources"
	"github.com/ngageoint/scale/scheduler/server"
	"github.com/ngageoint/scale/scheduler/store"
	"github.com/ngageoint/scale/scheduler/store/bolt"
	"github.com/ngageoint/scale/scheduler/store/memory"
)

// Max number of simultaneous connections accepted by the status server.
const DefaultMaxConns = 100

// JSONConfigs holds the sections of one named configuration.
type JSONConfigs struct {
	Cluster   ClusterJSONConfig   `json:"Cluster"`
	Store     StoreJSONConfig     `json:"Store"`
	Scheduler SchedulerJSONConfig `json:"SchedulerConfig"`
	Status    StatusJSONConfig    `json:"Status"`
}

func (s JSONConfigs) String() string {
	return fmt.Sprintf("\n%s\n%s\n%s\n%s", s.Cluster, s.Store, s.Scheduler, s.Status)
}

// ClusterJSONConfig describes the simulated cluster the scheduler runs against.
type ClusterJSONConfig struct {
	Type          string  `json:"Type"`          // cluster type: sim
	Count         int     `json:"Count"`         // number of agents
	Cpus          float64 `json:"Cpus"`          // per agent
	Mem           float64 `json:"Mem"`           // per agent, MiB
	Disk          float64 `json:"Disk"`          // per agent, MiB
	SharedMem     float64 `json:"SharedMem"`     // per agent, MiB
	TaskDuration  string  `json:"TaskDuration"`  // how long every simulated task runs
	OfferInterval string  `json:"OfferInterval"` // how often the simulated cluster offers resources
}

func (c ClusterJSONConfig) String() string {
	return fmt.Sprintf("ClusterJSONConfig: Type: %s, Count: %d, Cpus: %g, Mem: %g, Disk: %g, SharedMem: %g, TaskDuration: %s, OfferInterval: %s",
		c.Type, c.Count, c.Cpus, c.Mem, c.Disk, c.SharedMem, c.TaskDuration, c.OfferInterval)
}

// Agents lists the simulated agents, agent-<i> on host<i>.
func (c ClusterJSONConfig) Agents() []driver.SimAgent {
	agents := make([]driver.SimAgent, 0, c.Count)
	for i := 0; i < c.Count; i++ {
		agents = append(agents, driver.SimAgent{
			AgentID:   fmt.Sprintf("agent-%d", i),
			Hostname:  fmt.Sprintf("host%d", i),
			Resources: resources.Resources{Cpus: c.Cpus, Mem: c.Mem, DiskTotal: c.Disk, SharedMem: c.SharedMem},
		})
	}
	return agents
}

// Create builds the simulated cluster and returns it with its offer interval.
func (c ClusterJSONConfig) Create(clk clock.Clock) (*driver.Sim, time.Duration, error) {
	if c.Type != "sim" {
		return nil, 0, fmt.Errorf("unsupported cluster type %q", c.Type)
	}
	taskDuration, err := parseDuration("Cluster.TaskDuration", c.TaskDuration)
	if err != nil {
		return nil, 0, err
	}
	interval, err := parseDuration("Cluster.OfferInterval", c.OfferInterval)
	if err != nil {
		return nil, 0, err
	}
	if interval <= 0 {
		return nil, 0, fmt.Errorf("Cluster.OfferInterval must be positive, got %s", c.OfferInterval)
	}
	return driver.NewSim(clk, c.Agents(), taskDuration), interval, nil
}

type StoreJSONConfig struct {
	Type      string `json:"Type"`      // memory or bolt
	Directory string `json:"Directory"` // bolt data directory, default to .scaledata
}

func (s StoreJSONConfig) String() string {
	return fmt.Sprintf("StoreJSONConfig: Type: %s, Directory: %s", s.Type, s.Directory)
}

// Store is a scheduler store that can also be seeded with job types and queued work.
type Store interface {
	store.Store
	store.Seeder
}

// Create opens the store. The returned func releases it.
func (s StoreJSONConfig) Create(clk clock.Clock) (Store, func() error, error) {
	switch s.Type {
	case "memory":
		return memory.New(clk), func() error { return nil }, nil
	case "bolt":
		dir := s.Directory
		if dir == "" {
			dir = ".scaledata"
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, nil, errors.Wrapf(err, "creating store directory %s", dir)
		}
		st, err := bolt.Open(dir, clk)
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	}
	return nil, nil, fmt.Errorf("unsupported store type %q", s.Type)
}

type SchedulerJSONConfig struct {
	Type                   string  `json:"Type"`                   // scheduler type: cluster
	MaxNewWorkPerIteration int     `json:"MaxNewWorkPerIteration"` // default to 500
	IdleDelay              string  `json:"IdleDelay"`              // default to 5s
	NodeSyncInterval       string  `json:"NodeSyncInterval"`       // default to 10s
	StoreRetryAttempts     int     `json:"StoreRetryAttempts"`     // default to 5
	DriverRetryAttempts    int     `json:"DriverRetryAttempts"`    // default to 5
	RetryInterval          string  `json:"RetryInterval"`          // initial backoff, default to 1s
	ReconcileRate          float64 `json:"ReconcileRate"`          // reconciliations per second, default to 1
	ReconcileBurst         int     `json:"ReconcileBurst"`         // default to 10
	ScaleImage             string  `json:"ScaleImage"`
	StagingTimeout         string  `json:"StagingTimeout"` // default to 20m
	RunningTimeout         string  `json:"RunningTimeout"` // default to 1h
}

func (sc SchedulerJSONConfig) String() string {
	return fmt.Sprintf("SchedulerJSONConfig: Type: %s, MaxNewWorkPerIteration: %d, IdleDelay: %s, NodeSyncInterval: %s, "+
		"StoreRetryAttempts: %d, DriverRetryAttempts: %d, RetryInterval: %s, ReconcileRate: %g, ReconcileBurst: %d, "+
		"ScaleImage: %s, StagingTimeout: %s, RunningTimeout: %s",
		sc.Type, sc.MaxNewWorkPerIteration, sc.IdleDelay, sc.NodeSyncInterval, sc.StoreRetryAttempts, sc.DriverRetryAttempts,
		sc.RetryInterval, sc.ReconcileRate, sc.ReconcileBurst, sc.ScaleImage, sc.StagingTimeout, sc.RunningTimeout)
}

// CreateSchedulerConfig converts the JSON section into the scheduler settings. Empty or zero
// fields keep the scheduler defaults.
func (jc *SchedulerJSONConfig) CreateSchedulerConfig() (*server.Config, error) {
	c := server.DefaultConfig()
	if jc.MaxNewWorkPerIteration > 0 {
		c.MaxNewWorkPerIteration = jc.MaxNewWorkPerIteration
	}
	for _, d := range []struct {
		field string
		text  string
		dst   *time.Duration
	}{
		{"SchedulerConfig.IdleDelay", jc.IdleDelay, &c.IdleDelay},
		{"SchedulerConfig.NodeSyncInterval", jc.NodeSyncInterval, &c.NodeSyncInterval},
		{"SchedulerConfig.StagingTimeout", jc.StagingTimeout, &c.StagingTimeout},
		{"SchedulerConfig.RunningTimeout", jc.RunningTimeout, &c.RunningTimeout},
	} {
		if d.text == "" {
			continue
		}
		v, err := parseDuration(d.field, d.text)
		if err != nil {
			return nil, err
		}
		*d.dst = v
	}

	interval := retry.DefaultInitialInterval
	if jc.RetryInterval != "" {
		v, err := parseDuration("SchedulerConfig.RetryInterval", jc.RetryInterval)
		if err != nil {
			return nil, err
		}
		interval = v
	}
	c.StoreRetry = policy(jc.StoreRetryAttempts, interval)
	c.DriverRetry = policy(jc.DriverRetryAttempts, interval)

	if jc.ReconcileRate > 0 {
		c.ReconcileRate = rate.Limit(jc.ReconcileRate)
	}
	if jc.ReconcileBurst > 0 {
		c.ReconcileBurst = jc.ReconcileBurst
	}
	c.ScaleImage = jc.ScaleImage
	return &c, nil
}

func policy(attempts int, interval time.Duration) retry.Policy {
	p := retry.DefaultPolicy()
	if attempts > 0 {
		p.Attempts = attempts
	}
	p.InitialInterval = interval
	if p.MaxInterval < interval {
		p.MaxInterval = interval
	}
	return p
}

type StatusJSONConfig struct {
	Addr     string `json:"Addr"`     // listen address of the status server
	MaxConns int    `json:"MaxConns"` // default to 100
}

func (s StatusJSONConfig) String() string {
	return fmt.Sprintf("StatusJSONConfig: Addr: %s, MaxConns: %d", s.Addr, s.MaxConns)
}

func GetConfigText(configSelector string) ([]byte, error) {
	configText, ok := SchedulerConfigs[configSelector]
	if !ok {
		keys := make([]string, 0, len(SchedulerConfigs))
		for k := range SchedulerConfigs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("invalid configuration %s, supported values are %v", configSelector, keys)
	}

	return []byte(configText), nil
}

// GetSchedulerConfigs returns the named configuration with the default sections filled in.
func GetSchedulerConfigs(configName string) (*JSONConfigs, error) {
	configText, err := GetConfigText(configName)
	if err != nil {
		return nil, err
	}
	return ParseSchedulerConfigs(configText)
}

// LoadFile reads a configuration from a JSON file, default sections filled in like the named ones.
func LoadFile(path string) (*JSONConfigs, error) {
	configText, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %s", path)
	}
	return ParseSchedulerConfigs(configText)
}

// ParseSchedulerConfigs parses configText and uses the default config for every section whose
// Type was not set.
func ParseSchedulerConfigs(configText []byte) (*JSONConfigs, error) {
	defaultConfigText, _ := GetConfigText("default")
	defaultConfig := &JSONConfigs{}
	err := json.Unmarshal(defaultConfigText, defaultConfig)
	if err != nil {
		return nil, fmt.Errorf("couldn't parse the default config: %v", err)
	}

	configs := &JSONConfigs{}
	err = json.Unmarshal(configText, configs)
	if err != nil {
		return nil, fmt.Errorf("couldn't parse top-level config: %v", err)
	}

	if configs.Cluster.Type == "" {
		log.Infof("using default Cluster config")
		configs.Cluster = defaultConfig.Cluster
	}
	if configs.Store.Type == "" {
		log.Infof("using default Store config")
		configs.Store = defaultConfig.Store
	}
	if configs.Scheduler.Type == "" {
		log.Infof("using default Scheduler config")
		configs.Scheduler = defaultConfig.Scheduler
	}
	if configs.Status.Addr == "" {
		log.Infof("using default Status config")
		configs.Status = defaultConfig.Status
	}
	if configs.Status.MaxConns <= 0 {
		configs.Status.MaxConns = DefaultMaxConns
	}
	return configs, nil
}

func parseDuration(field, text string) (time.Duration, error) {
	d, err := time.ParseDuration(text)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s", field)
	}
	return d, nil
}
