package config

// SchedulerConfigs the map of available configurations
var SchedulerConfigs = map[string]string{
	"default":      defaultConfig,
	"local.memory": localMemory,
	"local.bolt":   localBolt,
}

// defaultConfig the configuration values that are used for missing sections of a specific configuration
const defaultConfig = `{
	"Cluster": {
		"Type": "sim",
		"Count": 3,
		"Cpus": 4,
		"Mem": 8192,
		"Disk": 51200,
		"TaskDuration": "10s",
		"OfferInterval": "1s"
	},
	"Store": {
		"Type": "memory"
	},
	"SchedulerConfig": {
		"Type": "cluster",
		"IdleDelay": "5s",
		"NodeSyncInterval": "10s",
		"ScaleImage": "scale:latest"
	},
	"Status": {
		"Addr": "localhost:9890",
		"MaxConns": 100
	}
}`

// localMemory config for local.memory - !!! make sure this constant is added to SchedulerConfigs map above !!!
const localMemory = `{
	"Cluster": {
		"Type": "sim",
		"Count": 10,
		"Cpus": 8,
		"Mem": 16384,
		"Disk": 102400,
		"TaskDuration": "5s",
		"OfferInterval": "500ms"
	},
	"Store": {
		"Type": "memory"
	},
	"SchedulerConfig": {
		"Type": "cluster",
		"MaxNewWorkPerIteration": 500,
		"IdleDelay": "1s",
		"NodeSyncInterval": "10s",
		"RetryInterval": "100ms",
		"ScaleImage": "scale:latest"
	}
}`

// localBolt config for local.bolt - !!! make sure this constant is added to SchedulerConfigs map above !!!
const localBolt = `{
	"Store": {
		"Type": "bolt",
		"Directory": ".scaledata"
	},
	"SchedulerConfig": {
		"Type": "cluster",
		"IdleDelay": "2s",
		"StoreRetryAttempts": 3,
		"RetryInterval": "250ms",
		"ScaleImage": "scale:latest",
		"RunningTimeout": "30m"
	}
}`
