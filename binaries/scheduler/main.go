package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/ngageoint/scale/common/log/hooks"
	"github.com/ngageoint/scale/scheduler/config"
	"github.com/ngageoint/scale/scheduler/starter"
)

func main() {
	log.AddHook(hooks.NewContextHook())

	// Set Flags Needed by this Server
	configFlag := flag.String("config", "local.memory", "Scheduler Config, one of the named configurations like local.memory")
	configFile := flag.String("config_file", "", "Path of a JSON config file, used instead of -config when set")
	statusAddr := flag.String("status_addr", "", "Bind address for the status server, overrides the config")
	seedWork := flag.Int("seed_work", 0, "Number of demo job executions to queue at startup")
	logLevelFlag := flag.String("log_level", "info", "Log everything at this level and above (error|info|debug)")
	flag.Parse()

	level, err := log.ParseLevel(*logLevelFlag)
	if err != nil {
		log.Error(err)
		return
	}
	log.SetLevel(level)

	var configs *config.JSONConfigs
	if *configFile != "" {
		configs, err = config.LoadFile(*configFile)
	} else {
		configs, err = config.GetSchedulerConfigs(*configFlag)
	}
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := starter.StartServer(ctx, configs, starter.Options{StatusAddr: *statusAddr, SeedWork: *seedWork}); err != nil {
		log.Fatal("Error serving: ", err)
	}
}
