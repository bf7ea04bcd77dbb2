package main

import (
	log "github.com/sirupsen/logrus"

	"github.com/ngageoint/scale/common/log/hooks"
	"github.com/ngageoint/scale/scheduler/client/cli"
)

// CLI binary to talk to the scheduler status server
//	Supported commands: (see "-h" for all options)
//		get_status
//		get_nodes [agent id]
//		pause_node [agent id] --reason [reason]
//		resume_node [agent id]
//	Global flags:
//		--addr [<host:port> of the status server]
// 		--log_level [<error|info|debug> level and above should be logged]

func main() {
	log.AddHook(hooks.NewContextHook())

	cl, err := cli.NewSimpleCLIClient()
	if err != nil {
		log.Fatal("Failed to create new scale CLI client: ", err)
	}

	err = cl.Exec()
	if err != nil {
		log.Fatal("Error running scalecl ", err)
	}
}
