package cli

/**
implements the command line entry for pausing and resuming a node
*/

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ngageoint/scale/common/client"
)

type pauseNodeCmd struct {
	reason string
}

func (c *pauseNodeCmd) RegisterFlags() *cobra.Command {
	r := &cobra.Command{
		Use:   "pause_node",
		Short: "PauseNode stops scheduling job executions on a node",
	}
	r.Flags().StringVar(&c.reason, "reason", "", "why the node is paused")
	return r
}

func (c *pauseNodeCmd) Run(cl *client.SimpleClient, cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("An agent id must be provided in order to pause a node")
	}
	agentID := args[0]
	log.Infof("Pausing node %s", agentID)
	if err := cl.StatusClient.PauseNode(agentID, c.reason); err != nil {
		return fmt.Errorf("Error pausing node: %v", err)
	}
	log.Infof("Node %s paused", agentID)
	return nil
}

type resumeNodeCmd struct{}

func (c *resumeNodeCmd) RegisterFlags() *cobra.Command {
	return &cobra.Command{
		Use:   "resume_node",
		Short: "ResumeNode lets a paused node take job executions again",
	}
}

func (c *resumeNodeCmd) Run(cl *client.SimpleClient, cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("An agent id must be provided in order to resume a node")
	}
	agentID := args[0]
	log.Infof("Resuming node %s", agentID)
	if err := cl.StatusClient.ResumeNode(agentID); err != nil {
		return fmt.Errorf("Error resuming node: %v", err)
	}
	log.Infof("Node %s resumed", agentID)
	return nil
}
