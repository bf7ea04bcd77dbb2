package cli

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	commoncli "github.com/ngageoint/scale/common/client"
	"github.com/ngageoint/scale/scheduler/client"
)

// SchedCLIClient includes fields required for CLI client handling
type SchedCLIClient struct {
	commoncli.SimpleClient
}

func (c *SchedCLIClient) Exec() error {
	return c.RootCmd.Execute()
}

func NewSimpleCLIClient() (commoncli.CLIClient, error) {
	c := &SchedCLIClient{}

	c.RootCmd = &cobra.Command{
		Use:               "scalecl",
		Short:             "scalecl is a command-line client to the scale scheduler",
		PersistentPreRunE: c.Init,
		Run:               func(*cobra.Command, []string) {},
	}
	c.RootCmd.PersistentFlags().StringVar(&c.Addr, "addr", client.DefaultStatusAddr, "Scheduler status server address")
	c.RootCmd.PersistentFlags().StringVar(&c.LogLevel, "log_level", "info", "Log everything at this level and above (error|info|debug)")

	c.addCmd(&getStatusCmd{})
	c.addCmd(&getNodesCmd{})
	c.addCmd(&pauseNodeCmd{})
	c.addCmd(&resumeNodeCmd{})

	return c, nil
}

// Can only be called from cobra command run or hook
func (c *SchedCLIClient) Init(cmd *cobra.Command, args []string) error {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		log.Error(err)
		return err
	}
	log.SetLevel(level)

	if c.StatusClient == nil {
		c.StatusClient = client.NewStatusClient(c.Addr)
	}
	return nil
}

func (c *SchedCLIClient) addCmd(cmd commoncli.Cmd) {
	cobraCmd := cmd.RegisterFlags()
	cobraCmd.RunE = func(innerCmd *cobra.Command, args []string) error {
		return cmd.Run(&c.SimpleClient, innerCmd, args)
	}
	c.RootCmd.AddCommand(cobraCmd)
}
