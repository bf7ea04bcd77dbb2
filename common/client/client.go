package client

import (
	"github.com/spf13/cobra"

	"github.com/ngageoint/scale/scheduler/client"
)

// Client interface that includes CLI handling
type CLIClient interface {
	Exec() error
}

// SimpleClient includes base fields required for implementing client
type SimpleClient struct {
	RootCmd      *cobra.Command
	Addr         string
	LogLevel     string
	StatusClient *client.StatusClient
}

// Command interface used to run client commands
type Cmd interface {
	RegisterFlags() *cobra.Command
	Run(cl *SimpleClient, cmd *cobra.Command, args []string) error
}
