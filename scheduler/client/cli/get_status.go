package cli

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/luci/go-render/render"
	"github.com/spf13/cobra"

	"github.com/ngageoint/scale/common/client"
)

type getStatusCmd struct {
	pretty bool
}

func (c *getStatusCmd) RegisterFlags() *cobra.Command {
	r := &cobra.Command{
		Use:   "get_status",
		Short: "GetStatus prints the scheduler status snapshot",
	}
	r.Flags().BoolVar(&c.pretty, "pretty", true, "indent the JSON output")
	return r
}

func (c *getStatusCmd) Run(cl *client.SimpleClient, cmd *cobra.Command, args []string) error {
	raw, err := cl.StatusClient.GetStatus()
	if err != nil {
		return fmt.Errorf("Error getting status: %v", err)
	}
	if !c.pretty {
		fmt.Fprintln(cmd.OutOrStdout(), string(raw))
		return nil
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out.String())
	return nil
}

type getNodesCmd struct {
	render bool
}

func (c *getNodesCmd) RegisterFlags() *cobra.Command {
	r := &cobra.Command{
		Use:   "get_nodes",
		Short: "GetNodes lists the nodes known to the scheduler, or one node given its agent id",
	}
	r.Flags().BoolVar(&c.render, "render", false, "print the full node records")
	return r
}

func (c *getNodesCmd) Run(cl *client.SimpleClient, cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	if len(args) > 0 {
		n, err := cl.StatusClient.GetNode(args[0])
		if err != nil {
			return fmt.Errorf("Error getting node: %v", err)
		}
		fmt.Fprintln(w, render.Render(n))
		return nil
	}

	nodes, err := cl.StatusClient.GetNodes()
	if err != nil {
		return fmt.Errorf("Error getting nodes: %v", err)
	}
	for _, n := range nodes {
		if c.render {
			fmt.Fprintln(w, render.Render(n))
			continue
		}
		line := fmt.Sprintf("%-4d %-20s %-20s %s", n.ID, n.Hostname, n.AgentID, n.State)
		if n.IsPaused {
			line += fmt.Sprintf(" (%s)", n.PauseReason)
		}
		fmt.Fprintln(w, line)
	}
	return nil
}
