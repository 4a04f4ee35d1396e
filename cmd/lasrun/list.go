package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/banshee-data/lasrun/internal/remote"
)

func (a *app) listCmd() *cobra.Command {
	var group string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the available tools by group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr, err := a.remoteAddr()
			if err != nil {
				return err
			}
			var (
				groups  []string
				byGroup map[string][]remote.ToolInfo
			)
			if addr != "" {
				client, conn, err := remote.Dial(addr)
				if err != nil {
					return err
				}
				defer conn.Close()
				tools, err := client.ListTools(cmd.Context())
				if err != nil {
					return fmt.Errorf("list tools on %s: %w", addr, err)
				}
				groups, byGroup = groupInfos(tools)
			} else {
				names, tools := a.registry.Groups()
				groups, byGroup = names, make(map[string][]remote.ToolInfo, len(names))
				for _, g := range names {
					for _, t := range tools[g] {
						byGroup[g] = append(byGroup[g], remote.ToolInfo{Name: t.Name, Group: t.Group, Summary: t.Summary})
					}
				}
			}

			w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
			first := true
			for _, g := range groups {
				if group != "" && g != group {
					continue
				}
				if !first {
					fmt.Fprintln(w)
				}
				first = false
				fmt.Fprintf(w, "%s\n", g)
				for _, t := range byGroup[g] {
					fmt.Fprintf(w, "  %s\t%s\n", t.Name, t.Summary)
				}
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&group, "group", "", "only list tools of this group")
	return cmd
}

// groupInfos groups a remote tool listing, keeping the server's order.
func groupInfos(tools []remote.ToolInfo) ([]string, map[string][]remote.ToolInfo) {
	var groups []string
	byGroup := make(map[string][]remote.ToolInfo)
	for _, t := range tools {
		if _, ok := byGroup[t.Group]; !ok {
			groups = append(groups, t.Group)
		}
		byGroup[t.Group] = append(byGroup[t.Group], t)
	}
	return groups, byGroup
}
