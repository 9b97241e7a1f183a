package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

func (c *cli) historyCmd() *cobra.Command {
	var (
		request  string
		limit    int
		clearAll bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent executions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := c.service(cmd.Context())
			if err != nil {
				return err
			}
			hist := svc.History()
			out := cmd.OutOrStdout()
			if clearAll {
				if err := hist.Clear(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(out, "history cleared")
				return nil
			}
			if err := hist.Load(cmd.Context()); err != nil {
				return err
			}

			entries := hist.ByRequest(request)
			if limit > 0 && len(entries) > limit {
				entries = entries[:limit]
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "no history")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				status := strconv.Itoa(e.Response.Status)
				if e.Response.Error != "" {
					status = "ERR"
				}
				rows = append(rows, []string{
					e.ExecutedAt.Local().Format(time.DateTime),
					status,
					strings.ToUpper(e.Request.Method),
					e.Request.Name,
					fmt.Sprintf("%dms", e.Response.DurationMS),
					e.Environment,
					e.ID,
				})
			}
			t := table.New().
				Border(lipgloss.HiddenBorder()).
				Headers("TIME", "STATUS", "METHOD", "REQUEST", "DURATION", "ENV", "ID").
				Rows(rows...)
			fmt.Fprintln(out, t.Render())
			return nil
		},
	}
	cmd.Flags().StringVarP(&request, "request", "r", "", "Only entries for this request id, name or URL")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most n entries")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "Delete every entry")
	cmd.AddCommand(c.historyRemoveCmd())
	return cmd
}

func (c *cli) historyRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <entry-id>",
		Short: "Delete one history entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service(cmd.Context())
			if err != nil {
				return err
			}
			removed, err := svc.History().Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !removed {
				fmt.Fprintf(cmd.OutOrStdout(), "no entry %s\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return nil
		},
	}
}
