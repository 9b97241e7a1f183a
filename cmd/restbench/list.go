package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

func (c *cli) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "ls [query]",
		Aliases: []string{"list", "search"},
		Short:   "List stored requests, fuzzy matched against an optional query",
		Args:    cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service(cmd.Context())
			if err != nil {
				return err
			}
			results, err := svc.Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no requests")
				return nil
			}

			rows := make([][]string, 0, len(results))
			for _, r := range results {
				name := r.Request.Name
				if r.Path != "" {
					name = r.Path + "/" + name
				}
				rows = append(rows, []string{strings.ToUpper(r.Request.Method), name, r.Request.URL, r.Request.ID})
			}
			t := table.New().
				Border(lipgloss.HiddenBorder()).
				Headers("METHOD", "NAME", "URL", "ID").
				Rows(rows...)
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}
}
