package main

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/restbench/internal/errdef"
	"github.com/unkn0wn-root/restbench/internal/snippet"
)

func (c *cli) snippetCmd() *cobra.Command {
	var (
		lang        string
		toClipboard bool
	)
	names := make([]string, 0, len(snippet.Languages()))
	for _, l := range snippet.Languages() {
		names = append(names, string(l))
	}

	cmd := &cobra.Command{
		Use:   "snippet <request>",
		Short: "Print a stored request as code",
		Long: `Print a stored request as a curl command or JavaScript code. The curl style
follows the [curl] section of the settings. Variables are left as {{name}}.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service(cmd.Context())
			if err != nil {
				return err
			}
			code, err := svc.Snippet(cmd.Context(), args[0], lang)
			if err != nil {
				return err
			}
			lexer := "javascript"
			if strings.EqualFold(lang, string(snippet.LangCurl)) {
				lexer = "bash"
			}
			c.styles.highlight(cmd.OutOrStdout(), code, lexer)

			if toClipboard {
				if err := clipboard.WriteAll(code); err != nil {
					return errdef.Wrap(errdef.CodeUnknown, err, "copy to clipboard")
				}
				fmt.Fprintln(cmd.ErrOrStderr(), c.styles.meta.Render("copied to clipboard"))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&lang, "lang", "l", string(snippet.LangCurl), "Language: "+strings.Join(names, ", "))
	cmd.Flags().BoolVarP(&toClipboard, "copy", "c", false, "Also copy the snippet to the clipboard")
	return cmd
}
