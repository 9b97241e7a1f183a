package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/restbench/internal/errdef"
	"github.com/unkn0wn-root/restbench/internal/util"
)

func (c *cli) importCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Import a Postman collection, OpenAPI document or curl command",
		Long: `Import a Postman v2.x collection, an OpenAPI 3.x or Swagger 2.0 document
(JSON or YAML) or one or more curl commands. The format is detected from the
content. Use - to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			svc, err := c.service(cmd.Context())
			if err != nil {
				return err
			}
			res, err := svc.Import(cmd.Context(), string(content), name)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s (%s)\n", c.styles.ok.Render("imported"), res.Collection.Name, res.Format)
			fmt.Fprintf(out, "  collection id: %s\n", res.Collection.ID)
			if res.Environment != nil {
				fmt.Fprintf(out, "  environment:   %s (%d variables)\n", res.Environment.Name, len(res.Environment.Variables))
			}
			for _, w := range res.Warnings {
				fmt.Fprintf(out, "  %s %s\n", c.styles.warn.Render("warning:"), w)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Collection name (defaults to the title in the source)")
	return cmd
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, errdef.Wrap(errdef.CodeFilesystem, err, "read stdin")
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeFilesystem, err, "read %s", path)
	}
	return data, nil
}

func (c *cli) exportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export [collection-id]",
		Short: "Export collections as an OpenAPI 3.0 YAML document",
		Long: `Export one collection, or the whole workspace when no id is given, as an
OpenAPI 3.0.0 document in YAML.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service(cmd.Context())
			if err != nil {
				return err
			}
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			doc, err := svc.Export(cmd.Context(), id)
			if err != nil {
				return err
			}
			if output == "" {
				c.styles.highlight(cmd.OutOrStdout(), string(doc), "yaml")
				return nil
			}
			if err := util.WriteFileAtomic(output, doc, 0o644); err != nil {
				return errdef.Wrap(errdef.CodeFilesystem, err, "write %s", output)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported to %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the document to a file")
	return cmd
}
