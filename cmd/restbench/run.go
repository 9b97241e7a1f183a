package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/restbench/internal/errdef"
	"github.com/unkn0wn-root/restbench/internal/httpclient"
	"github.com/unkn0wn-root/restbench/internal/nettrace"
	"github.com/unkn0wn-root/restbench/internal/util"
)

func (c *cli) runCmd() *cobra.Command {
	var (
		include bool
		output  string
		compare string
		failOn  bool
		timings bool
	)
	cmd := &cobra.Command{
		Use:   "run <request>",
		Short: "Send a stored request using the active environment",
		Long: `Send a stored request, looked up by id or exact name, with the variables of
the active environment. The status line goes first, then the body.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service(cmd.Context())
			if err != nil {
				return err
			}
			resp, err := svc.Execute(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  %s\n", c.styles.status(resp.Status, resp.StatusText), c.styles.meta.Render(summaryLine(resp)))
			if timings {
				c.writeTimeline(out, resp.Timeline)
			}
			if resp.Failed() {
				return resp.Err
			}
			if include {
				writeHeaders(out, resp.Headers)
			}

			if output != "" {
				if err := util.WriteFileAtomic(output, resp.Body, 0o644); err != nil {
					return errdef.Wrap(errdef.CodeFilesystem, err, "write %s", output)
				}
				fmt.Fprintf(out, "body written to %s\n", output)
			} else if err := c.writeBody(out, resp); err != nil {
				return err
			}

			if compare != "" {
				diff, err := svc.CompareExample(cmd.Context(), args[0], compare, resp)
				if err != nil {
					return err
				}
				if diff == "" {
					fmt.Fprintln(out, c.styles.ok.Render("response matches example "+compare))
				} else {
					c.styles.diff(out, diff)
				}
			}
			if failOn && resp.Status >= 400 {
				return errdef.New(errdef.CodeHTTP, "server returned %d %s", resp.Status, resp.StatusText)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&include, "include", "i", false, "Print response headers")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the raw body to a file instead of stdout")
	cmd.Flags().StringVar(&compare, "compare", "", "Diff the body against a saved example (id or name)")
	cmd.Flags().BoolVarP(&failOn, "fail", "f", false, "Exit non-zero on HTTP 4xx and 5xx")
	cmd.Flags().BoolVarP(&timings, "timings", "t", false, "Print the DNS, connect, TLS and transfer breakdown")
	return cmd
}

func summaryLine(resp *httpclient.Response) string {
	line := fmt.Sprintf("%dms  %s", resp.Duration.Milliseconds(), humanSize(resp.Size))
	if resp.Fallback {
		line += "  via raw TLS fallback"
	}
	if resp.Truncated {
		line += "  truncated"
	}
	return line
}

func (c *cli) writeTimeline(w io.Writer, tl *nettrace.Timeline) {
	if tl == nil {
		return
	}
	for _, kind := range nettrace.Order {
		d := tl.Total(kind)
		if d == 0 {
			continue
		}
		fmt.Fprintf(w, "  %-9s %s\n", kind, c.styles.meta.Render(d.Round(time.Microsecond).String()))
	}
	if tl.RemoteAddr != "" {
		line := "  remote    " + tl.RemoteAddr
		if tl.TLSVersion != "" {
			line += " " + tl.TLSVersion
		}
		if tl.Protocol != "" {
			line += " " + tl.Protocol
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w)
}

func humanSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func writeHeaders(w io.Writer, headers map[string]string) {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "%s: %s\n", name, headers[name])
	}
	fmt.Fprintln(w)
}

func (c *cli) writeBody(w io.Writer, resp *httpclient.Response) error {
	switch data := resp.Data.(type) {
	case string:
		if data == "" {
			return nil
		}
		if resp.Encoding == "base64" {
			fmt.Fprintf(w, "<%s of binary data, use --output to save it>\n", humanSize(int64(len(resp.Body))))
			return nil
		}
		c.styles.highlight(w, data, lexerFor(resp.Headers["content-type"]))
	default:
		pretty, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return errdef.Wrap(errdef.CodeParse, err, "format response body")
		}
		c.styles.highlight(w, string(pretty), "json")
	}
	return nil
}

func lexerFor(contentType string) string {
	switch {
	case strings.Contains(contentType, "html"):
		return "html"
	case strings.Contains(contentType, "xml"):
		return "xml"
	case strings.Contains(contentType, "javascript"):
		return "javascript"
	case strings.Contains(contentType, "css"):
		return "css"
	default:
		return "plaintext"
	}
}
