package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/restbench/internal/collection"
	"github.com/unkn0wn-root/restbench/internal/errdef"
)

func (c *cli) envCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Manage environments",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(c.envListCmd(), c.envUseCmd(), c.envImportCmd())
	return cmd
}

func (c *cli) envListCmd() *cobra.Command {
	var showValues bool
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List environments, the active one marked with *",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := c.service(cmd.Context())
			if err != nil {
				return err
			}
			envs, err := svc.Environments(cmd.Context())
			if err != nil {
				return err
			}
			active, _, err := svc.ActiveEnvironment(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(envs) == 0 {
				fmt.Fprintln(out, "no environments")
				return nil
			}
			for _, env := range envs {
				mark := " "
				name := env.Name
				if env.ID == active.ID {
					mark = "*"
					name = c.styles.ok.Render(name)
				}
				fmt.Fprintf(out, "%s %s  %s\n", mark, name, c.styles.meta.Render(env.ID))
				if !showValues {
					continue
				}
				for _, v := range env.Variables {
					state := ""
					if !v.Enabled {
						state = c.styles.meta.Render(" (disabled)")
					}
					fmt.Fprintf(out, "    %s=%s%s\n", v.Key, v.Value, state)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&showValues, "values", "v", false, "Print variables as well")
	return cmd
}

func (c *cli) envUseCmd() *cobra.Command {
	var none bool
	cmd := &cobra.Command{
		Use:   "use <environment>",
		Short: "Activate an environment by id or name",
		Args: func(cmd *cobra.Command, args []string) error {
			if none {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service(cmd.Context())
			if err != nil {
				return err
			}
			if none {
				if err := svc.ActivateEnvironment(cmd.Context(), ""); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "no environment active")
				return nil
			}
			envs, err := svc.Environments(cmd.Context())
			if err != nil {
				return err
			}
			env, err := findEnvironment(envs, args[0])
			if err != nil {
				return err
			}
			if err := svc.ActivateEnvironment(cmd.Context(), env.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "using %s\n", c.styles.ok.Render(env.Name))
			return nil
		},
	}
	cmd.Flags().BoolVar(&none, "none", false, "Deactivate every environment")
	return cmd
}

func findEnvironment(envs []collection.Environment, ref string) (collection.Environment, error) {
	var match *collection.Environment
	for i := range envs {
		if envs[i].ID == ref {
			return envs[i], nil
		}
		if envs[i].Name != ref {
			continue
		}
		if match != nil {
			return collection.Environment{}, errdef.New(errdef.CodeNotFound, "environment name %q is ambiguous, use its id", ref)
		}
		match = &envs[i]
	}
	if match == nil {
		return collection.Environment{}, errdef.New(errdef.CodeNotFound, "environment %q not found", ref)
	}
	return *match, nil
}

func (c *cli) envImportCmd() *cobra.Command {
	var activate bool
	cmd := &cobra.Command{
		Use:   "import <dotenv-file>",
		Short: "Create an environment from a .env file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service(cmd.Context())
			if err != nil {
				return err
			}
			env, err := svc.ImportDotEnv(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if activate {
				if err := svc.ActivateEnvironment(cmd.Context(), env.ID); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s environment %s (%d variables)\n",
				c.styles.ok.Render("created"), env.Name, len(env.Variables))
			return nil
		},
	}
	cmd.Flags().BoolVar(&activate, "use", false, "Activate the new environment")
	return cmd
}
