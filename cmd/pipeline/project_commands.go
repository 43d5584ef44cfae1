package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pipeline/internal/config"
	"pipeline/internal/preflight"
	"pipeline/internal/project"
	"pipeline/internal/workspace"
)

func newProjectCommand(ctx *commandContext) *cobra.Command {
	projectCmd := &cobra.Command{
		Use:   "project",
		Short: "Create and inspect projects",
	}
	projectCmd.AddCommand(newProjectInitCommand(ctx))
	projectCmd.AddCommand(newProjectInfoCommand(ctx))
	projectCmd.AddCommand(newProjectCheckCommand(ctx))
	return projectCmd
}

func newProjectInitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "init [dir]",
		Short: "Create the project layout in dir (default: current folder)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			} else if ctx.projectFlag != nil && strings.TrimSpace(*ctx.projectFlag) != "" {
				root = *ctx.projectFlag
			}
			root, err := config.ExpandPath(root)
			if err != nil {
				return err
			}
			ws, err := workspace.Init(root)
			if err != nil {
				return err
			}

			// An existing document must still load.
			*ctx.projectFlag = ws.Root()
			if err := ctx.withProject(cmd, false, func(*projectSession) error { return nil }); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Initialized project in %s\n", ws.Root())
			fmt.Fprintf(out, "Command scripts go in %s\n", ws.CommandsDir())
			return nil
		},
	}
}

type projectInfo struct {
	Root     string         `json:"root"`
	Document string         `json:"document"`
	Software string         `json:"software"`
	Members  map[string]int `json:"members"`
	History  bool           `json:"history"`
	Order    []string       `json:"properties_order"`
}

func newProjectInfoCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show project paths and member counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withProject(cmd, false, func(s *projectSession) error {
				info := projectInfo{
					Root:     s.ws.Root(),
					Document: s.ws.ProjectFile(),
					Software: s.project.Software(),
					Members:  map[string]int{},
					History:  ctx.configValue().History.Enabled,
					Order:    s.project.PropertiesOrder(),
				}
				for _, ns := range project.Namespaces {
					info.Members[string(ns)] = len(s.project.Members(ns))
				}
				if asJSON {
					return writeJSON(cmd, info)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Root:      %s\n", info.Root)
				fmt.Fprintf(out, "Document:  %s\n", info.Document)
				fmt.Fprintf(out, "Software:  %s\n", info.Software)
				fmt.Fprintf(out, "History:   %s\n", yesNo(info.History))
				for _, ns := range project.Namespaces {
					fmt.Fprintf(out, "%-10s %d\n", title(string(ns))+":", info.Members[string(ns)])
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newProjectCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that the project can be opened and saved",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := ctx.workspace()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Project "+ws.Root(), colorize) {
				fmt.Fprintln(out, line)
			}
			results := preflight.RunAll(cmd.Context(), ws, ctx.configValue())
			for _, result := range results {
				fmt.Fprintln(out, renderCheckLine(result.Name, result.Passed, result.Detail, colorize))
			}
			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d check(s) failed", len(failed))
			}
			return nil
		},
	}
}
