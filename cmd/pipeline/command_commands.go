package main

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"pipeline/internal/scripts"
)

func newCommandCommand(ctx *commandContext) *cobra.Command {
	commandCmd := &cobra.Command{
		Use:   "command",
		Short: "Manage the commands of a member",
	}
	commandCmd.AddCommand(newCommandListCommand(ctx))
	commandCmd.AddCommand(newCommandAddCommand(ctx))
	commandCmd.AddCommand(newCommandRemoveCommand(ctx))
	commandCmd.AddCommand(newCommandImportCommand(ctx))
	return commandCmd
}

func newCommandListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list <member>",
		Short: "List the effective commands of a member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withProject(cmd, false, func(s *projectSession) error {
				m, err := resolveMember(s.project, args[0])
				if err != nil {
					return err
				}
				commands := m.Commands()
				var rows [][]string
				for _, software := range slices.Sorted(maps.Keys(commands)) {
					for _, name := range commands.Names(software) {
						rows = append(rows, []string{software, name, strings.Join(commands[software][name], ", ")})
					}
				}
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No commands")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Software", "Command", "Scripts"}, rows))
				return nil
			})
		},
	}
}

func newCommandAddCommand(ctx *commandContext) *cobra.Command {
	var software string
	cmd := &cobra.Command{
		Use:   "add <member> <command> [script...]",
		Short: "Register a command and append scripts to it",
		Long: "Scripts are Lua (.lua) or JavaScript (.js) files relative to the commands folder,\n" +
			"or builtins written as " + scripts.BuiltinPrefix + "<name>.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, script := range args[2:] {
				if _, err := scripts.EngineFor(script); err != nil {
					return err
				}
			}
			return ctx.withProject(cmd, true, func(s *projectSession) error {
				m, err := resolveMember(s.project, args[0])
				if err != nil {
					return err
				}
				return m.AddCommand(softwareOrDefault(s, software), args[1], args[2:]...)
			})
		},
	}
	cmd.Flags().StringVar(&software, "software", "", "Software the command belongs to (default: project.software)")
	return cmd
}

func newCommandRemoveCommand(ctx *commandContext) *cobra.Command {
	var software string
	cmd := &cobra.Command{
		Use:   "remove <member> <command>",
		Short: "Remove a local command",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withProject(cmd, true, func(s *projectSession) error {
				m, err := resolveMember(s.project, args[0])
				if err != nil {
					return err
				}
				return m.RemoveCommand(softwareOrDefault(s, software), args[1])
			})
		},
	}
	cmd.Flags().StringVar(&software, "software", "", "Software the command belongs to (default: project.software)")
	return cmd
}

func newCommandImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Copy a script into the commands folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := scripts.EngineFor(args[0]); err != nil {
				return err
			}
			ws, err := ctx.workspace()
			if err != nil {
				return err
			}
			name, err := ws.ImportScript(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s\n", name)
			return nil
		},
	}
}

func newCallCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "call <member> <command>",
		Short: "Run every script of a command against a member",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Scripts may set properties, so calls save like any other edit.
			return ctx.withProject(cmd, true, func(s *projectSession) error {
				m, err := resolveMember(s.project, args[0])
				if err != nil {
					return err
				}
				if err := m.Call(cmd.Context(), args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Called %s on %s\n", args[1], m.Name())
				return nil
			})
		},
	}
}

func softwareOrDefault(s *projectSession, software string) string {
	if strings.TrimSpace(software) != "" {
		return strings.TrimSpace(software)
	}
	return s.project.Software()
}
