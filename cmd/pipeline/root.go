package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var projectFlag string
	var configFlag string

	ctx := newCommandContext(&projectFlag, &configFlag)

	rootCmd := &cobra.Command{
		Use:           "pipeline",
		Short:         "Manage pipeline projects: concepts, steps and their commands",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&projectFlag, "project", "p", "", "Project root (defaults to the nearest folder holding .pipeline)")
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newProjectCommand(ctx))
	rootCmd.AddCommand(newConceptCommand(ctx))
	rootCmd.AddCommand(newStepCommand(ctx))
	rootCmd.AddCommand(newConcreteCommand(ctx))
	rootCmd.AddCommand(newMemberCommand(ctx))
	rootCmd.AddCommand(newCommandCommand(ctx))
	rootCmd.AddCommand(newCallCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
