package cli

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	ctx := newCommandContext(&configFlag)

	root := &cobra.Command{
		Use:           "clipforge",
		Short:         "Render dubbed, reframed short clips from long videos",
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
	root.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	root.AddCommand(newRenderCommand(ctx))
	root.AddCommand(newSubtitleCommand(ctx))
	root.AddCommand(newDiscoverCommand(ctx))
	root.AddCommand(newHistoryCommand(ctx))
	root.AddCommand(newConfigCommand(ctx))
	return root
}
