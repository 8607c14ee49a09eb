package cmd

import (
	"github.com/spf13/cobra"

	"github.com/crawlkit/origind/internal/config"
)

// newValidateCmd creates the 'validate' subcommand: transform the
// configuration and run it through the external crawler's validator without
// starting any service.
func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [config]",
		Short: "Validate the configuration without starting anything",
		Args:  cobra.ArbitraryArgs,
		RunE:  runValidateCommand,
	}
	return cmd
}

func runValidateCommand(cmd *cobra.Command, _ []string) error {
	app, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	transformed, err := config.Transform(app.Raw)
	if err != nil {
		return err
	}
	if err := config.ValidateExternally(cmd.Context(), transformed, app.Settings.Crawler.Binary); err != nil {
		return err
	}
	cmd.Println("configuration is valid")
	return nil
}
