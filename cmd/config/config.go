package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agbcloud/agbcloud-sdk-sub000/cmd/util"
	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/config"
	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/errors"
)

// New creates the `config` command, which writes the user config file.
func New() *cobra.Command {
	var apiKey, region, endpoint string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Write the user configuration file",
		Run: func(_ *cobra.Command, _ []string) {
			if apiKey == "" {
				util.HandleFatalError(errors.ValidationError{
					Reason: "--api-key is required"})
			}

			err := config.WriteUser(config.User{
				APIKey:   apiKey,
				Region:   region,
				Endpoint: endpoint,
			})
			if err != nil {
				util.HandleFatalError(err)
			}

			path, err := config.GetUserConfigPath()
			if err != nil {
				util.HandleFatalError(err)
			}
			fmt.Printf("Wrote config to %s\n", path)
		},
	}
	cmd.Flags().StringVar(&apiKey, "api-key", "", "The API key for the control plane")
	cmd.Flags().StringVar(&region, "region", "", "The default region for contexts")
	cmd.Flags().StringVar(&endpoint, "endpoint", "",
		"The control plane endpoint (defaults to "+config.DefaultEndpoint+")")
	return cmd
}
