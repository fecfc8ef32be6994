package version

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/agbcloud/agbcloud-sdk-sub000/cmd/util"
	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/version"
)

// New creates the `version` command.
func New() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the CLI and control plane versions",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("client version: %s\n", version.Version)

			c, _, err := util.GetClient()
			if err != nil {
				log.WithError(err).Debug("Failed to create control plane client")
				return
			}

			info, err := c.APIVersion(context.Background())
			if err != nil {
				log.WithError(err).Debug("Failed to query control plane version")
				return
			}
			fmt.Printf("api version: %s\n", info.APIVersion)

			compatible, err := version.Compatible(info.MinClientVersion)
			if err != nil {
				log.WithError(err).Debug("Failed to compare versions")
				return
			}
			if !compatible {
				fmt.Printf("This client is older than the minimum supported "+
					"version %s. Please upgrade.\n", info.MinClientVersion)
			}
		},
	}
}
