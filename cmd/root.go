package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	configCmd "github.com/agbcloud/agbcloud-sdk-sub000/cmd/config"
	contextsCmd "github.com/agbcloud/agbcloud-sdk-sub000/cmd/contexts"
	filesCmd "github.com/agbcloud/agbcloud-sdk-sub000/cmd/files"
	syncCmd "github.com/agbcloud/agbcloud-sdk-sub000/cmd/sync"
	"github.com/agbcloud/agbcloud-sdk-sub000/cmd/util"
	versionCmd "github.com/agbcloud/agbcloud-sdk-sub000/cmd/version"
	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/analytics"
	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/config"
)

// verboseLogKey is the environment variable used to enable verbose logging.
// When it's set to `true`, Debug events are logged, rather than just Info and
// above.
const verboseLogKey = "AGB_LOG_VERBOSE"

// Execute runs the main CLI process.
func Execute() {
	if os.Getenv(verboseLogKey) == "true" {
		log.SetLevel(log.DebugLevel)
	}
	log.AddHook(analytics.NewLogHook())

	rootCmd := &cobra.Command{
		Use:          "agb",
		SilenceUsage: true,

		// The call to rootCmd.Execute prints the error, so we silence errors
		// here to avoid double printing.
		SilenceErrors:    true,
		PersistentPreRun: setupAnalytics,
	}
	rootCmd.AddCommand(
		configCmd.New(),
		contextsCmd.New(),
		filesCmd.New(),
		syncCmd.New(),
		versionCmd.New(),
	)

	if err := rootCmd.Execute(); err != nil {
		util.HandleFatalError(err)
	}
}

func setupAnalytics(cmd *cobra.Command, _ []string) {
	analytics.SetSource(cmd.CalledAs())

	// The region is best effort. `agb config` runs before any user config
	// exists, so a parse failure here can't be fatal.
	if userConfig, err := config.ParseUser(); err == nil {
		analytics.SetRegion(userConfig.Region)
	} else {
		log.WithError(err).Debug("Failed to get region for analytics")
	}
}
