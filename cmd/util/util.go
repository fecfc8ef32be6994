package util

import (
	"fmt"
	"os"
	"runtime/debug"

	log "github.com/sirupsen/logrus"

	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/analytics"
	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/client"
	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/config"
	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/errors"
)

// HandleFatalError prints the friendliest form of err and exits.
func HandleFatalError(err error) {
	analytics.Log.WithError(err).Error("Fatal error")
	log.WithError(err).Debug("Fatal error")

	fmt.Fprintln(os.Stderr, errors.GetPrintableMessage(err))
	os.Exit(1)
}

// HandlePanic reports panics to the telemetry intake before crashing.
// It should be deferred at the top of every goroutine.
func HandlePanic() {
	if r := recover(); r != nil {
		analytics.Log.WithField("stack", string(debug.Stack())).
			Errorf("Panicked: %v", r)
		panic(r)
	}
}

// GetClient builds a control plane client from the user's config file.
func GetClient() (client.Client, config.User, error) {
	userConfig, err := config.ParseUser()
	if err != nil {
		return nil, config.User{}, errors.WithContext(err, "parse user config")
	}
	return client.New(userConfig.Endpoint, userConfig.APIKey), userConfig, nil
}
