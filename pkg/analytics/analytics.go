// Package analytics forwards CLI events to the telemetry intake so that
// failures in the field can be diagnosed. It's wired in as a logrus hook;
// events never block or fail the command that produced them.
package analytics

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/version"
)

var (
	// Log is the global analytics logger. Log events created via this object
	// are automatically pushed into the telemetry intake.
	Log = newAnalyticsLogger()

	// Optional values for automatically enriching the telemetry metadata.
	source string
	region string

	// Mocked out for unit testing.
	httpPost = http.Post
)

func newAnalyticsLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(ioutil.Discard)

	// Don't actually publish telemetry if we weren't compiled from `make`
	// (i.e. we're most likely being called from `go test`).
	if version.Version != version.EmptyValue {
		logger.AddHook(&hook{logrus.AllLevels, analyticsStream})
	}

	return logger
}

const (
	intakeEndpoint    = "https://telemetry.agbcloud.com/v1/events"
	intakeContentType = "application/json"

	analyticsStream = "analytics"
	loggingStream   = "logging"
)

// intakeFormatter formats log entries according to the intake's preferred
// format.
var intakeFormatter = &logrus.JSONFormatter{
	FieldMap: logrus.FieldMap{
		logrus.FieldKeyTime:  "timestamp",
		logrus.FieldKeyLevel: "status",
		logrus.FieldKeyMsg:   "message",
	},
}

// NewLogHook creates a new hook that forwards warning and error log
// messages to the telemetry intake.
func NewLogHook() logrus.Hook {
	levels := []logrus.Level{logrus.WarnLevel, logrus.ErrorLevel}
	return &hook{levels, loggingStream}
}

// SetSource sets the subcommand name that is automatically added to
// telemetry events.
func SetSource(s string) {
	source = s
}

// SetRegion sets the region that is automatically added to telemetry
// events.
func SetRegion(r string) {
	region = r
}

type hook struct {
	levels     []logrus.Level
	streamType string
}

func (h *hook) Levels() []logrus.Level {
	return h.levels
}

func (h *hook) Fire(entry *logrus.Entry) error {
	tags := []string{
		fmt.Sprintf("stream:%s", h.streamType),
		fmt.Sprintf("cli-version:%s", version.Version),
	}
	if region != "" {
		tags = append(tags, fmt.Sprintf("region:%s", region))
	}

	dataCopy := map[string]interface{}{
		"source": source,
		"tags":   strings.Join(tags, ","),
	}
	for k, v := range entry.Data {
		dataCopy[k] = v
	}

	// Copy the entry so that we don't change it when we add the
	// intake-specific values to Data.
	entryCopy := *entry
	entryCopy.Data = dataCopy

	// The intake doesn't have a concept of "panic" level, so we treat panics
	// as fatal errors.
	if entry.Level == logrus.PanicLevel {
		entryCopy.Level = logrus.FatalLevel
	}

	jsonBytes, err := intakeFormatter.Format(&entryCopy)
	if err != nil {
		logrus.WithError(err).Debug("Failed to marshal log entry for telemetry")
		return nil
	}

	resp, err := httpPost(intakeEndpoint, intakeContentType, bytes.NewReader(jsonBytes))
	if err != nil {
		logrus.WithError(err).Debug("Failed to publish telemetry")
	} else {
		// Close the body to avoid leaking resources.
		resp.Body.Close()
	}

	// Never return an error because doing so causes the error to be printed
	// directly to `stderr`, which messes up the command output.
	return nil
}
