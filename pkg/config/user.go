package config

import (
	"github.com/ghodss/yaml"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"

	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/errors"
)

const (
	// UserConfigPath is the default path to the user config.
	UserConfigPath = "~/.agb.yaml"

	// DefaultEndpoint is the control plane endpoint used when the user
	// config doesn't specify one.
	DefaultEndpoint = "https://api.agbcloud.com"

	// InitialUserConfigVersion is the first version of the user config.
	// Config files that do not specify a version default to this version.
	InitialUserConfigVersion = "v1alpha1"

	// SupportedUserConfigVersion is the user config version supported by
	// the current binary.
	SupportedUserConfigVersion = "v1alpha1"
)

// User contains the configuration used to reach the control plane.
type User struct {
	Version  string `json:"version,omitempty"`
	APIKey   string `json:"apiKey"`
	Region   string `json:"region,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
}

func (u User) getVersion() string {
	return u.Version
}

// homedirExpand will be overridden in mock tests
var homedirExpand = homedir.Expand

// ParseUser attempts to parse the User stored in the default path.
func ParseUser() (User, error) {
	path, err := GetUserConfigPath()
	if err != nil {
		return User{}, errors.WithContext(err, "expand config path")
	}

	config := User{Version: InitialUserConfigVersion}
	if err := parseConfig(path, &config, SupportedUserConfigVersion); err != nil {
		if _, ok := err.(errors.FileNotFound); ok {
			return User{}, errors.NewFriendlyError("The user config file "+
				"doesn't exist at %q. Please run `agb config` to create it.", path)
		}
		return User{}, errors.WithContext(err, "parse")
	}

	if config.APIKey == "" {
		return User{}, errors.NewFriendlyError(
			"The user config at %q doesn't contain an API key.", path)
	}

	if config.Endpoint == "" {
		config.Endpoint = DefaultEndpoint
	}
	return config, nil
}

// WriteUser writes the given user config to disk.
func WriteUser(cfg User) error {
	cfg.Version = SupportedUserConfigVersion
	path, err := GetUserConfigPath()
	if err != nil {
		return errors.WithContext(err, "expand config path")
	}

	yamlBytes, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.WithContext(err, "marshal")
	}

	if err := afero.WriteFile(fs, path, yamlBytes, 0600); err != nil {
		return errors.WithContext(err, "write")
	}
	return nil
}

// GetUserConfigPath returns the expanded path to the user's global
// configuration, suitable for passing directly to file operations.
func GetUserConfigPath() (string, error) {
	return homedirExpand(UserConfigPath)
}
