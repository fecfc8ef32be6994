package config

import (
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"

	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/errors"
	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/policy"
)

// SyncConfigName is the name of the workspace sync config file.
const SyncConfigName = "agb.yaml"

// InitialSyncConfigVersion is the first version of the sync config.
// Config files that do not specify a version default to this version.
const InitialSyncConfigVersion = "v1alpha1"

// SupportedSyncConfigVersion is the sync config version supported by the
// current binary.
const SupportedSyncConfigVersion = "v1alpha1"

// SyncConfig declares which contexts a workspace mounts and under which
// policies.
type SyncConfig struct {
	Version  string         `json:"version,omitempty"`
	Contexts []ContextMount `json:"contexts"`

	// Only populated and consumed internally. Never set by the user.
	path string
}

// ContextMount binds one named context to a mount path.
type ContextMount struct {
	Context string        `json:"context"` // Required.
	Path    string        `json:"path"`    // Required.
	Policy  policy.Policy `json:"policy,omitempty"`
}

// GetPath returns the filepath the config was parsed from. A getter method
// is used rather than making the field public so that it can't get set by
// the yaml unmarshalling.
func (c SyncConfig) GetPath() string {
	return c.path
}

func (c SyncConfig) getVersion() string {
	return c.Version
}

// ParseSyncConfig parses the sync configuration in the directory `dir`.
func ParseSyncConfig(dir string) (SyncConfig, error) {
	configPath := filepath.Join(dir, SyncConfigName)
	config := SyncConfig{
		path:    configPath,
		Version: InitialSyncConfigVersion,
	}
	if err := parseConfig(configPath, &config, SupportedSyncConfigVersion); err != nil {
		return SyncConfig{}, errors.WithContext(err, "parse")
	}

	if len(config.Contexts) == 0 {
		return SyncConfig{}, errors.NewFriendlyError(
			"The sync config in %q doesn't declare any contexts.\n"+
				"Add a `contexts` section binding a context name to a mount path.",
			configPath)
	}

	var cleaned []ContextMount
	for _, mount := range config.Contexts {
		if mount.Context == "" {
			return SyncConfig{}, errors.ValidationError{
				Reason: "every context mount requires a context name"}
		}

		// Expand ~'s in the mount path.
		path, err := homedir.Expand(mount.Path)
		if err != nil {
			return SyncConfig{}, errors.WithContext(err, "expand homedir")
		}
		if path == "" {
			return SyncConfig{}, errors.ValidationError{
				Reason: "every context mount requires a path"}
		}

		mount.Path = filepath.Clean(path)
		mount.Policy = mount.Policy.WithDefaults()
		cleaned = append(cleaned, mount)
	}
	config.Contexts = cleaned

	return config, nil
}
