package version

import (
	ver "github.com/hashicorp/go-version"

	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/errors"
)

// EmptyValue is the value we use when running a version that wasn't compiled
// by `make`. This is helpful for telling when we're running in a unit test.
const EmptyValue = "set-by-make"

// Version is the latest tag on git for releases. On non-release commits, it may
// include additional information such as the most recent commit hash.
var Version = EmptyValue

// Compatible reports whether this build satisfies the minimum client
// version advertised by the control plane. Development builds are always
// considered compatible since they don't carry a parseable version.
func Compatible(minClientVersion string) (bool, error) {
	if Version == EmptyValue || minClientVersion == "" {
		return true, nil
	}

	curr, err := ver.NewVersion(Version)
	if err != nil {
		return false, errors.WithContext(err, "parse build version")
	}

	min, err := ver.NewVersion(minClientVersion)
	if err != nil {
		return false, errors.WithContext(err, "parse minimum version")
	}
	return curr.GreaterThanOrEqual(min), nil
}
