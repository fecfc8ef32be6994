package policy

import (
	"path/filepath"
	"strings"
)

// WhiteList includes a subtree in the sync scope, minus any nested
// exclusions.
type WhiteList struct {
	Path         string   `json:"path"`
	ExcludePaths []string `json:"excludePaths"`
}

// BWList restricts which subpaths under the mount path are eligible for
// sync at all. A file is in scope iff it falls under some white list path
// and not under that white list's exclusions.
type BWList struct {
	WhiteLists []WhiteList `json:"whiteLists"`
}

// InScope returns whether the given path, relative to the mount point, is
// eligible for sync. A nil BWList, or one with no white lists, means
// everything under the mount path is in scope.
func (bw *BWList) InScope(path string) bool {
	if bw == nil || len(bw.WhiteLists) == 0 {
		return true
	}

	for _, wl := range bw.WhiteLists {
		if wl.covers(path) {
			return true
		}
	}
	return false
}

func (wl WhiteList) covers(path string) bool {
	if _, ok := matchPrefix(path, wl.Path); !ok {
		return false
	}

	// Ensure that the path doesn't fall under any of the exclusions.
	for _, exclude := range wl.ExcludePaths {
		if _, ok := matchPrefix(path, exclude); ok {
			return false
		}
	}
	return true
}

// matchPrefix returns whether `path` is an exact match, or a child of,
// `pattern`. An empty or "/" pattern matches everything. No glob support.
func matchPrefix(path, pattern string) (remaining string, ok bool) {
	if pattern == "" {
		return strings.TrimPrefix(path, "/"), true
	}

	relativePath, err := filepath.Rel(filepath.Clean("/"+pattern), filepath.Clean("/"+path))
	if err != nil || strings.HasPrefix(relativePath, "..") {
		return "", false
	}

	if relativePath == "." {
		return "", true
	}
	return relativePath, true
}
