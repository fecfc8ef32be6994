package sync

import (
	"path/filepath"
	"strings"

	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/client"
)

// RemapPath translates a path stored under originalPath into the
// mountPath namespace. This is what lets data written at path A in one
// session be mounted at path B in a later session: the stored paths are
// still rooted at A, and the reconciler rewrites them on the way in.
// Paths outside originalPath are returned unchanged with ok=false.
func RemapPath(stored, originalPath, mountPath string) (string, bool) {
	relativePath, err := filepath.Rel(originalPath, stored)
	if err != nil || strings.HasPrefix(relativePath, "..") {
		return stored, false
	}

	if relativePath == "." {
		return mountPath, true
	}
	return filepath.Join(mountPath, relativePath), true
}

// remapStatuses rewrites the paths of status entries for a binding with a
// mapping policy, so that callers observe the mounted namespace rather
// than the stored one. Entries for other contexts or paths pass through
// untouched.
func remapStatuses(entries []client.TaskStatus, binding Binding) []client.TaskStatus {
	mapping := binding.Policy.Mapping
	if mapping == nil || mapping.OriginalPath == "" {
		return entries
	}

	remapped := make([]client.TaskStatus, len(entries))
	for i, entry := range entries {
		if entry.ContextID == binding.ContextID {
			if mapped, ok := RemapPath(entry.Path, mapping.OriginalPath, binding.MountPath); ok {
				entry.Path = mapped
			}
		}
		remapped[i] = entry
	}
	return remapped
}
