package fswatch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/errors"
	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/policy"
)

var fs = afero.NewOsFs()

// Watch watches for changes to in-scope files under the mount path. It
// sends an event on the returned channel whenever a watched file changes.
// Consecutive events are coalesced so that a burst of writes triggers a
// single sync pass.
func Watch(mountPath string, bw *policy.BWList) (chan struct{}, error) {
	pathsToWatch, err := getPathsToWatch(mountPath, bw)
	if err != nil {
		return nil, errors.WithContext(err, "get paths")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WithContext(err, "create watcher")
	}

	for _, path := range pathsToWatch {
		if err := watcher.Add(path); err != nil {
			// Close the watcher so that we release the file handlers for the
			// previously added paths.
			if err := watcher.Close(); err != nil {
				log.WithError(err).Warn("Failed to close file watcher")
			}

			return nil, errors.WithContext(err, fmt.Sprintf("watch %q", path))
		}
	}
	return combineUpdates(watcher.Events), nil
}

func combineUpdates(updates <-chan fsnotify.Event) chan struct{} {
	combined := make(chan struct{}, 1)
	go func() {
		for range updates {
			select {
			case combined <- struct{}{}:
			default:
			}
		}
	}()
	return combined
}

// getPathsToWatch returns the mount path plus every in-scope subdirectory
// and file. fsnotify doesn't watch directories recursively, so the whole
// tree has to be enumerated up front.
func getPathsToWatch(mountPath string, bw *policy.BWList) (paths []string, err error) {
	fi, err := fs.Stat(mountPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileNotFound{Path: mountPath}
		}
		return nil, errors.WithContext(err, "stat")
	}

	if !fi.Mode().IsDir() {
		return nil, errors.ValidationError{Reason: "mount path must be a directory"}
	}

	paths = append(paths, mountPath)
	err = afero.Walk(fs, mountPath, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return errors.WithContext(err, "walk error")
		}

		if path == mountPath {
			return nil
		}

		relativePath, err := filepath.Rel(mountPath, path)
		if err != nil || strings.HasPrefix(relativePath, "..") {
			// This shouldn't happen because `path` is always a child of
			// the mount path.
			return errors.WithContext(err, "normalized path")
		}

		if bw.InScope(relativePath) {
			paths = append(paths, path)
		}
		return nil
	})
	return paths, err
}
