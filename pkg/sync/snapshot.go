package sync

import (
	"crypto/sha512"
	"encoding/base64"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/errors"
	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/policy"
)

// Mocked out for unit testing.
var fs = afero.NewOsFs()

// FileAttributes contains the metadata used to compare whether two files
// are equal.
type FileAttributes struct {
	// ContentsHash is the sha512 hash of the contents of the file.
	ContentsHash string

	// Mode is the file mode of the file.
	Mode os.FileMode

	// ModTime is the time of the last file modification.
	ModTime time.Time
}

// Equal returns whether two files are equal (i.e. whether a sync is
// necessary).
func (f FileAttributes) Equal(other FileAttributes) bool {
	return f.ContentsHash == other.ContentsHash &&
		f.Mode == other.Mode &&
		f.ModTime.Equal(other.ModTime)
}

// LocalFile is a file under a binding's mount path.
type LocalFile struct {
	// Path is the file's path relative to the mount point. This is the
	// namespace the context's stored objects are addressed in.
	Path string

	// ContentsPath is the absolute path that can be opened on the local
	// filesystem.
	ContentsPath string

	FileAttributes
}

// Snapshot is the set of in-scope files under a mount path at one point in
// time, keyed by mount-relative path.
type Snapshot map[string]LocalFile

// HashFile returns the sha512 hash of the file at the given path.
func HashFile(path string) (string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", errors.WithContext(err, "open")
	}
	defer f.Close()

	hasher := sha512.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", errors.WithContext(err, "read")
	}

	return base64.StdEncoding.EncodeToString(hasher.Sum(nil)), nil
}

// TakeSnapshot walks the mount path and records every file that's in the
// sync scope defined by the white list. A nil white list puts everything
// under the mount path in scope.
func TakeSnapshot(mountPath string, bw *policy.BWList) (Snapshot, error) {
	snapshot := Snapshot{}

	exists, err := afero.DirExists(fs, mountPath)
	if err != nil {
		return nil, errors.WithContext(err, "check mount path")
	}
	if !exists {
		// A mount path that hasn't been materialized yet is an empty
		// snapshot, not an error.
		return snapshot, nil
	}

	err = afero.Walk(fs, mountPath, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if fi.IsDir() {
			return nil
		}

		relativePath, err := filepath.Rel(mountPath, path)
		if err != nil || strings.HasPrefix(relativePath, "..") {
			return errors.WithContext(err, "normalize path")
		}

		if !bw.InScope(relativePath) {
			return nil
		}

		contentsHash, err := HashFile(path)
		if err != nil {
			return err
		}

		snapshot[relativePath] = LocalFile{
			Path:         relativePath,
			ContentsPath: path,
			FileAttributes: FileAttributes{
				ContentsHash: contentsHash,
				ModTime:      fi.ModTime(),
				Mode:         fi.Mode(),
			},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// Diff returns the files that changed between two snapshots: files that
// are new or have different attributes, and files that disappeared.
func (prev Snapshot) Diff(curr Snapshot) (changed []LocalFile, removed []string) {
	for _, f := range curr {
		old, ok := prev[f.Path]
		if !ok || !old.FileAttributes.Equal(f.FileAttributes) {
			changed = append(changed, f)
		}
	}

	for _, f := range prev {
		if _, ok := curr[f.Path]; !ok {
			removed = append(removed, f.Path)
		}
	}
	return
}
