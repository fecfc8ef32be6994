package sync

import (
	"sort"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/policy"
)

func TestTakeSnapshot(t *testing.T) {
	fs = afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/mnt/data/a.txt", []byte("aaa"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/mnt/data/src/main.go", []byte("package main"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/mnt/data/scratch/tmp.bin", []byte("junk"), 0644))

	snapshot, err := TakeSnapshot("/mnt/data", nil)
	require.NoError(t, err)
	assert.Len(t, snapshot, 3)
	assert.Contains(t, snapshot, "src/main.go")
	assert.Equal(t, "/mnt/data/src/main.go", snapshot["src/main.go"].ContentsPath)
}

func TestTakeSnapshotScoped(t *testing.T) {
	fs = afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/mnt/data/src/main.go", []byte("package main"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/mnt/data/scratch/tmp.bin", []byte("junk"), 0644))

	bw := &policy.BWList{WhiteLists: []policy.WhiteList{{Path: "src"}}}
	snapshot, err := TakeSnapshot("/mnt/data", bw)
	require.NoError(t, err)
	assert.Len(t, snapshot, 1)
	assert.Contains(t, snapshot, "src/main.go")
}

func TestTakeSnapshotMissingMount(t *testing.T) {
	fs = afero.NewMemMapFs()

	// A mount path that hasn't been materialized yet is empty, not an
	// error.
	snapshot, err := TakeSnapshot("/mnt/missing", nil)
	require.NoError(t, err)
	assert.Empty(t, snapshot)
}

func TestDiff(t *testing.T) {
	fs = afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/mnt/data/keep.txt", []byte("same"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/mnt/data/edit.txt", []byte("before"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/mnt/data/remove.txt", []byte("bye"), 0644))

	prev, err := TakeSnapshot("/mnt/data", nil)
	require.NoError(t, err)

	require.NoError(t, afero.WriteFile(fs, "/mnt/data/edit.txt", []byte("after"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/mnt/data/new.txt", []byte("hi"), 0644))
	require.NoError(t, fs.Remove("/mnt/data/remove.txt"))

	curr, err := TakeSnapshot("/mnt/data", nil)
	require.NoError(t, err)

	changed, removed := prev.Diff(curr)

	var changedPaths []string
	for _, f := range changed {
		changedPaths = append(changedPaths, f.Path)
	}
	sort.Strings(changedPaths)
	assert.Equal(t, []string{"edit.txt", "new.txt"}, changedPaths)
	assert.Equal(t, []string{"remove.txt"}, removed)
}

func TestHashFile(t *testing.T) {
	fs = afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/a", []byte("contents"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/b", []byte("contents"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/c", []byte("different"), 0644))

	hashA, err := HashFile("/a")
	require.NoError(t, err)
	hashB, err := HashFile("/b")
	require.NoError(t, err)
	hashC, err := HashFile("/c")
	require.NoError(t, err)

	assert.Equal(t, hashA, hashB)
	assert.NotEqual(t, hashA, hashC)
}
