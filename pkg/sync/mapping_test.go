package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/client"
	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/policy"
)

func TestRemapPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		stored   string
		expPath  string
		expMatch bool
	}{
		{"/mnt/original/a.txt", "/mnt/new/a.txt", true},
		{"/mnt/original/sub/b.txt", "/mnt/new/sub/b.txt", true},
		{"/mnt/original", "/mnt/new", true},
		{"/mnt/other/c.txt", "/mnt/other/c.txt", false},
		{"/mnt/original-sibling/d.txt", "/mnt/original-sibling/d.txt", false},
	}
	for _, test := range tests {
		mapped, ok := RemapPath(test.stored, "/mnt/original", "/mnt/new")
		assert.Equal(t, test.expMatch, ok, test.stored)
		assert.Equal(t, test.expPath, mapped, test.stored)
	}
}

func TestRemapStatuses(t *testing.T) {
	t.Parallel()

	binding := Binding{
		ContextID: "ctx-1",
		MountPath: "/mnt/new",
		Policy: policy.Policy{
			Mapping: &policy.MappingPolicy{OriginalPath: "/mnt/original"},
		},
	}

	entries := []client.TaskStatus{
		{ContextID: "ctx-1", Path: "/mnt/original/a.txt", Status: client.StatusSuccess},
		{ContextID: "ctx-2", Path: "/mnt/original/b.txt", Status: client.StatusSuccess},
	}

	remapped := remapStatuses(entries, binding)
	assert.Equal(t, "/mnt/new/a.txt", remapped[0].Path)

	// Entries for other contexts pass through untouched.
	assert.Equal(t, "/mnt/original/b.txt", remapped[1].Path)
}

func TestRemapStatusesNoMapping(t *testing.T) {
	t.Parallel()

	binding := Binding{ContextID: "ctx-1", MountPath: "/mnt/data"}
	entries := []client.TaskStatus{{ContextID: "ctx-1", Path: "/mnt/data/a.txt"}}
	assert.Equal(t, entries, remapStatuses(entries, binding))
}
