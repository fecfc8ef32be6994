package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithDefaults(t *testing.T) {
	t.Parallel()

	filled := Policy{}.WithDefaults()
	assert.Equal(t, NewUploadPolicy(), filled.Upload)
	assert.Equal(t, NewDownloadPolicy(), filled.Download)
	assert.Equal(t, NewDeletePolicy(), filled.Delete)
	assert.Equal(t, NewRecyclePolicy(), filled.Recycle)

	// Absence of these sections is meaningful, so they stay nil.
	assert.Nil(t, filled.Extract)
	assert.Nil(t, filled.Mapping)
	assert.Nil(t, filled.BWList)
}

func TestWithDefaultsKeepsExplicitSections(t *testing.T) {
	t.Parallel()

	upload := &UploadPolicy{AutoUpload: false}
	filled := Policy{Upload: upload}.WithDefaults()
	assert.Same(t, upload, filled.Upload)
	assert.Equal(t, NewDownloadPolicy(), filled.Download)
}

func TestDefault(t *testing.T) {
	t.Parallel()
	assert.Equal(t, Policy{}.WithDefaults(), Default())
}

func TestInScope(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		bw   *BWList
		path string
		exp  bool
	}{
		{
			name: "NilListMatchesEverything",
			bw:   nil,
			path: "any/file.txt",
			exp:  true,
		},
		{
			name: "EmptyListMatchesEverything",
			bw:   &BWList{},
			path: "any/file.txt",
			exp:  true,
		},
		{
			name: "UnderWhiteList",
			bw: &BWList{WhiteLists: []WhiteList{
				{Path: "src"},
			}},
			path: "src/main.go",
			exp:  true,
		},
		{
			name: "ExactWhiteListMatch",
			bw: &BWList{WhiteLists: []WhiteList{
				{Path: "src/main.go"},
			}},
			path: "src/main.go",
			exp:  true,
		},
		{
			name: "OutsideWhiteList",
			bw: &BWList{WhiteLists: []WhiteList{
				{Path: "src"},
			}},
			path: "scratch/tmp.bin",
			exp:  false,
		},
		{
			name: "SiblingPrefixIsNotAMatch",
			bw: &BWList{WhiteLists: []WhiteList{
				{Path: "src"},
			}},
			path: "src-old/main.go",
			exp:  false,
		},
		{
			name: "Excluded",
			bw: &BWList{WhiteLists: []WhiteList{
				{Path: "src", ExcludePaths: []string{"src/node_modules"}},
			}},
			path: "src/node_modules/express/index.js",
			exp:  false,
		},
		{
			name: "ExclusionOnlyAppliesToItsWhiteList",
			bw: &BWList{WhiteLists: []WhiteList{
				{Path: "src", ExcludePaths: []string{"src/node_modules"}},
				{Path: "src/node_modules/keep"},
			}},
			path: "src/node_modules/keep/index.js",
			exp:  true,
		},
		{
			name: "RootWhiteList",
			bw: &BWList{WhiteLists: []WhiteList{
				{Path: "/"},
			}},
			path: "anything/at/all",
			exp:  true,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, test.exp, test.bw.InScope(test.path))
		})
	}
}
