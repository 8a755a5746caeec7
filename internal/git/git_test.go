package git

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDiff = `diff --git a/internal/render/body.go b/internal/render/body.go
index 1111111..2222222 100644
--- a/internal/render/body.go
+++ b/internal/render/body.go
@@ -10 +10 @@ func RenderBody
-old
+new
@@ -20,0 +21,3 @@ func RenderBody
+a
+b
+c
diff --git a/gone.go b/gone.go
deleted file mode 100644
--- a/gone.go
+++ /dev/null
@@ -1,4 +0,0 @@
-package gone
`

func TestParseDiff(t *testing.T) {
	changes, err := parseDiff([]byte(sampleDiff))
	require.NoError(t, err)
	require.Len(t, changes, 2)

	tests := []struct {
		name  string
		path  string
		lines []int
	}{
		{"Modified lines", "internal/render/body.go", []int{10, 21, 22, 23}},
		{"Deleted file has no lines", "gone.go", []int{}},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.path, changes[i].Path)
			assert.Equal(t, tt.lines, changes[i].ChangedLines)
			assert.False(t, changes[i].Untracked)
		})
	}
}

func TestParseDiff_Empty(t *testing.T) {
	changes, err := parseDiff(nil)
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestParseUntracked(t *testing.T) {
	files := parseUntracked([]byte("new.go\n\ndocs/x.md\n"))
	require.Len(t, files, 2)
	assert.Equal(t, ChangedFile{Path: "new.go", Untracked: true}, files[0])
	assert.Equal(t, "docs/x.md", files[1].Path)
}

func TestPaths(t *testing.T) {
	paths := Paths("/src", []ChangedFile{{Path: "a/b.go"}, {Path: "c.go"}})
	assert.Equal(t, []string{filepath.Join("/src", "a", "b.go"), filepath.Join("/src", "c.go")}, paths)
}
