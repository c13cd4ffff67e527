package lister

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hayeah/choosenext/internal/assert"
)

func writeTree(t *testing.T, files ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, f := range files {
		path := filepath.Join(dir, f)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create dir: %v", err)
		}
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatalf("failed to create file: %v", err)
		}
	}
	return dir
}

func TestListRecursive(t *testing.T) {
	assert := assert.New(t)

	dir := writeTree(t, "b.avi", "a.avi", "sub/c.avi")
	paths, err := List(dir, Options{Recursive: true})
	assert.NoError(err)
	assert.Equal([]string{"a.avi", "b.avi", filepath.Join("sub", "c.avi")}, paths)
}

func TestListNonRecursive(t *testing.T) {
	assert := assert.New(t)

	dir := writeTree(t, "a.avi", "sub/c.avi")
	paths, err := List(dir, Options{})
	assert.NoError(err)
	assert.Equal([]string{"a.avi"}, paths)
}

func TestListSkipsDotFiles(t *testing.T) {
	assert := assert.New(t)

	dir := writeTree(t, "a.avi", ".hidden.avi", ".git/config", "sub/.also-hidden")
	paths, err := List(dir, Options{Recursive: true})
	assert.NoError(err)
	assert.Equal([]string{"a.avi"}, paths)
}

func TestListIncludeDirs(t *testing.T) {
	assert := assert.New(t)

	dir := writeTree(t, "sub/c.avi")
	paths, err := List(dir, Options{Recursive: true, IncludeDirs: true})
	assert.NoError(err)
	assert.Equal([]string{"sub", filepath.Join("sub", "c.avi")}, paths)
}

func TestListExcludeInclude(t *testing.T) {
	assert := assert.New(t)

	dir := writeTree(t, "a.avi", "b.srt", "keep.srt")

	paths, err := List(dir, Options{Exclude: "*.srt"})
	assert.NoError(err)
	assert.Equal([]string{"a.avi"}, paths)

	// include re-admits excluded matches
	paths, err = List(dir, Options{Exclude: "*.srt", Include: "*keep*"})
	assert.NoError(err)
	assert.Equal([]string{"a.avi", "keep.srt"}, paths)
}

func TestListNaturalOrder(t *testing.T) {
	assert := assert.New(t)

	dir := writeTree(t, "10 - b.avi", "2 - a.avi")
	paths, err := List(dir, Options{})
	assert.NoError(err)
	assert.Equal([]string{"2 - a.avi", "10 - b.avi"}, paths)
}

func TestListRespectIgnore(t *testing.T) {
	assert := assert.New(t)

	dir := writeTree(t, "a.avi", "junk/skip.avi")
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("junk/\n"), 0644); err != nil {
		t.Fatalf("failed to write gitignore: %v", err)
	}

	paths, err := List(dir, Options{Recursive: true, RespectIgnore: true})
	assert.NoError(err)
	assert.Equal([]string{"a.avi"}, paths)
}
