// Package lister produces the set of files eligible for selection in a
// watched directory. Dot files are always skipped; callers can further
// filter with fnmatch patterns or the directory's gitignore files.
package lister

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/danwakefield/fnmatch"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/hayeah/choosenext/internal/natsort"
)

// Options controls the directory scan.
type Options struct {
	Recursive     bool   // descend into subdirectories
	IncludeDirs   bool   // list directories as candidates too
	Exclude       string // fnmatch pattern against the absolute path
	Include       string // re-admits excluded paths that match
	RespectIgnore bool   // honor gitignore files under the directory
}

// List returns the eligible paths under dir, relative to dir, in natural
// path order.
func List(dir string, opts Options) ([]string, error) {
	var matcher gitignore.Matcher
	if opts.RespectIgnore {
		patterns, err := gitignore.ReadPatterns(osfs.New(dir), []string{})
		if err != nil {
			return nil, fmt.Errorf("failed to read gitignore patterns: %w", err)
		}
		matcher = gitignore.NewMatcher(patterns)
	}

	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == dir {
			return nil
		}

		isDir := d.IsDir()
		name := d.Name()
		if strings.HasPrefix(name, ".") {
			if isDir {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		if matcher != nil {
			parts := strings.Split(rel, string(os.PathSeparator))
			if matcher.Match(parts, isDir) {
				if isDir {
					return filepath.SkipDir
				}
				return nil
			}
		}

		if isDir {
			if opts.IncludeDirs && !excluded(path, opts) {
				paths = append(paths, rel)
			}
			if !opts.Recursive {
				return filepath.SkipDir
			}
			return nil
		}

		if !excluded(path, opts) {
			paths = append(paths, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	sort.Slice(paths, func(i, j int) bool { return natsort.Less(paths[i], paths[j]) })
	return paths, nil
}

// excluded applies the exclude pattern to the absolute path; the include
// pattern re-admits matches, mirroring the CLI contract.
func excluded(abspath string, opts Options) bool {
	if opts.Exclude == "" {
		return false
	}
	if !fnmatch.Match(opts.Exclude, abspath, 0) {
		return false
	}
	return opts.Include == "" || !fnmatch.Match(opts.Include, abspath, 0)
}
