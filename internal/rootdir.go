package internal

import (
	"path/filepath"
	"regexp"
	"strings"
)

var sep = regexp.MustCompile(`[\\/]`)

// toSlash replaces both forward and backward slashes with `/` regardless of the current OS.
func toSlash(name string) string {
	return sep.ReplaceAllString(name, "/")
}

// RootDir can be used to remove the root prefix of an entry's name.
//
// A non-empty RootDir always ends with `/`.
type RootDir string

// Trim removes the root prefix from the given entry name.
//
// The returned value always uses `/` as separator, and is empty if name is the root directory itself.
func (r RootDir) Trim(name string) string {
	name = strings.TrimPrefix(toSlash(name), "./")
	if r != "" && name+"/" == string(r) {
		return ""
	}

	return strings.TrimPrefix(name, string(r))
}

// Join trims the entry name then joins the paths with filepath.Join.
func (r RootDir) Join(base, name string) string {
	return filepath.Join(base, filepath.FromSlash(r.Trim(name)))
}

// FindRootDir returns the common root directory of the given entry names.
//
// Given these three names:
//
//	test/a.txt
//	test/path/b.txt
//	test/another/path/c.txt
//
// The common root directory of those files is `test/`. The returned value is empty if the given files have no common
// root directory.
func FindRootDir(names []string) (rootDir RootDir) {
	fn := NewRootDirFinder()

	var ok bool
	for _, name := range names {
		rootDir, ok = fn(name)
		if !ok {
			break
		}
	}

	return
}

// NewRootDirFinder returns a function that can be passed the entry names to compute the common root.
//
// NewRootDirFinder is a functional variant of FindRootDir. It returns the current root dir and a boolean indicating
// whether there is a common root so far. As soon as the returned boolean value is false, the search can stop since
// there is no common root and subsequent calls will keep returning `"", false`.
func NewRootDirFinder() func(string) (rootDir RootDir, hasRoot bool) {
	noRoot, root := false, ""

	return func(name string) (RootDir, bool) {
		if noRoot {
			return "", false
		}

		paths := strings.SplitN(strings.TrimPrefix(toSlash(name), "./"), "/", 2)
		if len(paths) == 1 {
			// this is a file at top level so there is no root for sure.
			noRoot = true
			return "", false
		}

		switch root {
		case paths[0]:
		case "":
			root = paths[0]
		default:
			noRoot = true
			return "", false
		}

		return RootDir(root + "/"), true
	}
}
