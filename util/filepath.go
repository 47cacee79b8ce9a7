package util

import "path/filepath"

// StemAndExt is a variant of filepath.Ext that keeps compound extensions such as ".tar.gz" together.
//
// For example, `filepath.Ext("file.tar.gz")` would return ".gz" while `StemAndExt("file.tar.gz")` returns "file" and
// ".tar.gz". Extracting "file.tar.gz" into a directory named after the stem is then "file" rather than "file.tar", and
// OpenExclFile produces "file-1.tar.gz" rather than "file.tar-1.gz".
//
// Each extension component may have at most 5 characters after the dot, so ".jfif-tbnl" is not an extension while
// ".tar", ".zst", and ".tbz2" are.
func StemAndExt(path string) (stem, ext string) {
	n := len(path) - 1
	for i, j := n, max(0, n-6); i >= j; i-- {
		switch path[i] {
		case '\\', '/':
			stem = path[i+1:]
			return
		case '.':
			ext = path[i:] + ext
			path = path[:i]
			n = len(path)
			i, j = n, max(0, n-6)
			continue
		}
	}

	stem = filepath.Base(path)
	return
}
