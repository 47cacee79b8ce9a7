package util

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// OpenExclFile creates a new file for reading and writing that did not exist prior to this call.
//
// The file is named parent/stem+ext if possible, otherwise the first of stem-1+ext, stem-2+ext, and so on that does
// not exist yet. For example, passing the stem and ext of "backup.tar.gz" (see StemAndExt) may create "backup.tar.gz",
// "backup-1.tar.gz", "backup-2.tar.gz", etc. Caller is responsible for closing the file upon a successful return.
//
// Unlike os.CreateTemp, the name is predictable, at the cost of one open attempt per existing file.
func OpenExclFile(parent, stem, ext string, perm os.FileMode) (file *os.File, err error) {
	if _, err = createExcl(parent, stem, ext, func(name string) (err error) {
		file, err = os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_EXCL, perm)
		return
	}); err != nil {
		return nil, fmt.Errorf("create file error: %w", err)
	}

	return file, nil
}

// MkExclDir is the directory equivalent of OpenExclFile.
//
// The returned name is the path to the newly created directory, which may have a numeric suffix such as stem-1.
func MkExclDir(parent, stem string, perm os.FileMode) (string, error) {
	name, err := createExcl(parent, stem, "", func(name string) error {
		return os.Mkdir(name, perm)
	})
	if err != nil {
		return "", fmt.Errorf("create directory error: %w", err)
	}

	return name, nil
}

// createExcl calls create with successive candidate names until one succeeds or fails with an error other than
// os.ErrExist.
func createExcl(parent, stem, ext string, create func(name string) error) (string, error) {
	for i := 0; ; i++ {
		name := filepath.Join(parent, stem+ext)
		if i > 0 {
			name = filepath.Join(parent, stem+"-"+strconv.Itoa(i)+ext)
		}

		switch err := create(name); {
		case err == nil:
			return name, nil
		case !errors.Is(err, os.ErrExist):
			return "", err
		}
	}
}
