package scanner

import (
	"io/fs"
	"path/filepath"
	"strings"
)

type File struct {
	Index int
	Path  string
	Size  uint64
}

// Enumerate lists the regular files under root in lexical order. depth
// bounds how many directory levels below root are entered; zero means
// only root itself.
func Enumerate(root string, depth int) ([]File, error) {
	var files []File
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && levels(root, path) > depth {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, File{Index: len(files), Path: path, Size: uint64(info.Size())})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func levels(root, dir string) int {
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}
