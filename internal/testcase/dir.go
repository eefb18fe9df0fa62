package testcase

import (
	"os"
	"path/filepath"
)

// openDir lists the directory's immediate regular files whose name is an
// index in [start, stop]. Subdirectories and other names are skipped.
func openDir(dir string, start, stop int) (*Set, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var cases []Case
	for _, e := range entries {
		index, ok := ParseIndex(e.Name())
		if !ok || !inRange(index, start, stop) {
			continue
		}
		full := filepath.Join(dir, e.Name())
		// Stat follows symlinks so a link to a directory is skipped too.
		info, err := os.Stat(full)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		cases = append(cases, Case{
			Index: index,
			Name:  full,
			Size:  info.Size(),
			Kind:  KindDirectory,
			load:  fileLoader(full),
		})
	}
	sortCases(cases)

	return &Set{Kind: KindDirectory, Origin: dir, Cases: cases}, nil
}

// openFile wraps a single file as test case 0, regardless of the index range.
func openFile(name string) (*Set, error) {
	info, err := os.Stat(name)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, &os.PathError{Op: "open", Path: name, Err: errIsDirectory}
	}
	c := Case{
		Index: 0,
		Name:  name,
		Size:  info.Size(),
		Kind:  KindFile,
		load:  fileLoader(name),
	}
	return &Set{Kind: KindFile, Origin: name, Cases: []Case{c}}, nil
}

func fileLoader(name string) func() ([]byte, error) {
	return func() ([]byte, error) {
		return os.ReadFile(name)
	}
}
