package testcase

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
)

// openZip lists the archive's entries whose base name is an index in
// [start, stop]. On success the returned Set owns the open archive.
func openZip(archivePath string, start, stop int) (*Set, error) {
	rc, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, err
	}

	var cases []Case
	for _, f := range rc.File {
		if f.FileInfo().IsDir() {
			continue
		}
		index, ok := ParseIndex(path.Base(f.Name))
		if !ok || !inRange(index, start, stop) {
			continue
		}
		cases = append(cases, Case{
			Index: index,
			Name:  f.Name,
			Size:  int64(f.UncompressedSize64),
			Kind:  KindZip,
			load:  zipLoader(f),
		})
	}
	sortCases(cases)

	return &Set{
		Kind:   KindZip,
		Origin: archivePath,
		Cases:  cases,
		closer: rc,
	}, nil
}

func zipLoader(f *zip.File) func() ([]byte, error) {
	return func() ([]byte, error) {
		r, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		defer r.Close()

		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		return data, nil
	}
}
