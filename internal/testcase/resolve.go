package testcase

import (
	"archive/zip"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/ChristianLindehammar/http-reply-test-server/internal/config"
)

var errIsDirectory = errors.New("is a directory")

// Resolve picks the first source that yields at least one case in the
// configured range:
//
//  1. cfg.File, as test case 0
//  2. cfg.Zip
//  3. <cfg.TestDir>.zip, when it exists
//  4. cfg.TestDir
//
// Resolve never fails. Missing or corrupt sources are logged and skipped; a
// zip is never retried. When nothing matches the returned Set is empty.
func Resolve(cfg *config.Config, logger *slog.Logger) *Set {
	if logger == nil {
		logger = slog.Default()
	}
	r := resolver{cfg: cfg, logger: logger}

	if cfg.File != "" {
		return r.fromFile()
	}

	if set := r.fromZip(); set != nil {
		return set
	}
	if set := r.fromDir(); set != nil {
		return set
	}

	archive := cfg.Zip
	if archive == "" {
		archive = cfg.AutoZipPath()
	}
	logger.Warn("no test cases found", "zip", archive, "dir", cfg.TestDir, "range", cfg.RangeString())
	return Empty()
}

type resolver struct {
	cfg    *config.Config
	logger *slog.Logger
}

func (r *resolver) fromFile() *Set {
	set, err := openFile(r.cfg.File)
	if err != nil {
		r.logger.Error("cannot read test case file", "file", r.cfg.File, "error", err)
		return Empty()
	}
	r.logger.Info("reading data from file", "file", r.cfg.File, "bytes", set.Cases[0].Size)
	return set
}

// fromZip returns nil when no archive produced a matching case.
func (r *resolver) fromZip() *Set {
	archive := r.cfg.Zip
	if archive == "" {
		auto := r.cfg.AutoZipPath()
		if _, err := os.Stat(auto); err != nil {
			return nil
		}
		r.logger.Info("found zip file, using it instead of directory", "zip", auto, "dir", r.cfg.TestDir)
		archive = auto
	}

	set, err := openZip(archive, r.cfg.Start, r.cfg.Stop)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		r.logger.Warn("zip file not found, falling back to directory", "zip", archive)
		return nil
	case errors.Is(err, zip.ErrFormat), errors.Is(err, zip.ErrAlgorithm), errors.Is(err, zip.ErrChecksum):
		r.logger.Warn("zip file is not a valid zip file, falling back to directory", "zip", archive, "error", err)
		return nil
	case err != nil:
		r.logger.Error("cannot read zip file, falling back to directory", "zip", archive, "error", err)
		return nil
	}

	if set.Len() == 0 {
		r.logger.Warn("no valid test cases found in zip file", "zip", archive, "range", r.cfg.RangeString())
		set.Close()
		return nil
	}
	r.logger.Info("found test cases in zip file", "zip", archive, "count", set.Len())
	return set
}

// fromDir returns nil when the directory is missing or has no matching case.
func (r *resolver) fromDir() *Set {
	set, err := openDir(r.cfg.TestDir, r.cfg.Start, r.cfg.Stop)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.logger.Warn("test case directory not found", "dir", r.cfg.TestDir)
		} else {
			r.logger.Error("cannot read test case directory", "dir", r.cfg.TestDir, "error", err)
		}
		return nil
	}
	if set.Len() == 0 {
		r.logger.Warn("no valid test cases found in directory", "dir", r.cfg.TestDir, "range", r.cfg.RangeString())
		return nil
	}
	r.logger.Info("found test cases in directory", "dir", r.cfg.TestDir, "count", set.Len())
	return set
}
