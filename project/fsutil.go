package project

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/pkg/errors"
)

// syscallSig0 is the portable "is this PID alive" probe: sending signal 0
// performs permission and existence checks without actually signaling the
// process.
const syscallSig0 = syscall.Signal(0)

// extractArchive unpacks the zip archive at src into dir, which is
// created if absent. Zip is a fixed wire format dictated by spec.md §6's
// package archive endpoint, not a pluggable concern, so this uses the
// standard library's archive/zip rather than a third-party dependency.
func extractArchive(src, dir string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return errors.Wrapf(err, "opening package archive %s", src)
	}
	defer r.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "creating package directory %s", dir)
	}

	for _, f := range r.File {
		dest := filepath.Join(dir, f.Name)
		if !isUnder(dir, dest) {
			return errors.Errorf("package archive entry %q escapes package directory", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}

		rc, err := f.Open()
		if err != nil {
			return errors.Wrapf(err, "reading archive entry %s", f.Name)
		}
		out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, f.Mode().Perm()|0o600)
		if err != nil {
			rc.Close()
			return errors.Wrapf(err, "writing %s", dest)
		}
		_, copyErr := io.Copy(out, rc)
		rc.Close()
		out.Close()
		if copyErr != nil {
			return errors.Wrapf(copyErr, "extracting %s", f.Name)
		}
	}
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, "opening %s", src)
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrapf(err, "writing %s", dest)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return errors.Wrapf(err, "copying %s to %s", src, dest)
	}
	return nil
}
