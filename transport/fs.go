package transport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/gopasspw/gopass/pkg/debug"
	"github.com/spf13/afero"
)

// FS is a transport on top of an afero file system. It has no notion of
// privileges; the privileged flag is ignored.
type FS struct {
	fs afero.Fs
}

// NewFS returns a transport working on fs. Pass afero.NewOsFs() for the real
// file system or afero.NewMemMapFs() for tests and dry runs.
func NewFS(fs afero.Fs) *FS {
	return &FS{fs: fs}
}

// Fetch reads the file at path.
func (f *FS) Fetch(_ context.Context, path string, privileged bool) ([]byte, error) {
	if privileged {
		debug.V(1).Log("ignoring privileged fetch of %s", path)
	}

	return afero.ReadFile(f.fs, path)
}

// Write replaces the file at path with data, keeping the mode of an existing file.
func (f *FS) Write(_ context.Context, path string, data []byte, privileged bool) error {
	if privileged {
		debug.V(1).Log("ignoring privileged write of %s", path)
	}

	perm := os.FileMode(0o644)
	if fi, err := f.fs.Stat(path); err == nil {
		perm = fi.Mode().Perm()
	}

	return f.replace(path, data, perm)
}

// Copy copies src to dst, keeping the mode of src.
func (f *FS) Copy(_ context.Context, src, dst string, privileged bool) error {
	if privileged {
		debug.V(1).Log("ignoring privileged copy of %s", src)
	}

	fi, err := f.fs.Stat(src)
	if err != nil {
		return err
	}
	data, err := afero.ReadFile(f.fs, src)
	if err != nil {
		return err
	}

	return f.replace(dst, data, fi.Mode().Perm())
}

func (f *FS) replace(path string, data []byte, perm os.FileMode) error {
	stage := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".confpatch-"+uuid.NewString())

	if err := afero.WriteFile(f.fs, stage, data, perm); err != nil {
		return fmt.Errorf("failed to write staging file %s: %w", stage, err)
	}
	// WriteFile honours the umask on the OS file system.
	if err := f.fs.Chmod(stage, perm); err != nil {
		_ = f.fs.Remove(stage)

		return fmt.Errorf("failed to set mode of %s: %w", stage, err)
	}
	if err := f.fs.Rename(stage, path); err != nil {
		_ = f.fs.Remove(stage)

		return fmt.Errorf("failed to rename %s to %s: %w", stage, path, err)
	}

	debug.V(2).Log("replaced %s (%d bytes)", path, len(data))

	return nil
}
