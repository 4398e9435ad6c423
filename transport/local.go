package transport

import (
	"context"
	"fmt"
	"os"

	"github.com/google/renameio/v2"
	"github.com/gopasspw/gopass/pkg/debug"
)

// Local is a transport for files on the local machine. Unprivileged access
// uses the file system directly, privileged access goes through a sudo Runner.
type Local struct {
	sudo Runner
}

// NewLocal returns a local transport. sudo runs the privileged commands; nil
// runs them without elevation.
func NewLocal(sudo Runner) *Local {
	if sudo == nil {
		sudo = LocalRunner{}
	}

	return &Local{sudo: sudo}
}

// Fetch reads path, with "cat" through sudo when privileged.
func (l *Local) Fetch(ctx context.Context, path string, privileged bool) ([]byte, error) {
	if privileged {
		return l.sudo.Run(ctx, shellJoin("cat", path))
	}

	return os.ReadFile(path)
}

// Write replaces path with data. The unprivileged write goes through a
// renameio pending file; the privileged one stages a temporary file and
// commits it with sudo.
func (l *Local) Write(ctx context.Context, path string, data []byte, privileged bool) error {
	if !privileged {
		return renameio.WriteFile(path, data, 0o644, renameio.WithExistingPermissions())
	}

	tmp, err := os.CreateTemp("", "confpatch-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("failed to write temp file %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file %s: %w", tmp.Name(), err)
	}

	debug.V(1).Log("committing %s to %s with sudo", tmp.Name(), path)
	_, err = l.sudo.Run(ctx, commitScript(tmp.Name(), path))

	return err
}

// Copy copies src to dst keeping its mode, with "cp -p" through sudo when
// privileged.
func (l *Local) Copy(ctx context.Context, src, dst string, privileged bool) error {
	if privileged {
		_, err := l.sudo.Run(ctx, shellJoin("cp", "-p", src, dst))

		return err
	}

	fi, err := os.Stat(src)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}

	t, err := renameio.NewPendingFile(dst, renameio.WithPermissions(fi.Mode().Perm()), renameio.IgnoreUmask())
	if err != nil {
		return err
	}
	defer func() {
		_ = t.Cleanup()
	}()

	if _, err := t.Write(data); err != nil {
		return err
	}

	return t.CloseAtomicallyReplace()
}
