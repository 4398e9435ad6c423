package confpatch

import (
	"context"

	"github.com/gopasspw/gopass/pkg/debug"
)

// Transport moves file contents between the patcher and the (usually remote)
// host holding the file. See the transport package for implementations.
//
// Write must replace the file in one step: readers see either the old or the
// new content, never a partial file. The implementations stage the content
// next to the target and rename it into place.
type Transport interface {
	Fetch(ctx context.Context, path string, privileged bool) ([]byte, error)
	Write(ctx context.Context, path string, data []byte, privileged bool) error
	Copy(ctx context.Context, src, dst string, privileged bool) error
}

// ModifyFile alters the settings of an existing config file, uncommenting and
// updating matching lines and appending the settings that are missing.
//
// The steps are: validate the settings, fetch the file, patch it in memory,
// copy the original to path+BackupSuffix (unless NoBackup is set) and write the
// new content back with a single replace. Invalid settings fail before anything
// is fetched. If the patched document is unchanged, or DryRun is set, neither
// the backup nor the write happen.
//
// ModifyFile does not lock the file. Callers must serialize runs against the
// same path, otherwise concurrent runs can drop each other's changes.
func ModifyFile(ctx context.Context, t Transport, path string, settings []Setting, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	settings, err := validateSettings(settings, opts.Format)
	if err != nil {
		return nil, err
	}

	debug.V(1).Log("fetching %s (privileged: %t)", path, opts.Privileged)
	content, err := t.Fetch(ctx, path, opts.Privileged)
	if err != nil {
		return nil, &TransferError{Op: "fetch", Path: path, Err: err}
	}

	res := patch(content, settings, opts)

	if !res.Changed {
		debug.V(1).Log("%s is up to date, not writing", path)

		return res, nil
	}
	if opts.DryRun {
		debug.V(1).Log("dry run, not writing %s", path)

		return res, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !opts.NoBackup {
		backup := path + opts.BackupSuffix
		debug.V(1).Log("backing up %s to %s", path, backup)
		if err := t.Copy(ctx, path, backup, opts.Privileged); err != nil {
			return nil, &TransferError{Op: "backup", Path: path, Err: err}
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := t.Write(ctx, path, res.Content, opts.Privileged); err != nil {
		return nil, &TransferError{Op: "write", Path: path, Err: err}
	}

	debug.Log("wrote %s: %d settings applied, %d appended", path, len(res.Applied), len(res.Appended))

	return res, nil
}
