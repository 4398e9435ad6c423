package confpatch

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSettingShape indicates a setting with the wrong arity for the selected format.
	ErrInvalidSettingShape = errors.New("invalid setting shape")
	// ErrInvalidFormat indicates an unknown config file format name.
	ErrInvalidFormat = errors.New("invalid format")
	// ErrTransfer indicates a failed fetch, backup copy or write of the target file.
	ErrTransfer = errors.New("transfer failed")
)

// TransferError records the transport step that failed, the remote path and the cause.
// It matches ErrTransfer with errors.Is.
type TransferError struct {
	Op   string // "fetch", "backup" or "write"
	Path string
	Err  error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying transport error.
func (e *TransferError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrTransfer.
func (e *TransferError) Is(target error) bool {
	return target == ErrTransfer
}
