package confpatch

import (
	"fmt"
	"strings"
)

// Format selects the line syntax of the patched file.
type Format int

const (
	// Normal files hold one "key <setter> value" setting per line, e.g. postgresql.conf.
	Normal Format = iota
	// Records files hold whitespace separated fields per line where the last
	// field is the value, e.g. pg_hba.conf.
	Records
)

const (
	defaultCommentChar  = "#"
	defaultSetterChar   = "="
	defaultBackupSuffix = ".bak"
)

// ParseFormat converts "normal" or "records" (case-insensitive) to a Format.
// The empty string selects Normal.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal":
		return Normal, nil
	case "records":
		return Records, nil
	default:
		return Normal, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
}

func (f Format) String() string {
	switch f {
	case Normal:
		return "normal"
	case Records:
		return "records"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// Options controls how a document is matched, rewritten and persisted.
// The zero value patches a Normal file using "#" comments and "=" setters
// and makes a backup before writing.
type Options struct {
	Format Format
	// CommentChar marks a commented line. Defaults to "#".
	CommentChar string
	// SetterChar separates keys from values in Normal files. Defaults to "=".
	SetterChar string

	// Privileged asks the transport to fetch, copy and write with elevated privileges.
	Privileged bool
	// NoBackup disables the copy of the original file before the write.
	NoBackup bool
	// BackupSuffix is appended to the path to build the backup path. Defaults to ".bak".
	BackupSuffix string
	// DryRun computes and reports the changes without backup or write.
	DryRun bool

	// Reporter receives the decision events. Nil sends them to the debug log.
	Reporter Reporter
}

func (o Options) withDefaults() Options {
	if o.CommentChar == "" {
		o.CommentChar = defaultCommentChar
	}
	if o.SetterChar == "" {
		o.SetterChar = defaultSetterChar
	}
	if o.BackupSuffix == "" {
		o.BackupSuffix = defaultBackupSuffix
	}
	if o.Reporter == nil {
		o.Reporter = debugReporter{}
	}

	return o
}
