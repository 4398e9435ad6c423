// Package confpatch implements an idempotent patcher for line oriented config
// files such as postgresql.conf or pg_hba.conf. Given a document and a list of
// desired settings it makes sure every setting is represented by exactly one
// active (uncommented) line holding the new value, while all other lines,
// comments and the line order stay as they are. Running it again with the same
// settings does not change the file any further.
//
// # Formats
//
// Normal files hold one setting per line:
//
//	# - Connection Settings -
//	listen_addresses = 'localhost'	# what IP address(es) to listen on;
//	#port = 5432
//
// Patching them with
//
//	settings := []confpatch.Setting{
//		confpatch.KV("listen_addresses", "'*'"),
//		confpatch.KV("port", "5433"),
//	}
//
// yields
//
//	# - Connection Settings -
//	listen_addresses = '*'	# what IP address(es) to listen on;
//	port = 5433
//
// The port line was uncommented and set to the new value, the inline comment
// of the listen_addresses line was kept. Settings that are not found are
// appended as "key = value". The comment marker ("#") and the setter ("=") are
// configurable through Options.
//
// Records files hold whitespace separated columns, e.g. pg_hba.conf:
//
//	# TYPE  DATABASE        USER            ADDRESS                 METHOD
//	local   all             all                                     peer
//	host    all             all             127.0.0.1/32            md5
//	#local   replication     postgres                                peer
//
// A Records setting lists the leading columns to match followed by the value
// of the last column:
//
//	confpatch.Record("host", "all", "all", "127.0.0.1/32", "trust")
//	confpatch.Record("local", "replication", "postgres", "peer")
//
// Missing records are appended with the fields separated by tabs.
//
// An empty field stands for an absent column. It is skipped when matching, so
// the value replaces everything after the last non-empty field, including
// columns the line has in that place:
//
//	#local   replication     postgres                                peer
//
// patched with confpatch.Record("local", "replication", "", "peer") becomes
//
//	local   replication peer
//
// # Duplicates
//
// The first line in file order that represents a setting, commented or not,
// becomes its authoritative line. Every later active line for the same
// setting is commented out; later commented lines are left alone. Note that
// some programs use the last occurrence of a setting instead. The first-wins
// rule is kept deliberately so existing files are patched the way they always
// have been.
//
// # Files
//
// Patch works on bytes only. ModifyFile fetches a file through a Transport,
// patches it, keeps a backup copy next to it (path + ".bak" by default) and
// writes the result back in one replace:
//
//	t := transport.NewLocal(nil)
//	res, err := confpatch.ModifyFile(ctx, t, "/etc/postgresql/9.2/main/postgresql.conf", settings, confpatch.Options{
//		Privileged: true,
//	})
//
// Patch always returns a document that ends with a line break. A missing final
// line break alone does not count as a change: if no setting alters a line,
// Result.Changed is false and ModifyFile writes nothing, so the file keeps its
// unterminated last line.
//
// Every decision (found, replaced, left-commented, commented-duplicate,
// appended) is sent to Options.Reporter. The package itself never prints;
// without a reporter the events go to the debug log (GOPASS_DEBUG=true).
//
// # Errors
//
// Use errors.Is to tell the error categories apart:
//
//	if errors.Is(err, confpatch.ErrInvalidSettingShape) {
//		// a setting has the wrong number of elements, nothing was touched
//	}
//	if errors.Is(err, confpatch.ErrTransfer) {
//		// fetch, backup or write failed, see *confpatch.TransferError
//	}
//
// A setting that matches no line is not an error, it is appended.
//
// # Concurrency
//
// Patch is a pure function and safe for concurrent use. ModifyFile does not
// lock the target; runs against the same path must be serialized by the caller.
package confpatch
