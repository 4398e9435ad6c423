// Package transport provides the confpatch.Transport implementations used to
// fetch, back up and replace config files.
//
//   - FS works on any afero.Fs, e.g. the OS file system or an in-memory one.
//   - Local works on the local machine and elevates through a sudo Runner.
//   - SSH works on a remote host over SFTP and elevates through a remote sudo.
//
// Every Write stages the new content next to the target and renames it into
// place, so a reader sees either the old or the new file.
package transport
