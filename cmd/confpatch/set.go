package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/shlex"
	"github.com/spf13/cobra"
	"github.com/yeti/confpatch"
)

type setFlags struct {
	format      string
	commentChar string
	setterChar  string
	sudo        bool
	noBackup    bool
	suffix      string
}

func newSetCmd(a *app) *cobra.Command {
	var f setFlags

	cmd := &cobra.Command{
		Use:   "set PATH SETTING...",
		Short: "Set values in one config file",
		Long: `Set values in one config file.

Normal settings are written as KEY=VALUE. Records settings are a quoted list of
fields, the last one being the value:

  confpatch set /etc/postgresql/16/main/postgresql.conf port=5433 "listen_addresses='*'"
  confpatch set --format records /etc/postgresql/16/main/pg_hba.conf "host all all 10.0.0.0/8 md5"`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := confpatch.ParseFormat(f.format)
			if err != nil {
				return err
			}

			settings, err := parseSettings(args[1:], format, f.setterChar)
			if err != nil {
				return err
			}

			opts := confpatch.Options{
				Format:       format,
				CommentChar:  f.commentChar,
				SetterChar:   f.setterChar,
				Privileged:   f.sudo,
				NoBackup:     f.noBackup,
				BackupSuffix: f.suffix,
			}
			if err := confpatch.Validate(settings, format); err != nil {
				return err
			}

			t, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				_ = t.Close()
			}()

			if err := a.patch(cmd.Context(), t, filepath.Base(args[0]), args[0], settings, opts); err != nil {
				return err
			}

			return a.finish()
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.format, "format", "normal", "File format: normal or records")
	flags.StringVar(&f.commentChar, "comment-char", "", "Comment marker (default \"#\")")
	flags.StringVar(&f.setterChar, "setter-char", "", "Key/value separator of normal files (default \"=\")")
	flags.BoolVar(&f.sudo, "sudo", false, "Read and write the file with elevated privileges")
	flags.BoolVar(&f.noBackup, "no-backup", false, "Do not copy the file before writing it")
	flags.StringVar(&f.suffix, "backup-suffix", "", "Suffix of the backup copy (default from the configuration)")

	return cmd
}

// parseSettings turns command line arguments into settings.
func parseSettings(args []string, format confpatch.Format, setter string) ([]confpatch.Setting, error) {
	if setter == "" {
		setter = "="
	}

	settings := make([]confpatch.Setting, 0, len(args))
	for _, arg := range args {
		if format == confpatch.Records {
			fields, err := shlex.Split(arg)
			if err != nil {
				return nil, fmt.Errorf("failed to parse record %q: %w", arg, err)
			}
			settings = append(settings, confpatch.Record(fields...))

			continue
		}

		key, value, found := strings.Cut(arg, setter)
		if !found {
			return nil, fmt.Errorf("%w: %q is not KEY%sVALUE", confpatch.ErrInvalidSettingShape, arg, setter)
		}
		settings = append(settings, confpatch.KV(strings.TrimSpace(key), strings.TrimSpace(value)))
	}

	return settings, nil
}
