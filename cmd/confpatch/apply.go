package main

import (
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/yeti/confpatch/internal/plan"
)

func newApplyCmd(a *app) *cobra.Command {
	var only []string

	cmd := &cobra.Command{
		Use:   "apply PLAN",
		Short: "Apply a plan file to all its targets",
		Long: `Apply a plan file to all its targets.

A plan is a TOML or YAML file listing config files and the settings they
must contain. Targets are patched in file order. A failing target does not
stop the others; the command fails if any target failed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := plan.Load(args[0])
			if err != nil {
				return err
			}
			p, err = p.Filter(only...)
			if err != nil {
				return err
			}

			t, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				_ = t.Close()
			}()

			var errs []error
			for _, tg := range p.Targets {
				if err := cmd.Context().Err(); err != nil {
					errs = append(errs, err)

					break
				}
				if err := a.patch(cmd.Context(), t, tg.Name, tg.Path, tg.Settings, tg.Options()); err != nil {
					log.Error().Err(err).Str("target", tg.Name).Msg("Target failed")
					errs = append(errs, err)
				}
			}

			if err := a.finish(); err != nil {
				errs = append(errs, err)
			}

			return errors.Join(errs...)
		},
	}

	cmd.Flags().StringSliceVar(&only, "only", nil, "Only apply targets whose name matches one of these glob patterns")

	return cmd
}
