// Package plan reads plan files. A plan lists the config files to patch on a
// host together with the settings each of them must hold.
//
//	[defaults]
//	privileged = true
//
//	[[target]]
//	name = "postgresql"
//	path = "/etc/postgresql/9.2/main/postgresql.conf"
//	settings = [["port", "5432"], ["wal_level", "hot_standby"]]
//
//	[[target]]
//	name = "pg_hba"
//	path = "/etc/postgresql/9.2/main/pg_hba.conf"
//	format = "records"
//	backup = false
//	settings = [["host", "app", "app", "10.0.0.5/32", "md5"]]
//
// The same structure is accepted as YAML.
package plan

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/gobwas/glob"
	"github.com/gopasspw/gopass/pkg/set"
	"github.com/yeti/confpatch"
	"gopkg.in/yaml.v3"
)

// ErrInvalidPlan indicates a plan file that can not be executed.
var ErrInvalidPlan = errors.New("invalid plan")

// Target is one config file of a plan.
type Target struct {
	Name         string
	Path         string
	Format       confpatch.Format
	CommentChar  string
	SetterChar   string
	Privileged   bool
	Backup       bool
	BackupSuffix string
	Settings     []confpatch.Setting
}

// Options returns the patch options of the target.
func (t Target) Options() confpatch.Options {
	return confpatch.Options{
		Format:       t.Format,
		CommentChar:  t.CommentChar,
		SetterChar:   t.SetterChar,
		Privileged:   t.Privileged,
		NoBackup:     !t.Backup,
		BackupSuffix: t.BackupSuffix,
	}
}

// Plan is a validated list of targets in file order.
type Plan struct {
	Targets []Target
}

// Names returns the sorted target names.
func (p *Plan) Names() []string {
	names := make([]string, 0, len(p.Targets))
	for _, t := range p.Targets {
		names = append(names, t.Name)
	}

	return set.Sorted(names)
}

// Filter returns the targets whose name matches at least one of the glob
// patterns, in plan order. Without patterns all targets are returned. A
// pattern that matches no target is an error.
func (p *Plan) Filter(patterns ...string) (*Plan, error) {
	if len(patterns) == 0 {
		return p, nil
	}

	globs := make([]glob.Glob, 0, len(patterns))
	for _, pat := range patterns {
		g, err := glob.Compile(pat)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pat, err)
		}
		globs = append(globs, g)
	}

	used := make([]bool, len(globs))
	out := &Plan{}
	for _, t := range p.Targets {
		matched := false
		for i, g := range globs {
			if g.Match(t.Name) {
				used[i] = true
				matched = true
			}
		}
		if matched {
			out.Targets = append(out.Targets, t)
		}
	}

	var unused []string
	for i, u := range used {
		if !u {
			unused = append(unused, patterns[i])
		}
	}
	if len(unused) > 0 {
		return nil, fmt.Errorf("no target matches %s (targets: %s)", strings.Join(set.Sorted(unused), ", "), strings.Join(p.Names(), ", "))
	}

	return out, nil
}

type defaultsDTO struct {
	Format       *string `toml:"format" yaml:"format"`
	CommentChar  *string `toml:"comment-char" yaml:"comment-char"`
	SetterChar   *string `toml:"setter-char" yaml:"setter-char"`
	Privileged   *bool   `toml:"privileged" yaml:"privileged"`
	Backup       *bool   `toml:"backup" yaml:"backup"`
	BackupSuffix *string `toml:"backup-suffix" yaml:"backup-suffix"`
}

type targetDTO struct {
	Name     *string    `toml:"name" yaml:"name"`
	Path     *string    `toml:"path" yaml:"path"`
	Settings [][]string `toml:"settings" yaml:"settings"`

	Format       *string `toml:"format" yaml:"format"`
	CommentChar  *string `toml:"comment-char" yaml:"comment-char"`
	SetterChar   *string `toml:"setter-char" yaml:"setter-char"`
	Privileged   *bool   `toml:"privileged" yaml:"privileged"`
	Backup       *bool   `toml:"backup" yaml:"backup"`
	BackupSuffix *string `toml:"backup-suffix" yaml:"backup-suffix"`
}

func (td targetDTO) overrides() defaultsDTO {
	return defaultsDTO{
		Format:       td.Format,
		CommentChar:  td.CommentChar,
		SetterChar:   td.SetterChar,
		Privileged:   td.Privileged,
		Backup:       td.Backup,
		BackupSuffix: td.BackupSuffix,
	}
}

type planDTO struct {
	Defaults defaultsDTO `toml:"defaults" yaml:"defaults"`
	Targets  []targetDTO `toml:"target" yaml:"target"`
}

// apply sets the values of dto that are not nil.
func (t *Target) apply(dto defaultsDTO) error {
	if dto.Format != nil {
		f, err := confpatch.ParseFormat(*dto.Format)
		if err != nil {
			return err
		}
		t.Format = f
	}
	if dto.CommentChar != nil {
		t.CommentChar = *dto.CommentChar
	}
	if dto.SetterChar != nil {
		t.SetterChar = *dto.SetterChar
	}
	if dto.Privileged != nil {
		t.Privileged = *dto.Privileged
	}
	if dto.Backup != nil {
		t.Backup = *dto.Backup
	}
	if dto.BackupSuffix != nil {
		t.BackupSuffix = *dto.BackupSuffix
	}

	return nil
}

// Load reads and validates the plan file at p. The format follows the file
// extension: .toml, .yaml or .yml.
func Load(p string) (*Plan, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan: %w", err)
	}

	pl, err := Parse(data, filepath.Ext(p))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}

	return pl, nil
}

// Parse decodes and validates a plan. ext selects the syntax (".toml",
// ".yaml" or ".yml").
func Parse(data []byte, ext string) (*Plan, error) {
	var dto planDTO

	switch strings.ToLower(ext) {
	case ".toml":
		md, err := toml.Decode(string(data), &dto)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("%w: unknown key %s", ErrInvalidPlan, undecoded[0])
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&dto); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported plan format %q", ErrInvalidPlan, ext)
	}

	return dto.resolve()
}

func (dto planDTO) resolve() (*Plan, error) {
	if len(dto.Targets) == 0 {
		return nil, fmt.Errorf("%w: no targets", ErrInvalidPlan)
	}

	pl := &Plan{Targets: make([]Target, 0, len(dto.Targets))}
	seen := make(map[string]struct{}, len(dto.Targets))

	for i, td := range dto.Targets {
		t := Target{Backup: true}
		if err := t.apply(dto.Defaults); err != nil {
			return nil, fmt.Errorf("%w: defaults: %w", ErrInvalidPlan, err)
		}
		if err := t.apply(td.overrides()); err != nil {
			return nil, fmt.Errorf("%w: target #%d: %w", ErrInvalidPlan, i, err)
		}

		if td.Path == nil || *td.Path == "" {
			return nil, fmt.Errorf("%w: target #%d has no path", ErrInvalidPlan, i)
		}
		t.Path = *td.Path
		if !path.IsAbs(t.Path) {
			return nil, fmt.Errorf("%w: target #%d: path %q is not absolute", ErrInvalidPlan, i, t.Path)
		}

		t.Name = path.Base(t.Path)
		if td.Name != nil && *td.Name != "" {
			t.Name = *td.Name
		}
		if _, dup := seen[t.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate target name %q", ErrInvalidPlan, t.Name)
		}
		seen[t.Name] = struct{}{}

		for _, s := range td.Settings {
			t.Settings = append(t.Settings, confpatch.Setting(s))
		}
		if err := confpatch.Validate(t.Settings, t.Format); err != nil {
			return nil, fmt.Errorf("%w: target %q: %w", ErrInvalidPlan, t.Name, err)
		}

		pl.Targets = append(pl.Targets, t)
	}

	return pl, nil
}
