package confpatch

import (
	"fmt"
	"strings"
)

// Setting is one desired line of a config file.
//
// For Normal files a Setting is the pair (key, value). For Records files it is
// a sequence of at least two strings: the leading elements are positional match
// fields and the last one is the value to install.
//
//	confpatch.KV("listen_addresses", "'*'")
//	confpatch.Record("host", "all", "all", "127.0.0.1/32", "trust")
type Setting []string

// KV builds a Normal setting.
func KV(key, value string) Setting {
	return Setting{key, value}
}

// Record builds a Records setting from its match fields followed by the value.
func Record(fields ...string) Setting {
	return Setting(fields)
}

// Value returns the value to install, i.e. the last element.
func (s Setting) Value() string {
	if len(s) == 0 {
		return ""
	}

	return s[len(s)-1]
}

// Key returns the match part of the setting: the key of a Normal setting or the
// match fields of a Records setting.
func (s Setting) Key() []string {
	if len(s) == 0 {
		return nil
	}

	return s[:len(s)-1]
}

func (s Setting) String() string {
	return "(" + strings.Join(s, ", ") + ")"
}

// id identifies the setting in the applied set. NUL can not appear in a line
// of a text config file, so it separates the elements unambiguously.
func (s Setting) id() string {
	return strings.Join(s, "\x00")
}

func (s Setting) line(o Options) string {
	if o.Format == Records {
		return strings.Join(append(matchFields(s.Key()), s.Value()), "\t")
	}

	return s[0] + " " + o.SetterChar + " " + s[1]
}

func validateSetting(s Setting, f Format) error {
	switch f {
	case Normal:
		if len(s) != 2 {
			return fmt.Errorf("%w: %s has %d elements, a %s setting needs a key and a value", ErrInvalidSettingShape, s, len(s), f)
		}
		if strings.TrimSpace(s[0]) == "" {
			return fmt.Errorf("%w: %s has an empty key", ErrInvalidSettingShape, s)
		}
	case Records:
		if len(s) < 2 {
			return fmt.Errorf("%w: %s has %d elements, a %s setting needs at least one field and a value", ErrInvalidSettingShape, s, len(s), f)
		}
		if len(matchFields(s.Key())) == 0 {
			return fmt.Errorf("%w: %s has no non-empty match field", ErrInvalidSettingShape, s)
		}
	default:
		return fmt.Errorf("%w: %s", ErrInvalidFormat, f)
	}

	for _, e := range s {
		if strings.ContainsAny(e, "\r\n") {
			return fmt.Errorf("%w: %s contains a line break", ErrInvalidSettingShape, s)
		}
	}

	return nil
}

// validateSettings checks every setting before anything is fetched or written.
// Repeated identical settings are collapsed to their first occurrence so a
// request can never demote its own authoritative line.
func validateSettings(settings []Setting, f Format) ([]Setting, error) {
	out := make([]Setting, 0, len(settings))
	seen := make(map[string]struct{}, len(settings))

	for i, s := range settings {
		if err := validateSetting(s, f); err != nil {
			return nil, fmt.Errorf("setting #%d: %w", i, err)
		}
		if _, dup := seen[s.id()]; dup {
			continue
		}
		seen[s.id()] = struct{}{}
		out = append(out, s)
	}

	return out, nil
}

// matchFields drops empty fields. They stand for an absent column.
func matchFields(fields []string) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f == "" {
			continue
		}
		out = append(out, f)
	}

	return out
}

// Validate checks the shape of every setting for the given format without
// touching any file.
func Validate(settings []Setting, f Format) error {
	_, err := validateSettings(settings, f)

	return err
}
