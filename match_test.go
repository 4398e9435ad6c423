package confpatch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchNormal(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name      string
		line      string
		key       string
		found     bool
		commented bool
		prefix    string
		tail      string
		comment   string
	}{
		{
			name:   "active",
			line:   "port = 5432",
			key:    "port",
			found:  true,
			prefix: "port = ",
			tail:   "5432",
		},
		{
			name:      "commented",
			line:      "#port = 5432",
			key:       "port",
			found:     true,
			commented: true,
			prefix:    "port = ",
			tail:      "5432",
		},
		{
			name:      "several markers and blanks",
			line:      "  ## port=5432",
			key:       "port",
			found:     true,
			commented: true,
			prefix:    "  port=",
			tail:      "5432",
		},
		{
			name:   "indented active line keeps its prefix",
			line:   "\tport\t=\t5432",
			key:    "port",
			found:  true,
			prefix: "\tport\t=\t",
			tail:   "5432",
		},
		{
			name:    "trailing comment",
			line:    "listen_addresses = 'localhost'\t\t# what IP address(es) to listen on;",
			key:     "listen_addresses",
			found:   true,
			prefix:  "listen_addresses = ",
			tail:    "'localhost'\t\t# what IP address(es) to listen on;",
			comment: "\t\t# what IP address(es) to listen on;",
		},
		{
			name:    "tail starting with a marker",
			line:    "color = #ff0000",
			key:     "color",
			found:   true,
			prefix:  "color = ",
			tail:    "#ff0000",
			comment: "#ff0000",
		},
		{
			name:   "marker glued to the value",
			line:   "search_path = a#b",
			key:    "search_path",
			found:  true,
			prefix: "search_path = ",
			tail:   "a#b",
		},
		{
			name:  "longer key",
			line:  "port_number = 1",
			key:   "port",
			found: false,
		},
		{
			name:  "key suffix",
			line:  "export = 1",
			key:   "port",
			found: false,
		},
		{
			name:  "missing setter",
			line:  "port 5432",
			key:   "port",
			found: false,
		},
		{
			name:  "prose comment",
			line:  "# the port is set below",
			key:   "port",
			found: false,
		},
		{
			name:   "regexp characters in the key",
			line:   "a.b[0] = x",
			key:    "a.b[0]",
			found:  true,
			prefix: "a.b[0] = ",
			tail:   "x",
		},
		{
			name:  "regexp characters are literal",
			line:  "aXb[0] = x",
			key:   "a.b[0]",
			found: false,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			m, found, err := Match(tc.line, KV(tc.key, "new"), Options{})
			require.NoError(t, err)
			require.Equal(t, tc.found, found)
			if !found {
				return
			}
			assert.Equal(t, tc.commented, m.Commented)
			assert.Equal(t, tc.prefix, m.Prefix)
			assert.Equal(t, tc.tail, m.Tail)
			assert.Equal(t, tc.comment, m.Comment())
			assert.Equal(t, strings.TrimSuffix(tc.tail, tc.comment), m.OldValue())
		})
	}
}

func TestMatchNormalCustomChars(t *testing.T) {
	t.Parallel()

	opts := Options{CommentChar: ";", SetterChar: ":"}

	m, found, err := Match(";timeout: 30 ; seconds\n", KV("timeout", "60"), opts)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, m.Commented)
	assert.Equal(t, "timeout: ", m.Prefix)
	assert.Equal(t, "30", m.OldValue())
	assert.Equal(t, " ; seconds", m.Comment())

	_, found, err = Match("timeout = 30", KV("timeout", "60"), opts)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMatchRecords(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name      string
		line      string
		setting   Setting
		found     bool
		commented bool
		prefix    string
		tail      string
	}{
		{
			name:    "tabs",
			line:    "local\tall\tall\t\tpeer",
			setting: Record("local", "all", "all", "trust"),
			found:   true,
			prefix:  "local\tall\tall\t",
			tail:    "peer",
		},
		{
			name:    "aligned columns",
			line:    "host    all             all             127.0.0.1/32            md5",
			setting: Record("host", "all", "all", "127.0.0.1/32", "trust"),
			found:   true,
			prefix:  "host    all             all             127.0.0.1/32 ",
			tail:    "md5",
		},
		{
			name:      "commented",
			line:      "#local   replication     postgres                                peer",
			setting:   Record("local", "replication", "postgres", "trust"),
			found:     true,
			commented: true,
			prefix:    "local   replication     postgres ",
			tail:      "peer",
		},
		{
			name:    "empty fields are skipped",
			line:    "local   all             all                                     peer",
			setting: Record("local", "all", "", "all", "trust"),
			found:   true,
			prefix:  "local   all             all ",
			tail:    "peer",
		},
		{
			name:    "field order matters",
			line:    "local all postgres peer",
			setting: Record("local", "postgres", "all", "trust"),
			found:   false,
		},
		{
			name:    "fields need a separator",
			line:    "localall all peer",
			setting: Record("local", "all", "trust"),
			found:   false,
		},
		{
			name:    "no value column",
			line:    "local all",
			setting: Record("local", "all", "trust"),
			found:   false,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			m, found, err := Match(tc.line, tc.setting, Options{Format: Records})
			require.NoError(t, err)
			require.Equal(t, tc.found, found)
			if !found {
				return
			}
			assert.Equal(t, tc.commented, m.Commented)
			assert.Equal(t, tc.prefix, m.Prefix)
			assert.Equal(t, tc.tail, m.Tail)
		})
	}
}

func TestMatchInvalidSetting(t *testing.T) {
	t.Parallel()

	_, _, err := Match("port = 1", Setting{"port"}, Options{})
	require.ErrorIs(t, err, ErrInvalidSettingShape)

	_, _, err = Match("port = 1", KV("port", "1"), Options{Format: Format(42)})
	require.ErrorIs(t, err, ErrInvalidFormat)
}

func TestMatchAdversarialKey(t *testing.T) {
	t.Parallel()

	key := strings.Repeat("(a+)+", 200) + "$"
	line := strings.Repeat("a", 10000) + "!"

	_, found, err := Match(line, KV(key, "x"), Options{})
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = Match(key+" = 1", KV(key, "x"), Options{})
	require.NoError(t, err)
	assert.True(t, found)
}

func TestSplitTrailingComment(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		in      string
		value   string
		comment string
	}{
		{in: "", value: "", comment: ""},
		{in: "on", value: "on", comment: ""},
		{in: "on # really", value: "on", comment: " # really"},
		{in: "on\t#", value: "on", comment: "\t#"},
		{in: "# only", value: "", comment: "# only"},
		{in: "a#b # c", value: "a#b", comment: " # c"},
		{in: "'x y'  #  z  ", value: "'x y'", comment: "  #  z  "},
	} {
		value, comment := splitTrailingComment(tc.in, "#")
		assert.Equal(t, tc.value, value, tc.in)
		assert.Equal(t, tc.comment, comment, tc.in)
	}
}
