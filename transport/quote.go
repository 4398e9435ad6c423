package transport

import (
	"path"
	"strings"

	"github.com/google/uuid"
)

// shellQuote quotes s for a POSIX shell.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.IndexFunc(s, needsQuoting) < 0 {
		return s
	}

	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func needsQuoting(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	case strings.ContainsRune("-_./:=@%+,", r):
		return false
	default:
		return true
	}
}

// shellJoin quotes every argument and joins them with blanks.
func shellJoin(args ...string) string {
	quoted := make([]string, 0, len(args))
	for _, a := range args {
		quoted = append(quoted, shellQuote(a))
	}

	return strings.Join(quoted, " ")
}

// stagingPath returns a unique sibling of p. Renaming within one directory
// stays on one file system and is atomic.
func stagingPath(p string) string {
	dir, base := path.Split(p)

	return dir + "." + base + ".confpatch-" + uuid.NewString()
}

// commitScript replaces dst with the content of src. The staging file is a
// copy of dst so it keeps the owner and mode of the original; only its content
// is swapped before the rename.
func commitScript(src, dst string) string {
	stage := stagingPath(dst)

	return shellJoin("cp", "-p", dst, stage) +
		" && cat " + shellQuote(src) + " > " + shellQuote(stage) +
		" && " + shellJoin("mv", "-f", stage, dst) +
		" || { rm -f " + shellQuote(stage) + "; exit 1; }"
}
