package scp

import (
	"fmt"
	"io/fs"
	"strconv"
)

// FormatOctalPerms folds the nine POSIX rwx bits into a 4-digit octal
// permission string.
func FormatOctalPerms(perm fs.FileMode) string {
	return fmt.Sprintf("%04o", uint32(perm.Perm()))
}

// ParseOctalPerms parses an octal permission string into the nine rwx bits.
// Set-uid, set-gid and sticky bits are ignored.
func ParseOctalPerms(s string) (fs.FileMode, error) {
	n, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, NewError(ErrMalformedHeader, fmt.Sprintf("bad mode %q", s))
	}
	return fs.FileMode(n) & fs.ModePerm, nil
}
