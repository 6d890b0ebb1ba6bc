package scp

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
)

// toNative translates a peer-supplied slash-separated name to the host
// separator.
func toNative(name string) string {
	return strings.ReplaceAll(name, "/", string(filepath.Separator))
}

// toWire translates a host path back to the slash form used on the wire.
func toWire(name string) string {
	return strings.ReplaceAll(name, string(filepath.Separator), "/")
}

// resolveLocalPath joins an optional base directory and a subpath using the
// host separator. The FileSystem stays the authority on rooting and symlink
// policy.
func resolveLocalPath(basedir, sub string) string {
	sub = toNative(sub)
	if basedir == "" {
		return sub
	}
	return filepath.Join(toNative(basedir), sub)
}

// checkExists reports whether name exists. An indeterminate answer (stat
// failed for a reason other than absence) is an error.
func checkExists(fsys FileSystem, name string) (fs.FileInfo, bool, error) {
	fi, err := fsys.Stat(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, NewPathError(ErrAccessIndeterminate, name, "existence cannot be determined: "+err.Error())
	}
	return fi, true, nil
}

// arbitrate resolves where an incoming record with leaf name lands relative
// to the target path. An existing directory target receives the leaf inside
// it; an existing regular file target is overwritten in place (file records
// only); a missing target with an existing parent directory names a fresh
// entry.
func arbitrate(fsys FileSystem, target, name string, allowOverwrite bool) (string, error) {
	fi, exists, err := checkExists(fsys, target)
	if err != nil {
		return "", err
	}
	switch {
	case exists && fi.IsDir():
		return filepath.Join(target, toNative(name)), nil
	case exists && fi.Mode().IsRegular() && allowOverwrite:
		return target, nil
	case !exists:
		parent := filepath.Dir(target)
		pfi, pexists, err := checkExists(fsys, parent)
		if err != nil {
			return "", err
		}
		if pexists && pfi.IsDir() {
			return target, nil
		}
	}
	return "", NewPathError(ErrCannotWrite, target, "cannot write")
}

// splitGlob splits a native pattern at the last separator preceding the
// first '*'. The returned basedir may be empty.
func splitGlob(pattern string) (basedir, leaf string) {
	idx := strings.IndexByte(pattern, '*')
	if idx < 0 {
		return "", pattern
	}
	sep := strings.LastIndex(pattern[:idx], string(filepath.Separator))
	if sep < 0 {
		return "", pattern
	}
	return pattern[:sep], pattern[sep+1:]
}

// expandGlob scans basedir for entries matching the leaf pattern, in the
// order provided by the filesystem enumerator.
func expandGlob(fsys FileSystem, basedir, leaf string) ([]string, error) {
	scanDir := basedir
	if scanDir == "" {
		scanDir = "."
	}
	entries, err := fsys.ReadDir(scanDir)
	if err != nil {
		return nil, wrapFS(err, scanDir)
	}
	var matched []string
	for _, ent := range entries {
		ok, err := filepath.Match(leaf, ent.Name())
		if err != nil {
			return nil, NewPathError(ErrProtocol, leaf, "bad glob pattern")
		}
		if ok {
			matched = append(matched, ent.Name())
		}
	}
	return matched, nil
}
