package scp

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runSource drives a sender against a peer that acknowledges everything and
// returns the bytes the sender put on the wire. The protocol is strictly
// half-duplex, so a pre-buffered run of OK bytes stands in for the peer.
func runSource(t *testing.T, config *SenderConfig, paths []string) ([]byte, error) {
	t.Helper()
	in := bytes.NewReader(make([]byte, 64))
	var out bytes.Buffer
	s := NewSender(in, &out, config)
	err := s.Send(paths)
	return out.Bytes(), err
}

func TestSendSingleFile(t *testing.T) {
	tmp := t.TempDir()
	file := filepath.Join(tmp, "out.txt")
	require.NoError(t, os.WriteFile(file, []byte("0123456789\n"), 0o644))

	out, err := runSource(t, nil, []string{file})
	require.NoError(t, err)
	assert.Equal(t, "C0644 11 out.txt\n0123456789\n\x00", string(out))
}

func TestSendZeroLengthFile(t *testing.T) {
	tmp := t.TempDir()
	file := filepath.Join(tmp, "empty.txt")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	out, err := runSource(t, nil, []string{file})
	require.NoError(t, err)
	assert.Equal(t, "C0644 0 empty.txt\n\x00", string(out))
}

func TestSendDefaultModeWithoutPreserve(t *testing.T) {
	tmp := t.TempDir()
	file := filepath.Join(tmp, "locked.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	out, err := runSource(t, nil, []string{file})
	require.NoError(t, err)
	// the announced mode is the 0644 constant, not the source's bits
	assert.Equal(t, "C0644 1 locked.txt\nx\x00", string(out))
}

func TestSendRecursiveDirectory(t *testing.T) {
	tmp := t.TempDir()
	dir := filepath.Join(tmp, "scp")
	require.NoError(t, os.Mkdir(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "out.txt"), []byte("0123456789\n"), 0o644))

	out, err := runSource(t, &SenderConfig{Recursive: true}, []string{dir})
	require.NoError(t, err)
	assert.Equal(t, "D0755 0 scp\nC0644 11 out.txt\n0123456789\n\x00E\n", string(out))
}

func TestSendNestedDirectories(t *testing.T) {
	tmp := t.TempDir()
	dir := filepath.Join(tmp, "top")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "inner"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "inner", "b.txt"), []byte("hi"), 0o644))

	out, err := runSource(t, &SenderConfig{Recursive: true}, []string{dir})
	require.NoError(t, err)
	assert.Equal(t, "D0755 0 top\nD0755 0 inner\nC0644 2 b.txt\nhi\x00E\nE\n", string(out))
}

func TestSendDirectoryWithoutRecursiveFails(t *testing.T) {
	tmp := t.TempDir()
	dir := filepath.Join(tmp, "sub")
	require.NoError(t, os.Mkdir(dir, 0o755))

	out, err := runSource(t, nil, []string{dir})
	require.Error(t, err)
	typ, ok := TypeOf(err)
	require.True(t, ok)
	assert.Equal(t, ErrIsADirectory, typ)
	// the failure is also delivered in-band
	require.NotEmpty(t, out)
	assert.Equal(t, byte(StatusError), out[0])
}

func TestSendMissingPath(t *testing.T) {
	tmp := t.TempDir()
	_, err := runSource(t, nil, []string{filepath.Join(tmp, "nope.txt")})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestSendGlob(t *testing.T) {
	tmp := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "out1.txt"), []byte("one\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "out2.txt"), []byte("two\n"), 0o644))

	out, err := runSource(t, nil, []string{filepath.Join(tmp, "*")})
	require.NoError(t, err)
	assert.Equal(t, "C0644 4 out1.txt\none\n\x00C0644 4 out2.txt\ntwo\n\x00", string(out))
}

func TestSendGlobWarnsAboutDirectories(t *testing.T) {
	tmp := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(tmp, "sub"), 0o755))

	out, err := runSource(t, nil, []string{filepath.Join(tmp, "*")})
	require.NoError(t, err)
	assert.Equal(t, "C0644 1 a.txt\na\x00\x01sub not a regular file\n", string(out))
}

func TestSendGlobRecursesIntoDirectories(t *testing.T) {
	tmp := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(tmp, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "sub", "a.txt"), []byte("a"), 0o644))

	out, err := runSource(t, &SenderConfig{Recursive: true}, []string{filepath.Join(tmp, "*")})
	require.NoError(t, err)
	assert.Equal(t, "D0755 0 sub\nC0644 1 a.txt\na\x00E\n", string(out))
}

func TestSendPreserveAnnouncesTimesAndMode(t *testing.T) {
	tmp := t.TempDir()
	file := filepath.Join(tmp, "a.txt")
	require.NoError(t, os.WriteFile(file, []byte("hi"), 0o644))
	stamp := time.Unix(1500000000, 0)
	require.NoError(t, os.Chtimes(file, stamp, stamp))
	require.NoError(t, os.Chmod(file, 0o640))

	out, err := runSource(t, &SenderConfig{Preserve: true}, []string{file})
	require.NoError(t, err)
	assert.Equal(t, "T1500000000 0 1500000000 0\nC0640 2 a.txt\nhi\x00", string(out))
}

func TestSendPeerRejection(t *testing.T) {
	tmp := t.TempDir()
	file := filepath.Join(tmp, "a.txt")
	require.NoError(t, os.WriteFile(file, []byte("hi"), 0o644))

	in := bytes.NewReader(append([]byte{StatusError}, []byte("denied\n")...))
	var out bytes.Buffer
	s := NewSender(in, &out, nil)
	err := s.Send([]string{file})
	require.Error(t, err)
	assert.True(t, IsPeerRejected(err))
	assert.Contains(t, err.Error(), "denied")
	// a peer-side failure is not echoed back in-band
	assert.Zero(t, out.Len())
}

func TestSendPeerWarningContinues(t *testing.T) {
	tmp := t.TempDir()
	file := filepath.Join(tmp, "a.txt")
	require.NoError(t, os.WriteFile(file, []byte("hi"), 0o644))

	var in bytes.Buffer
	in.WriteByte(StatusWarning)
	in.WriteString("just a heads up\n")
	in.Write(make([]byte, 8))

	var out bytes.Buffer
	s := NewSender(&in, &out, nil)
	require.NoError(t, s.Send([]string{file}))
	assert.Equal(t, "C0644 2 a.txt\nhi\x00", out.String())
}

func TestSendEventsBracketPayload(t *testing.T) {
	tmp := t.TempDir()
	dir := filepath.Join(tmp, "scp")
	require.NoError(t, os.Mkdir(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "out.txt"), []byte("x"), 0o644))

	var trace []string
	events := &Events{
		StartFolder: func(op Op, path string, perm fs.FileMode) {
			trace = append(trace, fmt.Sprintf("start-folder %s %s", op, filepath.Base(path)))
		},
		EndFolder: func(op Op, path string, perm fs.FileMode, err error) {
			trace = append(trace, fmt.Sprintf("end-folder %s %s", op, filepath.Base(path)))
		},
		StartFile: func(op Op, path string, size int64, perm fs.FileMode) {
			trace = append(trace, fmt.Sprintf("start-file %s %s", op, filepath.Base(path)))
		},
		EndFile: func(op Op, path string, size int64, perm fs.FileMode, err error) {
			trace = append(trace, fmt.Sprintf("end-file %s %s", op, filepath.Base(path)))
		},
	}

	_, err := runSource(t, &SenderConfig{Recursive: true, Events: events}, []string{dir})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"start-folder send scp",
		"start-file send out.txt",
		"end-file send out.txt",
		"end-folder send scp",
	}, trace)
}
