package scp

import (
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"
)

// RecordType discriminates the newline-terminated control headers.
type RecordType byte

const (
	// FileRecord announces a regular file: C<mode> <size> <name>
	FileRecord RecordType = 'C'

	// DirRecord opens a directory scope: D<mode> 0 <name>
	DirRecord RecordType = 'D'

	// EndRecord closes the most recent unmatched directory scope: E
	EndRecord RecordType = 'E'

	// TimeRecord buffers times for the next file or directory record:
	// T<mtime> 0 <atime> 0
	TimeRecord RecordType = 'T'
)

// Record is a parsed C, D or E control header.
type Record struct {
	Type RecordType

	// Perm holds the nine rwx bits carried in the 4-digit octal mode field.
	Perm fs.FileMode

	// Size is the declared payload byte count. Directory records must
	// declare 0. A negative size is preserved for the caller to log.
	Size int64

	// Name is the leaf name. The wire form uses forward slashes.
	Name string
}

// ParseRecord parses a header line with the discriminator included and the
// trailing LF stripped, e.g. "C0644 11 out.txt".
func ParseRecord(line string) (Record, error) {
	if line == "" {
		return Record{}, NewError(ErrMalformedHeader, "empty header")
	}
	t := RecordType(line[0])
	switch t {
	case EndRecord:
		return Record{Type: EndRecord}, nil
	case FileRecord, DirRecord:
	default:
		return Record{}, NewError(ErrMalformedHeader, fmt.Sprintf("unexpected record %q", line))
	}

	// mode occupies columns 1-4, size starts at column 6 and runs to the
	// next space, the remainder is the name
	if len(line) < 7 || line[5] != ' ' {
		return Record{}, NewError(ErrMalformedHeader, fmt.Sprintf("short header %q", line))
	}
	perm, err := ParseOctalPerms(line[1:5])
	if err != nil {
		return Record{}, err
	}
	rest := line[6:]
	sp := strings.IndexByte(rest, ' ')
	if sp < 0 {
		return Record{}, NewError(ErrMalformedHeader, fmt.Sprintf("missing name in header %q", line))
	}
	size, err := strconv.ParseInt(rest[:sp], 10, 64)
	if err != nil {
		return Record{}, NewError(ErrMalformedHeader, fmt.Sprintf("bad size in header %q", line))
	}
	name := rest[sp+1:]
	if name == "" {
		return Record{}, NewError(ErrMalformedHeader, fmt.Sprintf("missing name in header %q", line))
	}
	if t == DirRecord && size != 0 {
		return Record{}, NewError(ErrMalformedHeader, fmt.Sprintf("expected 0 length for directory but got %d", size))
	}
	return Record{Type: t, Perm: perm, Size: size, Name: name}, nil
}

// String renders the record in wire form, without the trailing LF.
func (r Record) String() string {
	switch r.Type {
	case FileRecord:
		return fmt.Sprintf("C%s %d %s", FormatOctalPerms(r.Perm), r.Size, r.Name)
	case DirRecord:
		return fmt.Sprintf("D%s 0 %s", FormatOctalPerms(r.Perm), r.Name)
	case EndRecord:
		return "E"
	}
	return ""
}

// Times is a modification/access time pair buffered between a T record and
// the file or directory record it attaches to.
type Times struct {
	Modified time.Time
	Accessed time.Time
}

// ParseTimeRecord parses "T<mtime> 0 <atime> 0" with the discriminator
// included. The sub-second fields are ignored.
func ParseTimeRecord(line string) (Times, error) {
	if line == "" || line[0] != 'T' {
		return Times{}, NewError(ErrMalformedHeader, fmt.Sprintf("expected a T record but got %q", line))
	}
	fields := strings.Split(line[1:], " ")
	if len(fields) < 3 {
		return Times{}, NewError(ErrMalformedHeader, fmt.Sprintf("short time record %q", line))
	}
	mtime, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Times{}, NewError(ErrMalformedHeader, fmt.Sprintf("bad mtime in %q", line))
	}
	atime, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return Times{}, NewError(ErrMalformedHeader, fmt.Sprintf("bad atime in %q", line))
	}
	return Times{Modified: time.Unix(mtime, 0), Accessed: time.Unix(atime, 0)}, nil
}

// FormatTimeRecord renders a T record in wire form, without the trailing LF.
// The sub-second fields are always emitted as 0.
func FormatTimeRecord(t Times) string {
	return fmt.Sprintf("T%d 0 %d 0", t.Modified.Unix(), t.Accessed.Unix())
}
