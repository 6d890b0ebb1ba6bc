package scp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecord(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Record
		wantErr bool
	}{
		{
			name: "regular file",
			line: "C0644 11 out.txt",
			want: Record{Type: FileRecord, Perm: 0o644, Size: 11, Name: "out.txt"},
		},
		{
			name: "file name with spaces",
			line: "C0644 5 my file.txt",
			want: Record{Type: FileRecord, Perm: 0o644, Size: 5, Name: "my file.txt"},
		},
		{
			name: "setuid bits dropped",
			line: "C7777 0 x",
			want: Record{Type: FileRecord, Perm: 0o777, Name: "x"},
		},
		{
			name: "negative size is preserved for the caller",
			line: "C0644 -3 odd",
			want: Record{Type: FileRecord, Perm: 0o644, Size: -3, Name: "odd"},
		},
		{
			name: "directory",
			line: "D0755 0 sub",
			want: Record{Type: DirRecord, Perm: 0o755, Name: "sub"},
		},
		{
			name: "end of directory",
			line: "E",
			want: Record{Type: EndRecord},
		},
		{
			name:    "directory with nonzero size",
			line:    "D0755 5 sub",
			wantErr: true,
		},
		{
			name:    "empty header",
			line:    "",
			wantErr: true,
		},
		{
			name:    "unknown discriminator",
			line:    "X0644 1 x",
			wantErr: true,
		},
		{
			name:    "bad mode digits",
			line:    "Cabcd 1 x",
			wantErr: true,
		},
		{
			name:    "bad size",
			line:    "C0644 1x y",
			wantErr: true,
		},
		{
			name:    "missing name",
			line:    "C0644 11",
			wantErr: true,
		},
		{
			name:    "missing size separator",
			line:    "C0644",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRecord(tt.line)
			if tt.wantErr {
				require.Error(t, err)
				typ, ok := TypeOf(err)
				require.True(t, ok)
				assert.Equal(t, ErrMalformedHeader, typ)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecordString(t *testing.T) {
	assert.Equal(t, "C0644 11 out.txt", Record{Type: FileRecord, Perm: 0o644, Size: 11, Name: "out.txt"}.String())
	assert.Equal(t, "D0755 0 sub", Record{Type: DirRecord, Perm: 0o755, Name: "sub"}.String())
	assert.Equal(t, "E", Record{Type: EndRecord}.String())
}

func TestParseTimeRecord(t *testing.T) {
	got, err := ParseTimeRecord("T1500000000 0 1400000000 0")
	require.NoError(t, err)
	assert.Equal(t, int64(1500000000), got.Modified.Unix())
	assert.Equal(t, int64(1400000000), got.Accessed.Unix())

	_, err = ParseTimeRecord("Tx 0 1 0")
	require.Error(t, err)
	_, err = ParseTimeRecord("T1 0")
	require.Error(t, err)
	_, err = ParseTimeRecord("C0644 1 x")
	require.Error(t, err)
}

func TestFormatTimeRecord(t *testing.T) {
	rec := FormatTimeRecord(Times{
		Modified: time.Unix(1500000000, 999999999),
		Accessed: time.Unix(1400000000, 5),
	})
	// sub-second components are always emitted as 0
	assert.Equal(t, "T1500000000 0 1400000000 0", rec)
}

func TestTimeRecordRoundTrip(t *testing.T) {
	orig := Times{Modified: time.Unix(1700000001, 0), Accessed: time.Unix(1700000002, 0)}
	parsed, err := ParseTimeRecord(FormatTimeRecord(orig))
	require.NoError(t, err)
	assert.True(t, parsed.Modified.Equal(orig.Modified))
	assert.True(t, parsed.Accessed.Equal(orig.Accessed))
}
