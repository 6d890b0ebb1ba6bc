package scp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		cmdline string
		want    Command
		wantErr bool
	}{
		{
			name:    "sink",
			cmdline: "scp -t target/scp",
			want:    Command{Direction: Sink, Path: "target/scp"},
		},
		{
			name:    "source",
			cmdline: "scp -f target/scp/out.txt",
			want:    Command{Direction: Source, Path: "target/scp/out.txt"},
		},
		{
			name:    "recursive preserve sink",
			cmdline: "scp -r -p -d -t dir",
			want:    Command{Direction: Sink, Recursive: true, Preserve: true, TargetIsDirectory: true, Path: "dir"},
		},
		{
			name:    "unknown flags are ignored",
			cmdline: "scp -v -q -t dir",
			want:    Command{Direction: Sink, Path: "dir"},
		},
		{
			name:    "absolute program path",
			cmdline: "/usr/bin/scp -f file",
			want:    Command{Direction: Source, Path: "file"},
		},
		{
			name:    "path with spaces is rejoined",
			cmdline: "scp -t my dir",
			want:    Command{Direction: Sink, Path: "my dir"},
		},
		{
			name:    "no direction",
			cmdline: "scp -r dir",
			wantErr: true,
		},
		{
			name:    "no path",
			cmdline: "scp -t",
			wantErr: true,
		},
		{
			name:    "empty",
			cmdline: "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCommand(tt.cmdline)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
