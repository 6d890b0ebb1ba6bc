package scp

import (
	"path/filepath"
	"strings"
)

// Direction fixes which state machine a transfer runs. It is set at
// construction and never changes.
type Direction int

const (
	// Sink receives from the peer and writes to the local filesystem
	// (scp -t).
	Sink Direction = iota

	// Source reads the local filesystem and transmits to the peer (scp -f).
	Source
)

func (d Direction) String() string {
	if d == Sink {
		return "sink"
	}
	return "source"
}

// Command is a parsed remote scp invocation.
type Command struct {
	Direction         Direction
	Recursive         bool
	Preserve          bool
	TargetIsDirectory bool

	// Path is the target path (sink) or source pattern (source).
	Path string
}

// ParseCommand parses the command line carried by an SSH exec request, of
// the form "scp <flags> <path>". Unknown flags are ignored for
// compatibility with newer clients.
func ParseCommand(cmdline string) (Command, error) {
	fields := strings.Fields(cmdline)
	if len(fields) == 0 {
		return Command{}, NewError(ErrProtocol, "empty scp command")
	}
	args := fields
	if filepath.Base(args[0]) == "scp" {
		args = args[1:]
	}

	var cmd Command
	haveDirection := false
	var paths []string
	for _, arg := range args {
		switch arg {
		case "-t":
			cmd.Direction = Sink
			haveDirection = true
		case "-f":
			cmd.Direction = Source
			haveDirection = true
		case "-r":
			cmd.Recursive = true
		case "-p":
			cmd.Preserve = true
		case "-d":
			cmd.TargetIsDirectory = true
		default:
			if strings.HasPrefix(arg, "-") {
				continue
			}
			paths = append(paths, arg)
		}
	}
	if !haveDirection {
		return Command{}, NewError(ErrProtocol, "scp command specifies neither -t nor -f")
	}
	if len(paths) == 0 {
		return Command{}, NewError(ErrProtocol, "scp command is missing a path")
	}
	// paths with spaces arrive split; the shell quoting that produced them
	// is not visible here, so rejoin
	cmd.Path = strings.Join(paths, " ")
	return cmd, nil
}
