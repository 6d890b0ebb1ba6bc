package scp

import "io/fs"

// Op identifies which state machine an event originates from.
type Op int

const (
	// Send events come from the source side.
	Send Op = iota

	// Receive events come from the sink side.
	Receive
)

func (o Op) String() string {
	if o == Send {
		return "send"
	}
	return "receive"
}

// Events is the capability set a caller offers to observe a transfer.
// All fields are optional - nil fields use no-op behavior. Handlers must not
// panic; a failure inside a scope is reported through the matching end hook
// before the transfer unwinds.
type Events struct {
	// StartFolder is called before any action on a directory.
	StartFolder func(op Op, path string, perm fs.FileMode)

	// EndFolder is called on normal or error exit from a directory scope.
	EndFolder func(op Op, path string, perm fs.FileMode, err error)

	// StartFile is called before a file payload is streamed.
	StartFile func(op Op, path string, size int64, perm fs.FileMode)

	// EndFile is called on normal or error exit from a file transfer.
	EndFile func(op Op, path string, size int64, perm fs.FileMode, err error)
}

// mergeEvents fills nil hooks with no-ops so the state machines can invoke
// them unconditionally.
func mergeEvents(user *Events) *Events {
	merged := &Events{
		StartFolder: func(Op, string, fs.FileMode) {},
		EndFolder:   func(Op, string, fs.FileMode, error) {},
		StartFile:   func(Op, string, int64, fs.FileMode) {},
		EndFile:     func(Op, string, int64, fs.FileMode, error) {},
	}
	if user == nil {
		return merged
	}
	if user.StartFolder != nil {
		merged.StartFolder = user.StartFolder
	}
	if user.EndFolder != nil {
		merged.EndFolder = user.EndFolder
	}
	if user.StartFile != nil {
		merged.StartFile = user.StartFile
	}
	if user.EndFile != nil {
		merged.EndFile = user.EndFile
	}
	return merged
}
