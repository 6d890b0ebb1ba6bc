package scp

import (
	"errors"
	"io"
	"io/fs"
)

// Receiver drives the sink side of a transfer (scp -t): it consumes control
// headers from the peer and writes files and directories into the local
// filesystem.
//
// A Receiver is single-use and single-threaded; it owns its streams for the
// lifetime of the transfer.
type Receiver struct {
	codec  *codec
	fs     FileSystem
	events *Events
	logger Logger

	recursive bool
	preserve  bool
	mustBeDir bool
}

// ReceiverConfig holds configuration for a Receiver.
type ReceiverConfig struct {
	// Recursive accepts directory records and recreates the tree.
	Recursive bool

	// Preserve applies the peer's permission bits and buffered times.
	Preserve bool

	// TargetIsDirectory requires the target to be an existing directory.
	TargetIsDirectory bool

	// BufferSize bounds the payload copy buffer. Values below MinBufferSize
	// are raised to it; zero selects DefaultBufferSize.
	BufferSize int

	// FileSystem is the local filesystem surface. Nil means OsFS.
	FileSystem FileSystem

	// Events observes the transfer. Nil is a no-op.
	Events *Events

	// Logger receives protocol diagnostics. Nil discards them.
	Logger Logger
}

// NewReceiver creates a receiver over the channel streams.
func NewReceiver(in io.Reader, out io.Writer, config *ReceiverConfig) *Receiver {
	if config == nil {
		config = &ReceiverConfig{}
	}
	fsys := config.FileSystem
	if fsys == nil {
		fsys = OsFS{}
	}
	logger := config.Logger
	if logger == nil {
		logger = NopLogger{}
	}
	bufferSize := config.BufferSize
	if bufferSize == 0 {
		bufferSize = DefaultBufferSize
	}
	return &Receiver{
		codec:     newCodec(in, out, bufferSize, logger),
		fs:        fsys,
		events:    mergeEvents(config.Events),
		logger:    logger,
		recursive: config.Recursive,
		preserve:  config.Preserve,
		mustBeDir: config.TargetIsDirectory,
	}
}

// Receive runs the sink state machine against target until the peer closes
// the stream. On failure the peer is notified in-band before the error is
// returned.
func (r *Receiver) Receive(target string) error {
	err := r.receive(toNative(target))
	if err != nil {
		r.nack(err)
	}
	return err
}

func (r *Receiver) receive(target string) error {
	if r.mustBeDir {
		fi, exists, err := checkExists(r.fs, target)
		if err != nil {
			return err
		}
		if !exists {
			return NewPathError(ErrNotFound, target, "target directory does not exist")
		}
		if !fi.IsDir() {
			return NewPathError(ErrNotADirectory, target, "target is not a directory")
		}
	}
	return r.loop(target, true)
}

// loop is one directory level of the sink dialogue. The directory stack is
// implicit in the call stack: every accepted D record recurses and the
// balancing E returns. The entry ack doubles as the readiness signal at the
// top level and as the D acknowledgement one level down.
func (r *Receiver) loop(target string, top bool) error {
	if err := r.codec.ack(); err != nil {
		return err
	}
	var pending *Times
	for {
		c, err := r.codec.readAck(true)
		if err != nil {
			return err
		}
		switch c {
		case ackEOF:
			if !top {
				return NewError(ErrUnexpectedEOF, "stream ended inside directory scope")
			}
			return nil
		case 'C':
			line, err := r.codec.readLine(false)
			if err != nil {
				return err
			}
			r.logger.Debug("received header: C%s", line)
			rec, err := ParseRecord("C" + line)
			if err != nil {
				return err
			}
			if err := r.receiveFile(rec, target, pending); err != nil {
				return err
			}
			pending = nil
		case 'D':
			line, err := r.codec.readLine(false)
			if err != nil {
				return err
			}
			r.logger.Debug("received header: D%s", line)
			if !r.recursive {
				return NewError(ErrProtocol, "directory record on a non-recursive transfer")
			}
			rec, err := ParseRecord("D" + line)
			if err != nil {
				return err
			}
			if err := r.receiveDir(rec, target, pending); err != nil {
				return err
			}
			pending = nil
		case 'T':
			line, err := r.codec.readLine(false)
			if err != nil {
				return err
			}
			r.logger.Debug("received header: T%s", line)
			t, err := ParseTimeRecord("T" + line)
			if err != nil {
				return err
			}
			// consecutive T records replace each other, last wins
			pending = &t
			if err := r.codec.ack(); err != nil {
				return err
			}
		case 'E':
			if _, err := r.codec.readLine(false); err != nil {
				return err
			}
			if err := r.codec.ack(); err != nil {
				return err
			}
			return nil
		default:
			// a real ack that has been acted upon already
		}
	}
}

func (r *Receiver) receiveFile(rec Record, target string, pending *Times) error {
	dest, err := arbitrate(r.fs, target, rec.Name, true)
	if err != nil {
		return err
	}
	fi, exists, err := checkExists(r.fs, dest)
	if err != nil {
		return err
	}
	if exists && fi.IsDir() {
		return NewPathError(ErrIsADirectory, dest, "destination is a directory")
	}

	size := rec.Size
	if size < 0 {
		r.logger.Info("bad length %d in header for %s", rec.Size, dest)
		size = 0
	}

	f, err := r.fs.Create(dest)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return NewPathError(ErrNotWritable, dest, "cannot write to file")
		}
		return wrapFS(err, dest)
	}
	if err := r.codec.ack(); err != nil {
		f.Close()
		return err
	}

	r.events.StartFile(Receive, dest, size, rec.Perm)
	copyErr := r.codec.copyIn(f, size)
	if cerr := f.Close(); copyErr == nil && cerr != nil {
		copyErr = wrapFS(cerr, dest)
	}
	r.events.EndFile(Receive, dest, size, rec.Perm, copyErr)
	if copyErr != nil {
		return copyErr
	}

	// the sender terminates the payload with a single status byte
	if _, err := r.codec.readAck(false); err != nil {
		return err
	}

	if r.preserve {
		if err := r.fs.Chmod(dest, rec.Perm); err != nil {
			return wrapFS(err, dest)
		}
		if pending != nil {
			if err := r.fs.Chtimes(dest, pending.Accessed, pending.Modified); err != nil {
				return wrapFS(err, dest)
			}
		}
	}
	return r.codec.ack()
}

func (r *Receiver) receiveDir(rec Record, target string, pending *Times) error {
	dest, err := arbitrate(r.fs, target, rec.Name, false)
	if err != nil {
		return err
	}
	fi, exists, err := checkExists(r.fs, dest)
	if err != nil {
		return err
	}
	if exists && !fi.IsDir() {
		return NewPathError(ErrNotADirectory, dest, "destination exists and is not a directory")
	}
	if !exists {
		if err := r.fs.Mkdir(dest, 0o755); err != nil {
			return wrapFS(err, dest)
		}
	}
	if r.preserve {
		// the permission bits land on the original target path, a legacy
		// quirk kept for compatibility with existing peers
		if err := r.fs.Chmod(target, rec.Perm); err != nil {
			return wrapFS(err, target)
		}
		if pending != nil {
			if err := r.fs.Chtimes(dest, pending.Accessed, pending.Modified); err != nil {
				return wrapFS(err, dest)
			}
		}
	}

	r.events.StartFolder(Receive, dest, rec.Perm)
	err = r.loop(dest, false)
	r.events.EndFolder(Receive, dest, rec.Perm, err)
	return err
}

// nack delivers a local failure to the peer in-band. Errors that already
// came from the peer or from a dead channel are not echoed back.
func (r *Receiver) nack(err error) {
	if t, ok := TypeOf(err); ok {
		switch t {
		case ErrPeerRejected, ErrChannelClosed, ErrUnexpectedEOF:
			return
		}
	}
	if werr := r.codec.writeError(err.Error()); werr != nil {
		r.logger.Debug("could not deliver error to peer: %v", werr)
	}
}
