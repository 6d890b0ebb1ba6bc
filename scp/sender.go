package scp

import (
	"io"
	"io/fs"
	"path/filepath"
	"strings"
)

// Sender drives the source side of a transfer (scp -f): it walks the local
// filesystem and emits control headers and payloads to the peer.
//
// A Sender is single-use and single-threaded; it owns its streams for the
// lifetime of the transfer.
type Sender struct {
	codec  *codec
	fs     FileSystem
	events *Events
	logger Logger

	recursive bool
	preserve  bool
}

// SenderConfig holds configuration for a Sender.
type SenderConfig struct {
	// Recursive descends into directories.
	Recursive bool

	// Preserve announces the source's permission bits and times instead of
	// the 0644/0755 defaults.
	Preserve bool

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

// NewSender creates a sender over the channel streams.
func NewSender(in io.Reader, out io.Writer, config *SenderConfig) *Sender {
	if config == nil {
		config = &SenderConfig{}
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
	return &Sender{
		codec:     newCodec(in, out, bufferSize, logger),
		fs:        fsys,
		events:    mergeEvents(config.Events),
		logger:    logger,
		recursive: config.Recursive,
		preserve:  config.Preserve,
	}
}

// Send transmits every path pattern in order, after reading the peer's
// readiness ack. Patterns containing '*' expand against the filesystem;
// entries a non-recursive transfer cannot carry produce in-band warnings
// rather than aborting the batch. On failure the peer is notified in-band
// before the error is returned.
func (s *Sender) Send(paths []string) error {
	err := s.send(paths)
	if err != nil {
		s.nack(err)
	}
	return err
}

func (s *Sender) send(paths []string) error {
	if _, err := s.codec.readAck(false); err != nil {
		return err
	}
	for _, pattern := range paths {
		pattern = toNative(pattern)
		if strings.ContainsRune(pattern, '*') {
			if err := s.sendGlob(pattern); err != nil {
				return err
			}
			continue
		}
		fi, exists, err := checkExists(s.fs, pattern)
		if err != nil {
			return err
		}
		if !exists {
			return NewPathError(ErrNotFound, pattern, "no such file or directory")
		}
		switch {
		case fi.Mode().IsRegular():
			if err := s.sendFile(pattern, fi); err != nil {
				return err
			}
		case fi.IsDir():
			if !s.recursive {
				return NewPathError(ErrIsADirectory, pattern, "not a regular file")
			}
			if err := s.sendDir(pattern, fi); err != nil {
				return err
			}
		default:
			return NewPathError(ErrIO, pattern, "unknown file type")
		}
	}
	return nil
}

func (s *Sender) sendGlob(pattern string) error {
	basedir, leaf := splitGlob(pattern)
	names, err := expandGlob(s.fs, basedir, leaf)
	if err != nil {
		return err
	}
	for _, name := range names {
		file := resolveLocalPath(basedir, name)
		fi, exists, err := checkExists(s.fs, file)
		if err != nil {
			return err
		}
		if !exists {
			continue
		}
		switch {
		case fi.Mode().IsRegular():
			if err := s.sendFile(file, fi); err != nil {
				return err
			}
		case fi.IsDir():
			if !s.recursive {
				if err := s.codec.writeWarning(toWire(name) + " not a regular file"); err != nil {
					return err
				}
				continue
			}
			if err := s.sendDir(file, fi); err != nil {
				return err
			}
		default:
			if err := s.codec.writeWarning(toWire(name) + " unknown file type"); err != nil {
				return err
			}
		}
	}
	return nil
}

// sendTimes announces the source's times ahead of the next C or D record.
func (s *Sender) sendTimes(fi fs.FileInfo) error {
	t := Times{Modified: fi.ModTime(), Accessed: accessTime(fi)}
	if err := s.codec.writeHeader(FormatTimeRecord(t)); err != nil {
		return err
	}
	_, err := s.codec.readAck(false)
	return err
}

func (s *Sender) sendFile(path string, fi fs.FileInfo) error {
	s.logger.Debug("sending file %s", path)
	if s.preserve {
		if err := s.sendTimes(fi); err != nil {
			return err
		}
	}
	perm := fs.FileMode(0o644)
	if s.preserve {
		perm = fi.Mode().Perm()
	}
	size := fi.Size()
	rec := Record{Type: FileRecord, Perm: perm, Size: size, Name: filepath.Base(path)}
	if err := s.codec.writeHeader(rec.String()); err != nil {
		return err
	}
	if _, err := s.codec.readAck(false); err != nil {
		return err
	}

	f, err := s.fs.Open(path)
	if err != nil {
		return wrapFS(err, path)
	}
	s.events.StartFile(Send, path, size, perm)
	copyErr := s.codec.copyOut(f, size)
	if cerr := f.Close(); copyErr == nil && cerr != nil {
		copyErr = wrapFS(cerr, path)
	}
	s.events.EndFile(Send, path, size, perm, copyErr)
	if copyErr != nil {
		return copyErr
	}

	// the payload terminator is a bare OK status byte
	if err := s.codec.ack(); err != nil {
		return err
	}
	_, err = s.codec.readAck(false)
	return err
}

func (s *Sender) sendDir(path string, fi fs.FileInfo) error {
	s.logger.Debug("sending directory %s", path)
	if s.preserve {
		if err := s.sendTimes(fi); err != nil {
			return err
		}
	}
	perm := fs.FileMode(0o755)
	if s.preserve {
		perm = fi.Mode().Perm()
	}
	rec := Record{Type: DirRecord, Perm: perm, Name: filepath.Base(path)}
	if err := s.codec.writeHeader(rec.String()); err != nil {
		return err
	}
	if _, err := s.codec.readAck(false); err != nil {
		return err
	}

	entries, err := s.fs.ReadDir(path)
	if err != nil {
		return wrapFS(err, path)
	}
	s.events.StartFolder(Send, path, perm)
	err = s.sendChildren(path, entries)
	s.events.EndFolder(Send, path, perm, err)
	if err != nil {
		return err
	}

	if err := s.codec.writeHeader(Record{Type: EndRecord}.String()); err != nil {
		return err
	}
	_, err = s.codec.readAck(false)
	return err
}

func (s *Sender) sendChildren(path string, entries []fs.DirEntry) error {
	for _, ent := range entries {
		child := filepath.Join(path, ent.Name())
		cfi, exists, err := checkExists(s.fs, child)
		if err != nil {
			return err
		}
		if !exists {
			continue
		}
		switch {
		case cfi.Mode().IsRegular():
			if err := s.sendFile(child, cfi); err != nil {
				return err
			}
		case cfi.IsDir():
			if err := s.sendDir(child, cfi); err != nil {
				return err
			}
		}
		// other entry types are silently skipped
	}
	return nil
}

// nack delivers a local failure to the peer in-band. Errors that already
// came from the peer or from a dead channel are not echoed back.
func (s *Sender) nack(err error) {
	if t, ok := TypeOf(err); ok {
		switch t {
		case ErrPeerRejected, ErrChannelClosed, ErrUnexpectedEOF:
			return
		}
	}
	if werr := s.codec.writeError(err.Error()); werr != nil {
		s.logger.Debug("could not deliver error to peer: %v", werr)
	}
}
