package scp

import "io"

// Session runs one SCP transfer over a pair of channel streams. A given
// session drives exactly one direction, fixed by the remote command it is
// asked to execute; the underlying streams are owned by the session for the
// lifetime of the transfer.
type Session struct {
	in  io.Reader
	out io.Writer

	config *Config
	events *Events
	logger Logger
}

// Config holds session configuration.
type Config struct {
	// BufferSize bounds the payload copy buffer.
	BufferSize int

	// FileSystem is the local filesystem surface. Nil means OsFS.
	FileSystem FileSystem
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		BufferSize: DefaultBufferSize,
	}
}

// Option configures a Session.
type Option func(*Session)

// WithConfig sets the session configuration.
func WithConfig(config *Config) Option {
	return func(s *Session) {
		s.config = config
	}
}

// WithEvents sets the observer capability set.
func WithEvents(events *Events) Option {
	return func(s *Session) {
		s.events = events
	}
}

// WithFileSystem sets the local filesystem surface.
func WithFileSystem(fsys FileSystem) Option {
	return func(s *Session) {
		s.config.FileSystem = fsys
	}
}

// WithLogger sets a logger for protocol diagnostics.
func WithLogger(logger Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// NewSession creates a session over the channel streams.
func NewSession(in io.Reader, out io.Writer, opts ...Option) *Session {
	s := &Session{
		in:     in,
		out:    out,
		config: DefaultConfig(),
		logger: NopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run parses the remote command line and drives the matching state machine
// until the transfer ends.
func (s *Session) Run(cmdline string) error {
	cmd, err := ParseCommand(cmdline)
	if err != nil {
		// the peer is already waiting on the dialogue, refuse in-band
		c := newCodec(s.in, s.out, s.config.BufferSize, s.logger)
		if werr := c.writeError(err.Error()); werr != nil {
			s.logger.Debug("could not deliver error to peer: %v", werr)
		}
		return err
	}
	return s.RunCommand(cmd)
}

// RunCommand drives the state machine selected by an already-parsed
// command.
func (s *Session) RunCommand(cmd Command) error {
	switch cmd.Direction {
	case Sink:
		r := NewReceiver(s.in, s.out, &ReceiverConfig{
			Recursive:         cmd.Recursive,
			Preserve:          cmd.Preserve,
			TargetIsDirectory: cmd.TargetIsDirectory,
			BufferSize:        s.config.BufferSize,
			FileSystem:        s.config.FileSystem,
			Events:            s.events,
			Logger:            s.logger,
		})
		return r.Receive(cmd.Path)
	case Source:
		snd := NewSender(s.in, s.out, &SenderConfig{
			Recursive:  cmd.Recursive,
			Preserve:   cmd.Preserve,
			BufferSize: s.config.BufferSize,
			FileSystem: s.config.FileSystem,
			Events:     s.events,
			Logger:     s.logger,
		})
		return snd.Send([]string{cmd.Path})
	}
	return NewError(ErrProtocol, "unknown transfer direction")
}
