package scp

import (
	"io"
	"strings"

	"golang.org/x/crypto/ssh"
)

// Client drives a remote scp endpoint over an established SSH connection.
// Uploads run the local Sender against the remote sink, downloads run the
// local Receiver against the remote source; the same two state machines
// serve both embeddings.
type Client struct {
	conn   *ssh.Client
	config *Config
	events *Events
	logger Logger
}

// NewClient wraps an established SSH connection. The options are the same
// ones NewSession accepts.
func NewClient(conn *ssh.Client, opts ...Option) *Client {
	s := NewSession(nil, nil, opts...)
	return &Client{
		conn:   conn,
		config: s.config,
		events: s.events,
		logger: s.logger,
	}
}

// CopyTo uploads the local paths into the remote target. Patterns may
// contain '*'; recursive transfers carry whole directory trees.
func (c *Client) CopyTo(localPaths []string, remoteTarget string, recursive, preserve bool) error {
	cmdline := remoteCommand("-t", remoteTarget, recursive, preserve)
	return c.run(cmdline, func(sess *sshPipes) error {
		snd := NewSender(sess.out, sess.in, &SenderConfig{
			Recursive:  recursive,
			Preserve:   preserve,
			BufferSize: c.config.BufferSize,
			FileSystem: c.config.FileSystem,
			Events:     c.events,
			Logger:     c.logger,
		})
		return snd.Send(localPaths)
	})
}

// CopyFrom downloads the remote path or pattern into the local target.
func (c *Client) CopyFrom(remotePath, localTarget string, recursive, preserve bool) error {
	cmdline := remoteCommand("-f", remotePath, recursive, preserve)
	return c.run(cmdline, func(sess *sshPipes) error {
		recv := NewReceiver(sess.out, sess.in, &ReceiverConfig{
			Recursive:  recursive,
			Preserve:   preserve,
			BufferSize: c.config.BufferSize,
			FileSystem: c.config.FileSystem,
			Events:     c.events,
			Logger:     c.logger,
		})
		return recv.Receive(localTarget)
	})
}

// sshPipes carries the exec session's streams: in is written to the remote
// process, out is read from it.
type sshPipes struct {
	in  io.WriteCloser
	out io.Reader
}

func (c *Client) run(cmdline string, transfer func(*sshPipes) error) error {
	sess, err := c.conn.NewSession()
	if err != nil {
		return wrapIO(err)
	}
	defer sess.Close()

	stdin, err := sess.StdinPipe()
	if err != nil {
		return wrapIO(err)
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		return wrapIO(err)
	}

	c.logger.Debug("starting remote command: %s", cmdline)
	if err := sess.Start(cmdline); err != nil {
		return wrapIO(err)
	}

	err = transfer(&sshPipes{in: stdin, out: stdout})
	stdin.Close()
	if werr := sess.Wait(); err == nil && werr != nil {
		err = wrapIO(werr)
	}
	return err
}

func remoteCommand(direction, path string, recursive, preserve bool) string {
	var sb strings.Builder
	sb.WriteString("scp")
	if recursive {
		sb.WriteString(" -r")
	}
	if preserve {
		sb.WriteString(" -p")
	}
	sb.WriteString(" ")
	sb.WriteString(direction)
	sb.WriteString(" ")
	sb.WriteString(quoteRemote(path))
	return sb.String()
}

// quoteRemote single-quotes the path for the remote shell.
func quoteRemote(path string) string {
	return "'" + strings.ReplaceAll(path, "'", `'\''`) + "'"
}

// HandleChannel serves one scp exec request over an SSH channel: it runs
// the transfer, reports failures to the peer in-band, and sends the channel
// exit-status before returning. The command line is the exec request
// payload.
func HandleChannel(ch ssh.Channel, cmdline string, opts ...Option) error {
	session := NewSession(ch, ch, opts...)
	err := session.Run(cmdline)

	status := make([]byte, 4)
	if err != nil {
		status[3] = 1
	}
	ch.SendRequest("exit-status", false, status)
	ch.CloseWrite()
	return err
}
