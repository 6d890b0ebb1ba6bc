package scp

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ackEOF is returned by readAck when the stream ended and the caller
// allowed it.
const ackEOF = -1

// codec frames the half-duplex SCP dialogue over the channel streams.
// It is the sole accessor of the underlying reader and writer; the streams
// stay open for the lifetime of the transfer.
type codec struct {
	in     *bufio.Reader
	out    *bufio.Writer
	logger Logger
	buf    []byte
}

func newCodec(in io.Reader, out io.Writer, bufferSize int, logger Logger) *codec {
	if bufferSize < MinBufferSize {
		bufferSize = MinBufferSize
	}
	if logger == nil {
		logger = NopLogger{}
	}
	return &codec{
		in:     bufio.NewReader(in),
		out:    bufio.NewWriter(out),
		logger: logger,
		buf:    make([]byte, bufferSize),
	}
}

// ack signals success for the previous record, payload or terminator.
func (c *codec) ack() error {
	if err := c.out.WriteByte(StatusOK); err != nil {
		return wrapIO(err)
	}
	return c.flush()
}

func (c *codec) flush() error {
	if err := c.out.Flush(); err != nil {
		return wrapIO(err)
	}
	return nil
}

// readAck reads one status byte. StatusWarning logs the following
// diagnostic line and carries on; StatusError fails with the peer's reason.
// Any other byte is tolerated as a plain acknowledgement and handed back to
// the caller, which may reuse it as a record discriminator.
func (c *codec) readAck(allowEOF bool) (int, error) {
	b, err := c.in.ReadByte()
	if err != nil {
		if err == io.EOF {
			if allowEOF {
				return ackEOF, nil
			}
			return 0, NewError(ErrUnexpectedEOF, "stream ended before ack")
		}
		return 0, wrapIO(err)
	}
	switch b {
	case StatusOK:
	case StatusWarning:
		line, err := c.readLine(false)
		if err != nil {
			return 0, err
		}
		c.logger.Info("received warning: %s", line)
	case StatusError:
		line, err := c.readLine(false)
		if err != nil {
			return 0, err
		}
		return 0, NewError(ErrPeerRejected, line)
	}
	return int(b), nil
}

// readLine reads bytes up to the next LF, which is stripped.
func (c *codec) readLine(allowEOF bool) (string, error) {
	line, err := c.in.ReadString('\n')
	if err != nil {
		if err == io.EOF {
			if allowEOF {
				return line, nil
			}
			return "", NewError(ErrUnexpectedEOF, "stream ended inside header line")
		}
		return "", wrapIO(err)
	}
	return strings.TrimSuffix(line, "\n"), nil
}

// writeHeader writes a header line followed by LF and flushes. Never
// retries; I/O failures propagate.
func (c *codec) writeHeader(line string) error {
	if _, err := c.out.WriteString(line); err != nil {
		return wrapIO(err)
	}
	if err := c.out.WriteByte('\n'); err != nil {
		return wrapIO(err)
	}
	return c.flush()
}

// writeWarning emits an in-band advisory; the transfer continues.
func (c *codec) writeWarning(text string) error {
	return c.writeStatus(StatusWarning, text)
}

// writeError emits the in-band fatal status with the peer-visible reason.
func (c *codec) writeError(text string) error {
	return c.writeStatus(StatusError, text)
}

func (c *codec) writeStatus(status byte, text string) error {
	if err := c.out.WriteByte(status); err != nil {
		return wrapIO(err)
	}
	if _, err := c.out.WriteString(text); err != nil {
		return wrapIO(err)
	}
	if err := c.out.WriteByte('\n'); err != nil {
		return wrapIO(err)
	}
	return c.flush()
}

// copyIn streams exactly n payload bytes from the peer into dst. The
// trailing terminator byte is left in the stream for the ack discipline.
func (c *codec) copyIn(dst io.Writer, n int64) error {
	lr := &limitedReader{r: c.in, n: n}
	written, err := io.CopyBuffer(dst, lr, c.buf)
	if err != nil {
		return wrapIO(err)
	}
	if written != n {
		return NewError(ErrUnexpectedEOF, fmt.Sprintf("payload truncated at %d of %d bytes", written, n))
	}
	return nil
}

// copyOut streams exactly n bytes from src to the peer.
func (c *codec) copyOut(src io.Reader, n int64) error {
	written, err := io.CopyBuffer(c.out, io.LimitReader(src, n), c.buf)
	if err != nil {
		return wrapIO(err)
	}
	if written != n {
		return NewError(ErrUnexpectedEOF, fmt.Sprintf("source truncated at %d of %d bytes", written, n))
	}
	return nil
}

// limitedReader exposes at most n bytes of the wrapped reader. Dropping the
// view leaves the underlying reader open, positioned at the first byte past
// the view.
type limitedReader struct {
	r io.Reader
	n int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.n <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > l.n {
		p = p[:l.n]
	}
	n, err := l.r.Read(p)
	l.n -= int64(n)
	return n, err
}
